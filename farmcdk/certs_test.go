package farmcdk_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/renderloft/farmgo/farmcdk"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("certificates", func() {
	var app awscdk.App
	var stack awscdk.Stack

	BeforeEach(func() {
		app = awscdk.NewApp(nil)
		stack = awscdk.NewStack(app, jsii.String("Stack1"), nil)
	})

	It("should declare a root authority", func() {
		ca := farmcdk.WithRootCA(stack, "Ca1", jsii.String("arn:provider:token"), farmcdk.DistinguishedName{
			CommonName:   "RootCA",
			Organization: "RenderLoft",
		})

		Expect(ca.CertArn()).ToNot(BeNil())

		tmpl := assertions.Template_FromStack(stack, nil)

		tmpl.ResourceCountIs(jsii.String(farmcdk.PemResourceType), jsii.Number(1))
		tmpl.HasResourceProperties(jsii.String(farmcdk.PemResourceType), map[string]any{
			"ServiceToken": jsii.String("arn:provider:token"),
			"Subject": assertions.Match_ObjectLike(&map[string]any{
				"CommonName":   jsii.String("RootCA"),
				"Organization": jsii.String("RenderLoft"),
			}),
		})
	})

	It("should declare a signed certificate referencing its authority", func() {
		ca := farmcdk.WithRootCA(stack, "Ca1", jsii.String("arn:provider:token"), farmcdk.DistinguishedName{
			CommonName: "RootCA",
		})

		farmcdk.WithSignedCertificate(stack, "Cert1", jsii.String("arn:provider:token"), farmcdk.DistinguishedName{
			CommonName:         "mongo.renderfarm.internal",
			OrganizationalUnit: "MongoServer",
		}, ca)

		tmpl := assertions.Template_FromStack(stack, nil)

		tmpl.ResourceCountIs(jsii.String(farmcdk.PemResourceType), jsii.Number(2))
		tmpl.HasResourceProperties(jsii.String(farmcdk.PemResourceType), map[string]any{
			"Subject": assertions.Match_ObjectLike(&map[string]any{
				"CommonName": jsii.String("mongo.renderfarm.internal"),
			}),
			"SigningCertArn": assertions.Match_AnyValue(),
			"SigningKeyArn":  assertions.Match_AnyValue(),
		})
	})

	It("should declare a pkcs12 conversion off pem material", func() {
		ca := farmcdk.WithRootCA(stack, "Ca1", jsii.String("arn:provider:token"), farmcdk.DistinguishedName{
			CommonName: "RootCA",
		})

		bundle := farmcdk.WithPkcs12Certificate(stack, "Bundle1", jsii.String("arn:provider:token"), ca)
		Expect(bundle.BundleArn()).ToNot(BeNil())

		tmpl := assertions.Template_FromStack(stack, nil)

		tmpl.ResourceCountIs(jsii.String(farmcdk.Pkcs12ResourceType), jsii.Number(1))
		tmpl.HasResourceProperties(jsii.String(farmcdk.Pkcs12ResourceType), map[string]any{
			"SourceCertArn":       assertions.Match_AnyValue(),
			"SourceKeyArn":        assertions.Match_AnyValue(),
			"SourcePassphraseArn": assertions.Match_AnyValue(),
		})
	})
})
