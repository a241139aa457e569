package storagetier_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/jsii-runtime-go"
	"github.com/renderloft/farmgo/farmcdk"
	"github.com/renderloft/farmgo/farmcdk/storagetier"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("mongodb tier", func() {
	var app awscdk.App
	var stack awscdk.Stack
	var cfg farmcdk.Config
	var vpc awsec2.IVpc
	var zone awsroute53.IPrivateHostedZone
	var rootCA farmcdk.X509CertificatePem

	BeforeEach(func() {
		app = awscdk.NewApp(nil)
		cfg = farmcdk.NewStagingConfig()
		stack = awscdk.NewStack(app, jsii.String("Stack1"), nil)
		vpc = farmcdk.WithNetwork(stack, "Network1", cfg)
		zone = farmcdk.WithPrivateZone(stack, "Dns1", cfg, vpc)
		rootCA = farmcdk.WithRootCA(stack, "Ca1", jsii.String("arn:cert:token"), farmcdk.DistinguishedName{
			CommonName:   "RenderFarmRootCA",
			Organization: "RenderLoft",
		})
	})

	It("should refuse to declare without license acceptance", func() {
		Expect(func() {
			storagetier.NewMongoDBStorageTier(stack, "Storage1", cfg, vpc, zone, rootCA,
				jsii.String("arn:cert:token"), jsii.String("arn:mongo:token"),
				storagetier.SsplUserRejectsLicense)
		}).To(PanicWith(MatchRegexp(`SSPL`)))
	})

	Describe("declared", func() {
		var tier storagetier.StorageTier

		BeforeEach(func() {
			tier = storagetier.NewMongoDBStorageTier(stack, "Storage1", cfg, vpc, zone, rootCA,
				jsii.String("arn:cert:token"), jsii.String("arn:mongo:token"),
				storagetier.SsplUserAcceptsLicense)
		})

		It("should create the instance with its dns record", func() {
			Expect(*tier.Connection().Endpoint()).To(Equal("mongo.renderfarm.internal"))
			Expect(*tier.Connection().Port()).To(BeNumerically("==", 27017))

			tmpl := assertions.Template_FromStack(stack, nil)

			tmpl.ResourceCountIs(jsii.String("AWS::EFS::FileSystem"), jsii.Number(1))
			tmpl.ResourceCountIs(jsii.String("AWS::EC2::Instance"), jsii.Number(1))

			tmpl.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]any{
				"Name": jsii.String("mongo.renderfarm.internal."),
				"Type": jsii.String("A"),
			})
		})

		It("should issue server and client certificates off the authority", func() {
			tmpl := assertions.Template_FromStack(stack, nil)

			// the authority itself plus the server and client certificate
			tmpl.ResourceCountIs(jsii.String(farmcdk.PemResourceType), jsii.Number(3))
			tmpl.ResourceCountIs(jsii.String(farmcdk.Pkcs12ResourceType), jsii.Number(1))

			tmpl.HasResourceProperties(jsii.String(farmcdk.PemResourceType), map[string]any{
				"Subject": assertions.Match_ObjectLike(&map[string]any{
					"CommonName":         jsii.String("mongo.renderfarm.internal"),
					"OrganizationalUnit": jsii.String("MongoServer"),
				}),
			})

			tmpl.HasResourceProperties(jsii.String(farmcdk.PemResourceType), map[string]any{
				"Subject": assertions.Match_ObjectLike(&map[string]any{
					"CommonName":         jsii.String("FarmClient"),
					"OrganizationalUnit": jsii.String("MongoClient"),
				}),
			})
		})

		It("should declare the post-install step with the admin roles", func() {
			tmpl := assertions.Template_FromStack(stack, nil)

			tmpl.ResourceCountIs(jsii.String(storagetier.PostInstallResourceType), jsii.Number(1))
			tmpl.HasResourceProperties(jsii.String(storagetier.PostInstallResourceType), map[string]any{
				"ServiceToken": jsii.String("arn:mongo:token"),
				"Hostname":     jsii.String("mongo.renderfarm.internal"),
				"Port":         jsii.Number(27017),
				"Users": assertions.Match_ArrayWith(&[]any{
					assertions.Match_ObjectLike(&map[string]any{
						"Roles": jsii.String(`[{"role":"readWriteAnyDatabase","db":"admin"},` +
							`{"role":"clusterMonitor","db":"admin"}]`),
					}),
				}),
			})
		})

		It("should only open the database port within the vpc", func() {
			tmpl := assertions.Template_FromStack(stack, nil)

			tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroup"), map[string]any{
				"SecurityGroupIngress": assertions.Match_ArrayWith(&[]any{
					assertions.Match_ObjectLike(&map[string]any{
						"FromPort": jsii.Number(27017),
						"ToPort":   jsii.Number(27017),
					}),
				}),
			})
		})

		It("should provide the container environment of the client bundle", func() {
			env := tier.Connection().ContainerEnvironment()

			Expect(env).To(HaveKeyWithValue("DB_TYPE", jsii.String("MONGODB")))
			Expect(env).To(HaveKey("DB_CLIENT_PKCS12_ARN"))
		})
	})
})
