package farmcdk_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/jsii-runtime-go"
	"github.com/renderloft/farmgo/farmcdk"

	. "github.com/onsi/ginkgo/v2"
)

var _ = Describe("network creation", func() {
	var app awscdk.App
	var stack awscdk.Stack
	var cfg farmcdk.Config

	BeforeEach(func() {
		app = awscdk.NewApp(nil)
		cfg = farmcdk.NewStagingConfig()
		cfg = cfg.Copy(farmcdk.WithMainIPSpace(awsec2.IpAddresses_Cidr(jsii.String(`100.0.0.0/16`))))
		stack = awscdk.NewStack(app, jsii.String("Stack1"), nil)
	})

	It("should create network", func() {
		farmcdk.WithNetwork(stack, "Network1", cfg)

		tmpl := assertions.Template_FromStack(stack, nil)

		tmpl.ResourceCountIs(jsii.String("AWS::EC2::VPC"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::EC2::NatGateway"), jsii.Number(1))

		tmpl.HasResourceProperties(jsii.String("AWS::EC2::VPC"), map[string]any{
			"CidrBlock": jsii.String(`100.0.0.0/16`),
			"Tags": []map[string]any{
				{
					"Key":   jsii.String("Name"),
					"Value": jsii.String("Stack1Network1"),
				},
			},
		})
	})

	It("should create a private zone on the vpc", func() {
		vpc := farmcdk.WithNetwork(stack, "Network1", cfg)
		farmcdk.WithPrivateZone(stack, "Dns1", cfg, vpc)

		tmpl := assertions.Template_FromStack(stack, nil)

		tmpl.ResourceCountIs(jsii.String("AWS::Route53::HostedZone"), jsii.Number(1))
		tmpl.HasResourceProperties(jsii.String("AWS::Route53::HostedZone"), map[string]any{
			"Name": jsii.String("renderfarm.internal."),
		})
	})
})
