package farmcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// WithNetwork sets up our vpc and other networking.
func WithNetwork(
	scope constructs.Construct,
	name ScopeName,
	cfg Config,
) awsec2.IVpc {
	const maxAzs = 2

	vpc := awsec2.NewVpc(scope, jsii.String("Vpc"), &awsec2.VpcProps{
		MaxAzs:      jsii.Number(maxAzs), // two is enough, a render farm rarely needs more spread
		NatGateways: jsii.Number(1),      // database instances live in private subnets and need egress for installs
		IpAddresses: cfg.MainIPSpace(),
		VpcName:     jsii.String(*awscdk.Stack_Of(scope).StackName() + string(name)),
	})

	return vpc
}

// WithPrivateZone sets up the internal DNS zone that database hosts register under. Records
// in this zone only resolve from within the vpc.
func WithPrivateZone(
	scope constructs.Construct,
	name ScopeName,
	cfg Config,
	vpc awsec2.IVpc,
) awsroute53.IPrivateHostedZone {
	scope = name.ChildScope(scope)

	return awsroute53.NewPrivateHostedZone(scope, jsii.String("Zone"),
		&awsroute53.PrivateHostedZoneProps{
			Vpc:      vpc,
			ZoneName: cfg.PrivateZoneName(),
		})
}
