package farmcdk

import (
	"path/filepath"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// certSecretArnPattern matches the secrets the certificate handler creates under its
// name prefix.
const certSecretArnPattern = "arn:aws:secretsmanager:*:*:secret:farm-x509/*"

// WithResourceProviders declares the custom-resource provider lambdas from their build
// assets and exports their service tokens under the conventional names, so instanced
// stacks can import them without holding a hard reference to the providers.
func WithResourceProviders(
	scope constructs.Construct,
	name ScopeName,
	cfg Config,
	conv Conventions,
	buildsDir string,
) {
	scope = name.ChildScope(scope)

	certs := WithNativeLambda(scope, "Certs", cfg,
		awslambda.AssetCode_FromAsset(jsii.String(
			filepath.Join(buildsDir, "certsresource", "pkg.zip")), nil), nil, nil)

	// the certificate handler owns every secret under its name prefix
	certs.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: jsii.Strings(
			"secretsmanager:CreateSecret",
			"secretsmanager:GetSecretValue",
			"secretsmanager:DeleteSecret"),
		Resources: jsii.Strings(certSecretArnPattern),
	}))

	mongo := WithNativeLambda(scope, "Mongo", cfg,
		awslambda.AssetCode_FromAsset(jsii.String(
			filepath.Join(buildsDir, "mongoresource", "pkg.zip")), nil), nil, nil)

	// the post-install handler reads client certificates and the generated admin
	// secrets of the instanced stacks, whose names are not known to this stack
	mongo.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("secretsmanager:GetSecretValue"),
		Resources: jsii.Strings("*"),
	}))

	awscdk.NewCfnOutput(scope, jsii.String("CertProviderToken"), &awscdk.CfnOutputProps{
		Value:      certs.FunctionArn(),
		ExportName: jsii.String(conv.CertProviderTokenExportName()),
	})

	awscdk.NewCfnOutput(scope, jsii.String("MongoProviderToken"), &awscdk.CfnOutputProps{
		Value:      mongo.FunctionArn(),
		ExportName: jsii.String(conv.MongoProviderTokenExportName()),
	})
}
