package farmcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// sub-set of the total interface for lambda config.
type lambdaConfig interface {
	LogRetention() awslogs.RetentionDays
	LambdaTimeout() awscdk.Duration
}

// WithNativeLambda creates a lambda for code that compiles natively (such as Go).
func WithNativeLambda(
	scope constructs.Construct,
	name ScopeName,
	cfg lambdaConfig,
	code awslambda.AssetCode,
	env *map[string]*string,
	logs awslogs.ILogGroup,
) awslambda.IFunction {
	scope = name.ChildScope(scope)

	if logs == nil {
		logs = awslogs.NewLogGroup(scope, jsii.String("Logs"), &awslogs.LogGroupProps{
			Retention: cfg.LogRetention(),
		})
	}

	return awslambda.NewFunction(scope, jsii.String("Handler"), &awslambda.FunctionProps{
		Code:         code,
		Handler:      jsii.String("bootstrap"),
		Runtime:      awslambda.Runtime_PROVIDED_AL2023(),
		Timeout:      cfg.LambdaTimeout(),
		Architecture: awslambda.Architecture_ARM_64(),

		LogGroup:    logs,
		Environment: env,
	})
}
