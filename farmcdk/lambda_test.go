package farmcdk_test

import (
	"path/filepath"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/jsii-runtime-go"
	"github.com/renderloft/farmgo/farmcdk"

	. "github.com/onsi/ginkgo/v2"
)

var _ = Describe("lambda creation", func() {
	var app awscdk.App
	var stack awscdk.Stack
	var code awslambda.AssetCode
	var cfg farmcdk.Config

	BeforeEach(func() {
		app = awscdk.NewApp(nil)
		cfg = farmcdk.NewStagingConfig()
		stack = awscdk.NewStack(app, jsii.String("Stack1"), nil)
		code = awslambda.AssetCode_FromAsset(jsii.String(
			filepath.Join("testdata", "pkg1.zip")), nil)
	})

	It("should create native lambda", func() {
		farmcdk.WithNativeLambda(stack, "Lambda1", cfg, code, nil, nil)

		tmpl := assertions.Template_FromStack(stack, nil)

		tmpl.ResourceCountIs(jsii.String("AWS::Lambda::Function"), jsii.Number(1))
		tmpl.ResourceCountIs(jsii.String("AWS::Logs::LogGroup"), jsii.Number(1))

		tmpl.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
			"Handler": jsii.String("bootstrap"),
			"Runtime": jsii.String("provided.al2023"),
			"Timeout": jsii.Number(60),
		})

		tmpl.HasResourceProperties(jsii.String("AWS::Logs::LogGroup"), map[string]any{
			"RetentionInDays": jsii.Number(5),
		})
	})

	It("should re-use provided logs", func() {
		logs := awslogs.NewLogGroup(stack, jsii.String("Logs1"), nil)
		farmcdk.WithNativeLambda(stack, "Lambda1", cfg, code, nil, logs)

		tmpl := assertions.Template_FromStack(stack, nil)

		tmpl.ResourceCountIs(jsii.String("AWS::Logs::LogGroup"), jsii.Number(1))
	})
})
