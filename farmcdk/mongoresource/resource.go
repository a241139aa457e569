// Package mongoresource implements the post-install custom resource that creates the
// X.509 authenticated users on a freshly installed MongoDB instance.
package mongoresource

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/renderloft/farmgo/farmaws"
	"github.com/renderloft/farmgo/farmbuildinfo"
	"github.com/renderloft/farmgo/farmconfig"
	"github.com/renderloft/farmgo/farmlambda"
	"github.com/renderloft/farmgo/farmzap"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PostInstallResourceType served by this handler. Must match what the storagetier
// construct declares.
const PostInstallResourceType = "Custom::RenderFarmMongoDbPostInstall"

// Define the handling input output as described in the documentation of the "mini-framework":
// https://docs.aws.amazon.com/cdk/api/v2/python/aws_cdk.custom_resources/README.html#handling-lifecycle-events-onevent
type (
	// Input into the handler.
	Input cfn.Event
	// Output of the handler.
	Output struct {
		// The allocated/assigned physical ID of the resource. If omitted for Create events, the event's RequestId
		// will be used. For Update, the current physical ID will be used. If a different value is returned,
		// CloudFormation will follow with a subsequent Delete for the previous ID (resource replacement).
		// For Delete, it will always return the current physical resource ID, and if the user returns a different one,
		// an error will occur.
		PhysicalResourceID string `json:"PhysicalResourceId"`
		// Resource attributes, which can later be retrieved through Fn::GetAtt on the custom resource object.
		Data map[string]any `json:"Data"`
		// Whether to mask the output of the custom resource when retrieved by using the Fn::GetAtt function.
		NoEcho bool `json:"NoEcho"`
	}
)

// Config configures the handler from env.
type Config struct{}

// SecretsManager provides an interface for reading AWS secrets.
type SecretsManager interface {
	GetSecretValue(
		ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Handler handles post-install custom resource requests.
type Handler struct {
	cfg  Config
	logs *zap.Logger
	val  *validator.Validate
	smc  SecretsManager
	mdb  Connector
}

// New inits the handler.
func New(
	cfg Config,
	logs *zap.Logger,

	smc SecretsManager,
	mdb Connector,
) (*Handler, error) {
	return &Handler{
		cfg:  cfg,
		logs: logs,
		val:  validator.New(),
		smc:  smc,
		mdb:  mdb,
	}, nil
}

// Handle lambda input.
func (h Handler) Handle(ctx context.Context, in Input) (out Output, err error) {
	defer func() { h.logs.Info("handled", zap.Any("output", out)) }()
	h.logs.Info("handle", zap.Any("input", in))

	switch in.ResourceType {
	case PostInstallResourceType:
		var props PostInstallProperties
		if err = h.decodeValidateProps(in.ResourceProperties, &props); err != nil {
			return errorf("failed to validate properties: %w", in, err)
		}

		h.logs.Info("with properties", zap.Any("properties", props))

		switch in.RequestType {
		case cfn.RequestCreate:
			return h.handlePostInstallCreate(ctx, in, props)
		case cfn.RequestUpdate:
			var oldProps PostInstallProperties
			if err = h.decodeValidateProps(in.OldResourceProperties, &oldProps); err != nil {
				return errorf("failed to validate old properties: %w", in, err)
			}

			return h.handlePostInstallUpdate(ctx, in, props, oldProps)
		case cfn.RequestDelete:
			return h.handlePostInstallDelete(ctx, in, props)
		default:
			return errorf("unsupported request type", in)
		}
	default:
		return errorf("unsupported resource", in)
	}
}

// errorf returns a formatted error while referencing the resource type and request type.
func errorf(m string, in Input, v ...any) (Output, error) {
	return Output{PhysicalResourceID: in.PhysicalResourceID},
		fmt.Errorf("failed: '%s/%s': %w", in.ResourceType, in.RequestType, fmt.Errorf(m, v...)) //nolint:goerr113
}

// utility function that decodes properties into a struct and validates it.
func (h Handler) decodeValidateProps(propm map[string]any, v any) (err error) {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Metadata:   nil,
		Result:     v,
	})
	if err != nil {
		return fmt.Errorf("failed to init decoder: %w", err)
	}

	if err = dec.Decode(propm); err != nil {
		return fmt.Errorf("failed to decode properties: %w", err)
	}

	if err = h.val.Struct(v); err != nil {
		return fmt.Errorf("failed to validate properties: %w", err)
	}

	return
}

// moduleName for naming conventions.
const moduleName = "mongoresource"

// shared dependency setup.
func shared() fx.Option {
	return fx.Module("lambda/mongoresource",
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		fx.Provide(fx.Annotate(New)),
		fx.Provide(fx.Annotate(secretsmanager.NewFromConfig, fx.As(new(SecretsManager)))),
		fx.Provide(fx.Annotate(NewDriverConnector, fx.As(new(Connector)))),
		farmconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		fx.Provide(fx.Annotate(func(h *Handler) farmlambda.Handler[Input, Output] { return h },
			fx.As(new(farmlambda.Handler[Input, Output])))),
		farmaws.Provide(),
	)
}

// TestProvide dependency setup.
func TestProvide() fx.Option {
	return fx.Options(
		farmzap.Test(),
		shared(),
	)
}

// Provide dependency setup.
func Provide(version string) fx.Option {
	return fx.Options(
		farmbuildinfo.Provide(version),
		farmlambda.Lambda[Input, Output](shared()),
	)
}
