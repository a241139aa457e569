// Package certsresource implements the custom resources that issue X.509 certificate
// material and store it in Secrets Manager.
package certsresource

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

// resource types served by this handler. These must match what the farmcdk cert
// constructs declare.
const (
	PemResourceType    = "Custom::RenderFarmX509CertificatePem"
	Pkcs12ResourceType = "Custom::RenderFarmX509CertificatePkcs12"
)

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
type Config struct {
	// SecretNamePrefix prefixes the names of every secret this handler creates.
	SecretNamePrefix string `env:"SECRET_NAME_PREFIX" envDefault:"farm-x509/"`
}

// SecretsManager provides an interface for managing AWS secrets.
type SecretsManager interface {
	GetSecretValue(
		ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(
		ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.CreateSecretOutput, error)
	DeleteSecret(
		ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.DeleteSecretOutput, error)
}

// Handler handles custom resource requests for certificate material.
type Handler struct {
	cfg  Config
	logs *zap.Logger
	val  *validator.Validate
	smc  SecretsManager
}

// New inits the handler.
func New(
	cfg Config,
	logs *zap.Logger,

	smc SecretsManager,
) (*Handler, error) {
	return &Handler{
		cfg:  cfg,
		logs: logs,
		val:  validator.New(),
		smc:  smc,
	}, nil
}

// Handle lambda input.
func (h Handler) Handle(ctx context.Context, in Input) (out Output, err error) {
	defer func() { h.logs.Info("handled", zap.Any("output", out)) }()
	h.logs.Info("handle", zap.Any("input", in))

	switch in.ResourceType {
	case PemResourceType:
		var props PemProperties
		if err = h.decodeValidateProps(in.ResourceProperties, &props); err != nil {
			return errorf("failed to validate properties: %w", in, err)
		}

		h.logs.Info("with properties", zap.Any("properties", props))

		switch in.RequestType {
		case cfn.RequestCreate, cfn.RequestUpdate:
			// updates issue fresh material under a new physical id, CloudFormation
			// follows up with a Delete for the replaced resource
			return h.handlePemIssue(ctx, in, props)
		case cfn.RequestDelete:
			return h.handlePemDelete(ctx, in)
		default:
			return errorf("unsupported request type", in)
		}
	case Pkcs12ResourceType:
		var props Pkcs12Properties
		if err = h.decodeValidateProps(in.ResourceProperties, &props); err != nil {
			return errorf("failed to validate properties: %w", in, err)
		}

		h.logs.Info("with properties", zap.Any("properties", props))

		switch in.RequestType {
		case cfn.RequestCreate, cfn.RequestUpdate:
			return h.handlePkcs12Convert(ctx, in, props)
		case cfn.RequestDelete:
			return h.handlePkcs12Delete(ctx, in)
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
const moduleName = "certsresource"

// shared dependency setup.
func shared() fx.Option {
	return fx.Module("lambda/certsresource",
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		fx.Provide(fx.Annotate(New)),
		fx.Provide(fx.Annotate(secretsmanager.NewFromConfig, fx.As(new(SecretsManager)))),
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
