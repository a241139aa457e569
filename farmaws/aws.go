// Package farmaws provides the official AWS SDK (v2) configured through fx.
package farmaws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/renderloft/farmgo/farmconfig"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures this package.
type Config struct {
	// LoadConfigTimeout bounds the time given to config loading
	LoadConfigTimeout time.Duration `env:"LOAD_CONFIG_TIMEOUT" envDefault:"100ms"`
}

// New initializes an AWS config to be used to create clients for individual aws services.
func New(cfg Config, logs *zap.Logger) (acfg aws.Config, err error) {
	logs.Info("loading config", zap.Duration("timeout", cfg.LoadConfigTimeout))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.LoadConfigTimeout)
	defer cancel()

	if acfg, err = config.LoadDefaultConfig(ctx); err != nil {
		return acfg, fmt.Errorf("failed to load default config: %w", err)
	}

	return acfg, nil
}

// moduleName for naming conventions.
const moduleName = "farmaws"

// Provide configures the DI for providing aws connectivity.
func Provide() fx.Option {
	return fx.Module(moduleName,
		// the incoming logger will be named after the module
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		// provide the environment configuration
		farmconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		// provide the actual aws config
		fx.Provide(New),
	)
}
