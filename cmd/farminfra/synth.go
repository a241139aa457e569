package main

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/jsii-runtime-go"
	"github.com/caarlos0/env/v11"
	"github.com/renderloft/farmgo/farmcdk"
	"github.com/renderloft/farmgo/farmcdk/storagetier"
	"github.com/spf13/cobra"
)

// Config for the deployment, read from FARMINFRA_ prefixed environment variables.
type Config struct {
	// Qualifier distinguishes this deployment's stacks and exports.
	Qualifier string `env:"QUALIFIER" envDefault:"RenderFarm"`
	// MainRegion the deployment is homed in.
	MainRegion string `env:"MAIN_REGION" envDefault:"eu-west-1"`
	// Account that the deployment is deployed to.
	Account string `env:"ACCOUNT,required"`
	// Environment selects the resource configuration, staging or production.
	Environment string `env:"ENVIRONMENT" envDefault:"staging"`
	// MainIPSpace allocated to the deployment's vpc.
	MainIPSpace string `env:"MAIN_IP_SPACE" envDefault:"10.0.0.0/16"`
	// Backend selects the database backend: base, docdb or mongodb.
	Backend string `env:"STORAGE_BACKEND" envDefault:"docdb"`
	// KeyPairName optionally allows ssh access to self-managed database instances.
	KeyPairName string `env:"KEY_PAIR_NAME"`
	// AcceptSsplLicense records acceptance of the SSPL terms that MongoDB Community
	// Edition is distributed under, required for the mongodb backend.
	AcceptSsplLicense bool `env:"ACCEPT_SSPL_LICENSE"`
	// BuildsDir holds the packaged custom-resource provider lambdas.
	BuildsDir string `env:"BUILDS_DIR" envDefault:"farmcdk/builds"`
}

func newSynthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "synth",
		Short: "Synthesize the deployment's CloudFormation templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "FARMINFRA_"})
			if err != nil {
				return fmt.Errorf("failed to parse configuration: %w", err)
			}

			app := awscdk.NewApp(nil)
			if err := declareDeployment(app, cfg); err != nil {
				return err
			}

			app.Synth(nil)

			return nil
		},
	}
}

// declareDeployment declares the full deployment on the app.
func declareDeployment(app awscdk.App, cfg Config) error {
	ccfg, err := resourceConfig(cfg)
	if err != nil {
		return err
	}

	conv := farmcdk.NewConventions(cfg.Qualifier, cfg.MainRegion)

	// the mongodb backend consumes custom resources, so it needs the providers stack
	// that serves them and exports their service tokens
	if cfg.Backend == "mongodb" {
		providers := awscdk.NewStack(app, jsii.String(conv.ProvidersStackName()), &awscdk.StackProps{
			Env: &awscdk.Environment{
				Account: jsii.String(cfg.Account),
				Region:  jsii.String(cfg.MainRegion),
			},
		})
		farmcdk.WithResourceProviders(providers, "Providers", ccfg, conv, cfg.BuildsDir)
	}

	stack := farmcdk.NewInstancedStack(app, conv, cfg.Account)

	vpc := farmcdk.WithNetwork(stack, "Network", ccfg)
	zone := farmcdk.WithPrivateZone(stack, "Dns", ccfg, vpc)

	tier, err := declareStorageTier(stack, cfg, ccfg, conv, vpc, zone)
	if err != nil {
		return err
	}

	farmcdk.ExportValue(stack, tier.FileSystem().FileSystemId())
	// also publish the file system id through the parameter store, for tooling that
	// reads it without taking a hard dependency on this stack
	farmcdk.WeakExportAttribute(stack, tier.FileSystem(), "FileSystemId")

	if con := tier.Connection(); con != nil {
		farmcdk.ExportValue(stack, con.Endpoint())
		farmcdk.ExportValue(stack, con.Port())
	}

	return nil
}

// declareStorageTier declares the configured storage tier variant.
func declareStorageTier(
	stack awscdk.Stack,
	cfg Config,
	ccfg farmcdk.Config,
	conv farmcdk.Conventions,
	vpc awsec2.IVpc,
	zone awsroute53.IPrivateHostedZone,
) (storagetier.StorageTier, error) {
	switch cfg.Backend {
	case "base":
		return storagetier.NewStorageTier(stack, "Storage", ccfg, vpc), nil
	case "docdb":
		return storagetier.NewDocDBStorageTier(stack, "Storage", ccfg, vpc), nil
	case "mongodb":
		certToken := awscdk.Fn_ImportValue(jsii.String(conv.CertProviderTokenExportName()))
		mongoToken := awscdk.Fn_ImportValue(jsii.String(conv.MongoProviderTokenExportName()))

		rootCA := farmcdk.WithRootCA(stack, "RootCA", certToken, farmcdk.DistinguishedName{
			CommonName:   "RenderFarmRootCA",
			Organization: "RenderLoft",
		})

		acceptance := storagetier.SsplUserRejectsLicense
		if cfg.AcceptSsplLicense {
			acceptance = storagetier.SsplUserAcceptsLicense
		}

		return storagetier.NewMongoDBStorageTier(stack, "Storage", ccfg, vpc,
			zone, rootCA, certToken, mongoToken, acceptance), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend) //nolint:goerr113
	}
}

// resourceConfig builds the resource configuration for the selected environment.
func resourceConfig(cfg Config) (farmcdk.Config, error) {
	var ccfg farmcdk.Config

	switch cfg.Environment {
	case "staging":
		ccfg = farmcdk.NewStagingConfig()
	case "production":
		ccfg = farmcdk.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unsupported environment: %s", cfg.Environment) //nolint:goerr113
	}

	opts := []farmcdk.ConfigOpt{
		farmcdk.WithMainIPSpace(awsec2.IpAddresses_Cidr(jsii.String(cfg.MainIPSpace))),
	}

	if cfg.KeyPairName != "" {
		opts = append(opts, farmcdk.WithKeyPairName(jsii.String(cfg.KeyPairName)))
	}

	return ccfg.Copy(opts...), nil
}
