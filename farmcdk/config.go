package farmcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/jsii-runtime-go"
	"github.com/mitchellh/copystructure"
)

// Config describes the providing of resource configuration that is often convenient
// to be shared between branches of the resource tree.
type Config interface {
	Copy(opts ...ConfigOpt) Config

	LogRetention() awslogs.RetentionDays
	RemovalPolicy() awscdk.RemovalPolicy
	BackupRetention() awscdk.Duration
	LambdaTimeout() awscdk.Duration

	DatabaseInstanceType() awsec2.InstanceType
	KeyPairName() *string

	MainIPSpace() awsec2.IIpAddresses
	PrivateZoneName() *string
}

type config struct {
	LogRetentionVal    awslogs.RetentionDays `copy:"shallow"`
	RemovalPolicyVal   awscdk.RemovalPolicy  `copy:"shallow"`
	BackupRetentionVal awscdk.Duration       `copy:"shallow"`
	LambdaTimeoutVal   awscdk.Duration       `copy:"shallow"`

	DatabaseInstanceTypeVal awsec2.InstanceType `copy:"shallow"`
	KeyPairNameVal          *string

	MainIPSpaceVal     awsec2.IIpAddresses `copy:"shallow"`
	PrivateZoneNameVal *string
}

// ConfigOpt describes a configuration option.
type ConfigOpt func(*config)

// WithLogRetention config.
func WithLogRetention(v awslogs.RetentionDays) ConfigOpt {
	return func(c *config) { c.LogRetentionVal = v }
}

// WithRemovalPolicy config.
func WithRemovalPolicy(v awscdk.RemovalPolicy) ConfigOpt {
	return func(c *config) { c.RemovalPolicyVal = v }
}

// WithBackupRetention config.
func WithBackupRetention(v awscdk.Duration) ConfigOpt {
	return func(c *config) { c.BackupRetentionVal = v }
}

// WithLambdaTimeout config.
func WithLambdaTimeout(v awscdk.Duration) ConfigOpt {
	return func(c *config) { c.LambdaTimeoutVal = v }
}

// WithDatabaseInstanceType config.
func WithDatabaseInstanceType(v awsec2.InstanceType) ConfigOpt {
	return func(c *config) { c.DatabaseInstanceTypeVal = v }
}

// WithKeyPairName config.
func WithKeyPairName(v *string) ConfigOpt {
	return func(c *config) { c.KeyPairNameVal = v }
}

// WithMainIPSpace config.
func WithMainIPSpace(v awsec2.IIpAddresses) ConfigOpt {
	return func(c *config) { c.MainIPSpaceVal = v }
}

// WithPrivateZoneName config.
func WithPrivateZoneName(v *string) ConfigOpt {
	return func(c *config) { c.PrivateZoneNameVal = v }
}

// NewConfig initializes a config implementation given the provided values.
func NewConfig(opts ...ConfigOpt) Config {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}

	return cfg
}

// Copy returns a copy of the config while allowing certain options to be changed.
func (c config) Copy(opts ...ConfigOpt) Config {
	v, err := copystructure.Copy(c)
	if err != nil {
		panic("farmcdk: failed to deep copy: " + err.Error())
	}

	cfg, _ := v.(config)
	for _, o := range opts {
		o(&cfg)
	}

	return cfg
}

// LogRetention config.
func (c config) LogRetention() awslogs.RetentionDays { return c.LogRetentionVal }

// RemovalPolicy config.
func (c config) RemovalPolicy() awscdk.RemovalPolicy { return c.RemovalPolicyVal }

// BackupRetention config.
func (c config) BackupRetention() awscdk.Duration { return c.BackupRetentionVal }

// LambdaTimeout config.
func (c config) LambdaTimeout() awscdk.Duration { return c.LambdaTimeoutVal }

// DatabaseInstanceType config.
func (c config) DatabaseInstanceType() awsec2.InstanceType { return c.DatabaseInstanceTypeVal }

// KeyPairName config.
func (c config) KeyPairName() *string { return c.KeyPairNameVal }

// MainIPSpace config.
func (c config) MainIPSpace() awsec2.IIpAddresses { return c.MainIPSpaceVal }

// PrivateZoneName config.
func (c config) PrivateZoneName() *string { return c.PrivateZoneNameVal }

// backup retention in days for stateful resources. The provider default of just
// one day is too short to recover from a render-farm operator mistake.
const defaultBackupRetentionDays = 15

// NewStagingConfig provides a config that provides easy-to-use defaults for a staging environment.
// Stateful resources are destroyed with the stack so staging copies clean up completely.
func NewStagingConfig() Config {
	return NewConfig(
		WithLogRetention(awslogs.RetentionDays_FIVE_DAYS),
		WithRemovalPolicy(awscdk.RemovalPolicy_DESTROY),
		WithBackupRetention(awscdk.Duration_Days(jsii.Number(defaultBackupRetentionDays))),
		// certificate issuance and database commands can take a while on cold instances
		WithLambdaTimeout(awscdk.Duration_Minutes(jsii.Number(1))),
		WithDatabaseInstanceType(awsec2.InstanceType_Of(awsec2.InstanceClass_BURSTABLE3, awsec2.InstanceSize_MEDIUM)),
		WithPrivateZoneName(jsii.String("renderfarm.internal")),
	)
}

// NewProductionConfig provides a config with defaults for a production environment: stateful
// resources are retained when the stack is destroyed.
func NewProductionConfig() Config {
	return NewStagingConfig().Copy(
		WithLogRetention(awslogs.RetentionDays_ONE_MONTH),
		WithRemovalPolicy(awscdk.RemovalPolicy_RETAIN),
		WithDatabaseInstanceType(awsec2.InstanceType_Of(awsec2.InstanceClass_MEMORY5, awsec2.InstanceSize_LARGE)),
	)
}
