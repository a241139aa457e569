// Package storagetier declares the persistent-data layer of a render-farm deployment: a
// shared file system plus one of two database backends. Constructs here should hold
// everything worth keeping between deployments and little to no business logic.
package storagetier

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsefs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/renderloft/farmgo/farmcdk"
)

// StorageTier provides access to the constructs that persist render-farm data.
type StorageTier interface {
	// FileSystem holds the shared file system, e.g. to install the repository onto.
	FileSystem() awsefs.FileSystem
	// Connection returns the database connection, or nil for the base tier that
	// declares no database backend.
	Connection() DatabaseConnection
}

// tier implements StorageTier. The connection field is assigned at most once, by
// the backend variant that constructs it.
type tier struct {
	fileSystem awsefs.FileSystem
	connection DatabaseConnection
}

func (t *tier) FileSystem() awsefs.FileSystem  { return t.fileSystem }
func (t *tier) Connection() DatabaseConnection { return t.connection }

// NewStorageTier declares the base storage tier: a shared file system and no database.
func NewStorageTier(
	scope constructs.Construct,
	name farmcdk.ScopeName,
	cfg farmcdk.Config,
	vpc awsec2.IVpc,
) StorageTier {
	return newTier(name.ChildScope(scope), cfg, vpc)
}

func newTier(scope constructs.Construct, cfg farmcdk.Config, vpc awsec2.IVpc) *tier {
	fileSystem := awsefs.NewFileSystem(scope, jsii.String("FileSystem"), &awsefs.FileSystemProps{
		Vpc: vpc,
		// the configured removal policy decides whether farm data survives a stack
		// destroy, staging configs destroy while production retains.
		RemovalPolicy: cfg.RemovalPolicy(),
	})

	return &tier{fileSystem: fileSystem}
}
