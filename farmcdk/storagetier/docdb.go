package storagetier

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdocdb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/renderloft/farmgo/farmcdk"
)

// docDBEngineVersion is pinned, the farm software is validated against this release.
const docDBEngineVersion = "3.6.0"

// NewDocDBStorageTier declares a storage tier backed by a managed DocumentDB cluster. The
// connection handle wraps the cluster and its generated login secret.
func NewDocDBStorageTier(
	scope constructs.Construct,
	name farmcdk.ScopeName,
	cfg farmcdk.Config,
	vpc awsec2.IVpc,
) StorageTier {
	scope = name.ChildScope(scope)
	con := newTier(scope, cfg, vpc)

	cluster := awsdocdb.NewDatabaseCluster(scope, jsii.String("DocDbCluster"), &awsdocdb.DatabaseClusterProps{
		Vpc:          vpc,
		VpcSubnets:   &awsec2.SubnetSelection{SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS},
		InstanceType: cfg.DatabaseInstanceType(),

		// a single instance keeps cost down, bump to at least 2 for a farm that
		// cannot tolerate a short database failover window.
		Instances:     jsii.Number(1),
		MasterUser:    &awsdocdb.Login{Username: jsii.String("adminuser")},
		EngineVersion: jsii.String(docDBEngineVersion),

		Backup:        &awsdocdb.BackupProps{Retention: cfg.BackupRetention()},
		RemovalPolicy: cfg.RemovalPolicy(),
	})

	con.connection = forDocDB(cluster, cluster.Secret())

	return con
}
