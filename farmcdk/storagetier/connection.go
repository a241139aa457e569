package storagetier

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdocdb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/jsii-runtime-go"
	"github.com/renderloft/farmgo/farmcdk"
)

// DatabaseConnection abstracts over the database backend so sibling stacks can wire
// application workloads to the storage tier without knowing which backend was chosen.
type DatabaseConnection interface {
	// Endpoint is the hostname that clients connect to.
	Endpoint() *string
	// Port that clients connect to.
	Port() *float64
	// ContainerEnvironment returns the environment variables an application
	// container needs to reach the database.
	ContainerEnvironment() map[string]*string
	// AllowConnectionsFrom opens the database port to the given connectable.
	AllowConnectionsFrom(other awsec2.IConnectable)
	// GrantRead grants read access on the connection credential material.
	GrantRead(grantee awsiam.IGrantable)
}

// forDocDB wraps a DocumentDB cluster and its generated login secret.
func forDocDB(cluster awsdocdb.DatabaseCluster, login awssecretsmanager.ISecret) DatabaseConnection {
	return docdbConnection{cluster: cluster, login: login}
}

type docdbConnection struct {
	cluster awsdocdb.DatabaseCluster
	login   awssecretsmanager.ISecret
}

func (c docdbConnection) Endpoint() *string {
	return c.cluster.ClusterEndpoint().Hostname()
}

func (c docdbConnection) Port() *float64 {
	return c.cluster.ClusterEndpoint().Port()
}

func (c docdbConnection) ContainerEnvironment() map[string]*string {
	return map[string]*string{
		"DB_TYPE":       jsii.String("DOCDB"),
		"DB_HOST":       c.cluster.ClusterEndpoint().Hostname(),
		"DB_PORT":       c.cluster.ClusterEndpoint().PortAsString(),
		"DB_SECRET_ARN": c.login.SecretArn(),
	}
}

func (c docdbConnection) AllowConnectionsFrom(other awsec2.IConnectable) {
	c.cluster.Connections().AllowDefaultPortFrom(other, jsii.String("allow database access"))
}

func (c docdbConnection) GrantRead(grantee awsiam.IGrantable) {
	c.login.GrantRead(grantee, nil)
}

// forMongoDbInstance wraps a self-managed MongoDB instance and the PKCS#12 client
// certificate bundle that authenticates against it.
func forMongoDbInstance(instance MongoDbInstance, clientCert farmcdk.X509CertificatePkcs12) DatabaseConnection {
	return mongoConnection{instance: instance, clientCert: clientCert}
}

type mongoConnection struct {
	instance   MongoDbInstance
	clientCert farmcdk.X509CertificatePkcs12
}

func (c mongoConnection) Endpoint() *string {
	return c.instance.Hostname()
}

func (c mongoConnection) Port() *float64 {
	return jsii.Number(MongoPort)
}

func (c mongoConnection) ContainerEnvironment() map[string]*string {
	return map[string]*string{
		"DB_TYPE":              jsii.String("MONGODB"),
		"DB_HOST":              c.instance.Hostname(),
		"DB_PORT":              jsii.String("27017"),
		"DB_CLIENT_PKCS12_ARN": c.clientCert.BundleArn(),
	}
}

func (c mongoConnection) AllowConnectionsFrom(other awsec2.IConnectable) {
	c.instance.Connections().AllowFrom(other,
		awsec2.Port_Tcp(jsii.Number(MongoPort)), jsii.String("allow database access"))
}

func (c mongoConnection) GrantRead(grantee awsiam.IGrantable) {
	c.clientCert.BundleSecret().GrantRead(grantee, nil)
}
