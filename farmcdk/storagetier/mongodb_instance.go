package storagetier

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/renderloft/farmgo/farmcdk"
)

// MongoPort is the port mongod listens on.
const MongoPort = 27017

// mongoHostname is the record name the instance registers under the private zone.
const mongoHostname = "mongo"

// MongoDbInstance provides an interface to retrieve information on a self-managed
// MongoDB database running on a single EC2 instance.
type MongoDbInstance interface {
	// Hostname under the private zone that resolves to the instance.
	Hostname() *string
	// AdminSecret holds the generated credentials of the database admin user.
	AdminSecret() awssecretsmanager.ISecret
	// Connections of the instance, to manage network access to the database.
	Connections() awsec2.Connections
}

type mongoDbInstance struct {
	instance    awsec2.Instance
	record      awsroute53.ARecord
	adminSecret awssecretsmanager.ISecret
	hostname    *string
}

func (m mongoDbInstance) Hostname() *string                      { return m.hostname }
func (m mongoDbInstance) AdminSecret() awssecretsmanager.ISecret { return m.adminSecret }
func (m mongoDbInstance) Connections() awsec2.Connections        { return m.instance.Connections() }

// withMongoDbInstance declares the EC2 instance running mongod, scoped to a single
// availability zone so the instance and its data volume stay co-located, together with
// its DNS record, admin credential secret and security group.
func withMongoDbInstance(
	scope constructs.Construct,
	name farmcdk.ScopeName,
	cfg farmcdk.Config,
	vpc awsec2.IVpc,
	zone awsroute53.IPrivateHostedZone,
	serverCert farmcdk.X509CertificatePem,
	availabilityZone *string,
) MongoDbInstance {
	scope = name.ChildScope(scope)
	con := mongoDbInstance{}
	con.hostname = jsii.String(mongoHostname + "." + *zone.ZoneName())

	con.adminSecret = awssecretsmanager.NewSecret(scope, jsii.String("AdminSecret"),
		&awssecretsmanager.SecretProps{
			Description: jsii.String("admin credentials of the mongodb instance"),
			GenerateSecretString: &awssecretsmanager.SecretStringGenerator{
				SecretStringTemplate: jsii.String(`{"username":"admin"}`),
				GenerateStringKey:    jsii.String("password"),
				ExcludeCharacters:    jsii.String(`"@/\`),
			},
			RemovalPolicy: cfg.RemovalPolicy(),
		})

	securityGroup := awsec2.NewSecurityGroup(scope, jsii.String("SecurityGroup"), &awsec2.SecurityGroupProps{
		Vpc:              vpc,
		AllowAllOutbound: jsii.Bool(true),
	})

	securityGroup.AddIngressRule(
		awsec2.Peer_Ipv4(vpc.VpcCidrBlock()),
		awsec2.Port_Tcp(jsii.Number(MongoPort)),
		jsii.String("allow mongodb access from within the vpc"), jsii.Bool(false))

	con.instance = awsec2.NewInstance(scope, jsii.String("Instance"), &awsec2.InstanceProps{
		Vpc: vpc,
		VpcSubnets: &awsec2.SubnetSelection{
			SubnetType:        awsec2.SubnetType_PRIVATE_WITH_EGRESS,
			AvailabilityZones: &[]*string{availabilityZone},
		},
		InstanceType:  cfg.DatabaseInstanceType(),
		MachineImage:  awsec2.MachineImage_LatestAmazonLinux2(nil),
		SecurityGroup: securityGroup,
		KeyName:       cfg.KeyPairName(),
		UserData:      mongoUserData(serverCert, con.adminSecret),
	})

	// the boot script reads certificate material and admin credentials
	serverCert.CertSecret().GrantRead(con.instance, nil)
	con.adminSecret.GrantRead(con.instance, nil)

	con.record = awsroute53.NewARecord(scope, jsii.String("DnsRecord"), &awsroute53.ARecordProps{
		Zone:       zone,
		RecordName: jsii.String(mongoHostname),
		Target:     awsroute53.RecordTarget_FromIpAddresses(con.instance.InstancePrivateIp()),
	})

	return con
}

// mongoUserData renders the boot script that installs mongod, fetches the server
// certificate material and enables TLS with X.509 client authentication.
func mongoUserData(serverCert farmcdk.X509CertificatePem, adminSecret awssecretsmanager.ISecret) awsec2.UserData {
	userData := awsec2.UserData_ForLinux(nil)
	userData.AddCommands(
		jsii.String(`cat <<EOF > /etc/yum.repos.d/mongodb-org-3.6.repo
[mongodb-org-3.6]
name=MongoDB Repository
baseurl=https://repo.mongodb.org/yum/amazon/2/mongodb-org/3.6/x86_64/
gpgcheck=1
enabled=1
gpgkey=https://www.mongodb.org/static/pgp/server-3.6.asc
EOF`),
		jsii.String(`yum install -y mongodb-org awscli jq`),
		jsii.String(`mkdir -p /etc/mongod-tls`),
		jsii.String(fmt.Sprintf(
			`aws secretsmanager get-secret-value --secret-id %s --query SecretString --output text > /etc/mongod-tls/server.pem`,
			*serverCert.CertArn())),
		jsii.String(fmt.Sprintf(
			`aws secretsmanager get-secret-value --secret-id %s --query SecretString --output text >> /etc/mongod-tls/server.pem`,
			*serverCert.KeyArn())),
		jsii.String(`chmod 600 /etc/mongod-tls/server.pem`),
		jsii.String(fmt.Sprintf(
			`ADMIN_SECRET=$(aws secretsmanager get-secret-value --secret-id %s --query SecretString --output text)`,
			*adminSecret.SecretArn())),
		jsii.String(`cat <<EOF > /etc/mongod.conf
net:
  port: 27017
  bindIp: 0.0.0.0
  ssl:
    mode: requireSSL
    PEMKeyFile: /etc/mongod-tls/server.pem
security:
  authorization: enabled
storage:
  dbPath: /var/lib/mongo
EOF`),
		jsii.String(`systemctl enable mongod`),
		jsii.String(`systemctl start mongod`),
		// create the admin user over the localhost exception before auth kicks in fully
		jsii.String(`mongo --ssl --sslAllowInvalidCertificates admin --eval "db.createUser({`+
			`user: $(echo $ADMIN_SECRET | jq .username), pwd: $(echo $ADMIN_SECRET | jq .password), `+
			`roles: [{role: 'root', db: 'admin'}]})"`),
	)

	return userData
}
