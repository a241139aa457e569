package storagetier

import (
	"encoding/json"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/renderloft/farmgo/farmcdk"
	"github.com/samber/lo"
)

// SsplLicenseAcceptance records whether the user accepts the terms of the SSPL that
// MongoDB Community Edition is distributed under. The instance cannot be declared
// without explicit acceptance.
type SsplLicenseAcceptance int

const (
	// SsplUserRejectsLicense is the default, declaring the MongoDB backend fails.
	SsplUserRejectsLicense SsplLicenseAcceptance = iota
	// SsplUserAcceptsLicense declares that the user accepts the SSPL terms.
	SsplUserAcceptsLicense
)

// PostInstallResourceType is the CloudFormation resource type of the post-install
// step served by the mongoresource handler.
const PostInstallResourceType = "Custom::RenderFarmMongoDbPostInstall"

// MongoRole is a single role grant in the post-install payload.
type MongoRole struct {
	Role string `json:"role"`
	DB   string `json:"db"`
}

// NewMongoDBStorageTier declares a storage tier backed by a self-managed MongoDB
// instance with mutual TLS. It issues the server and client certificates off the
// supplied root authority, places the instance in a single availability zone under
// the private zone's DNS name and grants the client certificate identity its
// administrative roles through a post-install step. The connection handle wraps the
// instance and the PKCS#12 client certificate bundle.
func NewMongoDBStorageTier(
	scope constructs.Construct,
	name farmcdk.ScopeName,
	cfg farmcdk.Config,
	vpc awsec2.IVpc,
	zone awsroute53.IPrivateHostedZone,
	rootCA farmcdk.X509CertificatePem,
	certProviderToken *string,
	mongoProviderToken *string,
	acceptance SsplLicenseAcceptance,
) StorageTier {
	if acceptance != SsplUserAcceptsLicense {
		panic("storagetier: the MongoDB backend requires explicit acceptance of the SSPL license terms")
	}

	scope = name.ChildScope(scope)
	con := newTier(scope, cfg, vpc)

	serverCert := farmcdk.WithSignedCertificate(scope, "ServerCert", certProviderToken,
		farmcdk.DistinguishedName{
			CommonName:         mongoHostname + "." + *zone.ZoneName(),
			Organization:       "RenderLoft",
			OrganizationalUnit: "MongoServer",
		}, rootCA)

	clientCert := farmcdk.WithSignedCertificate(scope, "ClientCert", certProviderToken,
		farmcdk.DistinguishedName{
			CommonName:         "FarmClient",
			Organization:       "RenderLoft",
			OrganizationalUnit: "MongoClient",
		}, rootCA)

	// the farm application consumes the client certificate in the bundled format
	clientPkcs12 := farmcdk.WithPkcs12Certificate(scope, "ClientPkcs12", certProviderToken, clientCert)

	// a single-instance database keeps its instance and data in one zone
	availabilityZone := (*vpc.AvailabilityZones())[0]

	mongo := withMongoDbInstance(scope, "MongoDb", cfg, vpc, zone, serverCert, availabilityZone)

	withMongoPostInstall(scope, "PostInstall", mongoProviderToken, mongo, clientCert, []MongoRole{
		{Role: "readWriteAnyDatabase", DB: "admin"},
		{Role: "clusterMonitor", DB: "admin"},
	})

	con.connection = forMongoDbInstance(mongo, clientPkcs12)

	return con
}

// withMongoPostInstall declares the post-install step that creates the X.509
// authenticated users on the freshly installed database.
func withMongoPostInstall(
	scope constructs.Construct,
	name farmcdk.ScopeName,
	providerToken *string,
	instance MongoDbInstance,
	clientCert farmcdk.X509CertificatePem,
	roles []MongoRole,
) awscdk.CustomResource {
	scope = name.ChildScope(scope)

	return awscdk.NewCustomResource(scope,
		jsii.String("PostInstall"), &awscdk.CustomResourceProps{
			ServiceToken: providerToken,
			ResourceType: jsii.String(PostInstallResourceType),
			Properties: &map[string]any{
				"AdminSecretArn": *instance.AdminSecret().SecretArn(),
				"Hostname":       *instance.Hostname(),
				"Port":           MongoPort,
				"Users": []any{
					map[string]any{
						"CertArn": *clientCert.CertArn(),
						"Roles":   string(lo.Must(json.Marshal(roles))),
					},
				},
			},
		})
}
