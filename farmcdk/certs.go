package farmcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// DistinguishedName holds the subject fields for an issued certificate.
type DistinguishedName struct {
	CommonName         string
	Organization       string
	OrganizationalUnit string
}

// X509CertificatePem provides an interface to retrieve information on an X.509
// certificate whose PEM material is held in Secrets Manager.
type X509CertificatePem interface {
	CertArn() *string
	KeyArn() *string
	PassphraseArn() *string
	CertSecret() awssecretsmanager.ISecret
}

// implements the pem certificate resource.
type x509CertificatePem struct {
	resource   awscdk.CustomResource
	certSecret awssecretsmanager.ISecret
}

func (c x509CertificatePem) CertArn() *string {
	return c.resource.GetAttString(jsii.String("CertArn"))
}

func (c x509CertificatePem) KeyArn() *string {
	return c.resource.GetAttString(jsii.String("KeyArn"))
}

func (c x509CertificatePem) PassphraseArn() *string {
	return c.resource.GetAttString(jsii.String("PassphraseArn"))
}

func (c x509CertificatePem) CertSecret() awssecretsmanager.ISecret { return c.certSecret }

// X509CertificatePkcs12 provides an interface to retrieve information on a PKCS#12
// bundle converted from a PEM certificate.
type X509CertificatePkcs12 interface {
	BundleArn() *string
	PassphraseArn() *string
	BundleSecret() awssecretsmanager.ISecret
}

// implements the pkcs12 certificate resource.
type x509CertificatePkcs12 struct {
	resource     awscdk.CustomResource
	bundleSecret awssecretsmanager.ISecret
}

func (c x509CertificatePkcs12) BundleArn() *string {
	return c.resource.GetAttString(jsii.String("BundleArn"))
}

func (c x509CertificatePkcs12) PassphraseArn() *string {
	return c.resource.GetAttString(jsii.String("PassphraseArn"))
}

func (c x509CertificatePkcs12) BundleSecret() awssecretsmanager.ISecret { return c.bundleSecret }

// PemResourceType is the CloudFormation resource type of pem certificates served
// by the certsresource handler.
const PemResourceType = "Custom::RenderFarmX509CertificatePem"

// Pkcs12ResourceType is the CloudFormation resource type of pkcs12 conversions served
// by the certsresource handler.
const Pkcs12ResourceType = "Custom::RenderFarmX509CertificatePkcs12"

// WithRootCA declares a self-signed root certificate authority. The material is generated
// by the certsresource provider and stored as Secrets Manager secrets.
func WithRootCA(
	scope constructs.Construct,
	name ScopeName,
	providerToken *string,
	subject DistinguishedName,
) X509CertificatePem {
	return withPemCertificate(scope, name, providerToken, subject, nil)
}

// WithSignedCertificate declares an X.509 certificate signed by the supplied authority.
func WithSignedCertificate(
	scope constructs.Construct,
	name ScopeName,
	providerToken *string,
	subject DistinguishedName,
	signer X509CertificatePem,
) X509CertificatePem {
	return withPemCertificate(scope, name, providerToken, subject, signer)
}

func withPemCertificate(
	scope constructs.Construct,
	name ScopeName,
	providerToken *string,
	subject DistinguishedName,
	signer X509CertificatePem,
) X509CertificatePem {
	scope = name.ChildScope(scope)

	props := map[string]any{
		"Subject": map[string]any{
			"CommonName":         subject.CommonName,
			"Organization":       subject.Organization,
			"OrganizationalUnit": subject.OrganizationalUnit,
		},
	}

	if signer != nil {
		props["SigningCertArn"] = *signer.CertArn()
		props["SigningKeyArn"] = *signer.KeyArn()
	}

	cert := awscdk.NewCustomResource(scope,
		jsii.String("Cert"), &awscdk.CustomResourceProps{
			ServiceToken: providerToken,
			ResourceType: jsii.String(PemResourceType),
			Properties:   &props,
		})

	secret := awssecretsmanager.Secret_FromSecretCompleteArn(scope, jsii.String("CertSecret"),
		cert.GetAttString(jsii.String("CertArn")))

	return x509CertificatePem{resource: cert, certSecret: secret}
}

// WithPkcs12Certificate declares the conversion of a PEM certificate into a passphrase
// protected PKCS#12 bundle, for clients that require the bundled format.
func WithPkcs12Certificate(
	scope constructs.Construct,
	name ScopeName,
	providerToken *string,
	source X509CertificatePem,
) X509CertificatePkcs12 {
	scope = name.ChildScope(scope)

	bundle := awscdk.NewCustomResource(scope,
		jsii.String("Pkcs12"), &awscdk.CustomResourceProps{
			ServiceToken: providerToken,
			ResourceType: jsii.String(Pkcs12ResourceType),
			Properties: &map[string]any{
				"SourceCertArn":       *source.CertArn(),
				"SourceKeyArn":        *source.KeyArn(),
				"SourcePassphraseArn": *source.PassphraseArn(),
			},
		})

	secret := awssecretsmanager.Secret_FromSecretCompleteArn(scope, jsii.String("BundleSecret"),
		bundle.GetAttString(jsii.String("BundleArn")))

	return x509CertificatePkcs12{resource: bundle, bundleSecret: secret}
}
