package certsresource_test

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"strings"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/renderloft/farmgo/farmcdk/certsresource"
	"github.com/stretchr/testify/mock"
	"go.uber.org/fx"
	"go.uber.org/zap/zaptest/observer"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("pem certificates", func() {
	var obs *observer.ObservedLogs
	var hdl *certsresource.Handler
	var msm *MockSecretsManager

	BeforeEach(func(ctx context.Context) {
		app := fx.New(
			fx.Populate(&hdl, &obs),
			WithMocked(&msm),
			certsresource.TestProvide())
		Expect(app.Start(ctx)).To(Succeed())
		DeferCleanup(app.Stop)
	})

	DescribeTable("validation", func(ctx context.Context, in certsresource.Input, expErr, expResp OmegaMatcher) {
		resp, err := hdl.Handle(ctx, in)
		Expect(err).To(expErr)
		Expect(resp).To(expResp)
	},
		Entry(`unsupported resource`, certsresource.Input{},
			MatchError(MatchRegexp(`unsupported resource`)), Equal(certsresource.Output{})),

		Entry(`validate required subject`, certsresource.Input{
			ResourceType: "Custom::RenderFarmX509CertificatePem",
			ResourceProperties: map[string]any{
				"Subject": map[string]any{},
			},
		}, MatchError(MatchRegexp(`'CommonName' failed on the 'required' tag`)), Equal(certsresource.Output{})),

		Entry(`validate signing arns come together`, certsresource.Input{
			ResourceType: "Custom::RenderFarmX509CertificatePem",
			ResourceProperties: map[string]any{
				"Subject":        map[string]any{"CommonName": "Foo"},
				"SigningCertArn": "arn:some:cert",
			},
		}, MatchError(MatchRegexp(`required_with`)), Equal(certsresource.Output{})),

		Entry(`invalid request type`, certsresource.Input{
			ResourceType: "Custom::RenderFarmX509CertificatePem",
			ResourceProperties: map[string]any{
				"Subject": map[string]any{"CommonName": "Foo"},
			},
		}, MatchError(MatchRegexp(`unsupported request type`)), Equal(certsresource.Output{})),

		Entry(`validate pkcs12 sources`, certsresource.Input{
			ResourceType: "Custom::RenderFarmX509CertificatePkcs12",
		}, MatchError(MatchRegexp(`'SourceCertArn' failed on the 'required' tag`)), Equal(certsresource.Output{})),
	)

	It("should issue a self-signed authority", func(ctx context.Context) {
		values := expectCreatedSecrets(msm, "cert", "key", "passphrase")

		out, err := hdl.Handle(ctx, certsresource.Input{
			ResourceType: "Custom::RenderFarmX509CertificatePem",
			RequestType:  cfn.RequestCreate,
			ResourceProperties: map[string]any{
				"Subject": map[string]any{
					"CommonName":   "RenderFarmRootCA",
					"Organization": "RenderLoft",
				},
			},
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(out.PhysicalResourceID).To(HavePrefix("x509-"))
		Expect(out.Data).To(Equal(map[string]any{
			"CertArn":       "arn:secret:cert",
			"KeyArn":        "arn:secret:key",
			"PassphraseArn": "arn:secret:passphrase",
		}))

		cert := parseCertificate(values["cert"])
		Expect(cert.IsCA).To(BeTrue())
		Expect(cert.Subject.CommonName).To(Equal("RenderFarmRootCA"))
		Expect(cert.Subject.Organization).To(Equal([]string{"RenderLoft"}))
		Expect(cert.CheckSignatureFrom(cert)).To(Succeed())

		Expect(obs.FilterMessage("issued certificate").Len()).To(Equal(1))
	})

	It("should issue a leaf signed by the authority", func(ctx context.Context) {
		By("issuing the authority first")
		caValues := expectCreatedSecrets(msm, "cert", "key", "passphrase")

		_, err := hdl.Handle(ctx, certsresource.Input{
			ResourceType: "Custom::RenderFarmX509CertificatePem",
			RequestType:  cfn.RequestCreate,
			ResourceProperties: map[string]any{
				"Subject": map[string]any{"CommonName": "RenderFarmRootCA"},
			},
		})
		Expect(err).ToNot(HaveOccurred())

		By("issuing the leaf off the authority's material")
		expectSecretValue(msm, "arn:secret:cert", caValues["cert"])
		expectSecretValue(msm, "arn:secret:key", caValues["key"])
		leafValues := expectCreatedSecrets(msm, "cert", "key", "passphrase")

		out, err := hdl.Handle(ctx, certsresource.Input{
			ResourceType: "Custom::RenderFarmX509CertificatePem",
			RequestType:  cfn.RequestCreate,
			ResourceProperties: map[string]any{
				"Subject": map[string]any{
					"CommonName":         "mongo.renderfarm.internal",
					"OrganizationalUnit": "MongoServer",
				},
				"SigningCertArn": "arn:secret:cert",
				"SigningKeyArn":  "arn:secret:key",
			},
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(out.PhysicalResourceID).To(HavePrefix("x509-"))

		caCert := parseCertificate(caValues["cert"])
		leaf := parseCertificate(leafValues["cert"])

		Expect(leaf.IsCA).To(BeFalse())
		Expect(leaf.CheckSignatureFrom(caCert)).To(Succeed())
		Expect(leaf.DNSNames).To(ContainElement("mongo.renderfarm.internal"))
		Expect(leaf.ExtKeyUsage).To(ContainElements(x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth))
	})

	It("should replace material on update under a new physical id", func(ctx context.Context) {
		expectCreatedSecrets(msm, "cert", "key", "passphrase")

		out, err := hdl.Handle(ctx, certsresource.Input{
			PhysicalResourceID: "x509-previous",
			ResourceType:       "Custom::RenderFarmX509CertificatePem",
			RequestType:        cfn.RequestUpdate,
			ResourceProperties: map[string]any{
				"Subject": map[string]any{"CommonName": "RenderFarmRootCA"},
			},
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(out.PhysicalResourceID).To(HavePrefix("x509-"))
		Expect(out.PhysicalResourceID).ToNot(Equal("x509-previous"))
	})

	It("should delete all parts and keep the physical id", func(ctx context.Context) {
		for _, part := range []string{"cert", "key", "passphrase"} {
			msm.On("DeleteSecret", mock.Anything, mock.MatchedBy(func(in *secretsmanager.DeleteSecretInput) bool {
				return *in.SecretId == "farm-x509/x509-abc123/"+part && *in.ForceDeleteWithoutRecovery
			})).Return(&secretsmanager.DeleteSecretOutput{}, nil).Once()
		}

		Expect(hdl.Handle(ctx, certsresource.Input{
			PhysicalResourceID: "x509-abc123",
			ResourceType:       "Custom::RenderFarmX509CertificatePem",
			RequestType:        cfn.RequestDelete,
			ResourceProperties: map[string]any{
				"Subject": map[string]any{"CommonName": "RenderFarmRootCA"},
			},
		})).To(Equal(certsresource.Output{PhysicalResourceID: "x509-abc123"}))
	})

	It("should tolerate already removed secrets on delete", func(ctx context.Context) {
		msm.On("DeleteSecret", mock.Anything, mock.Anything).
			Return(nil, &types.ResourceNotFoundException{}).Times(3)

		Expect(hdl.Handle(ctx, certsresource.Input{
			PhysicalResourceID: "x509-abc123",
			ResourceType:       "Custom::RenderFarmX509CertificatePem",
			RequestType:        cfn.RequestDelete,
			ResourceProperties: map[string]any{
				"Subject": map[string]any{"CommonName": "RenderFarmRootCA"},
			},
		})).To(Equal(certsresource.Output{PhysicalResourceID: "x509-abc123"}))
	})
})

// expectCreatedSecrets expects one secret creation per part, capturing the stored values
// by part name and returning deterministic arns.
func expectCreatedSecrets(msm *MockSecretsManager, parts ...string) map[string]string {
	GinkgoHelper()

	values := map[string]string{}

	for _, part := range parts {
		msm.On("CreateSecret", mock.Anything, mock.MatchedBy(func(in *secretsmanager.CreateSecretInput) bool {
			return strings.HasSuffix(*in.Name, "/"+part)
		})).Run(func(args mock.Arguments) {
			in, _ := args.Get(1).(*secretsmanager.CreateSecretInput)
			if in.SecretString != nil {
				values[part] = *in.SecretString
			} else {
				values[part] = string(in.SecretBinary)
			}
		}).Return(&secretsmanager.CreateSecretOutput{ARN: aws.String("arn:secret:" + part)}, nil).Once()
	}

	return values
}

// expectSecretValue expects a read of the secret with the given arn.
func expectSecretValue(msm *MockSecretsManager, arn, value string) {
	GinkgoHelper()

	msm.On("GetSecretValue", mock.Anything, mock.MatchedBy(func(in *secretsmanager.GetSecretValueInput) bool {
		return *in.SecretId == arn
	})).Return(&secretsmanager.GetSecretValueOutput{SecretString: aws.String(value)}, nil).Once()
}

// parseCertificate parses pem certificate material.
func parseCertificate(material string) *x509.Certificate {
	GinkgoHelper()

	block, _ := pem.Decode([]byte(material))
	Expect(block).ToNot(BeNil())

	cert, err := x509.ParseCertificate(block.Bytes)
	Expect(err).ToNot(HaveOccurred())

	return cert
}
