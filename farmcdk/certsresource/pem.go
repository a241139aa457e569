package certsresource

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"go.uber.org/zap"
)

// Subject holds the distinguished name fields of the certificate to issue.
type Subject struct {
	CommonName         string `mapstructure:"CommonName" validate:"required"`
	Organization       string `mapstructure:"Organization"`
	OrganizationalUnit string `mapstructure:"OrganizationalUnit"`
}

// PemProperties that configure the pem certificate resource. When the signing arns are
// absent a self-signed certificate authority is issued instead of a signed leaf.
type PemProperties struct {
	Subject        Subject `mapstructure:"Subject" validate:"required"`
	SigningCertArn string  `mapstructure:"SigningCertArn" validate:"required_with=SigningKeyArn"`
	SigningKeyArn  string  `mapstructure:"SigningKeyArn" validate:"required_with=SigningCertArn"`
}

// handlePemIssue issues the certificate material and stores it as three secrets: the
// certificate, the private key and a generated passphrase for downstream bundling.
func (h Handler) handlePemIssue(ctx context.Context, in Input, props PemProperties) (out Output, err error) {
	var signerCert, signerKey []byte

	if props.SigningCertArn != "" {
		if signerCert, err = h.secretBytes(ctx, props.SigningCertArn); err != nil {
			return out, fmt.Errorf("failed to read signing certificate: %w", err)
		}

		if signerKey, err = h.secretBytes(ctx, props.SigningKeyArn); err != nil {
			return out, fmt.Errorf("failed to read signing key: %w", err)
		}
	}

	certPEM, keyPEM, err := issueCertificate(props.Subject, signerCert, signerKey)
	if err != nil {
		return out, fmt.Errorf("failed to issue certificate: %w", err)
	}

	passphrase, err := randomHex(passphraseBytes)
	if err != nil {
		return out, fmt.Errorf("failed to generate passphrase: %w", err)
	}

	prid, err := h.newPhysicalResourceID("x509")
	if err != nil {
		return out, err
	}

	h.logs.Info("issued certificate",
		zap.String("common_name", props.Subject.CommonName),
		zap.Bool("self_signed", signerCert == nil),
		zap.String("physical_resource_id", prid))

	arns, err := h.createSecrets(ctx, prid, map[string]string{
		"cert":       string(certPEM),
		"key":        string(keyPEM),
		"passphrase": passphrase,
	})
	if err != nil {
		return out, err
	}

	out.PhysicalResourceID = prid
	out.Data = map[string]any{
		"CertArn":       arns["cert"],
		"KeyArn":        arns["key"],
		"PassphraseArn": arns["passphrase"],
	}

	return out, nil
}

// handlePemDelete removes the secrets holding the certificate material. If a Delete event
// fails, CloudFormation will abandon this resource.
func (h Handler) handlePemDelete(ctx context.Context, in Input) (out Output, err error) {
	if err := h.deleteSecrets(ctx, in.PhysicalResourceID, "cert", "key", "passphrase"); err != nil {
		return out, err
	}

	out.PhysicalResourceID = in.PhysicalResourceID // must always be the same, or cfn will error

	return
}

// secretBytes reads a secret value as raw bytes, regardless of how it is stored.
func (h Handler) secretBytes(ctx context.Context, arn string) ([]byte, error) {
	val, err := h.smc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(arn)})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret value: %w", err)
	}

	if val.SecretString != nil {
		return []byte(*val.SecretString), nil
	}

	return val.SecretBinary, nil
}

// secretName builds the name of one of the secrets owned by a physical resource.
func (h Handler) secretName(prid, part string) string {
	return h.cfg.SecretNamePrefix + prid + "/" + part
}

// createSecrets stores each of the named string values as its own secret, returning
// the arn per part name. Partially created secrets are cleaned up on error so a failed
// Create does not leak material.
func (h Handler) createSecrets(ctx context.Context, prid string, parts map[string]string) (map[string]string, error) {
	arns, created := map[string]string{}, []string{}

	for part, value := range parts {
		crt, err := h.smc.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         aws.String(h.secretName(prid, part)),
			SecretString: aws.String(value),
		})
		if err != nil {
			h.cleanupSecrets(ctx, prid, created)

			return nil, fmt.Errorf("failed to create secret for %s: %w", part, err)
		}

		arns[part], created = *crt.ARN, append(created, part)
	}

	return arns, nil
}

// createBinarySecret stores a binary value as a secret.
func (h Handler) createBinarySecret(ctx context.Context, prid, part string, value []byte) (string, error) {
	crt, err := h.smc.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(h.secretName(prid, part)),
		SecretBinary: value,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create secret for %s: %w", part, err)
	}

	return *crt.ARN, nil
}

// deleteSecrets removes the secrets owned by a physical resource. Secrets that are
// already gone do not fail the delete.
func (h Handler) deleteSecrets(ctx context.Context, prid string, parts ...string) error {
	for _, part := range parts {
		if _, err := h.smc.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
			SecretId:                   aws.String(h.secretName(prid, part)),
			ForceDeleteWithoutRecovery: aws.Bool(true),
		}); err != nil && !isNotFound(err) {
			return fmt.Errorf("failed to delete secret for %s: %w", part, err)
		}
	}

	return nil
}

// cleanupSecrets removes partially created secrets, logging rather than failing since
// it runs on an error path already.
func (h Handler) cleanupSecrets(ctx context.Context, prid string, parts []string) {
	for _, part := range parts {
		if _, err := h.smc.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
			SecretId:                   aws.String(h.secretName(prid, part)),
			ForceDeleteWithoutRecovery: aws.Bool(true),
		}); err != nil {
			h.logs.Error("failed to clean up secret", zap.String("part", part), zap.Error(err))
		}
	}
}

// isNotFound reports whether the error indicates the secret no longer exists.
func isNotFound(err error) bool {
	var nfe *types.ResourceNotFoundException

	return errors.As(err, &nfe)
}

// newPhysicalResourceID generates a unique physical resource id with the given prefix.
func (h Handler) newPhysicalResourceID(prefix string) (string, error) {
	suffix, err := randomHex(physicalIDBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate physical resource id: %w", err)
	}

	return prefix + "-" + suffix, nil
}

// number of random bytes in generated identifiers and passphrases.
const (
	physicalIDBytes = 8
	passphraseBytes = 16
)
