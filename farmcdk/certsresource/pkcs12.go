package certsresource

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Pkcs12Properties that configure the conversion of pem certificate material into a
// passphrase protected PKCS#12 bundle.
type Pkcs12Properties struct {
	SourceCertArn       string `mapstructure:"SourceCertArn" validate:"required"`
	SourceKeyArn        string `mapstructure:"SourceKeyArn" validate:"required"`
	SourcePassphraseArn string `mapstructure:"SourcePassphraseArn" validate:"required"`
}

// handlePkcs12Convert reads the source pem material and stores the bundled format as a
// binary secret, protected by the source certificate's passphrase.
func (h Handler) handlePkcs12Convert(ctx context.Context, in Input, props Pkcs12Properties) (out Output, err error) {
	certPEM, err := h.secretBytes(ctx, props.SourceCertArn)
	if err != nil {
		return out, fmt.Errorf("failed to read source certificate: %w", err)
	}

	keyPEM, err := h.secretBytes(ctx, props.SourceKeyArn)
	if err != nil {
		return out, fmt.Errorf("failed to read source key: %w", err)
	}

	passphrase, err := h.secretBytes(ctx, props.SourcePassphraseArn)
	if err != nil {
		return out, fmt.Errorf("failed to read source passphrase: %w", err)
	}

	bundle, err := encodePkcs12(certPEM, keyPEM, string(passphrase))
	if err != nil {
		return out, fmt.Errorf("failed to encode bundle: %w", err)
	}

	prid, err := h.newPhysicalResourceID("pkcs12")
	if err != nil {
		return out, err
	}

	h.logs.Info("converted certificate to bundle", zap.String("physical_resource_id", prid))

	bundleArn, err := h.createBinarySecret(ctx, prid, "bundle", bundle)
	if err != nil {
		return out, err
	}

	out.PhysicalResourceID = prid
	out.Data = map[string]any{
		"BundleArn":     bundleArn,
		"PassphraseArn": props.SourcePassphraseArn,
	}

	return out, nil
}

// handlePkcs12Delete removes the bundle secret.
func (h Handler) handlePkcs12Delete(ctx context.Context, in Input) (out Output, err error) {
	if err := h.deleteSecrets(ctx, in.PhysicalResourceID, "bundle"); err != nil {
		return out, err
	}

	out.PhysicalResourceID = in.PhysicalResourceID // must always be the same, or cfn will error

	return
}
