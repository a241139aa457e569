package certsresource

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

const (
	rsaKeyBits    = 2048
	validityYears = 3
	serialNumBits = 128
)

// issueCertificate generates a key pair and certificate for the subject. With signer
// material provided it issues a leaf signed by that authority, without it a
// self-signed certificate authority. Returns the certificate and key as PEM.
func issueCertificate(subject Subject, signerCertPEM, signerKeyPEM []byte) (certPEM, keyPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), serialNumBits))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial: %w", err)
	}

	now := time.Now()
	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: subject.CommonName,
		},
		NotBefore:             now,
		NotAfter:              now.AddDate(validityYears, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{subject.CommonName},
	}

	if subject.Organization != "" {
		tmpl.Subject.Organization = []string{subject.Organization}
	}

	if subject.OrganizationalUnit != "" {
		tmpl.Subject.OrganizationalUnit = []string{subject.OrganizationalUnit}
	}

	parent, signerKey := &tmpl, any(key)

	if signerCertPEM == nil {
		// no signer, issue a self-signed authority
		tmpl.IsCA = true
		tmpl.KeyUsage |= x509.KeyUsageCertSign
		tmpl.ExtKeyUsage = nil
		tmpl.DNSNames = nil
	} else {
		if parent, err = parseCertificatePEM(signerCertPEM); err != nil {
			return nil, nil, fmt.Errorf("failed to parse signing certificate: %w", err)
		}

		if signerKey, err = parsePrivateKeyPEM(signerKeyPEM); err != nil {
			return nil, nil, fmt.Errorf("failed to parse signing key: %w", err)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, parent, &key.PublicKey, signerKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	return certPEM, keyPEM, nil
}

// encodePkcs12 bundles pem certificate material into the PKCS#12 format protected by
// the passphrase.
func encodePkcs12(certPEM, keyPEM []byte, passphrase string) ([]byte, error) {
	cert, err := parseCertificatePEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	key, err := parsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key: %w", err)
	}

	bundle, err := pkcs12.Modern.Encode(key, cert, nil, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pkcs12: %w", err)
	}

	return bundle, nil
}

// ErrNoPEMBlock is returned when the material does not contain a PEM block.
var ErrNoPEMBlock = errors.New("no PEM block in material")

func parseCertificatePEM(material []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(material)
	if block == nil {
		return nil, ErrNoPEMBlock
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return cert, nil
}

func parsePrivateKeyPEM(material []byte) (any, error) {
	block, _ := pem.Decode(material)
	if block == nil {
		return nil, ErrNoPEMBlock
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return key, nil
}

// randomHex returns n random bytes hex encoded.
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return hex.EncodeToString(b), nil
}
