package verify

// This file contains option and result types shared across the verify package.
// The Signer and Certificate types used during verification live in signer.go.

import (
	"crypto/x509"
	"net/http"
	"time"

	"github.com/govbr-pades/pades/common"
)

// VerifyOptions contains options for PDF signature verification
type VerifyOptions struct {
	// RequiredEKUs specifies the Extended Key Usages that must be present
	// Default: Document Signing EKU (1.3.6.1.5.5.7.3.36) per RFC 9336
	RequiredEKUs []x509.ExtKeyUsage

	// AllowedEKUs specifies additional Extended Key Usages that are acceptable
	// Common alternatives: Email Protection (1.3.6.1.5.5.7.3.4), Client Auth (1.3.6.1.5.5.7.3.2)
	AllowedEKUs []x509.ExtKeyUsage

	// RequireDigitalSignatureKU requires the Digital Signature bit in Key Usage
	RequireDigitalSignatureKU bool

	// RequireNonRepudiation requires the Non-Repudiation bit in Key Usage (mandatory for highest security)
	RequireNonRepudiation bool

	// AllowNonRepudiationKU when true, accepts certificates that carry the
	// Non-Repudiation bit as suitable for signing even when it is not required.
	AllowNonRepudiationKU bool

	// UseEmbeddedTimestamp when true, prefers the RFC 3161 timestamp embedded
	// in the signature (if any) as the verification time.
	UseEmbeddedTimestamp bool

	// FallbackToCurrentTime when true, verifies against the current time when
	// no embedded timestamp is present and TrustSignatureTime is false.
	FallbackToCurrentTime bool

	// AllowEmbeddedCertificatesAsRoots when true, treats certificates embedded
	// in the PDF as trusted roots during chain building.
	// WARNING: this accepts self-signed or otherwise untrusted chains. Only
	// enable it for testing or ICP-Brasil LTV replay of an archived chain.
	AllowEmbeddedCertificatesAsRoots bool

	// TrustSignatureTime when true, trusts the signature time embedded in the PDF if no timestamp is present
	// WARNING: This time is provided by the signatory and should be considered untrusted for security-critical applications.
	TrustSignatureTime bool

	// ValidateTimestampCertificates when true, validates the timestamp token's signing certificate
	// including building a proper certification path and checking revocation status.
	ValidateTimestampCertificates bool

	// AllowUntrustedRoots when true, allows using certificates embedded in the PDF as trusted roots
	// WARNING: This makes signatures appear valid even if they're self-signed or from untrusted CAs
	// Only enable this for testing or when you explicitly trust the embedded certificates
	AllowUntrustedRoots bool

	// EnableExternalRevocationCheck when true, performs external OCSP and CRL checks
	// using the URLs found in certificate extensions
	EnableExternalRevocationCheck bool

	// HTTPClient specifies the HTTP client to use for external revocation checking
	// If nil, http.DefaultClient will be used
	HTTPClient *http.Client

	// HTTPTimeout specifies the timeout for HTTP requests during external revocation checking
	// If zero, a default timeout of 10 seconds will be used
	HTTPTimeout time.Duration

	// TrustedRoots is the pool of CA certificates trusted to anchor the
	// signer's certificate chain. If nil, the system root pool is used.
	TrustedRoots *x509.CertPool

	// ValidateFullChain enforces cryptographic policy constraints (key size,
	// algorithm) on every certificate in the chain rather than just the leaf.
	ValidateFullChain bool

	// AtTime pins the verification time instead of using the embedded
	// timestamp, the signature time, or the current time. Used to replay
	// an LTV validation against the moment its DSS was archived.
	AtTime time.Time

	// MinRSAKeySize rejects RSA keys smaller than this bit length, if positive.
	MinRSAKeySize int

	// MinECDSAKeySize rejects ECDSA keys with a curve smaller than this bit size, if positive.
	MinECDSAKeySize int

	// AllowedAlgorithms restricts accepted public key algorithms. If empty, any is accepted.
	AllowedAlgorithms []x509.PublicKeyAlgorithm
}

// SignatureValidation contains validation results and technical details
// (not about the signer's intent)
type SignatureValidation struct {
	ValidSignature     bool                 `json:"valid_signature"`
	TrustedIssuer      bool                 `json:"trusted_issuer"`
	RevokedCertificate bool                 `json:"revoked_certificate"`
	Certificates       []common.Certificate `json:"certificates"`
	TimestampStatus    string               `json:"timestamp_status,omitempty"`
	TimestampTrusted   bool                 `json:"timestamp_trusted"`
	VerificationTime   *time.Time           `json:"verification_time"`
	TimeSource         string               `json:"time_source"`
	TimeWarnings       []string             `json:"time_warnings,omitempty"`
}

type Response struct {
	Error string

	DocumentInfo common.DocumentInfo
	Signatures   []struct {
		Info       common.SignatureInfo `json:"info"`
		Validation SignatureValidation  `json:"validation"`
	}
}
