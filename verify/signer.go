package verify

import (
	"crypto/x509"
	"encoding/asn1"
	"time"

	"github.com/digitorus/timestamp"
	"github.com/govbr-pades/pades/common"
)

// Certificate is the certificate validation result used throughout the
// verify package. It is shared with the common package so that signing
// and verification code can exchange the same representation.
type Certificate = common.Certificate

// Signer holds the verification result for a single PDF signature field,
// including the signer-supplied metadata, the certificate chain that was
// built for it, and the time source used to evaluate revocation.
type Signer struct {
	Name               string
	Reason             string
	Location           string
	ContactInfo        string
	ValidSignature     bool
	TrustedIssuer      bool
	RevokedCertificate bool
	Certificates       []Certificate
	TimeStamp          *timestamp.Timestamp

	// ValidationErrors accumulates structural problems found while verifying
	// this signature (DocMDP violations, algorithm rejections, signature
	// failures, and so on).
	ValidationErrors []error

	// SignatureTime is the value of the PDF signature dictionary's /M entry,
	// as claimed by the signer. It is untrusted unless TrustSignatureTime is set.
	SignatureTime *time.Time

	// VerificationTime is the time actually used to evaluate certificate
	// validity and revocation: the embedded timestamp when present, the
	// signature time as a fallback, or the current time otherwise.
	VerificationTime *time.Time

	// TimeSource records which of the above was used: "embedded_timestamp",
	// "signature_time", or "current_time".
	TimeSource string

	// TimeWarnings collects human-readable notices about the time source,
	// such as relying on the untrusted signature time.
	TimeWarnings []string

	// TimestampStatus is "missing", "valid", or "invalid".
	TimestampStatus string

	// TimestampTrusted reports whether the RFC 3161 timestamp's own signing
	// certificate chain validated successfully.
	TimestampTrusted bool

	// PolicyOID is the signature's declared ICP-Brasil signature-policy OID
	// (the signedAttrs signaturePolicyId attribute), or nil if the signature
	// did not declare one. Evaluating it against an LPA is the policy
	// package's job; this field only carries the OID through to the caller.
	PolicyOID asn1.ObjectIdentifier
}

// NewSigner returns a zero-value Signer ready to be populated during
// verification.
func NewSigner() *Signer {
	return &Signer{
		Certificates:     make([]Certificate, 0),
		ValidationErrors: make([]error, 0),
		TimeWarnings:     make([]string, 0),
	}
}

// DefaultVerifyOptions returns the verification policy applied when a
// caller does not configure one explicitly. The defaults favor rejecting
// a signature over silently accepting a weak one.
func DefaultVerifyOptions() *VerifyOptions {
	return &VerifyOptions{
		RequiredEKUs:                     []x509.ExtKeyUsage{x509.ExtKeyUsage(36)},
		AllowedEKUs:                      []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection, x509.ExtKeyUsageClientAuth},
		RequireDigitalSignatureKU:        true,
		AllowNonRepudiationKU:            true,
		RequireNonRepudiation:            false,
		TrustSignatureTime:               false,
		ValidateTimestampCertificates:    true,
		UseEmbeddedTimestamp:             true,
		FallbackToCurrentTime:            true,
		AllowUntrustedRoots:              false,
		AllowEmbeddedCertificatesAsRoots: false,
		EnableExternalRevocationCheck:    false,
		HTTPTimeout:                      10 * time.Second,
	}
}
