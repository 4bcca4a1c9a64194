package cms

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"math/big"
)

// SignerIdentifierKind distinguishes the two SignerIdentifier variants
// SignerInfo.sid (RFC 5652 §5.3) may take.
type SignerIdentifierKind int

const (
	// IssuerAndSerialNumberKind identifies the signer by issuer DN + serial,
	// the default and most widely interoperable choice.
	IssuerAndSerialNumberKind SignerIdentifierKind = iota
	// SubjectKeyIdentifierKind identifies the signer by the SKI octet string
	// (SignerInfo version 3, `[0] SubjectKeyIdentifier`).
	SubjectKeyIdentifierKind
)

// SignerIdentifier is the tagged variant used to select a signer's
// certificate among several candidates, either at build time (to record
// which certificate was used) or at parse time (to pick the right one out
// of the embedded certificate set).
type SignerIdentifier struct {
	Kind SignerIdentifierKind

	// IssuerAndSerialNumberKind fields.
	IssuerRawDER []byte
	SerialNumber *big.Int

	// SubjectKeyIdentifierKind field.
	SubjectKeyID []byte
}

type issuerAndSerialNumberASN1 struct {
	Issuer       asn1.RawValue
	SerialNumber *big.Int
}

// NewIssuerAndSerialNumber builds a SignerIdentifier from a certificate's
// own issuer/serial, the default SignerIdentifier form this library uses
// when building CMS SignedData.
func NewIssuerAndSerialNumber(cert *x509.Certificate) SignerIdentifier {
	return SignerIdentifier{
		Kind:         IssuerAndSerialNumberKind,
		IssuerRawDER: cert.RawIssuer,
		SerialNumber: cert.SerialNumber,
	}
}

// NewSubjectKeyIdentifier builds a SignerIdentifier from a certificate's
// SubjectKeyId, used when the caller explicitly requests SKI-mode sid.
func NewSubjectKeyIdentifier(cert *x509.Certificate) (SignerIdentifier, error) {
	if len(cert.SubjectKeyId) == 0 {
		return SignerIdentifier{}, fmt.Errorf("Configuration: certificate has no Subject Key Identifier extension")
	}
	return SignerIdentifier{Kind: SubjectKeyIdentifierKind, SubjectKeyID: cert.SubjectKeyId}, nil
}

// Matches reports whether sid identifies cert.
func (sid SignerIdentifier) Matches(cert *x509.Certificate) bool {
	switch sid.Kind {
	case IssuerAndSerialNumberKind:
		return bytes.Equal(sid.IssuerRawDER, cert.RawIssuer) &&
			sid.SerialNumber != nil && cert.SerialNumber != nil &&
			sid.SerialNumber.Cmp(cert.SerialNumber) == 0
	case SubjectKeyIdentifierKind:
		return bytes.Equal(sid.SubjectKeyID, cert.SubjectKeyId)
	default:
		return false
	}
}

// SelectSigner implements spec.md's signer-selection algorithm: match by
// SignerIdentifier; if no match and exactly one certificate is embedded,
// use it; otherwise trial-verify is the caller's responsibility (this
// function only narrows the candidate set).
func SelectSigner(sid SignerIdentifier, certs []*x509.Certificate) (*x509.Certificate, error) {
	for _, c := range certs {
		if sid.Matches(c) {
			return c, nil
		}
	}
	if len(certs) == 1 {
		return certs[0], nil
	}
	return nil, fmt.Errorf("MalformedSignerInfo: no certificate matches SignerIdentifier and %d candidates are embedded", len(certs))
}
