package cms

import (
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"time"
)

// Attribute is a single CMS Attribute (RFC 5652 §5.3): an OID plus a SET
// of one DER-encoded value. CMS allows multiple values per attribute, but
// every attribute this package builds carries exactly one.
type Attribute struct {
	Type  asn1.ObjectIdentifier
	Value asn1.RawValue
}

type attributeASN1 struct {
	Type   asn1.ObjectIdentifier
	Values []asn1.RawValue `asn1:"set"`
}

// ESSCertIDv2 and SigningCertificateV2 implement RFC 5035, the hash of the
// signer's own certificate bound into signedAttrs so a signedAttrs replay
// cannot be paired with a different certificate carrying the same key.
// IssuerSerial is deliberately omitted: RFC 5035 marks it OPTIONAL and the
// certificate hash alone is sufficient to bind signedAttrs to one specific
// certificate.
type essCertIDv2 struct {
	CertHash []byte
}

type signingCertificateV2 struct {
	Certs []essCertIDv2
}

// BuildSignedAttributes assembles the signed attribute set required for a
// detached PAdES signature: contentType, messageDigest, signingTime, and
// signingCertificateV2 bound to signerCert. policyOID, when non-empty, adds
// a signaturePolicyId attribute (policy digest intentionally omitted here;
// LPA-driven digest binding is the policy package's job, see policy.Profile).
func BuildSignedAttributes(contentDigest []byte, signerCert *x509.Certificate, digestAlg crypto.Hash, signingTime time.Time, policyOID asn1.ObjectIdentifier) ([]Attribute, error) {
	if len(contentDigest) == 0 {
		return nil, fmt.Errorf("cms: content digest must not be empty")
	}

	contentTypeVal, err := asn1.Marshal(OIDData)
	if err != nil {
		return nil, fmt.Errorf("cms: encode contentType: %w", err)
	}

	digestVal, err := asn1.Marshal(contentDigest)
	if err != nil {
		return nil, fmt.Errorf("cms: encode messageDigest: %w", err)
	}

	timeVal, err := marshalSigningTime(signingTime)
	if err != nil {
		return nil, fmt.Errorf("cms: encode signingTime: %w", err)
	}

	certHash, err := hashCertificate(signerCert, digestAlg)
	if err != nil {
		return nil, fmt.Errorf("cms: hash signer certificate: %w", err)
	}
	sigCertVal, err := asn1.Marshal(signingCertificateV2{
		Certs: []essCertIDv2{{CertHash: certHash}},
	})
	if err != nil {
		return nil, fmt.Errorf("cms: encode signingCertificateV2: %w", err)
	}

	attrs := []Attribute{
		{Type: OIDContentType, Value: rawValue(contentTypeVal)},
		{Type: OIDMessageDigest, Value: rawValue(digestVal)},
		{Type: OIDSigningTime, Value: rawValue(timeVal)},
		{Type: OIDSigningCertificateV2, Value: rawValue(sigCertVal)},
	}

	if len(policyOID) > 0 {
		policyVal, err := asn1.Marshal(policyOID)
		if err != nil {
			return nil, fmt.Errorf("cms: encode signaturePolicyId: %w", err)
		}
		attrs = append(attrs, Attribute{Type: OIDSignaturePolicyID, Value: rawValue(policyVal)})
	}

	return attrs, nil
}

// NewAttribute DER-encodes value with encoding/asn1 and wraps it as a
// single-value Attribute carrying oid, for attributes the cms package has
// no dedicated constructor for (e.g. the ICP-Brasil revocation-archival
// attribute, whose shape lives in the revocation package).
func NewAttribute(oid asn1.ObjectIdentifier, value interface{}) (Attribute, error) {
	der, err := asn1.Marshal(value)
	if err != nil {
		return Attribute{}, fmt.Errorf("cms: encode attribute %v: %w", oid, err)
	}
	return Attribute{Type: oid, Value: rawValue(der)}, nil
}

func rawValue(der []byte) asn1.RawValue {
	var rv asn1.RawValue
	if _, err := asn1.Unmarshal(der, &rv); err != nil {
		// der was just produced by asn1.Marshal above; a failure here means
		// a genuine encoder bug, not caller input.
		panic(fmt.Sprintf("cms: internal encoder produced unparsable DER: %v", err))
	}
	return rv
}

func marshalSigningTime(t time.Time) ([]byte, error) {
	u := t.UTC()
	if u.Year() >= 1950 && u.Year() <= 2049 {
		return asn1.MarshalWithParams(u, "utc")
	}
	return asn1.MarshalWithParams(u, "generalized")
}

func hashCertificate(cert *x509.Certificate, alg crypto.Hash) ([]byte, error) {
	if cert == nil {
		return nil, fmt.Errorf("signer certificate is nil")
	}
	if !alg.Available() {
		return nil, fmt.Errorf("hash algorithm %v not available", alg)
	}
	h := alg.New()
	h.Write(cert.Raw)
	return h.Sum(nil), nil
}

// MarshalAttributesSet DER-encodes attrs as a SET OF Attribute (tag 0x31),
// which is the exact byte sequence that must be hashed and signed — not
// the `[0] IMPLICIT` tagged form used when embedding the same attributes
// inside a SignerInfo.
func MarshalAttributesSet(attrs []Attribute) ([]byte, error) {
	wrapped := make([]attributeASN1, len(attrs))
	for i, a := range attrs {
		wrapped[i] = attributeASN1{Type: a.Type, Values: []asn1.RawValue{a.Value}}
	}
	der, err := asn1.MarshalWithParams(wrapped, "set")
	if err != nil {
		return nil, fmt.Errorf("cms: marshal signed attributes set: %w", err)
	}
	return der, nil
}
