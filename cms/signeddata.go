package cms

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// SignerInfo is one signer's contribution to a SignedData (RFC 5652 §5.3).
type SignerInfo struct {
	SID                SignerIdentifier
	DigestAlgorithm    crypto.Hash
	SignedAttrs        []Attribute
	signedAttrsSetDER  []byte // canonical universal-SET encoding, hashed and signed/verified
	SignatureAlgorithm asn1.ObjectIdentifier
	Signature          []byte
	UnsignedAttrs      []Attribute
}

// SignedAttributes returns the parsed/ordered signed attributes.
func (si SignerInfo) SignedAttribute(oid asn1.ObjectIdentifier) (Attribute, bool) {
	return Find(si.SignedAttrs, oid)
}

// SignedData is an in-memory RFC 5652 SignedData content type, built or
// parsed without going through a full generic ASN.1 module: the outer
// structure is assembled/walked with cryptobyte so the SignerInfo's
// context-tagged optional fields (certificates, signedAttrs, unsignedAttrs)
// are handled exactly as PAdES producers emit them, while substructures with
// no tag ambiguity (AlgorithmIdentifier, IssuerAndSerialNumber) use stdlib
// encoding/asn1.
type SignedData struct {
	ContentType  asn1.ObjectIdentifier
	Content      []byte // nil when Detached
	Detached     bool
	Certificates []*x509.Certificate
	CRLs         [][]byte // raw DER CertificateList entries
	SignerInfos  []SignerInfo
}

// NewDetachedSignedData starts a SignedData for a detached PAdES signature:
// the encapsulated content is declared but never embedded, since the PDF
// ByteRange carries the signed bytes instead.
func NewDetachedSignedData() *SignedData {
	return &SignedData{ContentType: OIDData, Detached: true}
}

// AddCertificates appends cert and chain (in that order) to the embedded
// certificate set, skipping any already present.
func (sd *SignedData) AddCertificates(cert *x509.Certificate, chain []*x509.Certificate) {
	add := func(c *x509.Certificate) {
		for _, existing := range sd.Certificates {
			if existing.Equal(c) {
				return
			}
		}
		sd.Certificates = append(sd.Certificates, c)
	}
	add(cert)
	for _, c := range chain {
		add(c)
	}
}

// Sign computes a detached signature over content and appends a SignerInfo
// to sd. signedAttrs are assembled by the caller (typically via
// BuildSignedAttributes plus any extra attributes such as the ICP-Brasil
// revocation-archival attribute) and are re-marshaled here into the
// canonical form that is actually hashed and signed.
func (sd *SignedData) Sign(content []byte, cert *x509.Certificate, signer crypto.Signer, chain []*x509.Certificate, digestAlg crypto.Hash, signedAttrs []Attribute) error {
	if signer == nil {
		return fmt.Errorf("cms: signer must not be nil")
	}
	if !digestAlg.Available() {
		return fmt.Errorf("cms: digest algorithm %v not available", digestAlg)
	}

	setDER, err := MarshalAttributesSet(signedAttrs)
	if err != nil {
		return fmt.Errorf("cms: marshal signed attributes: %w", err)
	}

	h := digestAlg.New()
	h.Write(setDER)
	digest := h.Sum(nil)

	sigAlgOID, err := signatureAlgorithmOID(signer.Public(), digestAlg)
	if err != nil {
		return fmt.Errorf("cms: resolve signature algorithm: %w", err)
	}

	var opts crypto.SignerOpts = digestAlg
	signature, err := signer.Sign(rand.Reader, digest, opts)
	if err != nil {
		return fmt.Errorf("cms: sign attributes digest: %w", err)
	}

	sd.AddCertificates(cert, chain)
	sd.SignerInfos = append(sd.SignerInfos, SignerInfo{
		SID:                NewIssuerAndSerialNumber(cert),
		DigestAlgorithm:    digestAlg,
		SignedAttrs:        signedAttrs,
		signedAttrsSetDER:  setDER,
		SignatureAlgorithm: sigAlgOID,
		Signature:          signature,
	})

	sd.Content = content
	return nil
}

// SetUnsignedAttributes replaces the unsigned attributes (e.g. the RFC 3161
// signatureTimeStampToken) of SignerInfos[idx].
func (sd *SignedData) SetUnsignedAttributes(idx int, attrs []Attribute) error {
	if idx < 0 || idx >= len(sd.SignerInfos) {
		return fmt.Errorf("cms: signer index %d out of range", idx)
	}
	sd.SignerInfos[idx].UnsignedAttrs = attrs
	return nil
}

// Marshal DER-encodes the full ContentInfo/SignedData.
func (sd *SignedData) Marshal() ([]byte, error) {
	if len(sd.SignerInfos) == 0 {
		return nil, fmt.Errorf("cms: no signer infos to marshal")
	}

	var digestAlgorithms []asn1.ObjectIdentifier
	seen := map[string]bool{}
	for _, si := range sd.SignerInfos {
		oid := getOIDFromHashAlgorithm(si.DigestAlgorithm)
		key := oid.String()
		if !seen[key] {
			seen[key] = true
			digestAlgorithms = append(digestAlgorithms, oid)
		}
	}

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // ContentInfo
		b.AddASN1ObjectIdentifier(OIDSignedData)
		b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) { // [0] EXPLICIT content
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SignedData
				b.AddASN1Int64(1) // version
				b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) { // digestAlgorithms
					for _, oid := range digestAlgorithms {
						b.AddBytes(marshalAlgorithmIdentifier(oid))
					}
				})
				b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // encapContentInfo
					b.AddASN1ObjectIdentifier(sd.ContentType)
					if !sd.Detached && sd.Content != nil {
						b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
							b.AddASN1OctetString(sd.Content)
						})
					}
				})
				if len(sd.Certificates) > 0 {
					b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) { // [0] IMPLICIT CertificateSet
						for _, cert := range sd.Certificates {
							b.AddBytes(cert.Raw)
						}
					})
				}
				if len(sd.CRLs) > 0 {
					b.AddASN1(cryptobyte_asn1.Tag(1).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) { // [1] IMPLICIT RevocationInfoChoices
						for _, crl := range sd.CRLs {
							b.AddBytes(crl)
						}
					})
				}
				b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) { // signerInfos
					for _, si := range sd.SignerInfos {
						marshalSignerInfo(b, si)
					}
				})
			})
		})
	})

	return b.Bytes()
}

func marshalSignerInfo(b *cryptobyte.Builder, si SignerInfo) {
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		hasSignedAttrs := len(si.signedAttrsSetDER) > 0
		version := 1
		if si.SID.Kind == SubjectKeyIdentifierKind {
			version = 3
		}
		b.AddASN1Int64(int64(version))
		marshalSignerIdentifier(b, si.SID)
		b.AddBytes(marshalAlgorithmIdentifier(getOIDFromHashAlgorithm(si.DigestAlgorithm)))
		if hasSignedAttrs {
			b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
				// si.signedAttrsSetDER is tag 0x31 (SET); re-emit only its
				// contents under the [0] IMPLICIT tag.
				b.AddBytes(si.signedAttrsSetDER[tlvHeaderLen(si.signedAttrsSetDER):])
			})
		}
		b.AddBytes(marshalAlgorithmIdentifier(si.SignatureAlgorithm))
		b.AddASN1OctetString(si.Signature)
		if len(si.UnsignedAttrs) > 0 {
			unsignedDER, err := MarshalAttributesSet(si.UnsignedAttrs)
			if err == nil {
				b.AddASN1(cryptobyte_asn1.Tag(1).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
					b.AddBytes(unsignedDER[tlvHeaderLen(unsignedDER):])
				})
			}
		}
	})
}

func marshalSignerIdentifier(b *cryptobyte.Builder, sid SignerIdentifier) {
	switch sid.Kind {
	case SubjectKeyIdentifierKind:
		b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific(), func(b *cryptobyte.Builder) {
			b.AddBytes(sid.SubjectKeyID)
		})
	default:
		der, err := asn1.Marshal(issuerAndSerialNumberASN1{
			Issuer:       asn1.RawValue{FullBytes: sid.IssuerRawDER},
			SerialNumber: sid.SerialNumber,
		})
		if err != nil {
			// IssuerRawDER was taken from an already-parsed certificate, so a
			// failure here means the certificate's own issuer field is
			// malformed DER, not a caller error we can recover from cleanly.
			panic(fmt.Sprintf("cms: encode IssuerAndSerialNumber: %v", err))
		}
		b.AddBytes(der)
	}
}

func marshalAlgorithmIdentifier(oid asn1.ObjectIdentifier) []byte {
	der, err := asn1.Marshal(algorithmIdentifierASN1{
		Algorithm:  oid,
		Parameters: asn1.RawValue{FullBytes: []byte{0x05, 0x00}},
	})
	if err != nil {
		panic(fmt.Sprintf("cms: encode AlgorithmIdentifier: %v", err))
	}
	return der
}

type algorithmIdentifierASN1 struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

// tlvHeaderLen returns the number of leading bytes (tag + length) in a DER
// TLV, so callers can strip a SET's own tag/length and re-wrap its content
// under a different tag without re-parsing element by element.
func tlvHeaderLen(der []byte) int {
	var s cryptobyte.String = der
	var tag cryptobyte_asn1.Tag
	if !s.ReadAnyASN1Element(&s, &tag) {
		return 0
	}
	return len(der) - len(s)
}

// VerifySignerAt cryptographically verifies SignerInfos[idx] against content
// (the full signed bytes: the PDF ByteRange content for a detached
// signature, or sd.Content otherwise) and the embedded certificate sid
// resolves to. It checks messageDigest (when signedAttrs are present) and
// the signature itself; it does not build or validate a certificate chain.
func (sd *SignedData) VerifySignerAt(idx int, content []byte) (*x509.Certificate, error) {
	if idx < 0 || idx >= len(sd.SignerInfos) {
		return nil, fmt.Errorf("cms: signer index %d out of range", idx)
	}
	si := sd.SignerInfos[idx]

	cert, err := SelectSigner(si.SID, sd.Certificates)
	if err != nil {
		return nil, err
	}

	if !si.DigestAlgorithm.Available() {
		return nil, fmt.Errorf("cms: digest algorithm %v not available", si.DigestAlgorithm)
	}

	var signedBytes []byte
	if len(si.signedAttrsSetDER) > 0 {
		if err := RequireContentTypeAndDigest(si.SignedAttrs); err != nil {
			return nil, err
		}
		digestAttr, _ := Find(si.SignedAttrs, OIDMessageDigest)
		var declaredDigest []byte
		if _, err := asn1.Unmarshal(digestAttr.Value.FullBytes, &declaredDigest); err != nil {
			return nil, fmt.Errorf("cms: decode messageDigest attribute: %w", err)
		}
		h := si.DigestAlgorithm.New()
		h.Write(content)
		if !bytesEqual(h.Sum(nil), declaredDigest) {
			return nil, fmt.Errorf("SignedAttrsMismatch: messageDigest does not match signed content")
		}
		signedBytes = si.signedAttrsSetDER
	} else {
		signedBytes = content
	}

	sigAlg, err := x509SignatureAlgorithm(si.SignatureAlgorithm, si.DigestAlgorithm)
	if err != nil {
		return nil, err
	}
	if err := cert.CheckSignature(sigAlg, signedBytes, si.Signature); err != nil {
		return nil, fmt.Errorf("CryptoFailure: signature verification failed: %w", err)
	}

	return cert, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
