package cms

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// ParseSignedData walks a ContentInfo/SignedData DER structure (RFC 5652)
// field by field with cryptobyte, rather than handing it to a generic
// struct-tagged ASN.1 unmarshaler, since SignerInfo's signedAttrs and sid
// fields are exactly the tag-ambiguous constructs cryptobyte exists to
// handle precisely (see RecoverSignedAttrsForVerify).
func ParseSignedData(der []byte) (*SignedData, error) {
	var outer cryptobyte.String = der
	var ci cryptobyte.String
	if !outer.ReadASN1(&ci, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("cms: malformed ContentInfo")
	}

	var contentType asn1.ObjectIdentifier
	if !ci.ReadASN1ObjectIdentifier(&contentType) {
		return nil, fmt.Errorf("cms: malformed ContentInfo.contentType")
	}
	if !contentType.Equal(OIDSignedData) {
		return nil, fmt.Errorf("cms: contentType %v is not signedData", contentType)
	}

	var explicit0 cryptobyte.String
	if !ci.ReadASN1(&explicit0, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
		return nil, fmt.Errorf("cms: malformed ContentInfo.content")
	}

	var sd cryptobyte.String
	if !explicit0.ReadASN1(&sd, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("cms: malformed SignedData")
	}

	var version int64
	if !sd.ReadASN1Integer(&version) {
		return nil, fmt.Errorf("cms: malformed SignedData.version")
	}

	var digestAlgorithms cryptobyte.String
	if !sd.ReadASN1(&digestAlgorithms, cryptobyte_asn1.SET) {
		return nil, fmt.Errorf("cms: malformed SignedData.digestAlgorithms")
	}

	var encap cryptobyte.String
	if !sd.ReadASN1(&encap, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("cms: malformed SignedData.encapContentInfo")
	}
	var econtentType asn1.ObjectIdentifier
	if !encap.ReadASN1ObjectIdentifier(&econtentType) {
		return nil, fmt.Errorf("cms: malformed encapContentInfo.eContentType")
	}
	result := &SignedData{ContentType: econtentType}
	if !encap.Empty() {
		var contentWrap cryptobyte.String
		if !encap.ReadASN1(&contentWrap, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
			return nil, fmt.Errorf("cms: malformed encapContentInfo.eContent")
		}
		var content []byte
		if !contentWrap.ReadASN1Bytes(&content, cryptobyte_asn1.OCTET_STRING) {
			return nil, fmt.Errorf("cms: malformed encapContentInfo.eContent octet string")
		}
		result.Content = content
	} else {
		result.Detached = true
	}

	var certsWrap cryptobyte.String
	var certsPresent bool
	if !sd.ReadOptionalASN1(&certsWrap, &certsPresent, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
		return nil, fmt.Errorf("cms: malformed SignedData.certificates")
	}
	if certsPresent {
		certs, err := x509.ParseCertificates(certsWrap)
		if err != nil {
			return nil, fmt.Errorf("cms: parse embedded certificates: %w", err)
		}
		result.Certificates = certs
	}

	var crlsWrap cryptobyte.String
	var crlsPresent bool
	if !sd.ReadOptionalASN1(&crlsWrap, &crlsPresent, cryptobyte_asn1.Tag(1).ContextSpecific().Constructed()) {
		return nil, fmt.Errorf("cms: malformed SignedData.crls")
	}
	if crlsPresent {
		crls, err := splitConcatenatedDER(crlsWrap)
		if err != nil {
			return nil, fmt.Errorf("cms: split embedded CRLs: %w", err)
		}
		result.CRLs = crls
	}

	var signerInfosSet cryptobyte.String
	if !sd.ReadASN1(&signerInfosSet, cryptobyte_asn1.SET) {
		return nil, fmt.Errorf("cms: malformed SignedData.signerInfos")
	}
	for !signerInfosSet.Empty() {
		var one cryptobyte.String
		if !signerInfosSet.ReadASN1(&one, cryptobyte_asn1.SEQUENCE) {
			return nil, fmt.Errorf("cms: malformed SignerInfo")
		}
		si, err := parseSignerInfo(one)
		if err != nil {
			return nil, err
		}
		result.SignerInfos = append(result.SignerInfos, si)
	}

	if len(result.SignerInfos) == 0 {
		return nil, fmt.Errorf("MalformedSignerInfo: SignedData carries no SignerInfo")
	}

	return result, nil
}

func parseSignerInfo(der cryptobyte.String) (SignerInfo, error) {
	var si SignerInfo

	var version int64
	if !der.ReadASN1Integer(&version) {
		return si, fmt.Errorf("cms: malformed SignerInfo.version")
	}

	sid, err := parseSignerIdentifier(&der)
	if err != nil {
		return si, err
	}
	si.SID = sid

	var digestAlgDER cryptobyte.String
	if !der.ReadASN1(&digestAlgDER, cryptobyte_asn1.SEQUENCE) {
		return si, fmt.Errorf("cms: malformed SignerInfo.digestAlgorithm")
	}
	var digestOID asn1.ObjectIdentifier
	if !digestAlgDER.ReadASN1ObjectIdentifier(&digestOID) {
		return si, fmt.Errorf("cms: malformed SignerInfo.digestAlgorithm.algorithm")
	}
	digestAlg, err := hashAlgorithmFromOID(digestOID)
	if err != nil {
		return si, fmt.Errorf("MalformedSignerInfo: %w", err)
	}
	si.DigestAlgorithm = digestAlg

	if der.PeekASN1Tag(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
		var tagged cryptobyte.String
		if !der.ReadASN1Element(&tagged, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
			return si, fmt.Errorf("cms: malformed SignerInfo.signedAttrs")
		}
		setDER, err := RecoverSignedAttrsForVerify(tagged)
		if err != nil {
			return si, err
		}
		attrs, err := ParseAttributes(setDER)
		if err != nil {
			return si, err
		}
		si.SignedAttrs = attrs
		si.signedAttrsSetDER = setDER
	}

	var sigAlgDER cryptobyte.String
	if !der.ReadASN1(&sigAlgDER, cryptobyte_asn1.SEQUENCE) {
		return si, fmt.Errorf("cms: malformed SignerInfo.signatureAlgorithm")
	}
	var sigOID asn1.ObjectIdentifier
	if !sigAlgDER.ReadASN1ObjectIdentifier(&sigOID) {
		return si, fmt.Errorf("cms: malformed SignerInfo.signatureAlgorithm.algorithm")
	}
	si.SignatureAlgorithm = sigOID

	var signature []byte
	if !der.ReadASN1Bytes(&signature, cryptobyte_asn1.OCTET_STRING) {
		return si, fmt.Errorf("cms: malformed SignerInfo.signature")
	}
	si.Signature = signature

	if der.PeekASN1Tag(cryptobyte_asn1.Tag(1).ContextSpecific().Constructed()) {
		var tagged cryptobyte.String
		if !der.ReadASN1Element(&tagged, cryptobyte_asn1.Tag(1).ContextSpecific().Constructed()) {
			return si, fmt.Errorf("cms: malformed SignerInfo.unsignedAttrs")
		}
		// unsignedAttrs is tagged [1], but RecoverSignedAttrsForVerify only
		// rewrites tag bytes without inspecting which context tag number it
		// started from, so it applies equally here.
		rewritten := append([]byte{}, []byte(tagged)...)
		rewritten[0] = tagContextConstructed0
		setDER, err := RecoverSignedAttrsForVerify(rewritten)
		if err != nil {
			return si, err
		}
		attrs, err := ParseAttributes(setDER)
		if err != nil {
			return si, err
		}
		si.UnsignedAttrs = attrs
	}

	return si, nil
}

func parseSignerIdentifier(der *cryptobyte.String) (SignerIdentifier, error) {
	if der.PeekASN1Tag(cryptobyte_asn1.SEQUENCE) {
		var iasn cryptobyte.String
		if !der.ReadASN1Element(&iasn, cryptobyte_asn1.SEQUENCE) {
			return SignerIdentifier{}, fmt.Errorf("cms: malformed IssuerAndSerialNumber")
		}
		var parsed issuerAndSerialNumberASN1
		if _, err := asn1.Unmarshal(iasn, &parsed); err != nil {
			return SignerIdentifier{}, fmt.Errorf("cms: parse IssuerAndSerialNumber: %w", err)
		}
		return SignerIdentifier{
			Kind:         IssuerAndSerialNumberKind,
			IssuerRawDER: parsed.Issuer.FullBytes,
			SerialNumber: parsed.SerialNumber,
		}, nil
	}

	if der.PeekASN1Tag(cryptobyte_asn1.Tag(0).ContextSpecific()) {
		var ski []byte
		if !der.ReadASN1Bytes(&ski, cryptobyte_asn1.Tag(0).ContextSpecific()) {
			return SignerIdentifier{}, fmt.Errorf("cms: malformed SubjectKeyIdentifier sid")
		}
		return SignerIdentifier{Kind: SubjectKeyIdentifierKind, SubjectKeyID: ski}, nil
	}

	return SignerIdentifier{}, fmt.Errorf("MalformedSignerInfo: unrecognized SignerIdentifier encoding")
}

// splitConcatenatedDER splits a byte string holding zero or more
// back-to-back top-level DER TLVs (as used for RevocationInfoChoices
// entries) into their individual raw encodings.
func splitConcatenatedDER(data []byte) ([][]byte, error) {
	var s cryptobyte.String = data
	var out [][]byte
	for !s.Empty() {
		var elem cryptobyte.String
		var tag cryptobyte_asn1.Tag
		if !s.ReadAnyASN1Element(&elem, &tag) {
			return nil, fmt.Errorf("cms: malformed DER element in concatenated sequence")
		}
		out = append(out, append([]byte{}, elem...))
	}
	return out, nil
}
