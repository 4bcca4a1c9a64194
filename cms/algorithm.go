package cms

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
)

// Digest algorithm OIDs carried in SignerInfo.digestAlgorithm and as the
// AlgorithmIdentifier inside signingCertificateV2/ESSCertID.
var (
	oidSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	oidSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
	oidMD5    = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 5}
)

// Combined digest+signature algorithm OIDs, used as SignerInfo's own
// signatureAlgorithm field. RSA signatures here are always PKCS#1 v1.5;
// ICP-Brasil policies do not call for RSASSA-PSS.
var (
	oidSHA1WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	oidSHA256WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	oidSHA384WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	oidSHA512WithRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}

	oidECDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	oidECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	oidECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}

	oidRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	oidECPublicKey   = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
)

// getOIDFromHashAlgorithm returns the DigestAlgorithmIdentifier OID for a
// crypto.Hash, used both for SignerInfo.digestAlgorithm and for the
// AlgorithmIdentifier embedded in an ESSCertID/ESSCertIDv2 when the digest
// isn't the attribute's own implicit default.
func getOIDFromHashAlgorithm(hash crypto.Hash) asn1.ObjectIdentifier {
	switch hash {
	case crypto.SHA1:
		return oidSHA1
	case crypto.SHA256:
		return oidSHA256
	case crypto.SHA384:
		return oidSHA384
	case crypto.SHA512:
		return oidSHA512
	case crypto.MD5:
		return oidMD5
	default:
		return oidSHA256
	}
}

// hashAlgorithmFromOID is the inverse of getOIDFromHashAlgorithm, used when
// parsing a SignerInfo built by some other producer.
func hashAlgorithmFromOID(oid asn1.ObjectIdentifier) (crypto.Hash, error) {
	switch {
	case oid.Equal(oidSHA1):
		return crypto.SHA1, nil
	case oid.Equal(oidSHA256):
		return crypto.SHA256, nil
	case oid.Equal(oidSHA384):
		return crypto.SHA384, nil
	case oid.Equal(oidSHA512):
		return crypto.SHA512, nil
	case oid.Equal(oidMD5):
		return crypto.MD5, nil
	default:
		return 0, fmt.Errorf("cms: unsupported digest algorithm %v", oid)
	}
}

// signatureAlgorithmOID picks the combined SignerInfo.signatureAlgorithm
// OID for signing with pub using digestAlg.
func signatureAlgorithmOID(pub crypto.PublicKey, digestAlg crypto.Hash) (asn1.ObjectIdentifier, error) {
	_, isRSA := pub.(*rsa.PublicKey)
	_, isECDSA := pub.(*ecdsa.PublicKey)
	if !isRSA && !isECDSA {
		return nil, fmt.Errorf("cms: unsupported public key type %T", pub)
	}
	if isECDSA {
		switch digestAlg {
		case crypto.SHA1:
			return oidECDSAWithSHA1, nil
		case crypto.SHA256:
			return oidECDSAWithSHA256, nil
		case crypto.SHA384:
			return oidECDSAWithSHA384, nil
		case crypto.SHA512:
			return oidECDSAWithSHA512, nil
		default:
			return nil, fmt.Errorf("cms: unsupported ECDSA digest algorithm %v", digestAlg)
		}
	}
	switch digestAlg {
	case crypto.SHA1:
		return oidSHA1WithRSA, nil
	case crypto.SHA256:
		return oidSHA256WithRSA, nil
	case crypto.SHA384:
		return oidSHA384WithRSA, nil
	case crypto.SHA512:
		return oidSHA512WithRSA, nil
	default:
		return nil, fmt.Errorf("cms: unsupported RSA digest algorithm %v", digestAlg)
	}
}

// x509SignatureAlgorithm maps a SignerInfo.signatureAlgorithm OID (plus the
// SignerInfo's own digestAlgorithm, for the bare rsaEncryption/id-ecPublicKey
// producers that don't combine the two) to the x509.SignatureAlgorithm
// Certificate.CheckSignature needs.
func x509SignatureAlgorithm(sigOID asn1.ObjectIdentifier, digestAlg crypto.Hash) (x509.SignatureAlgorithm, error) {
	switch {
	case sigOID.Equal(oidSHA1WithRSA):
		return x509.SHA1WithRSA, nil
	case sigOID.Equal(oidSHA256WithRSA):
		return x509.SHA256WithRSA, nil
	case sigOID.Equal(oidSHA384WithRSA):
		return x509.SHA384WithRSA, nil
	case sigOID.Equal(oidSHA512WithRSA):
		return x509.SHA512WithRSA, nil
	case sigOID.Equal(oidECDSAWithSHA1):
		return x509.ECDSAWithSHA1, nil
	case sigOID.Equal(oidECDSAWithSHA256):
		return x509.ECDSAWithSHA256, nil
	case sigOID.Equal(oidECDSAWithSHA384):
		return x509.ECDSAWithSHA384, nil
	case sigOID.Equal(oidECDSAWithSHA512):
		return x509.ECDSAWithSHA512, nil
	case sigOID.Equal(oidRSAEncryption):
		switch digestAlg {
		case crypto.SHA1:
			return x509.SHA1WithRSA, nil
		case crypto.SHA384:
			return x509.SHA384WithRSA, nil
		case crypto.SHA512:
			return x509.SHA512WithRSA, nil
		default:
			return x509.SHA256WithRSA, nil
		}
	case sigOID.Equal(oidECPublicKey):
		switch digestAlg {
		case crypto.SHA1:
			return x509.ECDSAWithSHA1, nil
		case crypto.SHA384:
			return x509.ECDSAWithSHA384, nil
		case crypto.SHA512:
			return x509.ECDSAWithSHA512, nil
		default:
			return x509.ECDSAWithSHA256, nil
		}
	default:
		return x509.UnknownSignatureAlgorithm, fmt.Errorf("cms: unsupported signature algorithm %v", sigOID)
	}
}
