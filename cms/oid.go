package cms

import "encoding/asn1"

// Object identifiers used across the CMS SignedData build and parse paths,
// named by their RFC 5652 / RFC 9336 / ETSI designation rather than
// hard-coded as bare dotted strings at each call site.
var (
	OIDData                         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	OIDSignedData                   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	OIDContentType                  = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	OIDMessageDigest                = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	OIDSigningTime                  = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
	OIDSigningCertificateV2         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 47}
	OIDSignaturePolicyID            = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 15}
	OIDSignatureTimeStampToken      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14}
	OIDTSTInfo                      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 1, 4}
	OIDDocumentSigningEKU           = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 36} // RFC 9336
	OIDAuthorityInfoAccessCAIssuers = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 2}
	OIDOCSPSigning                  = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 9}
	OIDRevocationInfoArchival       = asn1.ObjectIdentifier{1, 2, 840, 113583, 1, 1, 8}
)
