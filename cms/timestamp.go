package cms

import "fmt"

// ExtractTimestampToken returns the raw DER bytes of the embedded RFC 3161
// TimeStampToken carried as the `id-aa-signatureTimeStampToken` unsigned
// attribute (OID 1.2.840.113549.1.9.16.2.14), if present. The returned
// bytes are a full CMS ContentInfo/SignedData encapsulating TSTInfo, ready
// to be handed to github.com/digitorus/timestamp's parser.
func ExtractTimestampToken(unsignedAttrs []Attribute) ([]byte, bool, error) {
	attr, ok := Find(unsignedAttrs, OIDSignatureTimeStampToken)
	if !ok {
		return nil, false, nil
	}
	if len(attr.Value.Bytes) == 0 && len(attr.Value.FullBytes) == 0 {
		return nil, false, fmt.Errorf("MalformedSignerInfo: empty signatureTimeStampToken value")
	}
	if len(attr.Value.FullBytes) > 0 {
		return attr.Value.FullBytes, true, nil
	}
	return attr.Value.Bytes, true, nil
}
