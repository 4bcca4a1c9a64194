package policy

import (
	"bytes"
	"encoding/asn1"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// lpaXML mirrors the shape of ITI's LPAv2.xml Signature Policy List: a
// flat sequence of signaturePolicy elements, each naming the policy's OID,
// publication URL, validity window, and (optionally) its own digest so a
// locally cached copy of the policy document can be authenticated.
type lpaXML struct {
	XMLName     xml.Name       `xml:"signaturePolicies"`
	NextUpdate  string         `xml:"nextUpdate,attr"`
	Policies    []policyXML    `xml:"signaturePolicy"`
}

type policyXML struct {
	OID         string `xml:"oid"`
	URL         string `xml:"url"`
	NotBefore   string `xml:"notBefore"`
	NotAfter    string `xml:"notAfter"`
	DigestAlg   string `xml:"digestAlgorithm"`
	DigestValue string `xml:"digestValue"`
}

// ParseLPAXML parses an ITI-published LPAv2.xml document. ITI publishes the
// file in Windows-1252 (legacy Latin-1 superset); callers that already know
// their input is UTF-8 can still pass it through unharmed since the
// Windows-1252 decode table maps ASCII identically.
func ParseLPAXML(data []byte) (*Lpa, error) {
	decoded, err := decodeWindows1252(data)
	if err != nil {
		return nil, fmt.Errorf("ParseError: failed to decode LPA XML charset: %w", err)
	}

	var parsed lpaXML
	if err := xml.Unmarshal(decoded, &parsed); err != nil {
		return nil, fmt.Errorf("ParseError: malformed LPA XML: %w", err)
	}

	lpa := &Lpa{}
	if parsed.NextUpdate != "" {
		nu, err := time.Parse(time.RFC3339, parsed.NextUpdate)
		if err != nil {
			return nil, fmt.Errorf("ParseError: invalid nextUpdate %q: %w", parsed.NextUpdate, err)
		}
		lpa.NextUpdate = nu
	}

	for _, p := range parsed.Policies {
		oid, err := parseOIDString(p.OID)
		if err != nil {
			return nil, fmt.Errorf("ParseError: policy entry %q: %w", p.URL, err)
		}
		notBefore, err := time.Parse(time.RFC3339, p.NotBefore)
		if err != nil {
			return nil, fmt.Errorf("ParseError: invalid notBefore for policy %s: %w", p.OID, err)
		}
		notAfter, err := time.Parse(time.RFC3339, p.NotAfter)
		if err != nil {
			return nil, fmt.Errorf("ParseError: invalid notAfter for policy %s: %w", p.OID, err)
		}

		pi := PolicyInfo{
			OID:           oid,
			URI:           p.URL,
			SigningPeriod: SigningPeriod{NotBefore: notBefore, NotAfter: notAfter},
		}
		if p.DigestValue != "" {
			digestAlgOID, err := parseOIDString(p.DigestAlg)
			if err != nil {
				return nil, fmt.Errorf("ParseError: invalid digestAlgorithm for policy %s: %w", p.OID, err)
			}
			raw, err := base64.StdEncoding.DecodeString(p.DigestValue)
			if err != nil {
				return nil, fmt.Errorf("ParseError: invalid digestValue for policy %s: %w", p.OID, err)
			}
			pi.Digest = &PolicyDigest{AlgorithmOID: digestAlgOID, Value: raw}
		}
		lpa.PolicyInfos = append(lpa.PolicyInfos, pi)
	}
	return lpa, nil
}

func decodeWindows1252(data []byte) ([]byte, error) {
	reader := transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder())
	return io.ReadAll(reader)
}

// parseOIDString parses a dotted-decimal OID string ("2.16.76.1.7.1.1.2.1")
// into an asn1.ObjectIdentifier, the form the XML artefact uses in place of
// DER-encoded OIDs.
func parseOIDString(s string) (asn1.ObjectIdentifier, error) {
	var oid asn1.ObjectIdentifier
	component := 0
	sawDigit := false
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if !sawDigit {
				return nil, fmt.Errorf("invalid OID %q", s)
			}
			oid = append(oid, component)
			component = 0
			sawDigit = false
			continue
		}
		c := s[i]
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("invalid OID %q: unexpected character %q", s, c)
		}
		component = component*10 + int(c-'0')
		sawDigit = true
	}
	if len(oid) < 2 {
		return nil, fmt.Errorf("invalid OID %q: need at least two components", s)
	}
	return oid, nil
}
