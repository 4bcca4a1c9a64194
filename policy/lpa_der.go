package policy

import (
	"encoding/asn1"
	"fmt"
	"time"
)

// DER shapes below mirror the ITI LPA_CAdES.der structure closely enough
// for parsing purposes: a SEQUENCE of policy entries plus a next-update
// GeneralizedTime, each entry naming an OID, an optional URI, a validity
// period, and an optional policy digest.
type lpaDER struct {
	NextUpdate time.Time `asn1:"generalized"`
	Policies   []policyInfoDER
}

type policyInfoDER struct {
	OID           asn1.ObjectIdentifier
	URI           string `asn1:"optional,ia5"`
	NotBefore     time.Time `asn1:"generalized"`
	NotAfter      time.Time `asn1:"generalized"`
	DigestAlg     asn1.ObjectIdentifier `asn1:"optional"`
	DigestValue   []byte                `asn1:"optional"`
}

// ParseLPADER parses an ITI-published LPA in its DER encoding.
func ParseLPADER(der []byte) (*Lpa, error) {
	var parsed lpaDER
	rest, err := asn1.Unmarshal(der, &parsed)
	if err != nil {
		return nil, fmt.Errorf("ParseError: malformed LPA DER: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("ParseError: %d trailing bytes after LPA DER", len(rest))
	}

	lpa := &Lpa{NextUpdate: parsed.NextUpdate}
	for _, p := range parsed.Policies {
		pi := PolicyInfo{
			OID: p.OID,
			URI: p.URI,
			SigningPeriod: SigningPeriod{
				NotBefore: p.NotBefore,
				NotAfter:  p.NotAfter,
			},
		}
		if len(p.DigestValue) > 0 {
			pi.Digest = &PolicyDigest{AlgorithmOID: p.DigestAlg, Value: p.DigestValue}
		}
		lpa.PolicyInfos = append(lpa.PolicyInfos, pi)
	}
	return lpa, nil
}
