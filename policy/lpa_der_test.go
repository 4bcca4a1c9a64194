package policy

import (
	"encoding/asn1"
	"testing"
	"time"
)

func TestParseLPADERRoundTrip(t *testing.T) {
	notBefore := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	notAfter := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	nextUpdate := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	encoded, err := asn1.Marshal(lpaDER{
		NextUpdate: nextUpdate,
		Policies: []policyInfoDER{
			{
				OID:         asn1.ObjectIdentifier{2, 16, 76, 1, 7, 1, 1, 2, 1},
				URI:         "http://politicas.icpbrasil.gov.br/PA_AD_RB_v2_3.der",
				NotBefore:   notBefore,
				NotAfter:    notAfter,
				DigestAlg:   asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1},
				DigestValue: []byte("0123456789abcdef"),
			},
		},
	})
	if err != nil {
		t.Fatalf("asn1.Marshal: %v", err)
	}

	lpa, err := ParseLPADER(encoded)
	if err != nil {
		t.Fatalf("ParseLPADER: %v", err)
	}
	if !lpa.NextUpdate.Equal(nextUpdate) {
		t.Fatalf("unexpected nextUpdate: %v", lpa.NextUpdate)
	}
	if len(lpa.PolicyInfos) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(lpa.PolicyInfos))
	}
	pi := lpa.PolicyInfos[0]
	if pi.Digest == nil || string(pi.Digest.Value) != "0123456789abcdef" {
		t.Fatalf("unexpected digest: %v", pi.Digest)
	}
	if !pi.SigningPeriod.NotBefore.Equal(notBefore) || !pi.SigningPeriod.NotAfter.Equal(notAfter) {
		t.Fatalf("unexpected signing period: %+v", pi.SigningPeriod)
	}
}

func TestParseLPADERRejectsTrailingBytes(t *testing.T) {
	encoded, err := asn1.Marshal(lpaDER{
		NextUpdate: time.Now().UTC(),
		Policies:   nil,
	})
	if err != nil {
		t.Fatalf("asn1.Marshal: %v", err)
	}
	encoded = append(encoded, 0xFF)
	if _, err := ParseLPADER(encoded); err == nil {
		t.Fatalf("expected trailing bytes to be rejected")
	}
}

func TestParseLPADERRejectsGarbage(t *testing.T) {
	if _, err := ParseLPADER([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Fatalf("expected malformed DER to be rejected")
	}
}
