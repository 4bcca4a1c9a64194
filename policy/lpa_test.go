package policy

import (
	"encoding/asn1"
	"testing"
	"time"
)

const sampleLPAXML = `<?xml version="1.0" encoding="ISO-8859-1"?>
<signaturePolicies nextUpdate="2026-12-31T00:00:00Z">
  <signaturePolicy>
    <oid>2.16.76.1.7.1.1.2.1</oid>
    <url>http://politicas.icpbrasil.gov.br/PA_AD_RB_v2_3.der</url>
    <notBefore>2017-01-01T00:00:00Z</notBefore>
    <notAfter>2030-01-01T00:00:00Z</notAfter>
    <digestAlgorithm>2.16.840.1.101.3.4.2.1</digestAlgorithm>
    <digestValue>q83vASNFZ4mrze8BI0VniavN7w==</digestValue>
  </signaturePolicy>
  <signaturePolicy>
    <oid>2.16.76.1.7.1.1.2.2</oid>
    <url>http://politicas.icpbrasil.gov.br/PA_AD_RT_v2_3.der</url>
    <notBefore>2017-01-01T00:00:00Z</notBefore>
    <notAfter>2030-01-01T00:00:00Z</notAfter>
  </signaturePolicy>
</signaturePolicies>`

func TestParseLPAXML(t *testing.T) {
	lpa, err := ParseLPAXML([]byte(sampleLPAXML))
	if err != nil {
		t.Fatalf("ParseLPAXML: %v", err)
	}
	if len(lpa.PolicyInfos) != 2 {
		t.Fatalf("expected 2 policies, got %d", len(lpa.PolicyInfos))
	}
	if !lpa.NextUpdate.Equal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected nextUpdate: %v", lpa.NextUpdate)
	}

	rb, ok := lpa.Find(mustOID(t, "2.16.76.1.7.1.1.2.1"))
	if !ok {
		t.Fatalf("expected to find AD-RB policy")
	}
	if rb.Digest == nil || len(rb.Digest.Value) != 16 {
		t.Fatalf("expected a decoded 16-byte digest, got %v", rb.Digest)
	}

	rt, ok := lpa.Find(mustOID(t, "2.16.76.1.7.1.1.2.2"))
	if !ok {
		t.Fatalf("expected to find AD-RT policy")
	}
	if rt.Digest != nil {
		t.Fatalf("expected AD-RT entry to have no digest")
	}
}

func TestParseLPAXMLRejectsBadOID(t *testing.T) {
	bad := `<signaturePolicies nextUpdate="2026-01-01T00:00:00Z">
  <signaturePolicy>
    <oid>not-an-oid</oid>
    <url>http://example/policy.der</url>
    <notBefore>2017-01-01T00:00:00Z</notBefore>
    <notAfter>2030-01-01T00:00:00Z</notAfter>
  </signaturePolicy>
</signaturePolicies>`
	if _, err := ParseLPAXML([]byte(bad)); err == nil {
		t.Fatalf("expected an error for a malformed OID")
	}
}

func TestParseOIDString(t *testing.T) {
	oid, err := parseOIDString("2.16.76.1.7.1.1.2.1")
	if err != nil {
		t.Fatalf("parseOIDString: %v", err)
	}
	want := mustOID(t, "2.16.76.1.7.1.1.2.1")
	if !oid.Equal(want) {
		t.Fatalf("got %v, want %v", oid, want)
	}

	for _, bad := range []string{"", "1", "1.", ".1.2", "1.a.2"} {
		if _, err := parseOIDString(bad); err == nil {
			t.Fatalf("expected parseOIDString(%q) to fail", bad)
		}
	}
}

func mustOID(t *testing.T, s string) asn1.ObjectIdentifier {
	t.Helper()
	oid, err := parseOIDString(s)
	if err != nil {
		t.Fatalf("mustOID(%q): %v", s, err)
	}
	return oid
}
