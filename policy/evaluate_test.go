package policy

import (
	"crypto"
	"encoding/asn1"
	"testing"
	"time"
)

func testLPA() *Lpa {
	return &Lpa{
		NextUpdate: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		PolicyInfos: []PolicyInfo{
			{
				OID: asn1.ObjectIdentifier{2, 16, 76, 1, 7, 1, 1, 2, 1},
				SigningPeriod: SigningPeriod{
					NotBefore: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
					NotAfter:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				},
				Digest: &PolicyDigest{Value: []byte("digest-bytes")},
				AlgorithmConstraints: []AlgorithmConstraint{
					{MinKeyLengthBits: 2048},
				},
			},
		},
	}
}

func TestValidatePolicy(t *testing.T) {
	lpa := testLPA()
	oid := asn1.ObjectIdentifier{2, 16, 76, 1, 7, 1, 1, 2, 1}

	inside := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if res := ValidatePolicy(lpa, oid, inside); !res.Valid {
		t.Fatalf("expected valid result inside signing period, got %+v", res)
	}

	outside := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if res := ValidatePolicy(lpa, oid, outside); res.Valid {
		t.Fatalf("expected invalid result outside signing period")
	}

	unknown := asn1.ObjectIdentifier{1, 2, 3}
	if res := ValidatePolicy(lpa, unknown, inside); res.Valid {
		t.Fatalf("expected invalid result for unknown policy OID")
	}
}

func TestValidatePolicyWithDigestStrictMismatch(t *testing.T) {
	lpa := testLPA()
	oid := asn1.ObjectIdentifier{2, 16, 76, 1, 7, 1, 1, 2, 1}
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	res := ValidatePolicyWithDigest(lpa, oid, t0, crypto.SHA256, []byte("wrong-bytes"), true)
	if res.Valid {
		t.Fatalf("expected digest mismatch to fail in strict mode")
	}
	if res.Error != "Policy digest does not match LPA" {
		t.Fatalf("unexpected error message: %q", res.Error)
	}
}

func TestValidatePolicyWithDigestNonStrictMismatchWarns(t *testing.T) {
	lpa := testLPA()
	oid := asn1.ObjectIdentifier{2, 16, 76, 1, 7, 1, 1, 2, 1}
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	res := ValidatePolicyWithDigest(lpa, oid, t0, crypto.SHA256, []byte("wrong-bytes"), false)
	if !res.Valid {
		t.Fatalf("expected non-strict mismatch to still be valid, got %+v", res)
	}
	found := false
	for _, issue := range res.Issues {
		if issue.Code == "policy_digest_mismatch" && issue.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a policy_digest_mismatch warning issue, got %+v", res.Issues)
	}
}

func TestValidatePolicyWithDigestOutdatedLPAWarns(t *testing.T) {
	lpa := testLPA()
	oid := asn1.ObjectIdentifier{2, 16, 76, 1, 7, 1, 1, 2, 1}
	afterNextUpdate := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	// Move the signing period forward so afterNextUpdate still falls inside it.
	lpa.PolicyInfos[0].SigningPeriod.NotAfter = time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC)

	res := ValidatePolicyWithDigest(lpa, oid, afterNextUpdate, crypto.SHA256, []byte("digest-bytes"), true)
	if !res.Valid {
		t.Fatalf("expected digest match to still be valid, got %+v", res)
	}
	found := false
	for _, issue := range res.Issues {
		if issue.Code == "lpa_outdated" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an lpa_outdated issue, got %+v", res.Issues)
	}
}

func TestValidateAlgorithmRejectsShortKey(t *testing.T) {
	lpa := testLPA()
	oid := asn1.ObjectIdentifier{2, 16, 76, 1, 7, 1, 1, 2, 1}
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	res := ValidateAlgorithm(lpa, oid, nil, nil, 1024, t0)
	if res.Valid {
		t.Fatalf("expected a 1024-bit key to be rejected by a 2048-bit minimum")
	}
	if len(res.Issues) != 1 || res.Issues[0].Code != "policy_key_too_short" {
		t.Fatalf("expected a policy_key_too_short issue, got %+v", res.Issues)
	}
}

func TestValidateAlgorithmAcceptsSufficientKey(t *testing.T) {
	lpa := testLPA()
	oid := asn1.ObjectIdentifier{2, 16, 76, 1, 7, 1, 1, 2, 1}
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	res := ValidateAlgorithm(lpa, oid, nil, nil, 2048, t0)
	if !res.Valid {
		t.Fatalf("expected a 2048-bit key to satisfy a 2048-bit minimum, got %+v", res)
	}
}
