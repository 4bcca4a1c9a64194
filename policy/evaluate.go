package policy

import (
	"bytes"
	"crypto"
	"encoding/asn1"
	"fmt"
	"time"
)

// Result is the outcome of evaluating a signature against a resolved
// PolicyInfo.
type Result struct {
	Valid   bool
	Error   string
	Issues  []Issue
}

// ValidatePolicy implements spec.md's `validatePolicy(oid, t)`: success iff
// oid is present in the LPA and t falls within its signing period.
func ValidatePolicy(lpa *Lpa, oid asn1.ObjectIdentifier, t time.Time) Result {
	pi, ok := lpa.Find(oid)
	if !ok {
		return Result{Valid: false, Error: fmt.Sprintf("policy %v not found in LPA", oid)}
	}
	if !pi.SigningPeriod.Contains(t) {
		return Result{Valid: false, Error: fmt.Sprintf("policy %v not valid at %s (window %s..%s)",
			oid, t.Format(time.RFC3339), pi.SigningPeriod.NotBefore, pi.SigningPeriod.NotAfter)}
	}
	return Result{Valid: true}
}

// ValidatePolicyWithDigest implements `validatePolicyWithDigest`: the
// signature's own declared policy digest must match the LPA's published
// digest for the policy when strict=true. In non-strict mode a missing
// digest on either side is a warning, not a failure. An outdated LPA
// (NextUpdate < t) is always a warning, never a failure.
func ValidatePolicyWithDigest(lpa *Lpa, oid asn1.ObjectIdentifier, t time.Time, digestAlg crypto.Hash, digestValue []byte, strict bool) Result {
	base := ValidatePolicy(lpa, oid, t)
	if !base.Valid {
		return base
	}

	pi, _ := lpa.Find(oid)
	res := Result{Valid: true}

	if lpa.IsOutdated(t) {
		res.Issues = append(res.Issues, Issue{
			Code: "lpa_outdated", Severity: SeverityWarning,
			Message: fmt.Sprintf("LPA is outdated as of %s (nextUpdate %s)", t.Format(time.RFC3339), lpa.NextUpdate),
		})
	}

	switch {
	case pi.Digest == nil || len(digestValue) == 0:
		msg := "policy digest missing from signature or LPA entry, digest match not verified"
		if strict {
			res.Valid = false
			res.Error = msg
			res.Issues = append(res.Issues, Issue{Code: "policy_digest_missing", Severity: SeverityError, Message: msg})
		} else {
			res.Issues = append(res.Issues, Issue{Code: "policy_digest_missing", Severity: SeverityWarning, Message: msg})
		}
	case !bytes.Equal(pi.Digest.Value, digestValue):
		msg := "Policy digest does not match LPA"
		if strict {
			res.Valid = false
			res.Error = msg
			res.Issues = append(res.Issues, Issue{Code: "policy_digest_mismatch", Severity: SeverityError, Message: msg})
		} else {
			res.Issues = append(res.Issues, Issue{Code: "policy_digest_mismatch", Severity: SeverityWarning, Message: msg})
		}
	}

	return res
}

// ValidateAlgorithm implements `validateAlgorithm`: enforces the policy's
// algorithm/key-length whitelist against the signature/digest algorithm
// OIDs and key size actually used.
func ValidateAlgorithm(lpa *Lpa, oid asn1.ObjectIdentifier, sigAlgOID, digestAlgOID asn1.ObjectIdentifier, keyBits int, t time.Time) Result {
	base := ValidatePolicy(lpa, oid, t)
	if !base.Valid {
		return base
	}
	pi, _ := lpa.Find(oid)
	if len(pi.AlgorithmConstraints) == 0 {
		return Result{Valid: true}
	}

	for _, c := range pi.AlgorithmConstraints {
		sigOK := len(c.SignatureAlgorithmOID) == 0 || c.SignatureAlgorithmOID.Equal(sigAlgOID)
		digestOK := len(c.DigestAlgorithmOID) == 0 || c.DigestAlgorithmOID.Equal(digestAlgOID)
		if sigOK && digestOK {
			if c.MinKeyLengthBits > 0 && keyBits < c.MinKeyLengthBits {
				return Result{
					Valid: false,
					Error: fmt.Sprintf("key length %d bits below policy minimum %d bits", keyBits, c.MinKeyLengthBits),
					Issues: []Issue{{
						Code: "policy_key_too_short", Severity: SeverityError,
						Message: fmt.Sprintf("key length %d bits below policy minimum %d bits", keyBits, c.MinKeyLengthBits),
					}},
				}
			}
			return Result{Valid: true}
		}
	}
	return Result{Valid: false, Error: "signature/digest algorithm combination not permitted by policy"}
}
