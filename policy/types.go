// Package policy implements ICP-Brasil signature-policy (LPA, Lista de
// Políticas de Assinatura) parsing and evaluation: mapping a signature's
// declared policy OID to the period in which it was valid, its mandated
// digest algorithm constraints, and (for XML artefacts) ETSI qualifying
// property requirements.
package policy

import (
	"encoding/asn1"
	"time"
)

// SigningPeriod is the inclusive window during which a policy OID was the
// approved choice for new signatures.
type SigningPeriod struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// Contains reports whether t falls within the period.
func (p SigningPeriod) Contains(t time.Time) bool {
	return !t.Before(p.NotBefore) && !t.After(p.NotAfter)
}

// PolicyDigest is the published hash of the policy document itself, used to
// detect a forged or stale local copy of the policy artefact the signer
// claims to have signed against.
type PolicyDigest struct {
	AlgorithmOID asn1.ObjectIdentifier
	Value        []byte
}

// AlgorithmConstraint restricts which signature/digest algorithm a
// signature under this policy may use, and the minimum key length.
type AlgorithmConstraint struct {
	SignatureAlgorithmOID asn1.ObjectIdentifier
	DigestAlgorithmOID    asn1.ObjectIdentifier
	MinKeyLengthBits       int
}

// PolicyInfo describes one approved signature policy.
type PolicyInfo struct {
	OID                 asn1.ObjectIdentifier
	URI                 string
	SigningPeriod       SigningPeriod
	Digest              *PolicyDigest
	AlgorithmConstraints []AlgorithmConstraint

	// RequiredSignedAttrs names the CMS signed attributes ICP-Brasil
	// requires for signatures built under this policy (AD-RB/AD-RT/AD-RC),
	// driven from the policy artefact rather than hard-coded by OID
	// substring, per spec.md's open question on this point.
	RequiredSignedAttrs []asn1.ObjectIdentifier
}

// Lpa is a parsed Signature Policy List.
type Lpa struct {
	NextUpdate  time.Time
	PolicyInfos []PolicyInfo
}

// Find returns the PolicyInfo for oid, if present.
func (l *Lpa) Find(oid asn1.ObjectIdentifier) (PolicyInfo, bool) {
	for _, pi := range l.PolicyInfos {
		if pi.OID.Equal(oid) {
			return pi, true
		}
	}
	return PolicyInfo{}, false
}

// IsOutdated reports whether the LPA's own NextUpdate has passed as of t.
func (l *Lpa) IsOutdated(t time.Time) bool {
	return !l.NextUpdate.IsZero() && l.NextUpdate.Before(t)
}

// Severity classifies an Issue.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is a structured, machine-readable policy evaluation finding.
type Issue struct {
	Code     string
	Message  string
	Severity Severity
}
