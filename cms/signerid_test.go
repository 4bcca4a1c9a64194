package cms

import (
	"crypto/x509"
	"testing"

	"github.com/govbr-pades/pades/internal/testpki"
)

func TestSignerIdentifierIssuerAndSerialMatches(t *testing.T) {
	pki := testpki.NewTestPKI(t)
	pki.StartCRLServer()
	defer pki.Close()
	_, leaf := pki.IssueLeaf("Signer A")
	_, other := pki.IssueLeaf("Signer B")

	sid := NewIssuerAndSerialNumber(leaf)
	if !sid.Matches(leaf) {
		t.Fatalf("expected sid to match the certificate it was built from")
	}
	if sid.Matches(other) {
		t.Fatalf("did not expect sid to match an unrelated certificate")
	}
}

func TestSignerIdentifierSubjectKeyIdentifier(t *testing.T) {
	pki := testpki.NewTestPKI(t)
	pki.StartCRLServer()
	defer pki.Close()
	_, leaf := pki.IssueLeaf("SKI Signer")

	if len(leaf.SubjectKeyId) == 0 {
		t.Skip("test leaf has no SubjectKeyId")
	}
	sid, err := NewSubjectKeyIdentifier(leaf)
	if err != nil {
		t.Fatalf("NewSubjectKeyIdentifier: %v", err)
	}
	if !sid.Matches(leaf) {
		t.Fatalf("expected SKI-based sid to match")
	}
}

func TestSelectSignerFallsBackWhenSingleCandidate(t *testing.T) {
	pki := testpki.NewTestPKI(t)
	pki.StartCRLServer()
	defer pki.Close()
	_, leaf := pki.IssueLeaf("Only Candidate")

	// An empty/non-matching SignerIdentifier still resolves when there is
	// exactly one embedded certificate.
	got, err := SelectSigner(SignerIdentifier{}, []*x509.Certificate{leaf})
	if err != nil {
		t.Fatalf("SelectSigner: %v", err)
	}
	if got != leaf {
		t.Fatalf("expected fallback to the sole candidate")
	}
}
