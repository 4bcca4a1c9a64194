package pdfsign_test

import (
	"bytes"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"

	"github.com/govbr-pades/pades"
)

// loadTestFiles returns a list of PDF files from testfiles/
func loadTestFiles(t *testing.T) []string {
	files, err := filepath.Glob("testfiles/*.pdf")
	if err != nil {
		t.Fatalf("failed to glob testfiles: %v", err)
	}
	if len(files) == 0 {
		t.Skip("no PDF files found in testfiles/")
	}
	return files
}

// integrationTestConfig holds configuration for a signing scenario.
type integrationTestConfig struct {
	Name   string
	Format pdfsign.Format
	Setup  func(*pdfsign.SignBuilder)
}

func TestIntegration(t *testing.T) {
	cert, chain, key := loadTestCertificateAndChain(t)
	testFiles := loadTestFiles(t)

	scenarios := []integrationTestConfig{
		{
			Name:   "ApprovalBasic",
			Format: pdfsign.PAdES_B,
		},
		{
			Name:   "ApprovalLongTerm",
			Format: pdfsign.PAdES_B_LT,
		},
		{
			Name:   "Certification",
			Format: pdfsign.PAdES_B_LT,
			Setup: func(sb *pdfsign.SignBuilder) {
				sb.Type(pdfsign.CertificationSignature).Permission(pdfsign.AllowFormFilling)
			},
		},
		{
			Name:   "WithVisualAppearance",
			Format: pdfsign.PAdES_B_LT,
			Setup: func(sb *pdfsign.SignBuilder) {
				appearance := pdfsign.NewAppearance(200, 60)
				sb.Appearance(appearance, 1, 50, 50)
			},
		},
	}

	for _, file := range testFiles {
		for _, scenario := range scenarios {
			t.Run(filepath.Base(file)+"/"+scenario.Name, func(t *testing.T) {
				doc, err := pdfsign.OpenFile(file)
				if err != nil {
					t.Fatalf("failed to open %s: %v", file, err)
				}

				sb := doc.Sign(key, cert, chain...).
					Reason("Integration test: " + scenario.Name).
					Location("Sao Paulo").
					SignerName("Integration Signer").
					Format(scenario.Format)
				if scenario.Setup != nil {
					scenario.Setup(sb)
				}

				var buf bytes.Buffer
				result, err := doc.Write(&buf)
				if err != nil {
					t.Fatalf("failed to sign: %v", err)
				}
				if len(result.Signatures) != 1 {
					t.Fatalf("expected 1 signature, got %d", len(result.Signatures))
				}

				signedDoc, err := pdfsign.Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
				if err != nil {
					t.Fatalf("failed to reopen signed document: %v", err)
				}

				verifyResult := signedDoc.Verify().TrustSelfSigned(true)
				if verifyResult.Err() != nil {
					t.Fatalf("verification error: %v", verifyResult.Err())
				}
				if !verifyResult.Valid() {
					for _, s := range verifyResult.Signatures() {
						t.Logf("signature %q valid=%v errors=%v", s.SignerName, s.Valid, s.Errors)
					}
					t.Error("expected signature to be valid")
				}
			})
		}
	}
}

// TestIntegration_MultipleSignatures signs the same document twice in sequence
// and confirms both signatures remain independently verifiable.
func TestIntegration_MultipleSignatures(t *testing.T) {
	testFiles := loadTestFiles(t)
	file := testFiles[0]

	cert1, chain1, key1 := loadTestCertificateAndChain(t)

	doc, err := pdfsign.OpenFile(file)
	if err != nil {
		t.Fatalf("failed to open %s: %v", file, err)
	}
	doc.Sign(key1, cert1, chain1...).
		Type(pdfsign.CertificationSignature).
		Permission(pdfsign.AllowFormFillingAndAnnotations).
		Reason("First signer")

	var buf1 bytes.Buffer
	if _, err := doc.Write(&buf1); err != nil {
		t.Fatalf("failed to sign (1st pass): %v", err)
	}

	cert2, chain2, key2 := loadTestCertificateAndChain(t)

	doc2, err := pdfsign.Open(bytes.NewReader(buf1.Bytes()), int64(buf1.Len()))
	if err != nil {
		t.Fatalf("failed to reopen once-signed document: %v", err)
	}
	doc2.Sign(key2, cert2, chain2...).Reason("Second signer")

	var buf2 bytes.Buffer
	if _, err := doc2.Write(&buf2); err != nil {
		t.Fatalf("failed to sign (2nd pass): %v", err)
	}

	signedDoc, err := pdfsign.Open(bytes.NewReader(buf2.Bytes()), int64(buf2.Len()))
	if err != nil {
		t.Fatalf("failed to reopen twice-signed document: %v", err)
	}

	result := signedDoc.Verify().TrustSelfSigned(true)
	if result.Err() != nil {
		t.Fatalf("verification error: %v", result.Err())
	}
	if result.Count() != 2 {
		t.Fatalf("expected 2 signatures, got %d", result.Count())
	}
	if !result.Valid() {
		t.Error("expected both signatures to be valid")
	}
}

func loadTestCertAndCheckChain(t *testing.T) *x509.Certificate {
	cert, _, _ := loadTestCertificateAndChain(t)
	return cert
}
