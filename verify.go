package pdfsign

import (
	"encoding/asn1"
	"fmt"
	"time"

	"github.com/digitorus/pdf"
	"github.com/govbr-pades/pades/common"
	"github.com/govbr-pades/pades/policy"
	"github.com/govbr-pades/pades/verify"
)

// Verify initializes a VerifyBuilder to configure and execute signature verification.
// The verification process is lazy and only executes when you access the results
// (e.g., via Valid(), Signatures(), or Err()).
func (d *Document) Verify() *VerifyBuilder {
	return &VerifyBuilder{
		doc:           d,
		allowOCSP:     true,
		allowCRL:      true,
		trustEmbedded: false,
	}
}

// execute performs the actual verification if not already done (lazy execution).
// Results are stored in the builder's internal fields.
func (b *VerifyBuilder) execute() {
	if b.executed {
		return
	}
	b.executed = true

	vOpts := verify.DefaultVerifyOptions()

	vOpts.AllowUntrustedRoots = b.trustEmbedded
	vOpts.AllowEmbeddedCertificatesAsRoots = b.trustEmbedded
	vOpts.EnableExternalRevocationCheck = b.externalChecks
	vOpts.ValidateFullChain = b.validateFullChain
	vOpts.ValidateTimestampCertificates = b.validateTimestampCert

	if b.requireDigSig {
		vOpts.RequireDigitalSignatureKU = true
	}
	if b.requireNonRepud {
		vOpts.RequireNonRepudiation = true
	}
	if b.trustSignatureTime {
		vOpts.TrustSignatureTime = true
	}
	if b.allowedEKUs != nil {
		vOpts.AllowedEKUs = b.allowedEKUs
	}
	if b.minRSAKeySize > 0 {
		vOpts.MinRSAKeySize = b.minRSAKeySize
	}
	if b.minECDSAKeySize > 0 {
		vOpts.MinECDSAKeySize = b.minECDSAKeySize
	}
	if b.allowedAlgorithms != nil {
		vOpts.AllowedAlgorithms = b.allowedAlgorithms
	}
	if b.atTime != nil {
		vOpts.AtTime = *b.atTime
	}
	if b.trustedRoots != nil {
		vOpts.TrustedRoots = b.trustedRoots
	}

	if b.doc.rdr == nil {
		if b.doc.reader == nil {
			b.err = fmt.Errorf("verification failed: document reader is nil")
			return
		}
		var err error
		b.doc.rdr, err = pdf.NewReader(b.doc.reader, b.doc.size)
		if err != nil {
			b.err = fmt.Errorf("verification failed: could not open PDF: %w", err)
			return
		}
	}

	// Parse document info.
	var cInfo common.DocumentInfo
	info := b.doc.rdr.Trailer().Key("Info")
	if !info.IsNull() {
		parseRootDocumentInfo(info, &cInfo)
	}
	b.document = DocumentInfo{
		Author:       cInfo.Author,
		Creator:      cInfo.Creator,
		Title:        cInfo.Title,
		Subject:      cInfo.Subject,
		Producer:     cInfo.Producer,
		CreationDate: cInfo.CreationDate,
		ModDate:      cInfo.ModDate,
	}
	pages := b.doc.rdr.Trailer().Key("Root").Key("Pages").Key("Count")
	if !pages.IsNull() {
		b.document.Pages = int(pages.Int64())
	}

	count := 0
	for sig, err := range b.doc.Signatures() {
		if err != nil {
			b.err = fmt.Errorf("verification failed: could not iterate signatures: %w", err)
			return
		}
		count++

		signer, err := verify.VerifySignature(sig.Object(), b.doc.reader, b.doc.size, vOpts)
		if err != nil {
			// A signature field that can't even be parsed is reported as
			// invalid rather than silently skipped, since a gov.br relying
			// party must be told precisely which signatures failed.
			b.signatures = append(b.signatures, SignatureVerifyResult{
				Valid:  false,
				Errors: []error{err},
			})
			continue
		}

		sigResult := SignatureVerifyResult{
			SignatureInfo: SignatureInfo{
				SignerName: signer.Name,
				Reason:     signer.Reason,
				Location:   signer.Location,
				Contact:    signer.ContactInfo,
			},
			Valid:          signer.ValidSignature,
			TrustedChain:   signer.TrustedIssuer,
			Revoked:        signer.RevokedCertificate,
			TimestampValid: signer.TimestampTrusted,
			Warnings:       signer.TimeWarnings,
		}

		for _, ve := range signer.ValidationErrors {
			sigResult.Errors = append(sigResult.Errors, ve)
		}

		if signer.SignatureTime != nil {
			sigResult.SigningTime = *signer.SignatureTime
		}
		if len(signer.Certificates) > 0 {
			sigResult.Certificate = signer.Certificates[0].Certificate
		}

		sigResult.PolicyOID = signer.PolicyOID
		sigResult.PolicyValid = true
		if b.policyLPA != nil && len(signer.PolicyOID) > 0 {
			evalTime := time.Now()
			if signer.VerificationTime != nil {
				evalTime = *signer.VerificationTime
			}
			res := policy.ValidatePolicyWithDigest(b.policyLPA, signer.PolicyOID, evalTime, 0, nil, b.policyStrictDigest)
			sigResult.PolicyValid = res.Valid
			sigResult.PolicyIssues = res.Issues
			if !res.Valid {
				sigResult.Valid = false
				sigResult.Errors = append(sigResult.Errors, &verify.PolicyError{Msg: res.Error})
			}
		}

		b.signatures = append(b.signatures, sigResult)
	}

	if count == 0 {
		b.err = fmt.Errorf("verification failed: document has no AcroForm signature fields")
	}
}

// parseRootDocumentInfo copies the document Info dictionary into a
// common.DocumentInfo, used to populate the builder's own DocumentInfo result.
func parseRootDocumentInfo(v pdf.Value, info *common.DocumentInfo) {
	info.Author = v.Key("Author").Text()
	info.Creator = v.Key("Creator").Text()
	info.Title = v.Key("Title").Text()
	info.Subject = v.Key("Subject").Text()
	info.Producer = v.Key("Producer").Text()

	if d := v.Key("CreationDate"); !d.IsNull() {
		info.CreationDate, _ = parseRootPDFDate(d.Text())
	}
	if d := v.Key("ModDate"); !d.IsNull() {
		info.ModDate, _ = parseRootPDFDate(d.Text())
	}
}

// parseRootPDFDate parses the PDF date format (D:YYYYMMDDHHmmSSOHH'mm').
func parseRootPDFDate(v string) (time.Time, error) {
	return time.Parse("D:20060102150405Z07'00'", v)
}

// VerifyResult contains the result of verification.
type VerifyResult struct {
	Valid      bool
	Signatures []SignatureVerifyResult
	Document   DocumentInfo
}

// SignatureVerifyResult contains the verification result for a single signature.
type SignatureVerifyResult struct {
	SignatureInfo
	Valid          bool
	TrustedChain   bool
	Revoked        bool
	TimestampValid bool
	Errors         []error
	Warnings       []string

	// PolicyOID is the signature's declared ICP-Brasil signature-policy OID,
	// or nil if it did not declare one.
	PolicyOID asn1.ObjectIdentifier
	// PolicyValid reports the outcome of evaluating PolicyOID against the
	// VerifyBuilder's configured Policy LPA; always true (zero Result) when
	// no Policy LPA was configured or the signature declared no policy OID.
	PolicyValid bool
	// PolicyIssues carries the machine-readable warning/error codes from
	// policy evaluation (e.g. "policy_digest_mismatch", "lpa_outdated").
	PolicyIssues []policy.Issue
}

// DocumentInfo contains information about the PDF document extracted from
// its Info dictionary and page tree.
type DocumentInfo struct {
	Author       string
	Creator      string
	Title        string
	Subject      string
	Producer     string
	Pages        int
	CreationDate time.Time
	ModDate      time.Time
}
