package ltv

import (
	"crypto/x509"
	"fmt"

	"github.com/digitorus/timestamp"
	"github.com/govbr-pades/pades/cms"
)

// CertificateSource supplies the revocation evidence for one certificate in
// a signature's validation chain, mirroring the data sign.embedRevocationStatus
// gathers per-signature but reused here to populate the document-wide /DSS
// instead of an in-CMS revocation.InfoArchival.
type CertificateSource struct {
	Cert  *x509.Certificate
	CRLs  [][]byte
	OCSPs [][]byte
}

// AddSignatureEvidence records one signature's full validation chain
// (leaf-to-root, as returned by chain.BuildPath) plus each certificate's
// revocation evidence and an optional RFC 3161 timestamp token covering the
// signature, creating or updating that signature's VRI entry.
//
// signatureContents must be the raw bytes that went into the PDF's
// /Contents hex string (the CMS SignedData), the same input VRIName hashes.
func (s *Store) AddSignatureEvidence(signatureContents []byte, path []CertificateSource, tsTokenDER []byte) error {
	if len(signatureContents) == 0 {
		return fmt.Errorf("ltv: signatureContents must not be empty")
	}
	vri := s.NewVRI(signatureContents)

	for _, cs := range path {
		if cs.Cert == nil {
			continue
		}
		certIdx := s.AddCert(cs.Cert.Raw)
		vri.AddCert(certIdx)
		for _, crl := range cs.CRLs {
			vri.AddCRL(s.AddCRL(crl))
		}
		for _, ocsp := range cs.OCSPs {
			vri.AddOCSP(s.AddOCSP(ocsp))
		}
	}

	if len(tsTokenDER) > 0 {
		if err := s.addTimestampEvidence(vri, tsTokenDER); err != nil {
			return err
		}
	}

	return nil
}

// addTimestampEvidence extends vri with the TSA certificate chain embedded
// in an RFC 3161 token, so the timestamp itself can be validated at
// verification time without a live network fetch.
func (s *Store) addTimestampEvidence(vri *VRI, tsTokenDER []byte) error {
	if _, err := timestamp.Parse(tsTokenDER); err != nil {
		return fmt.Errorf("ltv: parsing timestamp token: %w", err)
	}
	sd, err := cms.ParseSignedData(tsTokenDER)
	if err != nil {
		return fmt.Errorf("ltv: parsing timestamp token as CMS SignedData: %w", err)
	}
	for _, cert := range sd.Certificates {
		vri.AddCert(s.AddCert(cert.Raw))
	}
	return nil
}
