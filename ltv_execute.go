package pdfsign

import (
	"bytes"
	"crypto/x509"
	"fmt"
	"io"

	pdflib "github.com/digitorus/pdf"
	"github.com/govbr-pades/pades/chain"
	"github.com/govbr-pades/pades/extract"
	"github.com/govbr-pades/pades/ltv"
	"github.com/govbr-pades/pades/sign"
)

// appendLTV embeds a /DSS (and accompanying /VRI) into signedBytes covering
// the signature just produced by signData, enabling PAdES-B-LTA long-term
// validation, then writes the resulting document to output. It is called
// immediately after a PAdES_B_LTA signature is produced, operating on that
// signature's own chain and revocation evidence; it does not (yet) gather
// evidence for signatures from earlier, independent Write() calls.
func appendLTV(signedBytes []byte, signData sign.SignData, output io.Writer) error {
	rdr, err := pdflib.NewReader(bytes.NewReader(signedBytes), int64(len(signedBytes)))
	if err != nil {
		return fmt.Errorf("failed to reopen signed document for LTV: %w", err)
	}

	contents, err := lastSignatureContents(rdr, bytes.NewReader(signedBytes))
	if err != nil {
		return fmt.Errorf("failed to locate signature for LTV: %w", err)
	}

	store := ltv.NewStore()
	if err := store.AddSignatureEvidence(contents, revocationPath(signData), nil); err != nil {
		return fmt.Errorf("failed to record LTV evidence: %w", err)
	}

	return sign.EnableLTV(bytes.NewReader(signedBytes), output, rdr, store)
}

// revocationPath walks signData's certificate chain (leaf first, as built
// by Document.Sign) via the explicit path builder and collects CRL/OCSP
// evidence for every certificate on it, for archival in the /DSS.
func revocationPath(signData sign.SignData) []ltv.CertificateSource {
	if signData.Certificate == nil {
		return nil
	}

	candidates := []*x509.Certificate{signData.Certificate}
	if len(signData.CertificateChains) > 0 {
		candidates = signData.CertificateChains[0]
	}

	path, err := chain.BuildPath(signData.Certificate, candidates, nil)
	if err != nil || len(path) == 0 {
		path = chain.Path{signData.Certificate}
	}

	sources := make([]ltv.CertificateSource, 0, len(path))
	for i, cert := range path {
		var issuer *x509.Certificate
		if i+1 < len(path) {
			issuer = path[i+1]
		}
		crls, ocsps := sign.FetchCertificateRevocation(cert, issuer)
		sources = append(sources, ltv.CertificateSource{Cert: cert, CRLs: crls, OCSPs: ocsps})
	}
	return sources
}

// lastSignatureContents returns the raw CMS bytes of the signature dictionary
// with the outermost (largest) byte range in the document, i.e. the one
// most recently added.
func lastSignatureContents(rdr *pdflib.Reader, file io.ReaderAt) ([]byte, error) {
	var contents []byte
	var widest int64

	for sig, err := range extract.Iter(rdr, file) {
		if err != nil {
			continue
		}
		br := sig.ByteRange()
		if len(br) < 4 {
			continue
		}
		end := br[2] + br[3]
		if end >= widest {
			widest = end
			contents = sig.Contents()
		}
	}

	if contents == nil {
		return nil, fmt.Errorf("no signature found in document")
	}
	return contents, nil
}
