// Package chain builds and verifies X.509 certificate paths explicitly by
// Authority/Subject Key Identifier and issuer/subject distinguished name,
// rather than relying solely on crypto/x509.Certificate.Verify's implicit
// graph search. This gives callers a path they can inspect (for LTV
// archival, for CPF/CN extraction) independently of whether that path is
// ultimately anchored in a trusted root.
package chain

import (
	"bytes"
	"crypto/x509"
	"fmt"
	"time"
)

// Path is an ordered leaf-to-root certificate chain.
type Path []*x509.Certificate

// Leaf returns the end-entity certificate, or nil for an empty path.
func (p Path) Leaf() *x509.Certificate {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

// Root returns the outermost certificate in the path, or nil if empty.
func (p Path) Root() *x509.Certificate {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// Options configures path building and verification.
type Options struct {
	// ClockSkew is the tolerance applied to notBefore/notAfter checks.
	// Defaults to 5 minutes when zero.
	ClockSkew time.Duration
}

func (o Options) skew() time.Duration {
	if o.ClockSkew == 0 {
		return 5 * time.Minute
	}
	return o.ClockSkew
}

// BuildPath finds a leaf-to-root path starting at leaf using candidates as
// the pool of possible issuers (which may include the trust anchors
// themselves). It stops as soon as it reaches a self-signed certificate or
// a certificate present in roots. Matching prefers AKI.keyId == parent's
// SKI.keyId; when neither certificate carries those extensions, or no AKI
// match is found, it falls back to issuer DN == subject DN byte equality.
// When both AKI/SKI and DN are present on a parent candidate, both must
// agree with the child for the match to be accepted. A certificate already
// present in the path cannot be reused (cycle guard).
func BuildPath(leaf *x509.Certificate, candidates []*x509.Certificate, roots []*x509.Certificate) (Path, error) {
	if leaf == nil {
		return nil, fmt.Errorf("chain: leaf certificate is nil")
	}

	path := Path{leaf}
	visited := map[string]bool{fingerprint(leaf): true}

	current := leaf
	for {
		if isSelfSigned(current) {
			return path, nil
		}
		if inSet(current, roots) && current != leaf {
			return path, nil
		}

		parent, err := findIssuer(current, candidates, visited)
		if err != nil {
			if inSet(current, roots) {
				return path, nil
			}
			return path, fmt.Errorf("chain: %w (path so far has %d certificate(s))", err, len(path))
		}

		path = append(path, parent)
		visited[fingerprint(parent)] = true
		current = parent

		if len(path) > 32 {
			return nil, fmt.Errorf("chain: path exceeds maximum depth, possible cycle")
		}
	}
}

func findIssuer(child *x509.Certificate, candidates []*x509.Certificate, visited map[string]bool) (*x509.Certificate, error) {
	var akiMatch, dnMatch *x509.Certificate

	for _, cand := range candidates {
		if visited[fingerprint(cand)] {
			continue
		}

		akiOK := len(child.AuthorityKeyId) > 0 && len(cand.SubjectKeyId) > 0 && bytes.Equal(child.AuthorityKeyId, cand.SubjectKeyId)
		dnOK := bytes.Equal(child.RawIssuer, cand.RawSubject)

		switch {
		case len(child.AuthorityKeyId) > 0 && len(cand.SubjectKeyId) > 0:
			// Both extensions present: they must agree to accept the match.
			if akiOK && dnOK {
				akiMatch = cand
			}
		case akiOK:
			akiMatch = cand
		case dnOK:
			if dnMatch == nil {
				dnMatch = cand
			}
		}
	}

	if akiMatch != nil {
		return akiMatch, nil
	}
	if dnMatch != nil {
		return dnMatch, nil
	}
	return nil, fmt.Errorf("ChainIncomplete: no issuer found for %q", child.Subject.CommonName)
}

// VerifyAt checks signature linkage, validity windows, and CA constraints
// for every consecutive pair in path at time t. It does not consult any
// trust store; pair-wise cryptographic and structural validity only.
func VerifyAt(path Path, t time.Time, opts Options) error {
	skew := opts.skew()
	for i, cert := range path {
		if t.Before(cert.NotBefore.Add(-skew)) || t.After(cert.NotAfter.Add(skew)) {
			return fmt.Errorf("InvariantViolated: certificate %q not valid at %s (window %s..%s)",
				cert.Subject.CommonName, t.Format(time.RFC3339), cert.NotBefore, cert.NotAfter)
		}

		if i+1 >= len(path) {
			continue
		}
		parent := path[i+1]

		if err := cert.CheckSignatureFrom(parent); err != nil {
			return fmt.Errorf("CryptoFailure: signature of %q not valid under %q: %w",
				cert.Subject.CommonName, parent.Subject.CommonName, err)
		}

		if !parent.IsCA {
			return fmt.Errorf("InvariantViolated: issuer %q is not a CA", parent.Subject.CommonName)
		}
		if parent.KeyUsage != 0 && parent.KeyUsage&x509.KeyUsageCertSign == 0 {
			return fmt.Errorf("InvariantViolated: issuer %q lacks keyCertSign", parent.Subject.CommonName)
		}
		hasPathLenConstraint := parent.MaxPathLen >= 0 || parent.MaxPathLenZero
		if hasPathLenConstraint && i+1 < len(path)-1 {
			// parent is an intermediate (not the root); enforce pathLenConstraint
			// against the number of intermediates still below it.
			remainingIntermediates := (len(path) - 1) - (i + 1)
			if remainingIntermediates > parent.MaxPathLen {
				return fmt.Errorf("InvariantViolated: pathLenConstraint of %q exceeded", parent.Subject.CommonName)
			}
		}
	}
	return nil
}

// isSelfSigned reports whether cert's subject equals its issuer and its
// signature verifies under its own public key.
func isSelfSigned(cert *x509.Certificate) bool {
	if !bytes.Equal(cert.RawSubject, cert.RawIssuer) {
		return false
	}
	return cert.CheckSignatureFrom(cert) == nil
}

func inSet(cert *x509.Certificate, set []*x509.Certificate) bool {
	for _, c := range set {
		if bytes.Equal(c.Raw, cert.Raw) {
			return true
		}
	}
	return false
}

func fingerprint(cert *x509.Certificate) string {
	return string(cert.Raw)
}

// AIAFetcher downloads the bytes at a CA Issuers (id-ad-caIssuers) URL,
// found in a certificate's Authority Information Access extension. The
// core never calls sockets directly; callers inject an implementation
// backed by whatever HTTP transport (or cache) they prefer.
type AIAFetcher func(url string) ([]byte, error)

// AugmentWithAIA is called when BuildPath fails because an intermediate is
// missing from candidates. It follows the leaf's (and, on retry, each new
// certificate's) IssuingCertificateURL entries, parses what comes back as
// one or more DER certificates, and returns the enlarged candidate set.
// Per spec, this is attempted only once: callers that still can't complete
// a path after calling this should surface ChainIncomplete.
func AugmentWithAIA(leaf *x509.Certificate, candidates []*x509.Certificate, fetch AIAFetcher) ([]*x509.Certificate, error) {
	if fetch == nil {
		return candidates, fmt.Errorf("chain: no AIA fetcher configured")
	}

	seen := map[string]bool{}
	for _, c := range candidates {
		seen[fingerprint(c)] = true
	}

	var fetched []*x509.Certificate
	for _, url := range leaf.IssuingCertificateURL {
		body, err := fetch(url)
		if err != nil {
			continue
		}
		certs, err := x509.ParseCertificates(body)
		if err != nil {
			continue
		}
		for _, c := range certs {
			if !seen[fingerprint(c)] {
				seen[fingerprint(c)] = true
				fetched = append(fetched, c)
			}
		}
	}
	if len(fetched) == 0 {
		return candidates, fmt.Errorf("chain: AIA fetch produced no usable certificates")
	}
	return append(candidates, fetched...), nil
}
