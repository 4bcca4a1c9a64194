package ltv

import (
	"crypto/sha256"
	"fmt"
)

// material holds one piece of revocation/certificate evidence by its raw
// DER bytes, deduplicated by content hash so the same CRL or OCSP response
// referenced by several signatures is embedded only once.
type material struct {
	der   []byte
	index int
}

// Store accumulates the certificates, CRLs, OCSP responses, and per-
// signature VRI entries that make up a document's /DSS. Construction is
// incremental: call AddCert/AddCRL/AddOCSP as each signature's validation
// chain is walked, then NewVRI to record which of the now-deduplicated
// entries back a particular signature.
type Store struct {
	certs  []material
	crls   []material
	ocsps  []material
	certBy map[string]int
	crlBy  map[string]int
	ocspBy map[string]int

	vris map[string]*VRI
}

// NewStore returns an empty DSS builder.
func NewStore() *Store {
	return &Store{
		certBy: make(map[string]int),
		crlBy:  make(map[string]int),
		ocspBy: make(map[string]int),
		vris:   make(map[string]*VRI),
	}
}

// VRI is the validation-related-information entry for one signature,
// holding indices into the Store's deduplicated Cert/CRL/OCSP arrays.
type VRI struct {
	Name  string
	Certs []int
	CRLs  []int
	OCSPs []int
	// TU is the optional timestamp of VRI construction (PAdES allows an
	// absent /TU; this library always records one when known).
	TU string
}

func contentKey(der []byte) string {
	sum := sha256.Sum256(der)
	return string(sum[:])
}

// AddCert registers a certificate's DER bytes and returns its index in the
// deduplicated /DSS /Certs array.
func (s *Store) AddCert(der []byte) int {
	return addDeduped(s.certBy, der, &s.certs)
}

// AddCRL registers a CRL's DER bytes and returns its index in the
// deduplicated /DSS /CRLs array.
func (s *Store) AddCRL(der []byte) int {
	return addDeduped(s.crlBy, der, &s.crls)
}

// AddOCSP registers an OCSP response's DER bytes and returns its index in
// the deduplicated /DSS /OCSPs array.
func (s *Store) AddOCSP(der []byte) int {
	return addDeduped(s.ocspBy, der, &s.ocsps)
}

func addDeduped(by map[string]int, der []byte, dst *[]material) int {
	key := contentKey(der)
	if idx, ok := by[key]; ok {
		return idx
	}
	idx := len(*dst)
	by[key] = idx
	*dst = append(*dst, material{der: der, index: idx})
	return idx
}

// NewVRI starts (or returns, if already present) the VRI entry for the
// given signature contents, keyed by VRIName.
func (s *Store) NewVRI(signatureContents []byte) *VRI {
	name := VRIName(signatureContents)
	if v, ok := s.vris[name]; ok {
		return v
	}
	v := &VRI{Name: name}
	s.vris[name] = v
	return v
}

// AddCert appends a cert index (from Store.AddCert) to this VRI's /Cert
// array, avoiding duplicate entries within the same VRI.
func (v *VRI) AddCert(idx int) { v.Certs = appendUnique(v.Certs, idx) }

// AddCRL appends a CRL index (from Store.AddCRL) to this VRI's /CRL array.
func (v *VRI) AddCRL(idx int) { v.CRLs = appendUnique(v.CRLs, idx) }

// AddOCSP appends an OCSP index (from Store.AddOCSP) to this VRI's /OCSP
// array.
func (v *VRI) AddOCSP(idx int) { v.OCSPs = appendUnique(v.OCSPs, idx) }

func appendUnique(s []int, v int) []int {
	for _, existing := range s {
		if existing == v {
			return s
		}
	}
	return append(s, v)
}

// Certs returns the deduplicated certificate DER bytes in index order.
func (s *Store) Certs() [][]byte { return materialBytes(s.certs) }

// CRLs returns the deduplicated CRL DER bytes in index order.
func (s *Store) CRLs() [][]byte { return materialBytes(s.crls) }

// OCSPs returns the deduplicated OCSP response DER bytes in index order.
func (s *Store) OCSPs() [][]byte { return materialBytes(s.ocsps) }

// VRIs returns every recorded VRI entry, keyed by its /VRI dictionary name.
func (s *Store) VRIs() map[string]*VRI { return s.vris }

func materialBytes(items []material) [][]byte {
	out := make([][]byte, len(items))
	for _, m := range items {
		out[m.index] = m.der
	}
	return out
}

// Validate reports a descriptive error if a VRI references an index that
// was never registered, which would otherwise produce a dangling PDF
// object reference.
func (s *Store) Validate() error {
	for name, v := range s.vris {
		for _, idx := range v.Certs {
			if idx < 0 || idx >= len(s.certs) {
				return fmt.Errorf("VRI %s references out-of-range cert index %d", name, idx)
			}
		}
		for _, idx := range v.CRLs {
			if idx < 0 || idx >= len(s.crls) {
				return fmt.Errorf("VRI %s references out-of-range CRL index %d", name, idx)
			}
		}
		for _, idx := range v.OCSPs {
			if idx < 0 || idx >= len(s.ocsps) {
				return fmt.Errorf("VRI %s references out-of-range OCSP index %d", name, idx)
			}
		}
	}
	return nil
}
