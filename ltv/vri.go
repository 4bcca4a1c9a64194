// Package ltv builds the Document Security Store (/DSS) and per-signature
// Validation Related Information (/VRI) dictionaries PAdES B-LT profiles
// require, and serializes them as PDF objects for an incremental update.
package ltv

import (
	"crypto/sha1" //nolint:gosec // required by the PAdES/ETSI VRI naming convention, not used for security
	"encoding/hex"
	"strings"
)

// VRIName computes the dictionary key a /VRI entry must use for a given
// signature: the upper-case hex SHA-1 digest of the signature's own
// /Contents value (the raw signature bytes, not the document hash), per
// ETSI TS 102 778-4 §4.2 / ISO 32000-2 §12.8.4.3.
func VRIName(signatureContents []byte) string {
	sum := sha1.Sum(signatureContents) //nolint:gosec
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
