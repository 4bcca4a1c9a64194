package cms

import (
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// tagImplicitSignedAttrs and tagExplicitSet are the two tag bytes producers
// disagree on for the SignerInfo signedAttrs field: some encode it as
// `[0] IMPLICIT SET OF Attribute` (tag 0xA0 directly followed by the
// attribute TLVs), others as an EXPLICIT `[0]` wrapping an inner
// `SET OF Attribute` (tag 0xA0, then inside it a nested 0x31 SET).
const (
	tagContextConstructed0 = 0xA0
	tagUniversalSet        = 0x31
)

// RecoverSignedAttrsForVerify takes the original bytes of a SignerInfo's
// `[0]` signedAttrs field (however it was tagged in the source CMS) and
// returns the byte sequence that must actually be hashed to verify the
// signature: the content re-tagged as a universal SET OF (tag 0x31), per
// spec.md's requirement that the signature input is the SET encoding, not
// the IMPLICIT context tag. It does not re-encode the TLV contents, only
// swaps the outer tag, so producer-specific attribute ordering and any
// encoder quirks inside the value are preserved byte-for-byte.
func RecoverSignedAttrsForVerify(tagged []byte) ([]byte, error) {
	if len(tagged) < 2 {
		return nil, fmt.Errorf("cms: signedAttrs region too short")
	}
	if tagged[0] != tagContextConstructed0 {
		return nil, fmt.Errorf("cms: signedAttrs region is not tagged [0], got 0x%02x", tagged[0])
	}

	var input cryptobyte.String = tagged
	var outer cryptobyte.String
	if !input.ReadASN1(&outer, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
		return nil, fmt.Errorf("cms: failed to parse [0] tagged signedAttrs")
	}

	// EXPLICIT form: the content of the [0] wrapper is itself a complete
	// SET TLV (tag 0x31, length, attributes) — already exactly the bytes
	// we need, with nothing to rewrite.
	if len(outer) > 0 && outer[0] == tagUniversalSet {
		var probe cryptobyte.String = outer
		var inner cryptobyte.String
		if probe.ReadASN1(&inner, cryptobyte_asn1.SET) && len(probe) == 0 {
			return []byte(outer), nil
		}
	}

	// IMPLICIT form: rewrite the outer tag byte in place to the universal
	// SET tag and recompute nothing else, since length/content are identical.
	rewritten := make([]byte, len(tagged))
	copy(rewritten, tagged)
	rewritten[0] = tagUniversalSet
	return rewritten, nil
}

// ParseAttributes decodes a (tag-normalized) SET OF Attribute region into
// the package's Attribute list, preserving each value's raw DER so callers
// can re-marshal or hash it without a lossy round trip through Go structs.
func ParseAttributes(setDER []byte) ([]Attribute, error) {
	var wrapped []attributeASN1
	if _, err := asn1.UnmarshalWithParams(setDER, &wrapped, "set"); err != nil {
		return nil, fmt.Errorf("cms: parse signed attributes: %w", err)
	}

	var out []Attribute
	for _, w := range wrapped {
		if len(w.Values) != 1 {
			return nil, fmt.Errorf("cms: attribute %v has %d values, expected exactly 1", w.Type, len(w.Values))
		}
		out = append(out, Attribute{Type: w.Type, Value: w.Values[0]})
	}
	return out, nil
}

// Find returns the first attribute with the given OID, and whether it was
// present at all.
func Find(attrs []Attribute, oid asn1.ObjectIdentifier) (Attribute, bool) {
	for _, a := range attrs {
		if a.Type.Equal(oid) {
			return a, true
		}
	}
	return Attribute{}, false
}

// RequireContentTypeAndDigest enforces the invariant that signedAttrs, when
// present, must carry contentType and messageDigest (spec.md §3's
// CmsSignedData invariant).
func RequireContentTypeAndDigest(attrs []Attribute) error {
	if _, ok := Find(attrs, OIDContentType); !ok {
		return fmt.Errorf("SignedAttrsMissingRequired: contentType absent")
	}
	if _, ok := Find(attrs, OIDMessageDigest); !ok {
		return fmt.Errorf("SignedAttrsMissingRequired: messageDigest absent")
	}
	return nil
}
