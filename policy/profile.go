package policy

import "encoding/asn1"

// Well-known ICP-Brasil AD-Rx signed-attribute OIDs referenced below. These
// are the CMS attribute types RequiredSignedAttrs entries name, not policy
// OIDs themselves.
var (
	oidSigningCertificateV2    = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 47}
	oidSignaturePolicyID       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 15}
	oidSignatureTimeStampToken = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14}
	oidCompleteCertRefs        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 21}
	oidCompleteRevocRefs       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 22}
)

// Profile names the three ICP-Brasil signature profiles in ascending order
// of required evidence, mirroring this library's own B-B/B-T/B-LT tiers.
type Profile string

const (
	ProfileAD_RB Profile = "AD-RB"
	ProfileAD_RT Profile = "AD-RT"
	ProfileAD_RC Profile = "AD-RC"
)

// RequiredAttrsForProfile returns the CMS signed/unsigned attribute OIDs a
// signature must carry to qualify for profile.
//
// spec.md leaves open whether this mapping should be driven from the LPA
// artefact itself or hard-coded from the policy OID's ICP-Brasil naming
// convention (a trailing digit encodes the profile in some ICP-Brasil
// policy families, e.g. "...2.1" for AD-RB vs "...2.2" for AD-RT, but this
// is a convention, not a guaranteed structural property of the OID). This
// library resolves that question in favor of the LPA: PolicyInfo carries
// its own RequiredSignedAttrs when the parsed artefact states them
// explicitly, and RequiredAttrsForProfile below is used only as the
// fallback when a policy entry (or LPA source) doesn't declare them, so a
// future LPA revision that changes per-policy requirements is honored
// without a code change here.
func RequiredAttrsForProfile(p Profile) []asn1.ObjectIdentifier {
	switch p {
	case ProfileAD_RB:
		return []asn1.ObjectIdentifier{oidSigningCertificateV2, oidSignaturePolicyID}
	case ProfileAD_RT:
		return []asn1.ObjectIdentifier{oidSigningCertificateV2, oidSignaturePolicyID, oidSignatureTimeStampToken}
	case ProfileAD_RC:
		return []asn1.ObjectIdentifier{
			oidSigningCertificateV2, oidSignaturePolicyID, oidSignatureTimeStampToken,
			oidCompleteCertRefs, oidCompleteRevocRefs,
		}
	default:
		return nil
	}
}

// ResolveRequiredAttrs returns pi's own RequiredSignedAttrs when the policy
// artefact declared them, falling back to the hard-coded convention for
// fallback when it did not.
func ResolveRequiredAttrs(pi PolicyInfo, fallback Profile) []asn1.ObjectIdentifier {
	if len(pi.RequiredSignedAttrs) > 0 {
		return pi.RequiredSignedAttrs
	}
	return RequiredAttrsForProfile(fallback)
}

// CheckRequiredAttrs reports which of pi's required attribute OIDs are
// absent from present (the OIDs a parsed signature actually carries).
func CheckRequiredAttrs(pi PolicyInfo, fallback Profile, present []asn1.ObjectIdentifier) []asn1.ObjectIdentifier {
	required := ResolveRequiredAttrs(pi, fallback)
	var missing []asn1.ObjectIdentifier
	for _, want := range required {
		found := false
		for _, have := range present {
			if want.Equal(have) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return missing
}
