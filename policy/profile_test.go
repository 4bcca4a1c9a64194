package policy

import (
	"encoding/asn1"
	"testing"
)

func TestResolveRequiredAttrsUsesLPAWhenPresent(t *testing.T) {
	custom := asn1.ObjectIdentifier{1, 2, 3, 4}
	pi := PolicyInfo{RequiredSignedAttrs: []asn1.ObjectIdentifier{custom}}

	got := ResolveRequiredAttrs(pi, ProfileAD_RB)
	if len(got) != 1 || !got[0].Equal(custom) {
		t.Fatalf("expected the LPA-declared attrs to win, got %v", got)
	}
}

func TestResolveRequiredAttrsFallsBackToProfile(t *testing.T) {
	pi := PolicyInfo{}
	got := ResolveRequiredAttrs(pi, ProfileAD_RT)
	want := RequiredAttrsForProfile(ProfileAD_RT)
	if len(got) != len(want) {
		t.Fatalf("expected fallback to profile defaults, got %v want %v", got, want)
	}
}

func TestCheckRequiredAttrsReportsMissing(t *testing.T) {
	pi := PolicyInfo{}
	present := []asn1.ObjectIdentifier{oidSigningCertificateV2}

	missing := CheckRequiredAttrs(pi, ProfileAD_RB, present)
	if len(missing) != 1 || !missing[0].Equal(oidSignaturePolicyID) {
		t.Fatalf("expected signaturePolicyID to be reported missing, got %v", missing)
	}
}

func TestCheckRequiredAttrsEmptyWhenAllPresent(t *testing.T) {
	pi := PolicyInfo{}
	present := []asn1.ObjectIdentifier{oidSigningCertificateV2, oidSignaturePolicyID}

	missing := CheckRequiredAttrs(pi, ProfileAD_RB, present)
	if len(missing) != 0 {
		t.Fatalf("expected no missing attrs, got %v", missing)
	}
}
