package domain

import "testing"

func TestCanTrigger(t *testing.T) {
	cases := []struct {
		name   string
		source NewsSource
		want   bool
	}{
		{"primary with cross-reference", NewsSource{Tier: TierPrimary, CrossReferenceRequired: true}, true},
		{"primary without cross-reference", NewsSource{Tier: TierPrimary}, false},
		{"secondary with cross-reference", NewsSource{Tier: TierSecondary, CrossReferenceRequired: true}, false},
		{"international", NewsSource{Tier: TierInternational}, false},
	}
	for _, tc := range cases {
		if got := tc.source.CanTrigger(); got != tc.want {
			t.Fatalf("%s: CanTrigger() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
