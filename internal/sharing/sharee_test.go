package sharing

import "testing"

func TestShareTypeFromValue(t *testing.T) {
	tests := []struct {
		in   int
		want ShareType
		name string
	}{
		{0, ShareTypeUser, "user"},
		{1, ShareTypeGroup, "group"},
		{2, ShareTypeUnknown, "unknown"},
		{3, ShareTypePublicLink, "link"},
		{4, ShareTypeEmail, "email"},
		{5, ShareTypeContact, "contact"},
		{6, ShareTypeFederated, "federated"},
		{7, ShareTypeUnknown, "unknown"},
		{-1, ShareTypeUnknown, "unknown"},
	}
	for _, tt := range tests {
		got := ShareTypeFromValue(tt.in)
		if got != tt.want {
			t.Errorf("ShareTypeFromValue(%d) = %v, want %v", tt.in, got, tt.want)
		}
		if got.String() != tt.name {
			t.Errorf("ShareTypeFromValue(%d).String() = %q, want %q", tt.in, got.String(), tt.name)
		}
	}
}
