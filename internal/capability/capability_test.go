package capability

import "testing"

func TestFromValue(t *testing.T) {
	if got := FromValue(0); got != False {
		t.Errorf("FromValue(0) = %v, want false", got)
	}
	if got := FromValue(1); got != True {
		t.Errorf("FromValue(1) = %v, want true", got)
	}
	for _, v := range []int{-1, 2, -2, 42, 1 << 30, -(1 << 30)} {
		if got := FromValue(v); !got.IsUnknown() {
			t.Errorf("FromValue(%d) = %v, want unknown", v, got)
		}
	}
}

func TestFromBool(t *testing.T) {
	if !FromBool(true).IsTrue() {
		t.Error("FromBool(true) should be true")
	}
	if !FromBool(false).IsFalse() {
		t.Error("FromBool(false) should be false")
	}
	if !FromBoolPtr(nil).IsUnknown() {
		t.Error("FromBoolPtr(nil) should be unknown")
	}
	f := false
	if !FromBoolPtr(&f).IsFalse() {
		t.Error("FromBoolPtr(&false) should be false")
	}
}

func TestValueRoundTrip(t *testing.T) {
	for _, b := range []BooleanType{Unknown, False, True} {
		if got := FromValue(b.Value()); got != b {
			t.Errorf("FromValue(%d) = %v, want %v", b.Value(), got, b)
		}
	}
}

func TestNewDefaultsUnknown(t *testing.T) {
	c := New("alice@cloud.example.com")
	flags := []BooleanType{
		c.FilesSharingAPIEnabled,
		c.FilesSharingPublicEnabled,
		c.FilesSharingPublicPasswordEnforced,
		c.FilesSharingPublicPasswordEnforcedReadOnly,
		c.FilesSharingPublicPasswordEnforcedReadWrite,
		c.FilesSharingPublicPasswordEnforcedUploadOnly,
		c.FilesSharingPublicExpireDateEnabled,
		c.FilesSharingPublicExpireDateEnforced,
		c.FilesSharingPublicUpload,
		c.FilesSharingPublicMultiple,
		c.FilesSharingPublicSupportsUploadOnly,
		c.FilesSharingResharing,
		c.FilesSharingFederationOutgoing,
		c.FilesSharingFederationIncoming,
		c.FilesBigFileChunking,
		c.FilesUndelete,
		c.FilesVersioning,
	}
	for i, f := range flags {
		if !f.IsUnknown() {
			t.Errorf("flag %d = %v, want unknown", i, f)
		}
	}
}

func TestIsChunkingAllowed(t *testing.T) {
	tests := []struct {
		name     string
		chunking BooleanType
		version  string
		want     bool
	}{
		{"empty version", True, "", false},
		{"non numeric", True, "abc", false},
		{"below one", True, "0.9", false},
		{"exactly one", True, "1.0", true},
		{"above one", True, "2.3", true},
		{"flag false", False, "1.0", false},
		{"flag unknown", Unknown, "2.3", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("acct")
			c.FilesBigFileChunking = tt.chunking
			c.DavChunkingVersion = tt.version
			if got := c.IsChunkingAllowed(); got != tt.want {
				t.Errorf("IsChunkingAllowed() = %v, want %v", got, tt.want)
			}
		})
	}
}
