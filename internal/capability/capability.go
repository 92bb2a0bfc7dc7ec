// Package capability models the feature set a server advertises for an account.
package capability

import (
	"strconv"
	"strings"
)

// BooleanType is a three-valued flag: a server may not report a feature at all.
type BooleanType int

const (
	Unknown BooleanType = -1
	False   BooleanType = 0
	True    BooleanType = 1
)

// FromValue decodes a raw integer. Anything outside {0,1} is Unknown.
func FromValue(v int) BooleanType {
	switch v {
	case 0:
		return False
	case 1:
		return True
	default:
		return Unknown
	}
}

// FromBool converts a native boolean.
func FromBool(b bool) BooleanType {
	if b {
		return True
	}
	return False
}

// FromBoolPtr converts an optional boolean; nil means the server omitted it.
func FromBoolPtr(b *bool) BooleanType {
	if b == nil {
		return Unknown
	}
	return FromBool(*b)
}

// Value returns the raw integer encoding.
func (b BooleanType) Value() int { return int(b) }

func (b BooleanType) IsUnknown() bool { return b == Unknown }
func (b BooleanType) IsFalse() bool   { return b == False }
func (b BooleanType) IsTrue() bool    { return b == True }

func (b BooleanType) String() string {
	switch b {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// Capability is the last known feature set of the server behind an account.
type Capability struct {
	AccountName string

	VersionMajor   int
	VersionMinor   int
	VersionMicro   int
	VersionString  string
	VersionEdition string

	CorePollInterval   int
	DavChunkingVersion string

	FilesSharingAPIEnabled                       BooleanType
	FilesSharingPublicEnabled                    BooleanType
	FilesSharingPublicPasswordEnforced           BooleanType
	FilesSharingPublicPasswordEnforcedReadOnly   BooleanType
	FilesSharingPublicPasswordEnforcedReadWrite  BooleanType
	FilesSharingPublicPasswordEnforcedUploadOnly BooleanType
	FilesSharingPublicExpireDateEnabled          BooleanType
	FilesSharingPublicExpireDateDays             int
	FilesSharingPublicExpireDateEnforced         BooleanType
	FilesSharingPublicUpload                     BooleanType
	FilesSharingPublicMultiple                   BooleanType
	FilesSharingPublicSupportsUploadOnly         BooleanType
	FilesSharingResharing                        BooleanType
	FilesSharingFederationOutgoing               BooleanType
	FilesSharingFederationIncoming               BooleanType

	FilesBigFileChunking BooleanType
	FilesUndelete        BooleanType
	FilesVersioning      BooleanType
}

// New returns a Capability for account with every flag Unknown.
func New(account string) *Capability {
	return &Capability{
		AccountName: account,

		FilesSharingAPIEnabled:                       Unknown,
		FilesSharingPublicEnabled:                    Unknown,
		FilesSharingPublicPasswordEnforced:           Unknown,
		FilesSharingPublicPasswordEnforcedReadOnly:   Unknown,
		FilesSharingPublicPasswordEnforcedReadWrite:  Unknown,
		FilesSharingPublicPasswordEnforcedUploadOnly: Unknown,
		FilesSharingPublicExpireDateEnabled:          Unknown,
		FilesSharingPublicExpireDateEnforced:         Unknown,
		FilesSharingPublicUpload:                     Unknown,
		FilesSharingPublicMultiple:                   Unknown,
		FilesSharingPublicSupportsUploadOnly:         Unknown,
		FilesSharingResharing:                        Unknown,
		FilesSharingFederationOutgoing:               Unknown,
		FilesSharingFederationIncoming:               Unknown,
		FilesBigFileChunking:                         Unknown,
		FilesUndelete:                                Unknown,
		FilesVersioning:                              Unknown,
	}
}

// IsChunkingAllowed reports whether chunked uploads may be used: the
// big-file chunking flag must be true and the DAV chunking version must be
// a number >= 1.0. An unparsable version means unsupported.
func (c *Capability) IsChunkingAllowed() bool {
	if !c.FilesBigFileChunking.IsTrue() {
		return false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.DavChunkingVersion), 64)
	if err != nil {
		return false
	}
	return v >= 1.0
}
