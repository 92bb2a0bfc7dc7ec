// Package sharing holds the models used to look up share recipients.
package sharing

// ShareType identifies the kind of share recipient.
type ShareType int

const (
	ShareTypeUnknown    ShareType = -1
	ShareTypeUser       ShareType = 0
	ShareTypeGroup      ShareType = 1
	ShareTypePublicLink ShareType = 3
	ShareTypeEmail      ShareType = 4
	ShareTypeContact    ShareType = 5
	ShareTypeFederated  ShareType = 6
)

// ShareTypeFromValue decodes a raw share type. Unrecognized values are Unknown.
func ShareTypeFromValue(v int) ShareType {
	switch st := ShareType(v); st {
	case ShareTypeUser, ShareTypeGroup, ShareTypePublicLink, ShareTypeEmail,
		ShareTypeContact, ShareTypeFederated:
		return st
	}
	return ShareTypeUnknown
}

func (t ShareType) String() string {
	switch t {
	case ShareTypeUser:
		return "user"
	case ShareTypeGroup:
		return "group"
	case ShareTypePublicLink:
		return "link"
	case ShareTypeEmail:
		return "email"
	case ShareTypeContact:
		return "contact"
	case ShareTypeFederated:
		return "federated"
	}
	return "unknown"
}

// Sharee is a candidate recipient returned by a sharee search.
type Sharee struct {
	Label          string
	ShareType      ShareType
	ShareWith      string
	AdditionalInfo string
	IsExactMatch   bool
}
