// Package user holds the per-account user models served by the remote.
package user

import "bytes"

// Special values of Quota.Available reported by the server.
const (
	QuotaNotComputed int64 = -1
	QuotaUnknown     int64 = -2
	QuotaUnlimited   int64 = -3
)

// Quota is the used and available space of an account, in bytes.
type Quota struct {
	Available int64
	Used      int64
}

// IsUnlimited reports whether the account has no storage limit.
func (q *Quota) IsUnlimited() bool {
	return q.Available == QuotaUnlimited
}

// IsKnown reports whether Available is an actual byte count.
func (q *Quota) IsKnown() bool {
	return q.Available >= 0
}

// Total returns Used+Available, or -1 when Available is not a byte count.
func (q *Quota) Total() int64 {
	if !q.IsKnown() {
		return -1
	}
	return q.Used + q.Available
}

// Relative returns the used share of the total in percent, or -1 when
// unknown.
func (q *Quota) Relative() float64 {
	total := q.Total()
	if total < 0 {
		return -1
	}
	if total == 0 {
		return 0
	}
	return float64(q.Used) * 100 / float64(total)
}

// Info identifies the user behind an account.
type Info struct {
	ID          string
	DisplayName string
	Email       string
}

// Avatar is a user's avatar image.
type Avatar struct {
	Data     []byte
	MimeType string
	ETag     string
}

// Equal compares avatars by content.
func (a *Avatar) Equal(other *Avatar) bool {
	if a == nil || other == nil {
		return a == other
	}
	return bytes.Equal(a.Data, other.Data) && a.MimeType == other.MimeType && a.ETag == other.ETag
}
