package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fruitsalade/syncsession/internal/errs"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{fmt.Errorf("x: %w", errs.ErrUnauthorized), "unauthorized"},
		{errs.Malformed("status", nil), "malformed"},
		{errs.NoConnection("status", errors.New("refused")), "no_connection"},
		{errs.ErrServiceUnavailable, "unavailable"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := Result(tt.err); got != tt.want {
			t.Errorf("Result(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRecordCacheRead(t *testing.T) {
	before := testutil.ToFloat64(cacheReadsTotal.WithLabelValues("quota", "miss"))
	RecordCacheRead("quota", false)
	after := testutil.ToFloat64(cacheReadsTotal.WithLabelValues("quota", "miss"))
	if after != before+1 {
		t.Errorf("expected miss counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestRecordRemoteCall(t *testing.T) {
	before := testutil.ToFloat64(remoteCallsTotal.WithLabelValues("status", "no_connection"))
	RecordRemoteCall("status", 10*time.Millisecond, errs.NoConnection("status", errors.New("timeout")))
	after := testutil.ToFloat64(remoteCallsTotal.WithLabelValues("status", "no_connection"))
	if after != before+1 {
		t.Errorf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}
