package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPErrorUnwrap(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusServiceUnavailable, ErrServiceUnavailable},
		{http.StatusInternalServerError, ErrNoConnection},
		{http.StatusBadGateway, ErrNoConnection},
	}
	for _, tt := range tests {
		err := fmt.Errorf("fetch: %w", &HTTPError{StatusCode: tt.status})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}

	err := &HTTPError{StatusCode: http.StatusNotFound}
	if errors.Is(err, ErrUnauthorized) || IsConnectivity(err) {
		t.Errorf("404 should not map to a sentinel kind: %v", err)
	}
}

func TestIsConnectivity(t *testing.T) {
	if !IsConnectivity(NoConnection("status", errors.New("dial tcp: refused"))) {
		t.Error("transport failure should be connectivity")
	}
	if !IsConnectivity(Malformed("status", nil)) {
		t.Error("malformed response should be handled as connectivity")
	}
	if IsConnectivity(ErrUnauthorized) {
		t.Error("unauthorized should not be connectivity")
	}
	if !IsUnauthorized(fmt.Errorf("refresh: %w", ErrUnauthorized)) {
		t.Error("wrapped unauthorized not detected")
	}
}
