package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fruitsalade/syncsession/internal/errs"
	"github.com/fruitsalade/syncsession/internal/server"
)

const statusBody = `{"installed":true,"maintenance":false,"needsDbUpgrade":false,
"version":"10.5.0.10","versionstring":"10.5.0","edition":"Community","productname":"ownCloud"}`

func testConfig() Config {
	return Config{Timeout: 5 * time.Second, UserAgent: "syncsession-test", InsecureSkipVerify: true}
}

func statusHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status.php":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		case "/remote.php/dav/files/":
			w.Header().Add("WWW-Authenticate", `Basic realm="ownCloud"`)
			w.Header().Add("WWW-Authenticate", `Bearer realm="ownCloud"`)
			w.WriteHeader(http.StatusUnauthorized)
		default:
			http.NotFound(w, r)
		}
	}
}

func TestGetStatus_Plain(t *testing.T) {
	ts := httptest.NewServer(statusHandler(statusBody))
	defer ts.Close()

	c := New(testConfig())
	status, err := c.GetStatus(context.Background(), ts.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.IsSecure {
		t.Error("plain http server reported as secure")
	}
	if status.Version.Major != 10 || status.Version.Minor != 5 || status.Version.Micro != 0 {
		t.Errorf("unexpected version %+v", status.Version)
	}
	if status.Version.String != "10.5.0" || status.Version.Edition != "Community" {
		t.Errorf("unexpected version display %+v", status.Version)
	}
}

func TestGetStatus_TLS(t *testing.T) {
	ts := httptest.NewTLSServer(statusHandler(statusBody))
	defer ts.Close()

	c := New(testConfig())
	status, err := c.GetStatus(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.IsSecure {
		t.Error("tls server reported as insecure")
	}
}

func TestGetStatus_RedirectToTLS(t *testing.T) {
	secure := httptest.NewTLSServer(statusHandler(statusBody))
	defer secure.Close()
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, secure.URL+r.URL.Path, http.StatusMovedPermanently)
	}))
	defer plain.Close()

	c := New(testConfig())
	status, err := c.GetStatus(context.Background(), plain.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.IsSecure {
		t.Error("expected secure after redirect to https")
	}
}

func TestGetStatus_SchemelessFallsBackToHTTP(t *testing.T) {
	ts := httptest.NewServer(statusHandler(statusBody))
	defer ts.Close()

	c := New(testConfig())
	status, err := c.GetStatus(context.Background(), strings.TrimPrefix(ts.URL, "http://"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.IsSecure {
		t.Error("expected insecure after falling back to http")
	}
}

func TestGetStatus_SchemelessKeepsHTTPSAnswer(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want error
	}{
		{"garbage page", 200, `<html>captive portal</html>`, errs.ErrMalformedResponse},
		{"server error", 502, `bad gateway`, errs.ErrNoConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := New(testConfig()).GetStatus(context.Background(), strings.TrimPrefix(ts.URL, "https://"))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v from the https answer, got %v", tt.want, err)
			}
			var httpErr *errs.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusBadRequest {
				t.Errorf("retried over plain http: %v", err)
			}
			if n := hits.Load(); n != 1 {
				t.Errorf("expected one https request, got %d", n)
			}
		})
	}
}

func TestGetStatus_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		want error
	}{
		{"maintenance", `{"installed":true,"maintenance":true,"version":"10.5.0"}`, 200, errs.ErrServiceUnavailable},
		{"not installed", `{"installed":false,"version":"10.5.0"}`, 200, errs.ErrServiceUnavailable},
		{"not json", `<html>login</html>`, 200, errs.ErrMalformedResponse},
		{"bad version", `{"installed":true,"version":"ten"}`, 200, errs.ErrMalformedResponse},
		{"server error", `oops`, 500, errs.ErrNoConnection},
		{"unavailable", `oops`, 503, errs.ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := New(testConfig()).GetStatus(context.Background(), ts.URL)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGetStatus_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(testConfig())
	_, err := c.GetStatus(context.Background(), url)
	if !errors.Is(err, errs.ErrNoConnection) {
		t.Fatalf("expected ErrNoConnection, got %v", err)
	}
	if !errs.IsConnectivity(err) {
		t.Error("expected connectivity class error")
	}
	if c.IsOnline() {
		t.Error("client should be offline after a transport failure")
	}
}

func TestGetAuthenticationMethod(t *testing.T) {
	tests := []struct {
		name       string
		challenges []string
		code       int
		want       server.AuthenticationMethod
		wantErr    error
	}{
		{"bearer preferred", []string{`Basic realm="oc"`, `Bearer realm="oc"`}, 401, server.AuthBearer, nil},
		{"basic only", []string{`Basic realm="oc"`}, 401, server.AuthBasic, nil},
		{"open", nil, 207, server.AuthNone, nil},
		{"no challenge", nil, 401, "", errs.ErrMalformedResponse},
		{"server error", nil, 502, "", errs.ErrNoConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth string
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				if r.URL.Path != "/remote.php/dav/files/" {
					http.NotFound(w, r)
					return
				}
				for _, ch := range tt.challenges {
					w.Header().Add("WWW-Authenticate", ch)
				}
				w.WriteHeader(tt.code)
			}))
			defer ts.Close()

			got, err := New(testConfig()).GetAuthenticationMethod(context.Background(), ts.URL+"/")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if gotAuth != "" {
				t.Errorf("probe must be unauthenticated, sent %q", gotAuth)
			}
		})
	}
}

func TestNegotiateAgainstServer(t *testing.T) {
	ts := httptest.NewTLSServer(statusHandler(statusBody))
	defer ts.Close()

	host := strings.TrimPrefix(ts.URL, "https://")
	info, err := server.NewNegotiator(New(testConfig())).Negotiate(context.Background(), host)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.BaseURL != "https://"+host {
		t.Errorf("expected base URL https://%s, got %s", host, info.BaseURL)
	}
	if !info.IsSecureConnection || info.AuthenticationMethod != server.AuthBearer {
		t.Errorf("unexpected info %+v", info)
	}
}
