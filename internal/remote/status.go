package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fruitsalade/syncsession/internal/errs"
	"github.com/fruitsalade/syncsession/internal/server"
)

const (
	statusPath  = "/status.php"
	webdavProbe = "/remote.php/dav/files/"
)

type statusResponse struct {
	Installed     bool   `json:"installed"`
	Maintenance   bool   `json:"maintenance"`
	Version       string `json:"version"`
	VersionString string `json:"versionstring"`
	Edition       string `json:"edition"`
	ProductName   string `json:"productname"`
}

// GetStatus fetches {path}/status.php. A path without a scheme is tried over
// https first and then over http if https could not be reached at all. The
// connection counts as secure when the final URL, after redirects, is https.
func (c *Client) GetStatus(ctx context.Context, path string) (_ *server.Status, err error) {
	const op = "get status"
	defer observe(op, time.Now(), &err)

	trimmed := strings.TrimRight(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%s: empty server path", op)
	}

	candidates := []string{trimmed}
	if !hasScheme(trimmed) {
		candidates = []string{"https://" + trimmed, "http://" + trimmed}
	}

	for i, base := range candidates {
		status, err := c.getStatus(ctx, op, base)
		if err != nil && i < len(candidates)-1 && isTransportFailure(err) && ctx.Err() == nil {
			continue
		}
		return status, err
	}
	return nil, fmt.Errorf("%s: no candidate URL", op)
}

// isTransportFailure reports whether no HTTP response was received at all.
// Only then is the http candidate tried.
func isTransportFailure(err error) bool {
	var httpErr *errs.HTTPError
	return errors.Is(err, errs.ErrNoConnection) && !errors.As(err, &httpErr)
}

func (c *Client) getStatus(ctx context.Context, op, base string) (*server.Status, error) {
	res, err := c.get(ctx, op, c.http.R().SetContext(ctx), base+statusPath)
	if err != nil {
		return nil, err
	}
	if !isSuccess(res) {
		return nil, statusError(op, res)
	}

	var payload statusResponse
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, errs.Malformed(op, err)
	}
	if !payload.Installed {
		return nil, fmt.Errorf("%s: server not installed: %w", op, errs.ErrServiceUnavailable)
	}
	if payload.Maintenance {
		return nil, fmt.Errorf("%s: server in maintenance mode: %w", op, errs.ErrServiceUnavailable)
	}

	version, err := server.ParseVersion(payload.Version, payload.VersionString, payload.Edition)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	secure := strings.HasPrefix(base, "https://")
	if raw := res.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		secure = raw.Request.URL.Scheme == "https"
	}
	return &server.Status{Version: version, IsSecure: secure}, nil
}

// GetAuthenticationMethod probes the WebDAV endpoint under baseURL without
// credentials and reads the challenge. Bearer wins when both are offered.
func (c *Client) GetAuthenticationMethod(ctx context.Context, baseURL string) (_ server.AuthenticationMethod, err error) {
	const op = "get authentication method"
	defer observe(op, time.Now(), &err)

	res, err := c.get(ctx, op, c.http.R().SetContext(ctx), strings.TrimRight(baseURL, "/")+webdavProbe)
	if err != nil {
		return "", err
	}

	var basic, bearer bool
	for _, challenge := range res.Header().Values("WWW-Authenticate") {
		scheme := strings.ToLower(strings.TrimSpace(challenge))
		switch {
		case strings.HasPrefix(scheme, "bearer"):
			bearer = true
		case strings.HasPrefix(scheme, "basic"):
			basic = true
		}
	}

	switch {
	case bearer:
		return server.AuthBearer, nil
	case basic:
		return server.AuthBasic, nil
	case isSuccess(res) || res.StatusCode() == http.StatusMultiStatus:
		return server.AuthNone, nil
	case res.StatusCode() == http.StatusUnauthorized:
		return "", errs.Malformed(op, fmt.Errorf("no supported challenge in 401 response"))
	}
	return "", statusError(op, res)
}

func hasScheme(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
