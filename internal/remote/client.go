// Package remote talks to an ownCloud-compatible server over HTTP: status and
// auth-method discovery, capabilities, user info, quota, avatars and sharees.
package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fruitsalade/syncsession/internal/account"
	"github.com/fruitsalade/syncsession/internal/errs"
	"github.com/fruitsalade/syncsession/internal/logging"
	"github.com/fruitsalade/syncsession/internal/metrics"
)

// Config holds client configuration.
type Config struct {
	Timeout            time.Duration
	UserAgent          string
	InsecureSkipVerify bool
}

// Client is an HTTP client for one server. A client made by New is
// unauthenticated and only good for negotiation; WithAccount binds it to an
// account's server and credentials.
type Client struct {
	http    *resty.Client
	account *account.Account
	state   *onlineState
}

type onlineState struct {
	mu       sync.RWMutex
	online   bool
	lastSeen time.Time
}

// New creates a new unauthenticated client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "syncsession"
	}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetLogger(logging.S())
	if cfg.InsecureSkipVerify {
		rc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}

	return &Client{
		http:  rc,
		state: &onlineState{online: true},
	}
}

// WithAccount returns a client for a's server that authenticates as a. The
// underlying connection pool is shared with c.
func (c *Client) WithAccount(a account.Account) *Client {
	return &Client{
		http:    c.http,
		account: &a,
		state:   &onlineState{online: true},
	}
}

// Account returns the bound account, or nil for an unauthenticated client.
func (c *Client) Account() *account.Account {
	return c.account
}

// HTTPClient returns the underlying *http.Client, for libraries that need one.
func (c *Client) HTTPClient() *http.Client {
	return c.http.GetClient()
}

// IsOnline reports whether the last request reached the server.
func (c *Client) IsOnline() bool {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.online
}

// LastSeen returns when the server last answered, or the zero time.
func (c *Client) LastSeen() time.Time {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.lastSeen
}

func (c *Client) setOnline(online bool) {
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.online != online {
		if online {
			logging.Info("Server is back online", logging.String("server", c.serverURL()))
		} else {
			logging.Warn("Server is offline", logging.String("server", c.serverURL()))
		}
	}
	s.online = online
	if online {
		s.lastSeen = time.Now()
	}
}

func (c *Client) serverURL() string {
	if c.account == nil {
		return ""
	}
	return c.account.ServerURL
}

// baseURL is the account's server URL without a trailing slash.
func (c *Client) baseURL() (string, error) {
	if c.account == nil || c.account.ServerURL == "" {
		return "", fmt.Errorf("client has no server: %w", errs.ErrNoAccount)
	}
	return strings.TrimRight(c.account.ServerURL, "/"), nil
}

// request starts a request carrying the account's credentials.
func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if c.account == nil {
		return req
	}
	switch strings.ToLower(c.account.AuthMethod) {
	case "basic":
		req.SetBasicAuth(c.account.Username, c.account.Secret)
	case "bearer":
		req.SetAuthToken(c.account.Secret)
	}
	return req
}

// get runs a GET and maps transport failures onto errs.ErrNoConnection. Any
// HTTP status is returned to the caller as a response.
func (c *Client) get(ctx context.Context, op string, req *resty.Request, url string) (*resty.Response, error) {
	res, err := req.Get(url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		c.setOnline(false)
		return nil, errs.NoConnection(op, err)
	}
	c.setOnline(true)
	return res, nil
}

// observe records the outcome of op. Use it deferred with a named error.
func observe(op string, start time.Time, err *error) {
	metrics.RecordRemoteCall(op, time.Since(start), *err)
}

// statusError converts a non-2xx response into an *errs.HTTPError.
func statusError(op string, res *resty.Response) error {
	body := strings.TrimSpace(string(res.Body()))
	if len(body) > 256 {
		body = body[:256]
	}
	return fmt.Errorf("%s: %w", op, &errs.HTTPError{StatusCode: res.StatusCode(), Body: body})
}

func isSuccess(res *resty.Response) bool {
	return res.StatusCode() >= 200 && res.StatusCode() < 300
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var httpErr *errs.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
