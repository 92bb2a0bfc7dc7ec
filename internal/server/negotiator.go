package server

import (
	"context"
	"fmt"
	"time"

	"github.com/fruitsalade/syncsession/internal/logging"
	"github.com/fruitsalade/syncsession/internal/metrics"
)

// Status is the result of the first negotiation step.
type Status struct {
	Version  Version
	IsSecure bool
}

// Remote is the pair of unauthenticated calls used during negotiation.
type Remote interface {
	GetStatus(ctx context.Context, path string) (*Status, error)
	GetAuthenticationMethod(ctx context.Context, baseURL string) (AuthenticationMethod, error)
}

// Negotiator runs the status and auth-method handshake.
type Negotiator struct {
	remote Remote
}

// NewNegotiator creates a new negotiator.
func NewNegotiator(remote Remote) *Negotiator {
	return &Negotiator{remote: remote}
}

// Negotiate fetches the server status for path, normalizes path against the
// reported TLS posture and then asks the normalized URL for its
// authentication method. Either failure aborts the whole negotiation.
func (n *Negotiator) Negotiate(ctx context.Context, path string) (*Info, error) {
	start := time.Now()
	info, err := n.negotiate(ctx, path)
	metrics.RecordNegotiation(time.Since(start), err)
	if err != nil {
		logging.WithContext(ctx).Warn("server negotiation failed",
			logging.String("path", path), logging.Err(err))
		return nil, err
	}
	logging.WithContext(ctx).Debug("server negotiated",
		logging.String("base_url", info.BaseURL),
		logging.String("version", info.Version.String),
		logging.String("auth", info.AuthenticationMethod.String()),
		logging.Bool("secure", info.IsSecureConnection))
	return info, nil
}

func (n *Negotiator) negotiate(ctx context.Context, path string) (*Info, error) {
	status, err := n.remote.GetStatus(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("get server status: %w", err)
	}

	baseURL := NormalizeProtocolPrefix(path, status.IsSecure)

	method, err := n.remote.GetAuthenticationMethod(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("get authentication method: %w", err)
	}

	return &Info{
		Version:              status.Version,
		BaseURL:              baseURL,
		AuthenticationMethod: method,
		IsSecureConnection:   status.IsSecure,
	}, nil
}
