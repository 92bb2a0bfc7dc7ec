// Package repository combines the remote services with the local cache.
//
// Refreshes follow one pattern: fetch from the server, and only on success
// replace the cached row. A failed fetch returns its error unchanged and
// leaves the cache alone. Nothing here retries; that is up to the caller.
//
// Concurrent refreshes of the same account and entity are not serialized.
// Each writes a complete row, so the last successful writer wins.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fruitsalade/syncsession/internal/capability"
	"github.com/fruitsalade/syncsession/internal/errs"
	"github.com/fruitsalade/syncsession/internal/server"
	"github.com/fruitsalade/syncsession/internal/sharing"
	"github.com/fruitsalade/syncsession/internal/user"
)

// checkKey rejects cache keys that name no account.
func checkKey(account string) error {
	if strings.TrimSpace(account) == "" {
		return fmt.Errorf("blank account name: %w", errs.ErrNoAccount)
	}
	return nil
}

// CapabilityRemote fetches capabilities for an account.
type CapabilityRemote interface {
	GetCapabilities(ctx context.Context, account string) (*capability.Capability, error)
}

// CapabilityCache stores the last known capabilities per account.
type CapabilityCache interface {
	SaveCapabilities(ctx context.Context, account string, c *capability.Capability) error
	GetCapabilities(ctx context.Context, account string) (*capability.Capability, error)
}

// UserRemote fetches user data for an account.
type UserRemote interface {
	GetUserInfo(ctx context.Context, account string) (*user.Info, error)
	GetUserQuota(ctx context.Context, account string) (*user.Quota, error)
	GetUserAvatar(ctx context.Context, account string, size int) (*user.Avatar, error)
}

// QuotaCache stores the last known quota per account.
type QuotaCache interface {
	SaveQuota(ctx context.Context, account string, q *user.Quota) error
	GetQuota(ctx context.Context, account string) (*user.Quota, error)
}

// ShareeRemote searches share recipients for an account.
type ShareeRemote interface {
	GetSharees(ctx context.Context, account, search string, page, perPage int) ([]sharing.Sharee, error)
}

// ServerInfoRepository negotiates server descriptors. Results are handed to
// the caller and not cached.
type ServerInfoRepository struct {
	negotiator *server.Negotiator
}

// NewServerInfoRepository creates a new server info repository.
func NewServerInfoRepository(n *server.Negotiator) *ServerInfoRepository {
	return &ServerInfoRepository{negotiator: n}
}

// GetServerInfo negotiates the server at path.
func (r *ServerInfoRepository) GetServerInfo(ctx context.Context, path string) (*server.Info, error) {
	return r.negotiator.Negotiate(ctx, path)
}

// RefreshAll refreshes capabilities and quota for every account, at most
// limit accounts at a time (no limit when limit <= 0). A failing account
// does not stop the others; all failures are returned joined.
func RefreshAll(ctx context.Context, accounts []string, caps *CapabilityRepository, users *UserRepository, limit int) error {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed = make(map[string]error)
	)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, name := range accounts {
		g.Go(func() error {
			err := errors.Join(
				caps.RefreshCapabilitiesForAccount(ctx, name),
				users.RefreshUserQuota(ctx, name),
			)
			if err != nil {
				mu.Lock()
				failed[name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)
	errList := make([]error, 0, len(names))
	for _, name := range names {
		errList = append(errList, fmt.Errorf("account %s: %w", name, failed[name]))
	}
	return errors.Join(errList...)
}
