// Package session hands out one remote client per account. It resolves the
// account name, checks that a bearer session has not visibly expired and
// reuses the client for later calls on the same account.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fruitsalade/syncsession/internal/account"
	"github.com/fruitsalade/syncsession/internal/capability"
	"github.com/fruitsalade/syncsession/internal/errs"
	"github.com/fruitsalade/syncsession/internal/logging"
	"github.com/fruitsalade/syncsession/internal/remote"
	"github.com/fruitsalade/syncsession/internal/sharing"
	"github.com/fruitsalade/syncsession/internal/user"
)

// DefaultExpiryMargin treats bearer tokens as expired slightly early so a
// request does not race the expiry.
const DefaultExpiryMargin = 30 * time.Second

// Manager maps account names to remote clients.
type Manager struct {
	accounts *account.Manager
	base     *remote.Client
	margin   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	clients map[string]*entry
}

type entry struct {
	account account.Account
	client  *remote.Client
}

// NewManager creates a session manager. base provides the shared HTTP
// settings for every account's client.
func NewManager(accounts *account.Manager, base *remote.Client) *Manager {
	return &Manager{
		accounts: accounts,
		base:     base,
		margin:   DefaultExpiryMargin,
		now:      time.Now,
		clients:  make(map[string]*entry),
	}
}

// ClientFor returns the client for accountName. A blank name selects the
// current account; any other name must match a known account exactly. It
// fails with errs.ErrNoAccount when there is no such account and with
// errs.ErrUnauthorized when the account's bearer token has expired.
func (m *Manager) ClientFor(ctx context.Context, accountName string) (*remote.Client, error) {
	var (
		acct *account.Account
		err  error
	)
	blank := strings.TrimSpace(accountName) == ""
	if blank {
		acct, err = m.accounts.Current(ctx)
	} else {
		acct, err = m.accounts.Lookup(ctx, accountName)
	}
	if err != nil {
		return nil, err
	}
	if acct == nil {
		if blank {
			return nil, errs.ErrNoAccount
		}
		return nil, fmt.Errorf("account %q: %w", accountName, errs.ErrNoAccount)
	}

	if strings.EqualFold(acct.AuthMethod, "bearer") && IsTokenExpired(acct.Secret, m.now(), m.margin) {
		logging.WithContext(ctx).Info("bearer token expired",
			logging.String("account", acct.Name))
		return nil, fmt.Errorf("session for %s: token expired: %w", acct.Name, errs.ErrUnauthorized)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.clients[acct.Name]; ok && e.account == *acct {
		return e.client, nil
	}
	c := m.base.WithAccount(*acct)
	m.clients[acct.Name] = &entry{account: *acct, client: c}
	return c, nil
}

// Forget drops the cached client for accountName.
func (m *Manager) Forget(accountName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, accountName)
}

// GetCapabilities fetches the capabilities of accountName's server.
func (m *Manager) GetCapabilities(ctx context.Context, accountName string) (*capability.Capability, error) {
	c, err := m.ClientFor(ctx, accountName)
	if err != nil {
		return nil, err
	}
	return c.GetCapabilities(ctx)
}

// GetUserInfo fetches the identity behind accountName.
func (m *Manager) GetUserInfo(ctx context.Context, accountName string) (*user.Info, error) {
	c, err := m.ClientFor(ctx, accountName)
	if err != nil {
		return nil, err
	}
	return c.GetUserInfo(ctx)
}

// GetUserQuota fetches the quota of accountName.
func (m *Manager) GetUserQuota(ctx context.Context, accountName string) (*user.Quota, error) {
	c, err := m.ClientFor(ctx, accountName)
	if err != nil {
		return nil, err
	}
	return c.GetUserQuota(ctx)
}

// GetUserAvatar fetches the avatar of accountName.
func (m *Manager) GetUserAvatar(ctx context.Context, accountName string, size int) (*user.Avatar, error) {
	c, err := m.ClientFor(ctx, accountName)
	if err != nil {
		return nil, err
	}
	return c.GetUserAvatar(ctx, size)
}

// GetSharees searches share recipients on accountName's server.
func (m *Manager) GetSharees(ctx context.Context, accountName, search string, page, perPage int) ([]sharing.Sharee, error) {
	c, err := m.ClientFor(ctx, accountName)
	if err != nil {
		return nil, err
	}
	return c.GetSharees(ctx, search, page, perPage)
}
