// Package localstore is the per-account cache of the last known capabilities
// and quota. Every save replaces the whole row for the account; reads of an
// account that was never saved return nil without an error.
package localstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/fruitsalade/syncsession/internal/capability"
	"github.com/fruitsalade/syncsession/internal/user"
)

// Store is the local cache contract.
type Store interface {
	SaveCapabilities(ctx context.Context, account string, c *capability.Capability) error
	GetCapabilities(ctx context.Context, account string) (*capability.Capability, error)
	SaveQuota(ctx context.Context, account string, q *user.Quota) error
	GetQuota(ctx context.Context, account string) (*user.Quota, error)
	Close() error
}

// Open returns a Store for driver ("sqlite", "postgres" or "memory").
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(dsn)
	case "postgres":
		return OpenPostgres(dsn)
	}
	return nil, fmt.Errorf("unknown cache driver %q", driver)
}

// Memory is an in-process Store. Rows are copied on the way in and out so
// callers never share state with the cache.
type Memory struct {
	mu           sync.RWMutex
	capabilities map[string]capability.Capability
	quotas       map[string]user.Quota
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		capabilities: make(map[string]capability.Capability),
		quotas:       make(map[string]user.Quota),
	}
}

func (m *Memory) SaveCapabilities(ctx context.Context, account string, c *capability.Capability) error {
	row := *c
	row.AccountName = account
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capabilities[account] = row
	return nil
}

func (m *Memory) GetCapabilities(ctx context.Context, account string) (*capability.Capability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.capabilities[account]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *Memory) SaveQuota(ctx context.Context, account string, q *user.Quota) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotas[account] = *q
	return nil
}

func (m *Memory) GetQuota(ctx context.Context, account string) (*user.Quota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.quotas[account]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *Memory) Close() error { return nil }
