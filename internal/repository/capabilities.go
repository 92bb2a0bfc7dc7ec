package repository

import (
	"context"
	"fmt"

	"github.com/fruitsalade/syncsession/internal/capability"
	"github.com/fruitsalade/syncsession/internal/logging"
	"github.com/fruitsalade/syncsession/internal/metrics"
)

const entityCapabilities = "capabilities"

// CapabilityRepository keeps the capabilities cache in step with the server.
type CapabilityRepository struct {
	remote CapabilityRemote
	cache  CapabilityCache
}

// NewCapabilityRepository creates a new capability repository.
func NewCapabilityRepository(remote CapabilityRemote, cache CapabilityCache) *CapabilityRepository {
	return &CapabilityRepository{remote: remote, cache: cache}
}

// RefreshCapabilitiesForAccount fetches the account's capabilities and
// replaces the cached row.
func (r *CapabilityRepository) RefreshCapabilitiesForAccount(ctx context.Context, account string) error {
	_, err := r.GetCapabilitiesForAccount(ctx, account)
	return err
}

// GetCapabilitiesForAccount fetches the account's capabilities, caches them
// and returns the fresh value. The cache is only written after a successful
// fetch. account must name a known account exactly.
func (r *CapabilityRepository) GetCapabilitiesForAccount(ctx context.Context, account string) (*capability.Capability, error) {
	if err := checkKey(account); err != nil {
		return nil, err
	}
	log := logging.WithContext(ctx).With(logging.String("account", account))

	caps, err := r.remote.GetCapabilities(ctx, account)
	if err != nil {
		metrics.RecordRefresh(entityCapabilities, err)
		log.Warn("capabilities refresh failed", logging.Err(err))
		return nil, err
	}
	if err := r.cache.SaveCapabilities(ctx, account, caps); err != nil {
		err = fmt.Errorf("cache capabilities: %w", err)
		metrics.RecordRefresh(entityCapabilities, err)
		return nil, err
	}
	metrics.RecordCacheWrite(entityCapabilities)
	metrics.RecordRefresh(entityCapabilities, nil)
	log.Debug("capabilities refreshed",
		logging.String("version", caps.VersionString),
		logging.Bool("chunking", caps.IsChunkingAllowed()))
	return caps, nil
}

// GetStoredCapabilities returns the cached capabilities without touching the
// network. A nil result with a nil error means none were ever fetched.
func (r *CapabilityRepository) GetStoredCapabilities(ctx context.Context, account string) (*capability.Capability, error) {
	caps, err := r.cache.GetCapabilities(ctx, account)
	if err != nil {
		return nil, err
	}
	metrics.RecordCacheRead(entityCapabilities, caps != nil)
	return caps, nil
}
