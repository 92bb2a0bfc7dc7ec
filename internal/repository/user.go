package repository

import (
	"context"
	"fmt"

	"github.com/fruitsalade/syncsession/internal/logging"
	"github.com/fruitsalade/syncsession/internal/metrics"
	"github.com/fruitsalade/syncsession/internal/user"
)

const entityQuota = "quota"

// UserRepository serves user info, quota and avatars. Only the quota is
// cached.
type UserRepository struct {
	remote UserRemote
	cache  QuotaCache
}

// NewUserRepository creates a new user repository.
func NewUserRepository(remote UserRemote, cache QuotaCache) *UserRepository {
	return &UserRepository{remote: remote, cache: cache}
}

// GetUserInfo fetches the identity behind account.
func (r *UserRepository) GetUserInfo(ctx context.Context, account string) (*user.Info, error) {
	return r.remote.GetUserInfo(ctx, account)
}

// GetUserQuota fetches the quota, saves it and returns it: one remote call
// and one cache write per invocation.
func (r *UserRepository) GetUserQuota(ctx context.Context, account string) (*user.Quota, error) {
	if err := checkKey(account); err != nil {
		return nil, err
	}
	log := logging.WithContext(ctx).With(logging.String("account", account))

	q, err := r.remote.GetUserQuota(ctx, account)
	if err != nil {
		metrics.RecordRefresh(entityQuota, err)
		log.Warn("quota refresh failed", logging.Err(err))
		return nil, err
	}
	if err := r.cache.SaveQuota(ctx, account, q); err != nil {
		err = fmt.Errorf("cache quota: %w", err)
		metrics.RecordRefresh(entityQuota, err)
		return nil, err
	}
	metrics.RecordCacheWrite(entityQuota)
	metrics.RecordRefresh(entityQuota, nil)
	log.Debug("quota refreshed",
		logging.Int64("available", q.Available),
		logging.Int64("used", q.Used))
	return q, nil
}

// RefreshUserQuota is GetUserQuota without the result.
func (r *UserRepository) RefreshUserQuota(ctx context.Context, account string) error {
	_, err := r.GetUserQuota(ctx, account)
	return err
}

// GetStoredUserQuota returns the cached quota without touching the network.
// A nil result with a nil error means none was ever fetched.
func (r *UserRepository) GetStoredUserQuota(ctx context.Context, account string) (*user.Quota, error) {
	q, err := r.cache.GetQuota(ctx, account)
	if err != nil {
		return nil, err
	}
	metrics.RecordCacheRead(entityQuota, q != nil)
	return q, nil
}

// GetUserAvatar fetches the avatar of account at size pixels.
func (r *UserRepository) GetUserAvatar(ctx context.Context, account string, size int) (*user.Avatar, error) {
	return r.remote.GetUserAvatar(ctx, account, size)
}
