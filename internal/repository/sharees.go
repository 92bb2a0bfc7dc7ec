package repository

import (
	"context"

	"github.com/fruitsalade/syncsession/internal/sharing"
)

// ShareeRepository searches share recipients. Results are not cached.
type ShareeRepository struct {
	remote ShareeRemote
}

// NewShareeRepository creates a new sharee repository.
func NewShareeRepository(remote ShareeRemote) *ShareeRepository {
	return &ShareeRepository{remote: remote}
}

// GetSharees returns one page of recipients matching search.
func (r *ShareeRepository) GetSharees(ctx context.Context, account, search string, page, perPage int) ([]sharing.Sharee, error) {
	return r.remote.GetSharees(ctx, account, search, page, perPage)
}
