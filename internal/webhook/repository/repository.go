package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the webhook idempotency seen-set. Provider event ids are
// remembered forever; a replayed delivery inserts nothing and is dropped
// by the handler.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new webhook events repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const markSeenQuery = `
	INSERT INTO webhook_events (provider_event_id, kind)
	VALUES ($1, $2)
	ON CONFLICT (provider_event_id) DO NOTHING`

// MarkSeen records the event id and reports whether this is its first
// delivery.
func (r *Repository) MarkSeen(ctx context.Context, providerEventID, kind string) (bool, error) {
	tag, err := r.pool.Exec(ctx, markSeenQuery, providerEventID, kind)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
