package repositories

import (
	"context"
	"time"
)

type RateLimitRepository interface {
	Record(ctx context.Context, identifier, action string) error
	CountSince(ctx context.Context, identifier, action string, since time.Time) (int, error)
	OldestSince(ctx context.Context, identifier, action string, since time.Time) (*time.Time, error)
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

type rateLimitRepo struct {
	db DBTX
}

func NewRateLimitRepo(db DBTX) RateLimitRepository {
	return &rateLimitRepo{db: db}
}

func (r *rateLimitRepo) Record(ctx context.Context, identifier, action string) error {
	query := `INSERT INTO rate_limit_events (identifier, action, created_at) VALUES ($1, $2, NOW())`
	_, err := r.db.Exec(ctx, query, identifier, action)
	return err
}

func (r *rateLimitRepo) CountSince(ctx context.Context, identifier, action string, since time.Time) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM rate_limit_events WHERE identifier = $1 AND action = $2 AND created_at >= $3`
	err := r.db.QueryRow(ctx, query, identifier, action, since).Scan(&n)
	return n, err
}

// OldestSince returns the earliest event in the window, nil when there is none
func (r *rateLimitRepo) OldestSince(ctx context.Context, identifier, action string, since time.Time) (*time.Time, error) {
	var oldest *time.Time
	query := `SELECT MIN(created_at) FROM rate_limit_events WHERE identifier = $1 AND action = $2 AND created_at >= $3`
	err := r.db.QueryRow(ctx, query, identifier, action, since).Scan(&oldest)
	return oldest, err
}

func (r *rateLimitRepo) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM rate_limit_events WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
