package quota

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLimitExceeded is returned by Increment when the counter is already at the limit.
var ErrLimitExceeded = errors.New("daily message limit exceeded")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureToday creates the usage row for (userID, day) if absent and returns its count.
func (r *Repository) EnsureToday(ctx context.Context, userID uuid.UUID, day time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO usage_tracking (user_id, date, message_count)
			VALUES ($1, $2, 0)
			ON CONFLICT (user_id, date) DO NOTHING
			RETURNING message_count
		)
		SELECT message_count FROM ins
		UNION ALL
		SELECT message_count FROM usage_tracking WHERE user_id = $1 AND date = $2
		LIMIT 1
	`, userID, day).Scan(&count)
	return count, err
}

// Count returns today's count without creating the row.
func (r *Repository) Count(ctx context.Context, userID uuid.UUID, day time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT message_count FROM usage_tracking WHERE user_id = $1 AND date = $2
	`, userID, day).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// Increment runs inside the caller's transaction. The conditional UPDATE
// both checks and bumps the counter, so two concurrent sends cannot both
// take the last slot.
func (r *Repository) Increment(ctx context.Context, tx pgx.Tx, userID uuid.UUID, day time.Time, limit int) (int, error) {
	var count int
	if _, err := tx.Exec(ctx, `
		INSERT INTO usage_tracking (user_id, date, message_count)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, date) DO NOTHING
	`, userID, day); err != nil {
		return 0, err
	}
	err := tx.QueryRow(ctx, `
		UPDATE usage_tracking
		SET message_count = message_count + 1, updated_at = now()
		WHERE user_id = $1 AND date = $2 AND message_count < $3
		RETURNING message_count
	`, userID, day, limit).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrLimitExceeded
	}
	return count, err
}
