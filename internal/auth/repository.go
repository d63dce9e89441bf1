package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatrelay/backend/internal/models"
)

// ErrUserNotFound is returned when a token names a user that no longer exists.
var ErrUserNotFound = errors.New("user not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetUserByID loads the caller's identity and subscription tier.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	var tier string
	row := r.pool.QueryRow(ctx, `
		SELECT id, mobile_number, subscription_tier, stripe_customer_id, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
	if err := row.Scan(&u.ID, &u.MobileNumber, &tier, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Tier = models.ParseTier(tier)
	return &u, nil
}
