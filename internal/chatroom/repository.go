package chatroom

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatrelay/backend/internal/models"
)

// ErrNotFound is returned when a chatroom does not exist or belongs to another user.
var ErrNotFound = errors.New("chatroom not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, userID uuid.UUID, title string) (*models.Chatroom, error) {
	var c models.Chatroom
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chatrooms (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at, updated_at
	`, userID, title).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetForUser returns the chatroom only if userID owns it.
func (r *Repository) GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.Chatroom, error) {
	var c models.Chatroom
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chatrooms WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListWithStats returns the user's chatrooms, most recently active first.
func (r *Repository) ListWithStats(ctx context.Context, userID uuid.UUID) ([]models.ChatroomSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.title, COUNT(m.id), MAX(m.created_at), c.created_at, c.updated_at
		FROM chatrooms c
		LEFT JOIN messages m ON m.chatroom_id = c.id
		WHERE c.user_id = $1
		GROUP BY c.id
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.ChatroomSummary, 0)
	for rows.Next() {
		var s models.ChatroomSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.MessageCount, &s.LastMessageAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Touch bumps updated_at to the statement's wall clock.
func (r *Repository) Touch(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE chatrooms SET updated_at = clock_timestamp() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
