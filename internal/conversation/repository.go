package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatrelay/backend/internal/models"
)

// ErrNotFound is returned when a message does not exist.
var ErrNotFound = errors.New("message not found")

// StalePlaceholder is a pending ai message together with the user message it answers.
type StalePlaceholder struct {
	PlaceholderID uuid.UUID
	ChatroomID    uuid.UUID
	UserID        uuid.UUID
	UserMessageID uuid.UUID
	UserText      string
	CreatedAt     time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const messageColumns = `id, chatroom_id, content, sender, status, created_at, updated_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	var status string
	if err := row.Scan(&m.ID, &m.ChatroomID, &m.Content, &m.Sender, &status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Status = models.MessageStatus(status)
	return &m, nil
}

func (r *Repository) insert(ctx context.Context, tx pgx.Tx, chatroomID uuid.UUID, content, sender string, status models.MessageStatus) (*models.Message, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO messages (chatroom_id, content, sender, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+messageColumns, chatroomID, content, sender, string(status))
	return scanMessage(row)
}

// AppendUserMessage writes a completed user message inside tx.
func (r *Repository) AppendUserMessage(ctx context.Context, tx pgx.Tx, chatroomID uuid.UUID, content string) (*models.Message, error) {
	return r.insert(ctx, tx, chatroomID, content, models.SenderUser, models.MessageStatusCompleted)
}

// AppendPlaceholder writes the pending ai message that the worker later resolves.
func (r *Repository) AppendPlaceholder(ctx context.Context, tx pgx.Tx, chatroomID uuid.UUID) (*models.Message, error) {
	return r.insert(ctx, tx, chatroomID, models.PlaceholderContent, models.SenderAI, models.MessageStatusPending)
}

// RecentHistory returns up to limit messages that precede excludeID in the
// chatroom, oldest first. excludeID itself is never returned. If excludeID is
// not in the chatroom the most recent messages are used.
func (r *Repository) RecentHistory(ctx context.Context, chatroomID, excludeID uuid.UUID, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+`, seq FROM messages
			WHERE chatroom_id = $1
			  AND id <> $2
			  AND seq < COALESCE((SELECT seq FROM messages WHERE id = $2 AND chatroom_id = $1), 9223372036854775807)
			ORDER BY seq DESC
			LIMIT $3
		) recent
		ORDER BY seq ASC
	`, chatroomID, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// CompleteMessage overwrites content and status and returns the status the
// row had before. It is the only path that changes ai message content.
func (r *Repository) CompleteMessage(ctx context.Context, id uuid.UUID, content string, status models.MessageStatus) (models.MessageStatus, error) {
	var prev string
	err := r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT id, status FROM messages WHERE id = $1 FOR UPDATE
		)
		UPDATE messages m
		SET content = $2, status = $3, updated_at = clock_timestamp()
		FROM prev
		WHERE m.id = prev.id
		RETURNING prev.status
	`, id, content, string(status)).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return models.MessageStatus(prev), nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// ListByChatroom returns every message in the chatroom in conversation order.
func (r *Repository) ListByChatroom(ctx context.Context, chatroomID uuid.UUID) ([]*models.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE chatroom_id = $1 ORDER BY seq ASC
	`, chatroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// ListStalePlaceholders finds ai messages still pending that were created
// before olderThan, paired with the user message right before each one.
func (r *Repository) ListStalePlaceholders(ctx context.Context, olderThan time.Time, limit int) ([]StalePlaceholder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.chatroom_id, c.user_id, u.id, u.content, p.created_at
		FROM messages p
		JOIN chatrooms c ON c.id = p.chatroom_id
		CROSS JOIN LATERAL (
			SELECT id, content FROM messages
			WHERE chatroom_id = p.chatroom_id AND sender = 'user' AND seq < p.seq
			ORDER BY seq DESC
			LIMIT 1
		) u
		WHERE p.sender = 'ai' AND p.status = 'pending' AND p.created_at < $1
		ORDER BY p.created_at ASC
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []StalePlaceholder
	for rows.Next() {
		var s StalePlaceholder
		if err := rows.Scan(&s.PlaceholderID, &s.ChatroomID, &s.UserID, &s.UserMessageID, &s.UserText, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
