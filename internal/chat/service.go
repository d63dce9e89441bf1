package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chatrelay/backend/internal/generation"
	"github.com/chatrelay/backend/internal/models"
	"github.com/chatrelay/backend/internal/quota"
)

const MaxMessageLength = 10000

var (
	ErrInvalidMessage = errors.New("message must be between 1 and 10000 characters")
	// ErrPersistence means the message rows could not be written; nothing was committed.
	ErrPersistence = errors.New("failed to store message")
	// ErrEnqueue means the reply job could not be queued; the message rows were rolled back.
	ErrEnqueue = errors.New("failed to queue reply generation")
)

// AdmissionDeniedError is returned when the caller has used today's allowance.
type AdmissionDeniedError struct {
	CurrentUsage int
	Limit        int
}

func (e *AdmissionDeniedError) Error() string {
	return fmt.Sprintf("daily message limit exceeded (%d/%d)", e.CurrentUsage, e.Limit)
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ChatroomLookup verifies the caller owns the chatroom.
type ChatroomLookup interface {
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.Chatroom, error)
}

// MessageWriter appends the user message and its placeholder inside the send transaction.
type MessageWriter interface {
	AppendUserMessage(ctx context.Context, tx pgx.Tx, chatroomID uuid.UUID, content string) (*models.Message, error)
	AppendPlaceholder(ctx context.Context, tx pgx.Tx, chatroomID uuid.UUID) (*models.Message, error)
}

// TxEnqueuer queues a reply job inside tx. *generation.Inserter implements it.
type TxEnqueuer interface {
	InsertTx(ctx context.Context, tx pgx.Tx, args generation.GenerateReplyArgs) error
}

type SendResult struct {
	UserMessage *models.Message
	AIMessage   *models.Message
}

type Service interface {
	Send(ctx context.Context, user *models.User, chatroomID uuid.UUID, text string) (*SendResult, error)
}

type service struct {
	pool     TxBeginner
	quota    quota.Service
	rooms    ChatroomLookup
	messages MessageWriter
	queue    TxEnqueuer
	log      *slog.Logger
	now      func() time.Time
}

func NewService(pool TxBeginner, q quota.Service, rooms ChatroomLookup, messages MessageWriter, queue TxEnqueuer, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{pool: pool, quota: q, rooms: rooms, messages: messages, queue: queue, log: log, now: time.Now}
}

var _ TxEnqueuer = (*generation.Inserter)(nil)

// Send admits, stores and queues one user message. The message rows, the
// reply job and the usage increment commit in a single transaction, so a send
// either happens completely or not at all. It never waits on the model.
func (s *service) Send(ctx context.Context, user *models.User, chatroomID uuid.UUID, text string) (*SendResult, error) {
	if n := utf8.RuneCountInString(text); n < 1 || n > MaxMessageLength {
		return nil, ErrInvalidMessage
	}
	now := s.now()

	decision, err := s.quota.CheckAndReserve(ctx, user.ID, user.Tier, now)
	if err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	if !decision.Allowed {
		return nil, &AdmissionDeniedError{CurrentUsage: decision.CurrentUsage, Limit: decision.Limit}
	}

	if _, err := s.rooms.GetForUser(ctx, user.ID, chatroomID); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	userMsg, err := s.messages.AppendUserMessage(ctx, tx, chatroomID, text)
	if err != nil {
		return nil, fmt.Errorf("%w: user message: %w", ErrPersistence, err)
	}
	aiMsg, err := s.messages.AppendPlaceholder(ctx, tx, chatroomID)
	if err != nil {
		return nil, fmt.Errorf("%w: placeholder: %w", ErrPersistence, err)
	}
	if err := s.queue.InsertTx(ctx, tx, generation.GenerateReplyArgs{
		PlaceholderMessageID: aiMsg.ID,
		UserMessageID:        userMsg.ID,
		ChatroomID:           chatroomID,
		UserID:               user.ID,
		UserText:             text,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnqueue, err)
	}
	if _, err := s.quota.Increment(ctx, tx, user.ID, user.Tier, now); err != nil {
		if errors.Is(err, quota.ErrLimitExceeded) {
			// Lost the last slot to a concurrent send.
			return nil, &AdmissionDeniedError{CurrentUsage: decision.Limit, Limit: decision.Limit}
		}
		return nil, fmt.Errorf("%w: increment usage: %w", ErrPersistence, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrPersistence, err)
	}

	s.log.Info("message queued", "user_id", user.ID, "chatroom_id", chatroomID, "message_id", aiMsg.ID)
	return &SendResult{UserMessage: userMsg, AIMessage: aiMsg}, nil
}
