package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/chatrelay/backend/internal/chatroom"
	"github.com/chatrelay/backend/internal/conversation"
	"github.com/chatrelay/backend/internal/models"
)

// failureWriteTimeout bounds recording the error text after the job's own
// context may already be done.
const failureWriteTimeout = 5 * time.Second

// MessageStore is what the worker reads and writes in the conversation.
type MessageStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Message, error)
	RecentHistory(ctx context.Context, chatroomID, excludeID uuid.UUID, limit int) ([]*models.Message, error)
	CompleteMessage(ctx context.Context, id uuid.UUID, content string, status models.MessageStatus) (models.MessageStatus, error)
}

var _ MessageStore = (*conversation.Repository)(nil)

// ChatroomToucher bumps a chatroom's activity timestamp.
type ChatroomToucher interface {
	Touch(ctx context.Context, id uuid.UUID) error
}

// Generator produces reply text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type WorkerConfig struct {
	HistoryLimit int
	// Timeout bounds one model call.
	Timeout time.Duration
}

type GenerateReplyWorker struct {
	river.WorkerDefaults[GenerateReplyArgs]
	messages MessageStore
	rooms    ChatroomToucher
	model    Generator
	cfg      WorkerConfig
	log      *slog.Logger
}

func NewGenerateReplyWorker(messages MessageStore, rooms ChatroomToucher, model Generator, cfg WorkerConfig, log *slog.Logger) *GenerateReplyWorker {
	if log == nil {
		log = slog.Default()
	}
	return &GenerateReplyWorker{messages: messages, rooms: rooms, model: model, cfg: cfg, log: log}
}

// Timeout leaves room after the model call to persist the outcome.
func (w *GenerateReplyWorker) Timeout(*river.Job[GenerateReplyArgs]) time.Duration {
	return w.cfg.Timeout + 30*time.Second
}

func (w *GenerateReplyWorker) Work(ctx context.Context, job *river.Job[GenerateReplyArgs]) error {
	args := job.Args
	log := w.log.With("job_id", job.ID, "message_id", args.PlaceholderMessageID, "attempt", job.Attempt)

	placeholder, err := w.messages.Get(ctx, args.PlaceholderMessageID)
	if errors.Is(err, conversation.ErrNotFound) {
		log.Warn("placeholder gone, cancelling job")
		return river.JobCancel(err)
	}
	if err != nil {
		return w.fail(ctx, job, log, fmt.Errorf("load placeholder: %w", err))
	}
	if placeholder.Status.Terminal() {
		log.Info("placeholder already resolved, skipping", "status", placeholder.Status)
		return nil
	}

	exclude := args.UserMessageID
	if exclude == uuid.Nil {
		exclude = args.PlaceholderMessageID
	}
	history, err := w.messages.RecentHistory(ctx, args.ChatroomID, exclude, w.cfg.HistoryLimit)
	if err != nil {
		return w.fail(ctx, job, log, fmt.Errorf("load history: %w", err))
	}
	prompt := BuildPrompt(history, args.UserText)

	genCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	text, err := w.model.Generate(genCtx, prompt)
	cancel()
	if err != nil {
		return w.fail(ctx, job, log, err)
	}

	prev, err := w.messages.CompleteMessage(ctx, args.PlaceholderMessageID, text, models.MessageStatusCompleted)
	if errors.Is(err, conversation.ErrNotFound) {
		log.Warn("placeholder deleted during generation")
		return river.JobCancel(err)
	}
	if err != nil {
		return w.fail(ctx, job, log, fmt.Errorf("store reply: %w", err))
	}
	if prev == models.MessageStatusCompleted {
		log.Warn("placeholder completed more than once")
	}

	if err := w.rooms.Touch(ctx, args.ChatroomID); err != nil && !errors.Is(err, chatroom.ErrNotFound) {
		log.Warn("touch chatroom", "chatroom_id", args.ChatroomID, "error", err)
	}
	log.Info("reply generated")
	return nil
}

// fail returns cause so River retries. On the last attempt it first writes the
// fixed error text so the placeholder is never left pending.
func (w *GenerateReplyWorker) fail(ctx context.Context, job *river.Job[GenerateReplyArgs], log *slog.Logger, cause error) error {
	if job.Attempt < job.MaxAttempts {
		log.Warn("generation attempt failed, will retry", "max_attempts", job.MaxAttempts, "error", cause)
		return cause
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()
	_, err := w.messages.CompleteMessage(wctx, job.Args.PlaceholderMessageID, models.ErrorContent, models.MessageStatusFailed)
	if err != nil && !errors.Is(err, conversation.ErrNotFound) {
		log.Error("record generation failure", "error", err, "cause", cause)
		return errors.Join(cause, fmt.Errorf("record failure: %w", err))
	}
	log.Error("generation failed, attempts exhausted", "error", cause)
	return cause
}
