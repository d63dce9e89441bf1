package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/chatrelay/backend/internal/conversation"
)

// StaleLister finds placeholders that have been pending too long.
type StaleLister interface {
	ListStalePlaceholders(ctx context.Context, olderThan time.Time, limit int) ([]conversation.StalePlaceholder, error)
}

var _ StaleLister = (*conversation.Repository)(nil)

// Enqueuer inserts a reply job outside a transaction. *Inserter implements it.
type Enqueuer interface {
	Insert(ctx context.Context, args GenerateReplyArgs) (duplicate bool, err error)
}

type SweepConfig struct {
	Interval  time.Duration
	Grace     time.Duration
	BatchSize int
}

// SweepOrphansWorker re-enqueues reply jobs for placeholders still pending
// after the grace period. Uniqueness on the placeholder id keeps a live job
// from being doubled.
type SweepOrphansWorker struct {
	river.WorkerDefaults[SweepOrphansArgs]
	store StaleLister
	queue Enqueuer
	cfg   SweepConfig
	log   *slog.Logger
	now   func() time.Time
}

func NewSweepOrphansWorker(store StaleLister, queue Enqueuer, cfg SweepConfig, log *slog.Logger) *SweepOrphansWorker {
	if log == nil {
		log = slog.Default()
	}
	return &SweepOrphansWorker{store: store, queue: queue, cfg: cfg, log: log, now: time.Now}
}

func (w *SweepOrphansWorker) Work(ctx context.Context, job *river.Job[SweepOrphansArgs]) error {
	stale, err := w.store.ListStalePlaceholders(ctx, w.now().Add(-w.cfg.Grace), w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list stale placeholders: %w", err)
	}
	var enqueued, duplicates, failed int
	for _, s := range stale {
		dup, err := w.queue.Insert(ctx, GenerateReplyArgs{
			PlaceholderMessageID: s.PlaceholderID,
			UserMessageID:        s.UserMessageID,
			ChatroomID:           s.ChatroomID,
			UserID:               s.UserID,
			UserText:             s.UserText,
		})
		switch {
		case err != nil:
			failed++
			w.log.Error("re-enqueue placeholder", "message_id", s.PlaceholderID, "error", err)
		case dup:
			duplicates++
		default:
			enqueued++
		}
	}
	if len(stale) > 0 {
		w.log.Info("orphan sweep finished", "found", len(stale), "enqueued", enqueued, "duplicates", duplicates, "failed", failed)
	}
	return nil
}

// SweepPeriodicJob schedules the sweep every cfg.Interval, starting at boot.
func SweepPeriodicJob(cfg SweepConfig) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(cfg.Interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return SweepOrphansArgs{}, &river.InsertOpts{MaxAttempts: 1}
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}
