package generation

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// ErrQueueNotReady is returned when a job is inserted before the River client is bound.
var ErrQueueNotReady = errors.New("job queue not ready")

// Inserter enqueues reply jobs through a River client that is bound after
// construction. Workers need the inserter before the client exists, so main
// creates it first and calls Bind once the client is built.
type Inserter struct {
	mu          sync.RWMutex
	client      *river.Client[pgx.Tx]
	maxAttempts int
}

func NewInserter(maxAttempts int) *Inserter {
	return &Inserter{maxAttempts: maxAttempts}
}

func (i *Inserter) Bind(client *river.Client[pgx.Tx]) {
	i.mu.Lock()
	i.client = client
	i.mu.Unlock()
}

func (i *Inserter) get() (*river.Client[pgx.Tx], error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.client == nil {
		return nil, ErrQueueNotReady
	}
	return i.client, nil
}

func (i *Inserter) opts() *river.InsertOpts {
	return &river.InsertOpts{MaxAttempts: i.maxAttempts}
}

// InsertTx enqueues inside tx; the job becomes visible when tx commits.
func (i *Inserter) InsertTx(ctx context.Context, tx pgx.Tx, args GenerateReplyArgs) error {
	client, err := i.get()
	if err != nil {
		return err
	}
	_, err = client.InsertTx(ctx, tx, args, i.opts())
	return err
}

// Insert enqueues outside a transaction. duplicate is true when a live job
// for the same placeholder already existed.
func (i *Inserter) Insert(ctx context.Context, args GenerateReplyArgs) (duplicate bool, err error) {
	client, err := i.get()
	if err != nil {
		return false, err
	}
	res, err := client.Insert(ctx, args, i.opts())
	if err != nil {
		return false, err
	}
	return res.UniqueSkippedAsDuplicate, nil
}
