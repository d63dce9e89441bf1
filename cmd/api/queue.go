package main

import (
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/chatrelay/backend/internal/config"
	"github.com/chatrelay/backend/internal/conversation"
	"github.com/chatrelay/backend/internal/generation"
)

type queueDeps struct {
	messages *conversation.Repository
	rooms    generation.ChatroomToucher
	model    generation.Generator
	inserter *generation.Inserter
}

// newQueueClient registers the reply and sweep workers and builds the River
// client. Reply jobs run on their own queue so the sweep never waits behind
// model calls.
func newQueueClient(pool *pgxpool.Pool, cfg *config.Config, deps queueDeps, logger *slog.Logger) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, generation.NewGenerateReplyWorker(deps.messages, deps.rooms, deps.model, generation.WorkerConfig{
		HistoryLimit: cfg.Generation.HistoryLimit,
		Timeout:      cfg.Generation.Timeout,
	}, logger))

	sweepCfg := generation.SweepConfig{
		Interval:  cfg.Sweep.Interval,
		Grace:     cfg.Sweep.Grace,
		BatchSize: cfg.Sweep.BatchSize,
	}
	river.AddWorker(workers, generation.NewSweepOrphansWorker(deps.messages, deps.inserter, sweepCfg, logger))

	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			generation.QueueGeneration: {MaxWorkers: cfg.Queue.MaxWorkers},
			river.QueueDefault:         {MaxWorkers: 1},
		},
		Workers:              workers,
		PeriodicJobs:         []*river.PeriodicJob{generation.SweepPeriodicJob(sweepCfg)},
		RescueStuckJobsAfter: cfg.Queue.RescueAfter,
		Logger:               logger,
	})
}
