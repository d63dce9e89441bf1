package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chatrelay/backend/internal/models"
)

// Limits are the per-tier daily message limits.
type Limits struct {
	Basic int
	Pro   int
}

// For returns the limit for tier; unknown tiers get the basic limit.
func (l Limits) For(tier models.Tier) int {
	if tier == models.TierPro {
		return l.Pro
	}
	return l.Basic
}

// Day truncates t to its UTC calendar date, the unit usage is counted in.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed      bool
	CurrentUsage int
	Limit        int
}

// Usage is the caller-facing view of today's counter.
type Usage struct {
	Today      int `json:"today"`
	DailyLimit int `json:"daily_limit"`
	Remaining  int `json:"remaining"`
}

// Store is the persistence the ledger needs. *Repository implements it.
type Store interface {
	EnsureToday(ctx context.Context, userID uuid.UUID, day time.Time) (int, error)
	Count(ctx context.Context, userID uuid.UUID, day time.Time) (int, error)
	Increment(ctx context.Context, tx pgx.Tx, userID uuid.UUID, day time.Time, limit int) (int, error)
}

type Service interface {
	CheckAndReserve(ctx context.Context, userID uuid.UUID, tier models.Tier, day time.Time) (Decision, error)
	Increment(ctx context.Context, tx pgx.Tx, userID uuid.UUID, tier models.Tier, day time.Time) (int, error)
	Usage(ctx context.Context, userID uuid.UUID, tier models.Tier, day time.Time) (Usage, error)
}

type service struct {
	store  Store
	limits Limits
}

func NewService(store Store, limits Limits) Service {
	return &service{store: store, limits: limits}
}

var _ Service = (*service)(nil)
var _ Store = (*Repository)(nil)

// CheckAndReserve makes sure today's row exists and reports whether another
// message fits under the tier's limit. It never changes the count.
func (s *service) CheckAndReserve(ctx context.Context, userID uuid.UUID, tier models.Tier, day time.Time) (Decision, error) {
	limit := s.limits.For(tier)
	count, err := s.store.EnsureToday(ctx, userID, Day(day))
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: count < limit, CurrentUsage: count, Limit: limit}, nil
}

// Increment counts one admitted message inside tx. It returns ErrLimitExceeded
// if a concurrent send took the last slot since CheckAndReserve.
func (s *service) Increment(ctx context.Context, tx pgx.Tx, userID uuid.UUID, tier models.Tier, day time.Time) (int, error) {
	return s.store.Increment(ctx, tx, userID, Day(day), s.limits.For(tier))
}

func (s *service) Usage(ctx context.Context, userID uuid.UUID, tier models.Tier, day time.Time) (Usage, error) {
	limit := s.limits.For(tier)
	count, err := s.store.Count(ctx, userID, Day(day))
	if err != nil {
		return Usage{}, err
	}
	return Usage{Today: count, DailyLimit: limit, Remaining: max(limit-count, 0)}, nil
}
