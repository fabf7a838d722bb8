// Package service contains the business logic layer.
//
// Services orchestrate repositories, external APIs, and domain logic. They
// own input validation, business rule enforcement, transaction coordination,
// and error translation (database errors -> domain errors).
//
// This file implements the quota ledger: the single source of truth for
// "can this user send N more emails right now". Correctness does not rely on
// in-process synchronization at all — callers run in independent processes,
// so the check-then-increment is serialized per user by the database row
// lock taken inside LedgerStore.InTx.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fanreach/fanreach/internal/domain"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definitions
// =============================================================================

// QuotaLedger gates email sending against a per-user period budget.
type QuotaLedger interface {
	// CheckAndReserve atomically verifies that the user has at least cost
	// units of budget left in the current period and consumes them. The
	// period rollover is applied inside the same transaction, before the
	// counter is read.
	//
	// Returns domain.EINVALID for cost < 1 (checked before any lock is
	// taken), domain.ENOTFOUND when the user was never provisioned, and a
	// *domain.QuotaExceededError — with no counter mutation — when the
	// reservation would exceed the limit.
	CheckAndReserve(ctx context.Context, userID uuid.UUID, cost int) (*domain.Reservation, error)

	// GetStatus returns an advisory snapshot of the user's budget without
	// taking the row lock. It may be marginally stale under concurrent
	// reservations.
	GetStatus(ctx context.Context, userID uuid.UUID) (*domain.QuotaStatus, error)

	// UpdateLimit changes the user's period limit. The counter is untouched,
	// so a mid-period upgrade immediately frees budget and a downgrade may
	// leave the counter above the new limit until the next rollover.
	// Returns domain.EINVALID outside [1, domain.MaxAllowedLimit].
	UpdateLimit(ctx context.Context, userID uuid.UUID, newLimit int) error

	// Provision creates the user's quota record with the tier's default
	// limit. Returns domain.ECONFLICT if the record already exists.
	// CheckAndReserve never creates records itself: a missing record means a
	// provisioning bug and must surface as ENOTFOUND, not a silent zero-limit
	// row.
	Provision(ctx context.Context, userID uuid.UUID, tier domain.PlanTier) (*domain.QuotaStatus, error)
}

// LedgerTx is the set of ledger operations available while the user's row
// lock is held.
type LedgerTx interface {
	// RecordForUpdate reads the record under an exclusive row lock, blocking
	// until concurrent reservations for the same user finish.
	RecordForUpdate(ctx context.Context, userID uuid.UUID) (*domain.QuotaRecord, error)

	// ResetPeriod zeroes the counter and advances the reset marker.
	ResetPeriod(ctx context.Context, userID uuid.UUID, periodStart time.Time) error

	// AddSent increments the counter by n and returns the new count.
	AddSent(ctx context.Context, userID uuid.UUID, n int) (int, error)
}

// LedgerStore abstracts the transactional store underneath the ledger.
// The production implementation is SQLLedgerStore; tests substitute an
// in-memory store with the same locking discipline.
type LedgerStore interface {
	// InTx runs fn inside a transaction. Returning an error rolls back,
	// which releases any reservation made inside fn before it became visible.
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error

	// GetRecord reads the record without locking.
	GetRecord(ctx context.Context, userID uuid.UUID) (*domain.QuotaRecord, error)

	// CreateRecord inserts a fresh record with a zero counter.
	CreateRecord(ctx context.Context, userID uuid.UUID, limit int, periodStart time.Time) (*domain.QuotaRecord, error)

	// SetLimit updates the period limit, returning the rows affected.
	SetLimit(ctx context.Context, userID uuid.UUID, limit int) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quotaLedger struct {
	store  LedgerStore
	period domain.Period
	logger *slog.Logger
}

// NewQuotaLedger creates a QuotaLedger counting over the given period.
func NewQuotaLedger(store LedgerStore, period domain.Period, logger *slog.Logger) QuotaLedger {
	if !period.Valid() {
		period = domain.PeriodDay
	}
	return &quotaLedger{
		store:  store,
		period: period,
		logger: logger,
	}
}

func (s *quotaLedger) CheckAndReserve(ctx context.Context, userID uuid.UUID, cost int) (*domain.Reservation, error) {
	const op = "ledger.reserve"

	// Programmer error, rejected before any lock is taken.
	if cost < 1 {
		return nil, domain.Invalid(op, "cost must be a positive number of sends")
	}

	var reservation *domain.Reservation
	err := s.store.InTx(ctx, func(tx LedgerTx) error {
		rec, err := tx.RecordForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFound(op, "quota record", userID.String())
			}
			return domain.Internal(err, op, "Failed to lock quota record")
		}

		now := time.Now().UTC()
		if err := s.maybeReset(ctx, tx, rec, now); err != nil {
			return err
		}

		if rec.SentCount+cost > rec.PeriodLimit {
			return &domain.QuotaExceededError{
				Op:        op,
				Limit:     rec.PeriodLimit,
				Used:      rec.SentCount,
				Remaining: rec.Remaining(),
				ResetsAt:  s.period.Next(now),
			}
		}

		newCount, err := tx.AddSent(ctx, userID, cost)
		if err != nil {
			return domain.Internal(err, op, "Failed to increment quota counter")
		}

		reservation = &domain.Reservation{
			Granted:        cost,
			RemainingAfter: rec.PeriodLimit - newCount,
		}
		return nil
	})
	if err != nil {
		if domain.IsQuotaExceeded(err) {
			s.logger.Info("reservation denied",
				"user_id", userID,
				"cost", cost,
			)
		}
		return nil, err
	}

	s.logger.Debug("reservation granted",
		"user_id", userID,
		"cost", cost,
		"remaining", reservation.RemainingAfter,
	)
	return reservation, nil
}

// maybeReset rolls the counter over when the stored period has ended. It
// runs under the same row lock as the reservation so a rollover can never
// interleave with another caller's check-then-increment. Idempotent: within
// a period the condition is false and nothing happens.
//
// rec is updated in place so the caller's admission check sees the fresh
// counter.
func (s *quotaLedger) maybeReset(ctx context.Context, tx LedgerTx, rec *domain.QuotaRecord, now time.Time) error {
	const op = "ledger.reset"

	periodStart := s.period.Start(now)
	if !rec.LastResetAt.Before(periodStart) {
		return nil
	}

	if err := tx.ResetPeriod(ctx, rec.UserID, periodStart); err != nil {
		return domain.Internal(err, op, "Failed to reset quota period")
	}

	rec.SentCount = 0
	rec.LastResetAt = periodStart
	return nil
}

func (s *quotaLedger) GetStatus(ctx context.Context, userID uuid.UUID) (*domain.QuotaStatus, error) {
	const op = "ledger.status"

	rec, err := s.store.GetRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "quota record", userID.String())
		}
		return nil, domain.Internal(err, op, "Failed to read quota record")
	}

	// A record from a previous period is presented as already rolled over;
	// the persistent reset still happens under the lock on the next
	// reservation.
	now := time.Now().UTC()
	if rec.LastResetAt.Before(s.period.Start(now)) {
		rec.SentCount = 0
		rec.LastResetAt = s.period.Start(now)
	}

	return &domain.QuotaStatus{
		SentCount:   rec.SentCount,
		PeriodLimit: rec.PeriodLimit,
		Remaining:   rec.Remaining(),
		LastResetAt: rec.LastResetAt,
		ResetsAt:    s.period.Next(now),
	}, nil
}

func (s *quotaLedger) UpdateLimit(ctx context.Context, userID uuid.UUID, newLimit int) error {
	const op = "ledger.update_limit"

	if newLimit < 1 || newLimit > domain.MaxAllowedLimit {
		return domain.Invalid(op, "limit must be between 1 and 1000000")
	}

	affected, err := s.store.SetLimit(ctx, userID, newLimit)
	if err != nil {
		return domain.Internal(err, op, "Failed to update quota limit")
	}
	if affected == 0 {
		return domain.NotFound(op, "quota record", userID.String())
	}

	s.logger.Info("quota limit updated", "user_id", userID, "limit", newLimit)
	return nil
}

func (s *quotaLedger) Provision(ctx context.Context, userID uuid.UUID, tier domain.PlanTier) (*domain.QuotaStatus, error) {
	const op = "ledger.provision"

	limit := domain.DefaultLimitForTier(tier)
	now := time.Now().UTC()

	rec, err := s.store.CreateRecord(ctx, userID, limit, s.period.Start(now))
	if err != nil {
		// Unique constraint on user_id catches concurrent double-provisioning.
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			return nil, domain.Conflict(op, "Quota record already provisioned")
		}
		return nil, domain.Internal(err, op, "Failed to create quota record")
	}

	s.logger.Info("quota record provisioned",
		"user_id", userID,
		"tier", tier,
		"limit", limit,
	)

	return &domain.QuotaStatus{
		SentCount:   rec.SentCount,
		PeriodLimit: rec.PeriodLimit,
		Remaining:   rec.Remaining(),
		LastResetAt: rec.LastResetAt,
		ResetsAt:    s.period.Next(now),
	}, nil
}
