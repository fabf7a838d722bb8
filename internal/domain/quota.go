// Package domain contains core business types and interfaces.
//
// This file defines the send-quota ledger types: the per-user counter row,
// the results of a reservation attempt, and the counting period boundaries.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxAllowedLimit is the ceiling for administratively configured period
// limits. Limits above this are rejected regardless of plan.
const MaxAllowedLimit = 1_000_000

// Period is the rolling window over which the send counter accumulates
// before resetting.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return p == PeriodDay || p == PeriodMonth
}

// Start returns the beginning of the period containing t, in UTC.
func (p Period) Start(t time.Time) time.Time {
	t = t.UTC()
	if p == PeriodMonth {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Next returns the beginning of the period after the one containing t.
// A counter whose LastResetAt is before Start(t) is due for a rollover.
func (p Period) Next(t time.Time) time.Time {
	start := p.Start(t)
	if p == PeriodMonth {
		return start.AddDate(0, 1, 0)
	}
	return start.AddDate(0, 0, 1)
}

// QuotaRecord is the authoritative per-user send counter. Exactly one row
// exists per user, created by provisioning when the user's plan is assigned.
//
// Invariants: 0 <= SentCount <= PeriodLimit after every successful
// reservation, and LastResetAt never moves backwards.
type QuotaRecord struct {
	UserID      uuid.UUID
	SentCount   int
	PeriodLimit int
	LastResetAt time.Time
	UpdatedAt   time.Time
}

// Remaining returns the unconsumed budget for the current period.
func (r *QuotaRecord) Remaining() int {
	if remaining := r.PeriodLimit - r.SentCount; remaining > 0 {
		return remaining
	}
	return 0
}

// Reservation is a granted claim against the remaining budget. The caller
// may dispatch exactly Granted sends against it.
type Reservation struct {
	Granted        int
	RemainingAfter int
}

// QuotaStatus is an advisory, lock-free snapshot for display. It may be
// marginally stale under concurrent reservations.
type QuotaStatus struct {
	SentCount   int       `json:"sent_count"`
	PeriodLimit int       `json:"period_limit"`
	Remaining   int       `json:"remaining"`
	LastResetAt time.Time `json:"last_reset_at"`
	ResetsAt    time.Time `json:"resets_at"`
}

// PlanTier identifies a subscription plan.
type PlanTier string

const (
	PlanTierFree   PlanTier = "free"
	PlanTierArtist PlanTier = "artist"
	PlanTierLabel  PlanTier = "label"
)

// PlanLimits maps subscription tiers to their default per-period send limits.
// These seed a user's QuotaRecord at provisioning time; later plan changes go
// through the administrative limit update.
var PlanLimits = map[PlanTier]int{
	PlanTierFree:   50,
	PlanTierArtist: 1_000,
	PlanTierLabel:  10_000,
}

// DefaultLimitForTier returns the default limit for a tier, falling back to
// the free tier for unknown values.
func DefaultLimitForTier(tier PlanTier) int {
	if limit, ok := PlanLimits[tier]; ok {
		return limit
	}
	return PlanLimits[PlanTierFree]
}
