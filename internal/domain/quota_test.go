package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriod_Start(t *testing.T) {
	tests := []struct {
		name   string
		period Period
		at     time.Time
		want   time.Time
	}{
		{
			"day mid-afternoon",
			PeriodDay,
			time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
			time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			"day exactly midnight",
			PeriodDay,
			time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			"day converts to UTC first",
			PeriodDay,
			time.Date(2025, 3, 14, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)),
			time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			"month mid-month",
			PeriodMonth,
			time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.period.Start(tt.at))
		})
	}
}

func TestPeriod_Next(t *testing.T) {
	tests := []struct {
		name   string
		period Period
		at     time.Time
		want   time.Time
	}{
		{
			"day rolls to next midnight",
			PeriodDay,
			time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC),
			time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"day across month boundary",
			PeriodDay,
			time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"month rolls to first of next month",
			PeriodMonth,
			time.Date(2025, 12, 14, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.period.Next(tt.at))
		})
	}
}

func TestPeriod_Valid(t *testing.T) {
	assert.True(t, PeriodDay.Valid())
	assert.True(t, PeriodMonth.Valid())
	assert.False(t, Period("week").Valid())
	assert.False(t, Period("").Valid())
}

func TestQuotaRecord_Remaining(t *testing.T) {
	tests := []struct {
		name   string
		sent   int
		limit  int
		want   int
	}{
		{"untouched", 0, 100, 100},
		{"partially used", 37, 100, 63},
		{"exhausted", 100, 100, 0},
		{"never negative", 105, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &QuotaRecord{SentCount: tt.sent, PeriodLimit: tt.limit}
			assert.Equal(t, tt.want, rec.Remaining())
		})
	}
}

func TestDefaultLimitForTier(t *testing.T) {
	assert.Equal(t, 50, DefaultLimitForTier(PlanTierFree))
	assert.Equal(t, 1_000, DefaultLimitForTier(PlanTierArtist))
	assert.Equal(t, 10_000, DefaultLimitForTier(PlanTierLabel))
	// Unknown tiers fall back to free rather than zero, so a misconfigured
	// plan can still send a little instead of nothing.
	assert.Equal(t, 50, DefaultLimitForTier(PlanTier("enterprise")))
}

func TestQuotaExceededError(t *testing.T) {
	resets := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	err := &QuotaExceededError{Op: "ledger.reserve", Limit: 50, Used: 50, Remaining: 0, ResetsAt: resets}

	assert.True(t, IsQuotaExceeded(err))
	assert.Equal(t, EQUOTA, ErrorCode(err))

	qe, ok := AsQuotaExceeded(err)
	assert.True(t, ok)
	assert.Equal(t, 50, qe.Limit)
	assert.Contains(t, err.Error(), "50 of 50")

	assert.False(t, IsQuotaExceeded(Invalid("op", "nope")))
}
