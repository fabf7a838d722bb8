package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QuotaRecord is the database row for a user's send counter.
type QuotaRecord struct {
	UserID      uuid.UUID
	SentCount   int
	PeriodLimit int
	LastResetAt time.Time
	UpdatedAt   time.Time
}

const getQuotaRecord = `
SELECT user_id, sent_count, period_limit, last_reset_at, updated_at
FROM quota_records
WHERE user_id = $1
`

// GetQuotaRecord reads a quota record without locking it. Suitable for
// advisory status reads only; reservations must use GetQuotaRecordForUpdate.
func (q *Queries) GetQuotaRecord(ctx context.Context, userID uuid.UUID) (QuotaRecord, error) {
	row := q.db.QueryRowContext(ctx, getQuotaRecord, userID)
	var r QuotaRecord
	err := row.Scan(&r.UserID, &r.SentCount, &r.PeriodLimit, &r.LastResetAt, &r.UpdatedAt)
	return r, err
}

const getQuotaRecordForUpdate = `
SELECT user_id, sent_count, period_limit, last_reset_at, updated_at
FROM quota_records
WHERE user_id = $1
FOR UPDATE
`

// GetQuotaRecordForUpdate reads a quota record under an exclusive row lock.
// The lock is held until the surrounding transaction commits or rolls back,
// serializing check-then-increment against concurrent reservations for the
// same user. Must be called inside a transaction.
func (q *Queries) GetQuotaRecordForUpdate(ctx context.Context, userID uuid.UUID) (QuotaRecord, error) {
	row := q.db.QueryRowContext(ctx, getQuotaRecordForUpdate, userID)
	var r QuotaRecord
	err := row.Scan(&r.UserID, &r.SentCount, &r.PeriodLimit, &r.LastResetAt, &r.UpdatedAt)
	return r, err
}

const createQuotaRecord = `
INSERT INTO quota_records (user_id, sent_count, period_limit, last_reset_at, updated_at)
VALUES ($1, 0, $2, $3, now())
RETURNING user_id, sent_count, period_limit, last_reset_at, updated_at
`

// CreateQuotaRecordParams holds the inputs for CreateQuotaRecord.
type CreateQuotaRecordParams struct {
	UserID      uuid.UUID
	PeriodLimit int
	LastResetAt time.Time
}

// CreateQuotaRecord provisions a user's quota record. The unique constraint
// on user_id makes duplicate provisioning fail rather than create two rows.
func (q *Queries) CreateQuotaRecord(ctx context.Context, arg CreateQuotaRecordParams) (QuotaRecord, error) {
	row := q.db.QueryRowContext(ctx, createQuotaRecord, arg.UserID, arg.PeriodLimit, arg.LastResetAt)
	var r QuotaRecord
	err := row.Scan(&r.UserID, &r.SentCount, &r.PeriodLimit, &r.LastResetAt, &r.UpdatedAt)
	return r, err
}

const resetQuotaPeriod = `
UPDATE quota_records
SET sent_count = 0, last_reset_at = $2, updated_at = now()
WHERE user_id = $1
`

// ResetQuotaPeriod zeroes the counter and advances the reset marker to the
// given period start. Callers must hold the row lock.
func (q *Queries) ResetQuotaPeriod(ctx context.Context, userID uuid.UUID, periodStart time.Time) error {
	_, err := q.db.ExecContext(ctx, resetQuotaPeriod, userID, periodStart)
	return err
}

const addQuotaSent = `
UPDATE quota_records
SET sent_count = sent_count + $2, updated_at = now()
WHERE user_id = $1
RETURNING sent_count
`

// AddQuotaSent increments the counter by n and returns the new value.
// Callers must hold the row lock and have verified the budget first.
func (q *Queries) AddQuotaSent(ctx context.Context, userID uuid.UUID, n int) (int, error) {
	row := q.db.QueryRowContext(ctx, addQuotaSent, userID, n)
	var sentCount int
	err := row.Scan(&sentCount)
	return sentCount, err
}

const updateQuotaLimit = `
UPDATE quota_records
SET period_limit = $2, updated_at = now()
WHERE user_id = $1
`

// UpdateQuotaLimit changes the period limit without touching the counter.
// Returns the number of rows affected so callers can detect a missing record.
func (q *Queries) UpdateQuotaLimit(ctx context.Context, userID uuid.UUID, limit int) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateQuotaLimit, userID, limit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
