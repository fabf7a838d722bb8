package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fanreach/fanreach/internal/domain"
	"github.com/fanreach/fanreach/internal/repository"
	"github.com/google/uuid"
)

// SQLLedgerStore is the Postgres-backed LedgerStore. Row locking comes from
// SELECT ... FOR UPDATE inside InTx; readers outside InTx never block on it.
type SQLLedgerStore struct {
	db      *sql.DB
	queries *repository.Queries
}

// NewSQLLedgerStore creates a LedgerStore on the given database handle.
func NewSQLLedgerStore(db *sql.DB, queries *repository.Queries) *SQLLedgerStore {
	return &SQLLedgerStore{
		db:      db,
		queries: queries,
	}
}

// InTx runs fn inside a database transaction. The row lock acquired by
// RecordForUpdate is held until commit or rollback.
func (s *SQLLedgerStore) InTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlLedgerTx{queries: s.queries.WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLLedgerStore) GetRecord(ctx context.Context, userID uuid.UUID) (*domain.QuotaRecord, error) {
	rec, err := s.queries.GetQuotaRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	return repoQuotaToDomain(rec), nil
}

func (s *SQLLedgerStore) CreateRecord(ctx context.Context, userID uuid.UUID, limit int, periodStart time.Time) (*domain.QuotaRecord, error) {
	rec, err := s.queries.CreateQuotaRecord(ctx, repository.CreateQuotaRecordParams{
		UserID:      userID,
		PeriodLimit: limit,
		LastResetAt: periodStart,
	})
	if err != nil {
		return nil, err
	}
	return repoQuotaToDomain(rec), nil
}

func (s *SQLLedgerStore) SetLimit(ctx context.Context, userID uuid.UUID, limit int) (int64, error) {
	return s.queries.UpdateQuotaLimit(ctx, userID, limit)
}

// sqlLedgerTx exposes the locked-row operations bound to one transaction.
type sqlLedgerTx struct {
	queries *repository.Queries
}

func (t *sqlLedgerTx) RecordForUpdate(ctx context.Context, userID uuid.UUID) (*domain.QuotaRecord, error) {
	rec, err := t.queries.GetQuotaRecordForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return repoQuotaToDomain(rec), nil
}

func (t *sqlLedgerTx) ResetPeriod(ctx context.Context, userID uuid.UUID, periodStart time.Time) error {
	return t.queries.ResetQuotaPeriod(ctx, userID, periodStart)
}

func (t *sqlLedgerTx) AddSent(ctx context.Context, userID uuid.UUID, n int) (int, error) {
	return t.queries.AddQuotaSent(ctx, userID, n)
}

func repoQuotaToDomain(rec repository.QuotaRecord) *domain.QuotaRecord {
	return &domain.QuotaRecord{
		UserID:      rec.UserID,
		SentCount:   rec.SentCount,
		PeriodLimit: rec.PeriodLimit,
		LastResetAt: rec.LastResetAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

// Compile-time interface check
var _ LedgerStore = (*SQLLedgerStore)(nil)
