package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fanreach/fanreach/internal/domain"
	"github.com/google/uuid"
)

// fakeLedger implements service.QuotaLedger for handler tests.
type fakeLedger struct {
	statusFn      func(userID uuid.UUID) (*domain.QuotaStatus, error)
	provisionFn   func(userID uuid.UUID, tier domain.PlanTier) (*domain.QuotaStatus, error)
	updateLimitFn func(userID uuid.UUID, newLimit int) error
}

func (f *fakeLedger) CheckAndReserve(ctx context.Context, userID uuid.UUID, cost int) (*domain.Reservation, error) {
	return nil, domain.Internal(nil, "fake", "not implemented")
}

func (f *fakeLedger) GetStatus(ctx context.Context, userID uuid.UUID) (*domain.QuotaStatus, error) {
	return f.statusFn(userID)
}

func (f *fakeLedger) Provision(ctx context.Context, userID uuid.UUID, tier domain.PlanTier) (*domain.QuotaStatus, error) {
	return f.provisionFn(userID, tier)
}

func (f *fakeLedger) UpdateLimit(ctx context.Context, userID uuid.UUID, newLimit int) error {
	return f.updateLimitFn(userID, newLimit)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newQuotaMux(ledger *fakeLedger) *http.ServeMux {
	mux := http.NewServeMux()
	NewQuotaHandler(ledger, discardLogger()).RegisterRoutes(mux)
	return mux
}

func TestQuotaHandler_GetStatus(t *testing.T) {
	userID := uuid.New()
	resetsAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	ledger := &fakeLedger{
		statusFn: func(id uuid.UUID) (*domain.QuotaStatus, error) {
			if id != userID {
				t.Errorf("GetStatus called with %s, want %s", id, userID)
			}
			return &domain.QuotaStatus{
				SentCount:   7,
				PeriodLimit: 50,
				Remaining:   43,
				ResetsAt:    resetsAt,
			}, nil
		},
	}

	req := httptest.NewRequest("GET", "/api/quota/"+userID.String(), nil)
	rec := httptest.NewRecorder()
	newQuotaMux(ledger).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var got domain.QuotaStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.SentCount != 7 || got.PeriodLimit != 50 || got.Remaining != 43 {
		t.Errorf("unexpected status payload: %+v", got)
	}
	if !got.ResetsAt.Equal(resetsAt) {
		t.Errorf("resets_at = %v, want %v", got.ResetsAt, resetsAt)
	}
}

func TestQuotaHandler_GetStatus_InvalidUserID(t *testing.T) {
	ledger := &fakeLedger{
		statusFn: func(id uuid.UUID) (*domain.QuotaStatus, error) {
			t.Error("ledger should not be called for an invalid user id")
			return nil, nil
		},
	}

	req := httptest.NewRequest("GET", "/api/quota/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	newQuotaMux(ledger).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
	}
}

func TestQuotaHandler_GetStatus_NotFound(t *testing.T) {
	userID := uuid.New()
	ledger := &fakeLedger{
		statusFn: func(id uuid.UUID) (*domain.QuotaStatus, error) {
			return nil, domain.NotFound("ledger.status", "quota record", id.String())
		},
	}

	req := httptest.NewRequest("GET", "/api/quota/"+userID.String(), nil)
	rec := httptest.NewRecorder()
	newQuotaMux(ledger).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body: %s", rec.Code, rec.Body.String())
	}
}

func TestQuotaHandler_Provision(t *testing.T) {
	userID := uuid.New()
	ledger := &fakeLedger{
		provisionFn: func(id uuid.UUID, tier domain.PlanTier) (*domain.QuotaStatus, error) {
			if tier != domain.PlanTierArtist {
				t.Errorf("tier = %q, want %q", tier, domain.PlanTierArtist)
			}
			return &domain.QuotaStatus{PeriodLimit: 1000, Remaining: 1000}, nil
		},
	}

	body := strings.NewReader(`{"tier": "artist"}`)
	req := httptest.NewRequest("POST", "/api/quota/"+userID.String(), body)
	rec := httptest.NewRecorder()
	newQuotaMux(ledger).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}
}

func TestQuotaHandler_Provision_MissingTier(t *testing.T) {
	userID := uuid.New()
	ledger := &fakeLedger{
		provisionFn: func(id uuid.UUID, tier domain.PlanTier) (*domain.QuotaStatus, error) {
			t.Error("Provision should not be called without a tier")
			return nil, nil
		},
	}

	req := httptest.NewRequest("POST", "/api/quota/"+userID.String(), strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	newQuotaMux(ledger).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
	}
}

func TestQuotaHandler_Provision_Duplicate(t *testing.T) {
	userID := uuid.New()
	ledger := &fakeLedger{
		provisionFn: func(id uuid.UUID, tier domain.PlanTier) (*domain.QuotaStatus, error) {
			return nil, domain.Conflict("ledger.provision", "Quota record already exists")
		},
	}

	body := strings.NewReader(`{"tier": "free"}`)
	req := httptest.NewRequest("POST", "/api/quota/"+userID.String(), body)
	rec := httptest.NewRecorder()
	newQuotaMux(ledger).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body: %s", rec.Code, rec.Body.String())
	}
}

func TestQuotaHandler_UpdateLimit(t *testing.T) {
	userID := uuid.New()
	var gotLimit int
	ledger := &fakeLedger{
		updateLimitFn: func(id uuid.UUID, newLimit int) error {
			gotLimit = newLimit
			return nil
		},
		statusFn: func(id uuid.UUID) (*domain.QuotaStatus, error) {
			return &domain.QuotaStatus{PeriodLimit: 1000, Remaining: 993, SentCount: 7}, nil
		},
	}

	body := strings.NewReader(`{"limit": 1000}`)
	req := httptest.NewRequest("PUT", "/api/quota/"+userID.String()+"/limit", body)
	rec := httptest.NewRecorder()
	newQuotaMux(ledger).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if gotLimit != 1000 {
		t.Errorf("UpdateLimit called with %d, want 1000", gotLimit)
	}
}

func TestQuotaHandler_UpdateLimit_Invalid(t *testing.T) {
	userID := uuid.New()
	ledger := &fakeLedger{
		updateLimitFn: func(id uuid.UUID, newLimit int) error {
			return domain.Invalid("ledger.update_limit", "limit must be at least 1")
		},
	}

	body := strings.NewReader(`{"limit": 0}`)
	req := httptest.NewRequest("PUT", "/api/quota/"+userID.String()+"/limit", body)
	rec := httptest.NewRecorder()
	newQuotaMux(ledger).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
	}
}

func TestErrorResponse_QuotaExceededPayload(t *testing.T) {
	resetsAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	qe := &domain.QuotaExceededError{
		Op:        "ledger.reserve",
		Limit:     50,
		Used:      48,
		Remaining: 2,
		ResetsAt:  resetsAt,
	}

	req := httptest.NewRequest("POST", "/api/campaigns", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), qe)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	var resp struct {
		Error struct {
			Code      string    `json:"code"`
			Limit     int       `json:"limit"`
			Used      int       `json:"used"`
			Remaining int       `json:"remaining"`
			ResetsAt  time.Time `json:"resets_at"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != domain.EQUOTA {
		t.Errorf("code = %q, want %q", resp.Error.Code, domain.EQUOTA)
	}
	if resp.Error.Limit != 50 || resp.Error.Used != 48 || resp.Error.Remaining != 2 {
		t.Errorf("unexpected quota payload: %+v", resp.Error)
	}
	if !resp.Error.ResetsAt.Equal(resetsAt) {
		t.Errorf("resets_at = %v, want %v", resp.Error.ResetsAt, resetsAt)
	}

	// Internal operation names stay out of the response body.
	if strings.Contains(rec.Body.String(), "ledger.reserve") {
		t.Errorf("response exposes internal operation name: %s", rec.Body.String())
	}
}

func TestErrorResponse_InternalErrorHidesDetails(t *testing.T) {
	dbErr := domain.Internal(
		errFake("pq: relation \"quota_records\" does not exist"),
		"repository.get_quota",
		"Database query failed",
	)

	req := httptest.NewRequest("GET", "/api/quota/123", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), dbErr)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	body := rec.Body.String()
	if strings.Contains(body, "pq:") || strings.Contains(body, "relation") {
		t.Errorf("response exposes database error: %s", body)
	}
	if strings.Contains(body, "repository.get_quota") {
		t.Errorf("response exposes internal operation: %s", body)
	}
}

type errFake string

func (e errFake) Error() string { return string(e) }
