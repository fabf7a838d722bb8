package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fanreach/fanreach/internal/domain"
	"github.com/fanreach/fanreach/internal/service"
	"github.com/google/uuid"
)

// QuotaHandler exposes the quota ledger over HTTP.
type QuotaHandler struct {
	ledger service.QuotaLedger
	logger *slog.Logger
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(ledger service.QuotaLedger, logger *slog.Logger) *QuotaHandler {
	return &QuotaHandler{
		ledger: ledger,
		logger: logger,
	}
}

// RegisterRoutes registers the quota endpoints on the mux.
func (h *QuotaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quota/{userID}", h.GetStatus)
	mux.HandleFunc("POST /api/quota/{userID}", h.Provision)
	mux.HandleFunc("PUT /api/quota/{userID}/limit", h.UpdateLimit)
}

// GetStatus returns the advisory quota snapshot for a user.
// The snapshot may trail concurrent reservations slightly; dashboards must
// not treat it as a reservation.
func (h *QuotaHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	status, err := h.ledger.GetStatus(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// provisionRequest is the body for POST /api/quota/{userID}.
type provisionRequest struct {
	Tier string `json:"tier"`
}

// Provision creates the quota record when a user's plan is assigned.
func (h *QuotaHandler) Provision(w http.ResponseWriter, r *http.Request) {
	const op = "handler.quota_provision"

	userID, err := parseUserID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid JSON body"))
		return
	}
	if req.Tier == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "tier is required"))
		return
	}

	status, err := h.ledger.Provision(r.Context(), userID, domain.PlanTier(req.Tier))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, status)
}

// updateLimitRequest is the body for PUT /api/quota/{userID}/limit.
type updateLimitRequest struct {
	Limit int `json:"limit"`
}

// UpdateLimit changes a user's period limit, typically on plan change.
func (h *QuotaHandler) UpdateLimit(w http.ResponseWriter, r *http.Request) {
	const op = "handler.quota_update_limit"

	userID, err := parseUserID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req updateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid JSON body"))
		return
	}

	if err := h.ledger.UpdateLimit(r.Context(), userID, req.Limit); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	status, err := h.ledger.GetStatus(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// parseUserID extracts and validates the userID path segment.
func parseUserID(r *http.Request) (uuid.UUID, error) {
	const op = "handler.parse_user_id"

	raw := r.PathValue("userID")
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid(op, "userID must be a valid UUID")
	}
	return userID, nil
}
