package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fanreach/fanreach/internal/domain"
	"github.com/fanreach/fanreach/internal/repository"
	"github.com/fanreach/fanreach/internal/service"
	"github.com/fanreach/fanreach/internal/worker"
	"github.com/google/uuid"
)

// MaxRecipientsPerCampaign caps a single enqueue request. Larger audiences
// are split into multiple campaigns upstream.
const MaxRecipientsPerCampaign = 10_000

// CampaignEnqueuer hands a rendered campaign batch to the background worker.
type CampaignEnqueuer interface {
	EnqueueSendCampaign(ctx context.Context, payload worker.SendCampaignPayload, opts ...worker.EnqueueOption) (repository.Job, error)
}

// CampaignHandler accepts campaign send requests and hands them to the
// background worker. Delivery is asynchronous; quota is reserved when the
// job runs, not at enqueue time.
type CampaignHandler struct {
	enqueuer CampaignEnqueuer
	logger   *slog.Logger
}

// NewCampaignHandler creates a new CampaignHandler.
func NewCampaignHandler(enqueuer CampaignEnqueuer, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// RegisterRoutes registers the campaign endpoints on the mux.
func (h *CampaignHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/campaigns", h.Send)
}

// sendCampaignRequest is the body for POST /api/campaigns.
type sendCampaignRequest struct {
	UserID     uuid.UUID           `json:"user_id"`
	Subject    string              `json:"subject"`
	HTMLBody   string              `json:"html_body"`
	TextBody   string              `json:"text_body"`
	Recipients []service.Recipient `json:"recipients"`
}

// sendCampaignResponse acknowledges an accepted campaign.
type sendCampaignResponse struct {
	JobID      uuid.UUID `json:"job_id"`
	Status     string    `json:"status"`
	Recipients int       `json:"recipients"`
}

// Send validates a campaign request and enqueues a dispatch job.
// Responds 202 Accepted with the job id on success.
func (h *CampaignHandler) Send(w http.ResponseWriter, r *http.Request) {
	const op = "handler.campaign_send"

	var req sendCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid JSON body"))
		return
	}

	if req.UserID == uuid.Nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "user_id is required"))
		return
	}
	if req.Subject == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "subject is required"))
		return
	}
	if req.HTMLBody == "" && req.TextBody == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "campaign body is required"))
		return
	}
	if len(req.Recipients) == 0 {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "at least one recipient is required"))
		return
	}
	if len(req.Recipients) > MaxRecipientsPerCampaign {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "too many recipients in a single campaign"))
		return
	}
	for _, rcpt := range req.Recipients {
		if rcpt.Email == "" {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "recipient email is required"))
			return
		}
	}

	job, err := h.enqueuer.EnqueueSendCampaign(r.Context(), worker.SendCampaignPayload{
		UserID:     req.UserID,
		Subject:    req.Subject,
		HTMLBody:   req.HTMLBody,
		TextBody:   req.TextBody,
		Recipients: req.Recipients,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EINTERNAL, op, "Failed to enqueue campaign"))
		return
	}

	h.logger.Info("campaign enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("user_id", req.UserID.String()),
		slog.Int("recipients", len(req.Recipients)))

	writeJSON(w, http.StatusAccepted, sendCampaignResponse{
		JobID:      job.ID,
		Status:     "queued",
		Recipients: len(req.Recipients),
	})
}
