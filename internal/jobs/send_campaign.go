// Package jobs contains the background job handlers.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fanreach/fanreach/internal/domain"
	"github.com/fanreach/fanreach/internal/service"
	"github.com/fanreach/fanreach/internal/worker"
	"github.com/sethvargo/go-retry"
)

const (
	// reserveMaxRetries bounds the in-job retries for transient storage
	// failures before the reservation. Queue-level retry takes over after.
	reserveMaxRetries = 3

	// reserveRetryBase is the initial backoff for those retries.
	reserveRetryBase = 500 * time.Millisecond
)

// SendCampaignHandler processes campaign dispatch jobs: it reserves quota
// for the whole batch and delivers the rendered newsletter to each recipient.
type SendCampaignHandler struct {
	sender service.CampaignSender
	logger *slog.Logger
}

// NewSendCampaignHandler creates a new handler for campaign dispatch jobs.
func NewSendCampaignHandler(sender service.CampaignSender, logger *slog.Logger) *SendCampaignHandler {
	return &SendCampaignHandler{
		sender: sender,
		logger: logger,
	}
}

// Type returns the job type identifier.
func (h *SendCampaignHandler) Type() string {
	return worker.JobTypeSendCampaign
}

// Handle executes the campaign dispatch job.
//
// Failure mapping:
//   - quota exceeded: permanent — retrying cannot help until the period
//     rolls over, and the musician needs the upgrade prompt, not a retry loop
//   - storage errors before the reservation: retried here with backoff,
//     then handed to the queue's retry
//   - failures after the reservation: never retried, because the quota is
//     already spent and a retry would reserve (and send) again
func (h *SendCampaignHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.SendCampaignPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	h.logger.Info("Dispatching campaign",
		"user_id", p.UserID,
		"recipients", len(p.Recipients),
	)

	batch := service.OutboundBatch{
		UserID:     p.UserID,
		Subject:    p.Subject,
		HTMLBody:   p.HTMLBody,
		TextBody:   p.TextBody,
		Recipients: p.Recipients,
	}

	var result *service.BatchResult
	backoff := retry.WithMaxRetries(reserveMaxRetries, retry.NewFibonacci(reserveRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := h.sender.SendBatch(ctx, batch)
		if err != nil {
			// A nil result means the reservation never happened, so a
			// transient storage error is safe to retry without double-spend.
			if res == nil && result == nil && domain.ErrorCode(err) == domain.EINTERNAL {
				return retry.RetryableError(err)
			}
			result = res
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if domain.IsQuotaExceeded(err) {
			return worker.NewPermanentError(err)
		}
		if domain.ErrorCode(err) == domain.EINVALID || domain.ErrorCode(err) == domain.ENOTFOUND {
			return worker.NewPermanentError(err)
		}
		if result != nil {
			// Quota already spent; the queue must not re-run this batch.
			return worker.NewPermanentError(err)
		}
		return err
	}

	h.logger.Info("Campaign dispatched",
		"user_id", p.UserID,
		"sent", result.Sent,
		"failed", result.Failed,
		"remaining", result.Remaining,
	)

	return nil
}
