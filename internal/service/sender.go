// This file implements the campaign sending workflow: the admission-control
// caller sitting between the quota ledger and the SMTP sender.
//
// Policy: quota is reserved before any send is attempted, and failed sends
// stay spent. Under-sending against the paid limit is acceptable;
// over-sending is not, so there is no compensating decrement on failure.
package service

import (
	"context"
	"log/slog"

	"github.com/fanreach/fanreach/internal/domain"
	"github.com/fanreach/fanreach/internal/email"
	"github.com/fanreach/fanreach/internal/metrics"
	"github.com/google/uuid"
)

// =============================================================================
// Types
// =============================================================================

// Recipient is one destination in a campaign batch.
type Recipient struct {
	Email          string `json:"email"`
	UnsubscribeURL string `json:"unsubscribe_url"`
}

// OutboundBatch is a rendered campaign addressed to a set of recipients,
// all owned by one sending user.
type OutboundBatch struct {
	UserID     uuid.UUID
	Subject    string
	HTMLBody   string
	TextBody   string
	Recipients []Recipient
}

// BatchResult reports how a batch fared after its reservation was granted.
type BatchResult struct {
	Reserved  int // quota units consumed (always len(Recipients) on a grant)
	Sent      int // messages accepted by the SMTP server
	Failed    int // messages that errored; their quota stays spent
	Remaining int // budget left after the reservation
}

// =============================================================================
// Interface Definition
// =============================================================================

// CampaignSender dispatches campaign batches behind the quota ledger.
type CampaignSender interface {
	// SendBatch reserves quota for the whole batch, then sends. On
	// *domain.QuotaExceededError nothing is sent and nothing is consumed;
	// the caller surfaces the upgrade prompt. Individual send failures do
	// not abort the rest of the batch.
	SendBatch(ctx context.Context, batch OutboundBatch) (*BatchResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type campaignSender struct {
	ledger QuotaLedger
	sender email.Sender
	logger *slog.Logger
}

// NewCampaignSender creates a CampaignSender.
func NewCampaignSender(ledger QuotaLedger, sender email.Sender, logger *slog.Logger) CampaignSender {
	return &campaignSender{
		ledger: ledger,
		sender: sender,
		logger: logger,
	}
}

func (s *campaignSender) SendBatch(ctx context.Context, batch OutboundBatch) (*BatchResult, error) {
	const op = "sender.send_batch"

	if len(batch.Recipients) == 0 {
		return nil, domain.Invalid(op, "batch has no recipients")
	}
	if batch.Subject == "" {
		return nil, domain.Invalid(op, "batch has no subject")
	}

	// Admission control: the whole batch is reserved up front so a batch
	// can never straddle the limit half-sent.
	reservation, err := s.ledger.CheckAndReserve(ctx, batch.UserID, len(batch.Recipients))
	if err != nil {
		if qe, ok := domain.AsQuotaExceeded(err); ok {
			metrics.QuotaReservationDenied()
			s.logger.Info("campaign batch rejected by quota",
				"user_id", batch.UserID,
				"recipients", len(batch.Recipients),
				"remaining", qe.Remaining,
				"resets_at", qe.ResetsAt,
			)
		}
		return nil, err
	}
	metrics.QuotaReservationGranted(reservation.Granted)

	result := &BatchResult{
		Reserved:  reservation.Granted,
		Remaining: reservation.RemainingAfter,
	}

	for _, rcpt := range batch.Recipients {
		if ctx.Err() != nil {
			// Remaining recipients stay unsent but spent; biasing toward
			// under-sending keeps the limit honest.
			result.Failed = result.Reserved - result.Sent
			return result, domain.Internal(ctx.Err(), op, "Batch send canceled")
		}

		msg := email.Message{
			To:             rcpt.Email,
			Subject:        batch.Subject,
			HTMLBody:       batch.HTMLBody,
			TextBody:       batch.TextBody,
			UnsubscribeURL: rcpt.UnsubscribeURL,
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			result.Failed++
			metrics.EmailFailed()
			continue
		}
		result.Sent++
		metrics.EmailSent()
	}

	s.logger.Info("campaign batch sent",
		"user_id", batch.UserID,
		"reserved", result.Reserved,
		"sent", result.Sent,
		"failed", result.Failed,
		"remaining", result.Remaining,
	)

	return result, nil
}
