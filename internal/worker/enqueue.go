package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fanreach/fanreach/internal/repository"
	"github.com/fanreach/fanreach/internal/service"
	"github.com/google/uuid"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeSendCampaign = "send_campaign"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// SendCampaignPayload is the payload for campaign dispatch jobs. The batch
// is fully rendered before it is enqueued; the job only reserves quota and
// delivers.
type SendCampaignPayload struct {
	UserID     uuid.UUID           `json:"user_id"`
	Subject    string              `json:"subject"`
	HTMLBody   string              `json:"html_body"`
	TextBody   string              `json:"text_body"`
	Recipients []service.Recipient `json:"recipients"`
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob is a generic helper for enqueuing jobs with custom options.
func EnqueueJob(
	ctx context.Context,
	queries *repository.Queries,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	// Default parameters
	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&params)
	}

	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

// EnqueueSendCampaign enqueues a campaign dispatch job for a rendered batch.
func EnqueueSendCampaign(
	ctx context.Context,
	queries *repository.Queries,
	payload SendCampaignPayload,
	opts ...EnqueueOption,
) (repository.Job, error) {
	return EnqueueJob(ctx, queries, JobTypeSendCampaign, payload, opts...)
}

// Enqueuer binds the enqueue helpers to a query handle so callers can
// depend on a narrow interface instead of the repository.
type Enqueuer struct {
	queries *repository.Queries
}

// NewEnqueuer creates an Enqueuer backed by queries.
func NewEnqueuer(queries *repository.Queries) *Enqueuer {
	return &Enqueuer{queries: queries}
}

// EnqueueSendCampaign enqueues a campaign dispatch job.
func (e *Enqueuer) EnqueueSendCampaign(
	ctx context.Context,
	payload SendCampaignPayload,
	opts ...EnqueueOption,
) (repository.Job, error) {
	return EnqueueSendCampaign(ctx, e.queries, payload, opts...)
}
