package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wonny/arcade/internal/archive"
	"github.com/wonny/arcade/internal/rankings"
	"github.com/wonny/arcade/pkg/logger"
)

// DefaultResubmitBatch caps the rows handled per run
const DefaultResubmitBatch = 50

// PendingStore is the part of the archive the resubmit job needs
type PendingStore interface {
	ListPending(ctx context.Context, limit int) ([]*archive.Submission, error)
	MarkSubmitted(ctx context.Context, id uuid.UUID, remoteID string) error
	MarkRejected(ctx context.Context, id uuid.UUID, message string) error
	MarkAttempt(ctx context.Context, id uuid.UUID, message string) error
	MarkUnconfirmed(ctx context.Context, id uuid.UUID, message string) error
}

// Submitter sends a run to the backend
type Submitter interface {
	SubmitGamePlayData(ctx context.Context, sub rankings.GamePlaySubmission) rankings.SubmitResult
}

// ResubmitReport summarises one flush of the outbox
type ResubmitReport struct {
	Checked     int `json:"checked"`
	Submitted   int `json:"submitted"`
	Rejected    int `json:"rejected"`
	Unconfirmed int `json:"unconfirmed"`
	Pending     int `json:"pending"`
}

// ResubmitJob retries archived submissions that never reached the backend
type ResubmitJob struct {
	store     PendingStore
	submitter Submitter
	logger    *logger.Logger
	schedule  string
	batch     int
}

// NewResubmitJob creates a new resubmit job
func NewResubmitJob(store PendingStore, submitter Submitter, schedule string, log *logger.Logger) *ResubmitJob {
	if schedule == "" {
		schedule = "0 */5 * * * *"
	}
	return &ResubmitJob{
		store:     store,
		submitter: submitter,
		logger:    log.Component("resubmit"),
		schedule:  schedule,
		batch:     DefaultResubmitBatch,
	}
}

// Name returns the job name
func (j *ResubmitJob) Name() string {
	return "resubmit_pending"
}

// Schedule returns the cron schedule
func (j *ResubmitJob) Schedule() string {
	return j.schedule
}

// Run flushes the outbox. An unreachable backend is reported as an error so
// the run is retried and recorded as failed.
func (j *ResubmitJob) Run(ctx context.Context) error {
	report, err := j.Flush(ctx)
	if err != nil {
		return err
	}
	if report.Pending > 0 {
		return fmt.Errorf("%d submission(s) still pending: backend unreachable", report.Pending)
	}
	return nil
}

// Flush resubmits pending rows oldest first. It stops at the first
// unreachable or unanswered result; the rest wait for the next run.
func (j *ResubmitJob) Flush(ctx context.Context) (ResubmitReport, error) {
	var report ResubmitReport

	pending, err := j.store.ListPending(ctx, j.batch)
	if err != nil {
		return report, fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		j.logger.Debug("No pending submissions")
		return report, nil
	}

	for i, s := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		res := j.submitter.SubmitGamePlayData(ctx, rankings.GamePlaySubmission{
			Nickname: s.Nickname,
			ModelID:  s.ModelID,
			Payload:  s.Payload,
		})

		// The outcome is recorded even if the run is being shut down
		markCtx := context.WithoutCancel(ctx)
		stop := false
		switch {
		case res.OK:
			err = j.store.MarkSubmitted(markCtx, s.ID, res.ID)
			report.Submitted++
		case res.Err.Kind == rankings.KindUnreachable:
			err = j.store.MarkAttempt(markCtx, s.ID, res.Err.Message)
			report.Pending = len(pending) - i
			stop = true
		case res.Err.Kind == rankings.KindUnconfirmed:
			err = j.store.MarkUnconfirmed(markCtx, s.ID, res.Err.Message)
			report.Unconfirmed++
			report.Pending = len(pending) - i - 1
			stop = true
		default:
			err = j.store.MarkRejected(markCtx, s.ID, res.Err.Message)
			report.Rejected++
		}
		if err != nil {
			return report, fmt.Errorf("update submission %s: %w", s.ID, err)
		}

		if stop {
			break
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"checked":     report.Checked,
		"submitted":   report.Submitted,
		"rejected":    report.Rejected,
		"unconfirmed": report.Unconfirmed,
		"pending":     report.Pending,
	}).Info("Resubmit run finished")

	return report, nil
}
