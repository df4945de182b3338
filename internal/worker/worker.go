package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumenlive/backend/internal/audience"
	"github.com/lumenlive/backend/pkg/queue"
)

// AudienceSyncProcessor processes audience reconciliation jobs enqueued after
// reminder dispatches.
type AudienceSyncProcessor struct {
	reconciler *audience.Reconciler
	queue      *queue.Queue
	logger     *zap.Logger
}

// NewAudienceSyncProcessor creates an audience sync processor.
func NewAudienceSyncProcessor(reconciler *audience.Reconciler, q *queue.Queue, logger *zap.Logger) *AudienceSyncProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AudienceSyncProcessor{reconciler: reconciler, queue: q, logger: logger}
}

// Process executes one audience sync job.
func (p *AudienceSyncProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAudienceSync {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AudienceSyncPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	result, err := p.reconciler.Reconcile(ctx, payload.WebinarID)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", payload.WebinarID, err)
	}
	p.logger.Info("audience sync completed",
		zap.String("webinar_id", payload.WebinarID.String()),
		zap.String("list_id", result.ListID),
		zap.Int("added", result.Added),
		zap.Int("removed", result.Removed),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AudienceSyncProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("audience sync worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
