package service

import (
	"context"
	"fmt"

	"veracity-service/internal/models"
	"veracity-service/internal/signal"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VerifyBatch starts async verification of text items and returns the job id
func (v *Verifier) VerifyBatch(ctx context.Context, items []models.NewsInput) (string, error) {
	if len(items) == 0 {
		return "", invalid("items", "at least one item is required")
	}

	jobID := uuid.New().String()

	job := &models.Job{
		ID:         jobID,
		Status:     models.JobPending,
		TotalCount: len(items),
		CreatedAt:  v.opts.Now(),
	}

	if err := v.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	// The job outlives the request that created it
	go v.processBatchJob(context.WithoutCancel(ctx), job, items)

	return jobID, nil
}

// processBatchJob verifies each item in turn and records progress
func (v *Verifier) processBatchJob(ctx context.Context, job *models.Job, items []models.NewsInput) {
	job.Status = models.JobProcessing
	v.updateJob(ctx, job)

	for i, item := range items {
		_, err := v.Verify(ctx, Request{
			Kind:   string(signal.KindText),
			Data:   item.Content,
			Title:  item.Title,
			Source: item.Source,
		})
		if err != nil {
			v.logger.Error("Failed to verify item in batch",
				zap.String("job_id", job.ID),
				zap.Int("index", i),
				zap.Error(err))
			job.FailedCount++
		} else {
			job.ProcessedCount++
		}

		v.updateJob(ctx, job)
	}

	job.Status = models.JobCompleted
	if job.ProcessedCount == 0 {
		job.Status = models.JobFailed
		msg := "no item could be verified"
		job.ErrorMessage = &msg
	}
	completedAt := v.opts.Now()
	job.CompletedAt = &completedAt

	v.logger.Info("Batch job completed",
		zap.String("job_id", job.ID),
		zap.Int("processed", job.ProcessedCount),
		zap.Int("failed", job.FailedCount))
	v.updateJob(ctx, job)
}

func (v *Verifier) updateJob(ctx context.Context, job *models.Job) {
	if err := v.store.UpdateJob(ctx, job); err != nil {
		v.logger.Error("Failed to update job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// JobStatus returns the progress of a batch job
func (v *Verifier) JobStatus(ctx context.Context, jobID string) (*models.Job, error) {
	return v.store.GetJob(ctx, jobID)
}
