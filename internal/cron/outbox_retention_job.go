package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

const (
	defaultOutboxRetention    = 30 * 24 * time.Hour
	defaultOutboxDeadAttempts = 5
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	// Retention is how long published events are kept.
	Retention time.Duration
	// DeadAttempts drops never-published rows of the same age once they
	// burned this many attempts.
	DeadAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	window := params.Retention
	if window <= 0 {
		window = defaultOutboxRetention
	}
	attempts := params.DeadAttempts
	if attempts <= 0 {
		attempts = defaultOutboxDeadAttempts
	}
	repo := params.Repository
	job, err := newRetentionJob("outbox-retention", params.Logger, params.DB, window,
		func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(ctx, tx, cutoff, attempts)
		})
	if err != nil {
		return nil, err
	}
	job.fields = map[string]any{"dead_attempts": attempts}
	return job, nil
}
