package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob deletes rows older than a rolling window in one transaction.
type retentionJob struct {
	name   string
	logg   *logger.Logger
	db     txRunner
	window time.Duration
	purge  purgeFunc
	fields map[string]any
	now    func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, db txRunner, window time.Duration, purge purgeFunc) (*retentionJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("%s: logger required", name)
	}
	if db == nil {
		return nil, fmt.Errorf("%s: db runner required", name)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%s: retention window must be positive", name)
	}
	return &retentionJob{
		name:   name,
		logg:   logg,
		db:     db,
		window: window,
		purge:  purge,
		now:    time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) cutoff() time.Time {
	return j.now().UTC().Add(-j.window)
}

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.purge(ctx, tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	fields := map[string]any{
		"cutoff":       cutoff,
		"window":       j.window.String(),
		"rows_deleted": deleted,
	}
	for k, v := range j.fields {
		fields[k] = v
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "retention purge complete")
	return nil
}
