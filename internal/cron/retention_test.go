package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

var retentionNow = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeNotificationRepo struct {
	cutoff time.Time
	calls  int
	err    error
}

func (f *fakeNotificationRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 12, f.err
}

type fakeOutboxRepo struct {
	cutoff   time.Time
	attempts int
	err      error
}

func (f *fakeOutboxRepo) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.cutoff = cutoff
	f.attempts = minAttemptCount
	return 3, f.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func pinClock(t *testing.T, job Job) {
	t.Helper()
	rj, ok := job.(*retentionJob)
	if !ok {
		t.Fatalf("expected *retentionJob, got %T", job)
	}
	rj.now = func() time.Time { return retentionNow }
}

func TestNotificationCleanupUsesConfiguredWindow(t *testing.T) {
	repo := &fakeNotificationRepo{}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     quietLogger(),
		DB:         passthroughTx{},
		Repository: repo,
		Retention:  14 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	pinClock(t, job)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := time.Date(2026, 2, 15, 6, 0, 0, 0, time.UTC); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
	if job.Name() != "notification-cleanup" {
		t.Fatalf("unexpected name %q", job.Name())
	}
}

func TestNotificationCleanupDefaultsToNinetyDays(t *testing.T) {
	repo := &fakeNotificationRepo{}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: quietLogger(), DB: passthroughTx{}, Repository: repo})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	pinClock(t, job)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := retentionNow.Add(-90 * 24 * time.Hour); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
}

func TestOutboxRetentionPassesPolicy(t *testing.T) {
	repo := &fakeOutboxRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:       quietLogger(),
		DB:           passthroughTx{},
		Repository:   repo,
		Retention:    7 * 24 * time.Hour,
		DeadAttempts: 8,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	pinClock(t, job)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := time.Date(2026, 2, 22, 6, 0, 0, 0, time.UTC); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
	if repo.attempts != 8 {
		t.Fatalf("expected dead attempts 8, got %d", repo.attempts)
	}
}

func TestOutboxRetentionDefaults(t *testing.T) {
	repo := &fakeOutboxRepo{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: quietLogger(), DB: passthroughTx{}, Repository: repo})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	pinClock(t, job)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := retentionNow.Add(-30 * 24 * time.Hour); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
	if repo.attempts != defaultOutboxDeadAttempts {
		t.Fatalf("expected default dead attempts, got %d", repo.attempts)
	}
}

func TestRetentionJobsWrapErrors(t *testing.T) {
	boom := errors.New("boom")
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: quietLogger(), DB: passthroughTx{}, Repository: &fakeOutboxRepo{err: boom}})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}

	if _, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: quietLogger(), Repository: &fakeNotificationRepo{}}); err == nil {
		t.Fatal("expected missing db runner to fail")
	}
}
