package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRunCycleContinuesPastFailingJob(t *testing.T) {
	reminders := &countingJob{name: "appointment-reminders", err: errors.New("smtp down")}
	expiry := &countingJob{name: "offer-expiry"}
	lock := &fakeLock{}
	svc := newTestService(t, lock, reminders, expiry)

	err := svc.runCycle(context.Background())
	if err == nil || !strings.Contains(err.Error(), "job appointment-reminders: smtp down") {
		t.Fatalf("expected the failing job in the cycle error, got %v", err)
	}
	if reminders.runs != 1 || expiry.runs != 1 {
		t.Fatalf("expected both jobs once, got reminders=%d expiry=%d", reminders.runs, expiry.runs)
	}
	if lock.held || lock.released != 1 {
		t.Fatalf("expected lock released once, held=%v released=%d", lock.held, lock.released)
	}
	if svc.interval != defaultInterval || svc.jobTimeout != defaultJobTimeout {
		t.Fatalf("expected defaults, got interval=%v timeout=%v", svc.interval, svc.jobTimeout)
	}
}

func TestRunCycleSkipsWhileAnotherWorkerHoldsTheLock(t *testing.T) {
	expiry := &countingJob{name: "offer-expiry"}
	lock := &fakeLock{held: true}
	svc := newTestService(t, lock, expiry)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if expiry.runs != 0 {
		t.Fatalf("expected no runs while locked, got %d", expiry.runs)
	}
	if lock.released != 0 {
		t.Fatalf("must not release a lock it does not own")
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})}); err == nil {
		t.Fatal("expected missing lock to fail")
	}
}

type panickingJob struct{}

func (panickingJob) Name() string { return "commission-period" }

func (panickingJob) Run(context.Context) error { panic("nil ledger") }

func TestRunOnceRecoversFromJobPanic(t *testing.T) {
	expiry := &countingJob{name: "offer-expiry"}
	lock := &fakeLock{}
	svc := newTestService(t, lock, panickingJob{}, expiry)

	err := svc.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panic: nil ledger") {
		t.Fatalf("expected panic surfaced as error, got %v", err)
	}
	if expiry.runs != 1 {
		t.Fatalf("jobs after a panic must still run, got %d", expiry.runs)
	}
	if lock.held {
		t.Fatalf("lock must be released after a panic")
	}
}

type deadlineJob struct {
	deadline time.Time
	ok       bool
}

func (j *deadlineJob) Name() string { return "outbox-retention" }

func (j *deadlineJob) Run(ctx context.Context) error {
	j.deadline, j.ok = ctx.Deadline()
	return nil
}

func TestRunJobAppliesTimeout(t *testing.T) {
	job := &deadlineJob{}
	svc, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry:   NewRegistry(job),
		Lock:       &fakeLock{},
		JobTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	before := time.Now()
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !job.ok || job.deadline.Before(before.Add(59*time.Second)) || job.deadline.After(before.Add(61*time.Second)) {
		t.Fatalf("expected a one minute deadline, got %v (set=%v)", job.deadline, job.ok)
	}
}
