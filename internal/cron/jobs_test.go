package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/propertyhub-backend/internal/accounting"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/period"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

type fakeReminderSender struct {
	lead  time.Duration
	calls int
	err   error
}

func (f *fakeReminderSender) SendReminders(_ context.Context, lead time.Duration) (int, error) {
	f.calls++
	f.lead = lead
	return 3, f.err
}

func TestAppointmentReminderJobUsesDefaultLead(t *testing.T) {
	sender := &fakeReminderSender{}
	job, err := NewAppointmentReminderJob(AppointmentReminderJobParams{Logger: testLogger(), Appointments: sender})
	if err != nil {
		t.Fatalf("NewAppointmentReminderJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sender.lead != defaultReminderLead {
		t.Fatalf("expected lead %s, got %s", defaultReminderLead, sender.lead)
	}

	sender.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestAppointmentReminderJobRequiresService(t *testing.T) {
	if _, err := NewAppointmentReminderJob(AppointmentReminderJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected error")
	}
}

type fakeOfferExpirer struct {
	calls int
	err   error
}

func (f *fakeOfferExpirer) ExpireDue(context.Context) (int, error) {
	f.calls++
	return 2, f.err
}

func TestOfferExpiryJob(t *testing.T) {
	offers := &fakeOfferExpirer{}
	job, err := NewOfferExpiryJob(OfferExpiryJobParams{Logger: testLogger(), Offers: offers})
	if err != nil {
		t.Fatalf("NewOfferExpiryJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if offers.calls != 1 {
		t.Fatalf("expected one call, got %d", offers.calls)
	}
	offers.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakePeriodCloser struct {
	closed []string
	fail   map[string]error
}

func (f *fakePeriodCloser) ClosePeriod(_ context.Context, p period.Period) (*accounting.CloseResult, error) {
	f.closed = append(f.closed, p.Key())
	if err := f.fail[p.Key()]; err != nil {
		return nil, err
	}
	return &accounting.CloseResult{Period: p, Approved: 1}, nil
}

func newCommissionJob(t *testing.T, closer *fakePeriodCloser, now time.Time) *commissionPeriodJob {
	t.Helper()
	jobIface, err := NewCommissionPeriodJob(CommissionPeriodJobParams{Logger: testLogger(), Accounting: closer})
	if err != nil {
		t.Fatalf("NewCommissionPeriodJob: %v", err)
	}
	job := jobIface.(*commissionPeriodJob)
	job.now = func() time.Time { return now }
	return job
}

func TestCommissionPeriodJobClosesRecentPeriodsOldestFirst(t *testing.T) {
	closer := &fakePeriodCloser{}
	job := newCommissionJob(t, closer, time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"2026-02-01_2026-02-15", "2026-02-16_2026-02-28"}
	if len(closer.closed) != len(want) {
		t.Fatalf("expected %v, got %v", want, closer.closed)
	}
	for i := range want {
		if closer.closed[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, closer.closed)
		}
	}
}

func TestCommissionPeriodJobCollectsFailures(t *testing.T) {
	closer := &fakePeriodCloser{fail: map[string]error{
		"2026-02-01_2026-02-15": pkgerrors.New(pkgerrors.CodeStateConflict, "period is still open"),
		"2026-02-16_2026-02-28": errors.New("db down"),
	}}
	job := newCommissionJob(t, closer, time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC))

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("state conflicts should be skipped, got %v", err)
	}
	if len(closer.closed) != 2 {
		t.Fatalf("expected both periods attempted, got %v", closer.closed)
	}
}
