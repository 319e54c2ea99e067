package cron

import (
	"context"
	"strings"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func jobNames(r *Registry) string {
	var names []string
	for _, j := range r.Jobs() {
		names = append(names, j.Name())
	}
	return strings.Join(names, ",")
}

func TestRegistryKeepsOrderAndRejectsDuplicates(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "appointment-reminders"})
	if err := registry.Register(&stubJob{name: "offer-expiry"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(&stubJob{name: "offer-expiry"}); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
	if got := jobNames(registry); got != "appointment-reminders,offer-expiry" {
		t.Fatalf("unexpected jobs %q", got)
	}

	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("internal state leaked")
	}
}

func TestRegistrySelect(t *testing.T) {
	newRegistry := func() *Registry {
		return NewRegistry(
			&stubJob{name: "appointment-reminders"},
			&stubJob{name: "offer-expiry"},
			&stubJob{name: "outbox-retention"},
		)
	}

	all := newRegistry()
	if err := all.Select(nil); err != nil {
		t.Fatalf("select all: %v", err)
	}
	if got := jobNames(all); got != "appointment-reminders,offer-expiry,outbox-retention" {
		t.Fatalf("empty selection should keep every job, got %q", got)
	}

	some := newRegistry()
	if err := some.Select([]string{" outbox-retention", "appointment-reminders"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := jobNames(some); got != "appointment-reminders,outbox-retention" {
		t.Fatalf("unexpected selection %q", got)
	}

	if err := newRegistry().Select([]string{"offer-expiry", "ofer-expiry"}); err == nil {
		t.Fatal("expected unknown job name to fail")
	}
}
