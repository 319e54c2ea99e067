package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one unit of scheduled work. Names are unique within a registry and
// double as metric labels.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Registry struct {
	order  []string
	byName map[string]Job
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{byName: map[string]Job{}}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		_ = r.Register(job)
	}
	return r
}

// Register appends job. A second job with the same name is rejected.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	name := job.Name()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.byName[name] = job
	r.order = append(r.order, name)
	return nil
}

// Select narrows the registry to the named jobs, keeping registration order.
// An empty list keeps everything; unknown names are an error so a typo in
// PROPERTYHUB_CRON_JOBS fails at boot.
func (r *Registry) Select(names []string) error {
	if len(names) == 0 {
		return nil
	}
	keep := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := r.byName[name]; !ok {
			return fmt.Errorf("unknown cron job %q", name)
		}
		keep[name] = true
	}
	order := r.order[:0:0]
	for _, name := range r.order {
		if keep[name] {
			order = append(order, name)
			continue
		}
		delete(r.byName, name)
	}
	r.order = order
	return nil
}

// Jobs returns a copy in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
