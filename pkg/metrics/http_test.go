package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodGet, "/api/v1/properties/{propertyID}", http.StatusOK, 40*time.Millisecond)
	m.Observe(http.MethodGet, "/api/v1/properties/{propertyID}", http.StatusOK, 10*time.Millisecond)
	m.Observe(http.MethodPost, "", http.StatusNotFound, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got, err := fetchCounterValue(mfs, "propertyhub_http_requests_total", "route", "/api/v1/properties/{propertyID}")
	if err != nil {
		t.Fatalf("fetch counter: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected 2 requests, got %f", got)
	}
	if _, err := fetchCounterValue(mfs, "propertyhub_http_requests_total", "route", "unmatched"); err != nil {
		t.Fatalf("expected unmatched route label: %v", err)
	}
}

func TestOutboxMetricsAndNilSafety(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Inc("contract_signed", OutboxPublished)
	m.Inc("", OutboxDeadLettered)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "propertyhub_outbox_events_total", "event_type", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown label counted once, got %f %v", got, err)
	}

	var nilHTTP *HTTPMetrics
	nilHTTP.Observe(http.MethodGet, "/", http.StatusOK, time.Second)
	NewOutboxMetrics(nil).Inc("x", OutboxRetried)
}
