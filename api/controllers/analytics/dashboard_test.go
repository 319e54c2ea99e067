package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/internal/analytics/types"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

func TestDashboardUsesPreset(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	timeNowUTC = func() time.Time { return now }
	defer func() { timeNowUTC = func() time.Time { return time.Now().UTC() } }()

	stub := &testAnalyticsService{
		response: &types.DashboardQueryResponse{
			LeadsSeries:    []types.TimeSeriesPoint{{Date: "2026-01-09", Value: 3}},
			LeadConversion: 0.25,
		},
	}

	handler := Dashboard(stub, logger.New(logger.Options{ServiceName: "test"}))
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/dashboard?preset=7d", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if stub.period() != 7*24*time.Hour {
		t.Fatalf("expected 7d range, got %v", stub.period())
	}
	if !stub.last.End.Equal(now) {
		t.Fatalf("expected range to end now, got %v", stub.last.End)
	}

	var envelope struct {
		Data types.DashboardQueryResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.LeadsSeries) != 1 || envelope.Data.LeadsSeries[0].Value != 3 {
		t.Fatalf("unexpected leads series: %+v", envelope.Data.LeadsSeries)
	}
}

func TestDashboardExplicitRangeAndAgency(t *testing.T) {
	stub := &testAnalyticsService{}
	agencyID := uuid.NewString()

	handler := Dashboard(stub, logger.New(logger.Options{ServiceName: "test"}))
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/dashboard?from=2026-01-01T00:00:00Z&to=2026-01-31T00:00:00Z&agency_id="+agencyID, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if stub.last.AgencyID != agencyID {
		t.Fatalf("expected agency %s got %s", agencyID, stub.last.AgencyID)
	}
	if stub.period() != 30*24*time.Hour {
		t.Fatalf("expected 30 day range, got %v", stub.period())
	}
}

func TestDashboardRejectsBadInput(t *testing.T) {
	cases := []string{
		"?preset=1y",
		"?from=2026-01-01T00:00:00Z",
		"?from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z",
		"?from=2024-01-01&to=2026-01-01",
		"?from=yesterday&to=2026-01-01",
		"?agency_id=nope",
	}
	for _, query := range cases {
		stub := &testAnalyticsService{}
		handler := Dashboard(stub, logger.New(logger.Options{ServiceName: "test"}))
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/dashboard"+query, nil)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", query, resp.Code)
		}
		if stub.calls != 0 {
			t.Fatalf("%s: service should not be called", query)
		}
	}
}

func TestResolveAnalyticsRangePresetsAndDates(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	cases := []struct {
		query string
		start time.Time
		end   time.Time
	}{
		{"", now.Add(-30 * 24 * time.Hour), now},
		{"?preset=90D", now.Add(-90 * 24 * time.Hour), now},
		{"?preset=12m", time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC), now},
		{"?preset=mtd", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), now},
		{"?preset=ytd", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), now},
		{"?from=2026-02-01&to=2026-02-15", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)},
		{"?from=2026-02-01T06:00:00-06:00&to=2026-02-02", time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/dashboard"+tc.query, nil)
		start, end, err := resolveAnalyticsRange(req, now)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.query, err)
		}
		if !start.Equal(tc.start) || !end.Equal(tc.end) {
			t.Fatalf("%q: expected %s..%s got %s..%s", tc.query, tc.start, tc.end, start, end)
		}
	}
}
