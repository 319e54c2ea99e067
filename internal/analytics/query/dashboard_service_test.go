package query

import (
	"testing"
	"time"

	"github.com/angelmondragon/propertyhub-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
)

func TestValidateRequest(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		req  types.DashboardQueryRequest
		ok   bool
	}{
		{"missing range", types.DashboardQueryRequest{}, false},
		{"reversed", types.DashboardQueryRequest{Start: start, End: start.Add(-time.Hour)}, false},
		{"bad agency", types.DashboardQueryRequest{Start: start, End: start.AddDate(0, 1, 0), AgencyID: "norte"}, false},
		{"platform wide", types.DashboardQueryRequest{Start: start, End: start.AddDate(0, 1, 0)}, true},
		{"agency", types.DashboardQueryRequest{Start: start, End: start.AddDate(0, 1, 0), AgencyID: "1b4e28ba-2fa1-11d2-883f-0016d3cca427"}, true},
	}
	for _, tc := range cases {
		err := ValidateRequest(tc.req)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestScopeAndParams(t *testing.T) {
	svc := &dashboardService{tableRef: TableRef("proj", "propertyhub", "platform_events")}
	if svc.tableRef != "`proj.propertyhub.platform_events`" {
		t.Fatalf("unexpected table ref %s", svc.tableRef)
	}

	req := types.DashboardQueryRequest{Start: time.Now(), End: time.Now()}
	if ScopeClause(req) != "TRUE" {
		t.Fatal("platform wide queries are unscoped")
	}
	if got := len(svc.params(req, "")); got != 2 {
		t.Fatalf("expected 2 params, got %d", got)
	}

	req.AgencyID = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	if ScopeClause(req) != "agency_id = @agencyID" {
		t.Fatal("agency queries filter on agency_id")
	}
	params := svc.params(req, "lead_registered")
	if len(params) != 4 || params[3].Name != "eventType" {
		t.Fatalf("unexpected params %+v", params)
	}
}
