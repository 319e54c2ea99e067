package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/api/middleware"
	"github.com/angelmondragon/propertyhub-backend/internal/accounting"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/period"
)

type stubAccountingService struct {
	accounting.Service
	viewer     accounting.Viewer
	filter     accounting.RecordFilter
	statement  uuid.UUID
	exportRows string
}

func (s *stubAccountingService) ListRecords(_ context.Context, v accounting.Viewer, f accounting.RecordFilter) (*pagination.Page[accounting.RecordRow], error) {
	s.viewer = v
	s.filter = f
	return &pagination.Page[accounting.RecordRow]{Items: []accounting.RecordRow{}}, nil
}

func (s *stubAccountingService) ExportCSV(_ context.Context, v accounting.Viewer, f accounting.RecordFilter, w io.Writer) (int, error) {
	s.viewer = v
	s.filter = f
	_, err := io.WriteString(w, s.exportRows)
	return strings.Count(s.exportRows, "\n") - 1, err
}

func (s *stubAccountingService) StatementPDF(_ context.Context, v accounting.Viewer, userID uuid.UUID, _ period.Period) ([]byte, error) {
	s.viewer = v
	s.statement = userID
	return []byte("%PDF-1.4"), nil
}

func ledgerRequest(target string, role enums.UserRole, userID uuid.UUID, agencyID *uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(middleware.WithIdentity(req.Context(), userID, role, agencyID))
}

func TestListCommissionRecordsAdminSeesAll(t *testing.T) {
	svc := &stubAccountingService{}
	userID := uuid.New()
	filterUser := uuid.New()
	req := ledgerRequest("/records?period=2026-02-01_2026-02-15&status=approved&user_id="+filterUser.String()+"&sort=-amount", enums.UserRoleAdmin, userID, nil)
	rec := httptest.NewRecorder()

	ListCommissionRecords(svc, LedgerAll, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.viewer.All {
		t.Fatalf("expected admin viewer to see all records")
	}
	if svc.filter.Period == nil || svc.filter.Period.Key() != "2026-02-01_2026-02-15" {
		t.Fatalf("unexpected period %v", svc.filter.Period)
	}
	if svc.filter.Status != enums.CommissionApproved {
		t.Fatalf("unexpected status %q", svc.filter.Status)
	}
	if svc.filter.UserID == nil || *svc.filter.UserID != filterUser {
		t.Fatalf("unexpected user filter %v", svc.filter.UserID)
	}
	if svc.filter.Sort != accounting.SortAmount || !svc.filter.Desc {
		t.Fatalf("expected descending amount sort, got %q desc=%v", svc.filter.Sort, svc.filter.Desc)
	}
}

func TestListCommissionRecordsScopesExternalAgent(t *testing.T) {
	svc := &stubAccountingService{}
	userID := uuid.New()
	agencyID := uuid.New()
	req := ledgerRequest("/records", enums.UserRoleExternalAgent, userID, &agencyID)
	rec := httptest.NewRecorder()

	ListCommissionRecords(svc, LedgerAll, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.viewer.All {
		t.Fatalf("non-admin viewer must never see all records")
	}
	if svc.viewer.AgencyID == nil || *svc.viewer.AgencyID != agencyID {
		t.Fatalf("expected agency scope, got %v", svc.viewer.AgencyID)
	}
	if svc.filter.Sort != accounting.SortCreatedAt {
		t.Fatalf("expected default sort, got %q", svc.filter.Sort)
	}
}

func TestListCommissionRecordsRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"sort":   "/records?sort=price",
		"order":  "/records?sort=amount&order=sideways",
		"period": "/records?period=2026-02-03_2026-02-15",
		"status": "/records?status=lost",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			req := ledgerRequest(target, enums.UserRoleAdmin, uuid.New(), nil)
			rec := httptest.NewRecorder()
			ListCommissionRecords(&stubAccountingService{}, LedgerAll, testLogger()).ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestExportCommissionRecordsWritesCSV(t *testing.T) {
	svc := &stubAccountingService{exportRows: "record_id,amount\nabc,100.00\n"}
	req := ledgerRequest("/records/export?period=2026-02-16", enums.UserRoleAdmin, uuid.New(), nil)
	rec := httptest.NewRecorder()

	ExportCommissionRecords(svc, LedgerAll, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "commissions_2026-02-16_2026-02-28.csv") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if rec.Header().Get("X-Row-Count") != "1" {
		t.Fatalf("unexpected row count %q", rec.Header().Get("X-Row-Count"))
	}
	if rec.Body.String() != svc.exportRows {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestCommissionStatementDefaultsToCaller(t *testing.T) {
	svc := &stubAccountingService{}
	userID := uuid.New()
	req := ledgerRequest("/statement?period=2026-03-01", enums.UserRoleSeller, userID, nil)
	rec := httptest.NewRecorder()

	CommissionStatementPDF(svc, LedgerOwned, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.statement != userID {
		t.Fatalf("expected caller statement, got %s", svc.statement)
	}
	if rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}

func TestCommissionStatementRequiresPeriod(t *testing.T) {
	req := ledgerRequest("/statement", enums.UserRoleSeller, uuid.New(), nil)
	rec := httptest.NewRecorder()

	CommissionStatementPDF(&stubAccountingService{}, LedgerOwned, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
