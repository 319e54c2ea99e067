package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/api/responses"
	"github.com/angelmondragon/propertyhub-backend/api/validators"
	"github.com/angelmondragon/propertyhub-backend/internal/accounting"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/period"
)

// LedgerScope decides how much of the commission ledger a route exposes.
// Admin routes see everything; portal routes only the caller's own records
// (or their agency's, for external agents).
type LedgerScope bool

const (
	LedgerAll   LedgerScope = true
	LedgerOwned LedgerScope = false
)

func viewerFor(c caller, scope LedgerScope) accounting.Viewer {
	return accounting.Viewer{UserID: c.UserID, Role: c.Role, AgencyID: c.AgencyID, All: bool(scope) && c.isAdmin()}
}

type approveRecordsBody struct {
	RecordIDs []uuid.UUID `json:"record_ids" validate:"required,min=1"`
}

func ListCommissionRecords(svc accounting.Service, scope LedgerScope, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("accounting"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		f, err := recordFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListRecords(r.Context(), viewerFor(c, scope), f)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func recordFilter(r *http.Request) (accounting.RecordFilter, error) {
	var f accounting.RecordFilter
	var err error
	if f.Params, err = pageParams(r); err != nil {
		return f, err
	}
	if f.Period, err = queryPeriod(r); err != nil {
		return f, err
	}
	status, err := queryEnum(r, "status", enums.ParseCommissionStatus)
	if err != nil {
		return f, err
	}
	if status != nil {
		f.Status = *status
	}
	if f.UserID, err = queryUUID(r, "user_id"); err != nil {
		return f, err
	}
	if f.AgencyID, err = queryUUID(r, "agency_id"); err != nil {
		return f, err
	}
	sort, desc, err := validators.ParseQuerySort(r, string(accounting.SortCreatedAt),
		string(accounting.SortAmount), string(accounting.SortCreatedAt), string(accounting.SortUser))
	if err != nil {
		return f, err
	}
	f.Sort, f.Desc = accounting.SortField(sort), desc
	return f, nil
}

func queryPeriod(r *http.Request) (*period.Period, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("period"))
	if raw == "" {
		return nil, nil
	}
	p, err := period.Parse(raw)
	if err != nil {
		return nil, validationErr(err, "period")
	}
	return &p, nil
}

// PeriodSummary defaults to the period containing today.
func PeriodSummary(svc accounting.Service, scope LedgerScope, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("accounting"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := queryPeriod(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if p == nil {
			current := period.For(time.Now().UTC())
			p = &current
		}
		summary, err := svc.PeriodSummary(r.Context(), viewerFor(c, scope), *p)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func ApproveCommissionRecords(svc accounting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("accounting"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body approveRecordsBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		n, err := svc.ApproveRecords(r.Context(), c.UserID, body.RecordIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"approved": n})
	}
}

func CancelCommissionRecord(svc accounting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("accounting"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.CancelRecord(r.Context(), c.UserID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cancelled": true})
	}
}

func RecordCommissionPayment(svc accounting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("accounting"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body accounting.RecordPaymentInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.RecordPayment(r.Context(), c.UserID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

func ListCommissionPayments(svc accounting.Service, scope LedgerScope, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("accounting"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		f, err := paymentFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPayments(r.Context(), viewerFor(c, scope), f)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func paymentFilter(r *http.Request) (accounting.PaymentFilter, error) {
	var f accounting.PaymentFilter
	var err error
	if f.Params, err = pageParams(r); err != nil {
		return f, err
	}
	if f.Period, err = queryPeriod(r); err != nil {
		return f, err
	}
	if f.UserID, err = queryUUID(r, "user_id"); err != nil {
		return f, err
	}
	if f.AgencyID, err = queryUUID(r, "agency_id"); err != nil {
		return f, err
	}
	return f, nil
}

// ExportCommissionRecords streams the filtered ledger as a spreadsheet-ready
// CSV. The file is built in memory so a failure still yields a JSON error.
func ExportCommissionRecords(svc accounting.Service, scope LedgerScope, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("accounting"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		f, err := recordFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var buf bytes.Buffer
		n, err := svc.ExportCSV(r.Context(), viewerFor(c, scope), f, &buf)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		name := "commissions.csv"
		if f.Period != nil {
			name = fmt.Sprintf("commissions_%s.csv", f.Period.Key())
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("X-Row-Count", strconv.Itoa(n))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

// CommissionStatementPDF renders one payee's statement. Without a user_id
// the caller's own statement is rendered.
func CommissionStatementPDF(svc accounting.Service, scope LedgerScope, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("accounting"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		p, err := queryPeriod(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if p == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "period is required").WithDetails(map[string]any{"field": "period"}))
			return
		}
		userID := c.UserID
		if requested, err := queryUUID(r, "user_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if requested != nil {
			userID = *requested
		}

		body, err := svc.StatementPDF(r.Context(), viewerFor(c, scope), userID, *p)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writePDF(w, fmt.Sprintf("statement_%s.pdf", p.Key()), body)
	}
}

func writePDF(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
