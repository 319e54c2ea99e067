package accounting

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/pdf"
	"github.com/angelmondragon/propertyhub-backend/pkg/period"
)

var csvHeader = []string{
	"record_id", "contract_id", "user_id", "user_name", "user_email", "participant_role",
	"external_agency_id", "operation_type", "base_amount", "percentage", "amount",
	"currency", "source_tier", "status", "period_start", "period_end", "payment_id", "created_at",
}

// ExportCSV writes every record matching f, ignoring pagination, and returns
// the number of data rows written.
func (s *service) ExportCSV(ctx context.Context, v Viewer, f RecordFilter, w io.Writer) (int, error) {
	if err := validateFilter(f); err != nil {
		return 0, err
	}
	rows, err := s.repo.ListRecords(ctx, v, f, 0, 0)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission records")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}
	for _, row := range rows {
		if err := cw.Write(csvRow(row)); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func csvRow(r RecordRow) []string {
	return []string{
		r.ID.String(),
		r.ContractID.String(),
		r.UserID.String(),
		r.UserName,
		r.UserEmail,
		r.ParticipantRole,
		optionalID(r.ExternalAgencyID),
		string(r.OperationType),
		r.BaseAmount.StringFixed(2),
		r.Percentage.String(),
		r.Amount.StringFixed(2),
		r.Currency,
		string(r.SourceTier),
		string(r.Status),
		r.PeriodStart.Format(time.DateOnly),
		r.PeriodEnd.Format(time.DateOnly),
		optionalID(r.PaymentID),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// StatementPDF renders the commission statement of one payee for p.
func (s *service) StatementPDF(ctx context.Context, v Viewer, userID uuid.UUID, p period.Period) ([]byte, error) {
	if s.renderer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pdf rendering unavailable")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !canView(v, user.ID, user.ExternalAgencyID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "statement not visible")
	}

	rows, err := s.repo.ListRecords(ctx, v, RecordFilter{Period: &p, UserID: &userID}, 0, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load statement records")
	}

	doc := pdf.StatementDocument{
		Title:       "Commission statement",
		Company:     s.company,
		GeneratedAt: s.now(),
		Payee:       user.FullName(),
		PeriodStart: p.Start,
		PeriodEnd:   p.End,
	}
	if user.ExternalAgencyID != nil {
		agency, err := s.repo.FindAgency(ctx, *user.ExternalAgencyID)
		switch {
		case err == nil:
			doc.Agency = agency.Name
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agency")
		}
	}

	totals := map[enums.CommissionStatus]decimal.Decimal{}
	payable := decimal.Zero
	for _, row := range rows {
		doc.Lines = append(doc.Lines, pdf.StatementLine{
			ContractID: row.ContractID,
			Operation:  string(row.OperationType),
			Base:       row.BaseAmount,
			Percentage: row.Percentage,
			Amount:     row.Amount,
			Status:     string(row.Status),
		})
		totals[row.Status] = totals[row.Status].Add(row.Amount)
		if row.Status != enums.CommissionCancelled {
			payable = payable.Add(row.Amount)
		}
	}
	for _, status := range []enums.CommissionStatus{enums.CommissionPending, enums.CommissionApproved, enums.CommissionPaid} {
		if amount, ok := totals[status]; ok {
			doc.Totals = append(doc.Totals, pdf.StatementTotal{Label: statusLabel(status), Amount: amount})
		}
	}
	doc.Totals = append(doc.Totals, pdf.StatementTotal{Label: "Total", Amount: payable})

	html, err := pdf.RenderHTML(pdf.TemplateStatement, doc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render statement")
	}
	out, err := s.renderer.Render(ctx, html)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "render statement pdf")
	}
	return out, nil
}

func canView(v Viewer, userID uuid.UUID, agencyID *uuid.UUID) bool {
	if v.Role == enums.UserRoleExternalAgent {
		return v.AgencyID != nil && agencyID != nil && *v.AgencyID == *agencyID
	}
	return v.All || v.UserID == userID
}

func statusLabel(s enums.CommissionStatus) string {
	switch s {
	case enums.CommissionPending:
		return "Pending"
	case enums.CommissionApproved:
		return "Approved"
	case enums.CommissionPaid:
		return "Paid"
	}
	return string(s)
}
