package accounting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/money"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/pdf"
	"github.com/angelmondragon/propertyhub-backend/pkg/period"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the accounting surface used by the admin and external portals
// and by the period close job.
type Service interface {
	ListRecords(ctx context.Context, v Viewer, f RecordFilter) (*pagination.Page[RecordRow], error)
	PeriodSummary(ctx context.Context, v Viewer, p period.Period) (*Summary, error)
	ApproveRecords(ctx context.Context, actorID uuid.UUID, ids []uuid.UUID) (int, error)
	CancelRecord(ctx context.Context, actorID, id uuid.UUID) error
	RecordPayment(ctx context.Context, actorID uuid.UUID, in RecordPaymentInput) (*Payment, error)
	ListPayments(ctx context.Context, v Viewer, f PaymentFilter) (*pagination.Page[Payment], error)
	ExportCSV(ctx context.Context, v Viewer, f RecordFilter, w io.Writer) (int, error)
	StatementPDF(ctx context.Context, v Viewer, userID uuid.UUID, p period.Period) ([]byte, error)
	ClosePeriod(ctx context.Context, p period.Period) (*CloseResult, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	renderer pdf.Renderer
	company  string
	now      func() time.Time
}

// NewService wires the accounting service. renderer may be nil when PDF
// statements are not served by this process.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, renderer pdf.Renderer, company string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounting repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outbox,
		renderer: renderer,
		company:  company,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) ListRecords(ctx context.Context, v Viewer, f RecordFilter) (*pagination.Page[RecordRow], error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	if f.Offset < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offset must not be negative")
	}
	rows, err := s.repo.ListRecords(ctx, v, f, pagination.LimitWithBuffer(f.Limit), f.Offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission records")
	}
	page := pagination.OffsetPage(rows, f.Limit, f.Offset)
	return &page, nil
}

func (s *service) PeriodSummary(ctx context.Context, v Viewer, p period.Period) (*Summary, error) {
	rows, err := s.repo.ListRecords(ctx, v, RecordFilter{Period: &p}, 0, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load period records")
	}
	return summarize(p, rows), nil
}

func summarize(p period.Period, rows []RecordRow) *Summary {
	byStatus := map[string]*Bucket{}
	byUser := map[string]*Bucket{}
	byAgency := map[string]*Bucket{}
	add := func(m map[string]*Bucket, key, label string, amount decimal.Decimal) {
		b, ok := m[key]
		if !ok {
			b = &Bucket{Key: key, Label: label, Amount: decimal.Zero}
			m[key] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(amount)
	}

	summary := &Summary{Period: p, Total: decimal.Zero}
	for _, row := range rows {
		summary.Count++
		if row.Status != enums.CommissionCancelled {
			summary.Total = summary.Total.Add(row.Amount)
		}
		add(byStatus, string(row.Status), "", row.Amount)
		add(byUser, row.UserID.String(), row.UserName, row.Amount)
		agency := "in_house"
		if row.ExternalAgencyID != nil {
			agency = row.ExternalAgencyID.String()
		}
		add(byAgency, agency, "", row.Amount)
	}
	summary.ByStatus = flatten(byStatus)
	summary.ByUser = flatten(byUser)
	summary.ByAgency = flatten(byAgency)
	return summary
}

func flatten(m map[string]*Bucket) []Bucket {
	out := make([]Bucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ApproveRecords moves pending records to approved. Every id must exist and
// be pending; otherwise nothing changes.
func (s *service) ApproveRecords(ctx context.Context, actorID uuid.UUID, ids []uuid.UUID) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "record_ids required")
	}
	var approved int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		records, err := repo.FindRecords(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission records")
		}
		if len(records) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "commission record not found")
		}
		for _, rec := range records {
			if rec.Status != enums.CommissionPending {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending records can be approved").
					WithDetails(map[string]any{"record_id": rec.ID, "status": rec.Status})
			}
		}
		n, err := repo.TransitionRecords(ctx, ids, []enums.CommissionStatus{enums.CommissionPending},
			map[string]any{"status": enums.CommissionApproved})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve commission records")
		}
		if int(n) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "records changed concurrently")
		}
		approved = int(n)
		return nil
	})
	return approved, err
}

func (s *service) CancelRecord(ctx context.Context, actorID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		records, err := repo.FindRecords(ctx, []uuid.UUID{id})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission record")
		}
		if len(records) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "commission record not found")
		}
		switch records[0].Status {
		case enums.CommissionCancelled:
			return nil
		case enums.CommissionPaid:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "paid records cannot be cancelled")
		}
		n, err := repo.TransitionRecords(ctx, []uuid.UUID{id},
			[]enums.CommissionStatus{enums.CommissionPending, enums.CommissionApproved},
			map[string]any{"status": enums.CommissionCancelled})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel commission record")
		}
		if n != 1 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "record changed concurrently")
		}
		return nil
	})
}

// RecordPayment marks approved records of one payee and period as paid and
// stores the payout that covers them.
func (s *service) RecordPayment(ctx context.Context, actorID uuid.UUID, in RecordPaymentInput) (*Payment, error) {
	if in.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user_id required")
	}
	bucket, err := period.Parse(in.Period)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid period")
	}
	ids := uniqueIDs(in.RecordIDs)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record_ids required")
	}
	paidAt := s.now()
	if in.PaidAt != nil {
		paidAt = in.PaidAt.UTC()
	}

	var result *Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		records, err := repo.FindRecords(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission records")
		}
		if len(records) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "commission record not found")
		}

		total := decimal.Zero
		currency := records[0].Currency
		agencyID := records[0].ExternalAgencyID
		for _, rec := range records {
			if rec.UserID != in.UserID {
				return pkgerrors.New(pkgerrors.CodeValidation, "all records must belong to the payee").
					WithDetails(map[string]any{"record_id": rec.ID})
			}
			if !rec.PeriodStart.Equal(bucket.Start) {
				return pkgerrors.New(pkgerrors.CodeValidation, "all records must belong to the period").
					WithDetails(map[string]any{"record_id": rec.ID, "period": in.Period})
			}
			if rec.Currency != currency {
				return pkgerrors.New(pkgerrors.CodeValidation, "records use different currencies")
			}
			if rec.Status != enums.CommissionApproved {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "only approved records can be paid").
					WithDetails(map[string]any{"record_id": rec.ID, "status": rec.Status})
			}
			total = total.Add(rec.Amount)
		}

		payment := &models.ExternalPayment{
			UserID:           in.UserID,
			ExternalAgencyID: agencyID,
			PeriodStart:      bucket.Start,
			PeriodEnd:        bucket.End,
			Amount:           money.Round2(total),
			Currency:         currency,
			Reference:        in.Reference,
			PaidAt:           paidAt,
			CreatedBy:        actorID,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		n, err := repo.TransitionRecords(ctx, ids, []enums.CommissionStatus{enums.CommissionApproved},
			map[string]any{"status": enums.CommissionPaid, "payment_id": payment.ID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark records paid")
		}
		if int(n) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "records changed concurrently")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregateExternalPayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: string(enums.UserRoleAdmin)},
			Data: payloads.PaymentRecordedEvent{
				PaymentID:        payment.ID,
				UserID:           payment.UserID,
				ExternalAgencyID: payment.ExternalAgencyID,
				Amount:           payment.Amount,
				PeriodStart:      payment.PeriodStart,
				PeriodEnd:        payment.PeriodEnd,
				RecordIDs:        ids,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment recorded")
		}
		dto := toPayment(*payment)
		dto.RecordIDs = ids
		result = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListPayments(ctx context.Context, v Viewer, f PaymentFilter) (*pagination.Page[Payment], error) {
	if f.Offset < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offset must not be negative")
	}
	rows, err := s.repo.ListPayments(ctx, v, f, pagination.LimitWithBuffer(f.Limit), f.Offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	items := make([]Payment, 0, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		items = append(items, toPayment(row))
		ids = append(ids, row.ID)
	}
	linked, err := s.repo.PaymentRecordIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment records")
	}
	for i := range items {
		items[i].RecordIDs = linked[items[i].ID]
	}
	page := pagination.OffsetPage(items, f.Limit, f.Offset)
	return &page, nil
}

// ClosePeriod approves every pending record of p. The cron worker runs it for
// the period that just ended.
func (s *service) ClosePeriod(ctx context.Context, p period.Period) (*CloseResult, error) {
	if !p.ExclusiveEnd().After(p.Start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid period")
	}
	if s.now().Before(p.ExclusiveEnd()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "period is still open").
			WithDetails(map[string]any{"period": p.Key()})
	}
	var approved int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).ApprovePending(ctx, p)
		approved = n
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close period")
	}
	return &CloseResult{Period: p, Approved: int(approved)}, nil
}

func (s *service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindUser(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func validateFilter(f RecordFilter) error {
	if f.Status != "" && !f.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	switch f.Sort {
	case "", SortCreatedAt, SortAmount, SortUser:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "sort must be amount, created_at or user")
	}
	return nil
}

func toPayment(m models.ExternalPayment) Payment {
	return Payment{
		ID:               m.ID,
		UserID:           m.UserID,
		ExternalAgencyID: m.ExternalAgencyID,
		PeriodStart:      m.PeriodStart,
		PeriodEnd:        m.PeriodEnd,
		Amount:           m.Amount,
		Currency:         m.Currency,
		Reference:        m.Reference,
		PaidAt:           m.PaidAt,
		CreatedBy:        m.CreatedBy,
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
