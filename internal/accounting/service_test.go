package accounting

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/period"
)

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type fakeRenderer struct {
	html string
}

func (f *fakeRenderer) Render(_ context.Context, html string) ([]byte, error) {
	f.html = html
	return []byte("%PDF-fake"), nil
}

type fixture struct {
	svc      *service
	conn     *gorm.DB
	events   *recordingOutbox
	renderer *fakeRenderer
}

var (
	firstHalf  = period.For(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC))
	secondHalf = period.For(time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC))
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	events := &recordingOutbox{}
	renderer := &fakeRenderer{}
	svc, err := NewService(NewRepository(conn), client, events, renderer, "PropertyHub")
	require.NoError(t, err)
	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC) }
	return &fixture{svc: s, conn: conn, events: events, renderer: renderer}
}

func (f *fixture) user(t *testing.T, first string, role enums.UserRole, agency *uuid.UUID) models.User {
	t.Helper()
	u := models.User{
		Email:            uuid.NewString() + "@example.com",
		PasswordHash:     "x",
		FirstName:        first,
		LastName:         "Test",
		Role:             role,
		ExternalAgencyID: agency,
		IsActive:         true,
	}
	require.NoError(t, f.conn.Create(&u).Error)
	return u
}

func (f *fixture) agency(t *testing.T, name string) models.ExternalAgency {
	t.Helper()
	a := models.ExternalAgency{ID: uuid.New(), Name: name, Slug: uuid.NewString(), IsActive: true}
	require.NoError(t, f.conn.Create(&a).Error)
	return a
}

func (f *fixture) record(t *testing.T, u models.User, p period.Period, amount string, status enums.CommissionStatus) models.CommissionRecord {
	t.Helper()
	rec := models.CommissionRecord{
		ContractID:       uuid.New(),
		UserID:           u.ID,
		ParticipantRole:  "property_seller",
		ExternalAgencyID: u.ExternalAgencyID,
		OperationType:    enums.DealSale,
		BaseAmount:       decimal.NewFromInt(1000000),
		Percentage:       decimal.NewFromInt(3),
		Amount:           decimal.RequireFromString(amount),
		Currency:         "MXN",
		SourceTier:       enums.CommissionTierDefault,
		Status:           status,
		PeriodStart:      p.Start,
		PeriodEnd:        p.End,
	}
	require.NoError(t, f.conn.Create(&rec).Error)
	return rec
}

var admin = Viewer{UserID: uuid.New(), Role: enums.UserRoleAdmin, All: true}

func TestListRecordsScopesByViewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agency := f.agency(t, "Norte")
	seller := f.user(t, "Sara", enums.UserRoleSeller, nil)
	agent := f.user(t, "Alan", enums.UserRoleExternalAgent, &agency.ID)
	other := f.user(t, "Olga", enums.UserRoleExternalAgent, ptr(uuid.New()))
	f.record(t, seller, firstHalf, "100", enums.CommissionPending)
	f.record(t, agent, firstHalf, "200", enums.CommissionPending)
	f.record(t, other, firstHalf, "300", enums.CommissionPending)

	page, err := f.svc.ListRecords(ctx, admin, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	page, err = f.svc.ListRecords(ctx, Viewer{UserID: agent.ID, Role: enums.UserRoleExternalAgent, AgencyID: &agency.ID}, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, agent.ID, page.Items[0].UserID)
	require.Equal(t, "Alan Test", page.Items[0].UserName)

	page, err = f.svc.ListRecords(ctx, Viewer{UserID: seller.ID, Role: enums.UserRoleSeller}, RecordFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, seller.ID, page.Items[0].UserID)

	page, err = f.svc.ListRecords(ctx, Viewer{UserID: uuid.New(), Role: enums.UserRoleExternalAgent}, RecordFilter{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestListRecordsFiltersSortsAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana", enums.UserRoleSeller, nil)
	beto := f.user(t, "Beto", enums.UserRoleSeller, nil)
	f.record(t, ana, firstHalf, "150", enums.CommissionPending)
	f.record(t, ana, secondHalf, "400", enums.CommissionApproved)
	f.record(t, beto, secondHalf, "250", enums.CommissionPending)
	f.record(t, beto, secondHalf, "300", enums.CommissionPending)

	page, err := f.svc.ListRecords(ctx, admin, RecordFilter{Period: &secondHalf, Sort: SortAmount, Desc: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.Equal(t, "400", page.Items[0].Amount.String())
	require.Equal(t, "250", page.Items[2].Amount.String())

	page, err = f.svc.ListRecords(ctx, admin, RecordFilter{Status: enums.CommissionPending, UserID: &beto.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	page, err = f.svc.ListRecords(ctx, admin, RecordFilter{Sort: SortAmount, Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextOffset)
	require.Equal(t, 2, *page.NextOffset)

	page, err = f.svc.ListRecords(ctx, admin, RecordFilter{Sort: SortAmount, Params: pagination.Params{Limit: 2, Offset: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Nil(t, page.NextOffset)
	require.Equal(t, "400", page.Items[1].Amount.String())

	_, err = f.svc.ListRecords(ctx, admin, RecordFilter{Sort: "percentage"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.ListRecords(ctx, admin, RecordFilter{Status: "lost"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPeriodSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agency := f.agency(t, "Norte")
	ana := f.user(t, "Ana", enums.UserRoleSeller, nil)
	alan := f.user(t, "Alan", enums.UserRoleExternalAgent, &agency.ID)
	f.record(t, ana, secondHalf, "100.50", enums.CommissionPending)
	f.record(t, ana, secondHalf, "50", enums.CommissionCancelled)
	f.record(t, alan, secondHalf, "200", enums.CommissionApproved)
	f.record(t, alan, firstHalf, "999", enums.CommissionApproved)

	sum, err := f.svc.PeriodSummary(ctx, admin, secondHalf)
	require.NoError(t, err)
	require.Equal(t, 3, sum.Count)
	require.Equal(t, "300.5", sum.Total.String())
	require.Len(t, sum.ByStatus, 3)
	require.Len(t, sum.ByUser, 2)
	require.Equal(t, alan.ID.String(), sum.ByUser[0].Key)
	require.Equal(t, "Alan Test", sum.ByUser[0].Label)
	require.Equal(t, "150.5", sum.ByUser[1].Amount.String())
	require.Len(t, sum.ByAgency, 2)
	require.Equal(t, agency.ID.String(), sum.ByAgency[0].Key)
	require.Equal(t, "in_house", sum.ByAgency[1].Key)
}

func TestApproveRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana", enums.UserRoleSeller, nil)
	a := f.record(t, ana, firstHalf, "100", enums.CommissionPending)
	b := f.record(t, ana, firstHalf, "100", enums.CommissionPending)
	paid := f.record(t, ana, firstHalf, "100", enums.CommissionPaid)

	_, err := f.svc.ApproveRecords(ctx, admin.UserID, []uuid.UUID{a.ID, paid.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	var reloaded models.CommissionRecord
	require.NoError(t, f.conn.First(&reloaded, "id = ?", a.ID).Error)
	require.Equal(t, enums.CommissionPending, reloaded.Status)

	n, err := f.svc.ApproveRecords(ctx, admin.UserID, []uuid.UUID{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = f.svc.ApproveRecords(ctx, admin.UserID, []uuid.UUID{uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.ApproveRecords(ctx, admin.UserID, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCancelRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana", enums.UserRoleSeller, nil)
	approved := f.record(t, ana, firstHalf, "100", enums.CommissionApproved)
	paid := f.record(t, ana, firstHalf, "100", enums.CommissionPaid)

	require.NoError(t, f.svc.CancelRecord(ctx, admin.UserID, approved.ID))
	require.NoError(t, f.svc.CancelRecord(ctx, admin.UserID, approved.ID), "cancel is idempotent")

	err := f.svc.CancelRecord(ctx, admin.UserID, paid.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	err = f.svc.CancelRecord(ctx, admin.UserID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agency := f.agency(t, "Norte")
	alan := f.user(t, "Alan", enums.UserRoleExternalAgent, &agency.ID)
	ana := f.user(t, "Ana", enums.UserRoleSeller, nil)
	a := f.record(t, alan, firstHalf, "1200.25", enums.CommissionApproved)
	b := f.record(t, alan, firstHalf, "800", enums.CommissionApproved)
	pending := f.record(t, alan, firstHalf, "10", enums.CommissionPending)
	late := f.record(t, alan, secondHalf, "10", enums.CommissionApproved)
	foreign := f.record(t, ana, firstHalf, "10", enums.CommissionApproved)

	in := RecordPaymentInput{UserID: alan.ID, Period: firstHalf.Key()}

	in.RecordIDs = []uuid.UUID{a.ID, pending.ID}
	_, err := f.svc.RecordPayment(ctx, admin.UserID, in)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	in.RecordIDs = []uuid.UUID{a.ID, late.ID}
	_, err = f.svc.RecordPayment(ctx, admin.UserID, in)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	in.RecordIDs = []uuid.UUID{a.ID, foreign.ID}
	_, err = f.svc.RecordPayment(ctx, admin.UserID, in)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	ref := "SPEI-991"
	in.RecordIDs = []uuid.UUID{a.ID, b.ID}
	in.Reference = &ref
	payment, err := f.svc.RecordPayment(ctx, admin.UserID, in)
	require.NoError(t, err)
	require.Equal(t, "2000.25", payment.Amount.String())
	require.Equal(t, &agency.ID, payment.ExternalAgencyID)
	require.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, payment.RecordIDs)
	require.Len(t, f.events.events, 1)
	require.Equal(t, enums.EventPaymentRecorded, f.events.events[0].EventType)

	var rows []models.CommissionRecord
	require.NoError(t, f.conn.Where("payment_id = ?", payment.ID).Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, enums.CommissionPaid, row.Status)
	}

	_, err = f.svc.RecordPayment(ctx, admin.UserID, in)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "records cannot be paid twice")

	payments, err := f.svc.ListPayments(ctx, Viewer{UserID: alan.ID, Role: enums.UserRoleExternalAgent, AgencyID: &agency.ID}, PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, payments.Items, 1)
	require.Len(t, payments.Items[0].RecordIDs, 2)

	payments, err = f.svc.ListPayments(ctx, Viewer{UserID: ana.ID, Role: enums.UserRoleSeller}, PaymentFilter{})
	require.NoError(t, err)
	require.Empty(t, payments.Items)
}

func TestClosePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana", enums.UserRoleSeller, nil)
	f.record(t, ana, firstHalf, "100", enums.CommissionPending)
	f.record(t, ana, firstHalf, "100", enums.CommissionPending)
	f.record(t, ana, firstHalf, "100", enums.CommissionCancelled)
	f.record(t, ana, period.For(f.svc.now()), "100", enums.CommissionPending)

	res, err := f.svc.ClosePeriod(ctx, firstHalf)
	require.NoError(t, err)
	require.Equal(t, 2, res.Approved)

	_, err = f.svc.ClosePeriod(ctx, period.For(f.svc.now()))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana", enums.UserRoleSeller, nil)
	f.record(t, ana, firstHalf, "100", enums.CommissionPending)
	f.record(t, ana, firstHalf, "55.5", enums.CommissionApproved)

	var buf bytes.Buffer
	n, err := f.svc.ExportCSV(ctx, admin, RecordFilter{Period: &firstHalf, Sort: SortAmount}, &buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.Equal(t, csvHeader, lines[0])
	require.Equal(t, "Ana Test", lines[1][3])
	require.Equal(t, "2024-02-01", lines[1][14])
	require.Equal(t, "2024-02-15", lines[1][15])
}

func TestStatementPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agency := f.agency(t, "Inmobiliaria Norte")
	alan := f.user(t, "Alan", enums.UserRoleExternalAgent, &agency.ID)
	f.record(t, alan, firstHalf, "1000", enums.CommissionApproved)
	f.record(t, alan, firstHalf, "500", enums.CommissionPending)

	out, err := f.svc.StatementPDF(ctx, Viewer{UserID: alan.ID, Role: enums.UserRoleExternalAgent, AgencyID: &agency.ID}, alan.ID, firstHalf)
	require.NoError(t, err)
	require.Equal(t, "%PDF-fake", string(out))
	require.Contains(t, f.renderer.html, "Inmobiliaria Norte")
	require.Contains(t, f.renderer.html, "1,500.00")

	_, err = f.svc.StatementPDF(ctx, Viewer{UserID: uuid.New(), Role: enums.UserRoleSeller}, alan.ID, firstHalf)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.StatementPDF(ctx, admin, uuid.New(), firstHalf)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func ptr[T any](v T) *T { return &v }
