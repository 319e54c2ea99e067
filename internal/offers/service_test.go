package offers

import (
	"context"
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
	"github.com/angelmondragon/propertyhub-backend/pkg/outbox/payloads"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingOutbox) statusChanges() []payloads.OfferStatusChangedEvent {
	var out []payloads.OfferStatusChangedEvent
	for _, e := range r.events {
		if p, ok := e.Data.(payloads.OfferStatusChangedEvent); ok {
			out = append(out, p)
		}
	}
	return out
}

type fixture struct {
	svc      *service
	conn     *gorm.DB
	events   *recordingOutbox
	owner    Actor
	client   Actor
	tenant   Actor
	seller   Actor
	admin    Actor
	property models.Property
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	f := &fixture{conn: conn, events: &recordingOutbox{}}
	svc, err := NewService(NewRepository(conn), client, f.events)
	require.NoError(t, err)
	f.svc = svc.(*service)
	f.svc.now = func() time.Time { return now }

	f.owner = f.actor(t, enums.UserRoleOwner)
	f.client = f.actor(t, enums.UserRoleClient)
	f.tenant = f.actor(t, enums.UserRoleTenant)
	f.seller = f.actor(t, enums.UserRoleSeller)
	f.admin = f.actor(t, enums.UserRoleAdmin)
	f.property = f.listing(t, enums.OperationSale, enums.ApprovalApproved)
	return f
}

func (f *fixture) actor(t *testing.T, role enums.UserRole) Actor {
	t.Helper()
	u := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Lucía",
		LastName:     string(role),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, f.conn.Create(&u).Error)
	return Actor{UserID: u.ID, Role: role}
}

func (f *fixture) listing(t *testing.T, op enums.OperationType, status enums.ApprovalStatus) models.Property {
	t.Helper()
	p := models.Property{
		Title:          "Casa Polanco",
		Slug:           uuid.NewString(),
		PropertyType:   enums.PropertyTypeHouse,
		OperationType:  op,
		Currency:       "MXN",
		OwnerID:        f.owner.UserID,
		ApprovalStatus: status,
	}
	require.NoError(t, f.conn.Create(&p).Error)
	return p
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) offer(t *testing.T, by Actor, value string) *OfferDTO {
	t.Helper()
	o, err := f.svc.Make(context.Background(), by, MakeInput{
		PropertyID: f.property.ID,
		DealType:   enums.DealSale,
		Amount:     amount(value),
	})
	require.NoError(t, err)
	return o
}

func TestMakeOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := f.offer(t, f.client, "5100000")
	require.Equal(t, enums.OfferPending, o.Status)
	require.Equal(t, f.client.UserID, o.ClientID)
	require.Equal(t, "MXN", o.Currency)
	made := f.events.events[0].Data.(payloads.OfferMadeEvent)
	require.Equal(t, f.owner.UserID, made.OwnerID)

	_, err := f.svc.Make(ctx, f.client, MakeInput{PropertyID: f.property.ID, DealType: enums.DealSale, Amount: amount("5200000")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "one open offer per client")

	_, err = f.svc.Make(ctx, f.tenant, MakeInput{PropertyID: f.property.ID, DealType: enums.DealRent, Amount: amount("30000")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "sale-only listing")

	draft := f.listing(t, enums.OperationSaleAndRent, enums.ApprovalDraft)
	_, err = f.svc.Make(ctx, f.tenant, MakeInput{PropertyID: draft.ID, DealType: enums.DealRent, Amount: amount("30000")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.Make(ctx, f.seller, MakeInput{PropertyID: f.property.ID, DealType: enums.DealSale, Amount: amount("1")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "client required on behalf")

	onBehalf, err := f.svc.Make(ctx, f.seller, MakeInput{PropertyID: f.property.ID, ClientID: &f.tenant.UserID, DealType: enums.DealSale, Amount: amount("4900000")})
	require.NoError(t, err)
	require.Equal(t, f.tenant.UserID, onBehalf.ClientID)
	require.Equal(t, f.seller.UserID, onBehalf.CreatedBy)

	_, err = f.svc.Make(ctx, f.owner, MakeInput{PropertyID: f.property.ID, DealType: enums.DealSale, Amount: amount("1")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	past := now.Add(-time.Hour)
	_, err = f.svc.Make(ctx, f.admin, MakeInput{PropertyID: f.property.ID, ClientID: &f.client.UserID, DealType: enums.DealSale, Amount: amount("1"), ExpiresAt: &past})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCounterAndAcceptRejectsCompetingOffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.offer(t, f.client, "5000000")
	rival := f.offer(t, f.tenant, "4800000")

	_, err := f.svc.Counter(ctx, f.client, mine.ID, CounterInput{Amount: amount("5300000")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	countered, err := f.svc.Counter(ctx, f.owner, mine.ID, CounterInput{Amount: amount("5300000")})
	require.NoError(t, err)
	require.Equal(t, enums.OfferCountered, countered.Status)
	require.Equal(t, "5300000", countered.CounterAmount.String())

	_, err = f.svc.Accept(ctx, f.owner, mine.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "the client answers a counter")

	accepted, err := f.svc.Accept(ctx, f.client, mine.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OfferAccepted, accepted.Status)
	require.True(t, accepted.Amount.Equal(amount("5300000")))

	other, err := f.svc.Get(ctx, f.owner, rival.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OfferRejected, other.Status)

	changes := f.events.statusChanges()
	require.Len(t, changes, 3)
	require.Equal(t, enums.OfferRejected, changes[2].To)
	require.Equal(t, rival.ID, changes[2].OfferID)

	_, err = f.svc.Withdraw(ctx, f.client, mine.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestRejectAndWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.offer(t, f.client, "5000000")

	_, err := f.svc.Reject(ctx, f.client, o.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "clients cannot reject their own pending offer")

	_, err = f.svc.Withdraw(ctx, f.tenant, o.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "strangers do not see the offer")

	out, err := f.svc.Withdraw(ctx, f.client, o.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OfferWithdrawn, out.Status)

	second := f.offer(t, f.client, "5050000")
	out, err = f.svc.Reject(ctx, f.owner, second.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OfferRejected, out.Status)
}

func TestExpireDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := now.Add(time.Hour)
	later := now.Add(72 * time.Hour)

	short, err := f.svc.Make(ctx, f.client, MakeInput{PropertyID: f.property.ID, DealType: enums.DealSale, Amount: amount("1"), ExpiresAt: &soon})
	require.NoError(t, err)
	long, err := f.svc.Make(ctx, f.tenant, MakeInput{PropertyID: f.property.ID, DealType: enums.DealSale, Amount: amount("2"), ExpiresAt: &later})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = f.svc.Accept(ctx, f.owner, short.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "expired offers cannot be accepted")

	n, err := f.svc.ExpireDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, f.admin, short.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OfferExpired, got.Status)
	got, err = f.svc.Get(ctx, f.admin, long.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OfferPending, got.Status)

	n, err = f.svc.ExpireDue(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestListScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.offer(t, f.client, "1")
	f.offer(t, f.tenant, "2")

	page, err := f.svc.List(ctx, f.client, ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	page, err = f.svc.List(ctx, f.owner, ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	stranger := f.actor(t, enums.UserRoleOwner)
	page, err = f.svc.List(ctx, stranger, ListFilter{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}
