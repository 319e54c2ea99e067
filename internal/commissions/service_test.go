package commissions

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
	"github.com/angelmondragon/propertyhub-backend/pkg/types"
)

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func newTestService(t *testing.T) (*service, *gorm.DB, *recordingOutbox) {
	t.Helper()
	conn := dbtest.Open(t)
	events := &recordingOutbox{}
	svc, err := NewService(NewRepository(conn), events)
	require.NoError(t, err)
	return svc.(*service), conn, events
}

func seedUser(t *testing.T, conn *gorm.DB, role enums.UserRole) models.User {
	t.Helper()
	user := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Ana",
		LastName:     "Ruiz",
		Role:         role,
		IsActive:     true,
	}
	if role.RequiresAgency() {
		agency := uuid.New()
		user.ExternalAgencyID = &agency
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

func TestCreateConfigRejectsOverlap(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	role := enums.UserRoleSeller

	_, err := svc.CreateConfig(ctx, uuid.New(), CreateConfigInput{
		Tier: enums.CommissionTierRole, Role: &role, OperationType: enums.DealSale,
		Percentage: decimal.NewFromInt(4), ActiveFrom: jan1, ActiveTo: ptr(mar1),
	})
	require.NoError(t, err)

	_, err = svc.CreateConfig(ctx, uuid.New(), CreateConfigInput{
		Tier: enums.CommissionTierRole, Role: &role, OperationType: enums.DealSale,
		Percentage: decimal.NewFromInt(5), ActiveFrom: feb1,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	// back-to-back and other operation types are fine
	_, err = svc.CreateConfig(ctx, uuid.New(), CreateConfigInput{
		Tier: enums.CommissionTierRole, Role: &role, OperationType: enums.DealSale,
		Percentage: decimal.NewFromInt(5), ActiveFrom: mar1,
	})
	require.NoError(t, err)
	_, err = svc.CreateConfig(ctx, uuid.New(), CreateConfigInput{
		Tier: enums.CommissionTierRole, Role: &role, OperationType: enums.DealRent,
		Percentage: decimal.NewFromInt(5), ActiveFrom: feb1,
	})
	require.NoError(t, err)
}

func TestCreateConfigValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	cases := []CreateConfigInput{
		{Tier: enums.CommissionTierDefault, OperationType: enums.DealSale, Percentage: decimal.NewFromInt(101), ActiveFrom: jan1},
		{Tier: enums.CommissionTierDefault, OperationType: enums.DealSale, Percentage: decimal.RequireFromString("2.555"), ActiveFrom: jan1},
		{Tier: enums.CommissionTierDefault, OperationType: enums.DealSale, Percentage: decimal.NewFromInt(3), ActiveFrom: feb1, ActiveTo: ptr(jan1)},
		{Tier: enums.CommissionTierUser, OperationType: enums.DealSale, Percentage: decimal.NewFromInt(3), ActiveFrom: jan1},
		{Tier: enums.CommissionTierDefault, UserID: &userID, OperationType: enums.DealSale, Percentage: decimal.NewFromInt(3), ActiveFrom: jan1},
		{Tier: enums.CommissionTierLead, OperationType: enums.DealSale, Percentage: decimal.NewFromInt(3), ActiveFrom: jan1},
		{Tier: "agency", OperationType: enums.DealSale, Percentage: decimal.NewFromInt(3), ActiveFrom: jan1},
	}
	for i, in := range cases {
		_, err := svc.CreateConfig(ctx, uuid.Nil, in)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "case %d: %v", i, err)
	}
}

func TestResolveThroughRepository(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, conn, enums.UserRoleSeller)
	leadID := uuid.New()

	_, err := svc.Resolve(ctx, ResolveInput{UserID: seller.ID, Role: seller.Role, Operation: enums.DealSale, At: feb1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	mustCreate := func(in CreateConfigInput) {
		_, err := svc.CreateConfig(ctx, uuid.Nil, in)
		require.NoError(t, err)
	}
	role := enums.UserRoleSeller
	mustCreate(CreateConfigInput{Tier: enums.CommissionTierDefault, OperationType: enums.DealSale, Percentage: decimal.NewFromInt(3), ActiveFrom: jan1})
	mustCreate(CreateConfigInput{Tier: enums.CommissionTierRole, Role: &role, OperationType: enums.DealSale, Percentage: decimal.NewFromInt(4), ActiveFrom: jan1})
	mustCreate(CreateConfigInput{Tier: enums.CommissionTierUser, UserID: &seller.ID, OperationType: enums.DealSale, Percentage: decimal.NewFromInt(5), ActiveFrom: feb1})
	mustCreate(CreateConfigInput{Tier: enums.CommissionTierLead, LeadID: &leadID, OperationType: enums.DealSale, Percentage: decimal.NewFromInt(6), ActiveFrom: jan1})

	res, err := svc.Resolve(ctx, ResolveInput{UserID: seller.ID, Role: seller.Role, Operation: enums.DealSale, At: jan1.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Equal(t, enums.CommissionTierRole, res.Tier)

	res, err = svc.Resolve(ctx, ResolveInput{UserID: seller.ID, Role: seller.Role, Operation: enums.DealSale, At: feb1})
	require.NoError(t, err)
	require.Equal(t, enums.CommissionTierUser, res.Tier)

	res, err = svc.Resolve(ctx, ResolveInput{UserID: seller.ID, Role: seller.Role, LeadID: &leadID, Operation: enums.DealSale, At: feb1})
	require.NoError(t, err)
	require.Equal(t, enums.CommissionTierLead, res.Tier)
	require.True(t, res.Percentage.Equal(decimal.NewFromInt(6)))
}

func TestPreviewComputesAmount(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, conn, enums.UserRoleSeller)
	_, err := svc.CreateConfig(ctx, uuid.Nil, CreateConfigInput{
		Tier: enums.CommissionTierDefault, OperationType: enums.DealSale,
		Percentage: decimal.RequireFromString("2.5"), ActiveFrom: jan1,
	})
	require.NoError(t, err)

	res, err := svc.Preview(ctx, PreviewInput{UserID: seller.ID, Operation: enums.DealSale, At: &feb1, BaseAmount: decimal.RequireFromString("1234567.89")})
	require.NoError(t, err)
	// 1234567.89 * 2.5 / 100 = 30864.19725 -> 30864.20
	require.Equal(t, "30864.2", res.Amount.String())
	require.Equal(t, enums.CommissionTierDefault, res.Tier)
}

func TestUpdateConfigClosesWindow(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	cfg, err := svc.CreateConfig(ctx, uuid.Nil, CreateConfigInput{
		Tier: enums.CommissionTierDefault, OperationType: enums.DealRent,
		Percentage: decimal.NewFromInt(8), ActiveFrom: jan1,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateConfig(ctx, enums.CommissionTierDefault, cfg.ID, UpdateConfigInput{ActiveTo: types.Some(feb1)})
	require.NoError(t, err)
	require.NotNil(t, updated.ActiveTo)
	require.True(t, updated.ActiveTo.Equal(feb1))

	_, err = svc.CreateConfig(ctx, uuid.Nil, CreateConfigInput{
		Tier: enums.CommissionTierDefault, OperationType: enums.DealRent,
		Percentage: decimal.NewFromInt(9), ActiveFrom: feb1,
	})
	require.NoError(t, err)

	_, err = svc.UpdateConfig(ctx, enums.CommissionTierDefault, cfg.ID, UpdateConfigInput{ActiveTo: types.Null[time.Time]()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	require.NoError(t, svc.DeleteConfig(ctx, enums.CommissionTierDefault, cfg.ID))
	err = svc.DeleteConfig(ctx, enums.CommissionTierDefault, cfg.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGenerateCreatesRecordPerParticipant(t *testing.T) {
	svc, conn, events := newTestService(t)
	ctx := context.Background()
	seller := seedUser(t, conn, enums.UserRoleSeller)
	agent := seedUser(t, conn, enums.UserRoleExternalAgent)
	owner := seedUser(t, conn, enums.UserRoleOwner)

	role := enums.UserRoleExternalAgent
	_, err := svc.CreateConfig(ctx, uuid.Nil, CreateConfigInput{Tier: enums.CommissionTierDefault, OperationType: enums.DealSale, Percentage: decimal.NewFromInt(3), ActiveFrom: jan1})
	require.NoError(t, err)
	_, err = svc.CreateConfig(ctx, uuid.Nil, CreateConfigInput{Tier: enums.CommissionTierRole, Role: &role, OperationType: enums.DealSale, Percentage: decimal.RequireFromString("1.5"), ActiveFrom: jan1})
	require.NoError(t, err)

	contract := models.Contract{
		ID:           uuid.New(),
		ContractType: enums.DealSale,
		Amount:       decimal.RequireFromString("2500000"),
		Currency:     "MXN",
	}
	signedAt := time.Date(2024, 2, 16, 10, 0, 0, 0, time.UTC)

	var records []models.CommissionRecord
	err = conn.Transaction(func(tx *gorm.DB) error {
		var genErr error
		records, genErr = svc.Generate(ctx, tx, GenerateInput{
			Contract: contract,
			SignedAt: signedAt,
			Participants: []Participant{
				{UserID: agent.ID, Role: agent.Role, ExternalAgencyID: agent.ExternalAgencyID, ParticipantRole: ParticipantLeadRegistrant},
				{UserID: seller.ID, Role: seller.Role, ParticipantRole: ParticipantLeadAssignee},
				{UserID: seller.ID, Role: seller.Role, ParticipantRole: ParticipantPropertySeller},
				{UserID: owner.ID, Role: owner.Role, ParticipantRole: ParticipantPropertySeller},
			},
		})
		return genErr
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, events.events, 2)

	byUser := map[uuid.UUID]models.CommissionRecord{}
	for _, rec := range records {
		byUser[rec.UserID] = rec
	}
	require.Equal(t, "37500", byUser[agent.ID].Amount.String())
	require.Equal(t, enums.CommissionTierRole, byUser[agent.ID].SourceTier)
	require.Equal(t, agent.ExternalAgencyID, byUser[agent.ID].ExternalAgencyID)
	require.Equal(t, "75000", byUser[seller.ID].Amount.String())
	require.Equal(t, ParticipantLeadAssignee, byUser[seller.ID].ParticipantRole)
	require.Equal(t, 16, byUser[seller.ID].PeriodStart.Day())
	require.Equal(t, 29, byUser[seller.ID].PeriodEnd.Day())

	stored, err := svc.repo.ListRecordsByContract(ctx, contract.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestGenerateFailsWithoutConfiguration(t *testing.T) {
	svc, conn, _ := newTestService(t)
	seller := seedUser(t, conn, enums.UserRoleSeller)
	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Generate(context.Background(), tx, GenerateInput{
			Contract:     models.Contract{ID: uuid.New(), ContractType: enums.DealRent, Amount: decimal.NewFromInt(15000), Currency: "MXN"},
			SignedAt:     feb1,
			Participants: []Participant{{UserID: seller.ID, Role: seller.Role, ParticipantRole: ParticipantPropertySeller}},
		})
		return err
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
