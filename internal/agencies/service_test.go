package agencies

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/types"
)

type stubRevoker struct{ revoked []string }

func (s *stubRevoker) RevokeUser(_ context.Context, userID string) error {
	s.revoked = append(s.revoked, userID)
	return nil
}

var admin = Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

func newService(t *testing.T) (Service, *stubRevoker, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	revoker := &stubRevoker{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	svc, err := NewService(NewRepository(conn), client, revoker, logg)
	require.NoError(t, err)
	return svc, revoker, conn
}

func seedAgent(t *testing.T, db *gorm.DB, agencyID uuid.UUID, first string) *models.User {
	t.Helper()
	u := &models.User{
		Email:            uuid.NewString() + "@agencia.mx",
		PasswordHash:     "x",
		FirstName:        first,
		Role:             enums.UserRoleExternalAgent,
		ExternalAgencyID: &agencyID,
		IsActive:         true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestCreateAssignsStableUniqueSlug(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	first, err := svc.Create(ctx, CreateInput{Name: "Inmobiliaria Peña & Núñez"})
	require.NoError(t, err)
	require.Equal(t, "inmobiliaria-pena-nunez", first.Slug)

	second, err := svc.Create(ctx, CreateInput{Name: "Inmobiliaria Peña y Núñez!"})
	require.NoError(t, err)
	require.Equal(t, "inmobiliaria-pena-y-nunez", second.Slug)

	third, err := svc.Create(ctx, CreateInput{Name: "inmobiliaria pena nunez"})
	require.NoError(t, err)
	require.Equal(t, "inmobiliaria-pena-nunez-2", third.Slug)

	renamed, err := svc.Update(ctx, first.ID, UpdateInput{Name: types.Some("Grupo PN")})
	require.NoError(t, err)
	require.Equal(t, "Grupo PN", renamed.Name)
	require.Equal(t, first.Slug, renamed.Slug)

	bad := "correo"
	_, err = svc.Create(ctx, CreateInput{Name: "Casas", ContactEmail: &bad})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Update(ctx, uuid.New(), UpdateInput{Name: types.Some("Nadie")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAgencyScopedReads(t *testing.T) {
	ctx := context.Background()
	svc, _, db := newService(t)
	norte, err := svc.Create(ctx, CreateInput{Name: "Inmobiliaria Norte"})
	require.NoError(t, err)
	sur, err := svc.Create(ctx, CreateInput{Name: "Casas del Sur"})
	require.NoError(t, err)
	agent := seedAgent(t, db, norte.ID, "Pablo")
	seedAgent(t, db, norte.ID, "Ana")
	seedAgent(t, db, sur.ID, "Luis")

	me := Actor{UserID: agent.ID, Role: enums.UserRoleExternalAgent, AgencyID: &norte.ID}
	got, err := svc.Get(ctx, me, norte.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), *got.StaffCount)

	staff, err := svc.Staff(ctx, me, norte.ID)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	require.Equal(t, "Ana", staff[0].FullName)

	_, err = svc.Get(ctx, me, sur.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Staff(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleSeller}, norte.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(ctx, admin, sur.ID)
	require.NoError(t, err)
}

func TestDeactivateRevokesStaffAndDeleteIsRestricted(t *testing.T) {
	ctx := context.Background()
	svc, revoker, db := newService(t)
	norte, err := svc.Create(ctx, CreateInput{Name: "Inmobiliaria Norte"})
	require.NoError(t, err)
	agent := seedAgent(t, db, norte.ID, "Pablo")

	dto, err := svc.SetActive(ctx, norte.ID, false)
	require.NoError(t, err)
	require.False(t, dto.IsActive)
	require.Equal(t, []string{agent.ID.String()}, revoker.revoked)

	err = svc.Delete(ctx, norte.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	empty, err := svc.Create(ctx, CreateInput{Name: "Sin Personal"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, empty.ID))
	require.True(t, pkgerrors.IsCode(svc.Delete(ctx, empty.ID), pkgerrors.CodeNotFound))

	active := true
	page, err := svc.List(ctx, ListFilter{Active: &active, Params: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}
