package propertystaff

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
)

func seedUser(t *testing.T, conn *gorm.DB, role enums.UserRole) models.User {
	t.Helper()
	u := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Lucía",
		LastName:     string(role),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(&u).Error)
	return u
}

func seedProperty(t *testing.T, conn *gorm.DB, owner uuid.UUID) models.Property {
	t.Helper()
	p := models.Property{
		Title:          "Casa Polanco",
		Slug:           "casa-polanco-" + uuid.NewString()[:8],
		PropertyType:   enums.PropertyTypeHouse,
		OperationType:  enums.OperationSale,
		Currency:       "MXN",
		OwnerID:        owner,
		ApprovalStatus: enums.ApprovalApproved,
	}
	require.NoError(t, conn.Create(&p).Error)
	return p
}

func TestAssignStaff(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	owner := seedUser(t, conn, enums.UserRoleOwner)
	seller := seedUser(t, conn, enums.UserRoleSeller)
	concierge := seedUser(t, conn, enums.UserRoleConcierge)
	p := seedProperty(t, conn, owner.ID)
	asOwner := Actor{UserID: owner.ID, Role: owner.Role}

	m, err := svc.AssignStaff(ctx, asOwner, p.ID, AssignInput{UserID: seller.ID, Role: enums.StaffRoleSeller})
	require.NoError(t, err)
	require.Equal(t, "Lucía seller", m.FullName)

	_, err = svc.AssignStaff(ctx, asOwner, p.ID, AssignInput{UserID: seller.ID, Role: enums.StaffRoleSeller})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.AssignStaff(ctx, asOwner, p.ID, AssignInput{UserID: seller.ID, Role: enums.StaffRoleConcierge})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "sellers cannot be concierges")

	_, err = svc.AssignStaff(ctx, asOwner, p.ID, AssignInput{UserID: concierge.ID, Role: enums.StaffRoleSeller})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AssignStaff(ctx, asOwner, p.ID, AssignInput{UserID: concierge.ID, Role: enums.StaffRoleConcierge})
	require.NoError(t, err)

	_, err = svc.AssignStaff(ctx, Actor{UserID: seller.ID, Role: seller.Role}, p.ID, AssignInput{UserID: concierge.ID, Role: enums.StaffRolePhotographer})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	staff, err := svc.ListStaff(ctx, Actor{UserID: concierge.ID, Role: concierge.Role}, p.ID)
	require.NoError(t, err)
	require.Len(t, staff, 2)

	_, err = svc.ListStaff(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleClient}, p.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	assignments, err := svc.ListPropertiesForStaff(ctx, Actor{UserID: seller.ID, Role: seller.Role}, seller.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Equal(t, p.ID, assignments[0].PropertyID)
	require.Equal(t, enums.StaffRoleSeller, assignments[0].Role)

	_, err = svc.ListPropertiesForStaff(ctx, Actor{UserID: seller.ID, Role: seller.Role}, concierge.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestRemoveStaff(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	owner := seedUser(t, conn, enums.UserRoleOwner)
	seller := seedUser(t, conn, enums.UserRoleSeller)
	p := seedProperty(t, conn, owner.ID)

	for _, role := range []enums.StaffRole{enums.StaffRoleSeller, enums.StaffRoleManager} {
		_, err := svc.AssignStaff(ctx, admin, p.ID, AssignInput{UserID: seller.ID, Role: role})
		require.NoError(t, err)
	}

	role := enums.StaffRoleManager
	require.NoError(t, svc.RemoveStaff(ctx, admin, p.ID, seller.ID, &role))
	err = svc.RemoveStaff(ctx, admin, p.ID, seller.ID, &role)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.RemoveStaff(ctx, admin, p.ID, seller.ID, nil))
	staff, err := svc.ListStaff(ctx, admin, p.ID)
	require.NoError(t, err)
	require.Empty(t, staff)
}
