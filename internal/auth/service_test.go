package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/internal/users"
	pkgAuth "github.com/angelmondragon/propertyhub-backend/pkg/auth"
	"github.com/angelmondragon/propertyhub-backend/pkg/auth/session"
	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	redisclient "github.com/angelmondragon/propertyhub-backend/pkg/redis"
	"github.com/angelmondragon/propertyhub-backend/pkg/security"
)

const testPassword = "jacaranda-2024"

var jwtCfg = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "propertyhub",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

type authFixture struct {
	svc      Service
	sessions *session.Manager
	db       *gorm.DB
}

func newFixture(t *testing.T) *authFixture {
	t.Helper()
	_, conn := dbtest.Client(t)

	mr := miniredis.RunT(t)
	raw := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	manager, err := session.NewManager(redisclient.NewFromClient(raw), jwtCfg)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: manager,
		JWTConfig:      jwtCfg,
	})
	require.NoError(t, err)
	return &authFixture{svc: svc, sessions: manager, db: conn}
}

func (f *authFixture) seedUser(t *testing.T, email string, role enums.UserRole, agencyID *uuid.UUID) *models.User {
	t.Helper()
	hash, err := security.HashPassword(testPassword, config.PasswordConfig{})
	require.NoError(t, err)
	u := &models.User{
		Email:            email,
		PasswordHash:     hash,
		FirstName:        "Mariana",
		LastName:         "Ruiz",
		Role:             role,
		ExternalAgencyID: agencyID,
		IsActive:         true,
	}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *authFixture) seedAgency(t *testing.T) *models.ExternalAgency {
	t.Helper()
	a := &models.ExternalAgency{Name: "Inmobiliaria Norte", Slug: "inmobiliaria-norte", IsActive: true}
	require.NoError(t, f.db.Create(a).Error)
	return a
}

func TestLoginIssuesScopedToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	agency := f.seedAgency(t)
	agent := f.seedUser(t, "agente@norte.mx", enums.UserRoleExternalAgent, &agency.ID)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: " AGENTE@norte.mx", Password: testPassword})
	require.NoError(t, err)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, agent.ID, resp.User.ID)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(jwtCfg, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleExternalAgent, claims.Role)
	require.Equal(t, agency.ID, *claims.AgencyID)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), resp.AccessExpiresAt, time.Minute)

	ok, err := f.sessions.HasSession(ctx, claims.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLoginRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	agency := f.seedAgency(t)
	f.seedUser(t, "agente@norte.mx", enums.UserRoleExternalAgent, &agency.ID)
	inactive := f.seedUser(t, "baja@ph.mx", enums.UserRoleSeller, nil)
	require.NoError(t, f.db.Model(inactive).Update("is_active", false).Error)

	_, err := f.svc.Login(ctx, LoginRequest{Email: "agente@norte.mx", Password: "wrong-password-1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "nadie@ph.mx", Password: testPassword})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "baja@ph.mx", Password: testPassword})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, f.db.Model(agency).Update("is_active", false).Error)
	_, err = f.svc.Login(ctx, LoginRequest{Email: "agente@norte.mx", Password: testPassword})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestAdminLoginRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "admin@ph.mx", enums.UserRoleAdmin, nil)
	f.seedUser(t, "owner@ph.mx", enums.UserRoleOwner, nil)

	_, err := f.svc.AdminLogin(ctx, LoginRequest{Email: "owner@ph.mx", Password: testPassword})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	resp, err := f.svc.AdminLogin(ctx, LoginRequest{Email: "admin@ph.mx", Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleAdmin, resp.User.Role)
}

func TestRefreshRotatesAndReloadsAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seller := f.seedUser(t, "vende@ph.mx", enums.UserRoleSeller, nil)

	login, err := f.svc.Login(ctx, LoginRequest{Email: "vende@ph.mx", Password: testPassword})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(seller).Update("role", enums.UserRoleConcierge).Error)
	pair, err := f.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, pair.RefreshToken)
	claims, err := pkgAuth.ParseAccessToken(jwtCfg, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleConcierge, claims.Role)

	_, err = f.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "a rotated refresh token is single use")

	require.NoError(t, f.db.Model(seller).Update("is_active", false).Error)
	_, err = f.svc.Refresh(ctx, RefreshRequest{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "cliente@ph.mx", enums.UserRoleClient, nil)

	login, err := f.svc.Login(ctx, LoginRequest{Email: "cliente@ph.mx", Password: testPassword})
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, login.AccessToken))

	_, err = f.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.True(t, pkgerrors.IsCode(f.svc.Logout(ctx, "garbage"), pkgerrors.CodeUnauthorized))
}

func TestMeListsPermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seedUser(t, "admin@ph.mx", enums.UserRoleAdmin, nil)
	seller := f.seedUser(t, "vende@ph.mx", enums.UserRoleSeller, nil)
	require.NoError(t, f.db.Create(&models.Permission{UserID: seller.ID, Name: enums.PermissionLeadsManage}).Error)

	me, err := f.svc.Me(ctx, seller.ID)
	require.NoError(t, err)
	require.Equal(t, []enums.Permission{enums.PermissionLeadsManage}, me.Permissions)

	me, err = f.svc.Me(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, me.Permissions, len(enums.PermissionCatalog()))

	_, err = f.svc.Me(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
