package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/api/middleware"
	"github.com/angelmondragon/propertyhub-backend/internal/auth"
	"github.com/angelmondragon/propertyhub-backend/internal/users"
	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

type stubAuthService struct {
	login     func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
	refresh   func(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error)
	loggedOut string
	me        *users.UserDTO
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login(ctx, req)
}

func (s *stubAuthService) AdminLogin(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login(ctx, req)
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
	return s.refresh(ctx, req)
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken string) error {
	s.loggedOut = accessToken
	return nil
}

func (s *stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	if s.me == nil || s.me.ID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return s.me, nil
}

type stubRegisterService struct {
	got auth.RegisterRequest
	err error
}

func (s *stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &users.UserDTO{ID: uuid.New(), Email: req.Email, Role: enums.UserRoleClient}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testPair() auth.TokenPair {
	now := time.Now().UTC()
	return auth.TokenPair{
		AccessToken:      "access-token",
		RefreshToken:     "refresh-token",
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}
}

func cookieByName(resp *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range resp.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthLoginSetsCookiesAndBody(t *testing.T) {
	svc := &stubAuthService{
		login: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
			if req.Email != "ana@example.com" {
				t.Fatalf("unexpected email %s", req.Email)
			}
			return &auth.LoginResponse{TokenPair: testPair(), User: &users.UserDTO{Email: req.Email}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"ana@example.com","password":"Secret#1"}`))
	resp := httptest.NewRecorder()
	AuthLogin(svc, config.CookieConfig{Secure: true}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	access := cookieByName(resp, middleware.AccessCookieName)
	if access == nil || access.Value != "access-token" || !access.HttpOnly || !access.Secure {
		t.Fatalf("unexpected access cookie %+v", access)
	}
	refresh := cookieByName(resp, RefreshCookieName)
	if refresh == nil || refresh.Value != "refresh-token" || refresh.Path != "/api/v1/auth" {
		t.Fatalf("unexpected refresh cookie %+v", refresh)
	}

	var envelope struct {
		Data struct {
			AccessToken  string        `json:"access_token"`
			RefreshToken string        `json:"refresh_token"`
			User         users.UserDTO `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.AccessToken != "access-token" || envelope.Data.User.Email != "ana@example.com" {
		t.Fatalf("unexpected body %+v", envelope.Data)
	}
}

func TestAuthLoginValidation(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"nope"}`))
	resp := httptest.NewRecorder()
	AuthLogin(svc, config.CookieConfig{}, testLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthRefreshFromCookies(t *testing.T) {
	var got auth.RefreshRequest
	svc := &stubAuthService{
		refresh: func(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
			got = req
			pair := testPair()
			return &pair, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessCookieName, Value: "old-access"})
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "old-refresh"})
	resp := httptest.NewRecorder()
	AuthRefresh(svc, config.CookieConfig{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.AccessToken != "old-access" || got.RefreshToken != "old-refresh" {
		t.Fatalf("unexpected refresh request %+v", got)
	}
	if resp.Header().Get("X-PH-Token") != "access-token" {
		t.Fatal("expected rotated token header")
	}
}

func TestAuthRefreshBodyWinsOverCookie(t *testing.T) {
	var got auth.RefreshRequest
	svc := &stubAuthService{
		refresh: func(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
			got = req
			pair := testPair()
			return &pair, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"body-refresh"}`))
	req.Header.Set("Authorization", "Bearer header-access")
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "cookie-refresh"})
	resp := httptest.NewRecorder()
	AuthRefresh(svc, config.CookieConfig{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.AccessToken != "header-access" || got.RefreshToken != "body-refresh" {
		t.Fatalf("unexpected refresh request %+v", got)
	}
}

func TestAuthRefreshRequiresTokens(t *testing.T) {
	svc := &stubAuthService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	resp := httptest.NewRecorder()
	AuthRefresh(svc, config.CookieConfig{}, testLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"r"}`))
	resp = httptest.NewRecorder()
	AuthRefresh(svc, config.CookieConfig{}, testLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutClearsCookies(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer the-token")
	resp := httptest.NewRecorder()
	AuthLogout(svc, config.CookieConfig{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.loggedOut != "the-token" {
		t.Fatalf("expected token revoked, got %q", svc.loggedOut)
	}
	access := cookieByName(resp, middleware.AccessCookieName)
	if access == nil || access.MaxAge >= 0 {
		t.Fatalf("expected access cookie cleared, got %+v", access)
	}
}

func TestAuthMe(t *testing.T) {
	userID := uuid.New()
	svc := &stubAuthService{me: &users.UserDTO{ID: userID, Email: "me@example.com"}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), userID, enums.UserRoleSeller, nil))
	resp := httptest.NewRecorder()
	AuthMe(svc, testLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	resp = httptest.NewRecorder()
	AuthMe(svc, testLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRegisterLogsIn(t *testing.T) {
	reg := &stubRegisterService{}
	svc := &stubAuthService{
		login: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
			return &auth.LoginResponse{TokenPair: testPair(), User: &users.UserDTO{Email: req.Email}}, nil
		},
	}

	body := `{"first_name":"Ana","last_name":"Ruiz","email":"ana@example.com","password":"Secret#123","accept_terms":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthRegister(reg, svc, config.CookieConfig{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if reg.got.Email != "ana@example.com" || !reg.got.AcceptTerms {
		t.Fatalf("unexpected register request %+v", reg.got)
	}
	if cookieByName(resp, middleware.AccessCookieName) == nil {
		t.Fatal("expected session cookie")
	}
}

func TestAuthRegisterSurfacesConflict(t *testing.T) {
	reg := &stubRegisterService{err: pkgerrors.New(pkgerrors.CodeConflict, "email already registered")}
	svc := &stubAuthService{}

	body := `{"first_name":"Ana","last_name":"Ruiz","email":"ana@example.com","password":"Secret#123","accept_terms":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthRegister(reg, svc, config.CookieConfig{}, testLogger()).ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
