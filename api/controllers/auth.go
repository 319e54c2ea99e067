package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/propertyhub-backend/api/middleware"
	"github.com/angelmondragon/propertyhub-backend/api/responses"
	"github.com/angelmondragon/propertyhub-backend/api/validators"
	"github.com/angelmondragon/propertyhub-backend/internal/auth"
	"github.com/angelmondragon/propertyhub-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

// RefreshCookieName holds the refresh token for browser clients. It is scoped
// to the auth routes so it never rides along on ordinary API calls.
const (
	RefreshCookieName = "ph_refresh"
	refreshCookiePath = "/api/v1/auth"
)

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

func setSessionCookies(w http.ResponseWriter, cfg config.CookieConfig, pair auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.RefreshToken,
		Path:     refreshCookiePath,
		Domain:   cfg.Domain,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookies(w http.ResponseWriter, cfg config.CookieConfig) {
	for _, c := range []struct{ name, path string }{
		{middleware.AccessCookieName, "/"},
		{RefreshCookieName, refreshCookiePath},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     c.path,
			Domain:   cfg.Domain,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.Secure,
		})
	}
}

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return login(svc, cookies, logg, false)
}

// AdminAuthLogin only admits admins.
func AdminAuthLogin(svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return login(svc, cookies, logg, true)
}

func login(svc auth.Service, cookies config.CookieConfig, logg *logger.Logger, admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			result *auth.LoginResponse
			err    error
		)
		if admin {
			result, err = svc.AdminLogin(r.Context(), body)
		} else {
			result, err = svc.Login(r.Context(), body)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookies(w, cookies, result.TokenPair)
		w.Header().Set("X-PH-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AuthRefresh rotates the refresh session. Both tokens may come from the
// body/header or from the session cookies.
func AuthRefresh(svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		var body refreshBody
		if err := decodeOptionalBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refreshToken := strings.TrimSpace(body.RefreshToken)
		if refreshToken == "" {
			if c, err := r.Cookie(RefreshCookieName); err == nil {
				refreshToken = strings.TrimSpace(c.Value)
			}
		}
		if refreshToken == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "refresh_token is required").
				WithDetails(map[string]any{"refresh_token": "is required"}))
			return
		}

		accessToken := middleware.AccessToken(r)
		if accessToken == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		pair, err := svc.Refresh(r.Context(), auth.RefreshRequest{AccessToken: accessToken, RefreshToken: refreshToken})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookies(w, cookies, *pair)
		w.Header().Set("X-PH-Token", pair.AccessToken)
		responses.WriteSuccess(w, pair)
	}
}

// AuthLogout revokes the session tied to the presented access token.
func AuthLogout(svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		token := middleware.AccessToken(r)
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		if err := svc.Logout(r.Context(), token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		clearSessionCookies(w, cookies)
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthMe returns the account behind the access token.
func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Me(r.Context(), c.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// AuthRegister signs up a client and logs them in.
func AuthRegister(reg auth.RegisterService, svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := reg.Register(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), auth.LoginRequest{Email: body.Email, Password: body.Password})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookies(w, cookies, result.TokenPair)
		w.Header().Set("X-PH-Token", result.AccessToken)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AdminAuthRegister bootstraps the first admin account.
func AdminAuthRegister(reg auth.AdminRegisterService, svc auth.Service, cookies config.CookieConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		var body auth.AdminRegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := reg.Register(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdminLogin(r.Context(), auth.LoginRequest{Email: body.Email, Password: body.Password})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookies(w, cookies, result.TokenPair)
		w.Header().Set("X-PH-Token", result.AccessToken)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
