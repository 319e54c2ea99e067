package controllers

import (
	"net/http"

	"github.com/angelmondragon/propertyhub-backend/api/middleware"
	"github.com/angelmondragon/propertyhub-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// ScopedPing echoes the portal scope and the caller seen by the auth stack.
func ScopedPing(scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": scope, "status": "ok"}
		if role := middleware.RoleFromContext(r.Context()); role != "" {
			payload["role"] = role
		}
		if agency := middleware.AgencyIDFromContext(r.Context()); agency != "" {
			payload["agency_id"] = agency
		}
		responses.WriteSuccess(w, payload)
	}
}
