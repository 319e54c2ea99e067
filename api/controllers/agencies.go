package controllers

import (
	"net/http"

	"github.com/angelmondragon/propertyhub-backend/api/responses"
	"github.com/angelmondragon/propertyhub-backend/api/validators"
	"github.com/angelmondragon/propertyhub-backend/internal/agencies"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

func agencyActor(c caller) agencies.Actor {
	return agencies.Actor{UserID: c.UserID, Role: c.Role, AgencyID: c.AgencyID}
}

func AdminCreateAgency(svc agencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("agencies"))
			return
		}
		var body agencies.CreateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agency, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, agency)
	}
}

func AdminListAgencies(svc agencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("agencies"))
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active, err := queryBool(r, "active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), agencies.ListFilter{
			Query:  validators.QueryText(r, "q", 120),
			Active: active,
			Params: page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetAgency serves both admins and the agency's own staff.
func GetAgency(svc agencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("agencies"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "agencyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agency, err := svc.Get(r.Context(), agencyActor(c), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, agency)
	}
}

// MyAgency resolves the caller's own agency for the external portal.
func MyAgency(svc agencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("agencies"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if c.AgencyID == nil {
			responses.WriteError(r.Context(), logg, w, errAgencyRequired)
			return
		}
		agency, err := svc.Get(r.Context(), agencyActor(c), *c.AgencyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staff, err := svc.Staff(r.Context(), agencyActor(c), *c.AgencyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"agency": agency, "staff": staff})
	}
}

func AgencyStaff(svc agencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("agencies"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "agencyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staff, err := svc.Staff(r.Context(), agencyActor(c), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": staff})
	}
}

func AdminUpdateAgency(svc agencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("agencies"))
			return
		}
		id, err := pathUUID(r, "agencyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body agencies.UpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agency, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, agency)
	}
}

// AdminSetAgencyActive toggles an agency. Deactivating it signs out its staff.
func AdminSetAgencyActive(svc agencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("agencies"))
			return
		}
		id, err := pathUUID(r, "agencyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body activeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agency, err := svc.SetActive(r.Context(), id, *body.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, agency)
	}
}

func AdminDeleteAgency(svc agencies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("agencies"))
			return
		}
		id, err := pathUUID(r, "agencyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
