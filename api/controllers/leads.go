package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/api/responses"
	"github.com/angelmondragon/propertyhub-backend/api/validators"
	"github.com/angelmondragon/propertyhub-backend/internal/leads"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

func leadActor(c caller) leads.Actor {
	return leads.Actor{UserID: c.UserID, Role: c.Role, AgencyID: c.AgencyID}
}

type assignLeadBody struct {
	AssigneeID uuid.UUID `json:"assignee_id" validate:"required"`
}

// RegisterLead is shared by staff and the external agent portal; the service
// stamps the caller's agency on external registrations.
func RegisterLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("leads"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body leads.RegisterInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lead, err := svc.Register(r.Context(), leadActor(c), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, lead)
	}
}

func ListLeads(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("leads"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		f, err := leadFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), leadActor(c), f)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func leadFilter(r *http.Request) (leads.ListFilter, error) {
	var f leads.ListFilter
	var err error
	if f.Params, err = pageParams(r); err != nil {
		return f, err
	}
	if f.Status, err = queryEnum(r, "status", enums.ParseLeadStatus); err != nil {
		return f, err
	}
	if f.OperationType, err = queryEnum(r, "operation_type", enums.ParseDealType); err != nil {
		return f, err
	}
	if f.AssignedToID, err = queryUUID(r, "assigned_to_id"); err != nil {
		return f, err
	}
	if f.AgencyID, err = queryUUID(r, "agency_id"); err != nil {
		return f, err
	}
	f.Query = validators.QueryText(r, "q", 120)
	return f, nil
}

func GetLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return leadAction(svc, logg, func(ctx context.Context, a leads.Actor, id uuid.UUID, r *http.Request) (*leads.LeadDTO, error) {
		return svc.Get(ctx, a, id)
	})
}

// AdvanceLead moves a lead one step along its pipeline (or to lost).
func AdvanceLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return leadAction(svc, logg, func(ctx context.Context, a leads.Actor, id uuid.UUID, r *http.Request) (*leads.LeadDTO, error) {
		var body leads.AdvanceInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Advance(ctx, a, id, body)
	})
}

func AssignLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return leadAction(svc, logg, func(ctx context.Context, a leads.Actor, id uuid.UUID, r *http.Request) (*leads.LeadDTO, error) {
		var body assignLeadBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Assign(ctx, a, id, body.AssigneeID)
	})
}

func leadAction(svc leads.Service, logg *logger.Logger, fn func(ctx context.Context, a leads.Actor, id uuid.UUID, r *http.Request) (*leads.LeadDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("leads"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lead, err := fn(r.Context(), leadActor(c), id, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}
