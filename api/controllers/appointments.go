package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/api/responses"
	"github.com/angelmondragon/propertyhub-backend/api/validators"
	"github.com/angelmondragon/propertyhub-backend/internal/appointments"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

func appointmentActor(c caller) appointments.Actor {
	return appointments.Actor{UserID: c.UserID, Role: c.Role}
}

type assignConciergeBody struct {
	ConciergeID uuid.UUID `json:"concierge_id" validate:"required"`
}

func ScheduleAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("appointments"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body appointments.ScheduleInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		appt, err := svc.Schedule(r.Context(), appointmentActor(c), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, appt)
	}
}

func GetAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return appointmentAction(svc, logg, func(ctx context.Context, a appointments.Actor, id uuid.UUID, r *http.Request) (*appointments.AppointmentDTO, error) {
		return svc.Get(ctx, a, id)
	})
}

// ListAppointments filters by property, concierge, client, status and a
// from/to window on scheduled_at.
func ListAppointments(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("appointments"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		f, err := appointmentFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), appointmentActor(c), f)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func appointmentFilter(r *http.Request) (appointments.ListFilter, error) {
	var f appointments.ListFilter
	var err error
	if f.Params, err = pageParams(r); err != nil {
		return f, err
	}
	if f.PropertyID, err = queryUUID(r, "property_id"); err != nil {
		return f, err
	}
	if f.ConciergeID, err = queryUUID(r, "concierge_id"); err != nil {
		return f, err
	}
	if f.ClientID, err = queryUUID(r, "client_id"); err != nil {
		return f, err
	}
	if f.Status, err = queryEnum(r, "status", enums.ParseAppointmentStatus); err != nil {
		return f, err
	}
	if f.From, err = queryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && !f.To.After(*f.From) {
		return f, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	return f, nil
}

func ConfirmAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return appointmentAction(svc, logg, func(ctx context.Context, a appointments.Actor, id uuid.UUID, r *http.Request) (*appointments.AppointmentDTO, error) {
		return svc.Confirm(ctx, a, id)
	})
}

func CompleteAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return appointmentAction(svc, logg, func(ctx context.Context, a appointments.Actor, id uuid.UUID, r *http.Request) (*appointments.AppointmentDTO, error) {
		return svc.Complete(ctx, a, id)
	})
}

func NoShowAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return appointmentAction(svc, logg, func(ctx context.Context, a appointments.Actor, id uuid.UUID, r *http.Request) (*appointments.AppointmentDTO, error) {
		return svc.MarkNoShow(ctx, a, id)
	})
}

func CancelAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return appointmentAction(svc, logg, func(ctx context.Context, a appointments.Actor, id uuid.UUID, r *http.Request) (*appointments.AppointmentDTO, error) {
		var body appointments.StatusInput
		if err := decodeOptionalBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Cancel(ctx, a, id, body)
	})
}

func RescheduleAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return appointmentAction(svc, logg, func(ctx context.Context, a appointments.Actor, id uuid.UUID, r *http.Request) (*appointments.AppointmentDTO, error) {
		var body appointments.RescheduleInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Reschedule(ctx, a, id, body)
	})
}

func AssignAppointmentConcierge(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return appointmentAction(svc, logg, func(ctx context.Context, a appointments.Actor, id uuid.UUID, r *http.Request) (*appointments.AppointmentDTO, error) {
		var body assignConciergeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AssignConcierge(ctx, a, id, body.ConciergeID)
	})
}

type appointmentFn func(ctx context.Context, a appointments.Actor, id uuid.UUID, r *http.Request) (*appointments.AppointmentDTO, error)

// appointmentAction resolves the caller and the {appointmentId} parameter
// before handing over to fn.
func appointmentAction(svc appointments.Service, logg *logger.Logger, fn appointmentFn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("appointments"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "appointmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		appt, err := fn(r.Context(), appointmentActor(c), id, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, appt)
	}
}
