package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/api/responses"
	"github.com/angelmondragon/propertyhub-backend/api/validators"
	"github.com/angelmondragon/propertyhub-backend/internal/offers"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

func offerActor(c caller) offers.Actor {
	return offers.Actor{UserID: c.UserID, Role: c.Role}
}

func MakeOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("offers"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body offers.MakeInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := svc.Make(r.Context(), offerActor(c), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

func ListOffers(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("offers"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var f offers.ListFilter
		if f.Params, err = pageParams(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if f.PropertyID, err = queryUUID(r, "property_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if f.Status, err = queryEnum(r, "status", enums.ParseOfferStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), offerActor(c), f)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return offerAction(svc, logg, func(ctx context.Context, a offers.Actor, id uuid.UUID, r *http.Request) (*offers.OfferDTO, error) {
		return svc.Get(ctx, a, id)
	})
}

func CounterOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return offerAction(svc, logg, func(ctx context.Context, a offers.Actor, id uuid.UUID, r *http.Request) (*offers.OfferDTO, error) {
		var body offers.CounterInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Counter(ctx, a, id, body)
	})
}

// AcceptOffer also rejects the competing open offers on the property.
func AcceptOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return offerAction(svc, logg, func(ctx context.Context, a offers.Actor, id uuid.UUID, r *http.Request) (*offers.OfferDTO, error) {
		return svc.Accept(ctx, a, id)
	})
}

func RejectOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return offerAction(svc, logg, func(ctx context.Context, a offers.Actor, id uuid.UUID, r *http.Request) (*offers.OfferDTO, error) {
		return svc.Reject(ctx, a, id)
	})
}

func WithdrawOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return offerAction(svc, logg, func(ctx context.Context, a offers.Actor, id uuid.UUID, r *http.Request) (*offers.OfferDTO, error) {
		return svc.Withdraw(ctx, a, id)
	})
}

func offerAction(svc offers.Service, logg *logger.Logger, fn func(ctx context.Context, a offers.Actor, id uuid.UUID, r *http.Request) (*offers.OfferDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("offers"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := fn(r.Context(), offerActor(c), id, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}
