package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/api/responses"
	"github.com/angelmondragon/propertyhub-backend/api/validators"
	"github.com/angelmondragon/propertyhub-backend/internal/contracts"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

func contractActor(c caller) contracts.Actor {
	return contracts.Actor{UserID: c.UserID, Role: c.Role}
}

func CreateContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("contracts"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body contracts.CreateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contract, err := svc.Create(r.Context(), contractActor(c), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contract)
	}
}

func ListContracts(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("contracts"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var f contracts.ListFilter
		if f.Params, err = pageParams(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if f.PropertyID, err = queryUUID(r, "property_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if f.Status, err = queryEnum(r, "status", enums.ParseContractStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), contractActor(c), f)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return contractAction(svc, logg, func(ctx context.Context, a contracts.Actor, id uuid.UUID) (*contracts.ContractDTO, error) {
		return svc.Get(ctx, a, id)
	})
}

func SendContractForSignature(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return contractAction(svc, logg, func(ctx context.Context, a contracts.Actor, id uuid.UUID) (*contracts.ContractDTO, error) {
		return svc.SendForSignature(ctx, a, id)
	})
}

// SignContract records the signature and generates the commission records.
func SignContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return contractAction(svc, logg, func(ctx context.Context, a contracts.Actor, id uuid.UUID) (*contracts.ContractDTO, error) {
		return svc.Sign(ctx, a, id)
	})
}

func CancelContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return contractAction(svc, logg, func(ctx context.Context, a contracts.Actor, id uuid.UUID) (*contracts.ContractDTO, error) {
		return svc.Cancel(ctx, a, id)
	})
}

func CompleteContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return contractAction(svc, logg, func(ctx context.Context, a contracts.Actor, id uuid.UUID) (*contracts.ContractDTO, error) {
		return svc.Complete(ctx, a, id)
	})
}

// RenderContractPDF renders the contract, stores it and returns a download URL.
func RenderContractPDF(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("contracts"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := svc.RenderPDF(r.Context(), contractActor(c), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}

func contractAction(svc contracts.Service, logg *logger.Logger, fn func(ctx context.Context, a contracts.Actor, id uuid.UUID) (*contracts.ContractDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("contracts"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contract, err := fn(r.Context(), contractActor(c), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contract)
	}
}
