package controllers

import (
	"net/http"

	"github.com/angelmondragon/propertyhub-backend/api/responses"
	"github.com/angelmondragon/propertyhub-backend/api/validators"
	"github.com/angelmondragon/propertyhub-backend/internal/commissions"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

func CreateCommissionConfig(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("commissions"))
			return
		}
		c, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body commissions.CreateConfigInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.CreateConfig(r.Context(), c.UserID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cfg)
	}
}

// ListCommissionConfigs filters by tier, operation, target and an optional
// active_at instant.
func ListCommissionConfigs(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("commissions"))
			return
		}
		f, err := commissionFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListConfigs(r.Context(), f)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

func commissionFilter(r *http.Request) (commissions.ListFilter, error) {
	var f commissions.ListFilter
	tier, err := queryEnum(r, "tier", enums.ParseCommissionTier)
	if err != nil {
		return f, err
	}
	if tier != nil {
		f.Tier = *tier
	}
	op, err := queryEnum(r, "operation_type", enums.ParseDealType)
	if err != nil {
		return f, err
	}
	if op != nil {
		f.OperationType = *op
	}
	if f.Role, err = queryEnum(r, "role", enums.ParseUserRole); err != nil {
		return f, err
	}
	if f.UserID, err = queryUUID(r, "user_id"); err != nil {
		return f, err
	}
	if f.LeadID, err = queryUUID(r, "lead_id"); err != nil {
		return f, err
	}
	if f.ActiveAt, err = queryTime(r, "active_at"); err != nil {
		return f, err
	}
	return f, nil
}

func UpdateCommissionConfig(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("commissions"))
			return
		}
		tier, err := pathTier(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "configId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body commissions.UpdateConfigInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.UpdateConfig(r.Context(), tier, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

func DeleteCommissionConfig(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("commissions"))
			return
		}
		tier, err := pathTier(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "configId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteConfig(r.Context(), tier, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// PreviewCommission prices a hypothetical commission without persisting it.
func PreviewCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("commissions"))
			return
		}
		var body commissions.PreviewInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Preview(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func pathTier(r *http.Request) (enums.CommissionTier, error) {
	tier, err := enums.ParseCommissionTier(chiParam(r, "tier"))
	if err != nil {
		return "", validationErr(err, "tier")
	}
	return tier, nil
}
