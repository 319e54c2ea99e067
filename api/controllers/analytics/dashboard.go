package analytics

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/api/responses"
	"github.com/angelmondragon/propertyhub-backend/internal/analytics"
	"github.com/angelmondragon/propertyhub-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

// Dashboard serves the admin KPI dashboard. An optional agency_id narrows
// every series to one external agency.
func Dashboard(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if service == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "analytics not configured"))
			return
		}

		start, end, err := resolveAnalyticsRange(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		req := types.DashboardQueryRequest{Start: start, End: end}
		if raw := strings.TrimSpace(r.URL.Query().Get("agency_id")); raw != "" {
			if _, err := uuid.Parse(raw); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid agency_id"))
				return
			}
			req.AgencyID = raw
		}

		result, err := service.Query(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
