package analytics

import (
	"context"
	"fmt"

	"github.com/angelmondragon/propertyhub-backend/internal/analytics/query"
	"github.com/angelmondragon/propertyhub-backend/internal/analytics/types"
	"github.com/angelmondragon/propertyhub-backend/pkg/bigquery"
)

// Service provides analytics reports based on platform events.
type Service interface {
	// Query returns dashboard KPIs for the provided request.
	Query(ctx context.Context, req types.DashboardQueryRequest) (*types.DashboardQueryResponse, error)
}

type service struct {
	dashboard query.DashboardService
}

// NewService builds an analytics service backed by BigQuery.
func NewService(client *bigquery.Client, project, dataset, table string) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}

	dashboard, err := query.NewDashboardService(client, project, dataset, table)
	if err != nil {
		return nil, err
	}

	return &service{dashboard: dashboard}, nil
}

func (s *service) Query(ctx context.Context, req types.DashboardQueryRequest) (*types.DashboardQueryResponse, error) {
	return s.dashboard.Query(ctx, req)
}
