package query

import (
	"context"
	"fmt"

	cloudbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/propertyhub-backend/internal/analytics/types"
	"github.com/angelmondragon/propertyhub-backend/pkg/bigquery"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
)

const (
	countSeriesSQL = `
SELECT
  FORMAT_DATE('%%F', DATE_TRUNC(occurred_at, DAY)) AS day,
  COUNT(*) AS value
FROM %s
WHERE %s
  AND event_type = @eventType
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	amountSeriesSQL = `
SELECT
  FORMAT_DATE('%%F', DATE_TRUNC(occurred_at, DAY)) AS day,
  SUM(COALESCE(amount_cents, 0)) AS value
FROM %s
WHERE %s
  AND event_type = @eventType
  AND occurred_at BETWEEN @start AND @end
GROUP BY day
ORDER BY day ASC
`

	topViewedSQL = `
SELECT property_id AS label, COUNT(*) AS value
FROM %s
WHERE %s
  AND event_type = 'presentation_card_viewed'
  AND property_id IS NOT NULL
  AND occurred_at BETWEEN @start AND @end
GROUP BY property_id
ORDER BY value DESC
LIMIT 5
`

	eventsByTypeSQL = `
SELECT event_type AS label, COUNT(*) AS value
FROM %s
WHERE %s
  AND occurred_at BETWEEN @start AND @end
GROUP BY event_type
ORDER BY value DESC
`

	conversionSQL = `
SELECT SAFE_DIVIDE(
  COUNTIF(event_type = 'lead_status_changed' AND to_status = 'won'),
  NULLIF(COUNTIF(event_type = 'lead_registered'), 0)
) AS value
FROM %s
WHERE %s
  AND occurred_at BETWEEN @start AND @end
`
)

// DashboardService provides admin dashboard data from the platform_events table.
type DashboardService interface {
	Query(ctx context.Context, req types.DashboardQueryRequest) (*types.DashboardQueryResponse, error)
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*cloudbigquery.RowIterator, error)
}

type dashboardService struct {
	client   rowQuerier
	tableRef string
}

// NewDashboardService builds a service backed by BigQuery.
func NewDashboardService(client *bigquery.Client, project, dataset, table string) (DashboardService, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if project == "" || dataset == "" || table == "" {
		return nil, fmt.Errorf("project, dataset, and table are required")
	}
	return &dashboardService{
		client:   client,
		tableRef: TableRef(project, dataset, table),
	}, nil
}

// TableRef quotes a fully qualified BigQuery table name.
func TableRef(project, dataset, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", project, dataset, table)
}

func (s *dashboardService) Query(ctx context.Context, req types.DashboardQueryRequest) (*types.DashboardQueryResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	scope := ScopeClause(req)

	leads, err := s.querySeries(ctx, fmt.Sprintf(countSeriesSQL, s.tableRef, scope), s.params(req, "lead_registered"))
	if err != nil {
		return nil, err
	}
	contracts, err := s.querySeries(ctx, fmt.Sprintf(countSeriesSQL, s.tableRef, scope), s.params(req, "contract_signed"))
	if err != nil {
		return nil, err
	}
	commissions, err := s.querySeries(ctx, fmt.Sprintf(amountSeriesSQL, s.tableRef, scope), s.params(req, "commission_generated"))
	if err != nil {
		return nil, err
	}
	payments, err := s.querySeries(ctx, fmt.Sprintf(amountSeriesSQL, s.tableRef, scope), s.params(req, "payment_recorded"))
	if err != nil {
		return nil, err
	}
	topViewed, err := s.queryTopLabels(ctx, fmt.Sprintf(topViewedSQL, s.tableRef, scope), s.params(req, ""))
	if err != nil {
		return nil, err
	}
	byType, err := s.queryTopLabels(ctx, fmt.Sprintf(eventsByTypeSQL, s.tableRef, scope), s.params(req, ""))
	if err != nil {
		return nil, err
	}
	conversion, err := s.queryRatio(ctx, fmt.Sprintf(conversionSQL, s.tableRef, scope), s.params(req, ""))
	if err != nil {
		return nil, err
	}

	return &types.DashboardQueryResponse{
		LeadsSeries:       leads,
		ContractsSeries:   contracts,
		CommissionsSeries: commissions,
		PaymentsSeries:    payments,
		TopViewedCards:    topViewed,
		EventsByType:      byType,
		LeadConversion:    conversion,
	}, nil
}

// ValidateRequest checks the range and the optional agency filter.
func ValidateRequest(req types.DashboardQueryRequest) error {
	if req.Start.IsZero() || req.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if req.End.Before(req.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	if req.AgencyID != "" {
		if _, err := uuid.Parse(req.AgencyID); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid agency id")
		}
	}
	return nil
}

// ScopeClause narrows queries to one agency when requested.
func ScopeClause(req types.DashboardQueryRequest) string {
	if req.AgencyID != "" {
		return "agency_id = @agencyID"
	}
	return "TRUE"
}

func (s *dashboardService) params(req types.DashboardQueryRequest, eventType string) []cloudbigquery.QueryParameter {
	params := []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Start},
		{Name: "end", Value: req.End},
	}
	if req.AgencyID != "" {
		params = append(params, cloudbigquery.QueryParameter{Name: "agencyID", Value: req.AgencyID})
	}
	if eventType != "" {
		params = append(params, cloudbigquery.QueryParameter{Name: "eventType", Value: eventType})
	}
	return params
}

func (s *dashboardService) querySeries(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.TimeSeriesPoint, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}

	points := []types.TimeSeriesPoint{}
	for {
		var row struct {
			Day   string `bigquery:"day"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading series row: %w", err)
		}
		points = append(points, types.TimeSeriesPoint{Date: row.Day, Value: row.Value})
	}
	return points, nil
}

func (s *dashboardService) queryTopLabels(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.LabelValue, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query top labels: %w", err)
	}

	result := []types.LabelValue{}
	for {
		var row struct {
			Label string `bigquery:"label"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading top label row: %w", err)
		}
		result = append(result, types.LabelValue{Label: row.Label, Value: row.Value})
	}
	return result, nil
}

func (s *dashboardService) queryRatio(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (float64, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return 0, fmt.Errorf("query ratio: %w", err)
	}
	var row struct {
		Value cloudbigquery.NullFloat64 `bigquery:"value"`
	}
	if err := iter.Next(&row); err != nil {
		if err == iterator.Done {
			return 0, nil
		}
		return 0, fmt.Errorf("reading ratio row: %w", err)
	}
	if !row.Value.Valid {
		return 0, nil
	}
	return row.Value.Float64, nil
}
