package analytics

import (
	"context"
	"time"

	"github.com/angelmondragon/propertyhub-backend/internal/analytics/types"
)

type testAnalyticsService struct {
	last     types.DashboardQueryRequest
	calls    int
	response *types.DashboardQueryResponse
	err      error
}

func (s *testAnalyticsService) Query(ctx context.Context, req types.DashboardQueryRequest) (*types.DashboardQueryResponse, error) {
	s.last = req
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.response == nil {
		s.response = &types.DashboardQueryResponse{}
	}
	return s.response, nil
}

func (s *testAnalyticsService) period() time.Duration {
	return s.last.End.Sub(s.last.Start)
}
