package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/voicecal/server/internal/observability"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64                                              `json:"total_requests"`
	SuccessRate   float64                                            `json:"success_rate"`
	ErrorCount    int64                                              `json:"error_count"`
	Operations    map[string]*observability.OperationMetricsSnapshot `json:"operations"`
}

// GetMetricsOverview returns the pipeline counters since process start.
// GET /api/v1/system/metrics/overview
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snap := s.Metrics.Snapshot()
	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		TotalRequests: snap.RequestTotal,
		SuccessRate:   snap.SuccessRate(),
		ErrorCount:    snap.RequestFailed,
		Operations:    snap.Operations,
	})
}
