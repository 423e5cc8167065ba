package apiv1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health handles GET /healthz. The database ping doubles as a readiness
// probe for the store.
func (s *APIV1Service) Health(c echo.Context) error {
	if s.Store != nil {
		if err := s.Store.GetDriver().GetDB().PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}

// GetMetrics handles GET /api/v1/metrics.
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Metrics.Snapshot())
}
