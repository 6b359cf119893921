package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "Jyotish/pkg/http"
)

// HealthChecker is anything /health should probe.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// SystemHandler serves the service banner and health probe.
type SystemHandler struct {
	version string
	backend string
	checks  map[string]HealthChecker
}

func NewSystemHandler(version, backend string, checks map[string]HealthChecker) *SystemHandler {
	return &SystemHandler{version: version, backend: backend, checks: checks}
}

func (h *SystemHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Info)
	e.GET("/health", h.Health)
}

func (h *SystemHandler) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "online",
		"message": "Vedic Astrology API is running",
		"version": h.version,
	})
}

// Health answers 200 when every dependency responds, 503 otherwise.
func (h *SystemHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.checks))
	status := http.StatusOK
	for name, chk := range h.checks {
		if chk == nil {
			continue
		}
		if err := chk.Health(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	return xhttp.DataResponse(c, status, map[string]interface{}{
		"status":       "online",
		"version":      h.version,
		"backend":      h.backend,
		"dependencies": deps,
	})
}
