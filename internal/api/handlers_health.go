// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HandleHealth returns server health status with library and cache sizes.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"version":         h.version,
		"routes":          len(h.store.List()),
		"holdTypes":       len(h.types.List()),
		"cachedTemplates": h.templates.Len(),
	})
}
