// routes.go - Route registration helpers
package api

import "github.com/labstack/echo/v4"

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Library LibraryHandler
	Wall    WallHandler
	Preview PreviewHandler
}

// NewHandlers wires every handler interface to h.
func NewHandlers(h *Handler) *Handlers {
	return &Handlers{
		Health:  h,
		Library: h,
		Wall:    h,
		Preview: NewWebSocketHandler(h),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	api := e.Group("/api")

	// Health check
	api.GET("/health", handlers.Health.HandleHealth)

	// Library
	api.GET("/hold-types", handlers.Library.HandleHoldTypes)
	api.GET("/routes", handlers.Library.HandleListRoutes)
	api.POST("/routes", handlers.Library.HandleImportRoutes)
	api.GET("/routes/:name", handlers.Library.HandleGetRoute)
	api.DELETE("/routes/:name", handlers.Library.HandleDeleteRoute)

	// Composition and rendering
	api.POST("/compose", handlers.Wall.HandleCompose)
	api.POST("/render", handlers.Wall.HandleRender)
	api.DELETE("/templates/cache", handlers.Wall.HandleClearTemplateCache)

	// Live preview
	api.GET("/ws/preview", handlers.Preview.HandleWebSocket)
}

// SetupMiddleware installs the structured error handler.
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
}
