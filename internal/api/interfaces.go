// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import "github.com/labstack/echo/v4"

// LibraryHandler handles the reference route library and hold type registry
type LibraryHandler interface {
	HandleHoldTypes(c echo.Context) error
	HandleListRoutes(c echo.Context) error
	HandleGetRoute(c echo.Context) error
	HandleImportRoutes(c echo.Context) error
	HandleDeleteRoute(c echo.Context) error
}

// WallHandler composes and renders wall configurations
type WallHandler interface {
	HandleCompose(c echo.Context) error
	HandleRender(c echo.Context) error
	HandleClearTemplateCache(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// PreviewHandler serves the live preview socket
type PreviewHandler interface {
	HandleWebSocket(c echo.Context) error
}

var (
	_ LibraryHandler = (*Handler)(nil)
	_ WallHandler    = (*Handler)(nil)
	_ HealthHandler  = (*Handler)(nil)
	_ PreviewHandler = (*WebSocketHandler)(nil)
)
