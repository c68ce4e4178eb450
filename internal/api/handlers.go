package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/speedwall-planner/backend/internal/composer"
	"github.com/speedwall-planner/backend/internal/grid"
	"github.com/speedwall-planner/backend/internal/holdsvg"
	"github.com/speedwall-planner/backend/internal/holdtype"
	"github.com/speedwall-planner/backend/internal/models"
	"github.com/speedwall-planner/backend/internal/parser"
	"github.com/speedwall-planner/backend/internal/render"
	"github.com/speedwall-planner/backend/internal/rotation"
	"github.com/speedwall-planner/backend/internal/storage"
)

// HeaderRenderID carries the id assigned to each render.
const HeaderRenderID = "X-Render-Id"

// Handler handles API requests.
type Handler struct {
	store     storage.Store
	types     *holdtype.Registry
	templates *holdsvg.Cache
	renderer  *render.Renderer
	defaults  render.Options
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(store storage.Store, types *holdtype.Registry, templates *holdsvg.Cache, defaults render.Options, version string) *Handler {
	return &Handler{
		store:     store,
		types:     types,
		templates: templates,
		renderer:  render.New(types, templates),
		defaults:  defaults,
		version:   version,
	}
}

// ComposeRequest is the body of compose and render requests: a wall
// configuration, optional inline reference routes that shadow library routes
// of the same name, and optional render options.
type ComposeRequest struct {
	models.Config   `yaml:",inline"`
	ReferenceRoutes models.RouteSet `json:"referenceRoutes,omitempty" yaml:"referenceRoutes,omitempty" msgpack:"referenceRoutes,omitempty"`
	Render          *render.Options `json:"render,omitempty" yaml:"render,omitempty" msgpack:"render,omitempty"`
}

// PlacedHold is a parsed library hold with its absolute insert position.
// Descriptor is the hold re-formatted in the route's column system.
type PlacedHold struct {
	Number     int         `json:"number"`
	Descriptor string      `json:"descriptor"`
	Hold       models.Hold `json:"hold"`
	Point      grid.Point  `json:"point"`
	Target     grid.Point  `json:"target"`
	Rotation   float64     `json:"rotation"`
}

// decodeBody decodes the request body with the codec matching its
// Content-Type; JSON when none is given.
func decodeBody(c echo.Context, v any) error {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	codec, err := parser.GetGlobalRegistry().FindCodec(contentType)
	if err != nil {
		return &APIError{Status: http.StatusUnsupportedMediaType, Code: "UNSUPPORTED_MEDIA_TYPE", Message: err.Error()}
	}
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read request body", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NewBadRequestError("request body is empty", nil)
	}
	if err := codec.Decode(data, v); err != nil {
		return NewBadRequestError("invalid "+codec.Name()+" body", err)
	}
	return nil
}

func (h *Handler) compose(req *ComposeRequest) (*models.Composition, error) {
	routes := storage.Merge(h.store.Snapshot(), req.ReferenceRoutes)
	return composer.Compose(req.Config, routes)
}

// newComposeRequest seeds the render options with the server defaults so that
// a partial "render" object only overrides the keys it names.
func (h *Handler) newComposeRequest() *ComposeRequest {
	opts := h.defaults
	return &ComposeRequest{Render: &opts}
}

func (h *Handler) renderOptions(req *ComposeRequest) render.Options {
	if req.Render != nil {
		return *req.Render
	}
	return h.defaults
}

// HandleHoldTypes lists the hold type registry.
func (h *Handler) HandleHoldTypes(c echo.Context) error {
	return c.JSON(http.StatusOK, h.types.List())
}

// HandleListRoutes lists the route library.
func (h *Handler) HandleListRoutes(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.List())
}

// HandleGetRoute returns one reference route with its parsed holds.
func (h *Handler) HandleGetRoute(c echo.Context) error {
	name := c.Param("name")
	route, info, err := h.store.Get(name)
	if err != nil {
		return err
	}
	holds, err := composer.RouteHolds(route)
	if err != nil {
		return err
	}
	sys, err := grid.ParseColumnSystem(string(route.Columns))
	if err != nil {
		return err
	}

	placed := make([]PlacedHold, 0, len(holds))
	for i, hold := range holds {
		p := PlacedHold{Number: i + 1, Hold: hold}
		if p.Descriptor, err = parser.FormatHold(hold, sys); err != nil {
			return err
		}
		if p.Point, err = grid.InsertPoint(hold.Panel, hold.Position, 0); err != nil {
			return err
		}
		if p.Target, err = grid.InsertPoint(hold.OrientationPanel, hold.Orientation, 0); err != nil {
			return err
		}
		spec, err := h.types.Lookup(hold.Type)
		if err != nil {
			return err
		}
		p.Rotation, err = rotation.HoldRotation(hold.Panel, hold.Position, hold.OrientationPanel, hold.Orientation, spec.DefaultOrientation, 0)
		if err != nil {
			return err
		}
		placed = append(placed, p)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"info":  info,
		"route": route,
		"holds": placed,
	})
}

// HandleImportRoutes imports a route set (YAML, JSON or MessagePack).
func (h *Handler) HandleImportRoutes(c echo.Context) error {
	var routes models.RouteSet
	if err := decodeBody(c, &routes); err != nil {
		return err
	}
	revision, err := h.store.Import(routes, storage.SourceAPI)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(routes))
	for name := range routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"revision": revision,
		"routes":   names,
	})
}

// HandleDeleteRoute removes a route from the library.
func (h *Handler) HandleDeleteRoute(c echo.Context) error {
	name := c.Param("name")
	if _, _, err := h.store.Get(name); err != nil {
		return err
	}
	if err := h.store.Delete(name); err != nil {
		return NewInternalError("failed to delete route", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleCompose composes a configuration and returns the composed holds and
// smearing zones. The format query parameter selects any registered codec by
// name; JSON when absent.
func (h *Handler) HandleCompose(c echo.Context) error {
	req := h.newComposeRequest()
	if err := decodeBody(c, req); err != nil {
		return err
	}
	comp, err := h.compose(req)
	if err != nil {
		return err
	}
	log.Debugf("api: composed %d holds, %d zones", len(comp.Holds), len(comp.Zones))

	format := strings.TrimSpace(c.QueryParam("format"))
	if format == "" {
		return c.JSON(http.StatusOK, comp)
	}
	codec, err := parser.GetGlobalRegistry().GetCodecByName(format)
	if err != nil {
		return NewBadRequestError("unsupported format "+format, err)
	}
	data, err := codec.Encode(comp)
	if err != nil {
		return NewInternalError("failed to encode "+codec.Name(), err)
	}
	return c.Blob(http.StatusOK, codec.ContentType(), data)
}

// HandleRender composes a configuration and returns the wall SVG.
func (h *Handler) HandleRender(c echo.Context) error {
	req := h.newComposeRequest()
	if err := decodeBody(c, req); err != nil {
		return err
	}
	svg, _, err := h.renderSVG(c.Request().Context(), req)
	if err != nil {
		return err
	}
	id := uuid.New().String()
	log.Debugf("api: render %s: %d bytes", id, len(svg))
	c.Response().Header().Set(HeaderRenderID, id)
	return c.Blob(http.StatusOK, "image/svg+xml", svg)
}

// renderSVG composes and renders req, giving up between the two steps once
// ctx is done.
func (h *Handler) renderSVG(ctx context.Context, req *ComposeRequest) ([]byte, *models.Composition, error) {
	comp, err := h.compose(req)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, comp, h.renderOptions(req)); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), comp, nil
}

// HandleClearTemplateCache drops every parsed hold template.
func (h *Handler) HandleClearTemplateCache(c echo.Context) error {
	n := h.templates.Len()
	h.templates.Clear()
	log.Infof("api: cleared %d cached templates", n)
	return c.JSON(http.StatusOK, map[string]int{"cleared": n})
}
