// Package render draws a composed wall as one SVG document in millimeters.
package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	svg "github.com/ajstarks/svgo/float"
	"github.com/labstack/gommon/log"
	"github.com/speedwall-planner/backend/internal/grid"
	"github.com/speedwall-planner/backend/internal/holdsvg"
	"github.com/speedwall-planner/backend/internal/holdtype"
	"github.com/speedwall-planner/backend/internal/models"
	"github.com/speedwall-planner/backend/internal/wallerr"
)

// Layer group ids.
const (
	LayerGrid       = "grid"
	LayerZones      = "smearing-zones"
	LayerArrows     = "arrows"
	LayerHolds      = "holds"
	LayerHoldLabels = "hold-labels"
)

// Options selects optional layers and styling.
type Options struct {
	// DisplayColumns is the column system used for margin labels.
	DisplayColumns grid.ColumnSystem `json:"displayColumns,omitempty" yaml:"displayColumns,omitempty"`
	ShowGrid       bool              `json:"showGrid" yaml:"showGrid"`
	ShowZones      bool              `json:"showZones" yaml:"showZones"`
	ShowArrows     bool              `json:"showArrows" yaml:"showArrows"`
	Background     string            `json:"background,omitempty" yaml:"background,omitempty"`
	// LabelFontSize sizes fallback labels and, when positive, overrides
	// template label sizes.
	LabelFontSize float64 `json:"labelFontSize,omitempty" yaml:"labelFontSize,omitempty"`
}

// DefaultOptions enables every layer.
func DefaultOptions() Options {
	return Options{
		DisplayColumns: grid.CanonicalColumns,
		ShowGrid:       true,
		ShowZones:      true,
		ShowArrows:     true,
		Background:     "#ffffff",
	}
}

// Validate checks option values.
func (o Options) Validate() error {
	if o.DisplayColumns != "" {
		if err := o.DisplayColumns.Validate(); err != nil {
			return err
		}
	}
	if o.LabelFontSize < 0 {
		return wallerr.Validationf(fmt.Sprint(o.LabelFontSize), "label font size must not be negative")
	}
	return nil
}

// Renderer draws compositions using a hold type registry and a template cache.
type Renderer struct {
	types     *holdtype.Registry
	templates *holdsvg.Cache
}

// New creates a renderer.
func New(types *holdtype.Registry, templates *holdsvg.Cache) *Renderer {
	return &Renderer{types: types, templates: templates}
}

// Render writes the SVG document for comp to w. Nothing is written when any
// hold fails to resolve.
func (r *Renderer) Render(w io.Writer, comp *models.Composition, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.DisplayColumns == "" {
		opts.DisplayColumns = grid.CanonicalColumns
	}
	if comp.Wall.Lanes < 1 || comp.Wall.PanelsHeight < 1 {
		return wallerr.Validationf(fmt.Sprintf("%dx%d", comp.Wall.Lanes, comp.Wall.PanelsHeight),
			"wall must have at least one lane and one panel")
	}

	f := newFrame(comp.Wall)
	holds, err := r.placeHolds(f, comp.Holds, opts)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startunit(f.width, f.height, "mm",
		fmt.Sprintf(`viewBox="0 0 %s %s"`, num(f.width), num(f.height)))

	if opts.Background != "" {
		canvas.Rect(0, 0, f.width, f.height, `class="background"`, "fill:"+attr(opts.Background))
	}
	if opts.ShowGrid {
		if err := drawGrid(canvas, f, comp.Wall, opts.DisplayColumns); err != nil {
			return err
		}
	}
	if opts.ShowZones {
		drawZones(canvas, f, comp.Zones)
	}
	if opts.ShowArrows {
		drawArrows(canvas, holds)
	}
	drawHolds(canvas, holds)
	drawHoldLabels(canvas, holds, opts)
	canvas.End()

	log.Debugf("render: %d holds, %d zones on %dx%d wall (%d bytes)",
		len(comp.Holds), len(comp.Zones), comp.Wall.Lanes, comp.Wall.PanelsHeight, buf.Len())
	_, err = w.Write(buf.Bytes())
	return err
}

// attr escapes a value for use inside an attribute or style string.
func attr(s string) string {
	return html.EscapeString(s)
}

// num formats v with at most two decimals.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" {
		return "0"
	}
	return s
}
