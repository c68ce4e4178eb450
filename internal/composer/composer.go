// Package composer builds the holds and smearing zones shown on a wall from
// reference routes and route segments.
//
// A segment picks an inclusive hold range from a reference route, drops
// excluded holds, optionally shifts everything so the first included hold
// lands on an anchor insert, and resolves color and scale. Composing a list of
// segments numbers the resulting holds sequentially from 1. Reference routes
// are never modified; every call allocates fresh output.
package composer

import (
	"fmt"
	"math"

	"github.com/speedwall-planner/backend/internal/grid"
	"github.com/speedwall-planner/backend/internal/holdtype"
	"github.com/speedwall-planner/backend/internal/models"
	"github.com/speedwall-planner/backend/internal/parser"
	"github.com/speedwall-planner/backend/internal/wallerr"
)

// RouteHolds parses every descriptor of route in its declared column system.
// The route's holdScales are checked as well.
func RouteHolds(route models.ReferenceRoute) ([]models.Hold, error) {
	sys, err := grid.ParseColumnSystem(string(route.Columns))
	if err != nil {
		return nil, err
	}
	if _, err := routeScales(route); err != nil {
		return nil, err
	}
	holds := make([]models.Hold, 0, len(route.Holds))
	for i, desc := range route.Holds {
		h, err := parser.ParseHold(desc, sys)
		if err != nil {
			return nil, fmt.Errorf("hold %d: %w", i+1, err)
		}
		holds = append(holds, h)
	}
	return holds, nil
}

// routeScales returns the route's per-type scales keyed by normalized tag.
func routeScales(route models.ReferenceRoute) (map[string]float64, error) {
	scales := make(map[string]float64, len(route.HoldScales))
	for tag, v := range route.HoldScales {
		t, err := holdtype.NormalizeTag(tag)
		if err != nil {
			return nil, fmt.Errorf("holdScales: %w", err)
		}
		if !finite(v) || v <= 0 {
			return nil, wallerr.Validationf(fmt.Sprint(v), "holdScales: scale %v for %s must be a positive number", v, tag)
		}
		scales[t] = v
	}
	return scales, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// selection is a resolved segment: the parsed source route, the inclusive
// 1-based range and exclusions, and the shared anchor offset.
type selection struct {
	name     string
	route    models.ReferenceRoute
	system   grid.ColumnSystem
	holds    []models.Hold
	scales   map[string]float64
	from, to int
	excluded map[int]bool
	offset   *grid.Point
	color    string
	lane     int
}

func (s *selection) included(i int) bool {
	return i >= s.from && i <= s.to && !s.excluded[i]
}

func lookupRoute(name string, routes models.RouteSet) (models.ReferenceRoute, error) {
	route, ok := routes[name]
	if !ok {
		return models.ReferenceRoute{}, wallerr.Lookupf(name, "unknown route %q", name)
	}
	return route, nil
}

// resolveRef turns a hold reference into a 1-based index. Labels resolve to
// the first hold carrying them.
func resolveRef(ref models.HoldRef, holds []models.Hold, routeName string) (int, error) {
	if !ref.IsLabel() {
		return ref.Index, nil
	}
	for i, h := range holds {
		if h.Label == ref.Label {
			return i + 1, nil
		}
	}
	return 0, wallerr.Lookupf(ref.Label, "route %q has no hold labeled %q", routeName, ref.Label)
}

func selectSegment(seg models.RouteSegment, routes models.RouteSet) (*selection, error) {
	route, err := lookupRoute(seg.Source, routes)
	if err != nil {
		return nil, err
	}
	sys, err := grid.ParseColumnSystem(string(route.Columns))
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", seg.Source, err)
	}
	holds, err := RouteHolds(route)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", seg.Source, err)
	}
	scales, err := routeScales(route)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", seg.Source, err)
	}

	sel := &selection{
		name:     seg.Source,
		route:    route,
		system:   sys,
		holds:    holds,
		scales:   scales,
		from:     1,
		to:       len(holds),
		excluded: map[int]bool{},
		color:    route.Color,
		lane:     seg.LaneOffset,
	}
	if seg.Color != "" {
		sel.color = seg.Color
	}

	if seg.FromHold != nil {
		if sel.from, err = resolveRef(*seg.FromHold, holds, seg.Source); err != nil {
			return nil, err
		}
	}
	if seg.ToHold != nil {
		if sel.to, err = resolveRef(*seg.ToHold, holds, seg.Source); err != nil {
			return nil, err
		}
	}
	if len(holds) == 0 && seg.FromHold == nil && seg.ToHold == nil {
		return sel, nil
	}
	if sel.from < 1 || sel.to > len(holds) || sel.from > sel.to {
		return nil, wallerr.Validationf(fmt.Sprintf("%d-%d", sel.from, sel.to),
			"hold range %d-%d out of bounds for route %q (valid: 1-%d)", sel.from, sel.to, seg.Source, len(holds))
	}

	for _, ref := range seg.ExcludeHolds {
		idx, err := resolveRef(ref, holds, seg.Source)
		if err != nil {
			return nil, err
		}
		if idx < 1 || idx > len(holds) {
			return nil, wallerr.Validationf(ref.String(),
				"excluded hold %d out of bounds for route %q (valid: 1-%d)", idx, seg.Source, len(holds))
		}
		sel.excluded[idx] = true
	}

	if seg.Anchor != nil {
		if sel.offset, err = anchorOffset(*seg.Anchor, sel); err != nil {
			return nil, fmt.Errorf("route %q anchor: %w", seg.Source, err)
		}
	}
	return sel, nil
}

// anchorOffset is anchor position minus the first included hold position.
// It is nil when no hold survives the filters.
func anchorOffset(a models.Anchor, sel *selection) (*grid.Point, error) {
	panel, err := grid.ParsePanelID(a.Panel)
	if err != nil {
		return nil, err
	}
	col, err := grid.ConvertAnchorColumn(a.Column, sel.system, grid.CanonicalColumns)
	if err != nil {
		return nil, err
	}
	target, err := grid.AnchorPoint(panel, grid.AnchorPosition{Column: col, Row: a.Row}, sel.lane)
	if err != nil {
		return nil, err
	}

	for i := sel.from; i <= sel.to; i++ {
		if !sel.included(i) {
			continue
		}
		h := sel.holds[i-1]
		first, err := grid.InsertPoint(h.Panel, h.Position, sel.lane)
		if err != nil {
			return nil, fmt.Errorf("hold %d: %w", i, err)
		}
		d := target.Sub(first)
		return &d, nil
	}
	return nil, nil
}

// ExtractHolds returns the holds selected by seg. ComposedHoldNumber is left 0.
func ExtractHolds(seg models.RouteSegment, routes models.RouteSet) ([]models.ComposedHold, error) {
	sel, err := selectSegment(seg, routes)
	if err != nil {
		return nil, err
	}

	var out []models.ComposedHold
	for i := sel.from; i <= sel.to; i++ {
		if !sel.included(i) {
			continue
		}
		h := sel.holds[i-1]
		ch := models.ComposedHold{
			Hold:               h,
			SourceRoute:        sel.name,
			OriginalHoldNumber: i,
			LaneOffset:         sel.lane,
			HoldScale:          resolveScale(h, sel.scales),
			Color:              sel.color,
		}
		if sel.offset != nil {
			off := *sel.offset
			ch.AnchorOffset = &off
		}
		out = append(out, ch)
	}
	return out, nil
}

// resolveScale applies explicit hold scale, then the route's per-type scale,
// then 1. Hold types are uppercase, as are the keys of scales.
func resolveScale(h models.Hold, scales map[string]float64) float64 {
	if h.Scale > 0 {
		return h.Scale
	}
	if s, ok := scales[h.Type]; ok {
		return s
	}
	return 1.0
}

// ComposeRoute concatenates the holds of segments in order and numbers them
// from 1.
func ComposeRoute(segments []models.RouteSegment, routes models.RouteSet) ([]models.ComposedHold, error) {
	return composeRoute(segments, routes, nil)
}

func composeRoute(segments []models.RouteSegment, routes models.RouteSet, out []models.ComposedHold) ([]models.ComposedHold, error) {
	for i, seg := range segments {
		holds, err := ExtractHolds(seg, routes)
		if err != nil {
			return nil, fmt.Errorf("segment %d (%s): %w", i+1, seg.Source, err)
		}
		for _, h := range holds {
			h.ComposedHoldNumber = len(out) + 1
			out = append(out, h)
		}
	}
	return out, nil
}

// ComposeAllRoutes composes several top-level routes into one list. Numbering
// continues across routes so every composed hold number is unique.
func ComposeAllRoutes(generated []models.GeneratedRoute, routes models.RouteSet) ([]models.ComposedHold, error) {
	out := []models.ComposedHold{}
	for i, gr := range generated {
		var err error
		out, err = composeRoute(gr.Segments, routes, out)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i+1, err)
		}
	}
	return out, nil
}

// ExtractSmearingZones returns the source route's smearing zones that overlap
// the vertical extent of the segment's hold range.
func ExtractSmearingZones(seg models.RouteSegment, routes models.RouteSet) ([]models.ComposedSmearingZone, error) {
	sel, err := selectSegment(seg, routes)
	if err != nil {
		return nil, err
	}
	if len(sel.route.SmearingZones) == 0 || len(sel.holds) == 0 {
		return nil, nil
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := sel.from; i <= sel.to; i++ {
		h := sel.holds[i-1]
		p, err := grid.InsertPoint(h.Panel, h.Position, sel.lane)
		if err != nil {
			return nil, fmt.Errorf("hold %d: %w", i, err)
		}
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	var out []models.ComposedSmearingZone
	for i, z := range sel.route.SmearingZones {
		cz, err := composeZone(z, sel)
		if err != nil {
			return nil, fmt.Errorf("smearing zone %d (%s): %w", i+1, z.Label, err)
		}
		bottom := cz.Bounds.Y
		top := bottom + cz.Bounds.Height
		if bottom > maxY || top < minY {
			continue
		}
		if sel.offset != nil {
			off := *sel.offset
			cz.AnchorOffset = &off
			cz.Bounds.X += off.X
			cz.Bounds.Y += off.Y
		}
		out = append(out, cz)
	}
	return out, nil
}

// composeZone resolves a zone to a wall rectangle in millimeters, anchor
// offset not yet applied.
func composeZone(z models.SmearingZone, sel *selection) (models.ComposedSmearingZone, error) {
	panel, err := grid.ParsePanelID(z.Panel)
	if err != nil {
		return models.ComposedSmearingZone{}, err
	}
	col, err := grid.ConvertColumn(z.Column, sel.system, grid.CanonicalColumns)
	if err != nil {
		return models.ComposedSmearingZone{}, err
	}
	for _, v := range []float64{z.Row, z.ColumnOffset, z.Width, z.Height} {
		if !finite(v) {
			return models.ComposedSmearingZone{}, wallerr.Validationf(fmt.Sprint(v),
				"smearing zone %q: row, columnOffset, width and height must be finite numbers (got %v)", z.Label, v)
		}
	}
	baseRow := math.Floor(z.Row)
	if baseRow < 1 || baseRow > grid.RowsPerPanel {
		return models.ComposedSmearingZone{}, wallerr.Validationf(fmt.Sprint(z.Row),
			"smearing zone row %g out of range (valid: 1-%d)", z.Row, grid.RowsPerPanel)
	}
	if z.Width <= 0 || z.Height <= 0 {
		return models.ComposedSmearingZone{}, wallerr.Validationf(z.Label,
			"smearing zone %q: width and height must be positive", z.Label)
	}

	x, err := grid.ColumnX(col, panel.Side, sel.lane)
	if err != nil {
		return models.ComposedSmearingZone{}, err
	}
	frac := z.Row - baseRow

	zone := z
	zone.Column = col
	return models.ComposedSmearingZone{
		SmearingZone: zone,
		SourceRoute:  sel.name,
		Color:        sel.color,
		LaneOffset:   sel.lane,
		Bounds: models.Rect{
			X:      x + z.ColumnOffset*grid.ColumnSpacing,
			Y:      grid.RowY(int(baseRow), panel.Number) + frac*grid.RowSpacing,
			Width:  z.Width * grid.ColumnSpacing,
			Height: z.Height * grid.RowSpacing,
		},
	}, nil
}

// ComposeSmearingZones concatenates the zones of segments in order.
func ComposeSmearingZones(segments []models.RouteSegment, routes models.RouteSet) ([]models.ComposedSmearingZone, error) {
	var out []models.ComposedSmearingZone
	for i, seg := range segments {
		zones, err := ExtractSmearingZones(seg, routes)
		if err != nil {
			return nil, fmt.Errorf("segment %d (%s): %w", i+1, seg.Source, err)
		}
		out = append(out, zones...)
	}
	return out, nil
}

// ComposeAllSmearingZones is ComposeSmearingZones over several routes.
func ComposeAllSmearingZones(generated []models.GeneratedRoute, routes models.RouteSet) ([]models.ComposedSmearingZone, error) {
	out := []models.ComposedSmearingZone{}
	for i, gr := range generated {
		zones, err := ComposeSmearingZones(gr.Segments, routes)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i+1, err)
		}
		out = append(out, zones...)
	}
	return out, nil
}

// Compose composes both holds and smearing zones of a configuration.
func Compose(cfg models.Config, routes models.RouteSet) (*models.Composition, error) {
	if cfg.Wall.Lanes < 1 || cfg.Wall.PanelsHeight < 1 || cfg.Wall.PanelsHeight > grid.MaxPanelNumber {
		return nil, wallerr.Validationf(fmt.Sprintf("%dx%d", cfg.Wall.Lanes, cfg.Wall.PanelsHeight),
			"invalid wall: lanes must be at least 1 and panelsHeight 1-%d (got lanes=%d panelsHeight=%d)",
			grid.MaxPanelNumber, cfg.Wall.Lanes, cfg.Wall.PanelsHeight)
	}
	holds, err := ComposeAllRoutes(cfg.Routes, routes)
	if err != nil {
		return nil, err
	}
	zones, err := ComposeAllSmearingZones(cfg.Routes, routes)
	if err != nil {
		return nil, err
	}
	return &models.Composition{Wall: cfg.Wall, Holds: holds, Zones: zones}, nil
}
