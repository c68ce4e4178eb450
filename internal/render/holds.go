package render

import (
	"fmt"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo/float"
	"github.com/speedwall-planner/backend/internal/grid"
	"github.com/speedwall-planner/backend/internal/holdsvg"
	"github.com/speedwall-planner/backend/internal/holdtype"
	"github.com/speedwall-planner/backend/internal/models"
	"github.com/speedwall-planner/backend/internal/rotation"
)

const (
	arrowHalfBase = 15.0
	ringRadius    = 20.0
)

type placedHold struct {
	hold   models.ComposedHold
	spec   holdtype.Spec
	inst   holdsvg.Instance
	text   string
	height float64
	// x, y and tx, ty are the document positions of the hold and its target.
	x, y   float64
	tx, ty float64
}

func (r *Renderer) placeHolds(f frame, holds []models.ComposedHold, opts Options) ([]placedHold, error) {
	placed := make([]placedHold, 0, len(holds))
	for _, h := range holds {
		p, err := r.placeHold(f, h, opts)
		if err != nil {
			return nil, fmt.Errorf("hold %d (%s #%d): %w", h.ComposedHoldNumber, h.SourceRoute, h.OriginalHoldNumber, err)
		}
		placed = append(placed, p)
	}
	return placed, nil
}

func (r *Renderer) placeHold(f frame, h models.ComposedHold, opts Options) (placedHold, error) {
	spec, err := r.types.Lookup(h.Type)
	if err != nil {
		return placedHold{}, err
	}
	tpl, err := r.templates.Get(spec)
	if err != nil {
		return placedHold{}, err
	}

	pos, err := grid.InsertPoint(h.Panel, h.Position, h.LaneOffset)
	if err != nil {
		return placedHold{}, err
	}
	target, err := grid.InsertPoint(h.OrientationPanel, h.Orientation, h.LaneOffset)
	if err != nil {
		return placedHold{}, err
	}
	if h.AnchorOffset != nil {
		pos = pos.Add(*h.AnchorOffset)
		target = target.Add(*h.AnchorOffset)
	}
	rot, err := rotation.HoldRotation(h.Panel, h.Position, h.OrientationPanel, h.Orientation, spec.DefaultOrientation, h.LaneOffset)
	if err != nil {
		return placedHold{}, err
	}

	scale := h.HoldScale
	if scale <= 0 {
		scale = 1
	}
	text := h.Label
	if text == "" {
		text = strconv.Itoa(h.ComposedHoldNumber)
	}

	p := placedHold{hold: h, spec: spec, text: text, height: spec.Height * scale}
	p.x, p.y = f.point(pos)
	p.tx, p.ty = f.point(target)
	p.inst = tpl.Place(holdsvg.Placement{
		X:         p.x,
		Y:         p.y,
		Rotation:  rot,
		Direction: rotation.Bucket(spec.DefaultOrientation, rot),
		Width:     spec.Width * scale,
		Height:    spec.Height * scale,
		Color:     h.Color,
		Text:      text,
		FontSize:  opts.LabelFontSize,
	})
	return p, nil
}

func holdAttrs(h models.ComposedHold) []string {
	return []string{
		fmt.Sprintf(`data-source="%s"`, attr(h.SourceRoute)),
		fmt.Sprintf(`data-hold="%d"`, h.OriginalHoldNumber),
		fmt.Sprintf(`data-composed="%d"`, h.ComposedHoldNumber),
	}
}

func drawHolds(canvas *svg.SVG, holds []placedHold) {
	canvas.Gid(LayerHolds)
	for _, p := range holds {
		attrs := append([]string{
			`class="hold"`,
			fmt.Sprintf(`data-type="%s"`, attr(p.spec.Name)),
		}, holdAttrs(p.hold)...)
		attrs = append(attrs, fmt.Sprintf(`transform="%s"`, p.inst.Transform))
		canvas.Group(attrs...)
		fmt.Fprint(canvas.Writer, p.inst.Body)
		canvas.Gend()
	}
	canvas.Gend()
}

func drawHoldLabels(canvas *svg.SVG, holds []placedHold, opts Options) {
	size := opts.LabelFontSize
	if size <= 0 {
		size = holdsvg.DefaultLabelFontSize
	}
	canvas.Gid(LayerHoldLabels)
	for _, p := range holds {
		composed := fmt.Sprintf(`data-composed="%d"`, p.hold.ComposedHoldNumber)
		if p.inst.Label != "" {
			canvas.Group(`class="hold-label"`, composed, fmt.Sprintf(`transform="%s"`, p.inst.Transform))
			fmt.Fprint(canvas.Writer, p.inst.Label)
			canvas.Gend()
			continue
		}
		y := p.y + p.height/2 + p.spec.LabelMargin
		canvas.Text(p.x, y, p.text, `class="hold-label"`, composed,
			fmt.Sprintf("text-anchor:middle;dominant-baseline:hanging;font-family:Arial, sans-serif;font-size:%spx;fill:%s",
				num(size), attr(p.hold.Color)))
	}
	canvas.Gend()
}

func drawArrows(canvas *svg.SVG, holds []placedHold) {
	canvas.Gid(LayerArrows)
	for _, p := range holds {
		if !p.spec.ShowArrow {
			continue
		}
		dx, dy := p.tx-p.x, p.ty-p.y
		length := math.Hypot(dx, dy)
		if length < 1e-9 {
			continue
		}
		// Unit normal to the arrow direction.
		nx, ny := -dy/length, dx/length
		color := attr(p.hold.Color)
		canvas.Group(`class="arrow"`, fmt.Sprintf(`data-composed="%d"`, p.hold.ComposedHoldNumber))
		canvas.Polygon(
			[]float64{p.x + nx*arrowHalfBase, p.tx, p.x - nx*arrowHalfBase},
			[]float64{p.y + ny*arrowHalfBase, p.ty, p.y - ny*arrowHalfBase},
			"fill:"+color+";fill-opacity:0.5;stroke:none")
		canvas.Circle(p.tx, p.ty, ringRadius, "fill:none;stroke:"+color+";stroke-width:4")
		canvas.Gend()
	}
	canvas.Gend()
}
