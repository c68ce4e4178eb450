package holdsvg

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/speedwall-planner/backend/internal/rotation"
)

// Placement positions one hold instance in document space.
type Placement struct {
	// X and Y are document coordinates (Y down) of the insert.
	X, Y float64
	// Rotation is the wall rotation in degrees, counterclockwise.
	Rotation  float64
	Direction rotation.Direction
	// Width and Height are the target display size in millimeters.
	Width, Height float64
	Color         string
	Text          string
	// FontSize overrides the template label size when positive.
	FontSize float64
}

// Instance is the markup of one placed hold.
type Instance struct {
	Transform string
	Scale     float64
	// Body holds the recolored shape followed by the auxiliary fragments.
	Body string
	// Label is empty when the template has no label fragment.
	Label string
}

// Place builds the markup for a hold. The transform maps the template anchor
// onto (X, Y) after rotating and scaling around it.
func (t *Template) Place(p Placement) Instance {
	scale := math.Min(p.Width/t.Width, p.Height/t.Height)
	inst := Instance{
		Scale: scale,
		Transform: fmt.Sprintf("translate(%s %s) rotate(%s) scale(%s) translate(%s %s)",
			num(p.X), num(p.Y), num(-p.Rotation), num(scale), num(-t.AnchorX), num(-t.AnchorY)),
	}

	color := escape(p.Color)
	var b strings.Builder
	if t.shape != "" {
		b.WriteString(strings.ReplaceAll(t.shape, colorToken, color))
	}
	for _, a := range t.aux {
		b.WriteString(a)
	}
	inst.Body = b.String()

	if key, ok := t.LabelFragment(p.Direction); ok {
		l := t.labels[key]
		size := l.fontSize
		if p.FontSize > 0 {
			size = p.FontSize
		}
		inst.Label = strings.NewReplacer(
			colorToken, color,
			labelToken, escape(p.Text),
			fontSizeToken, num(size/scale),
		).Replace(l.markup)
	}
	return inst
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// num formats v with at most four decimals.
func num(v float64) string {
	r := math.Round(v*1e4)/1e4 + 0
	return strconv.FormatFloat(r, 'f', -1, 64)
}
