package render

import (
	"github.com/speedwall-planner/backend/internal/grid"
	"github.com/speedwall-planner/backend/internal/models"
)

// frame converts wall coordinates (origin bottom-left, Y up) into document
// coordinates (origin top-left, Y down). No other code flips Y.
type frame struct {
	width, height float64
}

func newFrame(wall models.WallConfig) frame {
	d := grid.WallDimensions(wall.Lanes, wall.PanelsHeight)
	return frame{width: d.Width, height: d.Height}
}

func (f frame) y(wallY float64) float64 {
	return f.height - wallY
}

func (f frame) point(p grid.Point) (float64, float64) {
	return p.X, f.y(p.Y)
}

// rect returns the top-left corner and size of a wall rectangle.
func (f frame) rect(r models.Rect) (x, y, w, h float64) {
	return r.X, f.y(r.Y + r.Height), r.Width, r.Height
}
