package render

import (
	"fmt"
	"strconv"

	svg "github.com/ajstarks/svgo/float"
	"github.com/speedwall-planner/backend/internal/grid"
	"github.com/speedwall-planner/backend/internal/models"
)

const (
	dotRadius      = 6.0
	zoneLabelGap   = 30.0
	zoneLabelSize  = 45.0
	hatchSpacing   = 25.0
	watermarkSize  = 400.0
	marginFontSize = 40.0
)

var sides = []grid.Side{grid.SideLeft, grid.SideRight}

func drawGrid(canvas *svg.SVG, f frame, wall models.WallConfig, display grid.ColumnSystem) error {
	letters := make([]string, grid.ColumnsPerPanel)
	for i := range letters {
		l, err := grid.ColumnLetter(i, display)
		if err != nil {
			return err
		}
		letters[i] = l
	}

	canvas.Gid(LayerGrid)

	canvas.Group(`class="panel-watermarks"`)
	for lane := 0; lane < wall.Lanes; lane++ {
		for _, side := range sides {
			for n := 1; n <= wall.PanelsHeight; n++ {
				left := grid.Point{X: float64(lane)*2*grid.PanelWidth + sideX(side), Y: float64(n-1) * grid.PanelHeight}
				x, y := f.point(left.Add(grid.Point{X: grid.PanelWidth / 2, Y: grid.PanelHeight / 2}))
				canvas.Text(x, y, grid.PanelID{Side: side, Number: n}.String(),
					fmt.Sprintf("text-anchor:middle;dominant-baseline:middle;font-family:Arial, sans-serif;font-size:%spx;fill:#000000;fill-opacity:0.06", num(watermarkSize)))
			}
		}
	}
	canvas.Gend()

	canvas.Group(`class="inserts"`, "fill:#c8c8c8")
	for lane := 0; lane < wall.Lanes; lane++ {
		for _, side := range sides {
			for n := 1; n <= wall.PanelsHeight; n++ {
				for c := 0; c < grid.ColumnsPerPanel; c++ {
					cx := insertX(c, side, lane)
					for row := 1; row <= grid.RowsPerPanel; row++ {
						canvas.Circle(cx, f.y(grid.RowY(row, n)), dotRadius)
					}
				}
			}
		}
	}
	canvas.Gend()

	marginStyle := fmt.Sprintf("text-anchor:middle;dominant-baseline:middle;font-family:Arial, sans-serif;font-size:%spx;fill:#888888", num(marginFontSize))
	canvas.Group(`class="margin-labels"`)
	for lane := 0; lane < wall.Lanes; lane++ {
		for _, side := range sides {
			panelLeft := float64(lane)*2*grid.PanelWidth + sideX(side)
			for n := 1; n <= wall.PanelsHeight; n++ {
				bottom := float64(n-1) * grid.PanelHeight
				for c, letter := range letters {
					canvas.Text(insertX(c, side, lane), f.y(bottom+grid.VerticalMargin/2), letter, marginStyle)
				}
				for row := 1; row <= grid.RowsPerPanel; row++ {
					canvas.Text(panelLeft+grid.HorizontalMargin/2, f.y(grid.RowY(row, n)), strconv.Itoa(row), marginStyle)
				}
			}
		}
	}
	canvas.Gend()

	canvas.Group(`class="panel-numbers"`)
	for n := 1; n <= wall.PanelsHeight; n++ {
		y := f.y(float64(n)*grid.PanelHeight - grid.VerticalMargin/2)
		canvas.Text(f.width-grid.HorizontalMargin/2, y, strconv.Itoa(n),
			"text-anchor:middle;dominant-baseline:middle;font-family:Arial, sans-serif;font-size:60px;font-weight:bold;fill:#555555")
	}
	canvas.Gend()

	canvas.Group(`class="boundaries"`)
	for k := 0; k <= 2*wall.Lanes; k++ {
		style := "stroke:#999999;stroke-width:3"
		if k%2 == 0 {
			style = "stroke:#555555;stroke-width:6"
		}
		x := float64(k) * grid.PanelWidth
		canvas.Line(x, 0, x, f.height, style)
	}
	for n := 0; n <= wall.PanelsHeight; n++ {
		y := f.y(float64(n) * grid.PanelHeight)
		canvas.Line(0, y, f.width, y, "stroke:#999999;stroke-width:3")
	}
	canvas.Gend()

	canvas.Gend()
	return nil
}

func sideX(side grid.Side) float64 {
	if side == grid.SideRight {
		return grid.PanelWidth
	}
	return 0
}

func insertX(index int, side grid.Side, lane int) float64 {
	return float64(lane)*2*grid.PanelWidth + sideX(side) + grid.HorizontalMargin + float64(index)*grid.ColumnSpacing
}

// hatchIDs assigns one pattern id per distinct zone color in first-seen order.
func hatchIDs(zones []models.ComposedSmearingZone) ([]string, map[string]string) {
	var colors []string
	ids := map[string]string{}
	for _, z := range zones {
		if _, ok := ids[z.Color]; ok {
			continue
		}
		ids[z.Color] = fmt.Sprintf("hatch-%d", len(colors))
		colors = append(colors, z.Color)
	}
	return colors, ids
}

func drawZones(canvas *svg.SVG, f frame, zones []models.ComposedSmearingZone) {
	colors, ids := hatchIDs(zones)

	canvas.Gid(LayerZones)
	if len(colors) > 0 {
		canvas.Def()
		for _, c := range colors {
			canvas.Pattern(ids[c], 0, 0, hatchSpacing, hatchSpacing, "user", `patternTransform="rotate(45)"`)
			canvas.Line(0, 0, 0, hatchSpacing, "stroke:"+attr(c)+";stroke-width:6;stroke-opacity:0.6")
			canvas.PatternEnd()
		}
		canvas.DefEnd()
	}
	for _, z := range zones {
		x, y, w, h := f.rect(z.Bounds)
		color := attr(z.Color)
		canvas.Group(`class="smearing-zone"`, fmt.Sprintf(`data-source="%s"`, attr(z.SourceRoute)))
		canvas.Rect(x, y, w, h, "fill:"+color+";fill-opacity:0.2;stroke:none")
		canvas.Rect(x, y, w, h, "fill:url(#"+ids[z.Color]+");stroke:none")
		canvas.Rect(x, y, w, h, "fill:none;stroke:"+color+";stroke-width:4")
		if z.Label != "" {
			canvas.Text(x+w/2, y+h+zoneLabelGap, z.Label,
				fmt.Sprintf("text-anchor:middle;dominant-baseline:hanging;font-family:Arial, sans-serif;font-size:%spx;fill:%s", num(zoneLabelSize), color))
		}
		canvas.Gend()
	}
	canvas.Gend()
}
