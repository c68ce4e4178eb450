// Package grid models the insert grid of a multi-lane, multi-panel climbing wall.
//
// A wall is built from 1500x1500mm panels. Each lane is a pair of panels side by
// side (SN on the left, DX on the right) stacked up to 10 panels high. Every panel
// carries an 11x10 grid of inserts addressed by column letter and row number.
//
// All positions are absolute millimeters with the origin at the bottom-left
// corner of the wall and Y increasing upward.
package grid

// Grid constants.
const (
	ColumnsPerPanel = 11
	RowsPerPanel    = 10
	MaxPanelNumber  = 10

	ColumnSpacing    = 125.0
	RowSpacing       = 125.0
	HorizontalMargin = 125.0
	VerticalMargin   = 187.5

	PanelWidth  = 2*HorizontalMargin + (ColumnsPerPanel-1)*ColumnSpacing
	PanelHeight = 2*VerticalMargin + (RowsPerPanel-1)*RowSpacing
)

// Point is an absolute wall position in millimeters.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dimensions is the size of a wall in millimeters.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// WallDimensions returns the size of a wall with the given number of lanes and
// panels per lane.
func WallDimensions(lanes, panelsHeight int) Dimensions {
	return Dimensions{
		Width:  float64(lanes) * 2 * PanelWidth,
		Height: float64(panelsHeight) * PanelHeight,
	}
}

func sideOffset(side Side) float64 {
	if side == SideRight {
		return PanelWidth
	}
	return 0
}

func columnXAt(index int, side Side, laneOffset int) float64 {
	return float64(laneOffset)*2*PanelWidth + sideOffset(side) + HorizontalMargin + float64(index)*ColumnSpacing
}

// ColumnX returns the X coordinate of a canonical column on the given side.
func ColumnX(column string, side Side, laneOffset int) (float64, error) {
	idx, err := ColumnIndex(column, CanonicalColumns)
	if err != nil {
		return 0, err
	}
	return columnXAt(idx, side, laneOffset), nil
}

// RowY returns the Y coordinate of row on the given panel. Rows outside 1..10
// extrapolate linearly, which is what virtual anchor rows rely on.
func RowY(row, panelNumber int) float64 {
	return RowYFrac(float64(row), panelNumber)
}

// RowYFrac is RowY for fractional rows.
func RowYFrac(row float64, panelNumber int) float64 {
	return float64(panelNumber-1)*PanelHeight + VerticalMargin + (row-1)*RowSpacing
}

// InsertPoint returns the absolute position of an insert.
func InsertPoint(panel PanelID, pos Position, laneOffset int) (Point, error) {
	if err := panel.Validate(); err != nil {
		return Point{}, err
	}
	if err := validateRow(pos.Row); err != nil {
		return Point{}, err
	}
	x, err := ColumnX(pos.Column, panel.Side, laneOffset)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: RowY(pos.Row, panel.Number)}, nil
}

// AnchorPoint returns the absolute position of an anchor, which may sit on a
// virtual column or row one spacing outside the physical grid. The anchor
// column is canonical.
func AnchorPoint(panel PanelID, anchor AnchorPosition, laneOffset int) (Point, error) {
	if err := panel.Validate(); err != nil {
		return Point{}, err
	}
	if err := validateAnchorRow(anchor.Row); err != nil {
		return Point{}, err
	}
	idx, err := AnchorColumnIndex(anchor.Column, CanonicalColumns)
	if err != nil {
		return Point{}, err
	}
	return Point{X: columnXAt(idx, panel.Side, laneOffset), Y: RowY(anchor.Row, panel.Number)}, nil
}
