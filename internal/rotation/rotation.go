// Package rotation computes how far a hold graphic must turn so that its
// directional indicator points at the hold's orientation target.
//
// Angles are in degrees in wall coordinates: 0 is +X, 90 is +Y (up), counted
// counterclockwise.
package rotation

import (
	"math"

	"github.com/speedwall-planner/backend/internal/grid"
)

// Direction is a cardinal label placement bucket.
type Direction string

const (
	Right Direction = "right"
	Up    Direction = "up"
	Left  Direction = "left"
	Down  Direction = "down"
)

// Directions lists the buckets in counterclockwise order starting at Right.
func Directions() []Direction {
	return []Direction{Right, Up, Left, Down}
}

// CalculateAngle returns the bearing from one point to another in [0,360).
func CalculateAngle(from, to grid.Point) float64 {
	deg := math.Atan2(to.Y-from.Y, to.X-from.X) * 180 / math.Pi
	return normalize360(deg)
}

// HoldRotation returns the rotation in (-180,180] to apply to a hold graphic
// whose indicator points at defaultOrientation so that it points from the
// hold position toward its orientation target.
func HoldRotation(panel grid.PanelID, pos grid.Position, orientationPanel grid.PanelID,
	orientation grid.Position, defaultOrientation float64, laneOffset int) (float64, error) {
	from, err := grid.InsertPoint(panel, pos, laneOffset)
	if err != nil {
		return 0, err
	}
	to, err := grid.InsertPoint(orientationPanel, orientation, laneOffset)
	if err != nil {
		return 0, err
	}
	return Normalize180(CalculateAngle(from, to) - defaultOrientation), nil
}

// Bucket maps the final bearing (defaultOrientation + rotation) to a cardinal
// direction: right [315,45), up [45,135), left [135,225), down [225,315).
func Bucket(defaultOrientation, rotation float64) Direction {
	a := normalize360(defaultOrientation + rotation)
	switch {
	case a >= 45 && a < 135:
		return Up
	case a >= 135 && a < 225:
		return Left
	case a >= 225 && a < 315:
		return Down
	default:
		return Right
	}
}

// Normalize180 maps an angle into (-180,180].
func Normalize180(deg float64) float64 {
	a := normalize360(deg)
	if a > 180 {
		a -= 360
	}
	return a
}

func normalize360(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	// -tiny + 360 rounds to 360.
	if a >= 360 {
		a -= 360
	}
	return a + 0 // drop negative zero
}
