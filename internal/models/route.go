package models

import (
	"github.com/speedwall-planner/backend/internal/grid"
)

// ReferenceRoute is an authored route: an ordered list of compact hold
// descriptors plus display defaults. It is read-only input to composition.
type ReferenceRoute struct {
	Color         string             `json:"color" yaml:"color" msgpack:"color"`
	HoldScales    map[string]float64 `json:"holdScales,omitempty" yaml:"holdScales,omitempty" msgpack:"holdScales,omitempty"`
	Columns       grid.ColumnSystem  `json:"columns,omitempty" yaml:"columns,omitempty" msgpack:"columns,omitempty"`
	Holds         []string           `json:"holds" yaml:"holds" msgpack:"holds"`
	SmearingZones []SmearingZone     `json:"smearingZones,omitempty" yaml:"smearingZones,omitempty" msgpack:"smearingZones,omitempty"`
}

// RouteSet maps route names to their definitions.
type RouteSet map[string]ReferenceRoute

// Hold is one parsed hold descriptor. Columns are canonical.
type Hold struct {
	Panel       grid.PanelID  `json:"panel" msgpack:"panel"`
	Type        string        `json:"type" msgpack:"type"`
	Position    grid.Position `json:"position" msgpack:"position"`
	Orientation grid.Position `json:"orientation" msgpack:"orientation"`
	// OrientationPanel is the panel of Orientation; Panel unless the descriptor
	// named another one.
	OrientationPanel grid.PanelID `json:"orientationPanel" msgpack:"orientationPanel"`
	// Scale is 0 when the descriptor did not set one.
	Scale float64 `json:"scale,omitempty" msgpack:"scale,omitempty"`
	Label string  `json:"label,omitempty" msgpack:"label,omitempty"`
}

// SmearingZone is a labeled rectangular foot region. Column and Row locate its
// bottom-left corner; Row may be fractional and ColumnOffset shifts it by a
// fraction of a column spacing. Width and Height are in insert spacings.
type SmearingZone struct {
	Label        string  `json:"label" yaml:"label" msgpack:"label"`
	Panel        string  `json:"panel" yaml:"panel" msgpack:"panel"`
	Column       string  `json:"column" yaml:"column" msgpack:"column"`
	ColumnOffset float64 `json:"columnOffset,omitempty" yaml:"columnOffset,omitempty" msgpack:"columnOffset,omitempty"`
	Row          float64 `json:"row" yaml:"row" msgpack:"row"`
	Width        float64 `json:"width" yaml:"width" msgpack:"width"`
	Height       float64 `json:"height" yaml:"height" msgpack:"height"`
}

// Anchor places the first included hold of a segment on a given insert.
type Anchor struct {
	Panel  string `json:"panel" yaml:"panel" msgpack:"panel"`
	Column string `json:"column" yaml:"column" msgpack:"column"`
	Row    int    `json:"row" yaml:"row" msgpack:"row"`
}

// RouteSegment selects a slice of a reference route for composition.
type RouteSegment struct {
	Source       string    `json:"source" yaml:"source" msgpack:"source"`
	FromHold     *HoldRef  `json:"fromHold,omitempty" yaml:"fromHold,omitempty" msgpack:"fromHold,omitempty"`
	ToHold       *HoldRef  `json:"toHold,omitempty" yaml:"toHold,omitempty" msgpack:"toHold,omitempty"`
	ExcludeHolds []HoldRef `json:"excludeHolds,omitempty" yaml:"excludeHolds,omitempty" msgpack:"excludeHolds,omitempty"`
	Anchor       *Anchor   `json:"anchor,omitempty" yaml:"anchor,omitempty" msgpack:"anchor,omitempty"`
	Color        string    `json:"color,omitempty" yaml:"color,omitempty" msgpack:"color,omitempty"`
	LaneOffset   int       `json:"laneOffset,omitempty" yaml:"laneOffset,omitempty" msgpack:"laneOffset,omitempty"`
}

// GeneratedRoute is one top-level route built from segments.
type GeneratedRoute struct {
	Segments []RouteSegment `json:"segments" yaml:"segments" msgpack:"segments"`
}

// WallConfig sizes the wall.
type WallConfig struct {
	Lanes        int `json:"lanes" yaml:"lanes" msgpack:"lanes"`
	PanelsHeight int `json:"panelsHeight" yaml:"panelsHeight" msgpack:"panelsHeight"`
}

// Config is a user configuration: a wall and the routes to place on it.
type Config struct {
	Wall   WallConfig       `json:"wall" yaml:"wall" msgpack:"wall"`
	Routes []GeneratedRoute `json:"routes" yaml:"routes" msgpack:"routes"`
}

// ComposedHold is a hold after composition. It is derived and never persisted.
type ComposedHold struct {
	Hold
	SourceRoute        string  `json:"sourceRoute" msgpack:"sourceRoute"`
	OriginalHoldNumber int     `json:"originalHoldNumber" msgpack:"originalHoldNumber"`
	ComposedHoldNumber int     `json:"composedHoldNumber" msgpack:"composedHoldNumber"`
	LaneOffset         int     `json:"laneOffset" msgpack:"laneOffset"`
	HoldScale          float64 `json:"holdScale" msgpack:"holdScale"`
	Color              string  `json:"color" msgpack:"color"`
	// AnchorOffset is the millimeter shift shared by every hold of the segment.
	AnchorOffset *grid.Point `json:"anchorOffset,omitempty" msgpack:"anchorOffset,omitempty"`
}

// Rect is an axis-aligned wall rectangle; X and Y are its bottom-left corner.
type Rect struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Width  float64 `json:"width" msgpack:"width"`
	Height float64 `json:"height" msgpack:"height"`
}

// ComposedSmearingZone is a smearing zone after composition. Column is
// canonical and Bounds is the final wall rectangle with lane and anchor
// offsets applied.
type ComposedSmearingZone struct {
	SmearingZone
	SourceRoute  string      `json:"sourceRoute" msgpack:"sourceRoute"`
	Color        string      `json:"color" msgpack:"color"`
	LaneOffset   int         `json:"laneOffset" msgpack:"laneOffset"`
	AnchorOffset *grid.Point `json:"anchorOffset,omitempty" msgpack:"anchorOffset,omitempty"`
	Bounds       Rect        `json:"bounds" msgpack:"bounds"`
}

// Composition is the full output of composing a configuration.
type Composition struct {
	Wall  WallConfig             `json:"wall" msgpack:"wall"`
	Holds []ComposedHold         `json:"holds" msgpack:"holds"`
	Zones []ComposedSmearingZone `json:"smearingZones" msgpack:"smearingZones"`
}
