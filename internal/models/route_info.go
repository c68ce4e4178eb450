package models

import "time"

// RouteInfo describes a route held in the route library.
type RouteInfo struct {
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Holds      int       `json:"holds"`
	Zones      int       `json:"smearingZones"`
	Revision   string    `json:"revision"`
	Source     string    `json:"source"` // file path, or "api" for imported sets
	ImportedAt time.Time `json:"importedAt"`
}
