package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/speedwall-planner/backend/internal/grid"
	"github.com/speedwall-planner/backend/internal/models"
	"github.com/speedwall-planner/backend/internal/wallerr"
)

// ParseHold parses a compact hold descriptor:
//
//	PANEL TYPE POSITION ORIENTATION [@LABEL] [SCALE]
//
// ORIENTATION is a bare position on PANEL or PANEL:POSITION on another panel.
// Columns are read in sys and stored canonical.
func ParseHold(descriptor string, sys grid.ColumnSystem) (models.Hold, error) {
	tokens := strings.Fields(descriptor)
	if len(tokens) < 4 || len(tokens) > 6 {
		return models.Hold{}, wallerr.Parsef(descriptor,
			"malformed hold %q: expected 4-6 tokens (PANEL TYPE POSITION ORIENTATION [@LABEL] [SCALE]), got %d",
			descriptor, len(tokens))
	}

	panel, err := grid.ParsePanelID(tokens[0])
	if err != nil {
		return models.Hold{}, err
	}
	position, err := grid.ParsePosition(tokens[2], sys)
	if err != nil {
		return models.Hold{}, err
	}

	hold := models.Hold{
		Panel:            panel,
		Type:             strings.ToUpper(tokens[1]),
		Position:         position,
		OrientationPanel: panel,
	}

	orientation := tokens[3]
	if i := strings.IndexByte(orientation, ':'); i >= 0 {
		hold.OrientationPanel, err = grid.ParsePanelID(orientation[:i])
		if err != nil {
			return models.Hold{}, err
		}
		orientation = orientation[i+1:]
	}
	hold.Orientation, err = grid.ParsePosition(orientation, sys)
	if err != nil {
		return models.Hold{}, err
	}

	for _, tok := range tokens[4:] {
		if strings.HasPrefix(tok, "@") {
			if hold.Label != "" {
				return models.Hold{}, wallerr.Parsef(descriptor, "malformed hold %q: more than one label", descriptor)
			}
			hold.Label = tok[1:]
			if hold.Label == "" {
				return models.Hold{}, wallerr.Parsef(descriptor, "malformed hold %q: empty label", descriptor)
			}
			continue
		}
		if hold.Scale != 0 {
			return models.Hold{}, wallerr.Parsef(descriptor, "malformed hold %q: more than one scale", descriptor)
		}
		scale, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(scale) || math.IsInf(scale, 0) {
			return models.Hold{}, wallerr.Parsef(tok, "invalid scale %q in hold %q: must be a positive number", tok, descriptor)
		}
		if scale <= 0 {
			return models.Hold{}, wallerr.Validationf(tok, "invalid scale %q in hold %q: must be a positive number", tok, descriptor)
		}
		hold.Scale = scale
	}

	return hold, nil
}

// FormatHold renders a hold back into its compact descriptor in sys.
func FormatHold(h models.Hold, sys grid.ColumnSystem) (string, error) {
	pos, err := grid.FormatPosition(h.Position, sys)
	if err != nil {
		return "", err
	}
	orientation, err := grid.FormatPosition(h.Orientation, sys)
	if err != nil {
		return "", err
	}
	if h.OrientationPanel != h.Panel {
		orientation = h.OrientationPanel.String() + ":" + orientation
	}

	parts := []string{h.Panel.String(), h.Type, pos, orientation}
	if h.Label != "" {
		parts = append(parts, "@"+h.Label)
	}
	if h.Scale != 0 {
		parts = append(parts, strconv.FormatFloat(h.Scale, 'g', -1, 64))
	}
	return strings.Join(parts, " "), nil
}
