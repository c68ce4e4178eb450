package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/speedwall-planner/backend/internal/wallerr"
)

// Side is the lane side of a panel.
type Side string

const (
	SideLeft  Side = "SN"
	SideRight Side = "DX"
)

// PanelID identifies one physical panel.
type PanelID struct {
	Side   Side `json:"side" yaml:"side" msgpack:"side"`
	Number int  `json:"number" yaml:"number" msgpack:"number"`
}

// String formats the panel as "SN1" or "DX10".
func (p PanelID) String() string {
	return fmt.Sprintf("%s%d", p.Side, p.Number)
}

// Validate checks the side and the 1..10 panel number range.
func (p PanelID) Validate() error {
	if p.Side != SideLeft && p.Side != SideRight {
		return wallerr.Validationf(string(p.Side), "invalid panel side %q (valid: SN, DX)", p.Side)
	}
	if p.Number < 1 || p.Number > MaxPanelNumber {
		return wallerr.Validationf(strconv.Itoa(p.Number), "panel number %d out of range (valid: 1-%d)",
			p.Number, MaxPanelNumber)
	}
	return nil
}

// Position is an insert on a panel. Column is always canonical.
type Position struct {
	Column string `json:"column" yaml:"column" msgpack:"column"`
	Row    int    `json:"row" yaml:"row" msgpack:"row"`
}

// AnchorPosition is a Position that may also use the virtual columns "<" and
// ">" and the virtual rows 0 and 11.
type AnchorPosition struct {
	Column string `json:"column" yaml:"column" msgpack:"column"`
	Row    int    `json:"row" yaml:"row" msgpack:"row"`
}

func validateRow(row int) error {
	if row < 1 || row > RowsPerPanel {
		return wallerr.Validationf(strconv.Itoa(row), "row %d out of range (valid: 1-%d)", row, RowsPerPanel)
	}
	return nil
}

func validateAnchorRow(row int) error {
	if row < 0 || row > RowsPerPanel+1 {
		return wallerr.Validationf(strconv.Itoa(row), "anchor row %d out of range (valid: 0-%d)", row, RowsPerPanel+1)
	}
	return nil
}

// ParsePanelID parses "SN1".."SN10" and "DX1".."DX10", case-insensitively.
func ParsePanelID(s string) (PanelID, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	if len(u) < 3 {
		return PanelID{}, wallerr.Parsef(s, "malformed panel %q (expected SN1-SN10 or DX1-DX10)", s)
	}
	side := Side(u[:2])
	if side != SideLeft && side != SideRight {
		return PanelID{}, wallerr.Parsef(s, "malformed panel %q: side must be SN or DX", s)
	}
	n, err := parseDigits(u[2:])
	if err != nil {
		return PanelID{}, wallerr.Parsef(s, "malformed panel %q: number must be an integer", s)
	}
	p := PanelID{Side: side, Number: n}
	if err := p.Validate(); err != nil {
		return PanelID{}, err
	}
	return p, nil
}

// FormatPanelID is the inverse of ParsePanelID.
func FormatPanelID(p PanelID) string {
	return p.String()
}

// ParsePosition parses a "F4" style position authored in sys and returns it
// with a canonical column.
func ParsePosition(s string, sys ColumnSystem) (Position, error) {
	letter, row, err := splitPosition(s)
	if err != nil {
		return Position{}, err
	}
	if err := validateRow(row); err != nil {
		return Position{}, err
	}
	col, err := ConvertColumn(letter, sys, CanonicalColumns)
	if err != nil {
		return Position{}, err
	}
	return Position{Column: col, Row: row}, nil
}

// FormatPosition renders a canonical position in sys.
func FormatPosition(pos Position, sys ColumnSystem) (string, error) {
	col, err := ConvertColumn(pos.Column, CanonicalColumns, sys)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", col, pos.Row), nil
}

func splitPosition(s string) (string, int, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	if len(u) < 2 {
		return "", 0, wallerr.Parsef(s, "malformed position %q (expected column letter followed by row)", s)
	}
	letter := u[:1]
	c := letter[0]
	if (c < 'A' || c > 'Z') && letter != VirtualLeftColumn && letter != VirtualRightColumn {
		return "", 0, wallerr.Parsef(s, "malformed position %q: column must be a letter", s)
	}
	row, err := parseDigits(u[1:])
	if err != nil {
		return "", 0, wallerr.Parsef(s, "malformed position %q: row must be an integer", s)
	}
	return letter, row, nil
}

// parseDigits accepts only plain decimal digits without leading zeros, so
// "+1", "01" and "1.0" are rejected.
func parseDigits(s string) (int, error) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}
