package grid

import (
	"fmt"
	"strings"

	"github.com/speedwall-planner/backend/internal/wallerr"
)

// ColumnSystem is one of the predefined 11-letter column naming conventions.
// All systems address the same 11 physical slots; they differ only in which
// letter of A..L is left out.
type ColumnSystem string

const (
	// ColumnsABC is the plain alphabet A..K and the canonical internal system.
	ColumnsABC ColumnSystem = "ABCDEFGHIJK"
	// ColumnsNoJ skips J (A..L without J).
	ColumnsNoJ ColumnSystem = "ABCDEFGHIKL"
	// ColumnsNoI skips I (A..L without I).
	ColumnsNoI ColumnSystem = "ABCDEFGHJKL"

	// CanonicalColumns is the system every Position is stored in.
	CanonicalColumns = ColumnsABC
)

// Virtual anchor columns, one slot outside each edge of the physical grid.
const (
	VirtualLeftColumn  = "<"
	VirtualRightColumn = ">"
)

// columnTable is a validated bidirectional letter/index lookup for one system.
type columnTable struct {
	letters []string
	index   map[string]int
}

var columnTables = buildColumnTables(ColumnsABC, ColumnsNoJ, ColumnsNoI)

func buildColumnTables(systems ...ColumnSystem) map[ColumnSystem]*columnTable {
	tables := make(map[ColumnSystem]*columnTable, len(systems))
	for _, sys := range systems {
		if len(sys) != ColumnsPerPanel {
			panic(fmt.Sprintf("grid: column system %q must have %d letters", sys, ColumnsPerPanel))
		}
		t := &columnTable{index: make(map[string]int, ColumnsPerPanel)}
		for i, r := range string(sys) {
			letter := string(r)
			t.letters = append(t.letters, letter)
			t.index[letter] = i
		}
		tables[sys] = t
	}
	return tables
}

// ColumnSystems lists the predefined systems in a stable order.
func ColumnSystems() []ColumnSystem {
	return []ColumnSystem{ColumnsABC, ColumnsNoJ, ColumnsNoI}
}

// ParseColumnSystem resolves a textual system. The empty string selects the
// canonical system.
func ParseColumnSystem(s string) (ColumnSystem, error) {
	if s == "" {
		return CanonicalColumns, nil
	}
	sys := ColumnSystem(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := columnTables[sys]; !ok {
		return "", wallerr.Validationf(s, "unknown column system %q (valid: %s)", s, joinSystems())
	}
	return sys, nil
}

// Validate reports whether sys is one of the predefined systems.
func (sys ColumnSystem) Validate() error {
	_, err := sys.table()
	return err
}

func (sys ColumnSystem) table() (*columnTable, error) {
	if sys == "" {
		sys = CanonicalColumns
	}
	t, ok := columnTables[sys]
	if !ok {
		return nil, wallerr.Validationf(string(sys), "unknown column system %q (valid: %s)", string(sys), joinSystems())
	}
	return t, nil
}

func joinSystems() string {
	names := make([]string, 0, len(columnTables))
	for _, sys := range ColumnSystems() {
		names = append(names, string(sys))
	}
	return strings.Join(names, ", ")
}

// ColumnIndex returns the 0-based slot of column in sys.
func ColumnIndex(column string, sys ColumnSystem) (int, error) {
	t, err := sys.table()
	if err != nil {
		return 0, err
	}
	idx, ok := t.index[strings.ToUpper(column)]
	if !ok {
		return 0, wallerr.Validationf(column, "invalid column %q for system %s (valid: %s)",
			column, string(sys), strings.Join(t.letters, ","))
	}
	return idx, nil
}

// ColumnLetter returns the letter at the 0-based slot index in sys.
func ColumnLetter(index int, sys ColumnSystem) (string, error) {
	t, err := sys.table()
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(t.letters) {
		return "", wallerr.Validationf(fmt.Sprint(index), "column index %d out of range (valid: 0-%d)",
			index, len(t.letters)-1)
	}
	return t.letters[index], nil
}

// ConvertColumn maps column from one system to another, keeping the slot.
func ConvertColumn(column string, from, to ColumnSystem) (string, error) {
	idx, err := ColumnIndex(column, from)
	if err != nil {
		return "", err
	}
	return ColumnLetter(idx, to)
}

// AnchorColumnIndex is ColumnIndex extended with the virtual anchor columns,
// which resolve to -1 and ColumnsPerPanel.
func AnchorColumnIndex(column string, sys ColumnSystem) (int, error) {
	switch column {
	case VirtualLeftColumn:
		return -1, nil
	case VirtualRightColumn:
		return ColumnsPerPanel, nil
	}
	return ColumnIndex(column, sys)
}

// ConvertAnchorColumn is ConvertColumn that passes virtual columns through.
func ConvertAnchorColumn(column string, from, to ColumnSystem) (string, error) {
	if column == VirtualLeftColumn || column == VirtualRightColumn {
		return column, nil
	}
	return ConvertColumn(column, from, to)
}
