package sprite

import (
	"fmt"
	"strings"
)

// AnimationRow names one row of a generated sheet.
type AnimationRow int

const (
	RowIdle AnimationRow = iota
	RowHappyLove
	RowExcitedCelebrate
	RowSleepySnoring
	RowWorking
	RowAngryShy
	RowDragging
)

// RowLabel is the display text for an AnimationRow.
type RowLabel struct {
	Title       string
	Description string
}

var rowLabels = [...]RowLabel{
	RowIdle:             {"Idle", "Breathing & Blinking"},
	RowHappyLove:        {"Happy / Love", "Heart expressions"},
	RowExcitedCelebrate: {"Excited", "Celebration & Joy"},
	RowSleepySnoring:    {"Sleepy", "Closed eyes breathing"},
	RowWorking:          {"Working", "Using tools/screens"},
	RowAngryShy:         {"Angry / Shy", "Surprised or upset"},
	RowDragging:         {"Dragging", "Motion / Being pulled"},
}

var rowNames = [...]string{
	RowIdle:             "idle",
	RowHappyLove:        "happy",
	RowExcitedCelebrate: "excited",
	RowSleepySnoring:    "sleepy",
	RowWorking:          "working",
	RowAngryShy:         "angry",
	RowDragging:         "dragging",
}

// AnimationRows returns all named rows in sheet order.
func AnimationRows() []AnimationRow {
	rows := make([]AnimationRow, len(rowLabels))
	for i := range rows {
		rows[i] = AnimationRow(i)
	}
	return rows
}

// Valid reports whether r is one of the named rows.
func (r AnimationRow) Valid() bool {
	return r >= 0 && int(r) < len(rowLabels)
}

// Label returns the title and description of r. Rows outside the named set
// (custom grids with more rows) get a generic label.
func (r AnimationRow) Label() RowLabel {
	if !r.Valid() {
		return RowLabel{Title: fmt.Sprintf("Row %d", int(r)+1)}
	}
	return rowLabels[r]
}

// String returns the short lower-case name of r.
func (r AnimationRow) String() string {
	if !r.Valid() {
		return fmt.Sprintf("row%d", int(r))
	}
	return rowNames[r]
}

// ParseAnimationRow accepts a short name ("sleepy"), a title ("Sleepy"),
// or a zero-based index ("3").
func ParseAnimationRow(s string) (AnimationRow, error) {
	s = strings.TrimSpace(s)
	for i, name := range rowNames {
		if strings.EqualFold(s, name) || strings.EqualFold(s, rowLabels[i].Title) {
			return AnimationRow(i), nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && n >= 0 {
		return AnimationRow(n), nil
	}
	return 0, fmt.Errorf("sprite: unknown animation row %q", s)
}
