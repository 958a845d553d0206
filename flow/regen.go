package flow

import (
	"strconv"
)

// RowRenderer turns one dataset record into cell texts in declared column
// order. Records are opaque to the engine - it only requires that the fields
// the renderer reads are present.
type RowRenderer[T any] func(record T) []string

// Regenerate clears all data rows of the table keeping the header, then
// appends one row per record in dataset order. Clearing first makes the
// operation idempotent: re-running the whole pipeline against the same
// template never accumulates duplicate rows. Callers are responsible for any
// desired record ordering.
func Regenerate[T any](t *Table, dataset []T, render RowRenderer[T]) error {
	if err := t.ClearDataRows(); err != nil {
		return err
	}
	for i := range dataset {
		t.AppendRow(render(dataset[i])...)
	}
	return nil
}

// Specification of table cell text alignment.
// ENUM(left, center, right)
type CellAlignment int

const (
	AlignLeft CellAlignment = iota
	AlignCenter
	AlignRight
)

func (a CellAlignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// ParseCellAlignment maps a configuration value to alignment. Anything
// unrecognized, the empty string included, falls back to left.
func ParseCellAlignment(s string) CellAlignment {
	switch s {
	case "center":
		return AlignCenter
	case "right":
		return AlignRight
	default:
		return AlignLeft
	}
}

// TableStyle describes the optional cosmetic pass over a regenerated table.
// Styling is separate from data population so that a styling change or
// failure never blocks the data.
type TableStyle struct {
	HeaderShading string
	HeaderBold    bool
	HeaderAlign   CellAlignment
	Borders       bool
}

// ApplyTableStyle restyles the table in place. Safe on empty tables.
func ApplyTableStyle(t *Table, style TableStyle) {
	t.Borders = style.Borders
	if len(t.Rows) == 0 {
		return
	}
	header := t.Rows[0].Cells
	for i := range header {
		if style.HeaderShading != "" {
			header[i].Shading = style.HeaderShading
		}
		header[i].Align = style.HeaderAlign
		if style.HeaderBold {
			for j := range header[i].Para.Runs {
				header[i].Para.Runs[j].Bold = true
			}
		}
	}
}

// FormatCount renders an integer-typed field without a decimal point.
func FormatCount(n int) string {
	return strconv.Itoa(n)
}

// FormatPercent renders a percentage with fixed 2-decimal rounding and a
// trailing percent sign.
func FormatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 2, 64) + "%"
}
