package db

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// SimpleTable renders rows as an ASCII grid.
type SimpleTable struct {
	writer    io.Writer
	headers   []string
	alignment []Alignment
	rows      [][]string
}

func NewTable(w io.Writer) *SimpleTable {
	return &SimpleTable{writer: w}
}

func (t *SimpleTable) Header(headers []string) {
	t.headers = headers
}

// Align sets the alignment of each column. Columns without an entry are
// left aligned.
func (t *SimpleTable) Align(alignment ...Alignment) {
	t.alignment = alignment
}

func (t *SimpleTable) Row(row []string) {
	t.rows = append(t.rows, row)
}

func (t *SimpleTable) Bulk(rows [][]string) {
	t.rows = append(t.rows, rows...)
}

// Render writes the grid. Nothing is written for an empty table.
func (t *SimpleTable) Render() {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return
	}

	widths := t.widths()
	rule := ruleLine(widths)

	var sb strings.Builder
	sb.WriteString(rule)
	if len(t.headers) > 0 {
		sb.WriteString(t.line(t.headers, widths, false))
		sb.WriteString(rule)
	}
	for _, row := range t.rows {
		sb.WriteString(t.line(row, widths, true))
	}
	sb.WriteString(rule)

	fmt.Fprint(t.writer, sb.String())
}

func (t *SimpleTable) widths() []int {
	columns := len(t.headers)
	for _, row := range t.rows {
		columns = max(columns, len(row))
	}

	widths := make([]int, columns)
	for _, row := range append([][]string{t.headers}, t.rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell), 1)
		}
	}
	return widths
}

func (t *SimpleTable) alignmentOf(column int) Alignment {
	if column < len(t.alignment) {
		return t.alignment[column]
	}
	return AlignLeft
}

func ruleLine(widths []int) string {
	var sb strings.Builder
	for _, w := range widths {
		sb.WriteString("+" + strings.Repeat("-", w+2))
	}
	sb.WriteString("+\n")
	return sb.String()
}

// line pads every cell to its column width. Header cells are always left
// aligned.
func (t *SimpleTable) line(row []string, widths []int, aligned bool) string {
	var sb strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		padding := strings.Repeat(" ", w-utf8.RuneCountInString(cell))

		sb.WriteString("| ")
		if aligned && t.alignmentOf(i) == AlignRight {
			sb.WriteString(padding + cell)
		} else {
			sb.WriteString(cell + padding)
		}
		sb.WriteString(" ")
	}
	sb.WriteString("|\n")
	return sb.String()
}
