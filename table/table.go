// Package table renders aligned, optionally colored text tables.
package table

import (
	"fmt"
	"io"
	"strings"

	"vmpatch/coloransi"
)

// FormatFunc is a callback to format/colorize cell values
type FormatFunc func(value string) string

// ColumnSpec defines a column's properties
type ColumnSpec struct {
	Header     string
	BlankValue string     // Value to show for empty cells (default: "-")
	FormatFunc FormatFunc // Optional formatter/colorizer
	MinWidth   int
	AlignRight bool
}

type row struct {
	cells     []string
	separator bool
}

// Table collects rows and renders them with every column padded to its
// widest cell.
type Table struct {
	columns []ColumnSpec
	rows    []row
	widths  []int
}

// New creates a table with the given column specifications.
func New(cols ...ColumnSpec) *Table {
	t := &Table{
		columns: cols,
		widths:  make([]int, len(cols)),
	}

	for i, col := range cols {
		t.widths[i] = max(col.MinWidth, VisibleLength(col.Header))
		if t.columns[i].BlankValue == "" {
			t.columns[i].BlankValue = "-"
		}
	}

	return t
}

// AddRow adds a row. Missing and empty cells get the column's BlankValue;
// extra cells are dropped.
func (t *Table) AddRow(data ...string) {
	cells := make([]string, len(t.columns))
	for i := range cells {
		if i < len(data) && data[i] != "" {
			cells[i] = data[i]
		} else {
			cells[i] = t.columns[i].BlankValue
		}

		if n := VisibleLength(cells[i]); n > t.widths[i] {
			t.widths[i] = n
		}
	}

	t.rows = append(t.rows, row{cells: cells})
}

// AddSeparator adds a separator line spanning every column.
func (t *Table) AddSeparator() {
	t.rows = append(t.rows, row{separator: true})
}

// Len returns the number of rows, separators included.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the header, a rule and every row to w.
func (t *Table) Render(w io.Writer) error {
	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = t.pad(col.Header, i)
	}
	if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(headers, " "), " ")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, t.rule("-")); err != nil {
		return err
	}

	for _, r := range t.rows {
		if r.separator {
			if _, err := fmt.Fprintln(w, t.rule("-")); err != nil {
				return err
			}
			continue
		}

		formatted := make([]string, len(r.cells))
		for i, val := range r.cells {
			if f := t.columns[i].FormatFunc; f != nil && val != t.columns[i].BlankValue {
				val = f(val)
			}
			formatted[i] = t.pad(val, i)
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(formatted, " "), " ")); err != nil {
			return err
		}
	}

	return nil
}

func (t *Table) rule(char string) string {
	parts := make([]string, len(t.widths))
	for i, width := range t.widths {
		parts[i] = strings.Repeat(char, width)
	}
	return strings.Join(parts, " ")
}

func (t *Table) pad(s string, col int) string {
	n := VisibleLength(s)
	width := t.widths[col]
	if n >= width {
		return s
	}
	fill := strings.Repeat(" ", width-n)
	if t.columns[col].AlignRight {
		return fill + s
	}
	return s + fill
}

// VisibleLength is the number of runes in s outside ANSI SGR escapes.
func VisibleLength(s string) int {
	length := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			length++
		}
	}
	return length
}

// Colorizer returns a FormatFunc painting cells with fg.
func Colorizer(fg coloransi.ColorCode) FormatFunc {
	return func(s string) string {
		return coloransi.Foreground(fg, s)
	}
}

// PermsFormatter colors a /proc/<pid>/maps permission string: writable and
// executable regions are highlighted.
func PermsFormatter(s string) string {
	switch {
	case strings.Contains(s, "w") && strings.Contains(s, "x"):
		return coloransi.Foreground(coloransi.Red, s)
	case strings.Contains(s, "x"):
		return coloransi.Foreground(coloransi.Yellow, s)
	case strings.Contains(s, "w"):
		return coloransi.Foreground(coloransi.Green, s)
	default:
		return s
	}
}
