package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Envelope is the JSON shape of every command result.
type Envelope struct {
	Data  any      `json:"data"`
	Meta  any      `json:"meta,omitempty"`
	Hints []string `json:"_hints,omitempty"`
}

// Table is a plain-text rendering of a result. Struck marks rows drawn
// with strike-through (completed tasks).
type Table struct {
	Headers []string
	Rows    [][]string
	Struck  []bool
}

// Tabler is implemented by results that have a table form.
type Tabler interface {
	Table() Table
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - table (falls back to json for results without a table form)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "table":
		if t, ok := tablerOf(v); ok {
			return WriteTable(w, t.Table())
		}
		return WriteJSON(w, v, true)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func tablerOf(v any) (Tabler, bool) {
	if e, ok := v.(Envelope); ok {
		v = e.Data
	}
	t, ok := v.(Tabler)
	return t, ok
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	struckStyle = cellStyle.Strikethrough(true).Faint(true)
)

// WriteTable renders t with a rounded border.
func WriteTable(w io.Writer, t Table) error {
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(w, "(none)")
		return err
	}
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(t.Struck) && t.Struck[row] {
				return struckStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}
