package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"pnl/internal/core"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// indentName shows the tree shape in the first column.
func indentName(name string, level int) string {
	return strings.Repeat("  ", max(level, 0)) + name
}

func renderReport(w io.Writer, r *core.Report) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "CATEGORY\tCODE\t%s\t\n", r.Period.Label)
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", indentName(row.Name, row.Level), row.Code, row.Formatted)
	}
	return tw.Flush()
}

func renderGrid(w io.Writer, g *core.Grid) error {
	columns := make([]string, len(g.Periods))
	for i, p := range g.Periods {
		columns[i] = p.ID
	}
	return renderTable(w, columns, g.Rows)
}

func renderComparison(w io.Writer, c *core.Comparison) error {
	return renderTable(w, c.Columns, c.Rows)
}

func renderTable(w io.Writer, columns []string, rows []core.TableRow) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "CATEGORY\t%s\t\n", strings.Join(columns, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = row.Values[col]
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", indentName(row.Name, row.Level), strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func renderWarnings(w io.Writer, warnings []string) error {
	if len(warnings) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%d warning(s):\n", len(warnings)); err != nil {
		return err
	}
	for _, msg := range warnings {
		if _, err := fmt.Fprintf(w, "  - %s\n", msg); err != nil {
			return err
		}
	}
	return nil
}
