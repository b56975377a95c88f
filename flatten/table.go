package flatten

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/use-agent/cadastre/models"
)

// Table aligns many flat rows by column name. Columns appear in the order
// they were first seen; a row without a column holds a nil cell there.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable builds the column-aligned union of rows.
func NewTable(rows []*models.FlatRow) *Table {
	t := &Table{}
	index := make(map[string]int)
	for _, row := range rows {
		for p := row.Oldest(); p != nil; p = p.Next() {
			if _, ok := index[p.Key]; !ok {
				index[p.Key] = len(t.Columns)
				t.Columns = append(t.Columns, p.Key)
			}
		}
	}

	t.Rows = make([][]any, 0, len(rows))
	for _, row := range rows {
		cells := make([]any, len(t.Columns))
		for p := row.Oldest(); p != nil; p = p.Next() {
			cells[index[p.Key]] = p.Value
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// Vertical lays a single row out as column/value pairs, which reads better
// in a terminal than one very wide line.
func Vertical(row *models.FlatRow) *Table {
	t := &Table{Columns: []string{"column", "value"}}
	for p := row.Oldest(); p != nil; p = p.Next() {
		t.Rows = append(t.Rows, []any{p.Key, p.Value})
	}
	return t
}

// WriteCSV writes a header line and one line per row; nil cells are empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, cells := range t.Rows {
		for i, v := range cells {
			record[i] = FormatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the rows as a JSON array of objects carrying every
// column, with null for cells a row does not have.
func (t *Table) WriteJSON(w io.Writer) error {
	out := make([]*models.FlatRow, 0, len(t.Rows))
	for _, cells := range t.Rows {
		obj := models.NewFlatRow()
		for i, col := range t.Columns {
			obj.Set(col, cells[i])
		}
		out = append(out, obj)
	}
	return json.NewEncoder(w).Encode(out)
}

// Render draws the table for a terminal ("table") or as "markdown".
func (t *Table) Render(w io.Writer, format string) error {
	tw := prettytable.NewWriter()
	tw.SetOutputMirror(w)

	header := make(prettytable.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for _, cells := range t.Rows {
		row := make(prettytable.Row, len(cells))
		for i, v := range cells {
			row[i] = FormatCell(v)
		}
		tw.AppendRow(row)
	}

	switch format {
	case "table", "":
		tw.Render()
	case "markdown":
		tw.RenderMarkdown()
	default:
		return fmt.Errorf("flatten: unknown render format %q", format)
	}
	return nil
}

// FormatCell renders a cell value for text output. Whole floats print
// without a fractional part.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
