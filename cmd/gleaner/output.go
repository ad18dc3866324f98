package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/use-agent/gleaner/document"
)

// render writes the extracted rows to stdout in the selected format.
// Column order follows the first row; rows only guarantee a stable
// column-ordered mapping, serialization beyond that is this layer's call.
func render(rows []document.Row) error {
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no rows extracted")
		return nil
	}

	switch outputFormat {
	case "csv":
		return renderCSV(rows)
	case "table":
		renderTable(rows)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}

func renderTable(rows []document.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	header := make(table.Row, 0)
	for _, c := range rows[0].Columns() {
		header = append(header, c)
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, 0)
		for _, cell := range r.Cells() {
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	t.Render()
}

func renderCSV(rows []document.Row) error {
	w := csv.NewWriter(os.Stdout)
	if err := w.Write(rows[0].Columns()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(r.Cells()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
