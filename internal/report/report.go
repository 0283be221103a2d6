// Package report renders the month by category summary for terminals and files.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"expenses/internal/core"
	"expenses/internal/summary"
)

// PivotSheet is the sheet name WriteXLSX uses.
const PivotSheet = "Summary"

// JSONSummary is the --format json document.
type JSONSummary struct {
	Months     []string  `json:"months"`
	Categories []string  `json:"categories"`
	Rows       []JSONRow `json:"rows"`
	Totals     []string  `json:"column_totals"`
	Total      string    `json:"total"`
	Currency   string    `json:"currency"`
}

// JSONRow is one month of the pivot.
type JSONRow struct {
	Month string   `json:"month"`
	Cells []string `json:"cells"`
	Total string   `json:"total"`
}

// PrintTable renders t as a rounded table with a bold totals footer.
func PrintTable(w io.Writer, t summary.Table, f core.Formatter) {
	if t.Empty() {
		fmt.Fprintln(w, "No expenses recorded.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)

	header := table.Row{"Month"}
	for _, c := range t.Categories {
		header = append(header, c)
	}
	header = append(header, "Total")
	tw.AppendHeader(header)

	for i, m := range t.Months {
		row := table.Row{m.String()}
		for _, cell := range t.Cells[i] {
			row = append(row, f.Format(cell))
		}
		row = append(row, f.Format(t.RowTotal(i)))
		tw.AppendRow(row)
	}

	tw.AppendSeparator()
	footer := table.Row{text.Bold.Sprint("Total")}
	for j := range t.Categories {
		footer = append(footer, text.Bold.Sprint(f.Format(t.ColumnTotal(j))))
	}
	footer = append(footer, text.Bold.Sprint(f.Format(t.Total())))
	tw.AppendFooter(footer)

	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault

	// every column after Month holds an amount
	configs := make([]table.ColumnConfig, 0, len(header)-1)
	for n := 2; n <= len(header); n++ {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	tw.Render()
}

// PrintJSON writes t as indented JSON with plain two-decimal amounts.
func PrintJSON(w io.Writer, t summary.Table, currencyCode string) error {
	out := JSONSummary{
		Months:     make([]string, len(t.Months)),
		Categories: append([]string{}, t.Categories...),
		Rows:       make([]JSONRow, len(t.Months)),
		Totals:     make([]string, len(t.Categories)),
		Total:      t.Total().StringFixed(2),
		Currency:   currencyCode,
	}
	for i, m := range t.Months {
		out.Months[i] = m.String()
		out.Rows[i] = JSONRow{Month: m.String(), Cells: fixed(t.Cells[i]), Total: t.RowTotal(i).StringFixed(2)}
	}
	for j := range t.Categories {
		out.Totals[j] = t.ColumnTotal(j).StringFixed(2)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteXLSX saves t as a new workbook at path with numeric cells and a totals row.
func WriteXLSX(path string, t summary.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), PivotSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := []any{"Month"}
	for _, c := range t.Categories {
		header = append(header, c)
	}
	header = append(header, "Total")
	rows := [][]any{header}

	for i, m := range t.Months {
		row := []any{m.String()}
		for _, cell := range t.Cells[i] {
			row = append(row, cell.InexactFloat64())
		}
		rows = append(rows, append(row, t.RowTotal(i).InexactFloat64()))
	}

	totals := []any{"Total"}
	for j := range t.Categories {
		totals = append(totals, t.ColumnTotal(j).InexactFloat64())
	}
	rows = append(rows, append(totals, t.Total().InexactFloat64()))

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(PivotSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("bold style: %w", err)
	}
	lastCol, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(PivotSheet, "A1", lastCol, bold); err != nil {
		return err
	}
	firstTotal, _ := excelize.CoordinatesToCellName(1, len(rows))
	lastTotal, _ := excelize.CoordinatesToCellName(len(header), len(rows))
	if err := f.SetCellStyle(PivotSheet, firstTotal, lastTotal, bold); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func fixed(ds []decimal.Decimal) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.StringFixed(2)
	}
	return out
}
