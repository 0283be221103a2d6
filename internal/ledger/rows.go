package ledger

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"expenses/internal/core"
)

type layout struct {
	date, amount, description, category, id int
}

// DecodeRows converts a header-led matrix of cells into expenses.
// Columns are located by header name, case-insensitively, so files whose
// columns were reordered by hand still load. The ID column is optional;
// rows without an ID come back with an empty one.
func DecodeRows(rows [][]string) ([]core.Expense, error) {
	if len(rows) == 0 {
		return []core.Expense{}, nil
	}
	headers := rows[0]
	l := layout{
		date:        indexOf(headers, "Date"),
		amount:      indexOf(headers, "Amount"),
		description: indexOf(headers, "Description"),
		category:    indexOf(headers, "Category"),
		id:          indexOf(headers, "ID"),
	}
	var missing []string
	for name, idx := range map[string]int{"Date": l.date, "Amount": l.amount, "Description": l.description, "Category": l.category} {
		if idx == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("unexpected ledger header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := make([]core.Expense, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, core.Expense{
			ID:          strings.TrimSpace(safeGet(row, l.id)),
			Date:        strings.TrimSpace(safeGet(row, l.date)),
			Amount:      strings.TrimSpace(safeGet(row, l.amount)),
			Description: safeGet(row, l.description),
			Category:    safeGet(row, l.category),
		})
	}
	return out, nil
}

// EncodeRows renders expenses as a header-led matrix in core.Columns order.
// Amounts that a float64 holds exactly become number cells so spreadsheet
// tools can sum them; anything else is written as the text the user entered.
func EncodeRows(expenses []core.Expense) [][]any {
	rows := make([][]any, 0, len(expenses)+1)
	header := make([]any, len(core.Columns))
	for i, c := range core.Columns {
		header[i] = c
	}
	rows = append(rows, header)
	for _, e := range expenses {
		rows = append(rows, []any{e.Date, AmountCell(e.Amount), e.Description, e.Category, e.ID})
	}
	return rows
}

// AmountCell returns the cell value for an amount. The result is a float64
// only when it prints back as the same text, so reading the cell returns
// the amount as entered.
func AmountCell(amount string) any {
	f, err := strconv.ParseFloat(amount, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || strconv.FormatFloat(f, 'f', -1, 64) != amount {
		return amount
	}
	return f
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

