// Package summary pivots a ledger into a month by category table.
//
// Rows are the distinct months found in the ledger, ascending. Columns are the
// distinct category labels in lexical byte order, so the layout does not depend
// on the order rows were entered. Cells hold the sum of the amounts recorded
// for that month and category, zero where nothing was recorded.
package summary

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

var (
	// ErrInvalidDate is returned when a row's date cannot be read as a calendar date.
	ErrInvalidDate = errors.New("summary: unparseable date")
	// ErrInvalidAmount is returned when a row's amount is not numeric.
	ErrInvalidAmount = errors.New("summary: non-numeric amount")
)

// Table is the pivoted summary. Cells[i][j] is the total for Months[i] and Categories[j].
type Table struct {
	Months     []core.Month
	Categories []string
	Cells      [][]decimal.Decimal
}

type groupKey struct {
	month    core.Month
	category string
}

// Build aggregates the ledger. A single unreadable date or amount fails the whole build.
func Build(expenses []core.Expense) (Table, error) {
	sums := make(map[groupKey]decimal.Decimal)
	months := make(map[core.Month]struct{})
	categories := make(map[string]struct{})

	for i, e := range expenses {
		m, err := e.Month()
		if err != nil {
			return Table{}, fmt.Errorf("%w: row %d: %v", ErrInvalidDate, i, err)
		}
		v, err := e.Value()
		if err != nil {
			return Table{}, fmt.Errorf("%w: row %d: %v", ErrInvalidAmount, i, err)
		}
		k := groupKey{month: m, category: e.Category}
		sums[k] = sums[k].Add(v)
		months[m] = struct{}{}
		categories[e.Category] = struct{}{}
	}

	t := Table{
		Months:     make([]core.Month, 0, len(months)),
		Categories: make([]string, 0, len(categories)),
	}
	for m := range months {
		t.Months = append(t.Months, m)
	}
	sort.Slice(t.Months, func(i, j int) bool { return t.Months[i].Before(t.Months[j]) })
	for c := range categories {
		t.Categories = append(t.Categories, c)
	}
	sort.Strings(t.Categories)

	t.Cells = make([][]decimal.Decimal, len(t.Months))
	for i, m := range t.Months {
		row := make([]decimal.Decimal, len(t.Categories))
		for j, c := range t.Categories {
			row[j] = sums[groupKey{month: m, category: c}]
		}
		t.Cells[i] = row
	}
	return t, nil
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Months) == 0
}

// Cell returns the total for a month and category, zero when either is absent.
func (t Table) Cell(m core.Month, category string) decimal.Decimal {
	i := sort.Search(len(t.Months), func(i int) bool { return !t.Months[i].Before(m) })
	if i == len(t.Months) || t.Months[i] != m {
		return decimal.Zero
	}
	j := sort.SearchStrings(t.Categories, category)
	if j == len(t.Categories) || t.Categories[j] != category {
		return decimal.Zero
	}
	return t.Cells[i][j]
}

// RowTotal sums row i.
func (t Table) RowTotal(i int) decimal.Decimal {
	return decimal.Sum(decimal.Zero, t.Cells[i]...)
}

// ColumnTotal sums column j.
func (t Table) ColumnTotal(j int) decimal.Decimal {
	total := decimal.Zero
	for _, row := range t.Cells {
		total = total.Add(row[j])
	}
	return total
}

// Total sums every cell.
func (t Table) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range t.Cells {
		total = total.Add(t.RowTotal(i))
	}
	return total
}
