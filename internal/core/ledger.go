package core

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Ref addresses one expense, by stable ID or by current position.
type Ref struct {
	ID       string
	Position int
}

// ByID references an expense by its identifier.
func ByID(id string) Ref {
	return Ref{ID: id, Position: -1}
}

// ByPosition references an expense by its row index.
func ByPosition(i int) Ref {
	return Ref{Position: i}
}

func (r Ref) String() string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	return "position:" + strconv.Itoa(r.Position)
}

// Locate returns the current position of the referenced expense.
func Locate(items []Expense, ref Ref) (int, error) {
	if ref.ID != "" {
		for i, e := range items {
			if e.ID == ref.ID {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w: %s", ErrNotFound, ref.ID)
	}
	if ref.Position < 0 || ref.Position >= len(items) {
		return -1, fmt.Errorf("%w: %d (ledger has %d rows)", ErrPositionOutOfRange, ref.Position, len(items))
	}
	return ref.Position, nil
}

// ReplaceAt returns a copy of items with position i replaced by e.
func ReplaceAt(items []Expense, i int, e Expense) ([]Expense, error) {
	if i < 0 || i >= len(items) {
		return nil, fmt.Errorf("%w: %d", ErrPositionOutOfRange, i)
	}
	out := append([]Expense(nil), items...)
	out[i] = e
	return out, nil
}

// RemoveAt returns a copy of items without position i; later rows shift down by one.
func RemoveAt(items []Expense, i int) ([]Expense, error) {
	if i < 0 || i >= len(items) {
		return nil, fmt.Errorf("%w: %d", ErrPositionOutOfRange, i)
	}
	out := make([]Expense, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...), nil
}

// List applies the filter and totals the matching amounts.
func List(items []Expense, f Filter) Listing {
	l := Listing{Entries: make([]Entry, 0, len(items)), Total: decimal.Zero, TotalOK: true}
	for i, e := range items {
		if !f.Match(e) {
			continue
		}
		l.Entries = append(l.Entries, Entry{Position: i, Expense: e})
		if !l.TotalOK {
			continue
		}
		v, err := e.Value()
		if err != nil {
			l.TotalOK = false
			l.Total = decimal.Zero
			continue
		}
		l.Total = l.Total.Add(v)
	}
	return l
}

// Categories returns the distinct categories in first-seen order.
func Categories(items []Expense) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, e := range items {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	return out
}

// EnsureIDs assigns identifiers to rows that lack one and reports whether any changed.
func EnsureIDs(items []Expense) bool {
	changed := false
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = NewID()
			changed = true
		}
	}
	return changed
}
