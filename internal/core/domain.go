package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type (
	// Expense is one ledger row. Amount and Date keep the text the user
	// entered; numeric and calendar views are derived on demand.
	Expense struct {
		ID          string
		Date        string
		Amount      string
		Description string
		Category    string
	}

	// Draft carries user-supplied fields for a create or an edit.
	Draft struct {
		Date        string
		Amount      string
		Description string
		Category    string
	}

	// Entry is an expense together with its current position in the ledger.
	Entry struct {
		Position int
		Expense  Expense
	}

	// Filter selects expenses by exact date and/or category. Empty fields match everything.
	Filter struct {
		Date     string
		Category string
	}

	// Listing is a filtered view of the ledger with its total.
	Listing struct {
		Entries []Entry
		Total   decimal.Decimal
		// TotalOK is false when a listed amount is not numeric.
		TotalOK bool
	}
)

var (
	ErrNotFound           = errors.New("expense not found")
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
)

// Columns is the header of every tabular ledger representation.
var Columns = []string{"Date", "Amount", "Description", "Category", "ID"}

// NewID returns a fresh stable identifier for an expense.
func NewID() string {
	return uuid.NewString()
}

// NewExpense builds a record from a draft. The date defaults to the day of now.
func NewExpense(d Draft, now time.Time) Expense {
	date := strings.TrimSpace(d.Date)
	if date == "" {
		date = now.Format(DateLayout)
	}
	return Expense{
		ID:          NewID(),
		Date:        date,
		Amount:      strings.TrimSpace(d.Amount),
		Description: d.Description,
		Category:    d.Category,
	}
}

// Apply returns e with the draft's amount, description and category.
// The date changes only when the draft carries one.
func (e Expense) Apply(d Draft) Expense {
	e.Amount = strings.TrimSpace(d.Amount)
	e.Description = d.Description
	e.Category = d.Category
	if date := strings.TrimSpace(d.Date); date != "" {
		e.Date = date
	}
	return e
}

// Value parses the amount.
func (e Expense) Value() (decimal.Decimal, error) {
	return ParseAmount(e.Amount)
}

// Month parses the date and truncates it to its month.
func (e Expense) Month() (Month, error) {
	t, err := ParseDate(e.Date)
	if err != nil {
		return Month{}, err
	}
	return MonthOf(t), nil
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Expense) bool {
	if f.Date != "" && e.Date != f.Date {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	return true
}

// IsZero reports whether the filter selects everything.
func (f Filter) IsZero() bool {
	return f.Date == "" && f.Category == ""
}
