package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"expenses/internal/core"
	"expenses/internal/summary"
)

// ExpenseBody is an expense as the API returns it.
type ExpenseBody struct {
	ID          string `json:"id" doc:"Stable identifier"`
	Position    int    `json:"position" doc:"Current row index in the ledger"`
	Date        string `json:"date" doc:"Date as stored"`
	Amount      string `json:"amount" doc:"Amount as entered"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// DraftBody carries the fields of a create or update.
type DraftBody struct {
	Date        string `json:"date,omitempty" doc:"YYYY-MM-DD; defaults to today on create and is kept on update"`
	Amount      string `json:"amount" doc:"Amount; non-numeric text is stored as is"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ExpenseListBody is a filtered listing with its total.
type ExpenseListBody struct {
	Expenses []ExpenseBody `json:"expenses"`
	Total    string        `json:"total,omitempty" doc:"Sum of the listed amounts; absent when one of them is not numeric"`
}

// SummaryBody is the month by category pivot. Cells[i][j] is the total for Months[i] and Categories[j].
type SummaryBody struct {
	Months     []string   `json:"months"`
	Categories []string   `json:"categories"`
	Cells      [][]string `json:"cells"`
	Total      string     `json:"total"`
}

type ListExpensesInput struct {
	Date     string `query:"date" doc:"Exact date filter"`
	Category string `query:"category" doc:"Exact category filter"`
}

type ListExpensesOutput struct {
	Body ExpenseListBody
}

type ExpenseIDInput struct {
	ID string `path:"id" doc:"Expense identifier"`
}

type CreateExpenseInput struct {
	Body DraftBody
}

type UpdateExpenseInput struct {
	ID   string `path:"id" doc:"Expense identifier"`
	Body DraftBody
}

type ExpenseOutput struct {
	Status int
	Body   ExpenseBody
}

type SummaryOutput struct {
	Body SummaryBody
}

type expenseAPI struct {
	service ExpenseService
}

// RegisterAPI registers the /api/v1 operations.
func RegisterAPI(api huma.API, service ExpenseService) {
	h := &expenseAPI{service: service}
	tags := []string{"Expenses"}

	huma.Register(api, huma.Operation{
		OperationID: "list-expenses",
		Method:      http.MethodGet,
		Path:        "/api/v1/expenses",
		Summary:     "List expenses",
		Tags:        tags,
	}, h.list)

	huma.Register(api, huma.Operation{
		OperationID: "get-expense",
		Method:      http.MethodGet,
		Path:        "/api/v1/expenses/{id}",
		Summary:     "Get an expense",
		Tags:        tags,
	}, h.get)

	huma.Register(api, huma.Operation{
		OperationID:   "create-expense",
		Method:        http.MethodPost,
		Path:          "/api/v1/expenses",
		Summary:       "Create an expense",
		DefaultStatus: http.StatusCreated,
		Tags:          tags,
	}, h.create)

	huma.Register(api, huma.Operation{
		OperationID: "update-expense",
		Method:      http.MethodPut,
		Path:        "/api/v1/expenses/{id}",
		Summary:     "Update an expense",
		Description: "Changes amount, description and category. The date changes only when sent.",
		Tags:        tags,
	}, h.update)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-expense",
		Method:        http.MethodDelete,
		Path:          "/api/v1/expenses/{id}",
		Summary:       "Delete an expense",
		DefaultStatus: http.StatusNoContent,
		Tags:          tags,
	}, h.remove)

	huma.Register(api, huma.Operation{
		OperationID: "get-summary",
		Method:      http.MethodGet,
		Path:        "/api/v1/summary",
		Summary:     "Month by category summary",
		Tags:        []string{"Summary"},
	}, h.getSummary)
}

func toBody(e core.Entry) ExpenseBody {
	return ExpenseBody{
		ID:          e.Expense.ID,
		Position:    e.Position,
		Date:        e.Expense.Date,
		Amount:      e.Expense.Amount,
		Description: e.Expense.Description,
		Category:    e.Expense.Category,
	}
}

func toDraft(b DraftBody) core.Draft {
	return core.Draft{
		Date:        b.Date,
		Amount:      b.Amount,
		Description: sanitizeInput(b.Description),
		Category:    sanitizeInput(b.Category),
	}
}

// apiError maps service errors to problem responses.
func apiError(msg string, err error) error {
	switch statusFor(err) {
	case http.StatusNotFound:
		return huma.Error404NotFound(msg, err)
	case http.StatusBadRequest:
		return huma.Error400BadRequest(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}

func (h *expenseAPI) list(ctx context.Context, input *ListExpensesInput) (*ListExpensesOutput, error) {
	listing, err := h.service.List(ctx, core.Filter{Date: input.Date, Category: input.Category})
	if err != nil {
		return nil, apiError("failed to list expenses", err)
	}

	out := &ListExpensesOutput{Body: ExpenseListBody{Expenses: make([]ExpenseBody, 0, len(listing.Entries))}}
	for _, e := range listing.Entries {
		out.Body.Expenses = append(out.Body.Expenses, toBody(e))
	}
	if listing.TotalOK {
		out.Body.Total = listing.Total.StringFixed(2)
	}
	return out, nil
}

func (h *expenseAPI) get(ctx context.Context, input *ExpenseIDInput) (*ExpenseOutput, error) {
	entry, err := h.service.Get(ctx, core.ByID(input.ID))
	if err != nil {
		return nil, apiError("expense not found", err)
	}
	return &ExpenseOutput{Status: http.StatusOK, Body: toBody(entry)}, nil
}

func (h *expenseAPI) create(ctx context.Context, input *CreateExpenseInput) (*ExpenseOutput, error) {
	e, err := h.service.Create(ctx, toDraft(input.Body))
	if err != nil {
		return nil, apiError("failed to create expense", err)
	}
	entry, err := h.service.Get(ctx, core.ByID(e.ID))
	if err != nil {
		return nil, apiError("expense created but could not be read back", err)
	}
	return &ExpenseOutput{Status: http.StatusCreated, Body: toBody(entry)}, nil
}

func (h *expenseAPI) update(ctx context.Context, input *UpdateExpenseInput) (*ExpenseOutput, error) {
	if _, err := h.service.Update(ctx, core.ByID(input.ID), toDraft(input.Body)); err != nil {
		return nil, apiError("failed to update expense", err)
	}
	entry, err := h.service.Get(ctx, core.ByID(input.ID))
	if err != nil {
		return nil, apiError("expense updated but could not be read back", err)
	}
	return &ExpenseOutput{Status: http.StatusOK, Body: toBody(entry)}, nil
}

func (h *expenseAPI) remove(ctx context.Context, input *ExpenseIDInput) (*struct{}, error) {
	if err := h.service.Delete(ctx, core.ByID(input.ID)); err != nil {
		return nil, apiError("failed to delete expense", err)
	}
	return nil, nil
}

func (h *expenseAPI) getSummary(ctx context.Context, _ *struct{}) (*SummaryOutput, error) {
	t, err := h.service.Summary(ctx)
	if err != nil {
		if errors.Is(err, summary.ErrInvalidAmount) || errors.Is(err, summary.ErrInvalidDate) {
			return nil, huma.Error500InternalServerError("the ledger cannot be summarized", err)
		}
		return nil, apiError("failed to load the ledger", err)
	}
	return &SummaryOutput{Body: summaryBody(t)}, nil
}

func summaryBody(t summary.Table) SummaryBody {
	b := SummaryBody{
		Months:     make([]string, len(t.Months)),
		Categories: append([]string{}, t.Categories...),
		Cells:      make([][]string, len(t.Months)),
		Total:      t.Total().StringFixed(2),
	}
	for i, m := range t.Months {
		b.Months[i] = m.String()
		row := make([]string, len(t.Categories))
		for j := range t.Categories {
			row[j] = t.Cells[i][j].StringFixed(2)
		}
		b.Cells[i] = row
	}
	return b
}
