package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
	"expenses/internal/ledger"
	"expenses/internal/ledger/memory"
	"expenses/internal/services"
	"expenses/internal/summary"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) List(ctx context.Context, f core.Filter) (core.Listing, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(core.Listing), args.Error(1)
}

func (m *mockService) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockService) Create(ctx context.Context, d core.Draft) (core.Expense, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(core.Expense), args.Error(1)
}

func (m *mockService) Get(ctx context.Context, ref core.Ref) (core.Entry, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(core.Entry), args.Error(1)
}

func (m *mockService) Update(ctx context.Context, ref core.Ref, d core.Draft) (core.Expense, error) {
	args := m.Called(ctx, ref, d)
	return args.Get(0).(core.Expense), args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, ref core.Ref) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockService) Summary(ctx context.Context) (summary.Table, error) {
	args := m.Called(ctx)
	return args.Get(0).(summary.Table), args.Error(1)
}

func (m *mockService) Export(ctx context.Context, w io.Writer) (ledger.Export, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(ledger.Export), args.Error(1)
}

func (m *mockService) Today() string {
	return m.Called().String(0)
}

func (m *mockService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestAPI(t *testing.T, svc ExpenseService) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	RegisterAPI(api, svc)
	return api
}

func newMemoryAPI(t *testing.T, items ...core.Expense) (humatest.TestAPI, *memory.Store) {
	t.Helper()
	store := memory.New(items...)
	svc := services.NewExpenseService(store, services.WithClock(func() time.Time { return fixedNow }))
	return newTestAPI(t, svc), store
}

func TestAPI_ListExpenses(t *testing.T) {
	api, _ := newMemoryAPI(t, seed()...)

	resp := api.Get("/api/v1/expenses?category=Food")
	require.Equal(t, http.StatusOK, resp.Code)

	var body ExpenseListBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Expenses, 2)
	assert.Equal(t, "a", body.Expenses[0].ID)
	assert.Equal(t, 0, body.Expenses[0].Position)
	assert.Equal(t, "c", body.Expenses[1].ID)
	assert.Equal(t, 2, body.Expenses[1].Position)
	assert.Equal(t, "30.00", body.Total)
}

func TestAPI_ListExpenses_TextAmountHidesTotal(t *testing.T) {
	api, _ := newMemoryAPI(t, core.Expense{ID: "x", Date: "2024-01-01", Amount: "n/a", Category: "Food"})

	resp := api.Get("/api/v1/expenses")
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotContains(t, body, "total")
	assert.Len(t, body["expenses"], 1)
}

func TestAPI_CreateExpense(t *testing.T) {
	api, store := newMemoryAPI(t, seed()...)

	resp := api.Post("/api/v1/expenses", DraftBody{Amount: "4.20", Description: "snack", Category: "Food"})
	require.Equal(t, http.StatusCreated, resp.Code)

	var body ExpenseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, 3, body.Position)
	assert.Equal(t, "2024-03-15", body.Date)
	assert.Equal(t, "4.20", body.Amount)
	assert.Equal(t, 4, store.Len())
}

func TestAPI_CreateExpense_MissingFields(t *testing.T) {
	svc := new(mockService)

	// Schema validation rejects the request before the handler runs.
	resp := newTestAPI(t, svc).Post("/api/v1/expenses", map[string]any{"amount": "1"})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAPI_UpdateExpense(t *testing.T) {
	api, store := newMemoryAPI(t, seed()...)

	resp := api.Put("/api/v1/expenses/b", DraftBody{Amount: "6", Description: "train", Category: "Transport"})
	require.Equal(t, http.StatusOK, resp.Code)

	var body ExpenseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Position)
	assert.Equal(t, "2024-01-20", body.Date, "date is kept when not sent")

	items, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "train", items[1].Description)
	assert.Equal(t, seed()[0], items[0])
	assert.Equal(t, seed()[2], items[2])
}

func TestAPI_UpdateExpense_NotFound(t *testing.T) {
	api, _ := newMemoryAPI(t, seed()...)

	resp := api.Put("/api/v1/expenses/zzz", DraftBody{Amount: "1", Description: "", Category: ""})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAPI_DeleteExpense(t *testing.T) {
	api, store := newMemoryAPI(t, seed()...)

	resp := api.Delete("/api/v1/expenses/a")
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, 2, store.Len())

	resp = api.Delete("/api/v1/expenses/a")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAPI_GetExpense(t *testing.T) {
	api, _ := newMemoryAPI(t, seed()...)

	resp := api.Get("/api/v1/expenses/c")
	require.Equal(t, http.StatusOK, resp.Code)
	var body ExpenseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "dinner", body.Description)
	assert.Equal(t, 2, body.Position)

	assert.Equal(t, http.StatusNotFound, api.Get("/api/v1/expenses/nope").Code)
}

func TestAPI_Summary(t *testing.T) {
	api, _ := newMemoryAPI(t, seed()...)

	resp := api.Get("/api/v1/summary")
	require.Equal(t, http.StatusOK, resp.Code)

	var body SummaryBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"2024-01", "2024-02"}, body.Months)
	assert.Equal(t, []string{"Food", "Transport"}, body.Categories)
	assert.Equal(t, [][]string{{"10.00", "5.00"}, {"20.00", "0.00"}}, body.Cells)
	assert.Equal(t, "35.00", body.Total)
}

func TestAPI_Summary_Empty(t *testing.T) {
	api, _ := newMemoryAPI(t)

	resp := api.Get("/api/v1/summary")
	require.Equal(t, http.StatusOK, resp.Code)

	var body SummaryBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Months)
	assert.Empty(t, body.Categories)
	assert.Equal(t, "0.00", body.Total)
}

func TestAPI_Summary_Failure(t *testing.T) {
	svc := new(mockService)
	svc.On("Summary", mock.Anything).
		Return(summary.Table{}, fmt.Errorf("summary: %w", summary.ErrInvalidAmount))

	resp := newTestAPI(t, svc).Get("/api/v1/summary")

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	svc.AssertExpectations(t)
}

func TestAPI_ListExpenses_PassesFilter(t *testing.T) {
	svc := new(mockService)
	svc.On("List", mock.Anything, core.Filter{Date: "2024-01-05", Category: "Food"}).
		Return(core.Listing{Total: decimal.RequireFromString("10"), TotalOK: true}, nil)

	resp := newTestAPI(t, svc).Get("/api/v1/expenses?date=2024-01-05&category=Food")

	require.Equal(t, http.StatusOK, resp.Code)
	var body ExpenseListBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Expenses)
	assert.Equal(t, "10.00", body.Total)
	svc.AssertExpectations(t)
}
