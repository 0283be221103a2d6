package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/ledger"
	"expenses/internal/ledger/memory"
	"expenses/internal/summary"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	return m.Called(ctx, msg).Error(0)
}

// wholeStore hides the memory store's row operations so the service takes
// the load-modify-save path.
type wholeStore struct {
	inner *memory.Store
	saves int
}

func (w *wholeStore) Load(ctx context.Context) ([]core.Expense, error) { return w.inner.Load(ctx) }

func (w *wholeStore) Save(ctx context.Context, items []core.Expense) error {
	w.saves++
	return w.inner.Save(ctx, items)
}

type failingStore struct{ err error }

func (f failingStore) Load(context.Context) ([]core.Expense, error) { return nil, f.err }
func (f failingStore) Save(context.Context, []core.Expense) error   { return f.err }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func seed() []core.Expense {
	return []core.Expense{
		{ID: "a", Date: "2024-01-05", Amount: "10", Description: "coffee", Category: "Food"},
		{ID: "b", Date: "2024-01-20", Amount: "5", Description: "bus", Category: "Transport"},
		{ID: "c", Date: "2024-02-01", Amount: "20", Description: "dinner", Category: "Food"},
	}
}

func stores() map[string]func() ledger.Store {
	return map[string]func() ledger.Store{
		"row store":   func() ledger.Store { return memory.New(seed()...) },
		"whole store": func() ledger.Store { return &wholeStore{inner: memory.New(seed()...)} },
	}
}

func TestExpenseService_List(t *testing.T) {
	ctx := context.Background()
	svc := NewExpenseService(memory.New(seed()...))

	all, err := svc.List(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Len(t, all.Entries, 3)
	assert.True(t, all.TotalOK)
	assert.Equal(t, "35", all.Total.String())

	food, err := svc.List(ctx, core.Filter{Category: "Food"})
	require.NoError(t, err)
	require.Len(t, food.Entries, 2)
	assert.Equal(t, 0, food.Entries[0].Position)
	assert.Equal(t, 2, food.Entries[1].Position)
	assert.Equal(t, "30", food.Total.String())

	byDate, err := svc.List(ctx, core.Filter{Date: "2024-01-20"})
	require.NoError(t, err)
	require.Len(t, byDate.Entries, 1)
	assert.Equal(t, "b", byDate.Entries[0].Expense.ID)
}

func TestExpenseService_ListNonNumericTotal(t *testing.T) {
	svc := NewExpenseService(memory.New(core.Expense{ID: "x", Date: "2024-01-01", Amount: "lots"}))
	l, err := svc.List(context.Background(), core.Filter{})
	require.NoError(t, err)
	assert.Len(t, l.Entries, 1)
	assert.False(t, l.TotalOK)
}

func TestExpenseService_Create(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			pub := &mockPublisher{}
			pub.On("PublishLedgerChanged", mock.Anything, mock.MatchedBy(func(m *amqp.LedgerChangedMessage) bool {
				return m.Operation == amqp.OperationCreate && m.ExpenseID != ""
			})).Return(nil).Once()

			store := newStore()
			svc := NewExpenseService(store, WithPublisher(pub), WithClock(func() time.Time { return fixedNow }))

			e, err := svc.Create(ctx, core.Draft{Amount: " 7.50 ", Description: "lunch", Category: "Food"})
			require.NoError(t, err)
			assert.Equal(t, "2024-03-15", e.Date)
			assert.Equal(t, "7.50", e.Amount)
			assert.NotEmpty(t, e.ID)

			items, err := store.Load(ctx)
			require.NoError(t, err)
			require.Len(t, items, 4)
			assert.Equal(t, e, items[3])
			pub.AssertExpectations(t)
		})
	}
}

func TestExpenseService_TodayMatchesCreateDefault(t *testing.T) {
	svc := NewExpenseService(memory.New(), WithClock(func() time.Time { return fixedNow }))
	e, err := svc.Create(context.Background(), core.Draft{Amount: "1", Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", svc.Today())
	assert.Equal(t, svc.Today(), e.Date)
}

func TestExpenseService_CreateKeepsGivenDate(t *testing.T) {
	svc := NewExpenseService(memory.New(), WithClock(func() time.Time { return fixedNow }))
	e, err := svc.Create(context.Background(), core.Draft{Date: "2023-12-31", Amount: "1"})
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", e.Date)
}

func TestExpenseService_Update(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()
			svc := NewExpenseService(store)

			got, err := svc.Update(ctx, core.ByPosition(1), core.Draft{Amount: "6", Description: "tram", Category: "Transport"})
			require.NoError(t, err)
			assert.Equal(t, "b", got.ID)
			assert.Equal(t, "2024-01-20", got.Date, "date unchanged without a draft date")

			items, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, seed()[0], items[0])
			assert.Equal(t, seed()[2], items[2])
			assert.Equal(t, core.Expense{ID: "b", Date: "2024-01-20", Amount: "6", Description: "tram", Category: "Transport"}, items[1])

			got, err = svc.Update(ctx, core.ByID("c"), core.Draft{Date: "2024-02-02", Amount: "21", Category: "Food"})
			require.NoError(t, err)
			assert.Equal(t, "2024-02-02", got.Date)
		})
	}
}

func TestExpenseService_Delete(t *testing.T) {
	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()
			svc := NewExpenseService(store)

			require.NoError(t, svc.Delete(ctx, core.ByPosition(0)))
			items, err := store.Load(ctx)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "b", items[0].ID, "later rows shift down")

			require.NoError(t, svc.Delete(ctx, core.ByID("c")))
			items, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, []core.Expense{seed()[1]}, items)
		})
	}
}

func TestExpenseService_BadReferences(t *testing.T) {
	ctx := context.Background()
	svc := NewExpenseService(memory.New(seed()...))

	_, err := svc.Get(ctx, core.ByID("nope"))
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Update(ctx, core.ByPosition(3), core.Draft{Amount: "1"})
	assert.ErrorIs(t, err, core.ErrPositionOutOfRange)

	err = svc.Delete(ctx, core.ByPosition(-1))
	assert.ErrorIs(t, err, core.ErrPositionOutOfRange)

	entry, err := svc.Get(ctx, core.ByID("c"))
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Position)
}

func TestExpenseService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &mockPublisher{}
	pub.On("PublishLedgerChanged", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	store := memory.New()
	svc := NewExpenseService(store, WithPublisher(pub))

	e, err := svc.Create(ctx, core.Draft{Amount: "1"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, core.ByID(e.ID)))
	assert.Equal(t, 0, store.Len())
	pub.AssertNumberOfCalls(t, "PublishLedgerChanged", 2)
}

func TestExpenseService_StoreFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")
	svc := NewExpenseService(failingStore{err: boom})

	_, err := svc.List(ctx, core.Filter{})
	assert.ErrorIs(t, err, boom)
	_, err = svc.Create(ctx, core.Draft{Amount: "1"})
	assert.ErrorIs(t, err, boom)
	_, err = svc.Summary(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, svc.Ping(ctx), boom)
}

func TestExpenseService_Summary(t *testing.T) {
	ctx := context.Background()
	svc := NewExpenseService(memory.New(seed()...))

	table, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Transport"}, table.Categories)
	assert.Equal(t, "35", table.Total().String())

	bad := NewExpenseService(memory.New(core.Expense{ID: "x", Date: "soon", Amount: "1"}))
	_, err = bad.Summary(ctx)
	assert.ErrorIs(t, err, summary.ErrInvalidDate)
}

// stallingStore holds its first Load until release is closed and then
// returns the ledger as it was when that Load began.
type stallingStore struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newStallingStore(items ...core.Expense) *stallingStore {
	return &stallingStore{Store: memory.New(items...), entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *stallingStore) Load(ctx context.Context) ([]core.Expense, error) {
	first := false
	s.once.Do(func() { first = true })
	items, err := s.Store.Load(ctx)
	if !first {
		return items, err
	}
	close(s.entered)
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, err
}

func TestExpenseService_SummaryAfterWriteSeesWrite(t *testing.T) {
	ctx := context.Background()
	store := newStallingStore(seed()...)
	svc := NewExpenseService(store, WithClock(func() time.Time { return fixedNow }))

	stale := make(chan summary.Table, 1)
	go func() {
		table, _ := svc.Summary(ctx)
		stale <- table
	}()
	<-store.entered

	_, err := svc.Create(ctx, core.Draft{Amount: "15", Category: "Food"})
	require.NoError(t, err)

	fresh := make(chan summary.Table, 1)
	go func() {
		table, _ := svc.Summary(ctx)
		fresh <- table
	}()

	select {
	case table := <-fresh:
		assert.Equal(t, "50", table.Total().String())
	case <-time.After(2 * time.Second):
		t.Error("summary requested after the write waited on the earlier load")
	}

	close(store.release)
	assert.Equal(t, "35", (<-stale).Total().String())
}

func TestExpenseService_SummarySurvivesFirstCallerCancel(t *testing.T) {
	store := newStallingStore(seed()...)
	svc := NewExpenseService(store)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.Summary(ctx)
		first <- err
	}()
	<-store.entered

	second := make(chan error, 1)
	go func() {
		_, err := svc.Summary(context.Background())
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	close(store.release)

	assert.NoError(t, <-second)
	assert.NoError(t, <-first)
}

func TestExpenseService_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	store := &wholeStore{inner: memory.New()}
	svc := NewExpenseService(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, core.Draft{Amount: "1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 20, "no lost updates")
}

func TestExpenseService_ExportSnapshot(t *testing.T) {
	ctx := context.Background()
	svc := NewExpenseService(memory.New(seed()...))

	var buf bytes.Buffer
	meta, err := svc.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, "expenses.xlsx", meta.Filename)
	assert.Equal(t, ledger.XLSXContentType, meta.ContentType)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, core.Columns, rows[0])
	assert.Equal(t, "coffee", rows[1][2])
}

func TestExpenseService_Close(t *testing.T) {
	t.Run("nothing to close", func(t *testing.T) {
		assert.NoError(t, NewExpenseService(memory.New()).Close())
	})

	t.Run("closes every resource and joins errors", func(t *testing.T) {
		var closed []string
		svc := NewExpenseService(memory.New(),
			WithCloser(closerFunc(func() error { closed = append(closed, "store"); return errors.New("store") })),
			WithCloser(closerFunc(func() error { closed = append(closed, "amqp"); return nil })),
		)
		err := svc.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store")
		assert.Equal(t, []string{"store", "amqp"}, closed)
	})
}
