package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/ledger"
	"expenses/internal/ledger/xlsx"
	"expenses/internal/summary"
)

// Publisher announces ledger changes to other processes.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// ExpenseService orchestrates ledger operations over a store and an optional publisher.
type ExpenseService struct {
	store     ledger.Store
	publisher Publisher
	now       func() time.Time
	closers   []io.Closer

	// serializes load-modify-save
	mu        sync.Mutex
	summaries singleflight.Group

	// bumped after every write so later summaries never join an older load
	generation atomic.Uint64
}

type Option func(*ExpenseService)

// WithPublisher sends a LedgerChangedMessage after each successful mutation.
func WithPublisher(p Publisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithClock replaces time.Now, which supplies the default date of new expenses.
func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

// WithCloser registers a resource released by Close.
func WithCloser(c io.Closer) Option {
	return func(s *ExpenseService) { s.closers = append(s.closers, c) }
}

func NewExpenseService(store ledger.Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the entries matching f with their total.
func (s *ExpenseService) List(ctx context.Context, f core.Filter) (core.Listing, error) {
	items, err := s.load(ctx)
	if err != nil {
		return core.Listing{}, err
	}
	return core.List(items, f), nil
}

// Categories returns the categories already in use, in first-seen order.
func (s *ExpenseService) Categories(ctx context.Context) ([]string, error) {
	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return core.Categories(items), nil
}

// Create appends a new expense. The date defaults to today.
func (s *ExpenseService) Create(ctx context.Context, d core.Draft) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := core.NewExpense(d, s.now())
	if rows, ok := s.store.(ledger.RowStore); ok {
		if err := rows.Append(ctx, e); err != nil {
			return core.Expense{}, fmt.Errorf("append expense: %w", err)
		}
	} else {
		items, err := s.load(ctx)
		if err != nil {
			return core.Expense{}, err
		}
		if err := s.save(ctx, append(items, e)); err != nil {
			return core.Expense{}, err
		}
	}

	s.generation.Add(1)
	slog.InfoContext(ctx, "Expense created", "id", e.ID, "date", e.Date, "amount", e.Amount, "category", e.Category)
	s.publish(ctx, e.ID, amqp.OperationCreate)
	return e, nil
}

// Today is the date Create gives an expense without one.
func (s *ExpenseService) Today() string {
	return s.now().Format(core.DateLayout)
}

// Get returns the referenced expense with its current position.
func (s *ExpenseService) Get(ctx context.Context, ref core.Ref) (core.Entry, error) {
	items, err := s.load(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	i, err := core.Locate(items, ref)
	if err != nil {
		return core.Entry{}, fmt.Errorf("get expense: %w", err)
	}
	return core.Entry{Position: i, Expense: items[i]}, nil
}

// Update changes the referenced expense in place. Its position does not move.
func (s *ExpenseService) Update(ctx context.Context, ref core.Ref, d core.Draft) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	i, err := core.Locate(items, ref)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	updated := items[i].Apply(d)

	if rows, ok := s.store.(ledger.RowStore); ok {
		if err := rows.Update(ctx, updated); err != nil {
			return core.Expense{}, fmt.Errorf("update expense: %w", err)
		}
	} else {
		next, err := core.ReplaceAt(items, i, updated)
		if err != nil {
			return core.Expense{}, fmt.Errorf("update expense: %w", err)
		}
		if err := s.save(ctx, next); err != nil {
			return core.Expense{}, err
		}
	}

	s.generation.Add(1)
	slog.InfoContext(ctx, "Expense updated", "id", updated.ID, "position", i)
	s.publish(ctx, updated.ID, amqp.OperationUpdate)
	return updated, nil
}

// Delete removes the referenced expense; later positions shift down by one.
func (s *ExpenseService) Delete(ctx context.Context, ref core.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}
	i, err := core.Locate(items, ref)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	id := items[i].ID

	if rows, ok := s.store.(ledger.RowStore); ok {
		if err := rows.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
	} else {
		next, err := core.RemoveAt(items, i)
		if err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		if err := s.save(ctx, next); err != nil {
			return err
		}
	}

	s.generation.Add(1)
	slog.InfoContext(ctx, "Expense deleted", "id", id, "position", i)
	s.publish(ctx, id, amqp.OperationDelete)
	return nil
}

// Summary aggregates the ledger into the month by category table.
// Concurrent callers share one load and one aggregation, but only with
// callers that started after the same last write.
func (s *ExpenseService) Summary(ctx context.Context) (summary.Table, error) {
	key := "summary-" + strconv.FormatUint(s.generation.Load(), 10)
	// the shared load must not end when the first caller goes away
	shared := context.WithoutCancel(ctx)
	v, err, joined := s.summaries.Do(key, func() (any, error) {
		items, err := s.load(shared)
		if err != nil {
			return summary.Table{}, err
		}
		return summary.Build(items)
	})
	if joined {
		slog.DebugContext(ctx, "Summary computation shared")
	}
	if err != nil {
		return summary.Table{}, fmt.Errorf("summary: %w", err)
	}
	return v.(summary.Table), nil
}

// Export writes the ledger file to w. Stores without a file of their own
// are rendered as a spreadsheet snapshot.
func (s *ExpenseService) Export(ctx context.Context, w io.Writer) (ledger.Export, error) {
	if ex, ok := s.store.(ledger.Exporter); ok {
		return ex.Export(ctx, w)
	}
	items, err := s.load(ctx)
	if err != nil {
		return ledger.Export{}, err
	}
	if err := xlsx.Encode(w, xlsx.DefaultSheet, items); err != nil {
		return ledger.Export{}, fmt.Errorf("export snapshot: %w", err)
	}
	return ledger.Export{Filename: "expenses.xlsx", ContentType: ledger.XLSXContentType}, nil
}

// Ping reports whether the ledger can be read.
func (s *ExpenseService) Ping(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

func (s *ExpenseService) load(ctx context.Context) ([]core.Expense, error) {
	items, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return items, nil
}

func (s *ExpenseService) save(ctx context.Context, items []core.Expense) error {
	if err := s.store.Save(ctx, items); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// publish never fails the caller: the store write is authoritative.
func (s *ExpenseService) publish(ctx context.Context, id, operation string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, amqp.NewLedgerChangedMessage(id, operation)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"id", id, "operation", operation, "error", err)
	}
}

// Close releases the store and the publisher.
func (s *ExpenseService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
