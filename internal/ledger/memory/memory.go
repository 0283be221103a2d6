package memory

import (
	"context"
	"fmt"
	"sync"

	"expenses/internal/core"
	"expenses/internal/ledger"
)

// Store keeps the ledger in process memory.
type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

var (
	_ ledger.Store    = (*Store)(nil)
	_ ledger.RowStore = (*Store)(nil)
)

// New returns a store seeded with a copy of items. Rows without an ID get one.
func New(items ...core.Expense) *Store {
	seed := append([]core.Expense(nil), items...)
	core.EnsureIDs(seed)
	return &Store{items: seed}
}

// Load returns a copy of the ledger.
func (s *Store) Load(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...), nil
}

// Save replaces the ledger.
func (s *Store) Save(_ context.Context, expenses []core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Expense(nil), expenses...)
	return nil
}

func (s *Store) Append(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return nil
}

func (s *Store) Update(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := core.Locate(s.items, core.ByID(e.ID))
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	s.items[i] = e
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := core.Locate(s.items, core.ByID(id))
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.items, err = core.RemoveAt(s.items, i)
	return err
}

// Len returns the number of rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
