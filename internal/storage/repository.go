// Package storage keeps the ledger in a SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expenses/internal/core"
	"expenses/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var (
	_ ledger.Store    = (*SQLiteRepository)(nil)
	_ ledger.RowStore = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single connection keeps writers from tripping over SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load returns the ledger ordered by position.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, len(rows))
	for i, row := range rows {
		out[i] = core.Expense{
			ID:          row.ID,
			Date:        row.Date,
			Amount:      row.Amount,
			Description: row.Description,
			Category:    row.Category,
		}
	}
	return out, nil
}

// Save replaces every row in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, expenses []core.Expense) error {
	return r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteAllExpenses(ctx); err != nil {
			return fmt.Errorf("clear expenses: %w", err)
		}
		for i, e := range expenses {
			if e.ID == "" {
				e.ID = core.NewID()
			}
			if err := q.InsertExpenseAt(ctx, Expense{
				ID:          e.ID,
				Position:    int64(i),
				Date:        e.Date,
				Amount:      e.Amount,
				Description: e.Description,
				Category:    e.Category,
			}); err != nil {
				return fmt.Errorf("insert expense %d: %w", i, err)
			}
		}
		slog.InfoContext(ctx, "Ledger saved to SQLite", "rows", len(expenses))
		return nil
	})
}

// Append adds e after the last row.
func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) error {
	err := r.queries.AppendExpense(ctx, AppendExpenseParams{
		ID:          e.ID,
		Date:        e.Date,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
	})
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"date", e.Date,
		"amount", e.Amount,
		"category", e.Category)
	return nil
}

// Update rewrites the row with e.ID in place.
func (r *SQLiteRepository) Update(ctx context.Context, e core.Expense) error {
	n, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		Date:        e.Date,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		ID:          e.ID,
	})
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update expense: %w: %s", core.ErrNotFound, e.ID)
	}
	slog.InfoContext(ctx, "Expense updated in SQLite", "id", e.ID)
	return nil
}

// Delete removes the row and shifts later rows down by one.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return r.inTx(ctx, func(q *Queries) error {
		pos, err := q.GetExpensePosition(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("delete expense: %w: %s", core.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("get expense position: %w", err)
		}
		if err := q.DeleteExpense(ctx, id); err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		if err := q.ShiftPositionsAfter(ctx, pos); err != nil {
			return fmt.Errorf("shift positions: %w", err)
		}
		slog.InfoContext(ctx, "Expense deleted from SQLite", "id", id, "position", pos)
		return nil
	})
}

// Count returns the number of stored rows.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountExpenses(ctx)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
