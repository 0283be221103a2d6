package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Expense struct {
	ID          string
	Position    int64
	Date        string
	Amount      string
	Description string
	Category    string
}

const listExpenses = `
SELECT id, position, date, amount, description, category
FROM expenses
ORDER BY position
`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(&i.ID, &i.Position, &i.Date, &i.Amount, &i.Description, &i.Category); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const appendExpense = `
INSERT INTO expenses (id, position, date, amount, description, category)
VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM expenses), ?, ?, ?, ?)
`

type AppendExpenseParams struct {
	ID          string
	Date        string
	Amount      string
	Description string
	Category    string
}

func (q *Queries) AppendExpense(ctx context.Context, arg AppendExpenseParams) error {
	_, err := q.db.ExecContext(ctx, appendExpense, arg.ID, arg.Date, arg.Amount, arg.Description, arg.Category)
	return err
}

const insertExpenseAt = `
INSERT INTO expenses (id, position, date, amount, description, category)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertExpenseAt(ctx context.Context, arg Expense) error {
	_, err := q.db.ExecContext(ctx, insertExpenseAt, arg.ID, arg.Position, arg.Date, arg.Amount, arg.Description, arg.Category)
	return err
}

const updateExpense = `
UPDATE expenses
SET date = ?, amount = ?, description = ?, category = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type UpdateExpenseParams struct {
	Date        string
	Amount      string
	Description string
	Category    string
	ID          string
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpense, arg.Date, arg.Amount, arg.Description, arg.Category, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getExpensePosition = `
SELECT position FROM expenses WHERE id = ?
`

func (q *Queries) GetExpensePosition(ctx context.Context, id string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getExpensePosition, id)
	var position int64
	err := row.Scan(&position)
	return position, err
}

const deleteExpense = `
DELETE FROM expenses WHERE id = ?
`

func (q *Queries) DeleteExpense(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteExpense, id)
	return err
}

const shiftPositionsAfter = `
UPDATE expenses SET position = position - 1 WHERE position > ?
`

func (q *Queries) ShiftPositionsAfter(ctx context.Context, position int64) error {
	_, err := q.db.ExecContext(ctx, shiftPositionsAfter, position)
	return err
}

const deleteAllExpenses = `
DELETE FROM expenses
`

func (q *Queries) DeleteAllExpenses(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllExpenses)
	return err
}

const countExpenses = `
SELECT COUNT(*) FROM expenses
`

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExpenses)
	var count int64
	err := row.Scan(&count)
	return count, err
}
