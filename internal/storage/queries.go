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

const listExpenses = `SELECT id, amount, category, note, date FROM expenses ORDER BY id DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]expenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []expenseRow
	for rows.Next() {
		var i expenseRow
		if err := rows.Scan(&i.ID, &i.Amount, &i.Category, &i.Note, &i.Date); err != nil {
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

const getExpense = `SELECT id, amount, category, note, date FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (expenseRow, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var i expenseRow
	err := row.Scan(&i.ID, &i.Amount, &i.Category, &i.Note, &i.Date)
	return i, err
}

const createExpense = `INSERT INTO expenses (amount, category, note, date) VALUES (?, ?, ?, ?) RETURNING id`

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createExpense, arg.Amount, arg.Category, arg.Note, arg.Date)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateExpense = `UPDATE expenses SET amount = ?, category = ?, note = ?, date = ? WHERE id = ?`

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateExpense, arg.Amount, arg.Category, arg.Note, arg.Date, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
