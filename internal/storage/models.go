package storage

import "database/sql"

// expenseRow mirrors a row of the expenses table. Amount is scanned
// untyped because SQLite does not enforce column affinity.
type expenseRow struct {
	ID       int64
	Amount   any
	Category string
	Note     sql.NullString
	Date     string
}

type CreateExpenseParams struct {
	Amount   float64
	Category string
	Note     string
	Date     string
}

type UpdateExpenseParams struct {
	ID       int64
	Amount   float64
	Category string
	Note     string
	Date     string
}
