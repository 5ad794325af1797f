package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the records.Store backed by a local SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	dbPath  string
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One logical actor drives the store; a single connection keeps writes serialised.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		dbPath:  dbPath,
		queries: New(db),
		now:     time.Now,
	}, nil
}

// WithClock overrides the clock used to stamp creation dates.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

// Initialize implements records.Store by applying pending migrations.
func (r *SQLiteRepository) Initialize(ctx context.Context) error {
	if err := RunMigrations(r.dbPath); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	slog.InfoContext(ctx, "SQLite schema ready", "path", r.dbPath)
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// List implements records.Store
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	expenses := make([]core.Expense, len(rows))
	for i, row := range rows {
		expenses[i] = r.toCore(ctx, row)
	}
	return expenses, nil
}

// Get loads a single record or returns core.ErrExpenseNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return r.toCore(ctx, row), nil
}

// Create implements records.Store
func (r *SQLiteRepository) Create(ctx context.Context, in core.ExpenseInput) (int64, error) {
	in = in.Normalized()
	if err := in.ValidateForCreate(); err != nil {
		slog.WarnContext(ctx, "Rejected expense create", "error", err)
		return 0, err
	}
	if in.Date == "" {
		in.Date = core.FormatDate(r.now())
	}

	id, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Amount:   in.Amount.InexactFloat64(),
		Category: in.Category,
		Note:     in.Note,
		Date:     in.Date,
	})
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"amount", in.Amount.String(),
		"category", in.Category,
		"date", in.Date)

	return id, nil
}

// Update implements records.Store
func (r *SQLiteRepository) Update(ctx context.Context, id int64, in core.ExpenseInput) error {
	in = in.Normalized()
	if err := in.ValidateForUpdate(); err != nil {
		slog.WarnContext(ctx, "Rejected expense update", "id", id, "error", err)
		return err
	}

	affected, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		ID:       id,
		Amount:   in.Amount.InexactFloat64(),
		Category: in.Category,
		Note:     in.Note,
		Date:     in.Date,
	})
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if affected == 0 {
		slog.DebugContext(ctx, "Update matched no expense", "id", id)
		return nil
	}

	slog.InfoContext(ctx, "Expense updated in SQLite", "id", id)
	return nil
}

// Delete implements records.Store
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if affected == 0 {
		slog.DebugContext(ctx, "Delete matched no expense", "id", id)
		return nil
	}

	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) toCore(ctx context.Context, row expenseRow) core.Expense {
	amount, ok := core.AmountFromStored(row.Amount)
	if !ok {
		slog.WarnContext(ctx, "Non-numeric amount in expenses table, counting as zero",
			"id", row.ID,
			"raw", fmt.Sprint(row.Amount))
	}
	return core.Expense{
		ID:       row.ID,
		Amount:   amount,
		Category: row.Category,
		Note:     row.Note.String,
		Date:     row.Date,
	}
}
