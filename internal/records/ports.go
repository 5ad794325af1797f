package records

import (
	"context"

	"tally/internal/core"
)

// Ports for the record store backends.
type (
	// Store is the durable table of expense records.
	//
	// Create and Update re-validate their input and reject it without
	// writing anything; the returned error then satisfies
	// core.IsValidationError. Update and Delete on an unknown id are
	// no-ops. Any other error is a storage failure.
	Store interface {
		// Initialize ensures the table exists. Safe to call on every start.
		Initialize(ctx context.Context) error
		// List returns every record, most recently created first.
		List(ctx context.Context) ([]core.Expense, error)
		// Create persists a new record and returns its fresh id.
		Create(ctx context.Context, in core.ExpenseInput) (int64, error)
		// Update overwrites all mutable fields of the record with id.
		Update(ctx context.Context, id int64, in core.ExpenseInput) error
		// Delete removes the record with id.
		Delete(ctx context.Context, id int64) error
		Close() error
	}

	// Getter is implemented by stores that can load a single record.
	Getter interface {
		Get(ctx context.Context, id int64) (core.Expense, error)
	}
)
