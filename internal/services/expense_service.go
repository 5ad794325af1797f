package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/records"
)

// EventPublisher announces committed changes to other processes.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, kind amqp.EventKind, id int64) error
	Close() error
}

// ScreenView is everything the expense screen renders for one window.
type ScreenView struct {
	Today   time.Time
	Window  core.Window
	Summary core.WindowSummary
	// Count of all records regardless of the window
	TotalCount int
}

// ExpenseService orchestrates the screen operations over an injected record store.
// Every read goes back to the store; nothing is cached between calls.
type ExpenseService struct {
	store     records.Store
	publisher EventPublisher
	now       func() time.Time
}

func NewExpenseService(store records.Store, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock sets the clock that decides "today" for new records and windows.
func (s *ExpenseService) WithClock(now func() time.Time) *ExpenseService {
	s.now = now
	return s
}

// Today returns the current date according to the service clock.
func (s *ExpenseService) Today() time.Time {
	return s.now()
}

// Add parses the form text and creates a record dated today.
func (s *ExpenseService) Add(ctx context.Context, amountText, category, note string) error {
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return err
	}
	in := core.ExpenseInput{
		Amount:   amount,
		Category: category,
		Note:     note,
		Date:     core.FormatDate(s.now()),
	}.Normalized()
	if err := in.ValidateForCreate(); err != nil {
		return err
	}

	id, err := s.store.Create(ctx, in)
	if err != nil {
		if core.IsValidationError(err) {
			return err
		}
		return fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, amqp.EventCreated, id)
	return nil
}

// Draft loads the record with id into an edit buffer.
func (s *ExpenseService) Draft(ctx context.Context, id int64) (core.Draft, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return core.Draft{}, err
	}
	return core.DraftFrom(e), nil
}

// Save parses the draft and overwrites the record with id.
// A missing record is not an error and publishes no event.
func (s *ExpenseService) Save(ctx context.Context, id int64, d core.Draft) error {
	in, err := d.Parse()
	if err != nil {
		return err
	}
	if found, err := s.exists(ctx, id); err != nil || !found {
		return err
	}
	if err := s.store.Update(ctx, id, in); err != nil {
		if core.IsValidationError(err) {
			return err
		}
		return fmt.Errorf("update expense: %w", err)
	}

	s.publish(ctx, amqp.EventUpdated, id)
	return nil
}

// Remove deletes the record with id. Deleting twice is fine.
func (s *ExpenseService) Remove(ctx context.Context, id int64) error {
	if found, err := s.exists(ctx, id); err != nil || !found {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publish(ctx, amqp.EventDeleted, id)
	return nil
}

// Screen re-lists the store and aggregates the records inside the window.
func (s *ExpenseService) Screen(ctx context.Context, w core.Window) (ScreenView, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return ScreenView{}, fmt.Errorf("list expenses: %w", err)
	}
	today := s.now()
	return ScreenView{
		Today:      today,
		Window:     w,
		Summary:    core.Summarize(all, w, today),
		TotalCount: len(all),
	}, nil
}

// Summaries aggregates every window from a single listing.
func (s *ExpenseService) Summaries(ctx context.Context) ([]core.WindowSummary, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	today := s.now()
	out := make([]core.WindowSummary, 0, len(core.Windows))
	for _, w := range core.Windows {
		out = append(out, core.Summarize(all, w, today))
	}
	return out, nil
}

func (s *ExpenseService) find(ctx context.Context, id int64) (core.Expense, error) {
	if g, ok := s.store.(records.Getter); ok {
		e, err := g.Get(ctx, id)
		if err != nil && !errors.Is(err, core.ErrExpenseNotFound) {
			return core.Expense{}, fmt.Errorf("get expense: %w", err)
		}
		return e, err
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("list expenses: %w", err)
	}
	for _, e := range all {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, core.ErrExpenseNotFound
}

// exists reports whether id is stored, so mutations of unknown ids stay
// silent no-ops and announce nothing.
func (s *ExpenseService) exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.find(ctx, id)
	if errors.Is(err, core.ErrExpenseNotFound) {
		slog.DebugContext(ctx, "Expense not found, nothing to change", "id", id)
		return false, nil
	}
	return err == nil, err
}

func (s *ExpenseService) publish(ctx context.Context, kind amqp.EventKind, id int64) {
	if s.publisher == nil {
		return
	}
	// Don't fail the mutation - it is already committed locally
	if err := s.publisher.PublishExpenseEvent(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"kind", kind, "id", id, "error", err)
	}
}

// Close closes both the store and the publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}

	return nil
}
