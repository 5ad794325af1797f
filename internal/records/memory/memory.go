package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tally/internal/core"
)

// Store keeps expense records in process memory. Ids come from a counter
// and are never reused, matching the SQLite AUTOINCREMENT behaviour.
type Store struct {
	mu     sync.Mutex
	lastID int64
	items  []core.Expense // ascending id
	now    func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewWithClock returns a store that stamps creation dates using now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// Initialize implements records.Store. Nothing to prepare.
func (s *Store) Initialize(_ context.Context) error {
	return nil
}

// List implements records.Store.
func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		out = append(out, s.items[i])
	}
	return out, nil
}

// Get returns a single record or core.ErrExpenseNotFound.
func (s *Store) Get(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		return s.items[i], nil
	}
	return core.Expense{}, core.ErrExpenseNotFound
}

// Create implements records.Store.
func (s *Store) Create(ctx context.Context, in core.ExpenseInput) (int64, error) {
	in = in.Normalized()
	if err := in.ValidateForCreate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.Date == "" {
		in.Date = core.FormatDate(s.now())
	}
	s.lastID++
	s.items = append(s.items, core.Expense{
		ID:       s.lastID,
		Amount:   in.Amount,
		Category: in.Category,
		Note:     in.Note,
		Date:     in.Date,
	})
	slog.DebugContext(ctx, "Expense stored in memory", "id", s.lastID)
	return s.lastID, nil
}

// Update implements records.Store.
func (s *Store) Update(_ context.Context, id int64, in core.ExpenseInput) error {
	in = in.Normalized()
	if err := in.ValidateForUpdate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.items[i].Amount = in.Amount
		s.items[i].Category = in.Category
		s.items[i].Note = in.Note
		s.items[i].Date = in.Date
	}
	return nil
}

// Delete implements records.Store.
func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) index(id int64) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
