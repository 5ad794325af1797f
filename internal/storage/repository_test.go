package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tally.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	repo.WithClock(func() time.Time { return time.Date(2024, time.May, 15, 9, 0, 0, 0, time.UTC) })
	if err := repo.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return repo, path
}

func in(amount, category, note, date string) core.ExpenseInput {
	return core.ExpenseInput{Amount: decimal.RequireFromString(amount), Category: category, Note: note, Date: date}
}

func TestInitializeIsIdempotent(t *testing.T) {
	repo, _ := newTestRepo(t)
	for i := 0; i < 3; i++ {
		if err := repo.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize #%d: %v", i, err)
		}
	}
}

func TestCreateThenList(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	first, err := repo.Create(ctx, in("10", " Food ", " lunch ", ""))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := repo.Create(ctx, in("5.5", "Books", "", "2024-04-02"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second <= first {
		t.Fatalf("ids must increase: %d then %d", first, second)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Fatalf("expected newest first, got %+v", list)
	}
	got := list[1]
	if !got.Amount.Equal(decimal.NewFromInt(10)) || got.Category != "Food" || got.Note != "lunch" || got.Date != "2024-05-15" {
		t.Fatalf("unexpected stored record %+v", got)
	}
	if !list[0].Amount.Equal(decimal.RequireFromString("5.5")) || list[0].Date != "2024-04-02" {
		t.Fatalf("unexpected stored record %+v", list[0])
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	bad := []core.ExpenseInput{
		in("0", "Food", "", ""),
		in("-2", "Food", "", ""),
		in("3", "", "", ""),
		in("3", " \t", "", ""),
	}
	for i, b := range bad {
		if _, err := repo.Create(ctx, b); !core.IsValidationError(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
	if list, _ := repo.List(ctx); len(list) != 0 {
		t.Fatalf("rejected creates must not write, got %d rows", len(list))
	}
}

func TestAmountsStayPositiveThroughRealColumn(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	tiny := "0." + strings.Repeat("0", 400) + "1"
	huge := strings.Repeat("9", 400)
	for _, raw := range []string{tiny, huge} {
		if _, err := core.ParseAmount(raw); !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("%d-char amount: ParseAmount expected ErrInvalidAmount, got %v", len(raw), err)
		}
		amount := decimal.RequireFromString(raw)
		if _, err := repo.Create(ctx, core.ExpenseInput{Amount: amount, Category: "Food"}); !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("%d-char amount: Create expected ErrInvalidAmount, got %v", len(raw), err)
		}
	}

	id, err := repo.Create(ctx, in("0.01", "Food", "", ""))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	huge300 := decimal.RequireFromString(strings.Repeat("9", 300))
	if err := repo.Update(ctx, id, core.ExpenseInput{Amount: decimal.New(1, -400), Category: "Food", Date: "2024-05-15"}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Update expected ErrInvalidAmount, got %v", err)
	}
	if _, err := repo.Create(ctx, core.ExpenseInput{Amount: huge300, Category: "Food"}); err != nil {
		t.Fatalf("create large finite amount: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}
	for _, e := range list {
		if !e.Amount.IsPositive() {
			t.Fatalf("record %d came back with amount %s", e.ID, e.Amount)
		}
	}
}

func TestUpdateIsIdempotentAndIgnoresUnknownID(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	id, _ := repo.Create(ctx, in("10", "Food", "", ""))

	upd := in("12.25", "Groceries", "weekly", "2024-05-10")
	for i := 0; i < 2; i++ {
		if err := repo.Update(ctx, id, upd); err != nil {
			t.Fatalf("update #%d: %v", i, err)
		}
	}
	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("12.25")) || got.Category != "Groceries" || got.Note != "weekly" || got.Date != "2024-05-10" {
		t.Fatalf("unexpected record after update %+v", got)
	}

	if err := repo.Update(ctx, id+100, upd); err != nil {
		t.Fatalf("update of unknown id should be a no-op, got %v", err)
	}
	if err := repo.Update(ctx, id, in("12", "Food", "", "")); !errors.Is(err, core.ErrEmptyDate) {
		t.Fatalf("expected ErrEmptyDate, got %v", err)
	}
	if err := repo.Update(ctx, id, in("0", "Food", "", "2024-05-10")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if got2, _ := repo.Get(ctx, id); got2.Category != "Groceries" {
		t.Fatalf("rejected update must not change the record, got %+v", got2)
	}
}

func TestDeleteTwice(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	keep, _ := repo.Create(ctx, in("1", "A", "", ""))
	drop, _ := repo.Create(ctx, in("2", "B", "", ""))

	if err := repo.Delete(ctx, drop); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, drop); err != nil {
		t.Fatalf("second delete should not fail: %v", err)
	}
	list, _ := repo.List(ctx)
	if len(list) != 1 || list[0].ID != keep {
		t.Fatalf("unexpected rows after delete %+v", list)
	}
	if _, err := repo.Get(ctx, drop); !errors.Is(err, core.ErrExpenseNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIDsNotReusedAcrossReopen(t *testing.T) {
	ctx := context.Background()
	repo, path := newTestRepo(t)
	id, _ := repo.Create(ctx, in("1", "A", "", ""))
	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	repo.Close()

	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	next, err := reopened.Create(ctx, in("1", "A", "", "2024-01-01"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if next <= id {
		t.Fatalf("id %d reused or decreased (previous %d)", next, id)
	}
}

func TestMalformedAmountDecodesAsZero(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO expenses (amount, category, note, date) VALUES ('lots', 'Food', NULL, '2024-05-01')`); err != nil {
		t.Fatalf("raw insert: %v", err)
	}
	if _, err := repo.Create(ctx, in("4", "Food", "", "2024-05-02")); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || !list[1].Amount.IsZero() || list[1].Note != "" {
		t.Fatalf("malformed row should decode with zero amount, got %+v", list)
	}
	if total := core.Total(list); !total.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected total 4, got %s", total)
	}
}
