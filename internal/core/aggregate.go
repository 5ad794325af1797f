package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel groups records whose category is blank.
const UncategorizedLabel = "Uncategorized"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// WindowSummary is what the screen shows for one window filter.
type WindowSummary struct {
	Window     Window
	Expenses   []Expense
	Total      decimal.Decimal
	ByCategory []CategoryAmount // sorted by name
}

// Total sums the amounts of records.
func Total(records []Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range records {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// ByCategory sums amounts per category. Map order carries no meaning.
func ByCategory(records []Expense) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, e := range records {
		name := strings.TrimSpace(e.Category)
		if name == "" {
			name = UncategorizedLabel
		}
		out[name] = out[name].Add(e.Amount)
	}
	return out
}

// Summarize filters records by window and aggregates what is left.
func Summarize(records []Expense, w Window, today time.Time) WindowSummary {
	visible := FilterByWindow(records, w, today)
	sums := ByCategory(visible)

	cats := make([]CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		cats = append(cats, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })

	return WindowSummary{
		Window:     w,
		Expenses:   visible,
		Total:      Total(visible),
		ByCategory: cats,
	}
}
