package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Expense is a persisted expense record.
	Expense struct {
		ID       int64
		Amount   decimal.Decimal
		Category string
		Note     string
		Date     string // raw date text as stored, normally YYYY-MM-DD
	}

	// ExpenseInput carries the mutable fields of an expense after parsing.
	// It is what the record store accepts on create and update.
	ExpenseInput struct {
		Amount   decimal.Decimal
		Category string
		Note     string
		Date     string
	}
)

var (
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyDate       = errors.New("empty date")
	ErrInvalidDate     = errors.New("invalid date")
	ErrExpenseNotFound = errors.New("expense not found")
)

// IsValidationError reports whether err is one of the input validation failures.
// Anything else coming out of a store is a storage failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrEmptyCategory) ||
		errors.Is(err, ErrEmptyDate) ||
		errors.Is(err, ErrInvalidDate)
}

// Day parses the record date. ok is false when the date is blank or unparsable.
func (e Expense) Day() (time.Time, bool) {
	d, err := ParseDate(e.Date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Input returns the mutable fields of the record.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{
		Amount:   e.Amount,
		Category: e.Category,
		Note:     e.Note,
		Date:     e.Date,
	}
}

// Normalized trims category, note and date.
func (in ExpenseInput) Normalized() ExpenseInput {
	in.Category = strings.TrimSpace(in.Category)
	in.Note = strings.TrimSpace(in.Note)
	in.Date = strings.TrimSpace(in.Date)
	return in
}

// ValidateForCreate checks the fields required when adding a record.
// The date may be blank: the store stamps the creation day.
func (in ExpenseInput) ValidateForCreate() error {
	if !storableAmount(in.Amount) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(in.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// ValidateForUpdate checks the fields required when overwriting a record.
func (in ExpenseInput) ValidateForUpdate() error {
	if err := in.ValidateForCreate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Date) == "" {
		return ErrEmptyDate
	}
	return nil
}
