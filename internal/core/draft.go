package core

import "strings"

// Draft is the text edit buffer of an expense. It is never persisted
// directly: Parse converts it into an ExpenseInput at the save boundary.
type Draft struct {
	Amount   string
	Category string
	Note     string
	Date     string
}

// DraftFrom seeds a draft with the fields of a persisted record.
func DraftFrom(e Expense) Draft {
	return Draft{
		Amount:   e.Amount.String(),
		Category: e.Category,
		Note:     e.Note,
		Date:     e.Date,
	}
}

// Parse validates the draft for an update and returns the typed input.
func (d Draft) Parse() (ExpenseInput, error) {
	if strings.TrimSpace(d.Amount) == "" {
		return ExpenseInput{}, ErrInvalidAmount
	}
	amount, err := ParseAmount(d.Amount)
	if err != nil {
		return ExpenseInput{}, err
	}
	in := ExpenseInput{
		Amount:   amount,
		Category: d.Category,
		Note:     d.Note,
		Date:     d.Date,
	}.Normalized()
	if err := in.ValidateForUpdate(); err != nil {
		return ExpenseInput{}, err
	}
	return in, nil
}
