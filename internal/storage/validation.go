package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/taxatron/internal/model"
)

// Validation errors for storage operations.
var (
	errNilContext = errors.New("context cannot be nil")
	errNilEntity  = errors.New("entity cannot be nil")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return errNilContext
	}
	return nil
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateExpense(exp *model.Expense) error {
	if exp == nil {
		return errNilEntity
	}
	if exp.ID == "" {
		return fmt.Errorf("expense ID cannot be empty")
	}
	if exp.AccountID == "" {
		return fmt.Errorf("expense %s: account ID cannot be empty", exp.ID)
	}
	if exp.InvoiceDate.IsZero() {
		return fmt.Errorf("expense %s: invoice date cannot be zero", exp.ID)
	}
	if exp.AmountCents < 0 {
		return fmt.Errorf("expense %s: amount cannot be negative", exp.ID)
	}
	return nil
}

func validateDetermination(det *model.Determination) error {
	if det == nil {
		return errNilEntity
	}
	if det.ExpenseID == "" {
		return fmt.Errorf("determination needs an expense ID")
	}
	if !det.Classification.Category.Valid() {
		return fmt.Errorf("determination for %s: invalid category %q",
			det.ExpenseID, det.Classification.Category)
	}
	return nil
}
