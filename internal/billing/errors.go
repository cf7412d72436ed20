package billing

import "errors"

var (
	// ErrEmptyBasket is returned when a basket has no treatment lines
	ErrEmptyBasket = errors.New("basket has no treatment items")

	// ErrUnnamedTreatment is returned when a line has no treatment name
	ErrUnnamedTreatment = errors.New("treatment name is required")

	// ErrNegativePrice is returned when a line has a negative unit cost
	ErrNegativePrice = errors.New("unit cost must not be negative")

	// ErrInvalidQuantity is returned when a line quantity is zero or negative
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidPlanLength is returned when an installment plan is requested
	// for zero or negative months
	ErrInvalidPlanLength = errors.New("installment plan needs at least one month")
)
