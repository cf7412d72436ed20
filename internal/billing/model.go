package billing

import "strings"

// TreatmentItem is a single priced treatment line in an encounter basket.
// Amounts are whole currency units (shillings), never fractions. Items are
// value types and are not mutated after the basket is assembled.
type TreatmentItem struct {
	Name     string `json:"name"`
	UnitCost int64  `json:"unit_cost"`
	Quantity int    `json:"quantity"`
	// LineTotal, when nonzero, is the caller-supplied total for the line
	// and takes precedence over UnitCost*Quantity. Front-desk systems
	// price some lines as a package, so the total need not divide evenly.
	LineTotal int64 `json:"line_total,omitempty"`
}

// Total returns the explicit line total when one was supplied, otherwise
// unit cost times quantity.
func (t TreatmentItem) Total() int64 {
	if t.LineTotal != 0 {
		return t.LineTotal
	}
	return t.UnitCost * int64(t.Quantity)
}

// Basket is the ordered set of treatment lines priced for one encounter.
type Basket []TreatmentItem

// Subtotal sums all line totals.
func (b Basket) Subtotal() int64 {
	var sum int64
	for _, item := range b {
		sum += item.Total()
	}
	return sum
}

// Validate checks that every line has a name, a non-negative unit cost and a
// positive quantity.
func (b Basket) Validate() error {
	if len(b) == 0 {
		return ErrEmptyBasket
	}
	for _, item := range b {
		if strings.TrimSpace(item.Name) == "" {
			return ErrUnnamedTreatment
		}
		if item.UnitCost < 0 || item.LineTotal < 0 {
			return ErrNegativePrice
		}
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}
