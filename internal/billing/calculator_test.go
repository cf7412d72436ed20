package billing

import (
	"reflect"
	"testing"
)

func basketOf(items ...TreatmentItem) Basket {
	return Basket(items)
}

func TestCalculateFlatPercent(t *testing.T) {
	basket := basketOf(
		TreatmentItem{Name: "Scaling", UnitCost: 30000, Quantity: 1},
		TreatmentItem{Name: "X-Ray", UnitCost: 15000, Quantity: 2},
	)
	rules := DefaultRules()

	result := Calculate(basket, "STRATEGIS", rules)

	if result.Subtotal != 60000 {
		t.Fatalf("subtotal: got %d want 60000", result.Subtotal)
	}
	if result.PatientCopayment != 12000 {
		t.Errorf("patient copayment: got %d want 12000", result.PatientCopayment)
	}
	if result.InsuranceCovered+result.PatientCopayment != result.Subtotal {
		t.Errorf("split does not sum to subtotal: %d + %d != %d",
			result.InsuranceCovered, result.PatientCopayment, result.Subtotal)
	}
}

func TestCalculateDeductibleThenPercent(t *testing.T) {
	// Filling 50000, JUBILEE 10% after a 5000 deductible.
	basket := basketOf(TreatmentItem{Name: "Filling", UnitCost: 50000, Quantity: 1})

	result := Calculate(basket, "JUBILEE", DefaultRules())

	if result.DeductibleApplied != 5000 {
		t.Errorf("deductible applied: got %d want 5000", result.DeductibleApplied)
	}
	if result.InsuranceCovered != 40500 {
		t.Errorf("insurance covered: got %d want 40500", result.InsuranceCovered)
	}
	if result.PatientCopayment != 9500 {
		t.Errorf("patient copayment: got %d want 9500", result.PatientCopayment)
	}
}

func TestCalculateDeductibleExceedsSubtotal(t *testing.T) {
	basket := basketOf(TreatmentItem{Name: "Consultation", UnitCost: 3000, Quantity: 1})

	result := Calculate(basket, "JUBILEE", DefaultRules())

	// Subtotal below the deductible: the patient pays everything.
	if result.DeductibleApplied != 3000 {
		t.Errorf("deductible applied: got %d want 3000", result.DeductibleApplied)
	}
	if result.PatientCopayment != 3000 {
		t.Errorf("patient copayment: got %d want 3000", result.PatientCopayment)
	}
	if result.InsuranceCovered != 0 {
		t.Errorf("insurance covered: got %d want 0", result.InsuranceCovered)
	}
}

func TestCalculateFullCover(t *testing.T) {
	basket := basketOf(TreatmentItem{Name: "Extraction", UnitCost: 45000, Quantity: 1})

	result := Calculate(basket, "NHIF", DefaultRules())

	if result.PatientCopayment != 0 {
		t.Errorf("patient copayment: got %d want 0", result.PatientCopayment)
	}
	if result.InsuranceCovered != 45000 {
		t.Errorf("insurance covered: got %d want 45000", result.InsuranceCovered)
	}
}

func TestCalculateCash(t *testing.T) {
	basket := basketOf(TreatmentItem{Name: "Filling", UnitCost: 50000, Quantity: 1})

	result := Calculate(basket, "CASH", DefaultRules())

	if result.PatientCopayment != 50000 {
		t.Errorf("patient copayment: got %d want 50000", result.PatientCopayment)
	}
	if result.InsuranceCovered != 0 {
		t.Errorf("insurance covered: got %d want 0", result.InsuranceCovered)
	}
	if result.FallbackApplied {
		t.Error("CASH is configured; fallback must not be flagged")
	}
}

func TestCalculateUnknownProviderFallsBackToCash(t *testing.T) {
	basket := basketOf(TreatmentItem{Name: "Filling", UnitCost: 20000, Quantity: 1})

	result := Calculate(basket, "MYSTERY", DefaultRules())

	if !result.FallbackApplied {
		t.Error("expected FallbackApplied for unknown provider")
	}
	if result.PatientCopayment != 20000 {
		t.Errorf("patient copayment: got %d want 20000", result.PatientCopayment)
	}
}

func TestCalculateFloorsPercentage(t *testing.T) {
	// 333 * 10% = 33.3; insurer-favorable floor keeps the patient at 33.
	basket := basketOf(TreatmentItem{Name: "Polish", UnitCost: 333, Quantity: 1})
	rules := map[string]ProviderRules{
		"P": {Mode: ModeFlatPercent, CopayPercent: 10},
	}

	result := Calculate(basket, "P", rules)

	if result.PatientCopayment != 33 {
		t.Errorf("patient copayment: got %d want 33", result.PatientCopayment)
	}
	if result.InsuranceCovered != 300 {
		t.Errorf("insurance covered: got %d want 300", result.InsuranceCovered)
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	basket := basketOf(
		TreatmentItem{Name: "Filling", UnitCost: 50000, Quantity: 1},
		TreatmentItem{Name: "X-Ray", UnitCost: 15000, Quantity: 3},
	)
	rules := DefaultRules()

	first := Calculate(basket, "JUBILEE", rules)
	second := Calculate(basket, "JUBILEE", rules)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different results: %+v vs %+v", first, second)
	}
}

func TestInstallmentPlanSumsExactly(t *testing.T) {
	plan, err := InstallmentPlan(9500, 3)
	if err != nil {
		t.Fatalf("InstallmentPlan returned error: %v", err)
	}

	if len(plan) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(plan))
	}
	var sum int64
	for _, p := range plan {
		sum += p
	}
	if sum != 9500 {
		t.Errorf("plan sums to %d, want 9500", sum)
	}
	// Ceiling split front-loads the rounding.
	if plan[0] != 3167 || plan[1] != 3167 || plan[2] != 3166 {
		t.Errorf("unexpected plan %v", plan)
	}
}

func TestInstallmentPlanRejectsZeroMonths(t *testing.T) {
	if _, err := InstallmentPlan(1000, 0); err != ErrInvalidPlanLength {
		t.Errorf("expected ErrInvalidPlanLength, got %v", err)
	}
}

func TestBasketValidate(t *testing.T) {
	cases := []struct {
		name   string
		basket Basket
		want   error
	}{
		{"empty", Basket{}, ErrEmptyBasket},
		{"unnamed", basketOf(TreatmentItem{Name: "  ", UnitCost: 100, Quantity: 1}), ErrUnnamedTreatment},
		{"negative price", basketOf(TreatmentItem{Name: "Filling", UnitCost: -1, Quantity: 1}), ErrNegativePrice},
		{"zero quantity", basketOf(TreatmentItem{Name: "Filling", UnitCost: 100, Quantity: 0}), ErrInvalidQuantity},
		{"negative line total", basketOf(TreatmentItem{Name: "Filling", UnitCost: 100, Quantity: 1, LineTotal: -1}), ErrNegativePrice},
		{"valid", basketOf(TreatmentItem{Name: "Filling", UnitCost: 100, Quantity: 2}), nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.basket.Validate(); err != tc.want {
				t.Errorf("got %v want %v", err, tc.want)
			}
		})
	}
}

func TestExplicitLineTotalOverridesUnitMath(t *testing.T) {
	item := TreatmentItem{Name: "Whitening Package", UnitCost: 33, Quantity: 3, LineTotal: 100}
	if got := item.Total(); got != 100 {
		t.Errorf("Total: got %d want 100", got)
	}
	basket := Basket{item, {Name: "Consultation", UnitCost: 20000, Quantity: 1}}
	if got := basket.Subtotal(); got != 20100 {
		t.Errorf("Subtotal: got %d want 20100", got)
	}
}
