package billing

// RuleMode selects how a provider splits cost between insurer and patient.
type RuleMode string

const (
	// ModeFlatPercent charges the patient a flat percentage of the subtotal.
	ModeFlatPercent RuleMode = "flat_percent"
	// ModeDeductibleThenPercent charges a deductible first, then a
	// percentage of the remainder.
	ModeDeductibleThenPercent RuleMode = "deductible_then_percent"
	// ModeFullCover charges the patient nothing.
	ModeFullCover RuleMode = "full_cover"
	// ModeCash charges the patient the full subtotal.
	ModeCash RuleMode = "cash"
)

// ProviderRules parameterizes the cost split for one insurer.
type ProviderRules struct {
	Mode         RuleMode `json:"mode"`
	CopayPercent int64    `json:"copay_percent"`
	Deductible   int64    `json:"deductible"`
}

// CopaymentResult is the derived insurer/patient split for a basket. It is
// recomputed whenever the basket or verification changes, never mutated.
type CopaymentResult struct {
	Subtotal          int64  `json:"subtotal"`
	DeductibleApplied int64  `json:"deductible_applied"`
	InsuranceCovered  int64  `json:"insurance_covered"`
	PatientCopayment  int64  `json:"patient_copayment"`
	CopayPercent      int64  `json:"copay_percent"`
	ProviderID        string `json:"provider_id"`

	// FallbackApplied is set when the provider id had no configured rules
	// and the cash split was used. The caller surfaces this as a
	// configuration warning; Calculate itself never errors.
	FallbackApplied bool `json:"fallback_applied,omitempty"`
}

// DefaultRules are the cost-sharing rules shipped for the known providers.
func DefaultRules() map[string]ProviderRules {
	return map[string]ProviderRules{
		"NHIF":      {Mode: ModeFullCover},
		"JUBILEE":   {Mode: ModeDeductibleThenPercent, CopayPercent: 10, Deductible: 5000},
		"STRATEGIS": {Mode: ModeFlatPercent, CopayPercent: 20},
		"CASH":      {Mode: ModeCash},
	}
}

// Calculate computes the insurer/patient split for a basket under the given
// provider's rules. Pure and deterministic: identical inputs always produce
// identical results, and it never errors. An unrecognized provider id falls
// back to cash behavior with FallbackApplied set.
//
// Rounding is floor on the insurer-favorable percentage steps, so the
// patient share is never rounded up here; installment math rounds the other
// way (see InstallmentPlan).
func Calculate(basket Basket, providerID string, rules map[string]ProviderRules) CopaymentResult {
	subtotal := basket.Subtotal()
	result := CopaymentResult{
		Subtotal:   subtotal,
		ProviderID: providerID,
	}

	rule, ok := rules[providerID]
	if !ok {
		rule = ProviderRules{Mode: ModeCash}
		result.FallbackApplied = true
	}
	result.CopayPercent = rule.CopayPercent

	switch rule.Mode {
	case ModeFlatPercent:
		result.PatientCopayment = subtotal * rule.CopayPercent / 100
	case ModeDeductibleThenPercent:
		deductible := rule.Deductible
		if deductible > subtotal {
			deductible = subtotal
		}
		result.DeductibleApplied = deductible
		remainder := subtotal - deductible
		result.PatientCopayment = deductible + remainder*rule.CopayPercent/100
	case ModeFullCover:
		result.PatientCopayment = 0
	default: // ModeCash and anything unconfigured
		result.PatientCopayment = subtotal
	}

	result.InsuranceCovered = subtotal - result.PatientCopayment
	return result
}

// InstallmentPlan splits a patient copayment into monthly installments.
// Each installment is the ceiling of the even split; the final installment
// absorbs the difference so the plan sums to the copayment exactly.
// Patient-facing installments round up so the clinic never undercollects
// on the early months.
func InstallmentPlan(patientCopayment int64, months int) ([]int64, error) {
	if months <= 0 {
		return nil, ErrInvalidPlanLength
	}
	per := (patientCopayment + int64(months) - 1) / int64(months)
	plan := make([]int64, months)
	remaining := patientCopayment
	for i := 0; i < months; i++ {
		if remaining < per {
			per = remaining
		}
		plan[i] = per
		remaining -= per
	}
	return plan, nil
}
