package jubilee

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
)

type fakeTransport struct {
	calls     []string
	responses map[string][]json.RawMessage
	errs      map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		responses: make(map[string][]json.RawMessage),
		errs:      make(map[string]error),
	}
}

func (f *fakeTransport) script(op string, bodies ...string) {
	for _, b := range bodies {
		f.responses[op] = append(f.responses[op], json.RawMessage(b))
	}
}

func (f *fakeTransport) Call(ctx context.Context, operation string, payload any) (json.RawMessage, error) {
	f.calls = append(f.calls, operation)
	if err, ok := f.errs[operation]; ok {
		return nil, err
	}
	queue := f.responses[operation]
	if len(queue) == 0 {
		return nil, fmt.Errorf("unscripted operation %s", operation)
	}
	next := queue[0]
	f.responses[operation] = queue[1:]
	return next, nil
}

func (f *fakeTransport) Reauthenticate(ctx context.Context) error { return nil }

func TestVerifyMemberInvalidFormatMakesNoCall(t *testing.T) {
	transport := newFakeTransport()
	adapter := NewAdapter(transport, nil)

	for _, bad := range []string{"", "12345", "JB12", "JB123456789012", "JB12345-1", "XX12345"} {
		_, err := adapter.VerifyMember(context.Background(), bad, insurance.PatientDetails{})
		if insurance.KindOf(err) != insurance.KindInvalidMemberID {
			t.Errorf("memberID %q: got kind %s, want InvalidMemberId", bad, insurance.KindOf(err))
		}
	}
	if len(transport.calls) != 0 {
		t.Fatalf("format-invalid ids must never hit the network; saw %d calls", len(transport.calls))
	}
}

func TestVerifyMemberStructuredBenefits(t *testing.T) {
	transport := newFakeTransport()
	transport.script(opMemberLookup, `{
		"memberNo": "JB12345",
		"memberName": "Neema Joseph",
		"policyName": "Corporate Dental Plus",
		"status": "ACTIVE",
		"benefits": {
			"dentalCovered": true,
			"annualLimit": 2000000,
			"used": 400000,
			"remaining": 1600000,
			"copayPercent": 10,
			"deductible": 5000
		},
		"dependents": [{"memberNo":"JB12345-01","name":"Baraka Joseph","relation":"child"}]
	}`)
	adapter := NewAdapter(transport, nil)

	v, err := adapter.VerifyMember(context.Background(), "jb12345", insurance.PatientDetails{})
	if err != nil {
		t.Fatalf("VerifyMember returned error: %v", err)
	}
	if v.BenefitsDegraded {
		t.Error("structured benefits must not be flagged degraded")
	}
	if v.Benefits.AnnualLimit != 2000000 || v.Benefits.CopayPercent != 10 || v.Benefits.Deductible != 5000 {
		t.Errorf("benefits not mapped: %+v", v.Benefits)
	}
	if len(v.Dependents) != 1 || v.Dependents[0].MemberID != "JB12345-01" {
		t.Errorf("dependents not mapped: %+v", v.Dependents)
	}
}

func TestVerifyMemberTextBenefits(t *testing.T) {
	transport := newFakeTransport()
	transport.script(opMemberLookup, `{
		"memberNo": "JB54321",
		"memberName": "Juma Hassan",
		"status": "ACTIVE",
		"benefits": "Dental: covered. Annual limit: 1,000,000. Used: 250,000. Copay: 10%"
	}`)
	adapter := NewAdapter(transport, nil)

	v, err := adapter.VerifyMember(context.Background(), "JB54321", insurance.PatientDetails{})
	if err != nil {
		t.Fatalf("VerifyMember returned error: %v", err)
	}
	if v.BenefitsDegraded {
		t.Error("parseable text benefits must not be flagged degraded")
	}
	if !v.Benefits.DentalCoverage {
		t.Error("expected dental coverage extracted from text")
	}
	if v.Benefits.AnnualLimit != 1000000 || v.Benefits.UsedAmount != 250000 {
		t.Errorf("amounts not extracted: %+v", v.Benefits)
	}
	if v.Benefits.RemainingAmount != 750000 {
		t.Errorf("remaining should derive from limit-used, got %d", v.Benefits.RemainingAmount)
	}
	if v.Benefits.CopayPercent != 10 {
		t.Errorf("copay percent: got %d", v.Benefits.CopayPercent)
	}
}

func TestVerifyMemberUnparseableBenefitsDegrades(t *testing.T) {
	transport := newFakeTransport()
	transport.script(opMemberLookup, `{
		"memberNo": "JB77777",
		"memberName": "Eva John",
		"status": "ACTIVE",
		"benefits": "see policy booklet"
	}`)
	adapter := NewAdapter(transport, nil)

	v, err := adapter.VerifyMember(context.Background(), "JB77777", insurance.PatientDetails{})
	if err != nil {
		t.Fatalf("verification must not fail on an unparseable benefits blob: %v", err)
	}
	if !v.BenefitsDegraded {
		t.Error("expected BenefitsDegraded flag")
	}
	if v.Benefits != (insurance.Benefits{}) {
		t.Errorf("expected empty benefit set, got %+v", v.Benefits)
	}
}

func TestVerifyMemberStatusMapping(t *testing.T) {
	cases := []struct {
		status string
		want   insurance.Kind
	}{
		{"UNVERIFIED", insurance.KindUnverifiedMember},
		{"SUSPENDED", insurance.KindInactiveMember},
		{"LAPSED", insurance.KindInactiveMember},
		{"EXPIRED", insurance.KindInactiveMember},
		{"WEIRD", insurance.KindUnknown},
	}

	for _, tc := range cases {
		transport := newFakeTransport()
		transport.script(opMemberLookup, fmt.Sprintf(`{"memberNo":"JB12345","status":"%s"}`, tc.status))
		adapter := NewAdapter(transport, nil)

		_, err := adapter.VerifyMember(context.Background(), "JB12345", insurance.PatientDetails{})
		if insurance.KindOf(err) != tc.want {
			t.Errorf("status %s: got kind %s want %s", tc.status, insurance.KindOf(err), tc.want)
		}
	}
}

func TestVerifyMemberRateLimitIsTransient(t *testing.T) {
	transport := newFakeTransport()
	transport.errs[opMemberLookup] = &insurance.StatusError{Operation: opMemberLookup, Code: 429, Body: "slow down"}
	adapter := NewAdapter(transport, nil)

	_, err := adapter.VerifyMember(context.Background(), "JB12345", insurance.PatientDetails{})
	if !insurance.IsTransient(err) {
		t.Errorf("429 should classify as transient, got %v", err)
	}
}
