package insurance

import (
	"context"
	"encoding/json"
	"time"
)

// CashAdapter accepts every patient: cash visits have no insurer to check
// against, but the workflow still wants a verification result to carry
// through.
type CashAdapter struct{}

// VerifyMember returns an active verification without any upstream call.
func (CashAdapter) VerifyMember(ctx context.Context, memberID string, patient PatientDetails) (*MemberVerification, error) {
	return &MemberVerification{
		ProviderID: ProviderCash,
		MemberID:   memberID,
		IsValid:    true,
		MemberName: patient.FirstName + " " + patient.LastName,
		Status:     StatusActive,
		SchemeName: "Cash",
		VerifiedAt: time.Now().UTC(),
	}, nil
}

// NoTransport acknowledges every submission locally. Cash claims are
// recorded in the ledger only; there is no upstream to reach.
type NoTransport struct{}

// Call returns a synthetic acceptance for any operation.
func (NoTransport) Call(ctx context.Context, operation string, payload any) (json.RawMessage, error) {
	return json.RawMessage(`{"status":"RECORDED"}`), nil
}

// Reauthenticate is a no-op.
func (NoTransport) Reauthenticate(ctx context.Context) error { return nil }
