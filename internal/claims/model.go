package claims

import (
	"time"

	"github.com/google/uuid"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
)

// Status is the claim lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusApproved   Status = "approved"
	StatusPaid       Status = "paid"
	StatusCancelled  Status = "cancelled"
)

// LiveStatuses are the states that count against the one-live-claim-per-
// encounter invariant. A pending record (failed attempt awaiting support
// review) and a cancelled one do not block resubmission.
var LiveStatuses = []Status{StatusSubmitted, StatusProcessing, StatusApproved, StatusPaid}

// Live reports whether the status blocks another submission.
func (s Status) Live() bool {
	for _, live := range LiveStatuses {
		if s == live {
			return true
		}
	}
	return false
}

// ClaimRecord is one submitted or attempted claim. Created exactly once per
// (encounter, provider) by the orchestrator; later status changes are
// updates to the same row, never new rows.
type ClaimRecord struct {
	ClaimID             uuid.UUID            `json:"claim_id"`
	EncounterID         string               `json:"encounter_id"`
	ProviderID          insurance.ProviderID `json:"provider_id"`
	MemberID            string               `json:"member_id"`
	PatientID           string               `json:"patient_id"`
	AuthorizationNumber string               `json:"authorization_number,omitempty"`
	SessionID           string               `json:"session_id,omitempty"`
	SubmissionID        string               `json:"submission_id,omitempty"`
	Preauth             bool                 `json:"preauth"`
	LineItems           []ClaimLine          `json:"line_items"`
	TotalAmount         int64                `json:"total_amount"`
	Status              Status               `json:"status"`
	FailureReason       string               `json:"failure_reason,omitempty"`
	RawRequest          []byte               `json:"-"`
	RawResponse         []byte               `json:"-"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// ClaimLine is one billed line inside a claim payload.
type ClaimLine struct {
	ItemCode  string `json:"item_code"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`

	// Modifier marks deduction/discount entries, kept as explicit lines so
	// the original subtotal stays auditable.
	Modifier bool `json:"modifier,omitempty"`

	// CorrectedUnitPrice is set when a supplied line total disagreed with
	// unit*quantity and the builder derived a new unit price from the total.
	CorrectedUnitPrice bool `json:"corrected_unit_price,omitempty"`
}
