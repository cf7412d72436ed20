package insurance

import (
	"context"
	"time"
)

// ProviderID identifies an upstream insurer. Dispatch happens through the
// registry on this enum, never through substring checks on display names.
type ProviderID string

const (
	ProviderNHIF      ProviderID = "NHIF"
	ProviderJubilee   ProviderID = "JUBILEE"
	ProviderStrategis ProviderID = "STRATEGIS"
	ProviderCash      ProviderID = "CASH"
)

// Family groups providers by the pre-claim handshake they require.
type Family string

const (
	// FamilyAuthorization providers issue a pre-authorization number
	// (folio/claims style) before a claim may be filed.
	FamilyAuthorization Family = "authorization"
	// FamilySession providers require an open visit session id.
	FamilySession Family = "session"
	// FamilyNone providers (cash) need no upstream handshake.
	FamilyNone Family = "none"
)

// FamilyOf returns the handshake family for a provider.
func FamilyOf(id ProviderID) Family {
	switch id {
	case ProviderNHIF:
		return FamilyAuthorization
	case ProviderJubilee, ProviderStrategis:
		return FamilySession
	default:
		return FamilyNone
	}
}

// MemberStatus is the normalized upstream membership status.
type MemberStatus string

const (
	StatusActive    MemberStatus = "active"
	StatusInactive  MemberStatus = "inactive"
	StatusSuspended MemberStatus = "suspended"
)

// Benefits is the normalized benefit set from a member lookup.
type Benefits struct {
	DentalCoverage  bool  `json:"dental_coverage"`
	AnnualLimit     int64 `json:"annual_limit"`
	UsedAmount      int64 `json:"used_amount"`
	RemainingAmount int64 `json:"remaining_amount"`
	CopayPercent    int64 `json:"copay_percent"`
	Deductible      int64 `json:"deductible"`
}

// Dependent is a covered family member on the principal's policy.
type Dependent struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Relation string `json:"relation"`
}

// MemberVerification is the common result every adapter normalizes its
// upstream member-lookup response into. Produced fresh per verification
// call; only the authorization number outlives the encounter (cached).
type MemberVerification struct {
	ProviderID ProviderID   `json:"provider_id"`
	MemberID   string       `json:"member_id"`
	IsValid    bool         `json:"is_valid"`
	MemberName string       `json:"member_name"`
	SchemeName string       `json:"scheme_name"`
	Status     MemberStatus `json:"status"`
	Benefits   Benefits     `json:"benefits"`
	Dependents []Dependent  `json:"dependents,omitempty"`

	// AuthorizationNumber is set when the provider's protocol issues one
	// during verification, usable later without a separate call.
	AuthorizationNumber string `json:"authorization_number,omitempty"`

	// BenefitsDegraded marks a benefits blob the adapter could not parse.
	// Verification still succeeds; the benefit set is empty and the caller
	// should warn the operator.
	BenefitsDegraded bool `json:"benefits_degraded,omitempty"`

	VerifiedAt time.Time `json:"verified_at"`
}

// AuthStatus is the lifecycle of a pre-authorization or session resolution.
type AuthStatus string

const (
	AuthPending  AuthStatus = "pending"
	AuthApproved AuthStatus = "approved"
	AuthDenied   AuthStatus = "denied"
)

// AuthorizationContext is what the resolver hands the claim builder: one
// instance per encounter, terminal once approved or denied.
type AuthorizationContext struct {
	ProviderID          ProviderID `json:"provider_id"`
	AuthorizationNumber string     `json:"authorization_number,omitempty"`
	SessionID           string     `json:"session_id,omitempty"`
	SubmissionID        string     `json:"submission_id,omitempty"`
	Status              AuthStatus `json:"status"`
}

// Terminal reports whether the context may no longer change.
func (a AuthorizationContext) Terminal() bool {
	return a.Status == AuthApproved || a.Status == AuthDenied
}

// PatientDetails is the clinic-side identity passed to verification and
// authorization calls.
type PatientDetails struct {
	PatientNumber string    `json:"patient_number"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	DateOfBirth   time.Time `json:"date_of_birth"`
	Gender        string    `json:"gender"`
	Phone         string    `json:"phone"`
}

// VerificationAdapter is the single capability interface every insurer
// integration implements. Format-invalid member ids must be rejected before
// any transport call is made.
type VerificationAdapter interface {
	VerifyMember(ctx context.Context, memberID string, patient PatientDetails) (*MemberVerification, error)
}

// AuthorizationResolver obtains the pre-claim reference a provider family
// requires: an authorization number or a visit session id. Polling is
// caller-driven; resolvers never start timers.
type AuthorizationResolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (*AuthorizationContext, error)
	Poll(ctx context.Context, submissionID string) (*AuthorizationContext, error)
}

// ResolveRequest carries everything a resolver may need for either family.
type ResolveRequest struct {
	EncounterID  string
	MemberID     string
	Patient      PatientDetails
	Verification *MemberVerification
	DiagnosisICD string
	Lines        []ResolveLine

	// ManualAuthorizationNumber is a portal-issued approval entered by an
	// operator. It always wins over API-derived and stored numbers.
	ManualAuthorizationNumber string
}

// ResolveLine is a priced treatment line for a pre-authorization request.
type ResolveLine struct {
	ItemCode  string
	Name      string
	UnitPrice int64
	Quantity  int
}
