package claims

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
)

// ErrClaimNotFound is returned when no claim matches the lookup.
var ErrClaimNotFound = errors.New("claims: claim not found")

// ErrLiveClaimExists is returned by Insert when a live claim already holds
// the (encounter, provider) slot. The storage layer enforces this, so a
// race between two submitters turns into a clean rejection for the loser.
var ErrLiveClaimExists = errors.New("claims: a live claim already exists for this encounter and provider")

// Ledger is the durable store of submitted and attempted claims.
type Ledger interface {
	Insert(ctx context.Context, record *ClaimRecord) error
	UpdateStatus(ctx context.Context, claimID uuid.UUID, status Status) error
	FindLiveClaim(ctx context.Context, encounterID string, providerID insurance.ProviderID) (*ClaimRecord, error)
	ListByPatient(ctx context.Context, patientID string) ([]ClaimRecord, error)
	FindPreauth(ctx context.Context, encounterID string, providerID insurance.ProviderID) (*ClaimRecord, error)

	// RecordOutcome finalizes a submission attempt: status, failure reason
	// and the raw upstream response in one update. Transitioning into a
	// live status re-checks the uniqueness invariant.
	RecordOutcome(ctx context.Context, claimID uuid.UUID, status Status, failureReason string, rawResponse []byte) error
}

// MemoryLedger is an in-memory Ledger for tests and local development. It
// mirrors the storage-level uniqueness guarantee of the postgres ledger.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[uuid.UUID]*ClaimRecord
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[uuid.UUID]*ClaimRecord)}
}

// Insert stores a record, enforcing at most one live claim per
// (encounter, provider).
func (l *MemoryLedger) Insert(ctx context.Context, record *ClaimRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record.Status.Live() {
		for _, existing := range l.records {
			if existing.EncounterID == record.EncounterID &&
				existing.ProviderID == record.ProviderID &&
				existing.Status.Live() {
				return ErrLiveClaimExists
			}
		}
	}

	stored := *record
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = stored.CreatedAt
	l.records[stored.ClaimID] = &stored
	return nil
}

// UpdateStatus transitions an existing claim.
func (l *MemoryLedger) UpdateStatus(ctx context.Context, claimID uuid.UUID, status Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	record.Status = status
	record.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordOutcome finalizes an attempt, enforcing live uniqueness when the
// new status is live.
func (l *MemoryLedger) RecordOutcome(ctx context.Context, claimID uuid.UUID, status Status, failureReason string, rawResponse []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[claimID]
	if !ok {
		return ErrClaimNotFound
	}
	if status.Live() && !record.Status.Live() {
		for id, existing := range l.records {
			if id != claimID && existing.EncounterID == record.EncounterID &&
				existing.ProviderID == record.ProviderID && existing.Status.Live() {
				return ErrLiveClaimExists
			}
		}
	}
	record.Status = status
	record.FailureReason = failureReason
	if rawResponse != nil {
		record.RawResponse = rawResponse
	}
	record.UpdatedAt = time.Now().UTC()
	return nil
}

// FindLiveClaim returns the live claim for the pair, or ErrClaimNotFound.
func (l *MemoryLedger) FindLiveClaim(ctx context.Context, encounterID string, providerID insurance.ProviderID) (*ClaimRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, record := range l.records {
		if record.EncounterID == encounterID && record.ProviderID == providerID && record.Status.Live() {
			copied := *record
			return &copied, nil
		}
	}
	return nil, ErrClaimNotFound
}

// ListByPatient returns all claims for a patient, newest first.
func (l *MemoryLedger) ListByPatient(ctx context.Context, patientID string) ([]ClaimRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []ClaimRecord
	for _, record := range l.records {
		if record.PatientID == patientID {
			out = append(out, *record)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

// FindPreauth returns the stored pre-authorization for the pair, if any.
func (l *MemoryLedger) FindPreauth(ctx context.Context, encounterID string, providerID insurance.ProviderID) (*ClaimRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, record := range l.records {
		if record.EncounterID == encounterID && record.ProviderID == providerID && record.Preauth {
			copied := *record
			return &copied, nil
		}
	}
	return nil, ErrClaimNotFound
}
