package claims

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
)

func newRecord(encounterID string, status Status) *ClaimRecord {
	return &ClaimRecord{
		ClaimID:     uuid.New(),
		EncounterID: encounterID,
		ProviderID:  insurance.ProviderNHIF,
		MemberID:    "100200300",
		PatientID:   "PAT-1",
		TotalAmount: 50000,
		Status:      status,
	}
}

func TestMemoryLedgerInsertRejectsSecondLiveClaim(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Insert(ctx, newRecord("ENC-1", StatusSubmitted)))

	err := ledger.Insert(ctx, newRecord("ENC-1", StatusProcessing))
	assert.ErrorIs(t, err, ErrLiveClaimExists)

	// A cancelled prior claim frees the slot.
	require.NoError(t, ledger.Insert(ctx, newRecord("ENC-2", StatusCancelled)))
	require.NoError(t, ledger.Insert(ctx, newRecord("ENC-2", StatusSubmitted)))
}

func TestMemoryLedgerLiveUniquenessPerProvider(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Insert(ctx, newRecord("ENC-1", StatusSubmitted)))

	other := newRecord("ENC-1", StatusSubmitted)
	other.ProviderID = insurance.ProviderJubilee
	require.NoError(t, ledger.Insert(ctx, other), "different provider is a different slot")
}

func TestMemoryLedgerRecordOutcomeReleasesAndReclaimsSlot(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	first := newRecord("ENC-1", StatusProcessing)
	require.NoError(t, ledger.Insert(ctx, first))

	// Failure releases the slot.
	require.NoError(t, ledger.RecordOutcome(ctx, first.ClaimID, StatusPending, "upstream rejected", nil))
	_, err := ledger.FindLiveClaim(ctx, "ENC-1", insurance.ProviderNHIF)
	assert.ErrorIs(t, err, ErrClaimNotFound)

	// A new attempt takes the slot; the failed one cannot go live again.
	second := newRecord("ENC-1", StatusSubmitted)
	require.NoError(t, ledger.Insert(ctx, second))
	err = ledger.RecordOutcome(ctx, first.ClaimID, StatusSubmitted, "", nil)
	assert.ErrorIs(t, err, ErrLiveClaimExists)
}

func TestMemoryLedgerRecordOutcomeStoresResponseAndReason(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	record := newRecord("ENC-1", StatusProcessing)
	require.NoError(t, ledger.Insert(ctx, record))
	require.NoError(t, ledger.RecordOutcome(ctx, record.ClaimID, StatusSubmitted, "", []byte(`{"ok":true}`)))

	stored, err := ledger.FindLiveClaim(ctx, "ENC-1", insurance.ProviderNHIF)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, stored.Status)
	assert.JSONEq(t, `{"ok":true}`, string(stored.RawResponse))
	assert.Empty(t, stored.FailureReason)
}

func TestMemoryLedgerUpdateStatusUnknownClaim(t *testing.T) {
	ledger := NewMemoryLedger()
	err := ledger.UpdateStatus(context.Background(), uuid.New(), StatusCancelled)
	assert.ErrorIs(t, err, ErrClaimNotFound)
}

func TestMemoryLedgerListByPatientNewestFirst(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	older := newRecord("ENC-1", StatusSubmitted)
	older.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := newRecord("ENC-2", StatusSubmitted)
	newer.CreatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	unrelated := newRecord("ENC-3", StatusSubmitted)
	unrelated.PatientID = "PAT-OTHER"

	require.NoError(t, ledger.Insert(ctx, older))
	require.NoError(t, ledger.Insert(ctx, newer))
	require.NoError(t, ledger.Insert(ctx, unrelated))

	records, err := ledger.ListByPatient(ctx, "PAT-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ENC-2", records[0].EncounterID)
	assert.Equal(t, "ENC-1", records[1].EncounterID)
}

func TestMemoryLedgerFindPreauth(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	preauth := newRecord("ENC-1", StatusPending)
	preauth.Preauth = true
	preauth.SubmissionID = "SUB-9"
	require.NoError(t, ledger.Insert(ctx, preauth))
	require.NoError(t, ledger.Insert(ctx, newRecord("ENC-1", StatusSubmitted)))

	found, err := ledger.FindPreauth(ctx, "ENC-1", insurance.ProviderNHIF)
	require.NoError(t, err)
	assert.Equal(t, "SUB-9", found.SubmissionID)

	_, err = ledger.FindPreauth(ctx, "ENC-404", insurance.ProviderNHIF)
	assert.ErrorIs(t, err, ErrClaimNotFound)
}
