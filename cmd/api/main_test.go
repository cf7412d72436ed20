package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile-clinic/claims-platform/internal/claims"
	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
)

func TestSplitOrigins(t *testing.T) {
	assert.Nil(t, splitOrigins(""))
	assert.Equal(t, []string{"https://desk.example.com"}, splitOrigins("https://desk.example.com"))
	assert.Equal(t,
		[]string{"https://a.example.com", "https://b.example.com"},
		splitOrigins(" https://a.example.com, https://b.example.com ,"))
}

func TestLedgerPreauthsMapsRecords(t *testing.T) {
	ledger := claims.NewMemoryLedger()
	ctx := context.Background()

	// No record: not an error, just nothing stored.
	store := ledgerPreauths{ledger: ledger}
	got, err := store.FindPreauth(ctx, "ENC-404")
	require.NoError(t, err)
	assert.Nil(t, got)

	record := &claims.ClaimRecord{
		EncounterID:         "ENC-1",
		ProviderID:          insurance.ProviderNHIF,
		Preauth:             true,
		AuthorizationNumber: "AUTH-7",
		SubmissionID:        "SUB-7",
		Status:              claims.StatusPending,
	}
	require.NoError(t, ledger.Insert(ctx, record))

	got, err = store.FindPreauth(ctx, "ENC-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, insurance.AuthApproved, got.Status)
	assert.Equal(t, "AUTH-7", got.AuthorizationNumber)
	assert.Equal(t, "SUB-7", got.SubmissionID)
}
