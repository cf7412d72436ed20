package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

func TestClaimsSummaryReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT provider_id, status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"provider_id", "status", "count", "sum"}).
			AddRow("JUBILEE", "submitted", 12, int64(480000)).
			AddRow("NHIF", "paid", 7, int64(350000)))

	h := NewAdminReportsHandler(db, logging.Default())
	req := httptest.NewRequest(http.MethodGet, "/admin/reports/claims?since=2025-03-01", nil)
	rec := httptest.NewRecorder()
	h.ClaimsSummary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ClaimsSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2025-03-01", resp.Since)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "JUBILEE", resp.Rows[0].ProviderID)
	assert.Equal(t, int64(480000), resp.Rows[0].TotalAmount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimsSummaryRejectsBadSince(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewAdminReportsHandler(db, logging.Default())
	req := httptest.NewRequest(http.MethodGet, "/admin/reports/claims?since=March", nil)
	rec := httptest.NewRecorder()
	h.ClaimsSummary(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFailedSubmissionsReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT provider_id, failure_reason, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"provider_id", "failure_reason", "count"}).
			AddRow("NHIF", "folio rejected: unknown item code", 4))

	h := NewAdminReportsHandler(db, logging.Default())
	req := httptest.NewRequest(http.MethodGet, "/admin/reports/failures", nil)
	rec := httptest.NewRecorder()
	h.FailedSubmissions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []FailureBreakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, 4, resp[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}
