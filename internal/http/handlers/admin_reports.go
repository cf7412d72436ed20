package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/brightsmile-clinic/claims-platform/pkg/logging"
)

// AdminReportsHandler serves aggregate claim reporting for back-office
// staff. It reads through database/sql rather than the ledger because the
// queries are reporting-shaped aggregates, not claim lookups.
type AdminReportsHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewAdminReportsHandler creates the reports handler.
func NewAdminReportsHandler(db *sql.DB, logger *logging.Logger) *AdminReportsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminReportsHandler{db: db, logger: logger}
}

// ProviderSummary is one row of the claims summary report.
type ProviderSummary struct {
	ProviderID  string `json:"provider_id"`
	Status      string `json:"status"`
	ClaimCount  int    `json:"claim_count"`
	TotalAmount int64  `json:"total_amount"`
}

// ClaimsSummaryResponse is the claims report payload.
type ClaimsSummaryResponse struct {
	Since     string            `json:"since"`
	Rows      []ProviderSummary `json:"rows"`
	Generated time.Time         `json:"generated_at"`
}

// ClaimsSummary handles GET /admin/reports/claims.
// The optional "since" query parameter (YYYY-MM-DD) defaults to the last
// 30 days.
func (h *AdminReportsHandler) ClaimsSummary(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeBadRequest(w, "since must be YYYY-MM-DD")
			return
		}
		since = parsed
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT provider_id, status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM claims
		WHERE created_at >= $1
		GROUP BY provider_id, status
		ORDER BY provider_id, status
	`, since)
	if err != nil {
		h.logger.Error("claims summary query failed", "error", err)
		http.Error(w, "report query failed", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	resp := ClaimsSummaryResponse{
		Since:     since.Format("2006-01-02"),
		Rows:      []ProviderSummary{},
		Generated: time.Now().UTC(),
	}
	for rows.Next() {
		var row ProviderSummary
		if err := rows.Scan(&row.ProviderID, &row.Status, &row.ClaimCount, &row.TotalAmount); err != nil {
			h.logger.Error("claims summary scan failed", "error", err)
			http.Error(w, "report query failed", http.StatusInternalServerError)
			return
		}
		resp.Rows = append(resp.Rows, row)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("claims summary iteration failed", "error", err)
		http.Error(w, "report query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// FailureBreakdown is one row of the failed-submissions report.
type FailureBreakdown struct {
	ProviderID    string `json:"provider_id"`
	FailureReason string `json:"failure_reason"`
	Count         int    `json:"count"`
}

// FailedSubmissions handles GET /admin/reports/failures. It groups
// recorded submission failures so recurring upstream rejections stand out.
func (h *AdminReportsHandler) FailedSubmissions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT provider_id, failure_reason, COUNT(*)
		FROM claims
		WHERE status = 'pending' AND failure_reason <> ''
		GROUP BY provider_id, failure_reason
		ORDER BY COUNT(*) DESC
		LIMIT 50
	`)
	if err != nil {
		h.logger.Error("failure report query failed", "error", err)
		http.Error(w, "report query failed", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	out := []FailureBreakdown{}
	for rows.Next() {
		var row FailureBreakdown
		if err := rows.Scan(&row.ProviderID, &row.FailureReason, &row.Count); err != nil {
			h.logger.Error("failure report scan failed", "error", err)
			http.Error(w, "report query failed", http.StatusInternalServerError)
			return
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("failure report iteration failed", "error", err)
		http.Error(w, "report query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
