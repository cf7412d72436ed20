package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/brightsmile-clinic/claims-platform/internal/insurance"
)

// uniqueViolation is the postgres SQLSTATE raised by the partial unique
// index on live claims.
const uniqueViolation = "23505"

// PgxPool is the subset of pgxpool.Pool the ledger uses; pgxmock satisfies
// it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger stores claims in the relational database. The
// at-most-one-live-claim invariant is enforced by a partial unique index,
// not application logic, so concurrent submitters race safely.
type PostgresLedger struct {
	pool PgxPool
}

// NewPostgresLedger initializes a ledger backed by pgxpool.
func NewPostgresLedger(pool PgxPool) *PostgresLedger {
	if pool == nil {
		panic("claims: pgx pool required")
	}
	return &PostgresLedger{pool: pool}
}

// Insert persists a new claim row. A unique violation on the live-claim
// index maps to ErrLiveClaimExists.
func (l *PostgresLedger) Insert(ctx context.Context, record *ClaimRecord) error {
	query := `
		INSERT INTO claims (
			id, encounter_id, provider_id, member_id, patient_id,
			authorization_number, session_id, submission_id, preauth,
			line_items, total_amount, status, failure_reason,
			raw_request, raw_response
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`
	var createdAt time.Time
	err := l.pool.QueryRow(ctx, query,
		record.ClaimID,
		record.EncounterID,
		string(record.ProviderID),
		record.MemberID,
		record.PatientID,
		record.AuthorizationNumber,
		record.SessionID,
		record.SubmissionID,
		record.Preauth,
		record.LineItems,
		record.TotalAmount,
		string(record.Status),
		record.FailureReason,
		record.RawRequest,
		record.RawResponse,
	).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrLiveClaimExists
		}
		return fmt.Errorf("claims: insert failed: %w", err)
	}
	record.CreatedAt = createdAt
	record.UpdatedAt = createdAt
	return nil
}

// UpdateStatus transitions an existing claim row in place.
func (l *PostgresLedger) UpdateStatus(ctx context.Context, claimID uuid.UUID, status Status) error {
	tag, err := l.pool.Exec(ctx, `
		UPDATE claims SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, claimID, string(status))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrLiveClaimExists
		}
		return fmt.Errorf("claims: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClaimNotFound
	}
	return nil
}

// RecordOutcome finalizes a submission attempt. A transition into a live
// status that collides with an existing live claim surfaces as
// ErrLiveClaimExists via the partial unique index.
func (l *PostgresLedger) RecordOutcome(ctx context.Context, claimID uuid.UUID, status Status, failureReason string, rawResponse []byte) error {
	tag, err := l.pool.Exec(ctx, `
		UPDATE claims
		SET status = $2,
		    failure_reason = $3,
		    raw_response = COALESCE($4, raw_response),
		    updated_at = NOW()
		WHERE id = $1
	`, claimID, string(status), failureReason, rawResponse)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrLiveClaimExists
		}
		return fmt.Errorf("claims: record outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClaimNotFound
	}
	return nil
}

// FindLiveClaim returns the live claim for (encounter, provider), or
// ErrClaimNotFound.
func (l *PostgresLedger) FindLiveClaim(ctx context.Context, encounterID string, providerID insurance.ProviderID) (*ClaimRecord, error) {
	query := selectClaim + `
		WHERE encounter_id = $1 AND provider_id = $2
		  AND status IN ('submitted', 'processing', 'approved', 'paid')
	`
	record, err := l.scanOne(l.pool.QueryRow(ctx, query, encounterID, string(providerID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("claims: find live claim: %w", err)
	}
	return record, nil
}

// FindPreauth returns the stored pre-authorization claim for the pair.
func (l *PostgresLedger) FindPreauth(ctx context.Context, encounterID string, providerID insurance.ProviderID) (*ClaimRecord, error) {
	query := selectClaim + `
		WHERE encounter_id = $1 AND provider_id = $2 AND preauth
		ORDER BY created_at DESC
		LIMIT 1
	`
	record, err := l.scanOne(l.pool.QueryRow(ctx, query, encounterID, string(providerID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("claims: find preauth: %w", err)
	}
	return record, nil
}

// ListByPatient returns all claims for a patient, newest first.
func (l *PostgresLedger) ListByPatient(ctx context.Context, patientID string) ([]ClaimRecord, error) {
	query := selectClaim + `
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	rows, err := l.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("claims: list by patient: %w", err)
	}
	defer rows.Close()

	var out []ClaimRecord
	for rows.Next() {
		record, err := l.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("claims: scan row: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claims: iterate rows: %w", err)
	}
	return out, nil
}

const selectClaim = `
	SELECT id, encounter_id, provider_id, member_id, patient_id,
	       authorization_number, session_id, submission_id, preauth,
	       line_items, total_amount, status, failure_reason,
	       raw_request, raw_response, created_at, updated_at
	FROM claims
`

func (l *PostgresLedger) scanOne(row pgx.Row) (*ClaimRecord, error) {
	var record ClaimRecord
	var providerID, status string
	if err := row.Scan(
		&record.ClaimID,
		&record.EncounterID,
		&providerID,
		&record.MemberID,
		&record.PatientID,
		&record.AuthorizationNumber,
		&record.SessionID,
		&record.SubmissionID,
		&record.Preauth,
		&record.LineItems,
		&record.TotalAmount,
		&status,
		&record.FailureReason,
		&record.RawRequest,
		&record.RawResponse,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	record.ProviderID = insurance.ProviderID(providerID)
	record.Status = Status(status)
	return &record, nil
}
