package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store archives raw claim request/response pairs to S3 for audit. Claim
// payloads are also kept in the ledger; the archive is the immutable
// long-term copy support staff pull when an insurer disputes a submission.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *slog.Logger
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// ClaimAudit is the archived shape of one submission attempt.
type ClaimAudit struct {
	ClaimID     string          `json:"claim_id"`
	EncounterID string          `json:"encounter_id"`
	ProviderID  string          `json:"provider_id"`
	Status      string          `json:"status"`
	RawRequest  json.RawMessage `json:"raw_request,omitempty"`
	RawResponse json.RawMessage `json:"raw_response,omitempty"`
	ArchivedAt  time.Time       `json:"archived_at"`
}

// ArchiveClaim writes the audit record as JSON under a dated key.
func (s *Store) ArchiveClaim(ctx context.Context, audit *ClaimAudit) error {
	if !s.Enabled() {
		return nil
	}

	if audit.ArchivedAt.IsZero() {
		audit.ArchivedAt = time.Now().UTC()
	}

	data, err := json.Marshal(audit)
	if err != nil {
		return fmt.Errorf("archive: marshal claim audit: %w", err)
	}

	now := audit.ArchivedAt
	s3Key := fmt.Sprintf("claims/v1/by-date/%d/%02d/%02d/%s.json",
		now.Year(), now.Month(), now.Day(), audit.ClaimID)

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", s3Key, err)
	}

	s.logger.Info("archived claim to S3",
		"claim_id", audit.ClaimID,
		"s3_key", s3Key,
		"provider", audit.ProviderID,
	)
	return nil
}
