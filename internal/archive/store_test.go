package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type capturedPut struct {
	bucket string
	key    string
}

type fakeS3 struct {
	puts []capturedPut
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, capturedPut{bucket: *params.Bucket, key: *params.Key})
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveClaimWritesDatedKey(t *testing.T) {
	client := &fakeS3{}
	store := NewStore(client, "claims-audit", nil)

	audit := &ClaimAudit{
		ClaimID:     "7c0f3f60-0000-0000-0000-000000000001",
		EncounterID: "enc-1",
		ProviderID:  "NHIF",
		Status:      "submitted",
		ArchivedAt:  time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	if err := store.ArchiveClaim(context.Background(), audit); err != nil {
		t.Fatalf("ArchiveClaim returned error: %v", err)
	}

	if len(client.puts) != 1 {
		t.Fatalf("expected one put, got %d", len(client.puts))
	}
	put := client.puts[0]
	if put.bucket != "claims-audit" {
		t.Errorf("bucket: got %s", put.bucket)
	}
	if !strings.HasPrefix(put.key, "claims/v1/by-date/2026/03/14/") {
		t.Errorf("key not dated as expected: %s", put.key)
	}
}

func TestArchiveDisabledIsNoOp(t *testing.T) {
	store := NewStore(nil, "", nil)
	if store.Enabled() {
		t.Error("store without bucket must be disabled")
	}
	if err := store.ArchiveClaim(context.Background(), &ClaimAudit{ClaimID: "x"}); err != nil {
		t.Errorf("disabled archive must no-op, got %v", err)
	}
}
