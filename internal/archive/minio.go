// Package archive writes an immutable JSON record of each decided review to
// S3-compatible object storage, as audit evidence independent of the
// database.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DecisionRecord is the archived shape: the full frozen state of the round.
type DecisionRecord struct {
	ReviewID         string    `json:"reviewId"`
	SubmissionID     string    `json:"submissionId"`
	BoardID          string    `json:"boardId"`
	ReviewRound      int       `json:"reviewRound"`
	Decision         string    `json:"decision"`
	DecisionReason   string    `json:"decisionReason"`
	DecidedBy        string    `json:"decidedBy"`
	DecidedAt        time.Time `json:"decidedAt"`
	CriteriaSnapshot any       `json:"criteriaSnapshot"`
	PolicySnapshot   any       `json:"policySnapshot"`
	Participants     any       `json:"participants"`
	Votes            any       `json:"votes"`
	Quorum           any       `json:"quorum"`
	Score            any       `json:"score"`
}

// Archiver stores decision records in a bucket. A nil Archiver is a no-op.
type Archiver struct {
	client *minio.Client
	bucket string
}

func NewArchiver(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check archive bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create archive bucket: %w", err)
		}
	}

	return &Archiver{client: client, bucket: bucket}, nil
}

// ArchiveDecision uploads the record in the background. Failures are logged;
// the database row remains the source of truth.
func (a *Archiver) ArchiveDecision(record DecisionRecord) {
	if a == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		payload, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			log.Printf("archive: marshal decision %s: %v", record.ReviewID, err)
			return
		}
		key := fmt.Sprintf("%s/round-%d/%s.json", record.SubmissionID, record.ReviewRound, record.ReviewID)
		_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
		if err != nil {
			log.Printf("archive: put decision %s: %v", record.ReviewID, err)
			return
		}
	}()
}
