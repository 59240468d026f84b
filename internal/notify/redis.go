// Package notify publishes review state changes for the intake collaborator:
// a pub/sub event when a round reaches decided, plus a per-submission status
// key it can poll instead of subscribing.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	decidedChannel = "govreview:review-decided"
	statusPrefix   = "govreview:submission-status:"
)

// ReviewEvent is the payload published and mirrored on terminal transitions.
type ReviewEvent struct {
	ReviewID     string     `json:"reviewId"`
	SubmissionID string     `json:"submissionId"`
	BoardID      string     `json:"boardId"`
	ReviewRound  int        `json:"reviewRound"`
	Status       string     `json:"status"`
	Decision     *string    `json:"decision,omitempty"`
	DecidedBy    string     `json:"decidedBy"`
	DecidedAt    *time.Time `json:"decidedAt,omitempty"`
}

// Notifier publishes review events over Redis. A nil Notifier is a no-op so
// callers never need to guard for an unconfigured deployment.
type Notifier struct {
	client *redis.Client
}

func NewNotifier(redisURL string) (*Notifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Notifier{client: client}, nil
}

// NewNotifierWithClient wraps an existing client, used by tests.
func NewNotifierWithClient(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func statusKey(submissionID string) string {
	return statusPrefix + submissionID
}

// ReviewDecided publishes the event and updates the status mirror. Failures
// are logged, never surfaced: the database row is the source of truth.
func (n *Notifier) ReviewDecided(ctx context.Context, event ReviewEvent) {
	if n == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: marshal decided event %s: %v", event.ReviewID, err)
		return
	}
	if err := n.client.Publish(ctx, decidedChannel, payload).Err(); err != nil {
		log.Printf("notify: publish decided event %s: %v", event.ReviewID, err)
	}
	n.mirrorStatus(ctx, event, payload)
}

// ReviewCancelled updates the status mirror only; the decided channel is
// reserved for rounds that produced a decision.
func (n *Notifier) ReviewCancelled(ctx context.Context, event ReviewEvent) {
	if n == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: marshal cancelled event %s: %v", event.ReviewID, err)
		return
	}
	n.mirrorStatus(ctx, event, payload)
}

func (n *Notifier) mirrorStatus(ctx context.Context, event ReviewEvent, payload []byte) {
	if err := n.client.Set(ctx, statusKey(event.SubmissionID), payload, 0).Err(); err != nil {
		log.Printf("notify: mirror status for submission %s: %v", event.SubmissionID, err)
	}
}

// SubmissionStatus reads back the mirrored status, for tests and debugging.
func (n *Notifier) SubmissionStatus(ctx context.Context, submissionID string) (*ReviewEvent, error) {
	if n == nil {
		return nil, nil
	}
	raw, err := n.client.Get(ctx, statusKey(submissionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read submission status: %w", err)
	}
	var event ReviewEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, fmt.Errorf("decode submission status: %w", err)
	}
	return &event, nil
}

func (n *Notifier) Ping(ctx context.Context) error {
	if n == nil {
		return nil
	}
	return n.client.Ping(ctx).Err()
}

func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	return n.client.Close()
}
