package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// PgFallback serves decision-history queries straight from Postgres when
// Meilisearch is not configured or unhealthy.
type PgFallback struct {
	db *sql.DB
}

func NewPgFallback(db *sql.DB) *PgFallback {
	return &PgFallback{db: db}
}

func (p *PgFallback) Search(ctx context.Context, q Query) ([]DecisionRecord, int64, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"r.status = 'decided'"}
	args := []any{}
	argN := 1
	if text := strings.TrimSpace(q.Text); text != "" {
		where = append(where, fmt.Sprintf("(r.decision_reason ILIKE $%d OR r.decided_by ILIKE $%d OR r.submission_id ILIKE $%d OR b.name ILIKE $%d)", argN, argN, argN, argN))
		args = append(args, "%"+text+"%")
		argN++
	}
	if q.BoardID != "" {
		where = append(where, fmt.Sprintf("r.board_id = $%d", argN))
		args = append(args, q.BoardID)
		argN++
	}
	if q.Decision != "" {
		where = append(where, fmt.Sprintf("r.decision = $%d", argN))
		args = append(args, q.Decision)
		argN++
	}

	baseSQL := `
		FROM governance_reviews r
		JOIN governance_boards b ON b.id = r.board_id
		WHERE ` + strings.Join(where, " AND ")

	var total int64
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) "+baseSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count decisions: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT r.id, r.submission_id, r.board_id, b.name, r.review_round, r.decision, COALESCE(r.decision_reason, ''), COALESCE(r.decided_by, ''), r.decided_at
		%s
		ORDER BY r.decided_at DESC
		LIMIT %d`, baseSQL, limit), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search decisions: %w", err)
	}
	defer rows.Close()

	results := make([]DecisionRecord, 0)
	for rows.Next() {
		var record DecisionRecord
		var decidedAt *time.Time
		if err := rows.Scan(
			&record.ID,
			&record.SubmissionID,
			&record.BoardID,
			&record.BoardName,
			&record.ReviewRound,
			&record.Decision,
			&record.Reason,
			&record.DecidedBy,
			&decidedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan decision: %w", err)
		}
		if decidedAt != nil {
			record.DecidedAt = decidedAt.UTC().Format(time.RFC3339)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate decisions: %w", err)
	}
	return results, total, nil
}
