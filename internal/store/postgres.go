package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolation reports whether err is a Postgres FK constraint error.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// --- settings ---

func (s *PostgresStore) GetSettings(ctx context.Context) (Settings, error) {
	var item Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT governance_enabled, quorum_percent, quorum_min_count, decision_requires_quorum, vote_window_days, updated_by, updated_at
		FROM governance_settings
		WHERE id=1
	`).Scan(
		&item.GovernanceEnabled,
		&item.QuorumPercent,
		&item.QuorumMinCount,
		&item.DecisionRequiresQuorum,
		&item.VoteWindowDays,
		&item.UpdatedBy,
		&item.UpdatedAt,
	)
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) UpdateSettings(ctx context.Context, item Settings) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE governance_settings
		SET governance_enabled=$1, quorum_percent=$2, quorum_min_count=$3, decision_requires_quorum=$4, vote_window_days=$5, updated_by=$6, updated_at=NOW()
		WHERE id=1
	`, item.GovernanceEnabled, item.QuorumPercent, item.QuorumMinCount, item.DecisionRequiresQuorum, item.VoteWindowDays, item.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// --- boards ---

func (s *PostgresStore) ListBoards(ctx context.Context, includeInactive bool) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_active, created_by, created_at, updated_at
		FROM governance_boards
		WHERE ($1::boolean OR is_active)
		ORDER BY name ASC
	`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]Board, 0)
	for rows.Next() {
		var item Board
		if err := rows.Scan(&item.ID, &item.Name, &item.IsActive, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var item Board
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, is_active, created_by, created_at, updated_at
		FROM governance_boards
		WHERE id=$1
	`, boardID).Scan(&item.ID, &item.Name, &item.IsActive, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Board{}, err
	}
	return item, nil
}

func (s *PostgresStore) CreateBoard(ctx context.Context, item Board) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO governance_boards (id, name, is_active, created_by)
		VALUES ($1, $2, $3, $4)
	`, item.ID, item.Name, item.IsActive, item.CreatedBy)
	if err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateBoard(ctx context.Context, boardID, name string, isActive bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE governance_boards
		SET name=$2, is_active=$3, updated_at=NOW()
		WHERE id=$1
	`, boardID, name, isActive)
	if err != nil {
		return false, fmt.Errorf("update board: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update board rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteBoard(ctx context.Context, boardID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM governance_boards WHERE id=$1`, boardID)
	if err != nil {
		return false, fmt.Errorf("delete board: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete board rows: %w", err)
	}
	return affected > 0, nil
}

// --- memberships ---

func (s *PostgresStore) ListMemberships(ctx context.Context, boardID string) ([]Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, user_oid, display_name, role, is_active, effective_from, effective_to, created_at
		FROM governance_memberships
		WHERE board_id=$1
		ORDER BY created_at ASC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// EligibleMemberships returns the active memberships whose effective window
// contains at.
func (s *PostgresStore) EligibleMemberships(ctx context.Context, boardID string, at time.Time) ([]Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, user_oid, display_name, role, is_active, effective_from, effective_to, created_at
		FROM governance_memberships
		WHERE board_id=$1
		  AND is_active
		  AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to > $2)
		ORDER BY user_oid ASC
	`, boardID, at)
	if err != nil {
		return nil, fmt.Errorf("list eligible memberships: %w", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

func scanMemberships(rows *sql.Rows) ([]Membership, error) {
	items := make([]Membership, 0)
	for rows.Next() {
		var item Membership
		if err := rows.Scan(
			&item.ID,
			&item.BoardID,
			&item.UserOid,
			&item.DisplayName,
			&item.Role,
			&item.IsActive,
			&item.EffectiveFrom,
			&item.EffectiveTo,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return items, nil
}

// UpsertMembership closes the user's current open row on the board (if any)
// and inserts a fresh one, in a single transaction. Rows already referenced
// by past participant snapshots are never mutated beyond their effective_to.
func (s *PostgresStore) UpsertMembership(ctx context.Context, item Membership) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin membership tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE governance_memberships
		SET effective_to=$3, is_active=FALSE
		WHERE board_id=$1 AND user_oid=$2 AND is_active
		  AND (effective_to IS NULL OR effective_to > $3)
	`, item.BoardID, item.UserOid, item.EffectiveFrom); err != nil {
		return fmt.Errorf("close membership row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO governance_memberships (id, board_id, user_oid, display_name, role, is_active, effective_from, effective_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.BoardID, item.UserOid, item.DisplayName, item.Role, item.IsActive, item.EffectiveFrom, item.EffectiveTo); err != nil {
		return fmt.Errorf("insert membership row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit membership tx: %w", err)
	}
	return nil
}

// --- criteria versions ---

const criteriaVersionColumns = `id, board_id, version_no, status, criteria_json, published_at, published_by, created_by, created_at`

func (s *PostgresStore) ListCriteriaVersions(ctx context.Context, boardID string) ([]CriteriaVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+criteriaVersionColumns+`
		FROM governance_criteria_versions
		WHERE board_id=$1
		ORDER BY version_no DESC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list criteria versions: %w", err)
	}
	defer rows.Close()

	items := make([]CriteriaVersion, 0)
	for rows.Next() {
		item, err := scanCriteriaVersion(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate criteria versions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetCriteriaVersion(ctx context.Context, versionID string) (CriteriaVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+criteriaVersionColumns+`
		FROM governance_criteria_versions
		WHERE id=$1
	`, versionID)
	return scanCriteriaVersion(row.Scan)
}

// CurrentPublishedVersion returns nil when the board has no published rubric.
func (s *PostgresStore) CurrentPublishedVersion(ctx context.Context, boardID string) (*CriteriaVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+criteriaVersionColumns+`
		FROM governance_criteria_versions
		WHERE board_id=$1 AND status='published'
	`, boardID)
	item, err := scanCriteriaVersion(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get published version: %w", err)
	}
	return &item, nil
}

func scanCriteriaVersion(scan func(dest ...any) error) (CriteriaVersion, error) {
	var item CriteriaVersion
	var criteriaJSON []byte
	if err := scan(
		&item.ID,
		&item.BoardID,
		&item.VersionNo,
		&item.Status,
		&criteriaJSON,
		&item.PublishedAt,
		&item.PublishedBy,
		&item.CreatedBy,
		&item.CreatedAt,
	); err != nil {
		return CriteriaVersion{}, err
	}
	if err := json.Unmarshal(criteriaJSON, &item.Criteria); err != nil {
		return CriteriaVersion{}, fmt.Errorf("decode criteria json: %w", err)
	}
	return item, nil
}

// CreateCriteriaDraft allocates the next version number for the board inside
// the insert itself; a concurrent create loses on the (board_id, version_no)
// unique constraint.
func (s *PostgresStore) CreateCriteriaDraft(ctx context.Context, item CriteriaVersion) (int, error) {
	criteriaJSON, err := json.Marshal(item.Criteria)
	if err != nil {
		return 0, fmt.Errorf("encode criteria json: %w", err)
	}
	var versionNo int
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO governance_criteria_versions (id, board_id, version_no, status, criteria_json, created_by)
		SELECT $1, $2, COALESCE(MAX(version_no), 0) + 1, 'draft', $3::jsonb, $4
		FROM governance_criteria_versions
		WHERE board_id=$2
		RETURNING version_no
	`, item.ID, item.BoardID, criteriaJSON, item.CreatedBy).Scan(&versionNo)
	if err != nil {
		return 0, fmt.Errorf("create criteria draft: %w", err)
	}
	return versionNo, nil
}

func (s *PostgresStore) UpdateCriteriaDraft(ctx context.Context, versionID string, criteria []Criterion) (bool, error) {
	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return false, fmt.Errorf("encode criteria json: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE governance_criteria_versions
		SET criteria_json=$2::jsonb
		WHERE id=$1 AND status='draft'
	`, versionID, criteriaJSON)
	if err != nil {
		return false, fmt.Errorf("update criteria draft: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update criteria draft rows: %w", err)
	}
	return affected > 0, nil
}

// PublishCriteriaVersion promotes a draft and retires the board's previously
// published version in the same transaction, so at most one published version
// exists per board at any instant.
func (s *PostgresStore) PublishCriteriaVersion(ctx context.Context, versionID, publishedBy string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin publish tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var boardID string
	err = tx.QueryRowContext(ctx, `
		SELECT board_id FROM governance_criteria_versions
		WHERE id=$1 AND status='draft'
		FOR UPDATE
	`, versionID).Scan(&boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock draft version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE governance_criteria_versions
		SET status='retired'
		WHERE board_id=$1 AND status='published'
	`, boardID); err != nil {
		return false, fmt.Errorf("retire published version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE governance_criteria_versions
		SET status='published', published_at=NOW(), published_by=$2
		WHERE id=$1
	`, versionID, publishedBy); err != nil {
		return false, fmt.Errorf("publish version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit publish tx: %w", err)
	}
	return true, nil
}

// --- reviews ---

func (s *PostgresStore) NextReviewRound(ctx context.Context, submissionID string) (int, error) {
	var round int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(review_round), 0) + 1
		FROM governance_reviews
		WHERE submission_id=$1
	`, submissionID).Scan(&round)
	if err != nil {
		return 0, fmt.Errorf("next review round: %w", err)
	}
	return round, nil
}

// CreateReview persists the review row and its full participant snapshot as
// one transaction. The partial unique index on (submission_id) WHERE
// status='in-review' rejects a concurrent open of the same submission, which
// surfaces here as a unique violation.
func (s *PostgresStore) CreateReview(ctx context.Context, review Review, participants []Participant) error {
	criteriaJSON, err := json.Marshal(review.CriteriaSnapshot)
	if err != nil {
		return fmt.Errorf("encode criteria snapshot: %w", err)
	}
	policyJSON, err := json.Marshal(review.PolicySnapshot)
	if err != nil {
		return fmt.Errorf("encode policy snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO governance_reviews (id, submission_id, board_id, review_round, status, criteria_version_id, criteria_snapshot_json, policy_snapshot_json, vote_deadline_at, started_at, started_by)
		VALUES ($1, $2, $3, $4, 'in-review', $5, $6::jsonb, $7::jsonb, $8, $9, $10)
	`, review.ID, review.SubmissionID, review.BoardID, review.ReviewRound, review.CriteriaVersionID, criteriaJSON, policyJSON, review.VoteDeadlineAt, review.StartedAt, review.StartedBy); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	for _, participant := range participants {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO governance_review_participants (review_id, user_oid, display_name, participant_role, is_eligible_voter)
			VALUES ($1, $2, $3, $4, $5)
		`, review.ID, participant.UserOid, participant.DisplayName, participant.ParticipantRole, participant.IsEligibleVoter); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}
	return nil
}

const reviewColumns = `id, submission_id, board_id, review_round, status, decision, decision_reason, criteria_version_id, criteria_snapshot_json, policy_snapshot_json, vote_deadline_at, started_at, started_by, decided_at, decided_by`

func (s *PostgresStore) GetReview(ctx context.Context, reviewID string) (Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+`
		FROM governance_reviews
		WHERE id=$1
	`, reviewID)
	return scanReview(row.Scan)
}

// LatestReview returns the newest round for a submission, nil when none exist.
func (s *PostgresStore) LatestReview(ctx context.Context, submissionID string) (*Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+`
		FROM governance_reviews
		WHERE submission_id=$1
		ORDER BY review_round DESC
		LIMIT 1
	`, submissionID)
	item, err := scanReview(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest review: %w", err)
	}
	return &item, nil
}

func scanReview(scan func(dest ...any) error) (Review, error) {
	var item Review
	var criteriaJSON, policyJSON []byte
	if err := scan(
		&item.ID,
		&item.SubmissionID,
		&item.BoardID,
		&item.ReviewRound,
		&item.Status,
		&item.Decision,
		&item.DecisionReason,
		&item.CriteriaVersionID,
		&criteriaJSON,
		&policyJSON,
		&item.VoteDeadlineAt,
		&item.StartedAt,
		&item.StartedBy,
		&item.DecidedAt,
		&item.DecidedBy,
	); err != nil {
		return Review{}, err
	}
	if err := json.Unmarshal(criteriaJSON, &item.CriteriaSnapshot); err != nil {
		return Review{}, fmt.Errorf("decode criteria snapshot: %w", err)
	}
	if err := json.Unmarshal(policyJSON, &item.PolicySnapshot); err != nil {
		return Review{}, fmt.Errorf("decode policy snapshot: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListParticipants(ctx context.Context, reviewID string) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT review_id, user_oid, display_name, participant_role, is_eligible_voter
		FROM governance_review_participants
		WHERE review_id=$1
		ORDER BY user_oid ASC
	`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	items := make([]Participant, 0)
	for rows.Next() {
		var item Participant
		if err := rows.Scan(&item.ReviewID, &item.UserOid, &item.DisplayName, &item.ParticipantRole, &item.IsEligibleVoter); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return items, nil
}

// --- votes ---

func (s *PostgresStore) ListVotes(ctx context.Context, reviewID string) ([]Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT review_id, voter_user_oid, scores_json, comment, conflict_declared, submitted_at, updated_at
		FROM governance_votes
		WHERE review_id=$1
		ORDER BY voter_user_oid ASC
	`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	items := make([]Vote, 0)
	for rows.Next() {
		var item Vote
		var scoresJSON []byte
		if err := rows.Scan(&item.ReviewID, &item.VoterUserOid, &scoresJSON, &item.Comment, &item.ConflictDeclared, &item.SubmittedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		if err := json.Unmarshal(scoresJSON, &item.Scores); err != nil {
			return nil, fmt.Errorf("decode scores json: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate votes: %w", err)
	}
	return items, nil
}

// UpsertVote writes or overwrites the voter's row in one conditioned
// statement: the insert only produces a row while the review is still
// in-review, so a vote against a terminal review affects zero rows. A
// resubmission keeps submitted_at and stamps updated_at.
func (s *PostgresStore) UpsertVote(ctx context.Context, vote Vote) (bool, error) {
	scoresJSON, err := json.Marshal(vote.Scores)
	if err != nil {
		return false, fmt.Errorf("encode scores json: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO governance_votes (review_id, voter_user_oid, scores_json, comment, conflict_declared, submitted_at)
		SELECT $1, $2, $3::jsonb, $4, $5, NOW()
		WHERE EXISTS (SELECT 1 FROM governance_reviews WHERE id=$1 AND status='in-review')
		ON CONFLICT (review_id, voter_user_oid) DO UPDATE
		SET scores_json=EXCLUDED.scores_json,
		    comment=EXCLUDED.comment,
		    conflict_declared=EXCLUDED.conflict_declared,
		    updated_at=NOW()
	`, vote.ReviewID, vote.VoterUserOid, scoresJSON, vote.Comment, vote.ConflictDeclared)
	if err != nil {
		return false, fmt.Errorf("upsert vote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert vote rows: %w", err)
	}
	return affected > 0, nil
}

// --- status transitions ---

// DecideReview is the compare-and-swap transition to decided: exactly one of
// two concurrent callers can observe status='in-review' at write time.
func (s *PostgresStore) DecideReview(ctx context.Context, reviewID, decision, reason, decidedBy string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE governance_reviews
		SET status='decided', decision=$2, decision_reason=NULLIF($3, ''), decided_at=NOW(), decided_by=$4
		WHERE id=$1 AND status='in-review'
	`, reviewID, decision, reason, decidedBy)
	if err != nil {
		return false, fmt.Errorf("decide review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide review rows: %w", err)
	}
	return affected > 0, nil
}

// CancelReview uses the same CAS discipline. decided_at/decided_by stamp the
// terminal transition for both outcomes; a cancelled row is distinguished by
// decision IS NULL, never by those columns.
func (s *PostgresStore) CancelReview(ctx context.Context, reviewID, reason, cancelledBy string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE governance_reviews
		SET status='cancelled', decision=NULL, decision_reason=NULLIF($2, ''), decided_at=NOW(), decided_by=$3
		WHERE id=$1 AND status='in-review'
	`, reviewID, reason, cancelledBy)
	if err != nil {
		return false, fmt.Errorf("cancel review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel review rows: %w", err)
	}
	return affected > 0, nil
}

// ListDecidedReviews feeds the search reindex on boot.
func (s *PostgresStore) ListDecidedReviews(ctx context.Context, limit int) ([]Review, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM governance_reviews
		WHERE status='decided'
		ORDER BY decided_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list decided reviews: %w", err)
	}
	defer rows.Close()

	items := make([]Review, 0)
	for rows.Next() {
		item, err := scanReview(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan decided review: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decided reviews: %w", err)
	}
	return items, nil
}
