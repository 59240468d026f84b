package app

import (
	"context"
	"strings"
	"time"

	"govreview/api/internal/archive"
	"govreview/api/internal/notify"
	"govreview/api/internal/search"
	"govreview/api/internal/store"
	"govreview/api/internal/tally"
	"govreview/api/internal/util"
)

// Actor is the authenticated caller as supplied by the fronting gateway.
type Actor struct {
	Oid  string
	Name string
}

type SettingsInput struct {
	GovernanceEnabled      bool `json:"governanceEnabled"`
	QuorumPercent          int  `json:"quorumPercent"`
	QuorumMinCount         int  `json:"quorumMinCount"`
	DecisionRequiresQuorum bool `json:"decisionRequiresQuorum"`
	VoteWindowDays         *int `json:"voteWindowDays"`
}

type MembershipInput struct {
	DisplayName   string     `json:"displayName"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"isActive"`
	EffectiveFrom *time.Time `json:"effectiveFrom"`
	EffectiveTo   *time.Time `json:"effectiveTo"`
}

type VoteInput struct {
	Scores           map[string]float64 `json:"scores"`
	Comment          string             `json:"comment"`
	ConflictDeclared bool               `json:"conflictDeclared"`
}

const (
	scoreMin = 0
	scoreMax = 100
)

var allowedDecisions = map[string]struct{}{
	store.DecisionApprovedNow:     {},
	store.DecisionApprovedBacklog: {},
	store.DecisionNeedsInfo:       {},
	store.DecisionRejected:        {},
}

var allowedRoles = map[string]struct{}{
	store.RoleMember: {},
	store.RoleChair:  {},
}

type dataStore interface {
	GetSettings(context.Context) (store.Settings, error)
	UpdateSettings(context.Context, store.Settings) error
	ListBoards(context.Context, bool) ([]store.Board, error)
	GetBoard(context.Context, string) (store.Board, error)
	CreateBoard(context.Context, store.Board) error
	UpdateBoard(context.Context, string, string, bool) (bool, error)
	DeleteBoard(context.Context, string) (bool, error)
	ListMemberships(context.Context, string) ([]store.Membership, error)
	EligibleMemberships(context.Context, string, time.Time) ([]store.Membership, error)
	UpsertMembership(context.Context, store.Membership) error
	ListCriteriaVersions(context.Context, string) ([]store.CriteriaVersion, error)
	GetCriteriaVersion(context.Context, string) (store.CriteriaVersion, error)
	CurrentPublishedVersion(context.Context, string) (*store.CriteriaVersion, error)
	CreateCriteriaDraft(context.Context, store.CriteriaVersion) (int, error)
	UpdateCriteriaDraft(context.Context, string, []store.Criterion) (bool, error)
	PublishCriteriaVersion(context.Context, string, string) (bool, error)
	NextReviewRound(context.Context, string) (int, error)
	CreateReview(context.Context, store.Review, []store.Participant) error
	GetReview(context.Context, string) (store.Review, error)
	LatestReview(context.Context, string) (*store.Review, error)
	ListParticipants(context.Context, string) ([]store.Participant, error)
	ListVotes(context.Context, string) ([]store.Vote, error)
	UpsertVote(context.Context, store.Vote) (bool, error)
	DecideReview(context.Context, string, string, string, string) (bool, error)
	CancelReview(context.Context, string, string, string) (bool, error)
	ListDecidedReviews(context.Context, int) ([]store.Review, error)
	Ping(context.Context) error
}

type Service struct {
	store    dataStore
	notifier *notify.Notifier
	search   *search.Service
	archiver *archive.Archiver
}

func New(dataStore *store.PostgresStore, notifier *notify.Notifier, searchService *search.Service, archiver *archive.Archiver) *Service {
	return &Service{
		store:    dataStore,
		notifier: notifier,
		search:   searchService,
		archiver: archiver,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap pushes the decided backlog into the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.search == nil {
		return nil
	}
	reviews, err := s.store.ListDecidedReviews(ctx, 0)
	if err != nil {
		return err
	}
	records := make([]search.DecisionRecord, 0, len(reviews))
	for _, review := range reviews {
		board, err := s.store.GetBoard(ctx, review.BoardID)
		if err != nil {
			return err
		}
		votes, err := s.store.ListVotes(ctx, review.ID)
		if err != nil {
			return err
		}
		record := decisionSearchRecord(review, board.Name)
		record.OverallScore = tally.Score(review.CriteriaSnapshot, votes).Overall
		records = append(records, record)
	}
	s.search.ReindexAll(records)
	return nil
}

// --- settings ---

func (s *Service) GetSettings(ctx context.Context) (map[string]any, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return settingsPayload(settings), nil
}

func (s *Service) UpdateSettings(ctx context.Context, input SettingsInput, actor Actor) (map[string]any, error) {
	if input.QuorumPercent < 1 || input.QuorumPercent > 100 {
		return nil, errValidation("quorumPercent must be between 1 and 100", nil)
	}
	if input.QuorumMinCount < 1 {
		return nil, errValidation("quorumMinCount must be at least 1", nil)
	}
	if input.VoteWindowDays != nil && (*input.VoteWindowDays < 1 || *input.VoteWindowDays > 90) {
		return nil, errValidation("voteWindowDays must be between 1 and 90, or null", nil)
	}

	settings := store.Settings{
		GovernanceEnabled:      input.GovernanceEnabled,
		QuorumPercent:          input.QuorumPercent,
		QuorumMinCount:         input.QuorumMinCount,
		DecisionRequiresQuorum: input.DecisionRequiresQuorum,
		VoteWindowDays:         input.VoteWindowDays,
		UpdatedBy:              actor.Oid,
	}
	if err := s.store.UpdateSettings(ctx, settings); err != nil {
		return nil, err
	}
	return s.GetSettings(ctx)
}

// --- boards ---

func (s *Service) ListBoards(ctx context.Context, includeInactive bool) ([]map[string]any, error) {
	boards, err := s.store.ListBoards(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(boards))
	for _, board := range boards {
		items = append(items, boardPayload(board))
	}
	return items, nil
}

func (s *Service) CreateBoard(ctx context.Context, name string, actor Actor) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errValidation("name is required", nil)
	}
	board := store.Board{
		ID:        util.NewID("brd"),
		Name:      name,
		IsActive:  true,
		CreatedBy: actor.Oid,
	}
	if err := s.store.CreateBoard(ctx, board); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, errConflict("a board with this name already exists", map[string]any{"name": name})
		}
		return nil, err
	}
	return s.GetBoard(ctx, board.ID)
}

func (s *Service) GetBoard(ctx context.Context, boardID string) (map[string]any, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	memberships, err := s.store.ListMemberships(ctx, boardID)
	if err != nil {
		return nil, err
	}
	payload := boardPayload(board)
	members := make([]map[string]any, 0, len(memberships))
	for _, membership := range memberships {
		members = append(members, membershipPayload(membership))
	}
	payload["members"] = members
	return payload, nil
}

func (s *Service) UpdateBoard(ctx context.Context, boardID, name string, isActive *bool) (map[string]any, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	nextName := board.Name
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		nextName = trimmed
	}
	nextActive := board.IsActive
	if isActive != nil {
		nextActive = *isActive
	}
	changed, err := s.store.UpdateBoard(ctx, boardID, nextName, nextActive)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, errConflict("a board with this name already exists", map[string]any{"name": nextName})
		}
		return nil, err
	}
	if !changed {
		return nil, errNotFound("board not found")
	}
	return s.GetBoard(ctx, boardID)
}

func (s *Service) DeleteBoard(ctx context.Context, boardID string) error {
	changed, err := s.store.DeleteBoard(ctx, boardID)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return errConflict("board is referenced by existing reviews and cannot be deleted", nil)
		}
		return err
	}
	if !changed {
		return errNotFound("board not found")
	}
	return nil
}

// ListBoardMembers returns the full membership history for a board,
// closed rows included.
func (s *Service) ListBoardMembers(ctx context.Context, boardID string) ([]map[string]any, error) {
	if _, err := s.store.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	memberships, err := s.store.ListMemberships(ctx, boardID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(memberships))
	for _, membership := range memberships {
		items = append(items, membershipPayload(membership))
	}
	return items, nil
}

// UpsertMembership applies the close-and-insert pattern: the user's current
// open row on the board is closed and a fresh row inserted, so rows already
// referenced by past participant snapshots keep their recorded state.
func (s *Service) UpsertMembership(ctx context.Context, boardID, userOid string, input MembershipInput) (map[string]any, error) {
	if _, err := s.store.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userOid) == "" {
		return nil, errValidation("userOid is required", nil)
	}
	if _, ok := allowedRoles[input.Role]; !ok {
		return nil, errValidation("role must be one of member, chair", nil)
	}
	effectiveFrom := time.Now()
	if input.EffectiveFrom != nil {
		effectiveFrom = *input.EffectiveFrom
	}
	if input.EffectiveTo != nil && !input.EffectiveTo.After(effectiveFrom) {
		return nil, errValidation("effectiveTo must be after effectiveFrom", nil)
	}

	membership := store.Membership{
		ID:            util.NewID("mbr"),
		BoardID:       boardID,
		UserOid:       userOid,
		DisplayName:   strings.TrimSpace(input.DisplayName),
		Role:          input.Role,
		IsActive:      input.IsActive,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   input.EffectiveTo,
	}
	if err := s.store.UpsertMembership(ctx, membership); err != nil {
		return nil, err
	}
	return s.GetBoard(ctx, boardID)
}

// --- criteria versions ---

func (s *Service) ListCriteriaVersions(ctx context.Context, boardID string) ([]map[string]any, error) {
	if _, err := s.store.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	versions, err := s.store.ListCriteriaVersions(ctx, boardID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(versions))
	for _, version := range versions {
		items = append(items, versionPayload(version))
	}
	return items, nil
}

func (s *Service) CreateCriteriaDraft(ctx context.Context, boardID string, criteria []store.Criterion, actor Actor) (map[string]any, error) {
	if _, err := s.store.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	normalized, err := normalizeCriteria(criteria)
	if err != nil {
		return nil, err
	}

	version := store.CriteriaVersion{
		ID:        util.NewID("crv"),
		BoardID:   boardID,
		Status:    store.VersionDraft,
		Criteria:  normalized,
		CreatedBy: actor.Oid,
	}
	if _, err := s.store.CreateCriteriaDraft(ctx, version); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, errConflict("a concurrent draft allocated this version number, retry", nil)
		}
		return nil, err
	}
	created, err := s.store.GetCriteriaVersion(ctx, version.ID)
	if err != nil {
		return nil, err
	}
	return versionPayload(created), nil
}

func (s *Service) UpdateCriteriaDraft(ctx context.Context, versionID string, criteria []store.Criterion) (map[string]any, error) {
	version, err := s.store.GetCriteriaVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status != store.VersionDraft {
		return nil, errInvalidState("only draft versions can be edited")
	}
	normalized, err := normalizeCriteria(criteria)
	if err != nil {
		return nil, err
	}
	changed, err := s.store.UpdateCriteriaDraft(ctx, versionID, normalized)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, errInvalidState("only draft versions can be edited")
	}
	updated, err := s.store.GetCriteriaVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return versionPayload(updated), nil
}

func (s *Service) PublishCriteriaVersion(ctx context.Context, versionID string, actor Actor) (map[string]any, error) {
	version, err := s.store.GetCriteriaVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status != store.VersionDraft {
		return nil, errInvalidState("only draft versions can be published")
	}
	changed, err := s.store.PublishCriteriaVersion(ctx, versionID, actor.Oid)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, errInvalidState("only draft versions can be published")
	}
	published, err := s.store.GetCriteriaVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return versionPayload(published), nil
}

// normalizeCriteria validates names and weights and fills generated ids and
// sort order. Weights need not sum to 100; weighting is advisory.
func normalizeCriteria(criteria []store.Criterion) ([]store.Criterion, error) {
	if len(criteria) == 0 {
		return nil, errValidation("at least one criterion is required", nil)
	}
	seen := make(map[string]struct{}, len(criteria))
	normalized := make([]store.Criterion, 0, len(criteria))
	for i, criterion := range criteria {
		criterion.Name = strings.TrimSpace(criterion.Name)
		if criterion.Name == "" {
			return nil, errValidation("every criterion needs a name", map[string]any{"index": i})
		}
		if criterion.Weight < 0 {
			return nil, errValidation("criterion weight must be >= 0", map[string]any{"name": criterion.Name})
		}
		if criterion.ID == "" {
			criterion.ID = util.NewID("crt")
		}
		if _, dup := seen[criterion.ID]; dup {
			return nil, errValidation("duplicate criterion id", map[string]any{"id": criterion.ID})
		}
		seen[criterion.ID] = struct{}{}
		if criterion.SortOrder == 0 {
			criterion.SortOrder = i
		}
		normalized = append(normalized, criterion)
	}
	return normalized, nil
}

// --- review lifecycle ---

// OpenReview opens a new round for a submission: the board's current
// published rubric, the global quorum policy, and the eligible roster are all
// deep-copied at this moment and never change for the life of the round.
func (s *Service) OpenReview(ctx context.Context, submissionID, boardID string, actor Actor) (map[string]any, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return nil, errValidation("submissionId is required", nil)
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.GovernanceEnabled {
		return nil, errInvalidState("governance reviews are disabled")
	}

	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !board.IsActive {
		return nil, errNotFound("board is not active")
	}

	version, err := s.store.CurrentPublishedVersion(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, errNotFound("board has no published criteria version")
	}

	now := time.Now()
	memberships, err := s.store.EligibleMemberships(ctx, boardID, now)
	if err != nil {
		return nil, err
	}

	round, err := s.store.NextReviewRound(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	var deadline *time.Time
	if settings.VoteWindowDays != nil {
		d := now.AddDate(0, 0, *settings.VoteWindowDays)
		deadline = &d
	}

	versionID := version.ID
	review := store.Review{
		ID:                util.NewID("rev"),
		SubmissionID:      submissionID,
		BoardID:           boardID,
		ReviewRound:       round,
		Status:            store.ReviewInReview,
		CriteriaVersionID: &versionID,
		CriteriaSnapshot:  version.Criteria,
		PolicySnapshot: store.PolicySnapshot{
			QuorumPercent:          settings.QuorumPercent,
			QuorumMinCount:         settings.QuorumMinCount,
			DecisionRequiresQuorum: settings.DecisionRequiresQuorum,
			VoteWindowDays:         settings.VoteWindowDays,
		},
		VoteDeadlineAt: deadline,
		StartedAt:      now,
		StartedBy:      actor.Oid,
	}

	participants := make([]store.Participant, 0, len(memberships))
	for _, membership := range memberships {
		participants = append(participants, store.Participant{
			ReviewID:        review.ID,
			UserOid:         membership.UserOid,
			DisplayName:     membership.DisplayName,
			ParticipantRole: membership.Role,
			IsEligibleVoter: true,
		})
	}

	if err := s.store.CreateReview(ctx, review, participants); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, errConflict("an open review round already exists for this submission", map[string]any{"submissionId": submissionID})
		}
		return nil, err
	}
	return s.GetReview(ctx, review.ID)
}

// CastVote validates against the frozen participant snapshot and upserts the
// voter's row. Board members added after the round opened have no vote on it.
func (s *Service) CastVote(ctx context.Context, reviewID string, actor Actor, input VoteInput) (map[string]any, error) {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != store.ReviewInReview {
		return nil, errInvalidState("votes can only be cast while the review is in-review")
	}

	participants, err := s.store.ListParticipants(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !isEligibleVoter(participants, actor.Oid) {
		return nil, errForbidden("caller is not an eligible voter on this review")
	}

	if review.VoteDeadlineAt != nil && time.Now().After(*review.VoteDeadlineAt) {
		return nil, errExpired("the voting window for this review has closed")
	}

	snapshot := make(map[string]struct{}, len(review.CriteriaSnapshot))
	for _, criterion := range review.CriteriaSnapshot {
		snapshot[criterion.ID] = struct{}{}
	}
	for criterionID, score := range input.Scores {
		if _, ok := snapshot[criterionID]; !ok {
			return nil, errValidation("score references a criterion that is not part of this review", map[string]any{"criterionId": criterionID})
		}
		if score < scoreMin || score > scoreMax {
			return nil, errValidation("scores must be between 0 and 100", map[string]any{"criterionId": criterionID})
		}
	}

	changed, err := s.store.UpsertVote(ctx, store.Vote{
		ReviewID:         reviewID,
		VoterUserOid:     actor.Oid,
		Scores:           input.Scores,
		Comment:          strings.TrimSpace(input.Comment),
		ConflictDeclared: input.ConflictDeclared,
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, errInvalidState("votes can only be cast while the review is in-review")
	}
	return s.ReviewStatus(ctx, reviewID)
}

// Decide closes the round. The transition is a compare-and-swap on status,
// so of two concurrent chairs exactly one succeeds.
func (s *Service) Decide(ctx context.Context, reviewID, decision, reason string, actor Actor) (map[string]any, error) {
	decision = strings.TrimSpace(decision)
	if _, ok := allowedDecisions[decision]; !ok {
		return nil, errValidation("decision must be one of approved-now, approved-backlog, needs-info, rejected", nil)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" && (decision == store.DecisionNeedsInfo || decision == store.DecisionRejected) {
		return nil, errValidation("a reason is required for needs-info and rejected decisions", nil)
	}

	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != store.ReviewInReview {
		return nil, errInvalidState("review has already reached a terminal state")
	}

	participants, err := s.store.ListParticipants(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !isChair(participants, actor.Oid) {
		return nil, errForbidden("only a chair on this review may decide it")
	}

	votes, err := s.store.ListVotes(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	quorum := evaluateQuorum(review, participants, votes)
	if review.PolicySnapshot.DecisionRequiresQuorum && !quorum.Met {
		return nil, errQuorumNotMet(quorum)
	}

	changed, err := s.store.DecideReview(ctx, reviewID, decision, reason, actor.Oid)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, errInvalidState("review has already reached a terminal state")
	}

	decided, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	s.afterDecided(ctx, decided, participants, votes, quorum)
	return s.ReviewStatus(ctx, reviewID)
}

// Cancel closes the round without a decision, same CAS discipline.
func (s *Service) Cancel(ctx context.Context, reviewID, reason string, actor Actor) (map[string]any, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errValidation("a reason is required to cancel a review", nil)
	}

	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != store.ReviewInReview {
		return nil, errInvalidState("review has already reached a terminal state")
	}

	participants, err := s.store.ListParticipants(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !isChair(participants, actor.Oid) {
		return nil, errForbidden("only a chair on this review may cancel it")
	}

	changed, err := s.store.CancelReview(ctx, reviewID, reason, actor.Oid)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, errInvalidState("review has already reached a terminal state")
	}

	cancelled, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	s.notifier.ReviewCancelled(ctx, reviewEvent(cancelled))
	return s.ReviewStatus(ctx, reviewID)
}

// afterDecided fans the terminal state out to the notifier, the search index
// and the archive. All three are advisory; the review row is the source of
// truth and their failures only get logged.
func (s *Service) afterDecided(ctx context.Context, review store.Review, participants []store.Participant, votes []store.Vote, quorum tally.QuorumResult) {
	s.notifier.ReviewDecided(ctx, reviewEvent(review))

	score := tally.Score(review.CriteriaSnapshot, votes)

	boardName := ""
	if board, err := s.store.GetBoard(ctx, review.BoardID); err == nil {
		boardName = board.Name
	}
	if s.search != nil {
		searchRecord := decisionSearchRecord(review, boardName)
		searchRecord.OverallScore = score.Overall
		s.search.IndexDecision(searchRecord)
	}

	record := archive.DecisionRecord{
		ReviewID:         review.ID,
		SubmissionID:     review.SubmissionID,
		BoardID:          review.BoardID,
		ReviewRound:      review.ReviewRound,
		CriteriaSnapshot: review.CriteriaSnapshot,
		PolicySnapshot:   review.PolicySnapshot,
		Participants:     participants,
		Votes:            votes,
		Quorum:           quorum,
		Score:            score,
	}
	if review.Decision != nil {
		record.Decision = *review.Decision
	}
	if review.DecisionReason != nil {
		record.DecisionReason = *review.DecisionReason
	}
	if review.DecidedBy != nil {
		record.DecidedBy = *review.DecidedBy
	}
	if review.DecidedAt != nil {
		record.DecidedAt = *review.DecidedAt
	}
	s.archiver.ArchiveDecision(record)
}

// --- read models ---

func (s *Service) GetReview(ctx context.Context, reviewID string) (map[string]any, error) {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	votes, err := s.store.ListVotes(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	return reviewPayload(review, participants, votes), nil
}

// ReviewStatus is the live read-model: quorum and score are recomputed from
// current rows on every call, never cached.
func (s *Service) ReviewStatus(ctx context.Context, reviewID string) (map[string]any, error) {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	votes, err := s.store.ListVotes(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	quorum := evaluateQuorum(review, participants, votes)
	score := tally.Score(review.CriteriaSnapshot, votes)

	payload := reviewPayload(review, participants, votes)
	payload["quorum"] = quorum
	payload["score"] = score
	return payload, nil
}

// SubmissionReviewStatus reports the latest round for the intake collaborator.
func (s *Service) SubmissionReviewStatus(ctx context.Context, submissionID string) (map[string]any, error) {
	review, err := s.store.LatestReview(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return map[string]any{
			"submissionId":     submissionID,
			"governanceStatus": "not-started",
		}, nil
	}
	status, err := s.ReviewStatus(ctx, review.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"submissionId":       submissionID,
		"governanceStatus":   review.Status,
		"governanceDecision": nilIfEmptyPtr(review.Decision),
		"reviewRound":        review.ReviewRound,
		"review":             status,
	}, nil
}

func (s *Service) SearchDecisions(ctx context.Context, q search.Query) search.Response {
	return s.search.Search(ctx, q)
}

// --- helpers ---

func evaluateQuorum(review store.Review, participants []store.Participant, votes []store.Vote) tally.QuorumResult {
	eligible := 0
	for _, participant := range participants {
		if participant.IsEligibleVoter {
			eligible++
		}
	}
	return tally.Quorum(tally.QuorumInput{
		EligibleVoters: eligible,
		VotesCast:      len(votes),
		QuorumPercent:  review.PolicySnapshot.QuorumPercent,
		QuorumMinCount: review.PolicySnapshot.QuorumMinCount,
	})
}

func isEligibleVoter(participants []store.Participant, userOid string) bool {
	for _, participant := range participants {
		if participant.UserOid == userOid {
			return participant.IsEligibleVoter
		}
	}
	return false
}

func isChair(participants []store.Participant, userOid string) bool {
	for _, participant := range participants {
		if participant.UserOid == userOid {
			return participant.ParticipantRole == store.RoleChair
		}
	}
	return false
}

func reviewEvent(review store.Review) notify.ReviewEvent {
	event := notify.ReviewEvent{
		ReviewID:     review.ID,
		SubmissionID: review.SubmissionID,
		BoardID:      review.BoardID,
		ReviewRound:  review.ReviewRound,
		Status:       review.Status,
		Decision:     review.Decision,
		DecidedAt:    review.DecidedAt,
	}
	if review.DecidedBy != nil {
		event.DecidedBy = *review.DecidedBy
	}
	return event
}

func decisionSearchRecord(review store.Review, boardName string) search.DecisionRecord {
	record := search.DecisionRecord{
		ID:           review.ID,
		SubmissionID: review.SubmissionID,
		BoardID:      review.BoardID,
		BoardName:    boardName,
		ReviewRound:  review.ReviewRound,
	}
	if review.Decision != nil {
		record.Decision = *review.Decision
	}
	if review.DecisionReason != nil {
		record.Reason = *review.DecisionReason
	}
	if review.DecidedBy != nil {
		record.DecidedBy = *review.DecidedBy
	}
	if review.DecidedAt != nil {
		record.DecidedAt = review.DecidedAt.UTC().Format(time.RFC3339)
	}
	return record
}

func settingsPayload(settings store.Settings) map[string]any {
	return map[string]any{
		"governanceEnabled":      settings.GovernanceEnabled,
		"quorumPercent":          settings.QuorumPercent,
		"quorumMinCount":         settings.QuorumMinCount,
		"decisionRequiresQuorum": settings.DecisionRequiresQuorum,
		"voteWindowDays":         settings.VoteWindowDays,
		"updatedBy":              settings.UpdatedBy,
		"updatedAt":              settings.UpdatedAt.Format(time.RFC3339),
	}
}

func boardPayload(board store.Board) map[string]any {
	return map[string]any{
		"id":        board.ID,
		"name":      board.Name,
		"isActive":  board.IsActive,
		"createdBy": board.CreatedBy,
		"createdAt": board.CreatedAt.Format(time.RFC3339),
	}
}

func membershipPayload(membership store.Membership) map[string]any {
	payload := map[string]any{
		"id":            membership.ID,
		"boardId":       membership.BoardID,
		"userOid":       membership.UserOid,
		"displayName":   membership.DisplayName,
		"role":          membership.Role,
		"isActive":      membership.IsActive,
		"effectiveFrom": membership.EffectiveFrom.Format(time.RFC3339),
	}
	if membership.EffectiveTo != nil {
		payload["effectiveTo"] = membership.EffectiveTo.Format(time.RFC3339)
	}
	return payload
}

func versionPayload(version store.CriteriaVersion) map[string]any {
	payload := map[string]any{
		"id":        version.ID,
		"boardId":   version.BoardID,
		"versionNo": version.VersionNo,
		"status":    version.Status,
		"criteria":  version.Criteria,
		"createdBy": version.CreatedBy,
		"createdAt": version.CreatedAt.Format(time.RFC3339),
	}
	if version.PublishedAt != nil {
		payload["publishedAt"] = version.PublishedAt.Format(time.RFC3339)
	}
	if version.PublishedBy != nil {
		payload["publishedBy"] = *version.PublishedBy
	}
	return payload
}

func reviewPayload(review store.Review, participants []store.Participant, votes []store.Vote) map[string]any {
	participantItems := make([]map[string]any, 0, len(participants))
	for _, participant := range participants {
		participantItems = append(participantItems, map[string]any{
			"userOid":         participant.UserOid,
			"displayName":     participant.DisplayName,
			"role":            participant.ParticipantRole,
			"isEligibleVoter": participant.IsEligibleVoter,
		})
	}

	voteItems := make([]map[string]any, 0, len(votes))
	for _, vote := range votes {
		item := map[string]any{
			"voterUserOid":     vote.VoterUserOid,
			"scores":           vote.Scores,
			"comment":          vote.Comment,
			"conflictDeclared": vote.ConflictDeclared,
			"submittedAt":      vote.SubmittedAt.Format(time.RFC3339),
		}
		if vote.UpdatedAt != nil {
			item["updatedAt"] = vote.UpdatedAt.Format(time.RFC3339)
		}
		voteItems = append(voteItems, item)
	}

	payload := map[string]any{
		"id":               review.ID,
		"submissionId":     review.SubmissionID,
		"boardId":          review.BoardID,
		"reviewRound":      review.ReviewRound,
		"status":           review.Status,
		"decision":         nilIfEmptyPtr(review.Decision),
		"decisionReason":   nilIfEmptyPtr(review.DecisionReason),
		"criteriaSnapshot": review.CriteriaSnapshot,
		"policySnapshot":   review.PolicySnapshot,
		"startedAt":        review.StartedAt.Format(time.RFC3339),
		"startedBy":        review.StartedBy,
		"participants":     participantItems,
		"votes":            voteItems,
	}
	if review.VoteDeadlineAt != nil {
		payload["voteDeadlineAt"] = review.VoteDeadlineAt.Format(time.RFC3339)
	}
	if review.DecidedAt != nil {
		payload["decidedAt"] = review.DecidedAt.Format(time.RFC3339)
	}
	if review.DecidedBy != nil {
		payload["decidedBy"] = *review.DecidedBy
	}
	return payload
}

func nilIfEmptyPtr(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}
