package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"govreview/api/internal/store"
)

type fakeStore struct {
	getSettingsFn             func(context.Context) (store.Settings, error)
	updateSettingsFn          func(context.Context, store.Settings) error
	getBoardFn                func(context.Context, string) (store.Board, error)
	createBoardFn             func(context.Context, store.Board) error
	updateBoardFn             func(context.Context, string, string, bool) (bool, error)
	deleteBoardFn             func(context.Context, string) (bool, error)
	listMembershipsFn         func(context.Context, string) ([]store.Membership, error)
	eligibleMembershipsFn     func(context.Context, string, time.Time) ([]store.Membership, error)
	upsertMembershipFn        func(context.Context, store.Membership) error
	getCriteriaVersionFn      func(context.Context, string) (store.CriteriaVersion, error)
	currentPublishedVersionFn func(context.Context, string) (*store.CriteriaVersion, error)
	createCriteriaDraftFn     func(context.Context, store.CriteriaVersion) (int, error)
	updateCriteriaDraftFn     func(context.Context, string, []store.Criterion) (bool, error)
	publishCriteriaVersionFn  func(context.Context, string, string) (bool, error)
	nextReviewRoundFn         func(context.Context, string) (int, error)
	createReviewFn            func(context.Context, store.Review, []store.Participant) error
	getReviewFn               func(context.Context, string) (store.Review, error)
	latestReviewFn            func(context.Context, string) (*store.Review, error)
	listParticipantsFn        func(context.Context, string) ([]store.Participant, error)
	listVotesFn               func(context.Context, string) ([]store.Vote, error)
	upsertVoteFn              func(context.Context, store.Vote) (bool, error)
	decideReviewFn            func(context.Context, string, string, string, string) (bool, error)
	cancelReviewFn            func(context.Context, string, string, string) (bool, error)
}

func (f *fakeStore) GetSettings(ctx context.Context) (store.Settings, error) {
	if f.getSettingsFn != nil {
		return f.getSettingsFn(ctx)
	}
	return store.Settings{
		GovernanceEnabled:      true,
		QuorumPercent:          50,
		QuorumMinCount:         1,
		DecisionRequiresQuorum: true,
	}, nil
}
func (f *fakeStore) UpdateSettings(ctx context.Context, settings store.Settings) error {
	if f.updateSettingsFn != nil {
		return f.updateSettingsFn(ctx, settings)
	}
	return nil
}
func (f *fakeStore) ListBoards(context.Context, bool) ([]store.Board, error) { return nil, nil }
func (f *fakeStore) GetBoard(ctx context.Context, boardID string) (store.Board, error) {
	if f.getBoardFn != nil {
		return f.getBoardFn(ctx, boardID)
	}
	return store.Board{ID: boardID, Name: "Architecture Board", IsActive: true}, nil
}
func (f *fakeStore) CreateBoard(ctx context.Context, board store.Board) error {
	if f.createBoardFn != nil {
		return f.createBoardFn(ctx, board)
	}
	return nil
}
func (f *fakeStore) UpdateBoard(ctx context.Context, boardID, name string, isActive bool) (bool, error) {
	if f.updateBoardFn != nil {
		return f.updateBoardFn(ctx, boardID, name, isActive)
	}
	return true, nil
}
func (f *fakeStore) DeleteBoard(ctx context.Context, boardID string) (bool, error) {
	if f.deleteBoardFn != nil {
		return f.deleteBoardFn(ctx, boardID)
	}
	return true, nil
}
func (f *fakeStore) ListMemberships(ctx context.Context, boardID string) ([]store.Membership, error) {
	if f.listMembershipsFn != nil {
		return f.listMembershipsFn(ctx, boardID)
	}
	return nil, nil
}
func (f *fakeStore) EligibleMemberships(ctx context.Context, boardID string, at time.Time) ([]store.Membership, error) {
	if f.eligibleMembershipsFn != nil {
		return f.eligibleMembershipsFn(ctx, boardID, at)
	}
	return nil, nil
}
func (f *fakeStore) UpsertMembership(ctx context.Context, membership store.Membership) error {
	if f.upsertMembershipFn != nil {
		return f.upsertMembershipFn(ctx, membership)
	}
	return nil
}
func (f *fakeStore) ListCriteriaVersions(context.Context, string) ([]store.CriteriaVersion, error) {
	return nil, nil
}
func (f *fakeStore) GetCriteriaVersion(ctx context.Context, versionID string) (store.CriteriaVersion, error) {
	if f.getCriteriaVersionFn != nil {
		return f.getCriteriaVersionFn(ctx, versionID)
	}
	return store.CriteriaVersion{}, sql.ErrNoRows
}
func (f *fakeStore) CurrentPublishedVersion(ctx context.Context, boardID string) (*store.CriteriaVersion, error) {
	if f.currentPublishedVersionFn != nil {
		return f.currentPublishedVersionFn(ctx, boardID)
	}
	version := publishedVersion(boardID)
	return &version, nil
}
func (f *fakeStore) CreateCriteriaDraft(ctx context.Context, version store.CriteriaVersion) (int, error) {
	if f.createCriteriaDraftFn != nil {
		return f.createCriteriaDraftFn(ctx, version)
	}
	return 1, nil
}
func (f *fakeStore) UpdateCriteriaDraft(ctx context.Context, versionID string, criteria []store.Criterion) (bool, error) {
	if f.updateCriteriaDraftFn != nil {
		return f.updateCriteriaDraftFn(ctx, versionID, criteria)
	}
	return true, nil
}
func (f *fakeStore) PublishCriteriaVersion(ctx context.Context, versionID, publishedBy string) (bool, error) {
	if f.publishCriteriaVersionFn != nil {
		return f.publishCriteriaVersionFn(ctx, versionID, publishedBy)
	}
	return true, nil
}
func (f *fakeStore) NextReviewRound(ctx context.Context, submissionID string) (int, error) {
	if f.nextReviewRoundFn != nil {
		return f.nextReviewRoundFn(ctx, submissionID)
	}
	return 1, nil
}
func (f *fakeStore) CreateReview(ctx context.Context, review store.Review, participants []store.Participant) error {
	if f.createReviewFn != nil {
		return f.createReviewFn(ctx, review, participants)
	}
	return nil
}
func (f *fakeStore) GetReview(ctx context.Context, reviewID string) (store.Review, error) {
	if f.getReviewFn != nil {
		return f.getReviewFn(ctx, reviewID)
	}
	return store.Review{}, sql.ErrNoRows
}
func (f *fakeStore) LatestReview(ctx context.Context, submissionID string) (*store.Review, error) {
	if f.latestReviewFn != nil {
		return f.latestReviewFn(ctx, submissionID)
	}
	return nil, nil
}
func (f *fakeStore) ListParticipants(ctx context.Context, reviewID string) ([]store.Participant, error) {
	if f.listParticipantsFn != nil {
		return f.listParticipantsFn(ctx, reviewID)
	}
	return nil, nil
}
func (f *fakeStore) ListVotes(ctx context.Context, reviewID string) ([]store.Vote, error) {
	if f.listVotesFn != nil {
		return f.listVotesFn(ctx, reviewID)
	}
	return nil, nil
}
func (f *fakeStore) UpsertVote(ctx context.Context, vote store.Vote) (bool, error) {
	if f.upsertVoteFn != nil {
		return f.upsertVoteFn(ctx, vote)
	}
	return true, nil
}
func (f *fakeStore) DecideReview(ctx context.Context, reviewID, decision, reason, decidedBy string) (bool, error) {
	if f.decideReviewFn != nil {
		return f.decideReviewFn(ctx, reviewID, decision, reason, decidedBy)
	}
	return true, nil
}
func (f *fakeStore) CancelReview(ctx context.Context, reviewID, reason, cancelledBy string) (bool, error) {
	if f.cancelReviewFn != nil {
		return f.cancelReviewFn(ctx, reviewID, reason, cancelledBy)
	}
	return true, nil
}
func (f *fakeStore) ListDecidedReviews(context.Context, int) ([]store.Review, error) {
	return nil, nil
}
func (f *fakeStore) Ping(context.Context) error { return nil }

func newTestService(fs *fakeStore) *Service {
	return &Service{store: fs}
}

func publishedVersion(boardID string) store.CriteriaVersion {
	return store.CriteriaVersion{
		ID:        "crv_1",
		BoardID:   boardID,
		VersionNo: 1,
		Status:    store.VersionPublished,
		Criteria: []store.Criterion{
			{ID: "crt_fit", Name: "Strategic fit", Weight: 70, Enabled: true},
			{ID: "crt_cost", Name: "Cost", Weight: 30, Enabled: true},
		},
	}
}

func openReviewRow() store.Review {
	versionID := "crv_1"
	return store.Review{
		ID:                "rev_1",
		SubmissionID:      "sub_1",
		BoardID:           "brd_1",
		ReviewRound:       1,
		Status:            store.ReviewInReview,
		CriteriaVersionID: &versionID,
		CriteriaSnapshot: []store.Criterion{
			{ID: "crt_fit", Name: "Strategic fit", Weight: 70, Enabled: true},
			{ID: "crt_cost", Name: "Cost", Weight: 30, Enabled: true},
		},
		PolicySnapshot: store.PolicySnapshot{
			QuorumPercent:          50,
			QuorumMinCount:         1,
			DecisionRequiresQuorum: true,
		},
		StartedAt: time.Now().Add(-time.Hour),
		StartedBy: "u-chair",
	}
}

func reviewParticipants() []store.Participant {
	return []store.Participant{
		{ReviewID: "rev_1", UserOid: "u-chair", DisplayName: "Chair", ParticipantRole: store.RoleChair, IsEligibleVoter: true},
		{ReviewID: "rev_1", UserOid: "u-alice", DisplayName: "Alice", ParticipantRole: store.RoleMember, IsEligibleVoter: true},
		{ReviewID: "rev_1", UserOid: "u-bob", DisplayName: "Bob", ParticipantRole: store.RoleMember, IsEligibleVoter: true},
		{ReviewID: "rev_1", UserOid: "u-carol", DisplayName: "Carol", ParticipantRole: store.RoleMember, IsEligibleVoter: true},
	}
}

func wantDomainError(t *testing.T, err error, code string) *DomainError {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected *DomainError with code %s, got %v", code, err)
	}
	if domainErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, domainErr.Code, domainErr.Message)
	}
	return domainErr
}

func TestUpdateSettingsValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})
	actor := Actor{Oid: "u-admin"}

	_, err := svc.UpdateSettings(context.Background(), SettingsInput{QuorumPercent: 0, QuorumMinCount: 1}, actor)
	wantDomainError(t, err, "VALIDATION_ERROR")

	_, err = svc.UpdateSettings(context.Background(), SettingsInput{QuorumPercent: 101, QuorumMinCount: 1}, actor)
	wantDomainError(t, err, "VALIDATION_ERROR")

	_, err = svc.UpdateSettings(context.Background(), SettingsInput{QuorumPercent: 50, QuorumMinCount: 0}, actor)
	wantDomainError(t, err, "VALIDATION_ERROR")

	window := 120
	_, err = svc.UpdateSettings(context.Background(), SettingsInput{QuorumPercent: 50, QuorumMinCount: 1, VoteWindowDays: &window}, actor)
	wantDomainError(t, err, "VALIDATION_ERROR")
}

func TestCreateBoardDuplicateName(t *testing.T) {
	fs := &fakeStore{
		createBoardFn: func(context.Context, store.Board) error {
			return &pgconn.PgError{Code: "23505"}
		},
	}
	svc := newTestService(fs)

	_, err := svc.CreateBoard(context.Background(), "Architecture Board", Actor{Oid: "u-admin"})
	wantDomainError(t, err, "CONFLICT")
}

func TestUpsertMembershipRejectsUnknownRole(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.UpsertMembership(context.Background(), "brd_1", "u-alice", MembershipInput{Role: "observer"})
	wantDomainError(t, err, "VALIDATION_ERROR")
}

func TestCreateCriteriaDraftValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})
	actor := Actor{Oid: "u-admin"}

	_, err := svc.CreateCriteriaDraft(context.Background(), "brd_1", nil, actor)
	wantDomainError(t, err, "VALIDATION_ERROR")

	_, err = svc.CreateCriteriaDraft(context.Background(), "brd_1", []store.Criterion{{Name: "  "}}, actor)
	wantDomainError(t, err, "VALIDATION_ERROR")

	_, err = svc.CreateCriteriaDraft(context.Background(), "brd_1", []store.Criterion{{Name: "Fit", Weight: -1}}, actor)
	wantDomainError(t, err, "VALIDATION_ERROR")
}

func TestUpdateCriteriaDraftRejectsPublished(t *testing.T) {
	fs := &fakeStore{
		getCriteriaVersionFn: func(_ context.Context, versionID string) (store.CriteriaVersion, error) {
			return publishedVersion("brd_1"), nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.UpdateCriteriaDraft(context.Background(), "crv_1", []store.Criterion{{Name: "Fit", Weight: 100, Enabled: true}})
	wantDomainError(t, err, "INVALID_STATE")
}

func TestPublishLosesRaceToConcurrentPublish(t *testing.T) {
	fs := &fakeStore{
		getCriteriaVersionFn: func(_ context.Context, versionID string) (store.CriteriaVersion, error) {
			version := publishedVersion("brd_1")
			version.Status = store.VersionDraft
			return version, nil
		},
		publishCriteriaVersionFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.PublishCriteriaVersion(context.Background(), "crv_1", Actor{Oid: "u-admin"})
	wantDomainError(t, err, "INVALID_STATE")
}

func TestOpenReviewDisabled(t *testing.T) {
	fs := &fakeStore{
		getSettingsFn: func(context.Context) (store.Settings, error) {
			return store.Settings{GovernanceEnabled: false, QuorumPercent: 50, QuorumMinCount: 1}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.OpenReview(context.Background(), "sub_1", "brd_1", Actor{Oid: "u-chair"})
	wantDomainError(t, err, "INVALID_STATE")
}

func TestOpenReviewInactiveBoard(t *testing.T) {
	fs := &fakeStore{
		getBoardFn: func(_ context.Context, boardID string) (store.Board, error) {
			return store.Board{ID: boardID, Name: "Retired Board", IsActive: false}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.OpenReview(context.Background(), "sub_1", "brd_1", Actor{Oid: "u-chair"})
	wantDomainError(t, err, "NOT_FOUND")
}

func TestOpenReviewRequiresPublishedCriteria(t *testing.T) {
	fs := &fakeStore{
		currentPublishedVersionFn: func(context.Context, string) (*store.CriteriaVersion, error) {
			return nil, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.OpenReview(context.Background(), "sub_1", "brd_1", Actor{Oid: "u-chair"})
	wantDomainError(t, err, "NOT_FOUND")
}

func TestOpenReviewConflictWhenRoundAlreadyOpen(t *testing.T) {
	fs := &fakeStore{
		createReviewFn: func(context.Context, store.Review, []store.Participant) error {
			return &pgconn.PgError{Code: "23505"}
		},
	}
	svc := newTestService(fs)

	_, err := svc.OpenReview(context.Background(), "sub_1", "brd_1", Actor{Oid: "u-chair"})
	wantDomainError(t, err, "CONFLICT")
}

func TestOpenReviewSnapshotsPolicyAndRoster(t *testing.T) {
	window := 14
	var created store.Review
	var participants []store.Participant
	fs := &fakeStore{
		getSettingsFn: func(context.Context) (store.Settings, error) {
			return store.Settings{
				GovernanceEnabled:      true,
				QuorumPercent:          60,
				QuorumMinCount:         2,
				DecisionRequiresQuorum: true,
				VoteWindowDays:         &window,
			}, nil
		},
		eligibleMembershipsFn: func(context.Context, string, time.Time) ([]store.Membership, error) {
			return []store.Membership{
				{UserOid: "u-chair", DisplayName: "Chair", Role: store.RoleChair},
				{UserOid: "u-alice", DisplayName: "Alice", Role: store.RoleMember},
			}, nil
		},
		nextReviewRoundFn: func(context.Context, string) (int, error) { return 3, nil },
		createReviewFn: func(_ context.Context, review store.Review, rp []store.Participant) error {
			created = review
			participants = rp
			return nil
		},
	}
	fs.getReviewFn = func(_ context.Context, reviewID string) (store.Review, error) {
		if created.ID == "" || reviewID != created.ID {
			return store.Review{}, sql.ErrNoRows
		}
		return created, nil
	}
	svc := newTestService(fs)

	if _, err := svc.OpenReview(context.Background(), "sub_1", "brd_1", Actor{Oid: "u-chair"}); err != nil {
		t.Fatalf("open review: %v", err)
	}
	if created.ReviewRound != 3 {
		t.Fatalf("expected round 3, got %d", created.ReviewRound)
	}
	if created.Status != store.ReviewInReview {
		t.Fatalf("expected in-review, got %s", created.Status)
	}
	if created.PolicySnapshot.QuorumPercent != 60 || created.PolicySnapshot.QuorumMinCount != 2 {
		t.Fatalf("policy snapshot not copied: %+v", created.PolicySnapshot)
	}
	if created.VoteDeadlineAt == nil {
		t.Fatal("expected a vote deadline when a window is configured")
	}
	if len(created.CriteriaSnapshot) != 2 {
		t.Fatalf("expected 2 snapshotted criteria, got %d", len(created.CriteriaSnapshot))
	}
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}
	for _, participant := range participants {
		if !participant.IsEligibleVoter {
			t.Fatalf("participant %s should be an eligible voter", participant.UserOid)
		}
		if participant.ReviewID != created.ID {
			t.Fatalf("participant bound to %s, review is %s", participant.ReviewID, created.ID)
		}
	}
}

func TestCastVoteNotEligible(t *testing.T) {
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return openReviewRow(), nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.CastVote(context.Background(), "rev_1", Actor{Oid: "u-stranger"}, VoteInput{})
	wantDomainError(t, err, "FORBIDDEN")
}

func TestCastVoteAfterDeadline(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	review := openReviewRow()
	review.VoteDeadlineAt = &past
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return review, nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.CastVote(context.Background(), "rev_1", Actor{Oid: "u-alice"}, VoteInput{})
	wantDomainError(t, err, "VOTE_WINDOW_EXPIRED")
}

func TestCastVoteScoreValidation(t *testing.T) {
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return openReviewRow(), nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
	}
	svc := newTestService(fs)
	actor := Actor{Oid: "u-alice"}

	_, err := svc.CastVote(context.Background(), "rev_1", actor, VoteInput{
		Scores: map[string]float64{"crt_unknown": 50},
	})
	wantDomainError(t, err, "VALIDATION_ERROR")

	_, err = svc.CastVote(context.Background(), "rev_1", actor, VoteInput{
		Scores: map[string]float64{"crt_fit": 101},
	})
	wantDomainError(t, err, "VALIDATION_ERROR")

	_, err = svc.CastVote(context.Background(), "rev_1", actor, VoteInput{
		Scores: map[string]float64{"crt_fit": -1},
	})
	wantDomainError(t, err, "VALIDATION_ERROR")
}

func TestCastVoteOnDecidedReview(t *testing.T) {
	review := openReviewRow()
	review.Status = store.ReviewDecided
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return review, nil },
	}
	svc := newTestService(fs)

	_, err := svc.CastVote(context.Background(), "rev_1", Actor{Oid: "u-alice"}, VoteInput{})
	wantDomainError(t, err, "INVALID_STATE")
}

func TestCastVoteLosesRaceToDecision(t *testing.T) {
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return openReviewRow(), nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
		upsertVoteFn: func(context.Context, store.Vote) (bool, error) { return false, nil },
	}
	svc := newTestService(fs)

	_, err := svc.CastVote(context.Background(), "rev_1", Actor{Oid: "u-alice"}, VoteInput{
		Scores: map[string]float64{"crt_fit": 80},
	})
	wantDomainError(t, err, "INVALID_STATE")
}

func TestCastVoteUpsertsAndReturnsStatus(t *testing.T) {
	var upserted store.Vote
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return openReviewRow(), nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
		upsertVoteFn: func(_ context.Context, vote store.Vote) (bool, error) {
			upserted = vote
			return true, nil
		},
	}
	fs.listVotesFn = func(context.Context, string) ([]store.Vote, error) {
		if upserted.VoterUserOid == "" {
			return nil, nil
		}
		return []store.Vote{upserted}, nil
	}
	svc := newTestService(fs)

	payload, err := svc.CastVote(context.Background(), "rev_1", Actor{Oid: "u-alice"}, VoteInput{
		Scores:  map[string]float64{"crt_fit": 80, "crt_cost": 60},
		Comment: "  looks solid  ",
	})
	if err != nil {
		t.Fatalf("cast vote: %v", err)
	}
	if upserted.VoterUserOid != "u-alice" {
		t.Fatalf("expected vote by u-alice, got %s", upserted.VoterUserOid)
	}
	if upserted.Comment != "looks solid" {
		t.Fatalf("comment not trimmed: %q", upserted.Comment)
	}
	if _, ok := payload["quorum"]; !ok {
		t.Fatal("expected quorum in status payload")
	}
}

func TestDecideRejectsUnknownDecision(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.Decide(context.Background(), "rev_1", "maybe-later", "", Actor{Oid: "u-chair"})
	wantDomainError(t, err, "VALIDATION_ERROR")
}

func TestDecideRequiresReasonForRejection(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.Decide(context.Background(), "rev_1", store.DecisionRejected, "   ", Actor{Oid: "u-chair"})
	wantDomainError(t, err, "VALIDATION_ERROR")

	_, err = svc.Decide(context.Background(), "rev_1", store.DecisionNeedsInfo, "", Actor{Oid: "u-chair"})
	wantDomainError(t, err, "VALIDATION_ERROR")
}

func TestDecideRequiresChair(t *testing.T) {
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return openReviewRow(), nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.Decide(context.Background(), "rev_1", store.DecisionApprovedNow, "", Actor{Oid: "u-alice"})
	wantDomainError(t, err, "FORBIDDEN")
}

func TestDecideQuorumNotMet(t *testing.T) {
	review := openReviewRow()
	review.PolicySnapshot.QuorumPercent = 50
	review.PolicySnapshot.QuorumMinCount = 2
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return review, nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
		listVotesFn: func(context.Context, string) ([]store.Vote, error) {
			return []store.Vote{{ReviewID: "rev_1", VoterUserOid: "u-alice"}}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.Decide(context.Background(), "rev_1", store.DecisionApprovedNow, "", Actor{Oid: "u-chair"})
	domainErr := wantDomainError(t, err, "QUORUM_NOT_MET")
	if domainErr.Details == nil {
		t.Fatal("expected quorum details on the error")
	}
}

func TestDecideQuorumIgnoredWhenPolicyDisables(t *testing.T) {
	review := openReviewRow()
	review.PolicySnapshot.DecisionRequiresQuorum = false
	review.PolicySnapshot.QuorumMinCount = 4
	decided := false
	fs := &fakeStore{
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
		decideReviewFn: func(context.Context, string, string, string, string) (bool, error) {
			decided = true
			return true, nil
		},
	}
	fs.getReviewFn = func(context.Context, string) (store.Review, error) {
		if decided {
			done := review
			done.Status = store.ReviewDecided
			decision := store.DecisionApprovedNow
			done.Decision = &decision
			now := time.Now()
			done.DecidedAt = &now
			return done, nil
		}
		return review, nil
	}
	svc := newTestService(fs)

	if _, err := svc.Decide(context.Background(), "rev_1", store.DecisionApprovedNow, "", Actor{Oid: "u-chair"}); err != nil {
		t.Fatalf("decide without quorum requirement: %v", err)
	}
}

func TestDecideSucceedsOnceQuorumMet(t *testing.T) {
	review := openReviewRow()
	var gotDecision, gotReason, gotBy string
	decided := false
	fs := &fakeStore{
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
		listVotesFn: func(context.Context, string) ([]store.Vote, error) {
			return []store.Vote{
				{ReviewID: "rev_1", VoterUserOid: "u-alice", Scores: map[string]float64{"crt_fit": 80, "crt_cost": 60}},
				{ReviewID: "rev_1", VoterUserOid: "u-bob", Scores: map[string]float64{"crt_fit": 70}},
			}, nil
		},
		decideReviewFn: func(_ context.Context, _ string, decision, reason, decidedBy string) (bool, error) {
			gotDecision, gotReason, gotBy = decision, reason, decidedBy
			decided = true
			return true, nil
		},
	}
	fs.getReviewFn = func(context.Context, string) (store.Review, error) {
		if decided {
			done := review
			done.Status = store.ReviewDecided
			done.Decision = &gotDecision
			done.DecidedBy = &gotBy
			now := time.Now()
			done.DecidedAt = &now
			return done, nil
		}
		return review, nil
	}
	svc := newTestService(fs)

	payload, err := svc.Decide(context.Background(), "rev_1", store.DecisionApprovedBacklog, "budget holds until Q2", Actor{Oid: "u-chair"})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if gotDecision != store.DecisionApprovedBacklog || gotBy != "u-chair" {
		t.Fatalf("unexpected transition args: %s by %s", gotDecision, gotBy)
	}
	if gotReason != "budget holds until Q2" {
		t.Fatalf("unexpected reason: %q", gotReason)
	}
	if payload["status"] != store.ReviewDecided {
		t.Fatalf("expected decided status payload, got %v", payload["status"])
	}
}

func TestDecideLosesRace(t *testing.T) {
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return openReviewRow(), nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
		listVotesFn: func(context.Context, string) ([]store.Vote, error) {
			return []store.Vote{{ReviewID: "rev_1", VoterUserOid: "u-alice"}}, nil
		},
		decideReviewFn: func(context.Context, string, string, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.Decide(context.Background(), "rev_1", store.DecisionApprovedNow, "", Actor{Oid: "u-chair"})
	wantDomainError(t, err, "INVALID_STATE")
}

func TestDecideCountsConflictVotesTowardQuorum(t *testing.T) {
	review := openReviewRow()
	review.PolicySnapshot.QuorumPercent = 50
	review.PolicySnapshot.QuorumMinCount = 1
	decided := false
	fs := &fakeStore{
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
		// 2 of 4 eligible voted, one with a declared conflict. Quorum at 50%
		// needs 2 and conflict votes still count toward presence.
		listVotesFn: func(context.Context, string) ([]store.Vote, error) {
			return []store.Vote{
				{ReviewID: "rev_1", VoterUserOid: "u-alice", Scores: map[string]float64{"crt_fit": 80}},
				{ReviewID: "rev_1", VoterUserOid: "u-bob", ConflictDeclared: true},
			}, nil
		},
		decideReviewFn: func(context.Context, string, string, string, string) (bool, error) {
			decided = true
			return true, nil
		},
	}
	fs.getReviewFn = func(context.Context, string) (store.Review, error) {
		if decided {
			done := review
			done.Status = store.ReviewDecided
			decision := store.DecisionApprovedNow
			done.Decision = &decision
			return done, nil
		}
		return review, nil
	}
	svc := newTestService(fs)

	if _, err := svc.Decide(context.Background(), "rev_1", store.DecisionApprovedNow, "", Actor{Oid: "u-chair"}); err != nil {
		t.Fatalf("decide with conflict vote in quorum: %v", err)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.Cancel(context.Background(), "rev_1", "  ", Actor{Oid: "u-chair"})
	wantDomainError(t, err, "VALIDATION_ERROR")
}

func TestCancelRequiresChair(t *testing.T) {
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return openReviewRow(), nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.Cancel(context.Background(), "rev_1", "submission withdrawn", Actor{Oid: "u-bob"})
	wantDomainError(t, err, "FORBIDDEN")
}

func TestCancelTransitions(t *testing.T) {
	review := openReviewRow()
	cancelled := false
	var gotReason string
	fs := &fakeStore{
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
		cancelReviewFn: func(_ context.Context, _ string, reason, _ string) (bool, error) {
			gotReason = reason
			cancelled = true
			return true, nil
		},
	}
	fs.getReviewFn = func(context.Context, string) (store.Review, error) {
		if cancelled {
			done := review
			done.Status = store.ReviewCancelled
			done.DecisionReason = &gotReason
			return done, nil
		}
		return review, nil
	}
	svc := newTestService(fs)

	payload, err := svc.Cancel(context.Background(), "rev_1", "submission withdrawn", Actor{Oid: "u-chair"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if gotReason != "submission withdrawn" {
		t.Fatalf("unexpected reason: %q", gotReason)
	}
	if payload["status"] != store.ReviewCancelled {
		t.Fatalf("expected cancelled status payload, got %v", payload["status"])
	}
}

func TestSubmissionReviewStatusNotStarted(t *testing.T) {
	svc := newTestService(&fakeStore{})

	payload, err := svc.SubmissionReviewStatus(context.Background(), "sub_9")
	if err != nil {
		t.Fatalf("submission review status: %v", err)
	}
	if payload["governanceStatus"] != "not-started" {
		t.Fatalf("expected not-started, got %v", payload["governanceStatus"])
	}
}

func TestSubmissionReviewStatusLatestRound(t *testing.T) {
	review := openReviewRow()
	review.ReviewRound = 2
	fs := &fakeStore{
		latestReviewFn: func(context.Context, string) (*store.Review, error) {
			return &review, nil
		},
		getReviewFn: func(context.Context, string) (store.Review, error) { return review, nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.SubmissionReviewStatus(context.Background(), "sub_1")
	if err != nil {
		t.Fatalf("submission review status: %v", err)
	}
	if payload["governanceStatus"] != store.ReviewInReview {
		t.Fatalf("expected in-review, got %v", payload["governanceStatus"])
	}
	if payload["reviewRound"] != 2 {
		t.Fatalf("expected round 2, got %v", payload["reviewRound"])
	}
}

func TestReviewStatusRecomputesQuorumLive(t *testing.T) {
	votes := []store.Vote{}
	fs := &fakeStore{
		getReviewFn: func(context.Context, string) (store.Review, error) { return openReviewRow(), nil },
		listParticipantsFn: func(context.Context, string) ([]store.Participant, error) {
			return reviewParticipants(), nil
		},
		listVotesFn: func(context.Context, string) ([]store.Vote, error) { return votes, nil },
	}
	svc := newTestService(fs)

	payload, err := svc.ReviewStatus(context.Background(), "rev_1")
	if err != nil {
		t.Fatalf("review status: %v", err)
	}
	quorum := payload["quorum"]
	if quorum == nil {
		t.Fatal("expected quorum in payload")
	}

	votes = append(votes, store.Vote{ReviewID: "rev_1", VoterUserOid: "u-alice"},
		store.Vote{ReviewID: "rev_1", VoterUserOid: "u-bob"})
	payload, err = svc.ReviewStatus(context.Background(), "rev_1")
	if err != nil {
		t.Fatalf("review status after votes: %v", err)
	}
	if payload["quorum"] == nil {
		t.Fatal("expected quorum in payload")
	}
}

func TestGetReviewBubblesNotFound(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.GetReview(context.Background(), "rev_missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
