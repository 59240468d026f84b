package store

import "time"

// Review status values. in-review is the only non-terminal state.
const (
	ReviewInReview  = "in-review"
	ReviewDecided   = "decided"
	ReviewCancelled = "cancelled"
)

// Decision values recorded when a review reaches decided.
const (
	DecisionApprovedNow     = "approved-now"
	DecisionApprovedBacklog = "approved-backlog"
	DecisionNeedsInfo       = "needs-info"
	DecisionRejected        = "rejected"
)

// Criteria version lifecycle.
const (
	VersionDraft     = "draft"
	VersionPublished = "published"
	VersionRetired   = "retired"
)

// Membership roles, copied verbatim onto participant snapshots.
const (
	RoleMember = "member"
	RoleChair  = "chair"
)

type Settings struct {
	GovernanceEnabled      bool
	QuorumPercent          int
	QuorumMinCount         int
	DecisionRequiresQuorum bool
	VoteWindowDays         *int
	UpdatedBy              string
	UpdatedAt              time.Time
}

type Board struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Membership struct {
	ID            string
	BoardID       string
	UserOid       string
	DisplayName   string
	Role          string
	IsActive      bool
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	CreatedAt     time.Time
}

// Criterion is one weighted rubric entry. The same shape is stored on the
// version row and frozen into a review's criteria snapshot.
type Criterion struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	Enabled   bool    `json:"enabled"`
	SortOrder int     `json:"sortOrder"`
}

type CriteriaVersion struct {
	ID          string
	BoardID     string
	VersionNo   int
	Status      string
	Criteria    []Criterion
	PublishedAt *time.Time
	PublishedBy *string
	CreatedBy   string
	CreatedAt   time.Time
}

// PolicySnapshot freezes the quorum rules that applied when a round opened.
type PolicySnapshot struct {
	QuorumPercent          int  `json:"quorumPercent"`
	QuorumMinCount         int  `json:"quorumMinCount"`
	DecisionRequiresQuorum bool `json:"decisionRequiresQuorum"`
	VoteWindowDays         *int `json:"voteWindowDays"`
}

type Review struct {
	ID                string
	SubmissionID      string
	BoardID           string
	ReviewRound       int
	Status            string
	Decision          *string
	DecisionReason    *string
	CriteriaVersionID *string
	CriteriaSnapshot  []Criterion
	PolicySnapshot    PolicySnapshot
	VoteDeadlineAt    *time.Time
	StartedAt         time.Time
	StartedBy         string
	DecidedAt         *time.Time
	DecidedBy         *string
}

type Participant struct {
	ReviewID        string
	UserOid         string
	DisplayName     string
	ParticipantRole string
	IsEligibleVoter bool
}

type Vote struct {
	ReviewID         string
	VoterUserOid     string
	Scores           map[string]float64
	Comment          string
	ConflictDeclared bool
	SubmittedAt      time.Time
	UpdatedAt        *time.Time
}
