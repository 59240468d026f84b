package tally

import "fmt"

// QuorumInput carries the participation counts and the policy thresholds that
// applied when the review round opened.
type QuorumInput struct {
	EligibleVoters int
	VotesCast      int
	QuorumPercent  int
	QuorumMinCount int
}

// QuorumResult explains the evaluation alongside the verdict.
type QuorumResult struct {
	Met            bool   `json:"met"`
	VotesCast      int    `json:"votesCast"`
	EligibleVoters int    `json:"eligibleVoters"`
	VotesRequired  int    `json:"votesRequired"`
	Explanation    string `json:"explanation"`
}

// Quorum evaluates participation against the frozen policy. Conflict-declared
// votes count toward VotesCast; the caller excludes them from scoring only.
// With zero eligible voters quorum can never be met.
func Quorum(in QuorumInput) QuorumResult {
	if in.EligibleVoters <= 0 {
		return QuorumResult{
			Met:           false,
			VotesCast:     in.VotesCast,
			VotesRequired: 0,
			Explanation:   "no eligible voters; quorum cannot be met",
		}
	}

	percentRequired := ceilDiv(in.EligibleVoters*in.QuorumPercent, 100)
	required := percentRequired
	if in.QuorumMinCount > required {
		required = in.QuorumMinCount
	}

	met := in.VotesCast >= required
	verb := "meets"
	if !met {
		verb = "does not meet"
	}
	return QuorumResult{
		Met:            met,
		VotesCast:      in.VotesCast,
		EligibleVoters: in.EligibleVoters,
		VotesRequired:  required,
		Explanation: fmt.Sprintf("%d of %d votes %s the required %d (%d%% of eligible, minimum %d)",
			in.VotesCast, in.EligibleVoters, verb, required, in.QuorumPercent, in.QuorumMinCount),
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
