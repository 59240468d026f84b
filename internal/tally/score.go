package tally

import "govreview/api/internal/store"

// CriterionScore is the per-criterion read-model line.
type CriterionScore struct {
	CriterionID string   `json:"criterionId"`
	Name        string   `json:"name"`
	Weight      float64  `json:"weight"`
	VoterCount  int      `json:"voterCount"`
	Mean        *float64 `json:"mean"`
}

// ScoreResult is the aggregate over all non-conflicted votes.
type ScoreResult struct {
	Criteria     []CriterionScore `json:"criteria"`
	Overall      *float64         `json:"overall"`
	CountedVotes int              `json:"countedVotes"`
}

// Score averages each enabled snapshot criterion over the voters that scored
// it and weights the means into an overall score. Votes with a declared
// conflict are skipped entirely. A voter that omitted a criterion is excluded
// from that criterion's mean, not treated as zero. When the enabled weight
// sum is zero the overall score is nil.
func Score(criteria []store.Criterion, votes []store.Vote) ScoreResult {
	counted := make([]store.Vote, 0, len(votes))
	for _, vote := range votes {
		if vote.ConflictDeclared {
			continue
		}
		counted = append(counted, vote)
	}

	result := ScoreResult{
		Criteria:     make([]CriterionScore, 0, len(criteria)),
		CountedVotes: len(counted),
	}

	var weightSum, weightedSum float64
	for _, criterion := range criteria {
		if !criterion.Enabled {
			continue
		}
		line := CriterionScore{
			CriterionID: criterion.ID,
			Name:        criterion.Name,
			Weight:      criterion.Weight,
		}
		var total float64
		for _, vote := range counted {
			score, ok := vote.Scores[criterion.ID]
			if !ok {
				continue
			}
			total += score
			line.VoterCount++
		}
		if line.VoterCount > 0 {
			mean := total / float64(line.VoterCount)
			line.Mean = &mean
			weightedSum += mean * criterion.Weight
			weightSum += criterion.Weight
		}
		result.Criteria = append(result.Criteria, line)
	}

	// Criteria nobody scored drop out of the weight sum; a zero sum leaves
	// the overall score undefined rather than dividing by zero.
	if weightSum > 0 {
		overall := weightedSum / weightSum
		result.Overall = &overall
	}
	return result
}
