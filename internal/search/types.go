package search

// DecisionRecord is the indexed shape of a decided review round.
type DecisionRecord struct {
	ID           string   `json:"id"`
	SubmissionID string   `json:"submissionId"`
	BoardID      string   `json:"boardId"`
	BoardName    string   `json:"boardName"`
	ReviewRound  int      `json:"reviewRound"`
	Decision     string   `json:"decision"`
	Reason       string   `json:"reason"`
	DecidedBy    string   `json:"decidedBy"`
	DecidedAt    string   `json:"decidedAt"`
	OverallScore *float64 `json:"overallScore,omitempty"`
}

// Query filters a decision-history search.
type Query struct {
	Text     string
	BoardID  string
	Decision string
	Limit    int
}

// Response is the search read-model returned to the HTTP layer.
type Response struct {
	Results []DecisionRecord `json:"results"`
	Total   int64            `json:"total"`
	Query   string           `json:"query"`
}
