package model

import "time"

// Decision is the reviewer's verdict on a posting.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionMaybe  Decision = "maybe"
	DecisionReject Decision = "reject"
)

// ValidDecision reports whether s names a known decision value.
func ValidDecision(s string) bool {
	switch Decision(s) {
	case DecisionAccept, DecisionMaybe, DecisionReject:
		return true
	}
	return false
}

// FeedbackDecision records one reviewer verdict on a posting. Rows are
// append-only; a later row for the same posting supersedes earlier ones.
type FeedbackDecision struct {
	PostingURL string    `json:"posting_url" db:"posting_url"`
	Decision   Decision  `json:"decision" db:"decision"`
	SessionID  string    `json:"session_id" db:"session_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// LatestDecisions reduces a chronological decision sequence to the
// authoritative (latest) decision per posting.
func LatestDecisions(decisions []FeedbackDecision) map[string]Decision {
	latest := make(map[string]Decision, len(decisions))
	for _, d := range decisions {
		latest[d.PostingURL] = d.Decision
	}
	return latest
}
