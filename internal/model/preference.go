package model

import "time"

// TermScore is one entry of a preference list.
type TermScore struct {
	Term         string  `json:"term"`
	Score        float64 `json:"score"`
	Observations int     `json:"observations"`
}

// PreferenceModel is the structured preference set consumed by the
// relevance-scoring collaborator. It is replaced wholesale on each rebuild;
// readers never observe a partially built model.
type PreferenceModel struct {
	StronglyPreferred []TermScore `json:"strongly_preferred"`
	StronglyAvoided   []TermScore `json:"strongly_avoided"`
	PrecisionHint     float64     `json:"precision_hint"`
	Version           int64       `json:"version"`
	GeneratedAt       time.Time   `json:"generated_at"`
}

// Empty reports whether the model carries no learned terms (cold start).
func (m PreferenceModel) Empty() bool {
	return len(m.StronglyPreferred) == 0 && len(m.StronglyAvoided) == 0
}
