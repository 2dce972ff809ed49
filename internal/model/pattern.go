package model

// Pattern accumulates per-term decision counts. It is derived state,
// fully recomputable from the feedback history plus posting text.
type Pattern struct {
	Term        string `json:"term"`
	AcceptCount int    `json:"accept_count"`
	RejectCount int    `json:"reject_count"`
	MaybeCount  int    `json:"maybe_count"`
}

// Observations is the total number of reviewed postings this term appeared in.
func (p Pattern) Observations() int {
	return p.AcceptCount + p.RejectCount + p.MaybeCount
}

// Score is the Laplace-smoothed acceptance score
// (accept+alpha)/(accept+reject+2*alpha). With alpha > 0 the denominator is
// never zero and the result stays in [0, 1]; zero observations score 0.5.
func (p Pattern) Score(alpha float64) float64 {
	return (float64(p.AcceptCount) + alpha) /
		(float64(p.AcceptCount) + float64(p.RejectCount) + 2*alpha)
}
