package model

import "time"

// QueryStat accumulates per-query discovery yield, keyed by the query string.
type QueryStat struct {
	Query      string    `json:"query" db:"query"`
	Surfaced   int       `json:"postings_surfaced" db:"postings_surfaced"`
	Accepted   int       `json:"postings_accepted" db:"postings_accepted"`
	LastUsedAt time.Time `json:"last_used_at" db:"last_used_at"`
}

// Yield is the acceptance rate of postings this query surfaced.
// Zero surfaced postings yield 0.
func (q QueryStat) Yield() float64 {
	if q.Surfaced == 0 {
		return 0
	}
	return float64(q.Accepted) / float64(q.Surfaced)
}
