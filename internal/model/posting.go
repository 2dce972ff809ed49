// Package model defines the core entities of the learning loop.
package model

import "time"

// Posting is a candidate opportunity surfaced by a discovery run.
// Identity is the source URL; the record is immutable once ingested.
type Posting struct {
	URL         string    `json:"url" db:"url"`
	Title       string    `json:"title" db:"title"`
	Org         string    `json:"org,omitempty" db:"org"`
	Text        string    `json:"text,omitempty" db:"text"`
	SourceQuery string    `json:"source_query,omitempty" db:"source_query"`
	FirstSeenAt time.Time `json:"first_seen_at" db:"first_seen_at"`
}
