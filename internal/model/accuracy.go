package model

import "time"

// AccuracySnapshot records the precision of one completed review session.
// Snapshots are appended, never mutated; the ordered sequence is the trend.
type AccuracySnapshot struct {
	SessionID     string    `json:"session_id" db:"session_id"`
	ShownCount    int       `json:"shown_count" db:"shown_count"`
	AcceptedCount int       `json:"accepted_count" db:"accepted_count"`
	Precision     float64   `json:"precision" db:"precision"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Direction is the accuracy trend signal consumed by the strategy controller.
type Direction string

const (
	DirectionImproving Direction = "improving"
	DirectionDegrading Direction = "degrading"
	DirectionFlat      Direction = "flat"
)
