// Package accuracy tracks per-session notification precision and derives
// the trend signal the strategy controller acts on.
package accuracy

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/scoutworks/jobscout/internal/model"
)

// ErrInvalidSession marks session counts that cannot produce a snapshot.
var ErrInvalidSession = eris.New("accuracy: invalid session counts")

// Tracker computes snapshots and trend signals over the accuracy history.
type Tracker struct {
	window   int
	deadBand float64
}

// NewTracker creates a Tracker. window is the number of snapshots averaged
// for trend computation; deadBand is the minimum precision delta treated as
// a real change rather than noise.
func NewTracker(window int, deadBand float64) *Tracker {
	return &Tracker{window: window, deadBand: deadBand}
}

// RecordSession builds the snapshot for one completed review session.
// Sessions where nothing was shown, or with impossible counts, return
// ErrInvalidSession; callers skip the snapshot and leave the trend alone.
func (t *Tracker) RecordSession(sessionID string, shown, accepted int, now time.Time) (model.AccuracySnapshot, error) {
	if sessionID == "" {
		return model.AccuracySnapshot{}, eris.Wrap(ErrInvalidSession, "empty session id")
	}
	if shown <= 0 {
		return model.AccuracySnapshot{}, eris.Wrapf(ErrInvalidSession, "shown=%d", shown)
	}
	if accepted < 0 || accepted > shown {
		return model.AccuracySnapshot{}, eris.Wrapf(ErrInvalidSession, "accepted=%d of shown=%d", accepted, shown)
	}
	return model.AccuracySnapshot{
		SessionID:     sessionID,
		ShownCount:    shown,
		AcceptedCount: accepted,
		Precision:     float64(accepted) / float64(shown),
		CreatedAt:     now.UTC(),
	}, nil
}

// Trend returns the simple moving average of precision over the most recent
// window snapshots, or 0 when there are none. snapshots must be ordered
// oldest first.
func (t *Tracker) Trend(snapshots []model.AccuracySnapshot) float64 {
	if len(snapshots) == 0 {
		return 0
	}
	start := len(snapshots) - t.window
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, s := range snapshots[start:] {
		sum += s.Precision
	}
	return sum / float64(len(snapshots)-start)
}

// Direction compares the latest snapshot's precision against the moving
// average of the snapshots preceding it. Deltas within the dead band, and
// histories too short to compare, read as flat.
func (t *Tracker) Direction(snapshots []model.AccuracySnapshot) model.Direction {
	if len(snapshots) < 2 {
		return model.DirectionFlat
	}
	latest := snapshots[len(snapshots)-1].Precision
	prior := snapshots[:len(snapshots)-1]
	start := len(prior) - t.window
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, s := range prior[start:] {
		sum += s.Precision
	}
	avg := sum / float64(len(prior)-start)

	switch delta := latest - avg; {
	case delta > t.deadBand:
		return model.DirectionImproving
	case delta < -t.deadBand:
		return model.DirectionDegrading
	default:
		return model.DirectionFlat
	}
}
