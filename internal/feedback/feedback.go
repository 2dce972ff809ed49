// Package feedback is the durable record of every review decision. All other
// components read the decision history through it rather than the store.
package feedback

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutworks/jobscout/internal/model"
	"github.com/scoutworks/jobscout/internal/store"
)

// ErrInvalidDecision marks a decision referencing a posting never seen by
// discovery, or carrying an unknown decision value.
var ErrInvalidDecision = eris.New("feedback: invalid decision")

// Service validates and records review decisions.
type Service struct {
	store store.Store
}

// NewService creates a feedback Service on top of the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Record appends a single decision. The referenced posting must have been
// ingested by a current or prior discovery run.
func (s *Service) Record(ctx context.Context, d model.FeedbackDecision) error {
	if !model.ValidDecision(string(d.Decision)) {
		return eris.Wrapf(ErrInvalidDecision, "unknown decision %q", d.Decision)
	}
	if d.PostingURL == "" {
		return eris.Wrap(ErrInvalidDecision, "empty posting url")
	}

	exists, err := s.store.PostingExists(ctx, d.PostingURL)
	if err != nil {
		return eris.Wrapf(err, "feedback: check posting %s", d.PostingURL)
	}
	if !exists {
		return eris.Wrapf(ErrInvalidDecision, "posting %s never surfaced by discovery", d.PostingURL)
	}

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return s.store.AppendDecision(ctx, d)
}

// RecordBatch records a session's decisions. Invalid decisions are logged and
// skipped; the rest of the batch is still recorded. Returns the number
// recorded and the number skipped.
func (s *Service) RecordBatch(ctx context.Context, decisions []model.FeedbackDecision) (int, int, error) {
	log := zap.L().With(zap.String("component", "feedback"))

	recorded, skipped := 0, 0
	for _, d := range decisions {
		err := s.Record(ctx, d)
		if err == nil {
			recorded++
			continue
		}
		if eris.Is(err, ErrInvalidDecision) {
			log.Warn("skipping invalid decision",
				zap.String("posting_url", d.PostingURL),
				zap.String("decision", string(d.Decision)),
				zap.Error(err),
			)
			skipped++
			continue
		}
		return recorded, skipped, err
	}
	return recorded, skipped, nil
}

// DecisionsFor returns the chronological decisions for one posting.
// The last entry is authoritative.
func (s *Service) DecisionsFor(ctx context.Context, postingURL string) ([]model.FeedbackDecision, error) {
	return s.store.DecisionsFor(ctx, postingURL)
}

// AllDecisions returns the chronological decision history, optionally
// bounded to decisions at or after since.
func (s *Service) AllDecisions(ctx context.Context, since *time.Time) ([]model.FeedbackDecision, error) {
	return s.store.ListDecisions(ctx, since)
}
