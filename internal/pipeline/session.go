// Package pipeline orchestrates a learning session: record the review
// decisions, rebuild the preference model, fold the session's accuracy into
// the trend, adjust strictness, and re-attribute query yield, then commit
// everything in one transaction.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scoutworks/jobscout/internal/accuracy"
	"github.com/scoutworks/jobscout/internal/config"
	"github.com/scoutworks/jobscout/internal/feedback"
	"github.com/scoutworks/jobscout/internal/model"
	"github.com/scoutworks/jobscout/internal/patterns"
	"github.com/scoutworks/jobscout/internal/prefs"
	"github.com/scoutworks/jobscout/internal/queryopt"
	"github.com/scoutworks/jobscout/internal/store"
	"github.com/scoutworks/jobscout/internal/strategy"
)

// SessionInput describes one completed review session.
type SessionInput struct {
	// SessionID identifies the session; generated when empty.
	SessionID string
	// Decisions are the session's review outcomes. SessionID is stamped on
	// each before recording.
	Decisions []model.FeedbackDecision
	// Shown is how many notifications the session surfaced. Zero marks the
	// session as having no accuracy signal.
	Shown int
	// Now anchors all timestamps; time.Now() when zero.
	Now time.Time
}

// SessionResult reports what the session changed.
type SessionResult struct {
	SessionID  string
	Recorded   int
	Skipped    int
	Model      model.PreferenceModel
	Snapshot   *model.AccuracySnapshot
	Strategy   model.StrategyState
	QueryStats []model.QueryStat
}

// Runner wires the learning components over one store.
type Runner struct {
	store      store.Store
	feedback   *feedback.Service
	extractor  *patterns.Extractor
	builder    *prefs.Builder
	tracker    *accuracy.Tracker
	controller *strategy.Controller
	optimizer  *queryopt.Optimizer
}

// NewRunner builds a Runner from config.
func NewRunner(st store.Store, cfg *config.Config) *Runner {
	return &Runner{
		store:    st,
		feedback: feedback.NewService(st),
		extractor: patterns.New(patterns.Config{
			Alpha:              cfg.Learning.Alpha,
			PreferredThreshold: cfg.Learning.PreferredThreshold,
			AvoidedThreshold:   cfg.Learning.AvoidedThreshold,
			MinObservations:    cfg.Learning.MinObservations,
		}),
		builder:    prefs.NewBuilder(cfg.Learning.MaxTerms),
		tracker:    accuracy.NewTracker(cfg.Accuracy.TrendWindow, cfg.Accuracy.DeadBand),
		controller: strategy.NewController(),
		optimizer:  queryopt.New(cfg.Queries.YieldFloor, cfg.Queries.MinSurfaced),
	}
}

// RunSession executes the learning session end to end. On any failure after
// recording, nothing is committed and the previously published state stays
// authoritative.
func (r *Runner) RunSession(ctx context.Context, in SessionInput) (*SessionResult, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log := zap.L().With(zap.String("session_id", sessionID))

	for i := range in.Decisions {
		in.Decisions[i].SessionID = sessionID
	}
	recorded, skipped, err := r.feedback.RecordBatch(ctx, in.Decisions)
	if err != nil {
		return nil, eris.Wrap(err, "session: record feedback")
	}
	log.Info("feedback recorded", zap.Int("recorded", recorded), zap.Int("skipped", skipped))

	postings, err := r.store.ListPostings(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "session: list postings")
	}
	decisions, err := r.feedback.AllDecisions(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "session: list decisions")
	}

	// Rebuild the preference model from the full history.
	table := r.extractor.Extract(postings, decisions)
	preferred, avoided := r.extractor.Select(table)

	prevModel, err := r.store.GetPreferenceModel(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "session: load preference model")
	}
	if prevModel == nil {
		prevModel = &model.PreferenceModel{}
	}

	// Fold the session's accuracy into the trend. An invalid session (for
	// example a discovery-only run where nothing was shown) contributes no
	// snapshot and leaves the strategy untouched.
	history, err := r.store.ListAccuracySnapshots(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "session: load accuracy history")
	}

	// Count acceptance from what was actually recorded; skipped invalid
	// decisions must not inflate the session's precision.
	var sessionDecisions []model.FeedbackDecision
	for _, d := range decisions {
		if d.SessionID == sessionID {
			sessionDecisions = append(sessionDecisions, d)
		}
	}
	accepted := 0
	for _, d := range model.LatestDecisions(sessionDecisions) {
		if d == model.DecisionAccept {
			accepted++
		}
	}

	var snapshot *model.AccuracySnapshot
	snap, err := r.tracker.RecordSession(sessionID, in.Shown, accepted, now)
	switch {
	case err == nil:
		snapshot = &snap
		history = append(history, snap)
	case eris.Is(err, accuracy.ErrInvalidSession):
		log.Info("session carries no accuracy signal", zap.Int("shown", in.Shown), zap.Int("accepted", accepted))
	default:
		return nil, eris.Wrap(err, "session: record accuracy")
	}

	prevStrategy, err := r.store.GetStrategyState(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "session: load strategy state")
	}
	if prevStrategy == nil {
		initial := model.InitialStrategyState(now)
		prevStrategy = &initial
	}
	newStrategy := *prevStrategy
	if snapshot != nil {
		newStrategy = r.controller.Observe(*prevStrategy, r.tracker.Direction(history), now)
	}

	var latestSnap *model.AccuracySnapshot
	if len(history) > 0 {
		latestSnap = &history[len(history)-1]
	}
	newModel := r.builder.Build(preferred, avoided, *prevModel, latestSnap, now)

	prevStats, err := r.store.ListQueryStats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "session: load query stats")
	}
	stats := r.optimizer.Attribute(prevStats, postings, decisions, now)

	commit := store.SessionCommit{
		Model:      newModel,
		Snapshot:   snapshot,
		Strategy:   newStrategy,
		QueryStats: stats,
	}
	if err := r.store.CommitSession(ctx, commit); err != nil {
		return nil, eris.Wrap(err, "session: commit")
	}

	log.Info("session committed",
		zap.Int64("model_version", newModel.Version),
		zap.String("strictness", string(newStrategy.Current)),
		zap.Int("preferred_terms", len(newModel.StronglyPreferred)),
		zap.Int("avoided_terms", len(newModel.StronglyAvoided)),
	)

	return &SessionResult{
		SessionID:  sessionID,
		Recorded:   recorded,
		Skipped:    skipped,
		Model:      newModel,
		Snapshot:   snapshot,
		Strategy:   newStrategy,
		QueryStats: stats,
	}, nil
}

// RankQueries loads the seed list and orders it by observed yield.
func (r *Runner) RankQueries(ctx context.Context, seedPath string) ([]string, error) {
	seed, err := queryopt.LoadSeed(seedPath)
	if err != nil {
		return nil, err
	}
	stats, err := r.store.ListQueryStats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "rank queries: load stats")
	}
	return r.optimizer.Rank(seed, stats), nil
}
