// Package store persists the four learning records: feedback history,
// preference model, accuracy history, and strategy state plus query stats.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/scoutworks/jobscout/internal/model"
)

// Per-record corruption errors. Unreadable persisted state fails fast with
// the record identified; history is never silently discarded.
var (
	ErrCorruptPreferenceModel = eris.New("store: preference model record unreadable")
	ErrCorruptStrategyState   = eris.New("store: strategy state record unreadable")
	ErrCorruptFeedbackHistory = eris.New("store: feedback history record unreadable")
	ErrCorruptAccuracyHistory = eris.New("store: accuracy history record unreadable")
)

// SessionCommit bundles the state produced by one learning session.
// The four records are committed in a single transaction; a failure aborts
// the whole commit and the previous state stays authoritative.
type SessionCommit struct {
	Model      model.PreferenceModel
	Snapshot   *model.AccuracySnapshot // nil when the session's accuracy was invalid
	Strategy   model.StrategyState
	QueryStats []model.QueryStat
}

// Store defines the persistence interface for the learning core.
type Store interface {
	// Postings (written by discovery ingest, read-only afterwards)
	InsertPostings(ctx context.Context, postings []model.Posting) (int, error)
	PostingExists(ctx context.Context, url string) (bool, error)
	ListPostings(ctx context.Context) ([]model.Posting, error)

	// Feedback history (append-only)
	AppendDecision(ctx context.Context, d model.FeedbackDecision) error
	DecisionsFor(ctx context.Context, postingURL string) ([]model.FeedbackDecision, error)
	ListDecisions(ctx context.Context, since *time.Time) ([]model.FeedbackDecision, error)

	// Published state
	GetPreferenceModel(ctx context.Context) (*model.PreferenceModel, error)
	GetStrategyState(ctx context.Context) (*model.StrategyState, error)
	ListAccuracySnapshots(ctx context.Context) ([]model.AccuracySnapshot, error)
	ListQueryStats(ctx context.Context) ([]model.QueryStat, error)

	// CommitSession atomically replaces the preference model and strategy
	// state, appends the accuracy snapshot, and upserts query stats.
	CommitSession(ctx context.Context, commit SessionCommit) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
