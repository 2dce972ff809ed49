package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutworks/jobscout/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testPostings() []model.Posting {
	return []model.Posting{
		{URL: "https://jobs.example.com/1", Title: "Graduate ML Engineer", Org: "Acme", Text: "pytorch healthcare", SourceQuery: "graduate ml uk"},
		{URL: "https://jobs.example.com/2", Title: "Sales Lead", Org: "BizCo", Text: "quota commission", SourceQuery: "sales jobs"},
	}
}

// --- Postings ---

func TestSQLite_InsertPostings_IgnoresReseenURLs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.InsertPostings(ctx, testPostings())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-ingesting the same URL with different text must not mutate the posting.
	n, err = st.InsertPostings(ctx, []model.Posting{
		{URL: "https://jobs.example.com/1", Title: "Edited Title", Text: "edited"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	postings, err := st.ListPostings(ctx)
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, "Graduate ML Engineer", postings[0].Title)
}

func TestSQLite_PostingExists(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.InsertPostings(ctx, testPostings())
	require.NoError(t, err)

	exists, err := st.PostingExists(ctx, "https://jobs.example.com/1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = st.PostingExists(ctx, "https://nowhere.example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

// --- Decisions ---

func TestSQLite_Decisions_AppendAndSupersede(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.InsertPostings(ctx, testPostings())
	require.NoError(t, err)

	first := model.FeedbackDecision{
		PostingURL: "https://jobs.example.com/1",
		Decision:   model.DecisionReject,
		SessionID:  "s1",
		CreatedAt:  time.Now().UTC().Add(-time.Hour),
	}
	second := model.FeedbackDecision{
		PostingURL: "https://jobs.example.com/1",
		Decision:   model.DecisionAccept,
		SessionID:  "s2",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.AppendDecision(ctx, first))
	require.NoError(t, st.AppendDecision(ctx, second))

	decisions, err := st.DecisionsFor(ctx, "https://jobs.example.com/1")
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	// Last entry is authoritative.
	assert.Equal(t, model.DecisionAccept, decisions[len(decisions)-1].Decision)
}

func TestSQLite_ListDecisions_Since(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.InsertPostings(ctx, testPostings())
	require.NoError(t, err)

	old := time.Now().UTC().Add(-24 * time.Hour)
	recent := time.Now().UTC()
	require.NoError(t, st.AppendDecision(ctx, model.FeedbackDecision{
		PostingURL: "https://jobs.example.com/1", Decision: model.DecisionAccept, SessionID: "s1", CreatedAt: old,
	}))
	require.NoError(t, st.AppendDecision(ctx, model.FeedbackDecision{
		PostingURL: "https://jobs.example.com/2", Decision: model.DecisionReject, SessionID: "s2", CreatedAt: recent,
	}))

	all, err := st.ListDecisions(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cutoff := time.Now().UTC().Add(-time.Hour)
	bounded, err := st.ListDecisions(ctx, &cutoff)
	require.NoError(t, err)
	require.Len(t, bounded, 1)
	assert.Equal(t, "https://jobs.example.com/2", bounded[0].PostingURL)
}

// --- Session commit / round trip ---

func testCommit() SessionCommit {
	now := time.Now().UTC().Truncate(time.Second)
	return SessionCommit{
		Model: model.PreferenceModel{
			StronglyPreferred: []model.TermScore{{Term: "graduate", Score: 0.818, Observations: 9}},
			StronglyAvoided:   []model.TermScore{{Term: "sales", Score: 0.1, Observations: 5}},
			PrecisionHint:     0.6,
			Version:           1,
			GeneratedAt:       now,
		},
		Snapshot: &model.AccuracySnapshot{
			SessionID: "s1", ShownCount: 10, AcceptedCount: 6, CreatedAt: now,
		},
		Strategy: model.StrategyState{
			Current: model.StrictnessModerate, LastChangedAt: now,
			LastDirection: model.DirectionFlat, Version: 2,
		},
		QueryStats: []model.QueryStat{
			{Query: "graduate ml uk", Surfaced: 12, Accepted: 5, LastUsedAt: now},
			{Query: "sales jobs", Surfaced: 30, Accepted: 1, LastUsedAt: now},
		},
	}
}

func TestSQLite_CommitSession_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	commit := testCommit()
	require.NoError(t, st.CommitSession(ctx, commit))

	m, err := st.GetPreferenceModel(ctx)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, commit.Model.StronglyPreferred, m.StronglyPreferred)
	assert.Equal(t, commit.Model.StronglyAvoided, m.StronglyAvoided)
	assert.InDelta(t, 0.6, m.PrecisionHint, 1e-9)
	assert.Equal(t, int64(1), m.Version)

	stt, err := st.GetStrategyState(ctx)
	require.NoError(t, err)
	require.NotNil(t, stt)
	assert.Equal(t, model.StrictnessModerate, stt.Current)
	assert.Equal(t, int64(2), stt.Version)

	snaps, err := st.ListAccuracySnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "s1", snaps[0].SessionID)
	assert.InDelta(t, 0.6, snaps[0].Precision, 1e-9)

	stats, err := st.ListQueryStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "graduate ml uk", stats[0].Query)
	assert.Equal(t, 12, stats[0].Surfaced)
}

func TestSQLite_CommitSession_ReplacesModelWholesale(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := testCommit()
	require.NoError(t, st.CommitSession(ctx, first))

	second := testCommit()
	second.Model.StronglyPreferred = nil
	second.Model.Version = 2
	second.Snapshot.SessionID = "s2"
	require.NoError(t, st.CommitSession(ctx, second))

	m, err := st.GetPreferenceModel(ctx)
	require.NoError(t, err)
	assert.Empty(t, m.StronglyPreferred)
	assert.Equal(t, int64(2), m.Version)

	snaps, err := st.ListAccuracySnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestSQLite_CommitSession_FailureLeavesPriorStateIntact(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := testCommit()
	require.NoError(t, st.CommitSession(ctx, first))

	// Duplicate session_id violates the accuracy_history primary key; the
	// whole commit must roll back, including the newer model payload.
	second := testCommit()
	second.Model.Version = 9
	err := st.CommitSession(ctx, second)
	require.Error(t, err)

	m, err := st.GetPreferenceModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Version)

	snaps, err := st.ListAccuracySnapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

// --- Cold start / corruption ---

func TestSQLite_ColdStart_ReturnsNilRecords(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	m, err := st.GetPreferenceModel(ctx)
	require.NoError(t, err)
	assert.Nil(t, m)

	stt, err := st.GetStrategyState(ctx)
	require.NoError(t, err)
	assert.Nil(t, stt)

	snaps, err := st.ListAccuracySnapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSQLite_CorruptPreferenceModel(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO preference_model (id, payload, version, generated_at) VALUES (1, 'not json', 1, ?)`,
		time.Now().UTC())
	require.NoError(t, err)

	_, err = st.GetPreferenceModel(ctx)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCorruptPreferenceModel))
}

func TestSQLite_CorruptStrategyState(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO strategy_state (id, payload, version, updated_at) VALUES (1, '{"current_strictness":"extreme"}', 1, ?)`,
		time.Now().UTC())
	require.NoError(t, err)

	_, err = st.GetStrategyState(ctx)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrCorruptStrategyState))
}
