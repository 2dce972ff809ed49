package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/scoutworks/jobscout/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock implements it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS postings (
	url           TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	org           TEXT,
	text          TEXT,
	source_query  TEXT,
	first_seen_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_decisions (
	id          BIGSERIAL PRIMARY KEY,
	posting_url TEXT NOT NULL REFERENCES postings(url),
	decision    TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS preference_model (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	payload      JSONB NOT NULL,
	version      BIGINT NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS accuracy_history (
	session_id     TEXT PRIMARY KEY,
	shown_count    INTEGER NOT NULL,
	accepted_count INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS strategy_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	payload    JSONB NOT NULL,
	version    BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS query_stats (
	query             TEXT PRIMARY KEY,
	postings_surfaced INTEGER NOT NULL DEFAULT 0,
	postings_accepted INTEGER NOT NULL DEFAULT 0,
	last_used_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_posting_url ON feedback_decisions(posting_url);
CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON feedback_decisions(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InsertPostings(ctx context.Context, postings []model.Posting) (int, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin insert postings")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	inserted := 0
	for _, p := range postings {
		firstSeen := p.FirstSeenAt
		if firstSeen.IsZero() {
			firstSeen = time.Now().UTC()
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO postings (url, title, org, text, source_query, first_seen_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (url) DO NOTHING`,
			p.URL, p.Title, p.Org, p.Text, p.SourceQuery, firstSeen,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: insert posting %s", p.URL)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit insert postings")
	}
	return inserted, nil
}

func (s *PostgresStore) PostingExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM postings WHERE url = $1)`, url,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "postgres: check posting exists")
	}
	return exists, nil
}

func (s *PostgresStore) ListPostings(ctx context.Context) ([]model.Posting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT url, title, COALESCE(org, ''), COALESCE(text, ''), COALESCE(source_query, ''), first_seen_at
		 FROM postings ORDER BY first_seen_at, url`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list postings")
	}
	defer rows.Close()

	var postings []model.Posting
	for rows.Next() {
		var p model.Posting
		if err := rows.Scan(&p.URL, &p.Title, &p.Org, &p.Text, &p.SourceQuery, &p.FirstSeenAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan posting")
		}
		postings = append(postings, p)
	}
	return postings, eris.Wrap(rows.Err(), "postgres: list postings iterate")
}

func (s *PostgresStore) AppendDecision(ctx context.Context, d model.FeedbackDecision) error {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback_decisions (posting_url, decision, session_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		d.PostingURL, string(d.Decision), d.SessionID, createdAt,
	)
	return eris.Wrapf(err, "postgres: append decision for %s", d.PostingURL)
}

func (s *PostgresStore) DecisionsFor(ctx context.Context, postingURL string) ([]model.FeedbackDecision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT posting_url, decision, session_id, created_at
		 FROM feedback_decisions WHERE posting_url = $1 ORDER BY id`,
		postingURL,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: decisions for %s", postingURL)
	}
	defer rows.Close()

	return scanPgxDecisions(rows)
}

func (s *PostgresStore) ListDecisions(ctx context.Context, since *time.Time) ([]model.FeedbackDecision, error) {
	query := `SELECT posting_url, decision, session_id, created_at FROM feedback_decisions`
	var args []any
	if since != nil {
		query += ` WHERE created_at >= $1`
		args = append(args, *since)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list decisions")
	}
	defer rows.Close()

	return scanPgxDecisions(rows)
}

func scanPgxDecisions(rows pgx.Rows) ([]model.FeedbackDecision, error) {
	var decisions []model.FeedbackDecision
	for rows.Next() {
		var d model.FeedbackDecision
		var decision string
		if err := rows.Scan(&d.PostingURL, &decision, &d.SessionID, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan decision")
		}
		if !model.ValidDecision(decision) {
			return nil, eris.Wrapf(ErrCorruptFeedbackHistory, "unknown decision %q for %s", decision, d.PostingURL)
		}
		d.Decision = model.Decision(decision)
		decisions = append(decisions, d)
	}
	return decisions, eris.Wrap(rows.Err(), "postgres: decisions iterate")
}

func (s *PostgresStore) GetPreferenceModel(ctx context.Context) (*model.PreferenceModel, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM preference_model WHERE id = 1`,
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get preference model")
	}

	var m model.PreferenceModel
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, eris.Wrapf(ErrCorruptPreferenceModel, "unmarshal: %v", err)
	}
	return &m, nil
}

func (s *PostgresStore) GetStrategyState(ctx context.Context) (*model.StrategyState, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM strategy_state WHERE id = 1`,
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get strategy state")
	}

	var st model.StrategyState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, eris.Wrapf(ErrCorruptStrategyState, "unmarshal: %v", err)
	}
	if !model.ValidStrictness(string(st.Current)) {
		return nil, eris.Wrapf(ErrCorruptStrategyState, "unknown strictness %q", st.Current)
	}
	return &st, nil
}

func (s *PostgresStore) ListAccuracySnapshots(ctx context.Context) ([]model.AccuracySnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, shown_count, accepted_count, created_at
		 FROM accuracy_history ORDER BY created_at, session_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list accuracy snapshots")
	}
	defer rows.Close()

	var snaps []model.AccuracySnapshot
	for rows.Next() {
		var snap model.AccuracySnapshot
		if err := rows.Scan(&snap.SessionID, &snap.ShownCount, &snap.AcceptedCount, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan accuracy snapshot")
		}
		if snap.ShownCount < 0 || snap.AcceptedCount < 0 || snap.AcceptedCount > snap.ShownCount {
			return nil, eris.Wrapf(ErrCorruptAccuracyHistory, "session %s: accepted %d of shown %d",
				snap.SessionID, snap.AcceptedCount, snap.ShownCount)
		}
		if snap.ShownCount > 0 {
			snap.Precision = float64(snap.AcceptedCount) / float64(snap.ShownCount)
		}
		snaps = append(snaps, snap)
	}
	return snaps, eris.Wrap(rows.Err(), "postgres: accuracy snapshots iterate")
}

func (s *PostgresStore) ListQueryStats(ctx context.Context) ([]model.QueryStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT query, postings_surfaced, postings_accepted, last_used_at
		 FROM query_stats ORDER BY query`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list query stats")
	}
	defer rows.Close()

	var stats []model.QueryStat
	for rows.Next() {
		var q model.QueryStat
		if err := rows.Scan(&q.Query, &q.Surfaced, &q.Accepted, &q.LastUsedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan query stat")
		}
		stats = append(stats, q)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: query stats iterate")
}

func (s *PostgresStore) CommitSession(ctx context.Context, commit SessionCommit) error {
	payload, err := json.Marshal(commit.Model)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal preference model")
	}
	strategyPayload, err := json.Marshal(commit.Strategy)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal strategy state")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin session commit")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO preference_model (id, payload, version, generated_at) VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload,
			version = EXCLUDED.version, generated_at = EXCLUDED.generated_at`,
		payload, commit.Model.Version, commit.Model.GeneratedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: write preference model")
	}

	if commit.Snapshot != nil {
		snap := commit.Snapshot
		createdAt := snap.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO accuracy_history (session_id, shown_count, accepted_count, created_at)
			 VALUES ($1, $2, $3, $4)`,
			snap.SessionID, snap.ShownCount, snap.AcceptedCount, createdAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: append accuracy snapshot %s", snap.SessionID)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO strategy_state (id, payload, version, updated_at) VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload,
			version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`,
		strategyPayload, commit.Strategy.Version, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: write strategy state")
	}

	for _, q := range commit.QueryStats {
		_, err = tx.Exec(ctx,
			`INSERT INTO query_stats (query, postings_surfaced, postings_accepted, last_used_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (query) DO UPDATE SET
				postings_surfaced = EXCLUDED.postings_surfaced,
				postings_accepted = EXCLUDED.postings_accepted,
				last_used_at = EXCLUDED.last_used_at`,
			q.Query, q.Surfaced, q.Accepted, q.LastUsedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert query stat %q", q.Query)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit session")
	}
	return nil
}
