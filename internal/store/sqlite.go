package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/scoutworks/jobscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS postings (
	url           TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	org           TEXT,
	text          TEXT,
	source_query  TEXT,
	first_seen_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_decisions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	posting_url TEXT NOT NULL REFERENCES postings(url),
	decision    TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS preference_model (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	payload      TEXT NOT NULL,
	version      INTEGER NOT NULL,
	generated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS accuracy_history (
	session_id     TEXT PRIMARY KEY,
	shown_count    INTEGER NOT NULL,
	accepted_count INTEGER NOT NULL,
	created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS strategy_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	payload    TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS query_stats (
	query             TEXT PRIMARY KEY,
	postings_surfaced INTEGER NOT NULL DEFAULT 0,
	postings_accepted INTEGER NOT NULL DEFAULT 0,
	last_used_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_posting_url ON feedback_decisions(posting_url);
CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON feedback_decisions(created_at);
CREATE INDEX IF NOT EXISTS idx_accuracy_created_at ON accuracy_history(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertPostings inserts new postings; re-seen URLs are ignored so posting
// text stays immutable after first discovery.
func (s *SQLiteStore) InsertPostings(ctx context.Context, postings []model.Posting) (int, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert postings")
	}
	defer tx.Rollback() //nolint:errcheck

	inserted := 0
	for _, p := range postings {
		firstSeen := p.FirstSeenAt
		if firstSeen.IsZero() {
			firstSeen = time.Now().UTC()
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO postings (url, title, org, text, source_query, first_seen_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(url) DO NOTHING`,
			p.URL, p.Title, p.Org, p.Text, p.SourceQuery, firstSeen,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert posting %s", p.URL)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert postings")
	}
	return inserted, nil
}

func (s *SQLiteStore) PostingExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM postings WHERE url = ?)`, url,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: check posting exists")
	}
	return exists, nil
}

func (s *SQLiteStore) ListPostings(ctx context.Context) ([]model.Posting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, title, org, text, source_query, first_seen_at
		 FROM postings ORDER BY first_seen_at, url`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list postings")
	}
	defer rows.Close()

	var postings []model.Posting
	for rows.Next() {
		var p model.Posting
		var org, text, query sql.NullString
		if err := rows.Scan(&p.URL, &p.Title, &org, &text, &query, &p.FirstSeenAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan posting")
		}
		p.Org = org.String
		p.Text = text.String
		p.SourceQuery = query.String
		postings = append(postings, p)
	}
	return postings, eris.Wrap(rows.Err(), "sqlite: list postings iterate")
}

func (s *SQLiteStore) AppendDecision(ctx context.Context, d model.FeedbackDecision) error {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback_decisions (posting_url, decision, session_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		d.PostingURL, string(d.Decision), d.SessionID, createdAt,
	)
	return eris.Wrapf(err, "sqlite: append decision for %s", d.PostingURL)
}

func (s *SQLiteStore) DecisionsFor(ctx context.Context, postingURL string) ([]model.FeedbackDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT posting_url, decision, session_id, created_at
		 FROM feedback_decisions WHERE posting_url = ? ORDER BY id`,
		postingURL,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: decisions for %s", postingURL)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, since *time.Time) ([]model.FeedbackDecision, error) {
	query := `SELECT posting_url, decision, session_id, created_at FROM feedback_decisions`
	var args []any
	if since != nil {
		query += ` WHERE created_at >= ?`
		args = append(args, *since)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list decisions")
	}
	defer rows.Close()

	return scanDecisions(rows)
}

func scanDecisions(rows *sql.Rows) ([]model.FeedbackDecision, error) {
	var decisions []model.FeedbackDecision
	for rows.Next() {
		var d model.FeedbackDecision
		var decision string
		if err := rows.Scan(&d.PostingURL, &decision, &d.SessionID, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision")
		}
		if !model.ValidDecision(decision) {
			return nil, eris.Wrapf(ErrCorruptFeedbackHistory, "unknown decision %q for %s", decision, d.PostingURL)
		}
		d.Decision = model.Decision(decision)
		decisions = append(decisions, d)
	}
	return decisions, eris.Wrap(rows.Err(), "sqlite: decisions iterate")
}

// GetPreferenceModel returns the current model, or nil before the first build.
func (s *SQLiteStore) GetPreferenceModel(ctx context.Context) (*model.PreferenceModel, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM preference_model WHERE id = 1`,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get preference model")
	}

	var m model.PreferenceModel
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, eris.Wrapf(ErrCorruptPreferenceModel, "unmarshal: %v", err)
	}
	return &m, nil
}

// GetStrategyState returns the current strategy record, or nil on cold start.
func (s *SQLiteStore) GetStrategyState(ctx context.Context) (*model.StrategyState, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM strategy_state WHERE id = 1`,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get strategy state")
	}

	var st model.StrategyState
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return nil, eris.Wrapf(ErrCorruptStrategyState, "unmarshal: %v", err)
	}
	if !model.ValidStrictness(string(st.Current)) {
		return nil, eris.Wrapf(ErrCorruptStrategyState, "unknown strictness %q", st.Current)
	}
	return &st, nil
}

func (s *SQLiteStore) ListAccuracySnapshots(ctx context.Context) ([]model.AccuracySnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, shown_count, accepted_count, created_at
		 FROM accuracy_history ORDER BY created_at, session_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list accuracy snapshots")
	}
	defer rows.Close()

	var snaps []model.AccuracySnapshot
	for rows.Next() {
		var snap model.AccuracySnapshot
		if err := rows.Scan(&snap.SessionID, &snap.ShownCount, &snap.AcceptedCount, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan accuracy snapshot")
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
	return snaps, eris.Wrap(rows.Err(), "sqlite: accuracy snapshots iterate")
}

func (s *SQLiteStore) ListQueryStats(ctx context.Context) ([]model.QueryStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, postings_surfaced, postings_accepted, last_used_at
		 FROM query_stats ORDER BY query`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list query stats")
	}
	defer rows.Close()

	var stats []model.QueryStat
	for rows.Next() {
		var q model.QueryStat
		if err := rows.Scan(&q.Query, &q.Surfaced, &q.Accepted, &q.LastUsedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan query stat")
		}
		stats = append(stats, q)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: query stats iterate")
}

// CommitSession writes all four session records in one transaction.
func (s *SQLiteStore) CommitSession(ctx context.Context, commit SessionCommit) error {
	payload, err := json.Marshal(commit.Model)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal preference model")
	}
	strategyPayload, err := json.Marshal(commit.Strategy)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal strategy state")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin session commit")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO preference_model (id, payload, version, generated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload,
			version = excluded.version, generated_at = excluded.generated_at`,
		string(payload), commit.Model.Version, commit.Model.GeneratedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: write preference model")
	}

	if commit.Snapshot != nil {
		snap := commit.Snapshot
		createdAt := snap.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO accuracy_history (session_id, shown_count, accepted_count, created_at)
			 VALUES (?, ?, ?, ?)`,
			snap.SessionID, snap.ShownCount, snap.AcceptedCount, createdAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: append accuracy snapshot %s", snap.SessionID)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO strategy_state (id, payload, version, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload,
			version = excluded.version, updated_at = excluded.updated_at`,
		string(strategyPayload), commit.Strategy.Version, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: write strategy state")
	}

	for _, q := range commit.QueryStats {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO query_stats (query, postings_surfaced, postings_accepted, last_used_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(query) DO UPDATE SET
				postings_surfaced = excluded.postings_surfaced,
				postings_accepted = excluded.postings_accepted,
				last_used_at = excluded.last_used_at`,
			q.Query, q.Surfaced, q.Accepted, q.LastUsedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert query stat %q", q.Query)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit session")
	}
	return nil
}
