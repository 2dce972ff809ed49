// Package queryopt ranks discovery queries by how often their postings are
// accepted, so low-yield queries drop to the back of the rotation without
// ever being deleted.
package queryopt

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/scoutworks/jobscout/internal/model"
)

// seedFile is the on-disk query seed format.
type seedFile struct {
	Queries []string `yaml:"queries"`
}

// LoadSeed reads the ordered seed query list from a YAML file.
func LoadSeed(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read seed file %s", path)
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "parse seed file %s", path)
	}
	if len(f.Queries) == 0 {
		return nil, eris.Errorf("seed file %s lists no queries", path)
	}
	return f.Queries, nil
}

// Optimizer attributes acceptance outcomes back to the queries that
// surfaced the postings, and orders queries by yield.
type Optimizer struct {
	yieldFloor  float64
	minSurfaced int
}

// New creates an Optimizer. Queries are only demoted once they have surfaced
// at least minSurfaced postings with a yield below yieldFloor; thin evidence
// never moves a query.
func New(yieldFloor float64, minSurfaced int) *Optimizer {
	return &Optimizer{yieldFloor: yieldFloor, minSurfaced: minSurfaced}
}

// Attribute recomputes per-query stats from the full posting and decision
// history. Surfaced counts every posting the query discovered; accepted
// counts those whose latest decision is accept. Recomputing from history
// keeps the stats idempotent under replays and decision corrections.
// LastUsedAt tracks the newest FirstSeenAt among the query's postings, never
// regressing below the prior value; queries whose postings carry no
// timestamps fall back to the session time.
func (o *Optimizer) Attribute(prev []model.QueryStat, postings []model.Posting, decisions []model.FeedbackDecision, now time.Time) []model.QueryStat {
	lastUsed := make(map[string]time.Time, len(prev))
	for _, s := range prev {
		lastUsed[s.Query] = s.LastUsedAt
	}

	latest := model.LatestDecisions(decisions)
	byQuery := make(map[string]*model.QueryStat)
	var order []string
	for _, p := range postings {
		if p.SourceQuery == "" {
			continue
		}
		s, ok := byQuery[p.SourceQuery]
		if !ok {
			s = &model.QueryStat{Query: p.SourceQuery, LastUsedAt: lastUsed[p.SourceQuery]}
			byQuery[p.SourceQuery] = s
			order = append(order, p.SourceQuery)
		}
		s.Surfaced++
		if latest[p.URL] == model.DecisionAccept {
			s.Accepted++
		}
		// LastUsedAt advances to the newest discovery that used the query;
		// it never moves backwards.
		if p.FirstSeenAt.After(s.LastUsedAt) {
			s.LastUsedAt = p.FirstSeenAt
		}
	}

	out := make([]model.QueryStat, 0, len(order))
	for _, q := range order {
		if byQuery[q].LastUsedAt.IsZero() {
			byQuery[q].LastUsedAt = now.UTC()
		}
		out = append(out, *byQuery[q])
	}
	return out
}

// Rank orders the seed queries for the next discovery run. Queries with
// enough evidence and a yield below the floor move to the tail; both the
// kept head and the demoted tail preserve seed order. Queries without
// sufficient evidence keep their seed position.
func (o *Optimizer) Rank(seed []string, stats []model.QueryStat) []string {
	byQuery := make(map[string]model.QueryStat, len(stats))
	for _, s := range stats {
		byQuery[s.Query] = s
	}

	var head, tail []string
	for _, q := range seed {
		if s, ok := byQuery[q]; ok && s.Surfaced >= o.minSurfaced && s.Yield() < o.yieldFloor {
			tail = append(tail, q)
			continue
		}
		head = append(head, q)
	}
	return append(head, tail...)
}
