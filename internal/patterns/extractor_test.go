package patterns

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutworks/jobscout/internal/model"
)

func TestTerms_TokenizationAndBigrams(t *testing.T) {
	e := New(DefaultConfig())
	p := model.Posting{
		Title: "Graduate ML Engineer",
		Text:  "PyTorch, healthcare. The deep-learning role.",
	}

	terms := e.Terms(p)
	assert.Contains(t, terms, "graduate")
	assert.Contains(t, terms, "engineer")
	assert.Contains(t, terms, "graduate engineer") // "ml" is under three runes, dropped before bigrams
	assert.Contains(t, terms, "pytorch")
	assert.Contains(t, terms, "healthcare")
	assert.Contains(t, terms, "deep")
	assert.Contains(t, terms, "learning")
	assert.NotContains(t, terms, "the")
	assert.NotContains(t, terms, "ml")
}

func TestTerms_DeduplicatesWithinPosting(t *testing.T) {
	e := New(DefaultConfig())
	p := model.Posting{Title: "Research Research Research"}

	terms := e.Terms(p)
	count := 0
	for _, term := range terms {
		if term == "research" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtract_UsesLatestDecisionOnly(t *testing.T) {
	e := New(DefaultConfig())
	postings := []model.Posting{{URL: "u1", Title: "Graduate Role"}}
	decisions := []model.FeedbackDecision{
		{PostingURL: "u1", Decision: model.DecisionReject},
		{PostingURL: "u1", Decision: model.DecisionAccept},
	}

	table := e.Extract(postings, decisions)
	pat := table["graduate"]
	assert.Equal(t, 1, pat.AcceptCount)
	assert.Equal(t, 0, pat.RejectCount)
	assert.Equal(t, 1, pat.Observations())
}

func TestExtract_EmptyHistory(t *testing.T) {
	e := New(DefaultConfig())
	table := e.Extract(nil, nil)
	assert.Empty(t, table)

	preferred, avoided := e.Select(table)
	assert.Empty(t, preferred)
	assert.Empty(t, avoided)
}

func TestExtract_IgnoresDecisionsForUnknownPostings(t *testing.T) {
	e := New(DefaultConfig())
	table := e.Extract(
		[]model.Posting{{URL: "u1", Title: "Graduate Role"}},
		[]model.FeedbackDecision{{PostingURL: "missing", Decision: model.DecisionAccept}},
	)
	assert.Empty(t, table)
}

func TestIncrementalBatchEquivalence(t *testing.T) {
	e := New(DefaultConfig())

	var postings []model.Posting
	titles := []string{
		"Graduate ML Engineer", "Senior Sales Executive", "Graduate Research Scientist",
		"Junior Data Analyst", "Graduate Software Engineer", "Account Manager",
	}
	for i, title := range titles {
		postings = append(postings, model.Posting{
			URL:   fmt.Sprintf("u%d", i),
			Title: title,
			Text:  "python machine learning",
		})
	}

	// Chronological history with corrections mixed in.
	decisions := []model.FeedbackDecision{
		{PostingURL: "u0", Decision: model.DecisionAccept},
		{PostingURL: "u1", Decision: model.DecisionReject},
		{PostingURL: "u2", Decision: model.DecisionMaybe},
		{PostingURL: "u3", Decision: model.DecisionReject},
		{PostingURL: "u2", Decision: model.DecisionAccept}, // correction
		{PostingURL: "u4", Decision: model.DecisionAccept},
		{PostingURL: "u1", Decision: model.DecisionMaybe}, // correction
		{PostingURL: "u5", Decision: model.DecisionReject},
	}

	byURL := make(map[string]model.Posting)
	for _, p := range postings {
		byURL[p.URL] = p
	}

	incremental := make(Table)
	current := make(map[string]model.Decision)
	for _, d := range decisions {
		var old *model.Decision
		if prev, ok := current[d.PostingURL]; ok {
			prevCopy := prev
			old = &prevCopy
		}
		e.Apply(incremental, byURL[d.PostingURL], old, d.Decision)
		current[d.PostingURL] = d.Decision
	}

	batch := e.Extract(postings, decisions)
	require.Equal(t, len(batch), len(incremental))
	for term, pat := range batch {
		assert.Equal(t, pat, incremental[term], "term %q", term)
	}
}

func TestSelect_GraduateScenario(t *testing.T) {
	e := New(DefaultConfig())

	// 8 accepted + 1 rejected postings all containing "graduate".
	var postings []model.Posting
	var decisions []model.FeedbackDecision
	for i := 0; i < 9; i++ {
		url := fmt.Sprintf("u%d", i)
		postings = append(postings, model.Posting{URL: url, Title: fmt.Sprintf("Graduate Opening %d", i)})
		d := model.DecisionAccept
		if i == 8 {
			d = model.DecisionReject
		}
		decisions = append(decisions, model.FeedbackDecision{PostingURL: url, Decision: d})
	}

	table := e.Extract(postings, decisions)
	pat := table["graduate"]
	assert.Equal(t, 9, pat.Observations())
	assert.InDelta(t, 9.0/11.0, pat.Score(1), 1e-9)

	preferred, _ := e.Select(table)
	found := false
	for _, ts := range preferred {
		if ts.Term == "graduate" {
			found = true
			assert.InDelta(t, 9.0/11.0, ts.Score, 1e-9)
			assert.Equal(t, 9, ts.Observations)
		}
	}
	assert.True(t, found, "graduate should be strongly preferred")
}

func TestSelect_DropsSubThresholdAndSparseTerms(t *testing.T) {
	e := New(DefaultConfig())

	table := Table{
		"sparse":  {Term: "sparse", AcceptCount: 2},                  // only 2 observations
		"neutral": {Term: "neutral", AcceptCount: 3, RejectCount: 3}, // score 0.5
		"avoided": {Term: "avoided", RejectCount: 10},                // score 1/12
	}

	preferred, avoided := e.Select(table)
	assert.Empty(t, preferred)
	require.Len(t, avoided, 1)
	assert.Equal(t, "avoided", avoided[0].Term)
}

func TestApply_CorrectionMovesCounts(t *testing.T) {
	e := New(DefaultConfig())
	p := model.Posting{URL: "u1", Title: "Graduate Role"}

	table := make(Table)
	e.Apply(table, p, nil, model.DecisionAccept)
	require.NotEmpty(t, table)

	// A correction that moves the posting accept -> reject keeps counts
	// consistent without leaving stale accept counts behind.
	accept := model.DecisionAccept
	e.Apply(table, p, &accept, model.DecisionReject)
	pat := table["graduate"]
	assert.Equal(t, 0, pat.AcceptCount)
	assert.Equal(t, 1, pat.RejectCount)
}
