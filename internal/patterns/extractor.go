// Package patterns mines the feedback history for terms statistically
// associated with acceptance or rejection.
package patterns

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/scoutworks/jobscout/internal/model"
)

// Config holds the extraction tunables.
type Config struct {
	Alpha              float64
	PreferredThreshold float64
	AvoidedThreshold   float64
	MinObservations    int
}

// DefaultConfig returns the standard extraction parameters.
func DefaultConfig() Config {
	return Config{
		Alpha:              1,
		PreferredThreshold: 0.75,
		AvoidedThreshold:   0.15,
		MinObservations:    3,
	}
}

// Table maps a normalized term to its accumulated pattern counts.
type Table map[string]model.Pattern

// stopwords are excluded from term extraction.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "are": true, "from": true, "will": true, "have": true,
	"has": true, "was": true, "were": true, "but": true, "its": true,
	"their": true, "about": true, "into": true, "more": true, "other": true,
	"some": true, "such": true, "than": true, "you": true, "your": true,
	"per": true, "our": true, "all": true, "can": true, "not": true,
}

// Extractor derives pattern counts from postings and their review decisions.
type Extractor struct {
	cfg    Config
	folder cases.Caser
}

// New creates an Extractor with the given config.
func New(cfg Config) *Extractor {
	return &Extractor{cfg: cfg, folder: cases.Fold()}
}

// Extract recomputes the full pattern table from scratch. Only the latest
// decision per posting counts; superseded decisions are ignored. Given the
// same history the output is identical, with no randomness involved.
func (e *Extractor) Extract(postings []model.Posting, decisions []model.FeedbackDecision) Table {
	latest := model.LatestDecisions(decisions)

	byURL := make(map[string]model.Posting, len(postings))
	for _, p := range postings {
		byURL[p.URL] = p
	}

	table := make(Table)
	for url, decision := range latest {
		posting, ok := byURL[url]
		if !ok {
			continue
		}
		for _, term := range e.Terms(posting) {
			pat := table[term]
			pat.Term = term
			bump(&pat, decision, +1)
			table[term] = pat
		}
	}
	return table
}

// Apply incrementally updates the table for one posting whose authoritative
// decision changed from old (nil when first reviewed) to next. Applying all
// decisions in chronological order yields the same table as Extract.
func (e *Extractor) Apply(table Table, posting model.Posting, old *model.Decision, next model.Decision) {
	for _, term := range e.Terms(posting) {
		pat := table[term]
		pat.Term = term
		if old != nil {
			bump(&pat, *old, -1)
		}
		bump(&pat, next, +1)
		if pat.AcceptCount == 0 && pat.RejectCount == 0 && pat.MaybeCount == 0 {
			delete(table, term)
			continue
		}
		table[term] = pat
	}
}

func bump(pat *model.Pattern, decision model.Decision, delta int) {
	switch decision {
	case model.DecisionAccept:
		pat.AcceptCount += delta
	case model.DecisionReject:
		pat.RejectCount += delta
	case model.DecisionMaybe:
		pat.MaybeCount += delta
	}
}

// Select partitions the table into strongly preferred and strongly avoided
// term scores. Sub-threshold terms are dropped entirely; the lists are
// unsorted (the model builder orders them).
func (e *Extractor) Select(table Table) (preferred, avoided []model.TermScore) {
	for term, pat := range table {
		obs := pat.Observations()
		if obs < e.cfg.MinObservations {
			continue
		}
		score := pat.Score(e.cfg.Alpha)
		ts := model.TermScore{Term: term, Score: score, Observations: obs}
		switch {
		case score >= e.cfg.PreferredThreshold:
			preferred = append(preferred, ts)
		case score <= e.cfg.AvoidedThreshold:
			avoided = append(avoided, ts)
		}
	}
	return preferred, avoided
}

// Terms tokenizes a posting's salient fields into normalized terms: case-
// folded words of three or more runes from title and text, minus stopwords,
// plus bigrams over adjacent title words. Each term appears at most once per
// posting so a repeated word still counts one observation.
func (e *Extractor) Terms(posting model.Posting) []string {
	seen := make(map[string]bool)
	var terms []string

	add := func(term string) {
		if !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	}

	titleWords := e.tokenize(posting.Title)
	for _, w := range titleWords {
		add(w)
	}
	for i := 0; i+1 < len(titleWords); i++ {
		add(titleWords[i] + " " + titleWords[i+1])
	}
	for _, w := range e.tokenize(posting.Text) {
		add(w)
	}
	return terms
}

// tokenize splits s on non-letter, non-digit runes and keeps folded words of
// three or more runes that are not stopwords.
func (e *Extractor) tokenize(s string) []string {
	fields := strings.FieldsFunc(e.folder.String(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	words := fields[:0]
	for _, w := range fields {
		if len([]rune(w)) < 3 || stopwords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}
