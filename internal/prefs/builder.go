// Package prefs assembles the preference model handed to the
// relevance-scoring collaborator.
package prefs

import (
	"sort"
	"time"

	"github.com/scoutworks/jobscout/internal/model"
)

// Builder turns selected term scores into a versioned preference model.
type Builder struct {
	maxTerms int
}

// NewBuilder creates a Builder that caps each preference list at maxTerms.
func NewBuilder(maxTerms int) *Builder {
	return &Builder{maxTerms: maxTerms}
}

// Build produces the next preference model. Preferred terms are ordered
// strongest-signal first, avoided terms strongest-avoidance first, and both
// lists are truncated to the configured cap. The new model's version is
// prev.Version+1 so downstream consumers can detect staleness.
func (b *Builder) Build(preferred, avoided []model.TermScore, prev model.PreferenceModel, latest *model.AccuracySnapshot, now time.Time) model.PreferenceModel {
	preferred = append([]model.TermScore(nil), preferred...)
	avoided = append([]model.TermScore(nil), avoided...)

	sort.Slice(preferred, func(i, j int) bool {
		return less(preferred[i], preferred[j], true)
	})
	sort.Slice(avoided, func(i, j int) bool {
		return less(avoided[i], avoided[j], false)
	})

	if len(preferred) > b.maxTerms {
		preferred = preferred[:b.maxTerms]
	}
	if len(avoided) > b.maxTerms {
		avoided = avoided[:b.maxTerms]
	}

	hint := 0.5
	if latest != nil {
		hint = latest.Precision
	}

	return model.PreferenceModel{
		StronglyPreferred: preferred,
		StronglyAvoided:   avoided,
		PrecisionHint:     hint,
		Version:           prev.Version + 1,
		GeneratedAt:       now.UTC(),
	}
}

// less orders term scores by score (descending for preferred, ascending for
// avoided), breaking ties by observation count descending then term.
func less(a, b model.TermScore, descending bool) bool {
	if a.Score != b.Score {
		if descending {
			return a.Score > b.Score
		}
		return a.Score < b.Score
	}
	if a.Observations != b.Observations {
		return a.Observations > b.Observations
	}
	return a.Term < b.Term
}
