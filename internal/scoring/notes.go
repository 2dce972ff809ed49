package scoring

import (
	"fmt"
	"strings"

	"github.com/scoutworks/jobscout/internal/model"
)

// RenderNotes formats the preference model and strictness directive into the
// guidance appended to the scoring prompt. A cold-start model renders neutral
// guidance rather than empty lists.
func RenderNotes(prefs model.PreferenceModel, strictness model.Strictness) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Filtering strictness: %s (notify at score >= %.1f).\n", strictness, Threshold(strictness))

	if prefs.Empty() {
		b.WriteString("No learned preferences yet; judge postings on general early-career fit.\n")
		return b.String()
	}

	if len(prefs.StronglyPreferred) > 0 {
		b.WriteString("\nThe candidate consistently accepts postings mentioning:\n")
		for _, ts := range prefs.StronglyPreferred {
			fmt.Fprintf(&b, "- %s (acceptance %.2f over %d observations)\n", ts.Term, ts.Score, ts.Observations)
		}
	}

	if len(prefs.StronglyAvoided) > 0 {
		b.WriteString("\nThe candidate consistently rejects postings mentioning:\n")
		for _, ts := range prefs.StronglyAvoided {
			fmt.Fprintf(&b, "- %s (acceptance %.2f over %d observations)\n", ts.Term, ts.Score, ts.Observations)
		}
	}

	fmt.Fprintf(&b, "\nRecent notification precision: %.2f.\n", prefs.PrecisionHint)
	return b.String()
}
