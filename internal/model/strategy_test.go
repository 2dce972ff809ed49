package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStrictness_TightenClampsAtStrict(t *testing.T) {
	s := StrictnessVeryLenient
	for i := 0; i < 10; i++ {
		s = s.Tighten()
	}
	assert.Equal(t, StrictnessStrict, s)
}

func TestStrictness_RelaxClampsAtVeryLenient(t *testing.T) {
	s := StrictnessStrict
	for i := 0; i < 10; i++ {
		s = s.Relax()
	}
	assert.Equal(t, StrictnessVeryLenient, s)
}

func TestStrictness_Ordering(t *testing.T) {
	assert.Less(t, StrictnessVeryLenient.Level(), StrictnessLenient.Level())
	assert.Less(t, StrictnessLenient.Level(), StrictnessModerate.Level())
	assert.Less(t, StrictnessModerate.Level(), StrictnessStrict.Level())
	assert.Equal(t, -1, Strictness("bogus").Level())
}

func TestValidStrictness(t *testing.T) {
	assert.True(t, ValidStrictness("moderate"))
	assert.True(t, ValidStrictness("very_lenient"))
	assert.False(t, ValidStrictness("extreme"))
}

func TestInitialStrategyState(t *testing.T) {
	now := time.Now()
	st := InitialStrategyState(now)
	assert.Equal(t, StrictnessModerate, st.Current)
	assert.Equal(t, DirectionFlat, st.LastDirection)
	assert.Equal(t, 0, st.ConsecutiveSignals)
	assert.Equal(t, int64(1), st.Version)
}

func TestLatestDecisions_SupersedesEarlier(t *testing.T) {
	decisions := []FeedbackDecision{
		{PostingURL: "https://a", Decision: DecisionReject},
		{PostingURL: "https://b", Decision: DecisionAccept},
		{PostingURL: "https://a", Decision: DecisionAccept},
	}
	latest := LatestDecisions(decisions)
	assert.Equal(t, DecisionAccept, latest["https://a"])
	assert.Equal(t, DecisionAccept, latest["https://b"])
	assert.Len(t, latest, 2)
}

func TestQueryStat_Yield(t *testing.T) {
	assert.Equal(t, 0.0, QueryStat{}.Yield())
	assert.InDelta(t, 0.25, QueryStat{Surfaced: 20, Accepted: 5}.Yield(), 1e-9)
}

func TestValidDecision(t *testing.T) {
	assert.True(t, ValidDecision("accept"))
	assert.True(t, ValidDecision("maybe"))
	assert.True(t, ValidDecision("reject"))
	assert.False(t, ValidDecision("liked"))
}
