package prefs

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutworks/jobscout/internal/model"
)

func TestBuild_OrdersByStrengthOfSignal(t *testing.T) {
	b := NewBuilder(15)

	preferred := []model.TermScore{
		{Term: "remote", Score: 0.8, Observations: 5},
		{Term: "graduate", Score: 0.9, Observations: 12},
		{Term: "python", Score: 0.8, Observations: 9},
	}
	avoided := []model.TermScore{
		{Term: "sales", Score: 0.1, Observations: 8},
		{Term: "executive", Score: 0.05, Observations: 4},
	}

	m := b.Build(preferred, avoided, model.PreferenceModel{}, nil, time.Now())

	require.Len(t, m.StronglyPreferred, 3)
	assert.Equal(t, "graduate", m.StronglyPreferred[0].Term)
	assert.Equal(t, "python", m.StronglyPreferred[1].Term) // tie on score, more observations
	assert.Equal(t, "remote", m.StronglyPreferred[2].Term)

	require.Len(t, m.StronglyAvoided, 2)
	assert.Equal(t, "executive", m.StronglyAvoided[0].Term) // lowest score first
	assert.Equal(t, "sales", m.StronglyAvoided[1].Term)
}

func TestBuild_CapsEachList(t *testing.T) {
	b := NewBuilder(3)

	var preferred []model.TermScore
	for i := 0; i < 10; i++ {
		preferred = append(preferred, model.TermScore{
			Term:         fmt.Sprintf("term%d", i),
			Score:        0.75 + float64(i)*0.01,
			Observations: 5,
		})
	}

	m := b.Build(preferred, nil, model.PreferenceModel{}, nil, time.Now())
	require.Len(t, m.StronglyPreferred, 3)
	assert.Equal(t, "term9", m.StronglyPreferred[0].Term)
	assert.Equal(t, "term7", m.StronglyPreferred[2].Term)
}

func TestBuild_VersionIncrementsFromPrevious(t *testing.T) {
	b := NewBuilder(15)

	m1 := b.Build(nil, nil, model.PreferenceModel{}, nil, time.Now())
	assert.Equal(t, int64(1), m1.Version)

	m2 := b.Build(nil, nil, m1, nil, time.Now())
	assert.Equal(t, int64(2), m2.Version)
}

func TestBuild_PrecisionHint(t *testing.T) {
	b := NewBuilder(15)

	cold := b.Build(nil, nil, model.PreferenceModel{}, nil, time.Now())
	assert.Equal(t, 0.5, cold.PrecisionHint)

	snap := &model.AccuracySnapshot{SessionID: "s1", ShownCount: 10, AcceptedCount: 8, Precision: 0.8}
	warm := b.Build(nil, nil, cold, snap, time.Now())
	assert.Equal(t, 0.8, warm.PrecisionHint)
}

func TestBuild_DoesNotMutateInputs(t *testing.T) {
	b := NewBuilder(15)

	preferred := []model.TermScore{
		{Term: "b", Score: 0.8, Observations: 5},
		{Term: "a", Score: 0.9, Observations: 5},
	}
	_ = b.Build(preferred, nil, model.PreferenceModel{}, nil, time.Now())
	assert.Equal(t, "b", preferred[0].Term)
}
