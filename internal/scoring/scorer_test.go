package scoring

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutworks/jobscout/internal/model"
	"github.com/scoutworks/jobscout/pkg/anthropic"
)

// mockClient implements anthropic.Client with a configurable response func.
type mockClient struct {
	respond func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (m *mockClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return m.respond(req)
}

func textResponse(body string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: body}},
	}
}

func testConfig() Config {
	return Config{Model: "claude-haiku-4-5-20251001", MaxConcurrent: 2, RequestsPerSecond: 1000, MaxTextChars: 8000}
}

func TestScoreBatch(t *testing.T) {
	scores := map[string]float64{"Alpha": 0.9, "Beta": 0.3}
	ai := &mockClient{respond: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		for title, score := range scores {
			if strings.Contains(req.Messages[0].Content, title) {
				return textResponse(fmt.Sprintf(`{"score": %v, "reasoning": "matched"}`, score)), nil
			}
		}
		return nil, eris.New("unexpected posting")
	}}

	s := New(ai, testConfig())
	postings := []model.Posting{
		{URL: "u1", Title: "Alpha"},
		{URL: "u2", Title: "Beta"},
	}

	results, err := s.ScoreBatch(context.Background(), postings, model.PreferenceModel{}, model.StrictnessModerate)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "u1", results[0].PostingURL)
	assert.Equal(t, 0.9, results[0].Score)
	assert.True(t, results[0].Notify)
	assert.Equal(t, "u2", results[1].PostingURL)
	assert.False(t, results[1].Notify, "0.3 is below the moderate threshold")
}

func TestScoreBatch_SkipsFailures(t *testing.T) {
	ai := &mockClient{respond: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		if strings.Contains(req.Messages[0].Content, "Broken") {
			return nil, eris.New("api error")
		}
		return textResponse(`{"score": 0.5, "reasoning": "ok"}`), nil
	}}

	s := New(ai, testConfig())
	postings := []model.Posting{
		{URL: "u1", Title: "Broken"},
		{URL: "u2", Title: "Fine"},
	}

	results, err := s.ScoreBatch(context.Background(), postings, model.PreferenceModel{}, model.StrictnessLenient)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "u2", results[0].PostingURL)
}

func TestScoreOne_ParsesWrappedJSONAndClamps(t *testing.T) {
	ai := &mockClient{respond: func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(`Here is my assessment: {"score": 1.7, "reasoning": "great fit"} hope that helps`), nil
	}}

	s := New(ai, testConfig())
	score, reasoning, err := s.scoreOne(context.Background(), model.Posting{URL: "u1"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score, "scores clamp to [0, 1]")
	assert.Equal(t, "great fit", reasoning)
}

func TestScoreOne_RejectsNonJSONResponse(t *testing.T) {
	ai := &mockClient{respond: func(anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse("I cannot score this posting."), nil
	}}

	s := New(ai, testConfig())
	_, _, err := s.scoreOne(context.Background(), model.Posting{URL: "u1"}, "")
	assert.Error(t, err)
}

func TestScoreOne_TruncatesLongText(t *testing.T) {
	var gotLen int
	ai := &mockClient{respond: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		gotLen = len(req.Messages[0].Content)
		return textResponse(`{"score": 0.5, "reasoning": "ok"}`), nil
	}}

	cfg := testConfig()
	cfg.MaxTextChars = 100
	s := New(ai, cfg)

	_, _, err := s.scoreOne(context.Background(), model.Posting{URL: "u1", Text: strings.Repeat("x", 10_000)}, "")
	require.NoError(t, err)
	assert.Less(t, gotLen, 200)
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 0.2, Threshold(model.StrictnessVeryLenient))
	assert.Equal(t, 0.4, Threshold(model.StrictnessLenient))
	assert.Equal(t, 0.6, Threshold(model.StrictnessModerate))
	assert.Equal(t, 0.8, Threshold(model.StrictnessStrict))
	assert.Equal(t, 0.6, Threshold(model.Strictness("bogus")))
}

func TestRenderNotes(t *testing.T) {
	cold := RenderNotes(model.PreferenceModel{}, model.StrictnessModerate)
	assert.Contains(t, cold, "moderate")
	assert.Contains(t, cold, "No learned preferences yet")

	prefs := model.PreferenceModel{
		StronglyPreferred: []model.TermScore{{Term: "graduate", Score: 0.82, Observations: 9}},
		StronglyAvoided:   []model.TermScore{{Term: "sales", Score: 0.08, Observations: 12}},
		PrecisionHint:     0.7,
	}
	warm := RenderNotes(prefs, model.StrictnessStrict)
	assert.Contains(t, warm, "graduate")
	assert.Contains(t, warm, "sales")
	assert.Contains(t, warm, "0.70")
	assert.Contains(t, warm, "strict")
	assert.NotContains(t, warm, "No learned preferences")
}
