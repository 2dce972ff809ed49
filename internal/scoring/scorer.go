// Package scoring rates postings against the learned preference model using
// Claude, honoring the strictness directive published by the strategy
// controller.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/scoutworks/jobscout/internal/model"
	"github.com/scoutworks/jobscout/pkg/anthropic"
)

// systemPrompt frames the scoring task. The learned preference notes are
// appended per run.
const systemPrompt = `You are screening job postings for one specific candidate. Score each posting on a scale of 0.0 to 1.0 for how well it matches the candidate's demonstrated preferences.

Respond with ONLY valid JSON, no other text:
{"score": 0.0, "reasoning": "brief explanation"}`

// scoreResponse is the JSON shape Claude is asked to return.
type scoreResponse struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// Relevance is the scoring outcome for one posting.
type Relevance struct {
	PostingURL string  `json:"posting_url"`
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
	Notify     bool    `json:"notify"`
}

// Config holds the scorer tunables.
type Config struct {
	Model             string
	MaxConcurrent     int
	RequestsPerSecond float64
	MaxTextChars      int
}

// notifyThresholds maps each strictness level to the minimum score that
// triggers a notification.
var notifyThresholds = map[model.Strictness]float64{
	model.StrictnessVeryLenient: 0.2,
	model.StrictnessLenient:     0.4,
	model.StrictnessModerate:    0.6,
	model.StrictnessStrict:      0.8,
}

// Threshold returns the notification score cutoff for a strictness level.
// Unknown levels fall back to moderate.
func Threshold(s model.Strictness) float64 {
	if t, ok := notifyThresholds[s]; ok {
		return t
	}
	return notifyThresholds[model.StrictnessModerate]
}

// Scorer scores postings through the Anthropic API.
type Scorer struct {
	ai      anthropic.Client
	cfg     Config
	limiter *rate.Limiter
}

// New creates a Scorer.
func New(ai anthropic.Client, cfg Config) *Scorer {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Scorer{
		ai:      ai,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// ScoreBatch scores postings concurrently. Individual scoring failures are
// logged and skipped; the batch only fails when the context is canceled.
// Results come back in posting order, failures omitted.
func (s *Scorer) ScoreBatch(ctx context.Context, postings []model.Posting, prefs model.PreferenceModel, strictness model.Strictness) ([]Relevance, error) {
	log := zap.L().With(zap.String("phase", "score"), zap.String("strictness", string(strictness)))
	log.Info("scoring batch", zap.Int("postings", len(postings)))

	notes := RenderNotes(prefs, strictness)
	threshold := Threshold(strictness)

	results := make([]*Relevance, len(postings))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)
	for i, p := range postings {
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}
			score, reasoning, err := s.scoreOne(gctx, p, notes)
			if err != nil {
				log.Debug("scoring failed", zap.String("url", p.URL), zap.Error(err))
				return nil
			}
			mu.Lock()
			results[i] = &Relevance{
				PostingURL: p.URL,
				Score:      score,
				Reasoning:  reasoning,
				Notify:     score >= threshold,
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "score batch")
	}

	out := make([]Relevance, 0, len(postings))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	log.Info("batch complete", zap.Int("scored", len(out)), zap.Int("failed", len(postings)-len(out)))
	return out, nil
}

// scoreOne sends a single posting to Claude and parses the score.
func (s *Scorer) scoreOne(ctx context.Context, p model.Posting, notes string) (float64, string, error) {
	text := p.Text
	if s.cfg.MaxTextChars > 0 && len(text) > s.cfg.MaxTextChars {
		text = text[:s.cfg.MaxTextChars]
	}
	userMsg := fmt.Sprintf("Title: %s\nOrganization: %s\n\n%s", p.Title, p.Org, text)

	resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.cfg.Model,
		MaxTokens: 256,
		System: []anthropic.SystemBlock{
			{Text: systemPrompt + "\n\n" + notes, CacheControl: &anthropic.CacheControl{TTL: "5m"}},
		},
		Messages: []anthropic.Message{{Role: "user", Content: userMsg}},
	})
	if err != nil {
		return 0, "", eris.Wrap(err, "score: claude request")
	}
	resp.Usage.LogCost(s.cfg.Model, "score")

	var text2 string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text2 = block.Text
			break
		}
	}
	if text2 == "" {
		return 0, "", eris.New("score: empty claude response")
	}

	// The model may wrap the JSON in prose; take the outermost object.
	jsonStart := strings.Index(text2, "{")
	jsonEnd := strings.LastIndex(text2, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return 0, "", eris.Errorf("score: no JSON in response: %s", text2)
	}

	var result scoreResponse
	if err := json.Unmarshal([]byte(text2[jsonStart:jsonEnd+1]), &result); err != nil {
		return 0, "", eris.Wrap(err, "score: parse response JSON")
	}

	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 1 {
		result.Score = 1
	}
	return result.Score, result.Reasoning, nil
}
