package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutworks/jobscout/internal/model"
	"github.com/scoutworks/jobscout/internal/scoring"
	"github.com/scoutworks/jobscout/pkg/anthropic"
)

var (
	scoreLimit   int
	scoreAllFlag bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score unreviewed postings against the learned preferences",
	Long:  "Sends unreviewed postings to Claude with the current preference model and strictness directive, and prints the scored results. Postings at or above the strictness threshold are flagged for notification.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key is required (JOBSCOUT_ANTHROPIC_KEY)")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		postings, err := st.ListPostings(ctx)
		if err != nil {
			return err
		}
		decisions, err := st.ListDecisions(ctx, nil)
		if err != nil {
			return err
		}

		// Default to postings nobody has reviewed yet.
		if !scoreAllFlag {
			reviewed := model.LatestDecisions(decisions)
			var unreviewed []model.Posting
			for _, p := range postings {
				if _, ok := reviewed[p.URL]; !ok {
					unreviewed = append(unreviewed, p)
				}
			}
			postings = unreviewed
		}
		if scoreLimit > 0 && len(postings) > scoreLimit {
			postings = postings[:scoreLimit]
		}
		if len(postings) == 0 {
			zap.L().Info("nothing to score")
			return nil
		}

		prefModel, err := st.GetPreferenceModel(ctx)
		if err != nil {
			return err
		}
		if prefModel == nil {
			prefModel = &model.PreferenceModel{}
		}
		strategyState, err := st.GetStrategyState(ctx)
		if err != nil {
			return err
		}
		strictness := model.StrictnessModerate
		if strategyState != nil {
			strictness = strategyState.Current
		}

		scorer := scoring.New(anthropic.NewClient(cfg.Anthropic.Key), scoring.Config{
			Model:             cfg.Anthropic.Model,
			MaxConcurrent:     cfg.Scoring.MaxConcurrent,
			RequestsPerSecond: cfg.Scoring.RequestsPerSecond,
			MaxTextChars:      cfg.Scoring.MaxTextChars,
		})
		results, err := scorer.ScoreBatch(ctx, postings, *prefModel, strictness)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	scoreCmd.Flags().IntVar(&scoreLimit, "limit", 0, "max postings to score (0 = all)")
	scoreCmd.Flags().BoolVar(&scoreAllFlag, "all", false, "score already-reviewed postings too")
	rootCmd.AddCommand(scoreCmd)
}
