package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutworks/jobscout/internal/model"
	"github.com/scoutworks/jobscout/internal/pipeline"
)

var (
	learnFile    string
	learnSession string
	learnShown   int
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Run a learning session over a batch of decisions",
	Long:  "Records the session's decisions, rebuilds the preference model from the full history, folds the session's precision into the accuracy trend, adjusts strictness, and re-ranks discovery queries. All four records commit atomically.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var decisions []model.FeedbackDecision
		if learnFile != "" {
			raw, err := os.ReadFile(learnFile)
			if err != nil {
				return eris.Wrapf(err, "read decisions file %s", learnFile)
			}
			if err := json.Unmarshal(raw, &decisions); err != nil {
				return eris.Wrapf(err, "parse decisions file %s", learnFile)
			}
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runner := pipeline.NewRunner(st, cfg)
		res, err := runner.RunSession(ctx, pipeline.SessionInput{
			SessionID: learnSession,
			Decisions: decisions,
			Shown:     learnShown,
		})
		if err != nil {
			return err
		}

		fields := []zap.Field{
			zap.String("session_id", res.SessionID),
			zap.Int("recorded", res.Recorded),
			zap.Int("skipped", res.Skipped),
			zap.Int64("model_version", res.Model.Version),
			zap.String("strictness", string(res.Strategy.Current)),
		}
		if res.Snapshot != nil {
			fields = append(fields, zap.Float64("precision", res.Snapshot.Precision))
		}
		zap.L().Info("learning session complete", fields...)
		return nil
	},
}

func init() {
	learnCmd.Flags().StringVar(&learnFile, "file", "", "path to decisions JSON file")
	learnCmd.Flags().StringVar(&learnSession, "session", "", "session ID (generated when empty)")
	learnCmd.Flags().IntVar(&learnShown, "shown", 0, "notifications shown this session")
	rootCmd.AddCommand(learnCmd)
}
