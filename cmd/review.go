package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutworks/jobscout/internal/feedback"
	"github.com/scoutworks/jobscout/internal/model"
)

var (
	reviewURL      string
	reviewDecision string
	reviewSession  string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Record one review decision on a posting",
	Long:  "Appends an accept, maybe, or reject decision. Reviewing the same posting again supersedes the earlier decision; the history keeps both.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		svc := feedback.NewService(st)
		if err := svc.Record(ctx, model.FeedbackDecision{
			PostingURL: reviewURL,
			Decision:   model.Decision(reviewDecision),
			SessionID:  reviewSession,
		}); err != nil {
			return err
		}

		zap.L().Info("decision recorded",
			zap.String("url", reviewURL),
			zap.String("decision", reviewDecision),
		)
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewURL, "url", "", "posting URL (required)")
	reviewCmd.Flags().StringVar(&reviewDecision, "decision", "", "accept, maybe, or reject (required)")
	reviewCmd.Flags().StringVar(&reviewSession, "session", "", "session ID to group decisions under")
	_ = reviewCmd.MarkFlagRequired("url")
	_ = reviewCmd.MarkFlagRequired("decision")
	rootCmd.AddCommand(reviewCmd)
}
