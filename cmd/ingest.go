package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutworks/jobscout/internal/model"
)

var (
	ingestFile  string
	ingestQuery string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest discovered postings from a JSON file",
	Long:  "Reads a JSON array of postings and inserts them. Re-ingesting a known URL is a no-op; the first-seen record stays authoritative.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(ingestFile)
		if err != nil {
			return eris.Wrapf(err, "read postings file %s", ingestFile)
		}
		var postings []model.Posting
		if err := json.Unmarshal(raw, &postings); err != nil {
			return eris.Wrapf(err, "parse postings file %s", ingestFile)
		}

		now := time.Now().UTC()
		for i := range postings {
			if postings[i].SourceQuery == "" {
				postings[i].SourceQuery = ingestQuery
			}
			if postings[i].FirstSeenAt.IsZero() {
				postings[i].FirstSeenAt = now
			}
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		inserted, err := st.InsertPostings(ctx, postings)
		if err != nil {
			return eris.Wrap(err, "insert postings")
		}

		zap.L().Info("ingest complete",
			zap.Int("inserted", inserted),
			zap.Int("already_known", len(postings)-inserted),
			zap.String("file", ingestFile),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to postings JSON file (required)")
	ingestCmd.Flags().StringVar(&ingestQuery, "query", "", "source query to attribute postings without one")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}
