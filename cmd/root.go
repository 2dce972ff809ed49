package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutworks/jobscout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "jobscout",
	Short: "Adaptive job posting notifier",
	Long:  "Learns your preferences from accept/reject feedback, tunes notification strictness to the observed precision, and steers discovery toward queries that yield postings you actually want.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
