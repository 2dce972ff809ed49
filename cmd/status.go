package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scoutworks/jobscout/internal/accuracy"
	"github.com/scoutworks/jobscout/internal/deadlines"
	"github.com/scoutworks/jobscout/internal/model"
)

// statusReport is the JSON shape printed by the status command.
type statusReport struct {
	Model          *model.PreferenceModel `json:"preference_model"`
	Strategy       *model.StrategyState   `json:"strategy"`
	Sessions       int                    `json:"sessions"`
	Trend          float64                `json:"precision_trend"`
	Direction      model.Direction        `json:"direction"`
	QueryStats     []model.QueryStat      `json:"query_stats,omitempty"`
	DeadlineAlerts []deadlines.Alert      `json:"deadline_alerts,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current learned state as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		prefModel, err := st.GetPreferenceModel(ctx)
		if err != nil {
			return err
		}
		strategyState, err := st.GetStrategyState(ctx)
		if err != nil {
			return err
		}
		snaps, err := st.ListAccuracySnapshots(ctx)
		if err != nil {
			return err
		}
		stats, err := st.ListQueryStats(ctx)
		if err != nil {
			return err
		}
		postings, err := st.ListPostings(ctx)
		if err != nil {
			return err
		}
		decisions, err := st.ListDecisions(ctx, nil)
		if err != nil {
			return err
		}

		tracker := accuracy.NewTracker(cfg.Accuracy.TrendWindow, cfg.Accuracy.DeadBand)
		monitor := deadlines.NewMonitor(cfg.Deadlines.WarnDays)
		report := statusReport{
			Model:          prefModel,
			Strategy:       strategyState,
			Sessions:       len(snaps),
			Trend:          tracker.Trend(snaps),
			Direction:      tracker.Direction(snaps),
			QueryStats:     stats,
			DeadlineAlerts: monitor.Check(postings, decisions, time.Now().UTC()),
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
