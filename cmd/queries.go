package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scoutworks/jobscout/internal/model"
	"github.com/scoutworks/jobscout/internal/pipeline"
)

var queriesSeedFile string

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Print the seed queries ranked by observed yield",
	Long:  "Orders the seed query list for the next discovery run. Queries whose postings are consistently ignored drop to the tail once there is enough evidence; no query is ever deleted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		seedFile := queriesSeedFile
		if seedFile == "" {
			seedFile = cfg.Queries.SeedFile
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runner := pipeline.NewRunner(st, cfg)
		ranked, err := runner.RankQueries(ctx, seedFile)
		if err != nil {
			return err
		}

		stats, err := st.ListQueryStats(ctx)
		if err != nil {
			return err
		}
		byQuery := make(map[string]model.QueryStat, len(stats))
		for _, s := range stats {
			byQuery[s.Query] = s
		}

		for i, q := range ranked {
			if s, ok := byQuery[q]; ok {
				fmt.Printf("%2d. %s  (surfaced %d, accepted %d, yield %.2f)\n", i+1, q, s.Surfaced, s.Accepted, s.Yield())
				continue
			}
			fmt.Printf("%2d. %s  (no observations yet)\n", i+1, q)
		}
		return nil
	},
}

func init() {
	queriesCmd.Flags().StringVar(&queriesSeedFile, "seed", "", "seed query YAML file (default from config)")
	rootCmd.AddCommand(queriesCmd)
}
