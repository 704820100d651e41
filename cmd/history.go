package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var historyLimit int

func validateHistoryLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", limit)
	}
	return nil
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the most recent agent runs from the audit database",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateHistoryLimit(historyLimit)
	},
	Run: func(cmd *cobra.Command, args []string) {

		commonSetUp()

		if appCfg.Database.Source == "" {
			log.Fatal().Msg("No database configured; set DATABASE_URL or database.source")
		}

		runDB := openRunDB()
		defer runDB.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		runs, err := runDB.RecentRuns(ctx, historyLimit)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list agent runs")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tAGENT\tTHREAD\tSTATUS\tMESSAGES\tDURATION\tNOTE")
		for _, run := range runs {
			note := run.Warning
			if run.Error != "" {
				note = run.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				run.StartedAt.Format(time.RFC3339), run.AgentID, run.ThreadID, run.Status,
				run.MessageCount, time.Duration(run.DurationMs)*time.Millisecond, note)
		}
		if err := w.Flush(); err != nil {
			log.Fatal().Err(err).Msg("Failed to write agent runs")
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
}
