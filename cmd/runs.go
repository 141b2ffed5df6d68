package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/promptgenie/internal/db"
	"github.com/ziadkadry99/promptgenie/internal/indexer"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfg.Ingest.StateDB); err != nil {
			fmt.Println("No ingestion history yet. Run `promptgenie ingest` first.")
			return nil
		}

		database, err := db.Open(cfg.Ingest.StateDB)
		if err != nil {
			return err
		}
		defer database.Close()

		runs, err := indexer.NewHistory(database).Runs(context.Background(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No ingestion runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tSTATUS\tFILES\tSKIPPED\tFAILED\tRECORDS\tLOST")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				shortID(r.ID), r.StartedAt.Local().Format(time.DateTime), r.Status,
				r.FilesIngested, r.FilesSkipped, r.FilesFailed, r.RecordsWritten, r.RecordsLost)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
