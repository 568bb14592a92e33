package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/feastly/feastly/internal/server"
	"github.com/feastly/feastly/pkg/database"
	"github.com/feastly/feastly/pkg/queue"
)

var queueWorkers int

// feastly queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Consume the job queue without serving HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Work(queueWorkers)
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkers, "workers", "w", 0, "Concurrent workers (default QUEUE_WORKERS)")
}

var failedLimit int

// feastly queue:failed
var queueFailedCmd = &cobra.Command{
	Use:   "queue:failed",
	Short: "List jobs that exhausted their retries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		rows, err := queue.NewGormStore(database.DB).Recent(cmd.Context(), failedLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(out, "No failed jobs.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tATTEMPTS\tFAILED AT\tERROR")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", r.ID, r.JobType, r.Attempts, r.FailedAt.Format(time.RFC3339), r.Error)
		}
		return w.Flush()
	},
}

func init() {
	queueFailedCmd.Flags().IntVarP(&failedLimit, "limit", "n", 20, "Rows to show")
}
