package main

import (
	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect processing runs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List processing runs, including interrupted ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			runs, err := store.GetRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				cmd.Println("No runs recorded.")
				return nil
			}

			for _, run := range runs {
				finished := "running"
				if run.FinishedAt != nil {
					finished = run.FinishedAt.Format("2006-01-02 15:04:05")
				}
				cmd.Printf("%-36s %-12s started=%s finished=%s processed=%d flagged=%d duplicates=%d\n",
					run.ID, run.Status,
					run.StartedAt.Format("2006-01-02 15:04:05"), finished,
					run.Processed, run.Flagged, run.Duplicates)
			}
			return nil
		},
	}

	list.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	cmd.AddCommand(list)
	return cmd
}
