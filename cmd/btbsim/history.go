package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/btbsim/recording"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the runs kept in the recording database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbPath == "" {
			return fmt.Errorf("--db is required")
		}

		recorder, err := recording.NewSQLiteRecorder(dbPath)
		if err != nil {
			return err
		}
		defer recorder.Close()

		runs, err := recorder.Runs()
		if err != nil {
			return err
		}

		return printHistory(cmd.OutOrStdout(), runs)
	},
}

func printHistory(w io.Writer, runs []recording.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "RUN\tSOURCE\tBTB\tRAS\tDIRECTION\tBRANCHES\tCORRECT\tTARGET HIT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%s\t%d\t%.2f%%\t%.2f%%\n",
			r.RunID, r.Source,
			r.Config.Sets(), r.Config.Associativity,
			r.Config.RASEntries, r.Config.Direction,
			r.Counters.Branches, r.Counters.Accuracy(), r.Stats.BTBHitRate())
	}

	return tw.Flush()
}
