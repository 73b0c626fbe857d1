package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/btbsim/trace"
)

var (
	dumpWorkload string
	dumpOutput   string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write a synthetic workload as a text trace.",
	Long: `dump writes the events of a synthetic workload in the text trace ` +
		`format, so they can be edited or fed back with --trace.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dumpTrace(dumpWorkload, dumpOutput, cmd.OutOrStdout())
	},
}

func init() {
	dumpCmd.Flags().StringVar(&dumpWorkload, "workload", "",
		fmt.Sprintf("synthetic workload, one of %v", trace.WorkloadNames()))
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "-",
		"file to write the trace to, - for stdout")
	if err := dumpCmd.MarkFlagRequired("workload"); err != nil {
		log.Panic(err)
	}

	rootCmd.AddCommand(dumpCmd)
}

func dumpTrace(name, path string, stdout io.Writer) error {
	feed, err := trace.Workload(name)
	if err != nil {
		return err
	}

	out := stdout
	closeOut := func() error { return nil }
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		out, closeOut = f, f.Close
	}

	if err := trace.NewWriter(out).WriteAll(feed); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}

	log.Printf("wrote %d events of workload %s to %s", feed.Len(), name, path)

	return nil
}
