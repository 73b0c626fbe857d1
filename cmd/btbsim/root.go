package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/btbsim/bpu"
	"github.com/sarchlab/btbsim/recording"
	"github.com/sarchlab/btbsim/scoring"
	"github.com/sarchlab/btbsim/trace"
)

var (
	configPath string
	outputPath string
	tracePath  string
	workload   string
	dbPath     string
	seed       int64

	btbEntries     int
	associativity  int
	rasEntries     int
	tagBits        int
	mispredictRate int
	direction      string
	bhtEntries     int
)

var rootCmd = &cobra.Command{
	Use:   "btbsim",
	Short: "Branch target buffer and return address stack simulator.",
	Long: `btbsim feeds a stream of retired instructions to a simulated ` +
		`branch prediction unit, scores its direction and target ` +
		`predictions and prints the number of dynamically executed ` +
		`branches, their prediction ratios and the unit's internal counters.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		return simulate(config)
	},
}

func init() {
	defaults := bpu.DefaultConfig()

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "",
		"SQLite database that keeps run summaries")

	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "",
		"JSON file with the predictor configuration")
	flags.StringVarP(&outputPath, "output", "o", "btb.out",
		"file to write the report to, - for stdout")
	flags.StringVar(&tracePath, "trace", "",
		"text trace of retired instructions")
	flags.StringVar(&workload, "workload", "",
		fmt.Sprintf("synthetic workload, one of %v", trace.WorkloadNames()))
	flags.Int64Var(&seed, "seed", bpu.DefaultSeed,
		"seed of the random direction predictor")

	flags.IntVar(&btbEntries, "btb", defaults.BTBEntries, "BTB number of entries")
	flags.IntVarP(&associativity, "assoc", "a", defaults.Associativity, "BTB associativity")
	flags.IntVar(&rasEntries, "ras", defaults.RASEntries, "RAS number of entries")
	flags.IntVar(&tagBits, "tag", defaults.TagBits, "size of the BTB tag in bits")
	flags.IntVar(&mispredictRate, "mpr", defaults.MispredictRate,
		"direction misprediction rate in percent")
	flags.StringVar(&direction, "direction", defaults.Direction,
		"direction predictor, random or bimodal")
	flags.IntVar(&bhtEntries, "bht", defaults.BHTEntries,
		"bimodal predictor number of counters")

	rootCmd.MarkFlagsMutuallyExclusive("trace", "workload")

	rootCmd.AddCommand(historyCmd)
}

// resolveConfig loads the JSON configuration, if any, and applies every
// flag the user set explicitly on top of it.
func resolveConfig(cmd *cobra.Command) (*bpu.Config, error) {
	config := bpu.DefaultConfig()
	if configPath != "" {
		var err error
		config, err = bpu.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("btb") {
		config.BTBEntries = btbEntries
	}
	if flags.Changed("assoc") {
		config.Associativity = associativity
	}
	if flags.Changed("ras") {
		config.RASEntries = rasEntries
	}
	if flags.Changed("tag") {
		config.TagBits = tagBits
	}
	if flags.Changed("mpr") {
		config.MispredictRate = mispredictRate
	}
	if flags.Changed("direction") {
		config.Direction = direction
	}
	if flags.Changed("bht") {
		config.BHTEntries = bhtEntries
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// openFeed returns the event source selected on the command line and a
// label naming it.
func openFeed() (trace.Feed, string, func(), error) {
	switch {
	case tracePath != "":
		f, err := os.Open(tracePath)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to open trace: %w", err)
		}
		return trace.NewReader(f), "trace:" + tracePath, func() { f.Close() }, nil
	case workload != "":
		feed, err := trace.Workload(workload)
		if err != nil {
			return nil, "", nil, err
		}
		return feed, "workload:" + workload, func() {}, nil
	default:
		return nil, "", nil, fmt.Errorf("one of --trace or --workload is required")
	}
}

func openOutput() (io.Writer, func() error, error) {
	if outputPath == "" {
		return nil, nil, fmt.Errorf("must have an output file")
	}
	if outputPath == "-" {
		return os.Stdout, func() error { return nil }, nil
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return f, f.Close, nil
}

func simulate(config *bpu.Config) error {
	feed, source, closeFeed, err := openFeed()
	if err != nil {
		return err
	}
	defer closeFeed()

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}

	engine, err := bpu.NewEngine(*config,
		bpu.WithRandomSource(bpu.NewRandomSource(seed)))
	if err != nil {
		closeOut()
		return err
	}

	runID := recording.NewRunID()
	started := time.Now()
	log.Printf("run %s: %s, %d-entry %d-way BTB, %d-entry RAS, %s direction",
		runID, source, config.BTBEntries, config.Associativity,
		config.RASEntries, config.Direction)

	scorer := scoring.NewScorer(engine)
	if err := scorer.Run(feed); err != nil {
		closeOut()
		return err
	}

	if err := scorer.WriteReport(out, runID); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	log.Printf("run %s: %d instructions in %v", runID,
		scorer.Counters().Instructions, time.Since(started))

	if dbPath == "" {
		return nil
	}

	return record(recording.Summary{
		RunID:     runID,
		Source:    source,
		StartedAt: started,
		Config:    engine.Config(),
		Counters:  scorer.Counters(),
		Stats:     engine.Stats(),
	})
}

func record(s recording.Summary) error {
	recorder, err := recording.NewSQLiteRecorder(dbPath)
	if err != nil {
		return err
	}

	if err := recorder.Record(s); err != nil {
		recorder.Close()
		return err
	}
	if err := recorder.Close(); err != nil {
		return err
	}

	log.Printf("run %s: recorded in %s", s.RunID, recorder.Path())

	return nil
}
