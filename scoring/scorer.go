// Package scoring drives a branch prediction unit with a trace and keeps
// the global accuracy counters.
package scoring

import (
	"fmt"
	"io"

	"github.com/sarchlab/btbsim/bpu"
	"github.com/sarchlab/btbsim/trace"
)

// A Predictor answers direction and target predictions and learns from
// resolved control-flow instructions. *bpu.Engine is a Predictor.
type Predictor interface {
	PredictDirection(pc uint64, isControlFlow, actualTaken bool) bool
	PredictTarget(pc, fallThrough uint64, predictedTaken bool) uint64
	Update(r bpu.Resolution)
	ReportCounters() string
}

// Counters are the accuracy counters of a run. Every count except
// Instructions only includes control-flow instructions.
type Counters struct {
	Instructions     uint64
	Branches         uint64
	Taken            uint64
	CorrectBoth      uint64
	CorrectDirection uint64
	CorrectTarget    uint64
}

func percent(n, of uint64) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) * 100 / float64(of)
}

// TakenRate returns the percentage of branches that were taken.
func (c Counters) TakenRate() float64 {
	return percent(c.Taken, c.Branches)
}

// Accuracy returns the percentage of branches predicted right on both
// direction and target.
func (c Counters) Accuracy() float64 {
	return percent(c.CorrectBoth, c.Branches)
}

// DirectionAccuracy returns the percentage of branches whose direction was
// predicted right.
func (c Counters) DirectionAccuracy() float64 {
	return percent(c.CorrectDirection, c.Branches)
}

// TargetAccuracy returns the percentage of branches whose target was
// predicted right.
func (c Counters) TargetAccuracy() float64 {
	return percent(c.CorrectTarget, c.Branches)
}

// Outcome is the verdict on a single event.
type Outcome struct {
	PredictedTaken   bool
	PredictedTarget  uint64
	CorrectDirection bool
	CorrectTarget    bool
}

// Scorer feeds events to a predictor and scores its predictions.
type Scorer struct {
	predictor Predictor
	counters  Counters
}

// NewScorer creates a scorer for predictor.
func NewScorer(predictor Predictor) *Scorer {
	return &Scorer{predictor: predictor}
}

// Counters returns a copy of the accuracy counters.
func (s *Scorer) Counters() Counters {
	return s.counters
}

// Process predicts e, scores the prediction and, for control-flow
// instructions, updates the predictor with the actual outcome.
func (s *Scorer) Process(e trace.Event) Outcome {
	fallThrough := e.FallThrough()

	var o Outcome
	o.PredictedTaken = s.predictor.PredictDirection(e.PC, e.IsControlFlow, e.Taken)
	o.PredictedTarget = s.predictor.PredictTarget(e.PC, fallThrough, o.PredictedTaken)

	o.CorrectDirection = o.PredictedTaken == e.Taken
	if e.Taken {
		o.CorrectTarget = o.PredictedTarget == e.Target
	} else {
		o.CorrectTarget = o.PredictedTarget == fallThrough
	}

	s.counters.Instructions++
	if !e.IsControlFlow {
		return o
	}

	s.counters.Branches++
	if e.Taken {
		s.counters.Taken++
	}
	if o.CorrectDirection {
		s.counters.CorrectDirection++
	}
	if o.CorrectTarget {
		s.counters.CorrectTarget++
	}
	if o.CorrectDirection && o.CorrectTarget {
		s.counters.CorrectBoth++
	}

	s.predictor.Update(bpu.Resolution{
		PC:               e.PC,
		Taken:            e.Taken,
		Target:           e.Target,
		FallThrough:      fallThrough,
		IsCall:           e.IsCall,
		IsReturn:         e.IsReturn,
		CorrectDirection: o.CorrectDirection,
		CorrectTarget:    o.CorrectTarget,
	})

	return o
}

// Run processes every event of feed.
func (s *Scorer) Run(feed trace.Feed) error {
	for {
		e, err := feed.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event %d: %w",
				s.counters.Instructions+1, err)
		}

		s.Process(e)
	}
}

const reportRule = "==================================================="

// WriteReport writes the accuracy report followed by the predictor's own
// counters. runID is printed when not empty.
func (s *Scorer) WriteReport(w io.Writer, runID string) error {
	c := s.counters
	ew := &errWriter{w: w}

	ew.printf("%s\n", reportRule)
	ew.printf("This application is instrumented by btbsim\n")
	if runID != "" {
		ew.printf("Run: %s\n", runID)
	}
	ew.printf("Instructions: %d\n", c.Instructions)
	ew.printf("Branches: %d\n", c.Branches)
	ew.printf(" taken: %d(%.2f%%)\n", c.Taken, c.TakenRate())
	ew.printf(" Predicted (direction & target): %d(%.2f%%)\n",
		c.CorrectBoth, c.Accuracy())
	ew.printf(" Predicted direction: %d(%.2f%%)\n",
		c.CorrectDirection, c.DirectionAccuracy())
	ew.printf(" Predicted target: %d(%.2f%%)\n",
		c.CorrectTarget, c.TargetAccuracy())

	if extra := s.predictor.ReportCounters(); extra != "" {
		ew.printf("%s", extra)
	}

	ew.printf("%s\n", reportRule)

	if ew.err != nil {
		return fmt.Errorf("failed to write report: %w", ew.err)
	}

	return nil
}

// errWriter keeps the first write error and ignores later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
