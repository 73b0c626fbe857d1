// Package bpu models a branch prediction unit made of a set-associative
// branch target buffer, a bounded return address stack and a pluggable
// direction predictor.
package bpu

import (
	"fmt"
	"strings"
)

// Resolution carries the resolved outcome of a retired control-flow
// instruction back into the predictor.
type Resolution struct {
	// PC is the address of the instruction.
	PC uint64
	// Taken is the actual direction.
	Taken bool
	// Target is the next PC if taken. It is cached even for not-taken
	// branches, so it must always be meaningful.
	Target uint64
	// FallThrough is PC plus the instruction size. For calls it is the
	// return address.
	FallThrough uint64
	// IsCall is true for subroutine calls.
	IsCall bool
	// IsReturn is true for subroutine returns.
	IsReturn bool
	// CorrectDirection is true if the direction was predicted correctly.
	CorrectDirection bool
	// CorrectTarget is true if the target was predicted correctly.
	CorrectTarget bool
}

// Stats holds the internal diagnostic counters of the engine. They never
// influence a prediction.
type Stats struct {
	BTBLookups   uint64
	BTBHits      uint64
	BTBMisses    uint64
	BTBUpdates   uint64
	BTBFills     uint64
	BTBEvictions uint64

	RASPushes     uint64
	RASPops       uint64
	RASOverflows  uint64
	RASUnderflows uint64
	RASPeakDepth  int
}

// BTBHitRate returns the BTB hit rate as a percentage.
func (s Stats) BTBHitRate() float64 {
	if s.BTBLookups == 0 {
		return 0
	}
	return float64(s.BTBHits) / float64(s.BTBLookups) * 100
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithDirectionPredictor replaces the direction predictor selected by the
// configuration.
func WithDirectionPredictor(p DirectionPredictor) EngineOption {
	return func(e *Engine) {
		e.direction = p
	}
}

// WithRandomSource sets the random source used by the random direction
// predictor.
func WithRandomSource(src RandomSource) EngineOption {
	return func(e *Engine) {
		e.random = src
	}
}

// Engine is the branch prediction unit. It answers direction and target
// predictions from its current state; only Update mutates that state.
// The diagnostic counters in Stats are the exception: PredictTarget
// counts BTB lookups, hits and misses. An Engine is not safe for
// concurrent use.
type Engine struct {
	config    Config
	geometry  Geometry
	btb       *BTB
	ras       *ReturnAddressStack
	direction DirectionPredictor
	random    RandomSource

	stats Stats
}

// NewEngine builds an engine from config. The configuration is validated
// and copied; an invalid one yields an error and no engine.
func NewEngine(config Config, opts ...EngineOption) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	geometry, err := NewGeometry(config.Sets(), config.TagBits)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:   config,
		geometry: geometry,
		btb:      NewBTB(config.Sets(), config.Associativity),
		ras:      NewReturnAddressStack(config.RASEntries),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.direction == nil {
		e.direction, err = newDirectionPredictor(config, e.random)
		if err != nil {
			return nil, err
		}
	}

	return e, nil
}

func newDirectionPredictor(
	config Config,
	src RandomSource,
) (DirectionPredictor, error) {
	switch config.Direction {
	case DirectionBimodal:
		return NewBimodalPredictor(config.BHTEntries)
	default:
		return NewRandomMispredictor(config.MispredictRate, src)
	}
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.config
}

// PredictDirection predicts whether the instruction at pc is taken.
func (e *Engine) PredictDirection(pc uint64, isControlFlow, actualTaken bool) bool {
	return e.direction.PredictDirection(pc, isControlFlow, actualTaken)
}

// PredictTarget predicts the next PC after the instruction at pc, given
// the predicted direction. A not-taken prediction or a BTB miss yields
// fallThrough.
func (e *Engine) PredictTarget(pc, fallThrough uint64, predictedTaken bool) uint64 {
	if !predictedTaken {
		return fallThrough
	}

	set, tag := e.geometry.Index(pc)
	e.stats.BTBLookups++

	entry, found := e.btb.Lookup(set, tag)
	if !found {
		e.stats.BTBMisses++
		return fallThrough
	}
	e.stats.BTBHits++

	if entry.Reserved {
		if addr, ok := e.ras.Peek(); ok {
			return addr
		}
		return fallThrough
	}

	return entry.Target
}

// Update trains the engine with the resolved outcome of a control-flow
// instruction.
func (e *Engine) Update(r Resolution) {
	if r.IsCall {
		e.stats.RASPushes++
		if e.ras.Push(r.FallThrough) {
			e.stats.RASOverflows++
		}
		if e.ras.Len() > e.stats.RASPeakDepth {
			e.stats.RASPeakDepth = e.ras.Len()
		}
	} else if r.IsReturn {
		if _, ok := e.ras.Pop(); ok {
			e.stats.RASPops++
		} else {
			e.stats.RASUnderflows++
		}
	}

	e.direction.Train(r.PC, r.Taken)

	set, tag := e.geometry.Index(r.PC)
	switch e.btb.Upsert(set, tag, r.Target) {
	case UpsertUpdated:
		e.stats.BTBUpdates++
	case UpsertFilled:
		e.stats.BTBFills++
	case UpsertEvicted:
		e.stats.BTBEvictions++
	}
}

// RAS returns the addresses currently on the return address stack, most
// recent first.
func (e *Engine) RAS() []uint64 {
	return e.ras.Entries()
}

// Stats returns a copy of the diagnostic counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// ReportCounters formats the diagnostic counters for the text report.
func (e *Engine) ReportCounters() string {
	s := e.stats
	var b strings.Builder

	fmt.Fprintf(&b, "BTB (%d sets x %d ways, %d tag bits):\n",
		e.btb.Sets(), e.btb.Ways(), e.config.TagBits)
	fmt.Fprintf(&b, " lookups: %d\n", s.BTBLookups)
	fmt.Fprintf(&b, " hits: %d(%.2f%%)\n", s.BTBHits, s.BTBHitRate())
	fmt.Fprintf(&b, " misses: %d\n", s.BTBMisses)
	fmt.Fprintf(&b, " in-place updates: %d\n", s.BTBUpdates)
	fmt.Fprintf(&b, " cold fills: %d\n", s.BTBFills)
	fmt.Fprintf(&b, " evictions: %d\n", s.BTBEvictions)
	fmt.Fprintf(&b, "RAS (%d entries):\n", e.ras.Cap())
	fmt.Fprintf(&b, " pushes: %d\n", s.RASPushes)
	fmt.Fprintf(&b, " pops: %d\n", s.RASPops)
	fmt.Fprintf(&b, " overflows: %d\n", s.RASOverflows)
	fmt.Fprintf(&b, " underflows: %d\n", s.RASUnderflows)
	fmt.Fprintf(&b, " peak depth: %d\n", s.RASPeakDepth)

	switch p := e.direction.(type) {
	case *RandomMispredictor:
		fmt.Fprintf(&b, "Direction: random, %d%% mispredicted\n", p.Rate())
	case *BimodalPredictor:
		fmt.Fprintf(&b, "Direction: bimodal, %d counters\n", p.Size())
	}

	return b.String()
}

// Reset clears the BTB, the RAS and the diagnostic counters.
func (e *Engine) Reset() {
	e.btb.Reset()
	e.ras.Reset()
	e.stats = Stats{}
	if r, ok := e.direction.(interface{ Reset() }); ok {
		r.Reset()
	}
}
