package bpu

import (
	"fmt"
	"math/rand"
)

// DefaultSeed seeds the random source when none is supplied.
const DefaultSeed = 1

// A DirectionPredictor guesses whether an instruction is taken.
type DirectionPredictor interface {
	// PredictDirection returns the predicted direction of the instruction
	// at pc. Instructions that are not control flow are always predicted
	// with their actual direction so they never look like phantom
	// branches.
	PredictDirection(pc uint64, isControlFlow, actualTaken bool) bool

	// Train tells the predictor the resolved direction of a control-flow
	// instruction.
	Train(pc uint64, taken bool)
}

// A RandomSource draws uniformly distributed non-negative integers in
// [0, 1<<63). *rand.Rand satisfies it.
type RandomSource interface {
	Int63() int64
}

// NewRandomSource returns a math/rand generator seeded with seed.
func NewRandomSource(seed int64) RandomSource {
	return rand.New(rand.NewSource(seed))
}

// percentLimit is the largest multiple of 100 not above 1<<63.
const percentLimit = uint64(1<<63) / 100 * 100

// UniformPercent draws an integer in [0, 100) from src. Draws at or above
// the largest multiple of 100 in the source range are discarded so every
// value is equally likely.
func UniformPercent(src RandomSource) int {
	for {
		r := uint64(src.Int63())
		if r < percentLimit {
			return int(r % 100)
		}
	}
}

// RandomMispredictor is not a real predictor. It knows the actual outcome
// and flips it for a configured percentage of control-flow instructions.
type RandomMispredictor struct {
	rate int
	src  RandomSource
}

// NewRandomMispredictor creates a predictor that mispredicts rate percent
// of control-flow instructions.
func NewRandomMispredictor(rate int, src RandomSource) (*RandomMispredictor, error) {
	if rate < 0 || rate > 100 {
		return nil, fmt.Errorf("%w: mispredict_rate must be in [0, 100]", ErrInvalidConfig)
	}
	if src == nil {
		src = NewRandomSource(DefaultSeed)
	}

	return &RandomMispredictor{rate: rate, src: src}, nil
}

// Rate returns the configured misprediction percentage.
func (p *RandomMispredictor) Rate() int {
	return p.rate
}

// PredictDirection implements DirectionPredictor.
func (p *RandomMispredictor) PredictDirection(
	pc uint64,
	isControlFlow, actualTaken bool,
) bool {
	if !isControlFlow {
		return actualTaken
	}

	if UniformPercent(p.src) >= 100-p.rate {
		return !actualTaken
	}

	return actualTaken
}

// Train does nothing; the random model keeps no history.
func (p *RandomMispredictor) Train(pc uint64, taken bool) {}
