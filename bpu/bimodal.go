package bpu

import "fmt"

// BimodalPredictor predicts direction with a table of 2-bit saturating
// counters indexed by PC.
type BimodalPredictor struct {
	// Branch History Table (BHT) - 2-bit saturating counters
	// States: 0=Strongly Not Taken, 1=Weakly Not Taken,
	//         2=Weakly Taken, 3=Strongly Taken
	bht     []uint8
	bhtSize uint32
}

// NewBimodalPredictor creates a predictor with size counters. size must be
// a power of 2.
func NewBimodalPredictor(size int) (*BimodalPredictor, error) {
	if !isPowerOfTwo(size) {
		return nil, fmt.Errorf("%w: bht_entries (%d) must be a power of 2",
			ErrInvalidConfig, size)
	}

	bp := &BimodalPredictor{
		bht:     make([]uint8, size),
		bhtSize: uint32(size),
	}
	bp.Reset()

	return bp, nil
}

// Size returns the number of counters.
func (bp *BimodalPredictor) Size() int {
	return int(bp.bhtSize)
}

// bhtIndex computes the BHT index for a given PC.
func (bp *BimodalPredictor) bhtIndex(pc uint64) uint32 {
	// Use lower bits of PC (excluding alignment bits)
	return uint32((pc >> 2) & uint64(bp.bhtSize-1))
}

// PredictDirection implements DirectionPredictor.
func (bp *BimodalPredictor) PredictDirection(
	pc uint64,
	isControlFlow, actualTaken bool,
) bool {
	if !isControlFlow {
		return actualTaken
	}

	return bp.bht[bp.bhtIndex(pc)] >= 2
}

// Train moves the counter of pc one step towards the resolved direction.
func (bp *BimodalPredictor) Train(pc uint64, taken bool) {
	idx := bp.bhtIndex(pc)
	counter := bp.bht[idx]

	if taken {
		if counter < 3 {
			bp.bht[idx] = counter + 1
		}
	} else {
		if counter > 0 {
			bp.bht[idx] = counter - 1
		}
	}
}

// Reset puts every counter back to weakly taken.
func (bp *BimodalPredictor) Reset() {
	for i := range bp.bht {
		bp.bht[i] = 2
	}
}
