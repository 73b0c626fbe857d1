package bpu

import (
	"fmt"
	"math/bits"
)

// AddrWidth is the assumed width of a virtual address in bits.
const AddrWidth = 48

// Geometry maps a branch address to the BTB set it lives in and the tag
// that identifies it inside that set.
type Geometry struct {
	sets     int
	setMask  uint64
	tagShift uint
}

// NewGeometry builds the addressing scheme for a BTB with the given number
// of sets and tag width. sets must be a power of two.
func NewGeometry(sets, tagBits int) (Geometry, error) {
	if !isPowerOfTwo(sets) {
		return Geometry{}, fmt.Errorf("%w: number of sets (%d) must be a power of 2",
			ErrInvalidConfig, sets)
	}
	if tagBits < 1 || tagBits > AddrWidth {
		return Geometry{}, fmt.Errorf("%w: tag_bits must be in [1, %d]",
			ErrInvalidConfig, AddrWidth)
	}

	setBits := bits.TrailingZeros(uint(sets))

	return Geometry{
		sets:     sets,
		setMask:  uint64(sets - 1),
		tagShift: uint(AddrWidth + setBits - tagBits),
	}, nil
}

// Sets returns the number of sets addressed by the geometry.
func (g Geometry) Sets() int {
	return g.sets
}

// Index returns the set index and the tag of pc.
func (g Geometry) Index(pc uint64) (set int, tag uint64) {
	return int(pc & g.setMask), pc >> g.tagShift
}
