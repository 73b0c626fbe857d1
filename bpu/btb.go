package bpu

import (
	"log"
	"math/bits"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Entry is the observable content of one BTB way.
type Entry struct {
	Tag    uint64
	Valid  bool
	Target uint64

	// Reserved marks an entry whose target should come from the return
	// address stack. No update path sets it.
	Reserved bool
}

// UpsertOutcome tells how BTB.Upsert placed an entry.
type UpsertOutcome int

// Possible Upsert outcomes.
const (
	// UpsertUpdated means a resident entry with the same tag got a new
	// target.
	UpsertUpdated UpsertOutcome = iota
	// UpsertFilled means the entry went into an invalid way.
	UpsertFilled
	// UpsertEvicted means the way under the replacement cursor was
	// overwritten.
	UpsertEvicted
)

// BTB is a set-associative branch target buffer. Tag and valid state live
// in an Akita cache directory; targets and reserved flags are kept in
// side arrays indexed by set and way.
type BTB struct {
	sets int
	ways int

	// tags must stay below 1<<tagWidth so the folded directory address
	// cannot overflow
	tagWidth uint

	directory    *akitacache.DirectoryImpl
	victimFinder *roundRobinVictimFinder

	// indexed by (setID * ways + wayID)
	targets  []uint64
	reserved []bool
}

// NewBTB creates an empty BTB with the given number of sets and ways.
func NewBTB(sets, ways int) *BTB {
	if !isPowerOfTwo(sets) || ways <= 0 {
		log.Panicf("invalid BTB shape: %d sets x %d ways", sets, ways)
	}

	vf := newRoundRobinVictimFinder(sets, ways)

	return &BTB{
		sets:     sets,
		ways:     ways,
		tagWidth: 64 - uint(bits.TrailingZeros(uint(sets))),

		// A block size of 1 makes the directory set index equal to the
		// directory address modulo the number of sets.
		directory:    akitacache.NewDirectory(sets, ways, 1, vf),
		victimFinder: vf,
		targets:      make([]uint64, sets*ways),
		reserved:     make([]bool, sets*ways),
	}
}

// Sets returns the number of sets.
func (b *BTB) Sets() int {
	return b.sets
}

// Ways returns the associativity.
func (b *BTB) Ways() int {
	return b.ways
}

// MaxTag returns the largest tag the BTB can hold.
func (b *BTB) MaxTag() uint64 {
	return ^uint64(0) >> (64 - b.tagWidth)
}

// directoryAddr folds a (set, tag) pair into the single address the
// directory is keyed by. The directory recovers set from the low bits and
// compares the whole value as its tag, so two branches share a block iff
// they share both set and tag.
func (b *BTB) directoryAddr(set int, tag uint64) uint64 {
	return tag*uint64(b.sets) + uint64(set)
}

func (b *BTB) blockIndex(block *akitacache.Block) int {
	return block.SetID*b.ways + block.WayID
}

func (b *BTB) checkSet(set int) {
	if set < 0 || set >= b.sets {
		log.Panicf("BTB set %d out of range [0, %d)", set, b.sets)
	}
}

func (b *BTB) checkTag(tag uint64) {
	if tag > b.MaxTag() {
		log.Panicf("BTB tag %#x wider than %d bits", tag, b.tagWidth)
	}
}

// Lookup searches set for a valid entry carrying tag. Tags above MaxTag
// panic.
func (b *BTB) Lookup(set int, tag uint64) (Entry, bool) {
	b.checkSet(set)
	b.checkTag(tag)

	block := b.directory.Lookup(0, b.directoryAddr(set, tag))
	if block == nil || !block.IsValid {
		return Entry{}, false
	}

	return b.entry(block, tag), true
}

// Upsert records target for the branch identified by (set, tag). A
// resident entry is updated in place; otherwise an invalid way is filled;
// otherwise the way under the set's replacement cursor is overwritten and
// the cursor advances.
func (b *BTB) Upsert(set int, tag uint64, target uint64) UpsertOutcome {
	b.checkSet(set)
	b.checkTag(tag)

	addr := b.directoryAddr(set, tag)

	block := b.directory.Lookup(0, addr)
	if block != nil && block.IsValid {
		b.targets[b.blockIndex(block)] = target
		return UpsertUpdated
	}

	outcome := UpsertFilled
	victim := b.directory.FindVictim(addr)
	if victim == nil {
		log.Panicf("BTB set %d returned no victim", set)
	}
	if victim.IsValid {
		outcome = UpsertEvicted
	}

	victim.Tag = addr
	victim.IsValid = true
	b.targets[b.blockIndex(victim)] = target

	return outcome
}

// Entry returns the content of a single way.
func (b *BTB) Entry(set, way int) Entry {
	b.checkSet(set)

	block := b.directory.GetSets()[set].Blocks[way]

	return b.entry(block, block.Tag/uint64(b.sets))
}

func (b *BTB) entry(block *akitacache.Block, tag uint64) Entry {
	idx := b.blockIndex(block)

	return Entry{
		Tag:      tag,
		Valid:    block.IsValid,
		Target:   b.targets[idx],
		Reserved: b.reserved[idx],
	}
}

// Cursor returns the way the next eviction in set will overwrite.
func (b *BTB) Cursor(set int) int {
	b.checkSet(set)

	return b.victimFinder.cursors[set]
}

// ValidEntries returns the number of valid ways in set.
func (b *BTB) ValidEntries(set int) int {
	b.checkSet(set)

	n := 0
	for _, block := range b.directory.GetSets()[set].Blocks {
		if block.IsValid {
			n++
		}
	}

	return n
}

// Reset invalidates every entry and rewinds all replacement cursors.
func (b *BTB) Reset() {
	b.directory.Reset()
	b.victimFinder.reset()
	for i := range b.targets {
		b.targets[i] = 0
		b.reserved[i] = false
	}
}

// roundRobinVictimFinder picks the first invalid way of a set, or, when
// the set is full, the way under the set's cursor. The cursor only moves
// when a valid way is chosen.
type roundRobinVictimFinder struct {
	ways    int
	cursors []int
}

func newRoundRobinVictimFinder(sets, ways int) *roundRobinVictimFinder {
	return &roundRobinVictimFinder{
		ways:    ways,
		cursors: make([]int, sets),
	}
}

// FindVictim returns the block that receives the next fill in set.
func (f *roundRobinVictimFinder) FindVictim(set *akitacache.Set) *akitacache.Block {
	for _, block := range set.Blocks {
		if !block.IsValid {
			return block
		}
	}

	if len(set.Blocks) == 0 {
		return nil
	}

	setID := set.Blocks[0].SetID
	victim := set.Blocks[f.cursors[setID]]
	f.cursors[setID] = (f.cursors[setID] + 1) % f.ways

	return victim
}

func (f *roundRobinVictimFinder) reset() {
	for i := range f.cursors {
		f.cursors[i] = 0
	}
}
