// Package trace defines the retired-instruction events the simulator
// consumes and the feeds that deliver them in program order.
package trace

import (
	"io"
)

// Event describes one retired instruction.
type Event struct {
	// PC is the address of the instruction.
	PC uint64
	// Target is the next PC if the instruction is taken.
	Target uint64
	// Taken is the actual direction.
	Taken bool
	// Size is the instruction size in bytes.
	Size uint32
	// IsCall is true for subroutine calls.
	IsCall bool
	// IsReturn is true for subroutine returns.
	IsReturn bool
	// IsControlFlow is true for branches, jumps, calls and returns.
	IsControlFlow bool
}

// FallThrough returns the address of the next sequential instruction.
func (e Event) FallThrough() uint64 {
	return e.PC + uint64(e.Size)
}

// NextPC returns the address actually executed after the instruction.
func (e Event) NextPC() uint64 {
	if e.Taken {
		return e.Target
	}
	return e.FallThrough()
}

// A Feed delivers events in retirement order. Next returns io.EOF after
// the last event.
type Feed interface {
	Next() (Event, error)
}

// SliceFeed replays a fixed list of events.
type SliceFeed struct {
	events []Event
	pos    int
}

// NewSliceFeed creates a feed over events.
func NewSliceFeed(events []Event) *SliceFeed {
	return &SliceFeed{events: events}
}

// Next implements Feed.
func (f *SliceFeed) Next() (Event, error) {
	if f.pos >= len(f.events) {
		return Event{}, io.EOF
	}

	e := f.events[f.pos]
	f.pos++

	return e, nil
}

// Len returns the total number of events in the feed.
func (f *SliceFeed) Len() int {
	return len(f.events)
}

// Collect drains feed into a slice.
func Collect(feed Feed) ([]Event, error) {
	var events []Event
	for {
		e, err := feed.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
}
