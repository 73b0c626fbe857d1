package bpu

// ReturnAddressStack is a bounded LIFO of return addresses. When a push
// finds the stack full, the oldest address is dropped to make room.
type ReturnAddressStack struct {
	entries []uint64
	head    int
	length  int
}

// NewReturnAddressStack creates an empty stack holding at most capacity
// addresses. capacity must be positive.
func NewReturnAddressStack(capacity int) *ReturnAddressStack {
	if capacity <= 0 {
		panic("return address stack capacity must be > 0")
	}

	return &ReturnAddressStack{
		entries: make([]uint64, capacity),
		head:    -1,
	}
}

// Push places addr on top of the stack. It reports whether the oldest
// entry had to be evicted.
func (s *ReturnAddressStack) Push(addr uint64) (evicted bool) {
	s.head++
	if s.head == len(s.entries) {
		s.head = 0
	}
	s.entries[s.head] = addr

	if s.length < len(s.entries) {
		s.length++
		return false
	}

	return true
}

// Pop removes and returns the most recent address. ok is false when the
// stack is empty.
func (s *ReturnAddressStack) Pop() (addr uint64, ok bool) {
	if s.length == 0 {
		return 0, false
	}

	addr = s.entries[s.head]
	s.head--
	if s.head < 0 {
		s.head = len(s.entries) - 1
	}
	s.length--

	return addr, true
}

// Peek returns the most recent address without removing it.
func (s *ReturnAddressStack) Peek() (addr uint64, ok bool) {
	if s.length == 0 {
		return 0, false
	}

	return s.entries[s.head], true
}

// Len returns the number of addresses on the stack.
func (s *ReturnAddressStack) Len() int {
	return s.length
}

// Cap returns the maximum number of addresses the stack holds.
func (s *ReturnAddressStack) Cap() int {
	return len(s.entries)
}

// Entries returns the stacked addresses, most recent first.
func (s *ReturnAddressStack) Entries() []uint64 {
	out := make([]uint64, 0, s.length)
	idx := s.head
	for i := 0; i < s.length; i++ {
		out = append(out, s.entries[idx])
		idx--
		if idx < 0 {
			idx = len(s.entries) - 1
		}
	}

	return out
}

// Reset empties the stack.
func (s *ReturnAddressStack) Reset() {
	s.head = -1
	s.length = 0
}
