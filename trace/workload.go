package trace

import (
	"fmt"
	"sort"
)

// A program records the events of a synthetic instruction stream while
// tracking the current PC.
type program struct {
	pc     uint64
	events []Event
}

func newProgram(entry uint64) *program {
	return &program{pc: entry}
}

// op retires a non-branch instruction.
func (p *program) op(size uint32) {
	p.events = append(p.events, Event{PC: p.pc, Size: size})
	p.pc += uint64(size)
}

// ops retires n 4-byte non-branch instructions.
func (p *program) ops(n int) {
	for i := 0; i < n; i++ {
		p.op(4)
	}
}

// branch retires a conditional branch to target.
func (p *program) branch(target uint64, taken bool) {
	e := Event{PC: p.pc, Target: target, Taken: taken, Size: 4, IsControlFlow: true}
	p.events = append(p.events, e)
	p.pc = e.NextPC()
}

// jump moves the PC without retiring anything.
func (p *program) jump(pc uint64) {
	p.pc = pc
}

// call retires a 5-byte call and returns its return address.
func (p *program) call(target uint64) uint64 {
	e := Event{
		PC: p.pc, Target: target, Taken: true, Size: 5,
		IsControlFlow: true, IsCall: true,
	}
	p.events = append(p.events, e)
	p.pc = target

	return e.FallThrough()
}

// ret retires a 1-byte return to retAddr.
func (p *program) ret(retAddr uint64) {
	p.events = append(p.events, Event{
		PC: p.pc, Target: retAddr, Taken: true, Size: 1,
		IsControlFlow: true, IsReturn: true,
	})
	p.pc = retAddr
}

var workloads = map[string]struct {
	description string
	build       func(p *program)
}{
	"loop": {
		description: "counted loop closed by a backward branch",
		build:       buildLoop,
	},
	"calls": {
		description: "call chains deeper than the default return address stack",
		build:       buildCalls,
	},
	"aliasing": {
		description: "eight taken branches competing for one BTB set",
		build:       buildAliasing,
	},
	"alternating": {
		description: "branch alternating between taken and not taken",
		build:       buildAlternating,
	},
	"mixed": {
		description: "all of the above in sequence",
		build: func(p *program) {
			buildLoop(p)
			buildCalls(p)
			buildAliasing(p)
			buildAlternating(p)
		},
	},
}

// WorkloadNames lists the synthetic workloads.
func WorkloadNames() []string {
	names := make([]string, 0, len(workloads))
	for name := range workloads {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// WorkloadDescription returns a one-line description of a workload.
func WorkloadDescription(name string) string {
	return workloads[name].description
}

// Workload generates the events of a named synthetic workload.
func Workload(name string) (*SliceFeed, error) {
	w, ok := workloads[name]
	if !ok {
		return nil, fmt.Errorf("unknown workload %q", name)
	}

	p := newProgram(0x400000)
	w.build(p)

	return NewSliceFeed(p.events), nil
}

func buildLoop(p *program) {
	const iterations = 1000

	p.jump(0x400000)
	head := p.pc
	for i := 0; i < iterations; i++ {
		p.ops(3)
		p.branch(head, i != iterations-1)
	}
	p.op(4)
}

func buildCalls(p *program) {
	const (
		rounds = 100
		depth  = 20
	)

	p.jump(0x401000)
	head := p.pc
	for i := 0; i < rounds; i++ {
		p.ops(2)
		p.callChain(0x500000, depth)
		p.ops(1)
		p.branch(head, i != rounds-1)
	}
}

// callChain calls a function at base that nests depth-1 further calls
// before unwinding back to the caller.
func (p *program) callChain(base uint64, depth int) {
	if depth == 0 {
		return
	}

	retAddr := p.call(base)
	p.ops(2)
	p.callChain(base+0x100, depth-1)
	p.op(4)
	p.ret(retAddr)
}

func buildAliasing(p *program) {
	const (
		rounds   = 500
		branches = 8
		base     = 0x600000
	)

	// Every branch sits at offset 4 of a 4 KiB page, so they share a set
	// in any BTB with at most 4096 sets.
	p.jump(base)
	for r := 0; r < rounds; r++ {
		for i := 0; i < branches; i++ {
			p.ops(1)
			next := base + uint64((i+1)%branches)*0x1000
			p.branch(next, true)
		}
	}
}

func buildAlternating(p *program) {
	const iterations = 1000

	p.jump(0x700000)
	head := p.pc
	for i := 0; i < iterations; i++ {
		p.ops(2)
		skip := p.pc + 8
		p.branch(skip, i%2 == 0)
		if p.pc != skip {
			p.op(4)
		}
		p.op(4)
		p.branch(head, i != iterations-1)
	}
}
