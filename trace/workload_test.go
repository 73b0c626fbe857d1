package trace_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/btbsim/trace"
)

func count(events []trace.Event, pred func(trace.Event) bool) int {
	n := 0
	for _, e := range events {
		if pred(e) {
			n++
		}
	}
	return n
}

var _ = Describe("Workloads", func() {
	It("should list every workload", func() {
		Expect(trace.WorkloadNames()).To(Equal(
			[]string{"aliasing", "alternating", "calls", "loop", "mixed"}))
		for _, name := range trace.WorkloadNames() {
			Expect(trace.WorkloadDescription(name)).NotTo(BeEmpty())
		}
	})

	It("should fail on an unknown workload", func() {
		_, err := trace.Workload("nope")
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("should form a continuous instruction stream",
		func(name string) {
			feed, err := trace.Workload(name)
			Expect(err).NotTo(HaveOccurred())
			events, _ := trace.Collect(feed)

			for i := 1; i < len(events); i++ {
				Expect(events[i].PC).To(Equal(events[i-1].NextPC()),
					"event %d of %s", i, name)
			}
		},
		Entry("loop", "loop"),
		Entry("calls", "calls"),
		Entry("aliasing", "aliasing"),
		Entry("alternating", "alternating"),
	)

	It("should build a counted loop", func() {
		feed, _ := trace.Workload("loop")
		events, _ := trace.Collect(feed)

		Expect(events).To(HaveLen(4001))
		Expect(count(events, func(e trace.Event) bool { return e.IsControlFlow })).To(Equal(1000))
		Expect(count(events, func(e trace.Event) bool { return e.Taken })).To(Equal(999))
	})

	It("should pair every return with the fall-through of its call", func() {
		feed, _ := trace.Workload("calls")
		events, _ := trace.Collect(feed)

		var stack []uint64
		for _, e := range events {
			switch {
			case e.IsCall:
				stack = append(stack, e.FallThrough())
			case e.IsReturn:
				Expect(stack).NotTo(BeEmpty())
				Expect(e.Target).To(Equal(stack[len(stack)-1]))
				stack = stack[:len(stack)-1]
			}
		}
		Expect(stack).To(BeEmpty())
		Expect(count(events, func(e trace.Event) bool { return e.IsCall })).To(Equal(2000))
		Expect(events).To(HaveLen(10400))
	})

	It("should put the aliasing branches in one set", func() {
		feed, _ := trace.Workload("aliasing")
		events, _ := trace.Collect(feed)

		pcs := map[uint64]bool{}
		for _, e := range events {
			if e.IsControlFlow {
				Expect(e.PC & 0xfff).To(Equal(uint64(0x4)))
				pcs[e.PC] = true
			}
		}
		Expect(pcs).To(HaveLen(8))
	})

	It("should alternate the forward branch", func() {
		feed, _ := trace.Workload("alternating")
		events, _ := trace.Collect(feed)

		Expect(events).To(HaveLen(5500))
		Expect(count(events, func(e trace.Event) bool { return e.IsControlFlow })).To(Equal(2000))
	})

	It("should concatenate everything in mixed", func() {
		feed, _ := trace.Workload("mixed")
		Expect(feed.Len()).To(Equal(4001 + 10400 + 8000 + 5500))
	})

	It("should generate the same events every time", func() {
		a, _ := trace.Workload("mixed")
		b, _ := trace.Workload("mixed")
		ea, _ := trace.Collect(a)
		eb, _ := trace.Collect(b)
		Expect(ea).To(Equal(eb))
	})
})
