package bpu_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/btbsim/bpu"
)

var _ = Describe("BTB", func() {
	var btb *bpu.BTB

	BeforeEach(func() {
		btb = bpu.NewBTB(16, 4)
	})

	It("should miss when empty", func() {
		_, found := btb.Lookup(3, 0x42)
		Expect(found).To(BeFalse())
	})

	It("should find what was inserted", func() {
		Expect(btb.Upsert(3, 0x42, 0x900)).To(Equal(bpu.UpsertFilled))

		entry, found := btb.Lookup(3, 0x42)
		Expect(found).To(BeTrue())
		Expect(entry.Target).To(Equal(uint64(0x900)))
		Expect(entry.Tag).To(Equal(uint64(0x42)))
		Expect(entry.Valid).To(BeTrue())
		Expect(entry.Reserved).To(BeFalse())
	})

	It("should keep sets apart", func() {
		btb.Upsert(3, 0x42, 0x900)

		_, found := btb.Lookup(4, 0x42)
		Expect(found).To(BeFalse())
	})

	It("should update a resident entry in place", func() {
		btb.Upsert(3, 0x42, 0x900)
		btb.Upsert(3, 0x43, 0xa00)

		Expect(btb.Upsert(3, 0x42, 0x980)).To(Equal(bpu.UpsertUpdated))

		entry, _ := btb.Lookup(3, 0x42)
		Expect(entry.Target).To(Equal(uint64(0x980)))
		Expect(btb.ValidEntries(3)).To(Equal(2))
		Expect(btb.Entry(3, 0).Target).To(Equal(uint64(0x980)))
		Expect(btb.Cursor(3)).To(Equal(0))
	})

	It("should be idempotent", func() {
		btb.Upsert(5, 0x10, 0x100)
		before := []bpu.Entry{}
		for w := 0; w < 4; w++ {
			before = append(before, btb.Entry(5, w))
		}

		Expect(btb.Upsert(5, 0x10, 0x100)).To(Equal(bpu.UpsertUpdated))
		for w := 0; w < 4; w++ {
			Expect(btb.Entry(5, w)).To(Equal(before[w]))
		}
		Expect(btb.Cursor(5)).To(Equal(0))
	})

	It("should fill invalid ways in order before evicting", func() {
		for i := 0; i < 4; i++ {
			Expect(btb.Upsert(7, uint64(0x100+i), uint64(i))).To(Equal(bpu.UpsertFilled))
			Expect(btb.Entry(7, i).Tag).To(Equal(uint64(0x100 + i)))
		}
		Expect(btb.ValidEntries(7)).To(Equal(4))
		Expect(btb.Cursor(7)).To(Equal(0))
	})

	It("should evict the way under the cursor and advance it", func() {
		for i := 0; i < 4; i++ {
			btb.Upsert(7, uint64(0x100+i), uint64(i))
		}

		Expect(btb.Upsert(7, 0x200, 0xaaa)).To(Equal(bpu.UpsertEvicted))
		Expect(btb.Entry(7, 0).Tag).To(Equal(uint64(0x200)))
		Expect(btb.Entry(7, 0).Target).To(Equal(uint64(0xaaa)))
		Expect(btb.Cursor(7)).To(Equal(1))

		_, found := btb.Lookup(7, 0x100)
		Expect(found).To(BeFalse())
	})

	It("should wrap the cursor after the last way", func() {
		for i := 0; i < 4; i++ {
			btb.Upsert(7, uint64(0x100+i), uint64(i))
		}
		for i := 0; i < 4; i++ {
			btb.Upsert(7, uint64(0x200+i), uint64(i))
		}

		Expect(btb.Cursor(7)).To(Equal(0))

		btb.Upsert(7, 0x300, 0)
		Expect(btb.Entry(7, 0).Tag).To(Equal(uint64(0x300)))
		Expect(btb.Cursor(7)).To(Equal(1))
	})

	It("should evict a hot entry when its turn comes", func() {
		for i := 0; i < 4; i++ {
			btb.Upsert(7, uint64(0x100+i), uint64(i))
		}

		// Touching way 0 does not protect it.
		btb.Upsert(7, 0x100, 0x555)
		btb.Upsert(7, 0x200, 0)

		_, found := btb.Lookup(7, 0x100)
		Expect(found).To(BeFalse())
	})

	It("should keep only the cursor of the touched set moving", func() {
		for i := 0; i < 5; i++ {
			btb.Upsert(2, uint64(i), 0)
		}

		Expect(btb.Cursor(2)).To(Equal(1))
		Expect(btb.Cursor(3)).To(Equal(0))
	})

	It("should never hold duplicate tags or more than ways valid entries", func() {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 5000; i++ {
			btb.Upsert(rng.Intn(16), uint64(rng.Intn(12)), uint64(i))
		}

		for set := 0; set < 16; set++ {
			Expect(btb.ValidEntries(set)).To(BeNumerically("<=", 4))

			seen := map[uint64]bool{}
			for w := 0; w < 4; w++ {
				e := btb.Entry(set, w)
				if !e.Valid {
					continue
				}
				Expect(seen).NotTo(HaveKey(e.Tag))
				seen[e.Tag] = true
			}
		}
	})

	It("should return the last target until the entry is evicted", func() {
		btb.Upsert(1, 0x9, 0x111)
		btb.Upsert(1, 0x9, 0x222)
		btb.Upsert(1, 0xa, 0)
		btb.Upsert(1, 0xb, 0)

		entry, found := btb.Lookup(1, 0x9)
		Expect(found).To(BeTrue())
		Expect(entry.Target).To(Equal(uint64(0x222)))
	})

	It("should work as a direct-mapped buffer", func() {
		dm := bpu.NewBTB(8, 1)
		dm.Upsert(0, 1, 0x10)
		Expect(dm.Upsert(0, 2, 0x20)).To(Equal(bpu.UpsertEvicted))
		Expect(dm.Cursor(0)).To(Equal(0))

		_, found := dm.Lookup(0, 1)
		Expect(found).To(BeFalse())
		entry, found := dm.Lookup(0, 2)
		Expect(found).To(BeTrue())
		Expect(entry.Target).To(Equal(uint64(0x20)))
	})

	It("should hold tags that use the full address width", func() {
		btb.Upsert(15, 0x0fff_ffff_ffff_ffff, 0x1)
		btb.Upsert(15, 0x0fff_ffff_ffff_fffe, 0x2)

		entry, found := btb.Lookup(15, 0x0fff_ffff_ffff_ffff)
		Expect(found).To(BeTrue())
		Expect(entry.Target).To(Equal(uint64(0x1)))
		Expect(btb.Entry(15, 1).Tag).To(Equal(uint64(0x0fff_ffff_ffff_fffe)))
	})

	It("should keep tags apart up to the widest foldable tag", func() {
		Expect(btb.MaxTag()).To(Equal(uint64(1)<<60 - 1))

		btb.Upsert(0, btb.MaxTag(), 0x1)

		_, found := btb.Lookup(0, 0)
		Expect(found).To(BeFalse())
		entry, found := btb.Lookup(0, btb.MaxTag())
		Expect(found).To(BeTrue())
		Expect(entry.Target).To(Equal(uint64(0x1)))
		Expect(btb.Entry(0, 0).Tag).To(Equal(btb.MaxTag()))
	})

	It("should panic on a tag wider than the set index leaves room for", func() {
		Expect(func() { btb.Upsert(0, 1<<60, 0x1) }).To(Panic())
		Expect(func() { btb.Lookup(0, 1<<60) }).To(Panic())
		Expect(btb.ValidEntries(0)).To(Equal(0))
	})

	It("should accept any tag with a single set", func() {
		single := bpu.NewBTB(1, 2)

		single.Upsert(0, ^uint64(0), 0x1)
		single.Upsert(0, 0, 0x2)

		entry, found := single.Lookup(0, ^uint64(0))
		Expect(found).To(BeTrue())
		Expect(entry.Target).To(Equal(uint64(0x1)))
		entry, found = single.Lookup(0, 0)
		Expect(found).To(BeTrue())
		Expect(entry.Target).To(Equal(uint64(0x2)))
	})

	It("should forget everything on reset", func() {
		for i := 0; i < 6; i++ {
			btb.Upsert(0, uint64(i), 0)
		}
		btb.Reset()

		Expect(btb.ValidEntries(0)).To(Equal(0))
		Expect(btb.Cursor(0)).To(Equal(0))
		_, found := btb.Lookup(0, 5)
		Expect(found).To(BeFalse())
	})

	It("should panic on a set out of range", func() {
		Expect(func() { btb.Lookup(16, 0) }).To(Panic())
	})

	It("should panic on a non power of two set count", func() {
		Expect(func() { bpu.NewBTB(6, 2) }).To(Panic())
	})
})
