package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pfsim/loader"
	"github.com/sarchlab/pfsim/timing/cache"
	"github.com/sarchlab/pfsim/timing/core"
	"github.com/sarchlab/pfsim/timing/prefetch"
)

func load(pc, addr uint64) loader.Record {
	return loader.Record{
		Access: prefetch.Access{Address: addr, PC: pc, ByteSize: 4},
	}
}

// stream returns n loads from one instruction walking memory one line at a
// time.
func stream(n int) []loader.Record {
	records := make([]loader.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, load(0x10, 0x10000+uint64(i)*0x40))
	}
	return records
}

var _ = Describe("Core", func() {
	var (
		cacheConfig    cache.Config
		prefetchConfig prefetch.Config
		c              *core.Core
	)

	BeforeEach(func() {
		cacheConfig = cache.Config{
			Size:          4 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
			MSHREntries:   8,
		}
		prefetchConfig = prefetch.DefaultConfig()
		prefetchConfig.BlockSize = 64

		var err error
		c, err = core.NewCore(3, cacheConfig, prefetchConfig,
			cache.NewStorageBacking(1<<32))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create a core with a cache and prefetcher", func() {
		Expect(c.ID).To(Equal(3))
		Expect(c.L1).NotTo(BeNil())
		Expect(c.Prefetcher).NotTo(BeNil())
		Expect(c.Prefetcher.Name()).To(Equal("Core[3].L1D.Prefetcher"))
		Expect(c.L1.Prefetcher()).To(BeIdenticalTo(c.Prefetcher))
	})

	It("should reject an invalid prefetch config", func() {
		prefetchConfig.Degree = 0
		_, err := core.NewCore(0, cacheConfig, prefetchConfig,
			cache.NewStorageBacking(1<<32))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("degree"))
	})

	It("should be halted without a trace", func() {
		Expect(c.Halted()).To(BeTrue())
		c.Tick()
		Expect(c.Stats().Cycles).To(BeZero())
	})

	It("should stall on misses", func() {
		records := make([]loader.Record, 0, 8)
		for i := 0; i < 8; i++ {
			records = append(records, load(0x10+uint64(i)*4, 0x10000+uint64(i)*0x40))
		}
		c.LoadTrace(records)

		stats := c.Run()
		Expect(stats.Accesses).To(Equal(uint64(8)))
		Expect(stats.Loads).To(Equal(uint64(8)))
		Expect(stats.Cycles).To(Equal(uint64(80)))
		Expect(stats.Stalls).To(Equal(uint64(72)))
		Expect(stats.PrefetchSlots).To(BeZero())
		Expect(c.L1.Stats().PrefetchIssued).To(BeZero())
	})

	It("should hide miss latency on a strided stream", func() {
		c.LoadTrace(stream(8))

		stats := c.Run()
		Expect(stats.Accesses).To(Equal(uint64(8)))
		Expect(stats.Cycles).To(Equal(uint64(62)))
		Expect(stats.PrefetchSlots).To(Equal(uint64(5)))

		l1 := c.L1.Stats()
		Expect(l1.PrefetchIssued).To(Equal(uint64(4)))
		Expect(l1.PrefetchRedundant).To(Equal(uint64(1)))
		Expect(l1.PrefetchUseful).To(Equal(uint64(3)))
		Expect(c.Prefetcher.Stats().Issued).To(Equal(uint64(5)))
	})

	It("should survive a descending stream that reaches address zero", func() {
		c, err := core.NewCore(0, cache.DefaultL1DConfig(), prefetch.DefaultConfig(),
			cache.NewStorageBacking(1<<48))
		Expect(err).NotTo(HaveOccurred())

		var records []loader.Record
		for addr := int64(0x1000); addr >= 0; addr -= 0x200 {
			records = append(records, load(0x10, uint64(addr)))
		}
		c.LoadTrace(records)

		Expect(func() { c.Run() }).NotTo(Panic())
		Expect(c.Halted()).To(BeTrue())
		Expect(c.Stats().Accesses).To(Equal(uint64(9)))
		Expect(c.L1.Stats().PrefetchDropped).To(Equal(uint64(1)))
	})

	It("should perform stores", func() {
		c.LoadTrace([]loader.Record{
			{Access: prefetch.Access{Address: 0x2000, PC: 0x20, ByteSize: 8}, Store: true, Value: 7},
			load(0x24, 0x2000),
		})

		stats := c.Run()
		Expect(stats.Stores).To(Equal(uint64(1)))
		Expect(stats.Loads).To(Equal(uint64(1)))
		Expect(c.L1.Stats().Writes).To(Equal(uint64(1)))
		Expect(c.L1.Stats().Hits).To(Equal(uint64(1)))
	})

	It("should run for a limited number of cycles", func() {
		c.LoadTrace(stream(8))

		Expect(c.RunCycles(15)).To(BeTrue())
		Expect(c.Stats().Cycles).To(Equal(uint64(15)))
		Expect(c.Stats().Accesses).To(Equal(uint64(2)))

		Expect(c.RunCycles(1000)).To(BeFalse())
		Expect(c.Halted()).To(BeTrue())
	})

	It("should rewind on reset", func() {
		c.LoadTrace(stream(8))
		c.Run()

		c.Reset()
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Stats()).To(Equal(core.Stats{}))
		Expect(c.L1.Stats()).To(Equal(cache.Statistics{}))
		Expect(c.Prefetcher.QueueLen()).To(BeZero())

		Expect(c.Run().Cycles).To(Equal(uint64(62)))
	})

	It("should report throughput", func() {
		Expect(core.Stats{}.AccessesPerCycle()).To(BeZero())
		Expect(core.Stats{Cycles: 10, Accesses: 5}.AccessesPerCycle()).To(
			BeNumerically("~", 0.5))
	})
})
