package prefetch_test

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pfsim/timing/prefetch"
)

var _ = Describe("LogHook", func() {
	It("should print prefetcher events", func() {
		config := prefetch.DefaultConfig()
		p, err := prefetch.NewStridePrefetcher("PF", config)
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		p.AcceptHook(prefetch.NewLogHook(log.New(&buf, "", 0)))

		for i := uint64(0); i < 5; i++ {
			p.Observe(prefetch.Access{PC: 0x40, Address: 0x1000 + i*0x100, ByteSize: 4})
		}
		p.PopNext()

		out := buf.String()
		Expect(out).To(ContainSubstring("PF: " + prefetch.HookPosTableMiss.Name))
		Expect(out).To(ContainSubstring("PF: " + prefetch.HookPosTableHit.Name))
		Expect(out).To(ContainSubstring("candidate 0x1500"))
		Expect(out).To(ContainSubstring("PF: " + prefetch.HookPosPrefetchIssued.Name + " addr 0x1400"))
	})
})
