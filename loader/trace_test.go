package loader_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pfsim/loader"
)

var _ = Describe("Trace Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "trace-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	writeTrace := func(content string) string {
		path := filepath.Join(tempDir, "trace.csv")
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	Describe("Load", func() {
		It("should load accesses in order", func() {
			path := writeTrace(`context,thread,pc,address,op,size,value
# stream over a buffer
0,1,0x400,0x1000,R,8
0,1,0x400,0x1080,R
1,0,0x500,4096,W,4,0xff
`)

			trace, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Len()).To(Equal(3))

			first := trace.Records[0]
			Expect(first.ContextID).To(Equal(0))
			Expect(first.ThreadID).To(Equal(uint32(1)))
			Expect(first.PC).To(Equal(uint64(0x400)))
			Expect(first.Address).To(Equal(uint64(0x1000)))
			Expect(first.ByteSize).To(Equal(uint64(8)))
			Expect(first.Store).To(BeFalse())

			Expect(trace.Records[1].ByteSize).To(Equal(uint64(loader.DefaultAccessSize)))

			last := trace.Records[2]
			Expect(last.ContextID).To(Equal(1))
			Expect(last.Address).To(Equal(uint64(0x1000)))
			Expect(last.Store).To(BeTrue())
			Expect(last.Value).To(Equal(uint64(0xff)))
		})

		It("should return error for non-existent file", func() {
			_, err := loader.Load("/nonexistent/path/to/trace.csv")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to open"))
		})

		It("should load an empty file as an empty trace", func() {
			trace, err := loader.Load(writeTrace(""))
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Len()).To(Equal(0))
			Expect(trace.Contexts()).To(BeEmpty())
		})
	})

	Describe("Parse", func() {
		DescribeTable("should reject malformed lines",
			func(line, message string) {
				_, err := loader.Parse(strings.NewReader("0,0,0x10,0x100,R\n" + line + "\n"))
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("line 2"))
				Expect(err.Error()).To(ContainSubstring(message))
			},
			Entry("too few fields", "0,0,0x10,0x100", "expected 5 to 7 fields"),
			Entry("negative context", "-1,0,0x10,0x100,R", "invalid context"),
			Entry("bad thread", "0,x,0x10,0x100,R", "invalid thread"),
			Entry("bad pc", "0,0,pc,0x100,R", "invalid pc"),
			Entry("bad address", "0,0,0x10,0xZZ,R", "invalid address"),
			Entry("unknown op", "0,0,0x10,0x100,X", "unknown op"),
			Entry("zero size", "0,0,0x10,0x100,R,0", "invalid size"),
			Entry("oversized access", "0,0,0x10,0x100,R,16", "invalid size"),
			Entry("bad value", "0,0,0x10,0x100,W,8,v", "invalid value"),
			Entry("address beyond the address space", "0,0,0x10,0x1000000000000,R", "outside the 48-bit address space"),
			Entry("access crossing the end of the address space", "0,0,0x10,0xfffffffffffe,R,4", "outside the 48-bit address space"),
		)

		It("should accept long op names", func() {
			trace, err := loader.Parse(strings.NewReader("0,0,1,2,load\n0,0,1,3,store\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(trace.Records[0].Store).To(BeFalse())
			Expect(trace.Records[1].Store).To(BeTrue())
		})
	})

	It("should accept the last bytes of the address space", func() {
		trace, err := loader.Parse(strings.NewReader("0,0,0x10,0xfffffffffffc,R,4\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(trace.Records[0].Address).To(Equal(uint64(loader.AddressSpace - 4)))
	})

	Describe("Contexts", func() {
		It("should split the trace by context", func() {
			trace, err := loader.Parse(strings.NewReader(
				"2,0,1,0x100,R\n0,0,1,0x200,R\n2,0,1,0x300,R\n"))
			Expect(err).NotTo(HaveOccurred())

			Expect(trace.Contexts()).To(Equal([]int{0, 2}))

			records := trace.ForContext(2)
			Expect(records).To(HaveLen(2))
			Expect(records[0].Address).To(Equal(uint64(0x100)))
			Expect(records[1].Address).To(Equal(uint64(0x300)))
			Expect(trace.ForContext(1)).To(BeEmpty())
		})
	})
})
