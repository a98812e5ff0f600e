package recorder_test

import (
	"database/sql"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pfsim/loader"
	"github.com/sarchlab/pfsim/recorder"
	"github.com/sarchlab/pfsim/timing/cache"
	"github.com/sarchlab/pfsim/timing/core"
	"github.com/sarchlab/pfsim/timing/prefetch"
)

var _ = Describe("Recorder", func() {
	var (
		tempDir string
		name    string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "recorder-test")
		Expect(err).NotTo(HaveOccurred())
		name = filepath.Join(tempDir, "run")
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	count := func(filename, table string) int {
		db, err := sql.Open("sqlite3", filename)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = db.Close() }()

		var n int
		Expect(db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)).To(Succeed())
		return n
	}

	It("should create the database file", func() {
		r, err := recorder.New(name)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = r.Close() }()

		Expect(r.Filename()).To(Equal(name + ".sqlite3"))
		Expect(r.RunID()).NotTo(BeEmpty())
		Expect(r.Filename()).To(BeAnExistingFile())
	})

	It("should refuse to overwrite an existing database", func() {
		Expect(os.WriteFile(name+".sqlite3", nil, 0644)).To(Succeed())

		_, err := recorder.New(name)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("already exists"))
	})

	It("should write buffered rows on flush", func() {
		r, err := recorder.New(name)
		Expect(err).NotTo(HaveOccurred())

		Expect(r.RecordRun("trace.csv", prefetch.DefaultConfig())).To(Succeed())
		r.RecordContext(recorder.ContextEntry{Context: 0})
		r.RecordContext(recorder.ContextEntry{Context: 1})
		Expect(r.Flush()).To(Succeed())
		Expect(r.Close()).To(Succeed())
		Expect(r.Close()).To(Succeed())

		Expect(count(r.Filename(), "runs")).To(Equal(1))
		Expect(count(r.Filename(), "contexts")).To(Equal(2))
	})

	It("should record the statistics of a core", func() {
		config := prefetch.DefaultConfig()
		config.BlockSize = 64
		c, err := core.NewCore(5, cache.Config{
			Size:          4 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
			MSHREntries:   8,
		}, config, cache.NewStorageBacking(1<<32))
		Expect(err).NotTo(HaveOccurred())

		var records []loader.Record
		for i := uint64(0); i < 8; i++ {
			records = append(records, loader.Record{
				Access: prefetch.Access{Address: 0x8000 + i*0x40, PC: 0x10, ByteSize: 4},
			})
		}
		c.LoadTrace(records)
		c.Run()

		entry := recorder.EntryOf(c)
		Expect(entry.Context).To(Equal(5))
		Expect(entry.Core.Accesses).To(Equal(uint64(8)))
		Expect(entry.PrefetchIssued).To(Equal(c.L1.Stats().PrefetchIssued))
		Expect(entry.Prefetcher).To(Equal(c.Prefetcher.Stats()))

		r, err := recorder.New(name)
		Expect(err).NotTo(HaveOccurred())
		r.RecordContext(entry)
		Expect(r.Close()).To(Succeed())

		db, err := sql.Open("sqlite3", r.Filename())
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = db.Close() }()

		var runID string
		var context, accesses int
		Expect(db.QueryRow(
			"SELECT run_id, context, accesses FROM contexts",
		).Scan(&runID, &context, &accesses)).To(Succeed())
		Expect(runID).To(Equal(r.RunID()))
		Expect(context).To(Equal(5))
		Expect(accesses).To(Equal(8))
	})
})
