// Package recorder stores simulation results in an SQLite database.
//
// Each recorder owns one database file holding a runs table, with one row
// per simulated trace, and a contexts table, with one row per core.
package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pfsim/timing/core"
	"github.com/sarchlab/pfsim/timing/prefetch"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	trace TEXT,
	config TEXT
);
CREATE TABLE IF NOT EXISTS contexts (
	run_id TEXT,
	context INTEGER,
	cycles INTEGER,
	accesses INTEGER,
	stalls INTEGER,
	prefetch_slots INTEGER,
	l1_hits INTEGER,
	l1_misses INTEGER,
	prefetch_issued INTEGER,
	prefetch_redundant INTEGER,
	prefetch_useful INTEGER,
	prefetch_unused INTEGER,
	table_hits INTEGER,
	table_misses INTEGER,
	identified INTEGER,
	queue_hits INTEGER,
	in_cache INTEGER,
	span_page INTEGER,
	removed_full INTEGER,
	issued INTEGER
);`

// ContextEntry is one row of the contexts table.
type ContextEntry struct {
	Context  int
	Core     core.Stats
	L1Hits   uint64
	L1Misses uint64

	PrefetchIssued    uint64
	PrefetchRedundant uint64
	PrefetchUseful    uint64
	PrefetchUnused    uint64

	Prefetcher prefetch.Stats
}

// EntryOf collects the statistics of a core.
func EntryOf(c *core.Core) ContextEntry {
	l1 := c.L1.Stats()
	return ContextEntry{
		Context:           c.ID,
		Core:              c.Stats(),
		L1Hits:            l1.Hits,
		L1Misses:          l1.Misses,
		PrefetchIssued:    l1.PrefetchIssued,
		PrefetchRedundant: l1.PrefetchRedundant,
		PrefetchUseful:    l1.PrefetchUseful,
		PrefetchUnused:    l1.PrefetchUnused,
		Prefetcher:        c.Prefetcher.Stats(),
	}
}

// Recorder buffers results and writes them to the database on Flush.
type Recorder struct {
	mu sync.Mutex

	db       *sql.DB
	filename string
	runID    string
	closed   bool

	runs     [][]any
	contexts []ContextEntry
}

// New creates the database <name>.sqlite3. An empty name picks a unique one.
// The recorder is flushed when the program exits through atexit.
func New(name string) (*Recorder, error) {
	runID := xid.New().String()
	if name == "" {
		name = "pfsim_" + runID
	}

	filename := name + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	r := &Recorder{
		db:       db,
		filename: filename,
		runID:    runID,
	}

	atexit.Register(func() { _ = r.Close() })

	return r, nil
}

// Filename returns the database file name.
func (r *Recorder) Filename() string {
	return r.filename
}

// RunID returns the ID that tags every row this recorder writes.
func (r *Recorder) RunID() string {
	return r.runID
}

// RecordRun records the trace and the prefetch configuration of the run.
func (r *Recorder) RecordRun(trace string, config prefetch.Config) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to serialize prefetch config: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append(r.runs, []any{r.runID, trace, string(data)})
	return nil
}

// RecordContext buffers the results of one context.
func (r *Recorder) RecordContext(entry ContextEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contexts = append(r.contexts, entry)
}

// Flush writes all buffered rows in one transaction.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.flush()
}

func (r *Recorder) flush() error {
	if r.closed || (len(r.runs) == 0 && len(r.contexts) == 0) {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, run := range r.runs {
		if _, err := tx.Exec(`INSERT INTO runs VALUES (?, ?, ?)`, run...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert run: %w", err)
		}
	}

	for _, e := range r.contexts {
		if _, err := tx.Exec(
			`INSERT INTO contexts VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.runID, e.Context,
			int64(e.Core.Cycles), int64(e.Core.Accesses),
			int64(e.Core.Stalls), int64(e.Core.PrefetchSlots),
			int64(e.L1Hits), int64(e.L1Misses),
			int64(e.PrefetchIssued), int64(e.PrefetchRedundant),
			int64(e.PrefetchUseful), int64(e.PrefetchUnused),
			int64(e.Prefetcher.TableHits), int64(e.Prefetcher.TableMisses),
			int64(e.Prefetcher.Identified), int64(e.Prefetcher.QueueHits),
			int64(e.Prefetcher.InCache), int64(e.Prefetcher.SpanPage),
			int64(e.Prefetcher.RemovedFull), int64(e.Prefetcher.Issued),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert context %d: %w", e.Context, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}

	r.runs = nil
	r.contexts = nil
	return nil
}

// Close flushes the recorder and closes the database. Closing twice is a
// no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	err := r.flush()
	r.closed = true
	if closeErr := r.db.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close database: %w", closeErr)
	}
	return err
}
