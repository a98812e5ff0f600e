// Package core provides the trace-driven hardware context model.
// A core replays the demand accesses of one context through an L1 data
// cache that hosts a stride prefetcher.
package core

import (
	"fmt"

	"github.com/sarchlab/pfsim/loader"
	"github.com/sarchlab/pfsim/timing/cache"
	"github.com/sarchlab/pfsim/timing/prefetch"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Accesses is the number of demand accesses completed.
	Accesses uint64
	// Loads and Stores split Accesses by kind.
	Loads  uint64
	Stores uint64
	// Stalls is the number of cycles spent waiting on the cache.
	Stalls uint64
	// PrefetchSlots is the number of stall cycles used to issue a prefetch.
	PrefetchSlots uint64
}

// AccessesPerCycle returns the demand access throughput.
func (s Stats) AccessesPerCycle() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Accesses) / float64(s.Cycles)
}

// Core represents one hardware context.
type Core struct {
	// ID is the context this core replays.
	ID int

	// L1 is the data cache of the core.
	L1 *cache.Cache
	// Prefetcher is the stride prefetcher attached to L1.
	Prefetcher *prefetch.StridePrefetcher

	trace []loader.Record
	next  int
	stall uint64
	stats Stats
}

// NewCore creates a core with its own L1 cache and prefetcher. The
// prefetcher is named after the core.
func NewCore(
	id int,
	cacheConfig cache.Config,
	prefetchConfig prefetch.Config,
	backing cache.BackingStore,
) (*Core, error) {
	name := fmt.Sprintf("Core[%d].L1D.Prefetcher", id)
	p, err := prefetch.NewStridePrefetcher(name, prefetchConfig)
	if err != nil {
		return nil, err
	}

	l1 := cache.New(cacheConfig, backing)
	l1.AttachPrefetcher(p)

	return &Core{
		ID:         id,
		L1:         l1,
		Prefetcher: p,
	}, nil
}

// LoadTrace sets the accesses to replay and rewinds the core.
func (c *Core) LoadTrace(records []loader.Record) {
	c.trace = records
	c.next = 0
	c.stall = 0
}

// Tick executes one cycle. A core that is waiting on the cache offers the
// cycle to the prefetcher; otherwise it performs the next demand access.
func (c *Core) Tick() {
	if c.Halted() {
		return
	}

	c.stats.Cycles++
	c.L1.Tick()

	if c.stall > 0 {
		c.stall--
		c.stats.Stalls++
		if c.L1.IssuePrefetch() {
			c.stats.PrefetchSlots++
		}
		return
	}

	record := c.trace[c.next]
	c.next++

	var result cache.AccessResult
	if record.Store {
		result = c.L1.Store(record.Access, record.Value)
		c.stats.Stores++
	} else {
		result = c.L1.Load(record.Access)
		c.stats.Loads++
	}
	c.stats.Accesses++

	if result.Latency > 1 {
		c.stall = result.Latency - 1
	}
}

// Halted returns true if all accesses have completed.
func (c *Core) Halted() bool {
	return c.next >= len(c.trace) && c.stall == 0
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return c.stats
}

// Run executes the core until it halts and returns its statistics.
func (c *Core) Run() Stats {
	for !c.Halted() {
		c.Tick()
	}
	return c.stats
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !c.Halted(); i++ {
		c.Tick()
	}
	return !c.Halted()
}

// Reset clears all core state, including the cache and the prefetcher, and
// rewinds the trace.
func (c *Core) Reset() {
	c.L1.Reset()
	c.next = 0
	c.stall = 0
	c.stats = Stats{}
}
