package prefetch

import "fmt"

// Entry is a stride-tracking record. An entry is trained on one
// (tag, thread) pair; two threads executing the same instruction occupy
// different entries.
type Entry struct {
	// Tag is the PC of the instruction the entry is trained on.
	Tag uint64
	// LastAddress is the most recent address observed under the tag.
	LastAddress uint64
	// Stride is the signed distance between consecutive accesses.
	Stride int64
	// Confidence estimates how reliable Stride is.
	Confidence int
	// ThreadID is the thread that trained the entry.
	ThreadID uint32
}

// Handle locates an entry inside the table of one context.
type Handle struct {
	Set int
	Way int
}

// Table is a set-associative prediction table. It keeps one independent
// sets x associativity grid per hardware context and allocates the grid the
// first time the context is accessed.
type Table struct {
	sets          int
	associativity int

	// Row-major, indexed by set*associativity + way.
	contexts map[int][]Entry
}

// NewTable creates a prediction table with the given geometry. It panics if
// either dimension is not positive.
func NewTable(sets, associativity int) *Table {
	if sets <= 0 || associativity <= 0 {
		panic(fmt.Sprintf("invalid prediction table geometry %dx%d",
			sets, associativity))
	}

	return &Table{
		sets:          sets,
		associativity: associativity,
		contexts:      make(map[int][]Entry),
	}
}

// Sets returns the number of rows per context.
func (t *Table) Sets() int {
	return t.sets
}

// Associativity returns the number of ways per row.
func (t *Table) Associativity() int {
	return t.associativity
}

// NumContexts returns the number of contexts that have a grid allocated.
func (t *Table) NumContexts() int {
	return len(t.contexts)
}

// HasContext returns true if the grid of the context has been allocated.
func (t *Table) HasContext(contextID int) bool {
	_, ok := t.contexts[contextID]
	return ok
}

// SetOf returns the row a thread is mapped to.
func (t *Table) SetOf(threadID uint32) int {
	return int(threadID % uint32(t.sets))
}

// Lookup searches the thread's row for an entry trained on the same
// (tag, thread) pair.
func (t *Table) Lookup(
	contextID int,
	tag uint64,
	threadID uint32,
) (Handle, bool) {
	grid := t.grid(contextID)
	set := t.SetOf(threadID)
	row := grid[set*t.associativity : (set+1)*t.associativity]

	for way := range row {
		if row[way].Tag == tag && row[way].ThreadID == threadID {
			return Handle{Set: set, Way: way}, true
		}
	}

	return Handle{}, false
}

// SelectVictim returns the entry with the lowest confidence in the thread's
// row. Ties go to the lowest way.
func (t *Table) SelectVictim(contextID int, threadID uint32) Handle {
	grid := t.grid(contextID)
	set := t.SetOf(threadID)
	row := grid[set*t.associativity : (set+1)*t.associativity]

	victim := 0
	for way := 1; way < len(row); way++ {
		if row[way].Confidence < row[victim].Confidence {
			victim = way
		}
	}

	return Handle{Set: set, Way: victim}
}

// Entry returns a copy of the entry at the handle.
func (t *Table) Entry(contextID int, h Handle) Entry {
	return t.grid(contextID)[t.index(h)]
}

// Update overwrites the entry at the handle.
func (t *Table) Update(contextID int, h Handle, entry Entry) {
	t.grid(contextID)[t.index(h)] = entry
}

// Reset drops the grids of all contexts.
func (t *Table) Reset() {
	t.contexts = make(map[int][]Entry)
}

func (t *Table) index(h Handle) int {
	if h.Set < 0 || h.Set >= t.sets || h.Way < 0 || h.Way >= t.associativity {
		panic(fmt.Sprintf("handle (%d, %d) out of range", h.Set, h.Way))
	}

	return h.Set*t.associativity + h.Way
}

func (t *Table) grid(contextID int) []Entry {
	grid, ok := t.contexts[contextID]
	if !ok {
		grid = t.materialize(contextID)
	}

	return grid
}

func (t *Table) materialize(contextID int) []Entry {
	grid := make([]Entry, t.sets*t.associativity)
	t.contexts[contextID] = grid

	return grid
}
