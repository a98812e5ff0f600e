// Package cache provides cache modeling using Akita cache components.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/pfsim/timing/prefetch"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64
	// MSHREntries is the number of misses that can be outstanding at once.
	MSHREntries int
}

// DefaultL1DConfig returns default configuration for a GPU L1 data cache.
// - 16KB per shader core
// - 4-way, 128B line
// - ~120 cycles to fetch a line from L2/DRAM
func DefaultL1DConfig() Config {
	return Config{
		Size:          16 * 1024, // 16KB
		Associativity: 4,         // 4-way
		BlockSize:     128,       // 128B cache line
		HitLatency:    1,
		MissLatency:   120,
		MSHREntries:   32,
	}
}

// DefaultL2Config returns default configuration for one GPU L2 bank.
func DefaultL2Config() Config {
	return Config{
		Size:          128 * 1024, // 128KB per bank
		Associativity: 16,         // 16-way
		BlockSize:     128,        // 128B cache line
		HitLatency:    12,
		MissLatency:   200,
		MSHREntries:   64,
	}
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the data read (for load operations).
	Data uint64
	// Evicted is true if a valid block was evicted.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
}

// Cache represents an L1 cache using Akita cache components. A cache can
// host a prefetcher, which it notifies of every demand access and drains
// through IssuePrefetch.
type Cache struct {
	// Configuration
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	// Statistics
	stats Statistics

	// Backing store interface (for fetching on miss and writeback)
	backing BackingStore

	// Outstanding fills. The data is installed at once; an MSHR entry and
	// its ready cycle model the time the fill is still in flight.
	mshr     akitacache.MSHR
	inflight map[uint64]uint64
	cycle    uint64

	prefetcher prefetch.Prefetcher
	// Blocks filled by a prefetch and not yet touched by a demand access.
	prefetched map[uint64]bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64

	// InflightHits counts hits on blocks whose fill has not completed.
	InflightHits uint64
	// MSHRFull counts misses that found no free MSHR entry.
	MSHRFull uint64

	// PrefetchIssued counts prefetches that fetched a block.
	PrefetchIssued uint64
	// PrefetchRedundant counts prefetches dropped because the block was
	// already present when they were issued.
	PrefetchRedundant uint64
	// PrefetchUseful counts prefetched blocks later hit by a demand access.
	PrefetchUseful uint64
	// PrefetchUnused counts prefetched blocks evicted before any use.
	PrefetchUnused uint64
	// PrefetchDropped counts prefetches for blocks outside the backing
	// store, such as addresses that wrapped past zero.
	PrefetchDropped uint64
	// Uncached counts demand misses outside the backing store. They take
	// the miss latency but allocate nothing.
	Uncached uint64
}

// HitRate returns the demand hit rate as a percentage.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// PrefetchAccuracy returns the percentage of issued prefetches that were
// used by a demand access.
func (s Statistics) PrefetchAccuracy() float64 {
	if s.PrefetchIssued == 0 {
		return 0
	}
	return float64(s.PrefetchUseful) / float64(s.PrefetchIssued) * 100
}

// BackingStore interface for the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint64, size int) []byte
	// Write stores data to the backing store.
	Write(addr uint64, data []byte)
	// Capacity returns the number of addressable bytes. Addresses at or
	// above it are never read or written.
	Capacity() uint64
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	mshrEntries := config.MSHREntries
	if mshrEntries <= 0 {
		mshrEntries = 1
	}

	// Initialize data storage
	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore:  dataStore,
		backing:    backing,
		mshr:       akitacache.NewMSHR(mshrEntries),
		inflight:   make(map[uint64]uint64),
		prefetched: make(map[uint64]bool),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// Cycle returns the number of cycles the cache has been ticked.
func (c *Cache) Cycle() uint64 {
	return c.cycle
}

// AttachPrefetcher makes the cache the owner of the prefetcher. It panics if
// the cache already has one.
func (c *Cache) AttachPrefetcher(p prefetch.Prefetcher) {
	if c.prefetcher != nil {
		panic("cache already has a prefetcher")
	}

	p.SetOwner(c)
	c.prefetcher = p
}

// Prefetcher returns the attached prefetcher, or nil.
func (c *Cache) Prefetcher() prefetch.Prefetcher {
	return c.prefetcher
}

// blockAddr aligns an address to the start of its cache line.
func (c *Cache) blockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// inRange returns true if the whole block fits in the backing store.
func (c *Cache) inRange(blockAddr uint64) bool {
	if c.backing == nil {
		return true
	}

	end := blockAddr + uint64(c.config.BlockSize)
	return end > blockAddr && end <= c.backing.Capacity()
}

// blockIndex computes the index into dataStore for a block.
func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// IsResident returns true if the line holding addr is valid in the cache.
func (c *Cache) IsResident(addr uint64) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid
}

// IsOutstandingMiss returns true if the line holding addr is still being
// filled.
func (c *Cache) IsOutstandingMiss(addr uint64) bool {
	return c.mshr.Query(0, c.blockAddr(addr)) != nil
}

// Load performs a demand read on behalf of an access and notifies the
// prefetcher.
func (c *Cache) Load(access prefetch.Access) AccessResult {
	result := c.Read(access.Address, int(access.ByteSize))
	c.observe(access)
	return result
}

// Store performs a demand write on behalf of an access and notifies the
// prefetcher.
func (c *Cache) Store(access prefetch.Access, data uint64) AccessResult {
	result := c.Write(access.Address, int(access.ByteSize), data)
	c.observe(access)
	return result
}

func (c *Cache) observe(access prefetch.Access) {
	if c.prefetcher != nil {
		c.prefetcher.Observe(access)
	}
}

// Read performs a cache read operation.
// Returns the access result including hit/miss and latency.
func (c *Cache) Read(addr uint64, size int) AccessResult {
	c.stats.Reads++

	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block) // Update LRU
		c.markUsed(blockAddr)

		offset := addr % uint64(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]

		return AccessResult{
			Hit:     true,
			Latency: c.hitLatency(blockAddr),
			Data:    extractData(blockData, offset, size),
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, false, 0)
}

// Write performs a cache write operation.
// Uses write-allocate policy: on miss, fetch the block first, then write.
func (c *Cache) Write(addr uint64, size int, data uint64) AccessResult {
	c.stats.Writes++

	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block) // Update LRU
		c.markUsed(blockAddr)

		offset := addr % uint64(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]
		storeData(blockData, offset, size, data)
		block.IsDirty = true

		return AccessResult{
			Hit:     true,
			Latency: c.hitLatency(blockAddr),
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, true, data)
}

// hitLatency returns the latency of a hit, which is longer if the line is
// still being filled.
func (c *Cache) hitLatency(blockAddr uint64) uint64 {
	ready, ok := c.inflight[blockAddr]
	if !ok || ready <= c.cycle {
		return c.config.HitLatency
	}

	c.stats.InflightHits++
	if remaining := ready - c.cycle; remaining > c.config.HitLatency {
		return remaining
	}
	return c.config.HitLatency
}

func (c *Cache) markUsed(blockAddr uint64) {
	if c.prefetched[blockAddr] {
		c.stats.PrefetchUseful++
		delete(c.prefetched, blockAddr)
	}
}

// handleMiss handles a cache miss by fetching from backing store.
func (c *Cache) handleMiss(addr uint64, size int, isWrite bool, writeData uint64) AccessResult {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	blockAddr := c.blockAddr(addr)
	if !c.inRange(blockAddr) {
		c.stats.Uncached++
		return result
	}

	victim := c.allocate(blockAddr, &result)
	if victim == nil {
		return result
	}

	victimData := c.dataStore[c.blockIndex(victim)]
	offset := addr % uint64(c.config.BlockSize)
	if isWrite {
		storeData(victimData, offset, size, writeData)
		victim.IsDirty = true
	} else {
		result.Data = extractData(victimData, offset, size)
	}

	c.trackMiss(blockAddr)

	return result
}

// allocate evicts a victim, fetches the line from the backing store, and
// installs it.
func (c *Cache) allocate(blockAddr uint64, result *AccessResult) *akitacache.Block {
	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		// This shouldn't happen with proper directory setup
		return nil
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag // Tag stores block-aligned address

		if c.prefetched[victim.Tag] {
			c.stats.PrefetchUnused++
			delete(c.prefetched, victim.Tag)
		}
		c.retire(victim.Tag)

		// Writeback if dirty
		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Write(victim.Tag, victimData)
		}
	}

	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.BlockSize))
	} else {
		for i := range victimData {
			victimData[i] = 0
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim) // Update LRU

	return victim
}

// trackMiss records an in-flight fill for the line.
func (c *Cache) trackMiss(blockAddr uint64) {
	if c.mshr.Query(0, blockAddr) != nil {
		return
	}

	if c.mshr.IsFull() {
		c.stats.MSHRFull++
		return
	}

	c.mshr.Add(0, blockAddr)
	c.inflight[blockAddr] = c.cycle + c.config.MissLatency
}

// retire completes the in-flight fill of a line, if there is one.
func (c *Cache) retire(blockAddr uint64) {
	if _, ok := c.inflight[blockAddr]; !ok {
		return
	}

	delete(c.inflight, blockAddr)
	c.mshr.Remove(0, blockAddr)
}

// Tick advances the cache by one cycle and completes the fills that are
// due.
func (c *Cache) Tick() {
	c.cycle++

	for blockAddr, ready := range c.inflight {
		if ready <= c.cycle {
			c.retire(blockAddr)
		}
	}
}

// IssuePrefetch takes the oldest request from the prefetcher and fetches its
// line. A request whose line is already present or lies outside the backing
// store is dropped. Returns false if
// there was nothing to issue or no MSHR entry is free.
func (c *Cache) IssuePrefetch() bool {
	if c.prefetcher == nil {
		return false
	}

	req := c.prefetcher.PeekNext()
	if req == nil {
		return false
	}

	blockAddr := c.blockAddr(req.Address)
	if !c.inRange(blockAddr) {
		c.prefetcher.PopNext()
		c.stats.PrefetchDropped++
		return true
	}

	if c.IsResident(blockAddr) {
		c.prefetcher.PopNext()
		c.stats.PrefetchRedundant++
		return true
	}

	if c.mshr.IsFull() {
		return false
	}

	c.prefetcher.PopNext()
	c.stats.PrefetchIssued++

	var result AccessResult
	if c.allocate(blockAddr, &result) == nil {
		return true
	}
	c.prefetched[blockAddr] = true
	c.trackMiss(blockAddr)

	return true
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(addr uint64) {
	blockAddr := c.blockAddr(addr)
	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
		delete(c.prefetched, blockAddr)
	}
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() {
	sets := c.directory.GetSets()
	for _, set := range sets {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				blockData := c.dataStore[c.blockIndex(block)]
				c.backing.Write(block.Tag, blockData)
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
	c.prefetched = make(map[uint64]bool)
}

// Reset invalidates all cache lines without writeback and drops in-flight
// fills. An attached prefetcher that can be reset is reset as well.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.mshr.Reset()
	c.stats = Statistics{}
	c.inflight = make(map[uint64]uint64)
	c.prefetched = make(map[uint64]bool)
	c.cycle = 0

	if r, ok := c.prefetcher.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// extractData extracts a value of the given size from a byte slice.
func extractData(data []byte, offset uint64, size int) uint64 {
	if data == nil || int(offset)+size > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}
	return result
}

// storeData stores a value of the given size into a byte slice.
func storeData(data []byte, offset uint64, size int, value uint64) {
	if data == nil || int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}
