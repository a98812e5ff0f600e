// Package prefetch provides hardware prefetchers that a cache model drives.
//
// A cache notifies its prefetcher of every demand access through Observe.
// The prefetcher trains its prediction state, materializes prefetch
// requests into a bounded queue, and the cache drains that queue at its own
// pace with PeekNext and PopNext.
package prefetch

import (
	"github.com/sarchlab/akita/v4/mem/mem"
)

// Access describes one demand memory access observed by a cache.
type Access struct {
	// Address is the target address of the access.
	Address uint64
	// PC is the address of the instruction that issued the access.
	PC uint64
	// ThreadID identifies the thread or warp that issued the access.
	ThreadID uint32
	// ContextID identifies the hardware context (e.g., a shader core).
	ContextID int
	// ByteSize is the number of bytes accessed.
	ByteSize uint64
}

// Origin records the demand access that triggered a prefetch.
type Origin struct {
	PC        uint64
	ThreadID  uint32
	ContextID int
	Trigger   uint64
}

// Request is a prefetch request waiting to be issued by the cache.
type Request struct {
	*mem.ReadReq
	Origin Origin
}

// Owner is the cache a prefetcher is attached to. It is only queried when
// cache snooping is enabled.
type Owner interface {
	// IsResident returns true if the block holding address is in the cache.
	IsResident(address uint64) bool
	// IsOutstandingMiss returns true if the block holding address is being
	// fetched from the next level.
	IsOutstandingMiss(address uint64) bool
}

// Prefetcher is the contract between a cache model and a prediction policy.
type Prefetcher interface {
	// SetOwner binds the prefetcher to its parent cache. It must be called
	// at most once.
	SetOwner(owner Owner)

	// Observe trains the prefetcher with a demand access and queues the
	// resulting prefetch requests.
	Observe(access Access)

	// ComputeCandidates trains the prefetcher with a demand access and
	// returns the predicted addresses without queueing them.
	ComputeCandidates(access Access) []uint64

	// PeekNext returns the oldest queued request, or nil if there is none.
	PeekNext() *Request

	// PopNext removes the oldest queued request. The queue must not be
	// empty.
	PopNext()
}
