package cache

import (
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// StorageBacking wraps an akita Storage as a BackingStore.
type StorageBacking struct {
	storage  *mem.Storage
	capacity uint64
}

// NewStorageBacking creates a backing store over a fresh storage of the given
// capacity in bytes. Storage units are allocated on first touch.
func NewStorageBacking(capacity uint64) *StorageBacking {
	return &StorageBacking{
		storage:  mem.NewStorage(capacity),
		capacity: capacity,
	}
}

// Capacity returns the number of addressable bytes.
func (b *StorageBacking) Capacity() uint64 {
	return b.capacity
}

// Storage returns the underlying storage.
func (b *StorageBacking) Storage() *mem.Storage {
	return b.storage
}

// Read fetches data from the backing storage.
func (b *StorageBacking) Read(addr uint64, size int) []byte {
	data, err := b.storage.Read(addr, uint64(size))
	if err != nil {
		panic(fmt.Errorf("failed to read backing storage at 0x%x: %w", addr, err))
	}
	return data
}

// Write stores data to the backing storage.
func (b *StorageBacking) Write(addr uint64, data []byte) {
	if err := b.storage.Write(addr, data); err != nil {
		panic(fmt.Errorf("failed to write backing storage at 0x%x: %w", addr, err))
	}
}
