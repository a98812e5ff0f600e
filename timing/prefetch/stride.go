package prefetch

import (
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/mem/vm"
	"github.com/sarchlab/akita/v4/sim"
)

// StridePrefetcher detects constant strides per (PC, thread) pair and
// prefetches the next addresses along the stride.
//
// Each entry carries a saturating confidence counter. A matching non-zero
// stride increments it and anything else decrements it. While confidence is
// below the train threshold the entry adopts the newest stride, and only
// when confidence is above the threshold are prefetches generated.
type StridePrefetcher struct {
	*sim.HookableBase

	name   string
	config Config
	table  *Table
	queue  *RequestQueue
	owner  Owner
	stats  Stats
}

// NewStridePrefetcher creates a stride prefetcher with the given
// configuration.
func NewStridePrefetcher(name string, config Config) (*StridePrefetcher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid prefetch config: %w", err)
	}

	return &StridePrefetcher{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		config:       config,
		table:        NewTable(config.Sets, config.Associativity),
		queue:        NewRequestQueue(config.QueueCapacity, config.QueueFilter),
	}, nil
}

// Name returns the name of the prefetcher.
func (p *StridePrefetcher) Name() string {
	return p.name
}

// Config returns the prefetcher configuration.
func (p *StridePrefetcher) Config() Config {
	return p.config
}

// Table returns the prediction table.
func (p *StridePrefetcher) Table() *Table {
	return p.table
}

// QueueLen returns the number of pending prefetch requests.
func (p *StridePrefetcher) QueueLen() int {
	return p.queue.Len()
}

// QueuedAddresses returns the pending prefetch addresses from oldest to
// newest.
func (p *StridePrefetcher) QueuedAddresses() []uint64 {
	return p.queue.Addresses()
}

// Stats returns the prefetcher statistics.
func (p *StridePrefetcher) Stats() Stats {
	return p.stats
}

// SetOwner binds the prefetcher to its parent cache. It panics if the
// prefetcher already has an owner.
func (p *StridePrefetcher) SetOwner(owner Owner) {
	if owner == nil {
		panic("prefetcher owner must not be nil")
	}

	if p.owner != nil {
		panic(fmt.Sprintf("prefetcher %s already has an owner", p.name))
	}

	p.owner = owner
}

// Observe trains the prefetcher with a demand access and queues the
// resulting prefetch requests.
func (p *StridePrefetcher) Observe(access Access) {
	for _, addr := range p.ComputeCandidates(access) {
		p.stats.Identified++
		p.hook(HookPosPrefetchIdentified, access, addr)

		if p.queue.IsDuplicate(addr) {
			p.stats.QueueHits++
			p.hook(HookPosPrefetchQueueHit, access, addr)
			continue
		}

		if p.snooped(addr) {
			p.stats.InCache++
			p.hook(HookPosPrefetchInCache, access, addr)
			continue
		}

		_, evicted := p.queue.Offer(p.newRequest(access, addr))
		if evicted != nil {
			p.stats.RemovedFull++
			p.hook(HookPosPrefetchEvicted, evicted, nil)
		}
	}
}

// ComputeCandidates trains the table with a demand access and returns the
// addresses to prefetch. Nothing is queued.
func (p *StridePrefetcher) ComputeCandidates(access Access) []uint64 {
	h, hit := p.table.Lookup(access.ContextID, access.PC, access.ThreadID)
	if !hit {
		p.allocate(access)
		return nil
	}

	entry := p.table.Entry(access.ContextID, h)
	newStride := int64(access.Address - entry.LastAddress)

	if newStride == entry.Stride && newStride != 0 {
		if entry.Confidence < p.config.MaxConfidence {
			entry.Confidence++
		}
	} else {
		if entry.Confidence > p.config.MinConfidence {
			entry.Confidence--
		}

		if entry.Confidence < p.config.TrainThreshold {
			entry.Stride = newStride
		}
	}

	entry.LastAddress = access.Address
	p.table.Update(access.ContextID, h, entry)

	p.stats.TableHits++
	p.hook(HookPosTableHit, access, entry)

	if entry.Confidence <= p.config.TrainThreshold {
		return nil
	}

	return p.generate(access, newStride)
}

// PeekNext returns the oldest pending request, or nil if there is none.
func (p *StridePrefetcher) PeekNext() *Request {
	return p.queue.Peek()
}

// PopNext removes the oldest pending request. It panics if the queue is
// empty; callers check PeekNext first.
func (p *StridePrefetcher) PopNext() {
	req := p.queue.Pop()

	p.stats.Issued++
	p.hook(HookPosPrefetchIssued, req, nil)
}

// Reset clears the prediction tables, the queue, and the statistics. The
// owner binding is kept.
func (p *StridePrefetcher) Reset() {
	p.table.Reset()
	p.queue.Reset()
	p.stats = Stats{}
}

func (p *StridePrefetcher) allocate(access Access) {
	h := p.table.SelectVictim(access.ContextID, access.ThreadID)
	entry := Entry{
		Tag:         access.PC,
		LastAddress: access.Address,
		Stride:      0,
		Confidence:  p.config.StartConfidence,
		ThreadID:    access.ThreadID,
	}
	p.table.Update(access.ContextID, h, entry)

	p.stats.TableMisses++
	p.hook(HookPosTableMiss, access, entry)
}

func (p *StridePrefetcher) generate(access Access, stride int64) []uint64 {
	blockSize := int64(p.config.BlockSize)
	if stride > -blockSize && stride < blockSize {
		if stride < 0 {
			stride = -blockSize
		} else {
			stride = blockSize
		}
	}

	addrs := make([]uint64, 0, p.config.Degree)
	for d := 1; d <= p.config.Degree; d++ {
		addr := access.Address + uint64(int64(d)*stride)

		if p.config.SamePageOnly && !p.samePage(access.Address, addr) {
			p.stats.SpanPage += uint64(p.config.Degree - d + 1)
			p.hook(HookPosPrefetchSpanPage, access, addr)
			break
		}

		addrs = append(addrs, addr)
	}

	return addrs
}

func (p *StridePrefetcher) samePage(a, b uint64) bool {
	return a/p.config.PageSize == b/p.config.PageSize
}

// snooped returns true if the owner cache already has or is fetching the
// address. Without snooping or an owner, nothing is ever present.
func (p *StridePrefetcher) snooped(addr uint64) bool {
	if !p.config.CacheSnoop || p.owner == nil {
		return false
	}

	return p.owner.IsResident(addr) || p.owner.IsOutstandingMiss(addr)
}

func (p *StridePrefetcher) newRequest(access Access, addr uint64) *Request {
	byteSize := access.ByteSize
	if byteSize == 0 {
		byteSize = p.config.BlockSize
	}

	origin := Origin{
		PC:        access.PC,
		ThreadID:  access.ThreadID,
		ContextID: access.ContextID,
		Trigger:   access.Address,
	}

	req := mem.ReadReqBuilder{}.
		WithAddress(addr).
		WithByteSize(byteSize).
		WithPID(vm.PID(access.ContextID)).
		Build()

	return &Request{ReadReq: req, Origin: origin}
}

func (p *StridePrefetcher) hook(pos *sim.HookPos, item, detail interface{}) {
	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
