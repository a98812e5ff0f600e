package prefetch

import "github.com/sarchlab/akita/v4/sim"

// Hook positions triggered by a StridePrefetcher.
var (
	// HookPosTableHit is triggered after an entry is trained by an access.
	// Item is the Access and Detail is the updated Entry.
	HookPosTableHit = &sim.HookPos{Name: "PrefetchTableHit"}

	// HookPosTableMiss is triggered after a victim entry is reallocated.
	// Item is the Access and Detail is the new Entry.
	HookPosTableMiss = &sim.HookPos{Name: "PrefetchTableMiss"}

	// HookPosPrefetchIdentified is triggered for every candidate address.
	// Item is the Access and Detail is the candidate address.
	HookPosPrefetchIdentified = &sim.HookPos{Name: "PrefetchIdentified"}

	// HookPosPrefetchQueueHit is triggered when a candidate is already
	// queued. Item is the Access and Detail is the candidate address.
	HookPosPrefetchQueueHit = &sim.HookPos{Name: "PrefetchQueueHit"}

	// HookPosPrefetchInCache is triggered when snooping drops a candidate.
	// Item is the Access and Detail is the candidate address.
	HookPosPrefetchInCache = &sim.HookPos{Name: "PrefetchInCache"}

	// HookPosPrefetchSpanPage is triggered when generation stops at a page
	// boundary. Item is the Access and Detail is the first address outside
	// the page.
	HookPosPrefetchSpanPage = &sim.HookPos{Name: "PrefetchSpanPage"}

	// HookPosPrefetchEvicted is triggered when a full queue drops its
	// oldest request. Item is the dropped *Request.
	HookPosPrefetchEvicted = &sim.HookPos{Name: "PrefetchEvicted"}

	// HookPosPrefetchIssued is triggered when the cache pops a request.
	// Item is the popped *Request.
	HookPosPrefetchIssued = &sim.HookPos{Name: "PrefetchIssued"}
)

// Stats holds statistics for a prefetcher.
type Stats struct {
	// TableHits is the number of accesses that found a trained entry.
	TableHits uint64
	// TableMisses is the number of accesses that reallocated a victim.
	TableMisses uint64
	// Identified is the number of candidate addresses generated.
	Identified uint64
	// QueueHits is the number of candidates dropped as already queued.
	QueueHits uint64
	// InCache is the number of candidates dropped by cache snooping.
	InCache uint64
	// SpanPage is the number of candidates not generated because they
	// crossed a page boundary.
	SpanPage uint64
	// RemovedFull is the number of queued requests dropped because the
	// queue was full.
	RemovedFull uint64
	// Issued is the number of requests popped by the cache.
	Issued uint64
}

// Queued returns the number of requests that entered the queue.
func (s Stats) Queued() uint64 {
	return s.Identified - s.QueueHits - s.InCache
}

// TableHitRate returns the prediction table hit rate as a percentage.
func (s Stats) TableHitRate() float64 {
	total := s.TableHits + s.TableMisses
	if total == 0 {
		return 0
	}
	return float64(s.TableHits) / float64(total) * 100
}

// IssueRate returns the percentage of queued requests that were issued.
func (s Stats) IssueRate() float64 {
	queued := s.Queued()
	if queued == 0 {
		return 0
	}
	return float64(s.Issued) / float64(queued) * 100
}
