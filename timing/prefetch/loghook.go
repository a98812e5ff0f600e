package prefetch

import (
	"log"

	"github.com/sarchlab/akita/v4/sim"
)

// LogHook prints prefetcher events.
type LogHook struct {
	sim.LogHookBase
}

// NewLogHook creates a LogHook that writes to the logger.
func NewLogHook(logger *log.Logger) *LogHook {
	h := &LogHook{}
	h.Logger = logger
	return h
}

// Func writes one line per event.
func (h *LogHook) Func(ctx sim.HookCtx) {
	name := "prefetcher"
	if p, ok := ctx.Domain.(*StridePrefetcher); ok {
		name = p.Name()
	}

	switch ctx.Pos {
	case HookPosTableHit, HookPosTableMiss:
		access := ctx.Item.(Access)
		entry := ctx.Detail.(Entry)
		h.Printf("%s: %s ctx %d pc 0x%x tid %d addr 0x%x stride %d conf %d",
			name, ctx.Pos.Name, access.ContextID, access.PC, access.ThreadID,
			access.Address, entry.Stride, entry.Confidence)
	case HookPosPrefetchIdentified, HookPosPrefetchQueueHit,
		HookPosPrefetchInCache, HookPosPrefetchSpanPage:
		access := ctx.Item.(Access)
		h.Printf("%s: %s pc 0x%x tid %d candidate 0x%x",
			name, ctx.Pos.Name, access.PC, access.ThreadID, ctx.Detail.(uint64))
	case HookPosPrefetchEvicted, HookPosPrefetchIssued:
		req := ctx.Item.(*Request)
		h.Printf("%s: %s addr 0x%x", name, ctx.Pos.Name, req.Address)
	}
}
