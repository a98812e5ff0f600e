package main

import (
	"fmt"
	"io"

	"github.com/sarchlab/pfsim/timing/core"
)

// printReport writes per-context and total statistics.
func printReport(w io.Writer, tracePath string, cores []*core.Core) {
	var cycles, accesses, stalls uint64
	var issued, useful, hits, misses uint64

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Trace: %s\n", tracePath)
	fmt.Fprintf(w, "Contexts: %d\n", len(cores))

	for _, c := range cores {
		stats := c.Stats()
		l1 := c.L1.Stats()
		pf := c.Prefetcher.Stats()

		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "Context %d:\n", c.ID)
		fmt.Fprintf(w, "  Cycles:   %d\n", stats.Cycles)
		fmt.Fprintf(w, "  Accesses: %d (%d loads, %d stores)\n",
			stats.Accesses, stats.Loads, stats.Stores)
		fmt.Fprintf(w, "  Stalls:   %d (%d used for prefetch)\n",
			stats.Stalls, stats.PrefetchSlots)
		fmt.Fprintf(w, "  L1 hit rate: %.1f%%\n", l1.HitRate())
		fmt.Fprintf(w, "  Prefetcher:\n")
		fmt.Fprintf(w, "    Table hit rate: %.1f%%\n", pf.TableHitRate())
		fmt.Fprintf(w, "    Identified:     %d\n", pf.Identified)
		fmt.Fprintf(w, "    Queue hits:     %d\n", pf.QueueHits)
		fmt.Fprintf(w, "    In cache:       %d\n", pf.InCache)
		fmt.Fprintf(w, "    Span page:      %d\n", pf.SpanPage)
		fmt.Fprintf(w, "    Removed full:   %d\n", pf.RemovedFull)
		fmt.Fprintf(w, "    Issued:         %d\n", pf.Issued)
		fmt.Fprintf(w, "  Prefetches:\n")
		fmt.Fprintf(w, "    Fetched:   %d\n", l1.PrefetchIssued)
		fmt.Fprintf(w, "    Redundant: %d\n", l1.PrefetchRedundant)
		fmt.Fprintf(w, "    Useful:    %d\n", l1.PrefetchUseful)
		fmt.Fprintf(w, "    Unused:    %d\n", l1.PrefetchUnused)
		fmt.Fprintf(w, "    Dropped:   %d\n", l1.PrefetchDropped)
		fmt.Fprintf(w, "    Accuracy:  %.1f%%\n", l1.PrefetchAccuracy())

		cycles = max(cycles, stats.Cycles)
		accesses += stats.Accesses
		stalls += stats.Stalls
		issued += l1.PrefetchIssued
		useful += l1.PrefetchUseful
		hits += l1.Hits
		misses += l1.Misses
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Total:\n")
	fmt.Fprintf(w, "  Cycles:   %d\n", cycles)
	fmt.Fprintf(w, "  Accesses: %d\n", accesses)
	fmt.Fprintf(w, "  Stalls:   %d\n", stalls)
	if hits+misses > 0 {
		fmt.Fprintf(w, "  L1 hit rate: %.1f%%\n",
			100.0*float64(hits)/float64(hits+misses))
	}
	if issued > 0 {
		fmt.Fprintf(w, "  Prefetch accuracy: %.1f%%\n",
			100.0*float64(useful)/float64(issued))
	}
}
