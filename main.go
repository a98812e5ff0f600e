// Package main provides the entry point for PFSim.
// PFSim is a trace-driven stride prefetcher simulator built on Akita.
//
// For the full CLI, use: go run ./cmd/pfsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("PFSim - Stride Prefetcher Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: pfsim run [options] <trace.csv>")
	fmt.Println("       pfsim config [path]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  --config      Path to prefetch configuration JSON file")
	fmt.Println("  --degree      Number of prefetches generated per prediction")
	fmt.Println("  --queue       Capacity of the prefetch request queue")
	fmt.Println("  --no-filter   Keep duplicate requests in the prefetch queue")
	fmt.Println("  --snoop       Drop prefetches for lines the cache has or is fetching")
	fmt.Println("  --same-page   Stop prefetching at the page of the triggering access")
	fmt.Println("  --parallel    Simulate contexts concurrently")
	fmt.Println("  --record      Record results in an SQLite database")
	fmt.Println("  -v            Log every prefetcher event")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/pfsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/pfsim' instead.")
	}
}
