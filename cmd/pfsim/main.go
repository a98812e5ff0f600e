// Package main provides the entry point for PFSim.
// PFSim replays memory access traces through per-context L1 caches that
// host a stride prefetcher.
package main

func main() {
	Execute()
}
