package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/pfsim/loader"
	"github.com/sarchlab/pfsim/recorder"
	"github.com/sarchlab/pfsim/timing/cache"
	"github.com/sarchlab/pfsim/timing/core"
	"github.com/sarchlab/pfsim/timing/prefetch"
)

type runOptions struct {
	configPath string
	degree     int
	queue      int
	noFilter   bool
	snoop      bool
	samePage   bool
	parallel   bool
	record     bool
	dbName     string
	verbose    bool
	cpuProfile string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run [trace.csv]",
	Short: "Simulate a memory access trace",
	Long: `Simulate a memory access trace. Every context in the trace runs on ` +
		`its own core, and a report with cache and prefetcher statistics is ` +
		`printed when all cores have finished.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if runOpts.cpuProfile != "" {
			f, err := os.Create(runOpts.cpuProfile)
			if err != nil {
				return fmt.Errorf("failed to create CPU profile: %w", err)
			}
			defer func() { _ = f.Close() }()

			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("failed to start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		config, err := buildPrefetchConfig(cmd, runOpts)
		if err != nil {
			return err
		}

		tracePath := args[0]
		trace, err := loader.Load(tracePath)
		if err != nil {
			return err
		}

		var logger *log.Logger
		if runOpts.verbose {
			logger = log.New(cmd.ErrOrStderr(), "", 0)
			logger.Printf("Loaded: %s (%d accesses, %d contexts)",
				tracePath, trace.Len(), len(trace.Contexts()))
		}

		cores, err := buildCores(trace, cache.DefaultL1DConfig(), config, logger)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := runCores(cores, runOpts.parallel); err != nil {
			return err
		}
		elapsed := time.Since(start)

		printReport(cmd.OutOrStdout(), tracePath, cores)
		fmt.Fprintf(cmd.OutOrStdout(), "Elapsed time: %v\n", elapsed)

		if runOpts.record {
			return record(cmd, runOpts.dbName, tracePath, config, cores)
		}
		return nil
	},
}

func init() {
	addRunFlags(runCmd, &runOpts)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "",
		"Path to prefetch configuration JSON file")
	flags.IntVar(&opts.degree, "degree", 0,
		"Number of prefetches generated per prediction")
	flags.IntVar(&opts.queue, "queue", 0,
		"Capacity of the prefetch request queue")
	flags.BoolVar(&opts.noFilter, "no-filter", false,
		"Keep duplicate requests in the prefetch queue")
	flags.BoolVar(&opts.snoop, "snoop", false,
		"Drop prefetches for lines the cache has or is fetching")
	flags.BoolVar(&opts.samePage, "same-page", false,
		"Stop prefetching at the page of the triggering access")
	flags.BoolVar(&opts.parallel, "parallel", false,
		"Simulate contexts concurrently")
	flags.BoolVar(&opts.record, "record", false,
		"Record results in an SQLite database")
	flags.StringVar(&opts.dbName, "db", "",
		"Database name for --record (default: unique name)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Log every prefetcher event")
	flags.StringVar(&opts.cpuProfile, "cpuprofile", "",
		"Write a CPU profile to file")
}

// buildPrefetchConfig loads the configuration file, if any, and applies the
// flags the user set on top of it.
func buildPrefetchConfig(cmd *cobra.Command, opts runOptions) (prefetch.Config, error) {
	config := prefetch.DefaultConfig()
	if opts.configPath != "" {
		var err error
		config, err = prefetch.LoadConfig(opts.configPath)
		if err != nil {
			return prefetch.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("degree") {
		config.Degree = opts.degree
	}
	if flags.Changed("queue") {
		config.QueueCapacity = opts.queue
	}
	if flags.Changed("no-filter") {
		config.QueueFilter = !opts.noFilter
	}
	if flags.Changed("snoop") {
		config.CacheSnoop = opts.snoop
	}
	if flags.Changed("same-page") {
		config.SamePageOnly = opts.samePage
	}

	if err := config.Validate(); err != nil {
		return prefetch.Config{}, fmt.Errorf("invalid prefetch config: %w", err)
	}
	return config, nil
}

// buildCores creates one core per context of the trace. The prefetch block
// size must match the cache line size. A non-nil logger receives every
// prefetcher event.
func buildCores(
	trace *loader.Trace,
	cacheConfig cache.Config,
	prefetchConfig prefetch.Config,
	logger *log.Logger,
) ([]*core.Core, error) {
	if prefetchConfig.BlockSize != uint64(cacheConfig.BlockSize) {
		return nil, fmt.Errorf(
			"prefetch block_size %d does not match the cache line size %d",
			prefetchConfig.BlockSize, cacheConfig.BlockSize)
	}

	var cores []*core.Core
	for _, id := range trace.Contexts() {
		backing := cache.NewStorageBacking(loader.AddressSpace)
		c, err := core.NewCore(id, cacheConfig, prefetchConfig, backing)
		if err != nil {
			return nil, err
		}

		if logger != nil {
			c.Prefetcher.AcceptHook(prefetch.NewLogHook(logger))
		}

		c.LoadTrace(trace.ForContext(id))
		cores = append(cores, c)
	}

	return cores, nil
}

// runCores runs every core to completion. Cores share nothing, so in
// parallel mode each one runs on its own goroutine.
func runCores(cores []*core.Core, parallel bool) error {
	if !parallel {
		for _, c := range cores {
			c.Run()
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, c := range cores {
		g.Go(func() error {
			c.Run()
			return nil
		})
	}
	return g.Wait()
}

func record(
	cmd *cobra.Command,
	name, tracePath string,
	config prefetch.Config,
	cores []*core.Core,
) error {
	r, err := recorder.New(name)
	if err != nil {
		return err
	}

	if err := r.RecordRun(tracePath, config); err != nil {
		return err
	}
	for _, c := range cores {
		r.RecordContext(recorder.EntryOf(c))
	}

	if err := r.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Results recorded in %s (run %s)\n",
		r.Filename(), r.RunID())
	return nil
}
