package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pfsim",
	Short: "PFSim simulates a stride prefetcher on memory access traces.",
	Long: `PFSim simulates a stride prefetcher on memory access traces. ` +
		`Each context of a trace runs on its own core with an L1 data cache ` +
		`that hosts the prefetcher.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
