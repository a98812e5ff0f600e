package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/pfsim/timing/prefetch"
)

var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Write the default prefetch configuration",
	Long: `Write the default prefetch configuration as JSON, to the given path ` +
		`or to standard output. The file can be edited and passed to run --config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := prefetch.DefaultConfig()

		if len(args) == 1 {
			if err := config.SaveConfig(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", args[0])
			return nil
		}

		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
