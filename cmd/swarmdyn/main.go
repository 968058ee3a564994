// swarmdyn is the maintenance CLI for the swarm dynamics core: it rebuilds
// dynamics reports from the transition store, inspects the store, previews
// controller decisions and runs deterministic genome mutations. The library
// in internal/ is the product; this binary is operational tooling around it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"swarmdyn/internal/config"
	"swarmdyn/internal/logging"
)

var (
	configPath string
	verbose    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "swarmdyn",
	Short: "Swarm dynamics maintenance tooling",
	Long: `swarmdyn analyzes the execution behavior of an AI agent swarm.

It maintains a persistent transition graph of coarse execution states,
fits an energy-like potential landscape from reversible transitions,
flags trapped states, and tunes exploration parameters per task. A
separate track evolves agent configuration genomes under multi-objective
selection.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Debug = true
		}
		if err := logging.Initialize(cfg.Logging.Debug); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".swarmdyn/config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(tuneCmd)
	rootCmd.AddCommand(evolveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
