package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"swarmdyn/internal/dynamics"
	"swarmdyn/internal/store"
)

var (
	reportDBPath  string
	reportOutPath string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the dynamics report from the transition store",
	Long: `Loads all states and transitions, fits the potential landscape from
reversible transition pairs, computes action rates and traps, and writes
the versioned dynamics report snapshot.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDBPath, "db", "", "transition store path (defaults to config)")
	reportCmd.Flags().StringVar(&reportOutPath, "out", "", "report output path (defaults to config)")
}

func runReport(cmd *cobra.Command, args []string) error {
	dbPath := reportDBPath
	if dbPath == "" {
		dbPath = cfg.Store.DatabasePath
	}
	outPath := reportOutPath
	if outPath == "" {
		outPath = cfg.Store.ReportPath
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := dynamics.BuilderOptions{
		Estimator: cfg.Estimator.Options(),
		Analyzer:  cfg.Analyzer.Options(),
	}
	report, err := dynamics.BuildReport(st, opts)
	if err != nil {
		return err
	}
	if err := dynamics.WriteReport(report, outPath); err != nil {
		return err
	}

	fmt.Printf("report written to %s\n", outPath)
	fmt.Printf("  states: %d  edges_used: %d  rmse_logratio: %.4f\n",
		len(report.Potential), report.Estimation.Fit.EdgesUsed, report.Estimation.Fit.RMSELogRatio)
	fmt.Printf("  global_action_rate: %.4f  traps: %d\n",
		report.ActionSummary.GlobalActionRate, len(report.ActionSummary.Traps))
	for _, trap := range report.ActionSummary.Traps {
		fmt.Printf("  trap %s: %s\n", trap.StateID, trap.Reason)
	}
	return nil
}
