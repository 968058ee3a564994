package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"swarmdyn/internal/store"
)

var (
	inspectDBPath string
	inspectLimit  int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show transition store statistics and top transitions",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDBPath, "db", "", "transition store path (defaults to config)")
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 10, "number of top transitions to show")
}

func runInspect(cmd *cobra.Command, args []string) error {
	dbPath := inspectDBPath
	if dbPath == "" {
		dbPath = cfg.Store.DatabasePath
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	for table, count := range st.Stats() {
		fmt.Printf("%-12s %d rows\n", table, count)
	}
	if since, until, ok := st.TransitionWindow(); ok {
		fmt.Printf("window       %s .. %s\n", since.Format("2006-01-02T15:04:05Z"), until.Format("2006-01-02T15:04:05Z"))
	}

	probs := st.TransitionProbabilities(inspectLimit)
	if len(probs) > 0 {
		fmt.Println("\ntop transitions:")
		for _, p := range probs {
			fmt.Printf("  %s -> %s  count=%d  p=%.3f\n", p.From, p.To, p.Count, p.Probability)
		}
	}
	return nil
}
