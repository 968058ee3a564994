package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"swarmdyn/internal/controller"
)

var (
	tuneReportPath string
	tuneTaskID     string
	tuneTags       []string
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Preview the exploration controller decision for a task",
	Long: `Reads the dynamics report and prints the control decision the
dispatcher would receive for a task with the given tags. A missing or
malformed report yields the disabled decision; tuning never blocks
scheduling.`,
	RunE: runTune,
}

func init() {
	tuneCmd.Flags().StringVar(&tuneReportPath, "report", "", "dynamics report path (defaults to config)")
	tuneCmd.Flags().StringVar(&tuneTaskID, "task", "", "task id (generated when omitted)")
	tuneCmd.Flags().StringSliceVar(&tuneTags, "tags", nil, "task tags, comma separated")
}

func runTune(cmd *cobra.Command, args []string) error {
	reportPath := tuneReportPath
	if reportPath == "" {
		reportPath = cfg.Store.ReportPath
	}
	taskID := tuneTaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	task := controller.Task{ID: taskID, Tags: tuneTags}
	decision := controller.DecideFromFile(reportPath, task, cfg.Controller.Options())

	out, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
