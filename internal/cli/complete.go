package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completeResultFlag string

var completeCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task as completed",
	Long: `Mark a task as completed, recording the completion time. Use --result
to capture a short summary of the outcome; the summary survives archival
compaction.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs(false),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		task, err := TaskMgr.CompleteTask(args[0], completeResultFlag)
		if err != nil {
			return fmt.Errorf("completing task %s: %w", args[0], err)
		}

		fmt.Printf("Completed task %s: %s\n", task.ID, task.Description)
		return nil
	},
}

var reopenCmd = &cobra.Command{
	Use:               "reopen <task-id>",
	Short:             "Reopen a completed task",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs(true),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		task, err := TaskMgr.ReopenTask(args[0])
		if err != nil {
			return fmt.Errorf("reopening task %s: %w", args[0], err)
		}

		fmt.Printf("Reopened task %s: %s\n", task.ID, task.Description)
		return nil
	},
}

func init() {
	completeCmd.Flags().StringVarP(&completeResultFlag, "result", "r", "", "summary of the outcome")
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(reopenCmd)
}
