package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dexhq/dex/internal/core"
)

var showCmd = &cobra.Command{
	Use:               "show <task-id>",
	Short:             "Show the full details of a task",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs(false),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		task, err := TaskMgr.GetTask(args[0])
		if err != nil {
			return fmt.Errorf("getting task %s: %w", args[0], err)
		}

		status := "pending"
		if task.Completed {
			status = "completed"
		}

		fmt.Printf("Task %s: %s\n", task.ID, task.Description)
		fmt.Printf("  Status:   %s\n", status)
		fmt.Printf("  Priority: %d\n", task.Priority)
		if task.ParentID != "" {
			fmt.Printf("  Parent:   %s\n", task.ParentID)
		}
		fmt.Printf("  Created:  %s\n", task.CreatedAt.Format(time.RFC3339))
		fmt.Printf("  Updated:  %s\n", task.UpdatedAt.Format(time.RFC3339))
		if task.CompletedAt != nil {
			fmt.Printf("  Done at:  %s\n", task.CompletedAt.Format(time.RFC3339))
		}
		if len(task.BlockedBy) > 0 {
			fmt.Printf("  Blocked by: %s\n", strings.Join(task.BlockedBy, ", "))
		}
		if len(task.Blocks) > 0 {
			fmt.Printf("  Blocks:     %s\n", strings.Join(task.Blocks, ", "))
		}
		if task.Metadata != nil && task.Metadata.Issue != nil {
			fmt.Printf("  Issue:    %s#%d\n", task.Metadata.Issue.Repo, task.Metadata.Issue.Number)
		}
		if task.Context != "" {
			fmt.Printf("\nContext:\n%s\n", indent(task.Context))
		}
		if task.Result != "" {
			fmt.Printf("\nResult:\n%s\n", indent(task.Result))
		}

		all, err := TaskMgr.GetAllTasks()
		if err != nil {
			return fmt.Errorf("listing subtasks: %w", err)
		}
		children := core.ChildrenOf(task.ID, core.IndexTasks(all))
		if len(children) > 0 {
			fmt.Println("\nSubtasks:")
			for _, c := range children {
				fmt.Println("  " + renderTaskLine(c, 0))
			}
		}

		return nil
	},
}

func indent(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
}
