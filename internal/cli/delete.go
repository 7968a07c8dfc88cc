package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteForceFlag bool

var deleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Long: `Delete a task from the active store. Its subtasks are reparented to
the deleted task's parent, and any blocking edges referring to it are
pruned. Deletion does not archive; use "dex archive" to keep a compact
record of finished work.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs(false),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		taskID := args[0]
		if !deleteForceFlag {
			task, err := TaskMgr.GetTask(taskID)
			if err != nil {
				return fmt.Errorf("getting task %s: %w", taskID, err)
			}
			fmt.Printf("Delete task %s (%s)? [y/N] ", task.ID, task.Description)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := TaskMgr.DeleteTask(taskID); err != nil {
			return fmt.Errorf("deleting task %s: %w", taskID, err)
		}

		fmt.Printf("Deleted task %s\n", taskID)
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForceFlag, "force", "f", false, "skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
