package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dexhq/dex/internal/core"
)

var (
	addParentFlag   string
	addPriorityFlag int
	addContextFlag  string
)

var addCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Add a new task",
	Long: `Add a new task with the given description.

Use --parent to nest the task under an existing one (up to two levels
deep), --priority to set its urgency (lower is more urgent), and
--context to attach longer free-form notes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		task, err := TaskMgr.CreateTask(core.CreateTaskInput{
			Description: args[0],
			Context:     addContextFlag,
			ParentID:    addParentFlag,
			Priority:    addPriorityFlag,
		})
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		fmt.Printf("Created task %s\n", task.ID)
		if task.ParentID != "" {
			fmt.Printf("  Parent:   %s\n", task.ParentID)
		}
		fmt.Printf("  Priority: %d\n", task.Priority)

		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addParentFlag, "parent", "p", "", "id of the parent task")
	addCmd.Flags().IntVar(&addPriorityFlag, "priority", 2, "task priority (lower is more urgent)")
	addCmd.Flags().StringVarP(&addContextFlag, "context", "c", "", "free-form context for the task")
	_ = addCmd.RegisterFlagCompletionFunc("parent", completeTaskIDs(false))
	rootCmd.AddCommand(addCmd)
}
