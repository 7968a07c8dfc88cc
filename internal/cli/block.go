package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var blockCmd = &cobra.Command{
	Use:   "block <blocker-id> <blocked-id>",
	Short: "Record that one task blocks another",
	Long: `Record a blocking edge: the first task must finish before the second
can proceed. Both directions of the edge are kept consistent in the
store.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		if err := TaskMgr.BlockTask(args[0], args[1]); err != nil {
			return fmt.Errorf("blocking task %s on %s: %w", args[1], args[0], err)
		}

		fmt.Printf("Task %s now blocks %s\n", args[0], args[1])
		return nil
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <blocker-id> <blocked-id>",
	Short: "Remove a blocking edge between two tasks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		if err := TaskMgr.UnblockTask(args[0], args[1]); err != nil {
			return fmt.Errorf("unblocking task %s from %s: %w", args[1], args[0], err)
		}

		fmt.Printf("Task %s no longer blocks %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
}
