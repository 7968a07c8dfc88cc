package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	syncIssueFlag        int
	syncHierarchicalFlag bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync tasks with a GitHub issue",
	Long: `Mirror a task subtree into a GitHub issue body, or merge edits made
on the issue back into the local store.

Requires github.repo in .dexconfig and a token in the environment
variable named by github.token_env (default GITHUB_TOKEN).`,
}

var syncPushCmd = &cobra.Command{
	Use:   "push <task-id>",
	Short: "Render a task subtree into an issue body",
	Long: `Render the subtasks of the given root task into the body of the
issue named by --issue, replacing the body's subtask section. By default
only direct children are embedded; --hierarchical embeds the full
subtree with depth markers.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs(false),
	RunE: func(cmd *cobra.Command, args []string) error {
		if SyncMgr == nil {
			return fmt.Errorf("issue sync not configured (set github.repo in .dexconfig)")
		}
		if syncIssueFlag <= 0 {
			return fmt.Errorf("--issue is required")
		}

		result, err := SyncMgr.Push(cmd.Context(), args[0], syncIssueFlag, syncHierarchicalFlag)
		if err != nil {
			return err
		}

		fmt.Printf("Pushed %d subtask(s) to issue #%d\n", result.Subtasks, result.IssueNumber)
		return nil
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Merge an issue body back into the local store",
	Long: `Fetch the issue named by --issue, parse the embedded subtasks, and
merge them into the local store. Subtasks are matched to local tasks by
the compound id recorded during a previous push; unmatched ones become
new tasks. Malformed blocks are skipped and counted, never fatal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if SyncMgr == nil {
			return fmt.Errorf("issue sync not configured (set github.repo in .dexconfig)")
		}
		if syncIssueFlag <= 0 {
			return fmt.Errorf("--issue is required")
		}

		result, err := SyncMgr.Pull(cmd.Context(), syncIssueFlag, syncHierarchicalFlag)
		if err != nil {
			return err
		}

		fmt.Printf("Pulled issue #%d into task %s: %d created, %d updated",
			syncIssueFlag, result.RootID, result.Created, result.Updated)
		if result.Skipped > 0 {
			fmt.Printf(", %d malformed block(s) skipped", result.Skipped)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	syncCmd.PersistentFlags().IntVarP(&syncIssueFlag, "issue", "i", 0, "issue number to sync with")
	syncCmd.PersistentFlags().BoolVar(&syncHierarchicalFlag, "hierarchical", false, "embed the full subtree with depth markers")
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncPullCmd)
	rootCmd.AddCommand(syncCmd)
}
