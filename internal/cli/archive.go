package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <task-id>",
	Short: "Archive a completed task and its subtree",
	Long: `Archive a completed root task: the task and all of its subtasks are
compacted into lossy archive records and removed from the active store.

Archival is all-or-nothing. It fails if any subtask is still pending, or
if the task sits under a pending ancestor.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskIDs(true),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		result, err := TaskMgr.ArchiveTask(args[0])
		if err != nil {
			return fmt.Errorf("archiving task %s: %w", args[0], err)
		}

		fmt.Printf("Archived task %s (%d record(s) written)\n", args[0], len(result.ArchivedIDs))
		return nil
	},
}

var archiveAutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Run the auto-archive sweep",
	Long: `Sweep old completed root tasks into the archive using the configured
thresholds: tasks completed more than age_days ago, outside the
keep_recent most recently completed, with every subtask completed.

Does nothing unless auto_archive.auto is enabled in .dexconfig.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		result, err := TaskMgr.AutoArchive(ArchiveCfg)
		if err != nil {
			return fmt.Errorf("auto-archiving: %w", err)
		}

		if !ArchiveCfg.Auto {
			fmt.Println("Auto-archive is disabled (set auto_archive.auto: true in .dexconfig).")
			return nil
		}
		if result.ArchivedCount == 0 {
			fmt.Println("Nothing to auto-archive.")
			return nil
		}

		fmt.Printf("Auto-archived %d root task(s)\n", result.ArchivedCount)
		return nil
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ArchiveRd == nil {
			return fmt.Errorf("archive store not initialized")
		}

		records, err := ArchiveRd.Load()
		if err != nil {
			return fmt.Errorf("loading archive: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("Archive is empty.")
			return nil
		}

		for _, r := range records {
			fmt.Printf("%s  %s", r.ID, r.Name)
			if r.CompletedAt != nil {
				fmt.Printf("  (completed %s)", r.CompletedAt.Format(time.DateOnly))
			}
			fmt.Println()
			for _, c := range r.ArchivedChildren {
				fmt.Printf("    %s  %s\n", c.ID, c.Name)
			}
		}

		return nil
	},
}

func init() {
	archiveCmd.AddCommand(archiveAutoCmd)
	archiveCmd.AddCommand(archiveListCmd)
	rootCmd.AddCommand(archiveCmd)
}
