package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// completeTaskIDs returns a completion function that lists task IDs,
// optionally restricted to completed tasks.
func completeTaskIDs(completedOnly bool) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if TaskMgr == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		tasks, err := TaskMgr.GetAllTasks()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		var ids []string
		for _, task := range tasks {
			if completedOnly && !task.Completed {
				continue
			}
			if toComplete == "" || strings.HasPrefix(task.ID, toComplete) {
				// Include the description for better UX.
				ids = append(ids, task.ID+"\t"+task.Description)
			}
		}

		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}
