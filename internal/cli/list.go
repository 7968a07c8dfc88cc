package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dexhq/dex/internal/core"
	"github.com/dexhq/dex/pkg/models"
)

var (
	listAllFlag  bool
	listFlatFlag bool
)

// List view styles.
var (
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
	blockedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priorityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks as a tree",
	Long: `List active tasks as an indented tree, root tasks first with their
subtasks nested below.

Completed tasks are hidden by default; pass --all to include them.
Pass --flat for one line per task without tree indentation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		tasks, err := TaskMgr.GetAllTasks()
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		visible := tasks
		if !listAllFlag {
			visible = nil
			index := core.IndexTasks(tasks)
			for _, t := range tasks {
				if pendingInSubtree(t, index) {
					visible = append(visible, t)
				}
			}
		}

		if len(visible) == 0 {
			fmt.Println("No tasks. Use \"dex add\" to create one.")
			return nil
		}

		index := core.IndexTasks(visible)
		if listFlatFlag {
			for _, t := range visible {
				fmt.Println(renderTaskLine(t, 0))
			}
			return nil
		}

		for _, t := range visible {
			if !t.IsRoot() {
				if _, parentVisible := index[t.ParentID]; parentVisible {
					continue
				}
			}
			printSubtree(t, 0, index)
		}

		return nil
	},
}

// pendingInSubtree reports whether a task or any of its descendants is
// still pending, which keeps completed parents of pending work visible.
func pendingInSubtree(t *models.Task, index map[string]*models.Task) bool {
	if !t.Completed {
		return true
	}
	for _, child := range core.ChildrenOf(t.ID, index) {
		if pendingInSubtree(child, index) {
			return true
		}
	}
	return false
}

func printSubtree(t *models.Task, depth int, index map[string]*models.Task) {
	fmt.Println(renderTaskLine(t, depth))
	for _, child := range core.ChildrenOf(t.ID, index) {
		printSubtree(child, depth+1, index)
	}
}

func renderTaskLine(t *models.Task, depth int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))

	check := "[ ]"
	style := pendingStyle
	if t.Completed {
		check = "[x]"
		style = doneStyle
	} else if len(t.BlockedBy) > 0 {
		style = blockedStyle
	}

	b.WriteString(style.Render(check + " " + t.Description))
	b.WriteString(" ")
	b.WriteString(idStyle.Render("(" + t.ID + ")"))
	b.WriteString(" ")
	b.WriteString(priorityStyle.Render(fmt.Sprintf("P%d", t.Priority)))
	if len(t.BlockedBy) > 0 {
		b.WriteString(" ")
		b.WriteString(blockedStyle.Render("blocked by " + strings.Join(t.BlockedBy, ", ")))
	}
	return b.String()
}

func init() {
	listCmd.Flags().BoolVarP(&listAllFlag, "all", "a", false, "include completed tasks")
	listCmd.Flags().BoolVar(&listFlatFlag, "flat", false, "one line per task, no tree indentation")
	rootCmd.AddCommand(listCmd)
}
