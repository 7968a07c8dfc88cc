package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dexhq/dex/internal/observability"
)

// Dashboard panel indices.
const (
	panelTasks = iota
	panelArchive
	panelActivity
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	pendingCount   int
	completedCount int
	blockedCount   int
	archiveCount   int
	recentArchive  []archiveSnapshot
	activity       []activitySnapshot

	// State.
	loading bool
	err     error
}

type archiveSnapshot struct {
	id   string
	name string
}

type activitySnapshot struct {
	eventType string
	time      string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	pending       int
	completed     int
	blocked       int
	archiveCount  int
	recentArchive []archiveSnapshot
	activity      []activitySnapshot
	err           error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelTasks,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.pendingCount = msg.pending
		m.completedCount = msg.completed
		m.blockedCount = msg.blocked
		m.archiveCount = msg.archiveCount
		m.recentArchive = msg.recentArchive
		m.activity = msg.activity
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" dex Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	tasksPanel := m.renderTasksPanel()
	archivePanel := m.renderArchivePanel()
	activityPanel := m.renderActivityPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: three columns.
		colWidth := availableWidth / 3
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		archivePanel = m.applyPanelStyle(panelArchive, archivePanel, colWidth-4)
		activityPanel = m.applyPanelStyle(panelActivity, activityPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, tasksPanel, archivePanel, activityPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		archivePanel = m.applyPanelStyle(panelArchive, archivePanel, panelWidth)
		activityPanel = m.applyPanelStyle(panelActivity, activityPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, tasksPanel, archivePanel, activityPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n")

	total := m.pendingCount + m.completedCount
	if total == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	b.WriteString(pendingStyle.Render(fmt.Sprintf("  %-12s %d", "pending", m.pendingCount)))
	b.WriteString("\n")
	if m.blockedCount > 0 {
		b.WriteString(blockedStyle.Render(fmt.Sprintf("  %-12s %d", "blocked", m.blockedCount)))
		b.WriteString("\n")
	}
	b.WriteString(doneStyle.Render(fmt.Sprintf("  %-12s %d", "completed", m.completedCount)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))

	return b.String()
}

func (m dashboardModel) renderArchivePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Archive"))
	b.WriteString("\n")

	if m.archiveCount == 0 {
		b.WriteString("  Archive is empty.")
		return b.String()
	}

	for _, r := range m.recentArchive {
		b.WriteString(fmt.Sprintf("  %s  %s\n", r.id, r.name))
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d record(s)", m.archiveCount))

	return b.String()
}

func (m dashboardModel) renderActivityPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Activity (7d)"))
	b.WriteString("\n")

	if len(m.activity) == 0 {
		b.WriteString("  No recent activity.")
		return b.String()
	}

	for _, a := range m.activity {
		b.WriteString(fmt.Sprintf("  %s  %s\n", a.time, a.eventType))
	}

	return b.String()
}

// maxDashboardRows bounds the archive and activity panels.
const maxDashboardRows = 10

func loadData() tea.Msg {
	var result dataLoadedMsg

	if TaskMgr != nil {
		tasks, err := TaskMgr.GetAllTasks()
		if err != nil {
			result.err = fmt.Errorf("loading tasks: %w", err)
			return result
		}
		for _, t := range tasks {
			if t.Completed {
				result.completed++
			} else {
				result.pending++
				if len(t.BlockedBy) > 0 {
					result.blocked++
				}
			}
		}
	}

	if ArchiveRd != nil {
		records, err := ArchiveRd.Load()
		if err != nil {
			result.err = fmt.Errorf("loading archive: %w", err)
			return result
		}
		result.archiveCount = len(records)
		start := len(records) - maxDashboardRows
		if start < 0 {
			start = 0
		}
		for _, r := range records[start:] {
			result.recentArchive = append(result.recentArchive, archiveSnapshot{id: r.ID, name: r.Name})
		}
	}

	if EventLog != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		events, err := EventLog.Read(observability.EventFilter{Since: &since})
		if err != nil {
			result.err = fmt.Errorf("loading events: %w", err)
			return result
		}
		start := len(events) - maxDashboardRows
		if start < 0 {
			start = 0
		}
		for _, e := range events[start:] {
			result.activity = append(result.activity, activitySnapshot{
				eventType: e.Type,
				time:      e.Time.Format("01-02 15:04"),
			})
		}
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for tasks, archive, and activity",
	Long: `Launch an interactive terminal dashboard showing pending and completed
task counts, recent archive records, and recent activity from the event
log.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
