package integration

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dexhq/dex/internal/core"
	"github.com/dexhq/dex/internal/issuemd"
	"github.com/dexhq/dex/pkg/models"
)

// PushResult reports an outbound sync.
type PushResult struct {
	IssueNumber int
	Subtasks    int
}

// PullResult reports an inbound sync: how many local tasks were created
// or updated from the issue body, and how many embedded blocks or ids
// were skipped as malformed.
type PullResult struct {
	RootID  string
	Created int
	Updated int
	Skipped int
}

// IssueSyncManager mirrors a root task and its subtasks into a single
// GitHub issue body and back, using the issuemd protocol. It is the only
// component that assigns compound subtask ids.
type IssueSyncManager struct {
	store  core.TaskStore
	issues IssueService
	events core.EventLogger
	repo   string
	now    func() time.Time
}

// NewIssueSyncManager creates an IssueSyncManager. events may be nil.
func NewIssueSyncManager(store core.TaskStore, issues IssueService, events core.EventLogger, repo string) *IssueSyncManager {
	return &IssueSyncManager{
		store:  store,
		issues: issues,
		events: events,
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Push renders the subtree under rootID into the body of the given issue.
// In flat mode only direct children are embedded; in hierarchical mode
// the full descendant set goes out with depth markers. Compound ids are
// assigned by position (1-based) and recorded in each task's metadata so
// a later pull can match records back.
func (m *IssueSyncManager) Push(ctx context.Context, rootID string, issueNumber int, hierarchical bool) (*PushResult, error) {
	active, err := m.store.Load()
	if err != nil {
		return nil, fmt.Errorf("pushing to issue #%d: %w", issueNumber, err)
	}
	tasks := core.IndexTasks(active)

	root, ok := tasks[rootID]
	if !ok {
		return nil, fmt.Errorf("pushing to issue #%d: root %s: %w", issueNumber, rootID, core.ErrTaskNotFound)
	}

	var embedded []*models.Task
	if hierarchical {
		embedded = core.Descendants(rootID, tasks)
	} else {
		embedded = core.ChildrenOf(rootID, tasks)
	}

	// Assign compound ids by position and remember them in metadata.
	subtaskIDs := make(map[string]string, len(embedded))
	for i, t := range embedded {
		sid := issuemd.CreateSubtaskID(issueNumber, i+1)
		subtaskIDs[t.ID] = sid
		setIssueRef(t, m.repo, issueNumber, sid)
	}
	setIssueRef(root, m.repo, issueNumber, "")

	var body string
	if hierarchical {
		entries := make([]issuemd.TreeEntry, len(embedded))
		for i, t := range embedded {
			entries[i] = issuemd.TreeEntry{
				Subtask:  taskToSubtask(t, subtaskIDs[t.ID]),
				Depth:    len(core.Ancestors(t.ID, tasks)) - len(core.Ancestors(rootID, tasks)) - 1,
				ParentID: subtaskIDs[t.ParentID],
			}
		}
		body = issuemd.RenderHierarchicalIssueBody(root.Context, entries)
	} else {
		subtasks := make([]issuemd.Subtask, len(embedded))
		for i, t := range embedded {
			subtasks[i] = taskToSubtask(t, subtaskIDs[t.ID])
		}
		body = issuemd.RenderIssueBody(root.Context, subtasks)
	}

	if err := m.issues.UpdateIssueBody(ctx, issueNumber, body); err != nil {
		return nil, fmt.Errorf("pushing to issue #%d: %w", issueNumber, err)
	}

	if err := m.store.Save(active); err != nil {
		return nil, fmt.Errorf("pushing to issue #%d: saving subtask ids: %w", issueNumber, err)
	}

	m.logEvent("sync.push", map[string]any{"issue": issueNumber, "root": rootID, "subtasks": len(embedded)})
	return &PushResult{IssueNumber: issueNumber, Subtasks: len(embedded)}, nil
}

// Pull reads an issue body, parses the embedded subtasks, and merges them
// into the active graph. Tasks are matched by the compound id recorded in
// their metadata; unmatched subtasks become new tasks under the issue's
// root. If no local root is associated with the issue yet, one is
// created from the issue title and context.
func (m *IssueSyncManager) Pull(ctx context.Context, issueNumber int, hierarchical bool) (*PullResult, error) {
	title, body, err := m.issues.GetIssue(ctx, issueNumber)
	if err != nil {
		return nil, fmt.Errorf("pulling issue #%d: %w", issueNumber, err)
	}

	var issueContext string
	var parsed []issuemd.TreeEntry
	skipped := 0
	if hierarchical {
		tree, err := issuemd.ParseHierarchicalIssueBody(body)
		if err != nil {
			return nil, fmt.Errorf("pulling issue #%d: %w", issueNumber, err)
		}
		issueContext = tree.Context
		parsed = tree.Entries
		skipped = tree.SkippedBlocks
	} else {
		flat, err := issuemd.ParseIssueBody(body)
		if err != nil {
			return nil, fmt.Errorf("pulling issue #%d: %w", issueNumber, err)
		}
		issueContext = flat.Context
		for _, st := range flat.Subtasks {
			parsed = append(parsed, issuemd.TreeEntry{Subtask: st, Depth: 0})
		}
		skipped = flat.SkippedBlocks
	}

	active, err := m.store.Load()
	if err != nil {
		return nil, fmt.Errorf("pulling issue #%d: %w", issueNumber, err)
	}

	result := &PullResult{Skipped: skipped}
	now := m.now()

	root := findIssueRoot(active, issueNumber)
	if root == nil {
		root = &models.Task{
			ID:          nextNumericID(active),
			Description: title,
			Context:     issueContext,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		setIssueRef(root, m.repo, issueNumber, "")
		active = append(active, root)
		result.Created++
	} else {
		root.Context = issueContext
		root.UpdatedAt = now
	}
	result.RootID = root.ID

	// First pass: merge or create each embedded subtask.
	byCompoundID := make(map[string]*models.Task)
	for _, t := range active {
		if sid := compoundID(t); sid != "" {
			byCompoundID[sid] = t
		}
	}
	for _, entry := range parsed {
		st := entry.Subtask
		if _, _, ok := issuemd.ParseSubtaskID(st.ID); !ok {
			result.Skipped++
			continue
		}

		task, exists := byCompoundID[st.ID]
		if !exists {
			task = &models.Task{
				ID:        nextNumericID(active),
				ParentID:  root.ID,
				CreatedAt: now,
			}
			setIssueRef(task, m.repo, issueNumber, st.ID)
			active = append(active, task)
			byCompoundID[st.ID] = task
			result.Created++
		} else {
			result.Updated++
		}

		applySubtask(task, st, now)
	}

	// Second pass: resolve embedded parent links now that every compound
	// id has a task.
	for _, entry := range parsed {
		if entry.ParentID == "" {
			continue
		}
		child, okChild := byCompoundID[entry.Subtask.ID]
		parent, okParent := byCompoundID[entry.ParentID]
		if okChild && okParent && !core.WouldCreateCycle(child.ID, parent.ID, core.IndexTasks(active)) {
			child.ParentID = parent.ID
		}
	}

	if err := m.store.Save(active); err != nil {
		return nil, fmt.Errorf("pulling issue #%d: %w", issueNumber, err)
	}

	m.logEvent("sync.pull", map[string]any{
		"issue": issueNumber, "created": result.Created,
		"updated": result.Updated, "skipped": result.Skipped,
	})
	return result, nil
}

func (m *IssueSyncManager) logEvent(eventType string, data map[string]any) {
	if m.events == nil {
		return
	}
	_ = m.events.LogEvent(eventType, data)
}

// taskToSubtask builds the embedded view of a task under its compound id.
func taskToSubtask(t *models.Task, subtaskID string) issuemd.Subtask {
	st := issuemd.Subtask{
		ID:          subtaskID,
		Description: t.Description,
		Context:     t.Context,
		Priority:    t.Priority,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
		Result:      t.Result,
	}
	if t.Metadata != nil {
		st.Commit = t.Metadata.Commit
	}
	return st
}

// applySubtask copies the embedded fields back onto a task.
func applySubtask(task *models.Task, st issuemd.Subtask, now time.Time) {
	if st.Description != "" {
		task.Description = st.Description
	}
	task.Context = st.Context
	task.Priority = st.Priority
	task.Result = st.Result
	task.Completed = st.Completed
	if st.Completed {
		at := now
		if st.CompletedAt != nil {
			at = *st.CompletedAt
		}
		task.CompletedAt = &at
	} else {
		task.CompletedAt = nil
	}
	if st.Commit != nil {
		if task.Metadata == nil {
			task.Metadata = &models.TaskMetadata{}
		}
		task.Metadata.Commit = st.Commit
	}
	task.UpdatedAt = now
}

func setIssueRef(t *models.Task, repo string, number int, subtaskID string) {
	if t.Metadata == nil {
		t.Metadata = &models.TaskMetadata{}
	}
	t.Metadata.Issue = &models.IssueRef{Repo: repo, Number: number, SubtaskID: subtaskID}
}

// compoundID returns the compound id recorded in a task's metadata, or "".
func compoundID(t *models.Task) string {
	if t.Metadata == nil || t.Metadata.Issue == nil {
		return ""
	}
	return t.Metadata.Issue.SubtaskID
}

// findIssueRoot returns the task holding the root association (an issue
// reference with no compound id) for the given issue number.
func findIssueRoot(tasks []*models.Task, issueNumber int) *models.Task {
	for _, t := range tasks {
		if t.Metadata != nil && t.Metadata.Issue != nil &&
			t.Metadata.Issue.Number == issueNumber && t.Metadata.Issue.SubtaskID == "" {
			return t
		}
	}
	return nil
}

// nextNumericID mirrors the task manager's id assignment for tasks
// created during a pull.
func nextNumericID(tasks []*models.Task) string {
	max := 0
	for _, t := range tasks {
		if n, err := strconv.Atoi(t.ID); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}
