package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dexhq/dex/internal/issuemd"
	"github.com/dexhq/dex/pkg/models"
)

// fakeStore implements core.TaskStore in memory.
type fakeStore struct {
	tasks []*models.Task
	saves int
}

func (s *fakeStore) Load() ([]*models.Task, error) {
	out := make([]*models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out, nil
}

func (s *fakeStore) Save(tasks []*models.Task) error {
	s.saves++
	s.tasks = tasks
	return nil
}

func (s *fakeStore) byID(id string) *models.Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// fakeIssues implements IssueService against an in-memory issue.
type fakeIssues struct {
	title string
	body  string
	edits int
}

func (f *fakeIssues) GetIssue(_ context.Context, number int) (string, string, error) {
	return f.title, f.body, nil
}

func (f *fakeIssues) UpdateIssueBody(_ context.Context, number int, body string) error {
	f.body = body
	f.edits++
	return nil
}

func (f *fakeIssues) CreateIssue(_ context.Context, title, body string) (int, error) {
	f.title, f.body = title, body
	return 1, nil
}

var syncClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func syncTask(id, parentID, description string) *models.Task {
	return &models.Task{
		ID:          id,
		ParentID:    parentID,
		Description: description,
		CreatedAt:   syncClock,
		UpdatedAt:   syncClock,
	}
}

func newSyncManager(store *fakeStore, issues *fakeIssues) *IssueSyncManager {
	m := NewIssueSyncManager(store, issues, nil, "acme/widgets")
	m.now = func() time.Time { return syncClock }
	return m
}

func TestPushEmbedsDirectChildren(t *testing.T) {
	store := &fakeStore{tasks: []*models.Task{
		syncTask("1", "", "root"),
		syncTask("2", "1", "first child"),
		syncTask("3", "1", "second child"),
		syncTask("4", "2", "grandchild"),
	}}
	store.tasks[0].Context = "issue context"
	issues := &fakeIssues{}
	m := newSyncManager(store, issues)

	result, err := m.Push(context.Background(), "1", 9, false)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if result.Subtasks != 2 {
		t.Errorf("Subtasks = %d, want direct children only", result.Subtasks)
	}

	parsed, err := issuemd.ParseIssueBody(issues.body)
	if err != nil {
		t.Fatalf("ParseIssueBody: %v", err)
	}
	if parsed.Context != "issue context" {
		t.Errorf("context = %q", parsed.Context)
	}
	if len(parsed.Subtasks) != 2 {
		t.Fatalf("embedded = %d, want 2", len(parsed.Subtasks))
	}
	if parsed.Subtasks[0].ID != "9-1" || parsed.Subtasks[1].ID != "9-2" {
		t.Errorf("compound ids = %s, %s", parsed.Subtasks[0].ID, parsed.Subtasks[1].ID)
	}

	// The compound ids are persisted in task metadata for later pulls.
	child := store.byID("2")
	if child.Metadata == nil || child.Metadata.Issue == nil || child.Metadata.Issue.SubtaskID != "9-1" {
		t.Errorf("child metadata = %+v", child.Metadata)
	}
	root := store.byID("1")
	if root.Metadata == nil || root.Metadata.Issue == nil || root.Metadata.Issue.Number != 9 {
		t.Errorf("root metadata = %+v", root.Metadata)
	}
	if root.Metadata.Issue.SubtaskID != "" {
		t.Errorf("root must carry no compound id, got %q", root.Metadata.Issue.SubtaskID)
	}
}

func TestPushHierarchicalEmbedsDescendants(t *testing.T) {
	store := &fakeStore{tasks: []*models.Task{
		syncTask("1", "", "root"),
		syncTask("2", "1", "child"),
		syncTask("3", "2", "grandchild"),
	}}
	issues := &fakeIssues{}
	m := newSyncManager(store, issues)

	result, err := m.Push(context.Background(), "1", 9, true)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if result.Subtasks != 2 {
		t.Errorf("Subtasks = %d, want the full descendant set", result.Subtasks)
	}

	tree, err := issuemd.ParseHierarchicalIssueBody(issues.body)
	if err != nil {
		t.Fatalf("ParseHierarchicalIssueBody: %v", err)
	}
	if len(tree.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(tree.Entries))
	}
	if tree.Entries[0].Depth != 0 || tree.Entries[1].Depth != 1 {
		t.Errorf("depths = %d, %d, want 0, 1", tree.Entries[0].Depth, tree.Entries[1].Depth)
	}
	if tree.Entries[1].ParentID != tree.Entries[0].Subtask.ID {
		t.Errorf("parent link = %q, want %q", tree.Entries[1].ParentID, tree.Entries[0].Subtask.ID)
	}
}

func TestPushUnknownRootFails(t *testing.T) {
	m := newSyncManager(&fakeStore{}, &fakeIssues{})
	if _, err := m.Push(context.Background(), "42", 9, false); err == nil {
		t.Fatal("expected error for unknown root")
	}
}

func TestPullCreatesTasksFromFreshIssue(t *testing.T) {
	body := issuemd.RenderIssueBody("imported context", []issuemd.Subtask{
		{ID: "9-1", Description: "imported work", Priority: 1, CreatedAt: syncClock, UpdatedAt: syncClock},
	})
	store := &fakeStore{}
	issues := &fakeIssues{title: "Imported feature", body: body}
	m := newSyncManager(store, issues)

	result, err := m.Pull(context.Background(), 9, false)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	// A new root plus one subtask.
	if result.Created != 2 || result.Updated != 0 {
		t.Errorf("result = %+v, want 2 created", result)
	}

	root := store.byID(result.RootID)
	if root == nil || root.Description != "Imported feature" || root.Context != "imported context" {
		t.Errorf("root = %+v", root)
	}

	var sub *models.Task
	for _, task := range store.tasks {
		if task.Metadata != nil && task.Metadata.Issue != nil && task.Metadata.Issue.SubtaskID == "9-1" {
			sub = task
		}
	}
	if sub == nil {
		t.Fatal("subtask with compound id 9-1 not created")
	}
	if sub.ParentID != root.ID || sub.Description != "imported work" || sub.Priority != 1 {
		t.Errorf("subtask = %+v", sub)
	}
}

func TestPullIDAllocationIgnoresNonNumericIDs(t *testing.T) {
	// "12abc" is not a numeric id and must not bump the sequence.
	store := &fakeStore{tasks: []*models.Task{
		syncTask("12abc", "", "imported elsewhere"),
		syncTask("3", "", "numeric"),
	}}
	issues := &fakeIssues{title: "fresh issue", body: ""}
	m := newSyncManager(store, issues)

	result, err := m.Pull(context.Background(), 9, false)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if result.RootID != "4" {
		t.Errorf("root id = %q, want 4", result.RootID)
	}
}

func TestPullUpdatesExistingTasks(t *testing.T) {
	store := &fakeStore{tasks: []*models.Task{
		syncTask("1", "", "root"),
		syncTask("2", "1", "old description"),
	}}
	store.tasks[0].Metadata = &models.TaskMetadata{Issue: &models.IssueRef{Repo: "acme/widgets", Number: 9}}
	store.tasks[1].Metadata = &models.TaskMetadata{Issue: &models.IssueRef{Repo: "acme/widgets", Number: 9, SubtaskID: "9-1"}}

	completedAt := syncClock.Add(-time.Hour)
	body := issuemd.RenderIssueBody("ctx", []issuemd.Subtask{
		{
			ID: "9-1", Description: "edited on github", Completed: true,
			CompletedAt: &completedAt, Result: "closed by review",
			CreatedAt: syncClock, UpdatedAt: syncClock,
		},
	})
	issues := &fakeIssues{title: "root", body: body}
	m := newSyncManager(store, issues)

	result, err := m.Pull(context.Background(), 9, false)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if result.Created != 0 || result.Updated != 1 {
		t.Errorf("result = %+v, want 1 updated", result)
	}

	task := store.byID("2")
	if task.Description != "edited on github" {
		t.Errorf("Description = %q", task.Description)
	}
	if !task.Completed || task.CompletedAt == nil || !task.CompletedAt.Equal(completedAt) {
		t.Errorf("completion not merged: %+v", task)
	}
	if task.Result != "closed by review" {
		t.Errorf("Result = %q", task.Result)
	}
}

func TestPullCountsMalformedBlocks(t *testing.T) {
	body := "ctx\n\n## Subtasks\n\n" +
		"<details>\n<summary>[ ] no id</summary>\n</details>\n\n" +
		"<details>\n<summary>[ ] bad compound id</summary>\n<!-- dex:subtask:id:not-a-compound -->\n</details>\n\n" +
		"<details>\n<summary>[ ] good</summary>\n<!-- dex:subtask:id:9-1 -->\n</details>\n"
	store := &fakeStore{}
	issues := &fakeIssues{title: "rough issue", body: body}
	m := newSyncManager(store, issues)

	result, err := m.Pull(context.Background(), 9, false)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", result.Skipped)
	}
	// Root plus the one good subtask.
	if result.Created != 2 {
		t.Errorf("Created = %d, want 2", result.Created)
	}
}

func TestPullHierarchicalRestoresParentLinks(t *testing.T) {
	store := &fakeStore{tasks: []*models.Task{
		syncTask("1", "", "root"),
		syncTask("2", "1", "child"),
		syncTask("3", "2", "grandchild"),
	}}
	issues := &fakeIssues{title: "root"}
	m := newSyncManager(store, issues)

	// Round trip: push the tree, wipe local parent links, pull them back.
	if _, err := m.Push(context.Background(), "1", 9, true); err != nil {
		t.Fatalf("Push: %v", err)
	}
	store.byID("3").ParentID = "1"

	if _, err := m.Pull(context.Background(), 9, true); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if got := store.byID("3").ParentID; got != "2" {
		t.Errorf("grandchild parent = %q, want restored to 2", got)
	}
}

func TestPushThenPullIsLossless(t *testing.T) {
	store := &fakeStore{tasks: []*models.Task{
		syncTask("1", "", "root"),
		syncTask("2", "1", "unchanged work"),
	}}
	store.tasks[1].Context = "stable notes"
	store.tasks[1].Priority = 3
	issues := &fakeIssues{title: "root"}
	m := newSyncManager(store, issues)

	if _, err := m.Push(context.Background(), "1", 9, false); err != nil {
		t.Fatalf("Push: %v", err)
	}
	before := fmt.Sprintf("%+v", store.byID("2"))

	result, err := m.Pull(context.Background(), 9, false)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if result.Created != 0 {
		t.Errorf("Created = %d, want 0 on an unchanged round trip", result.Created)
	}

	after := store.byID("2")
	if after.Description != "unchanged work" || after.Context != "stable notes" || after.Priority != 3 {
		t.Errorf("round trip changed the task:\nbefore %s\nafter  %+v", before, after)
	}
}

func TestPushBodyIsStableAcrossRepeats(t *testing.T) {
	store := &fakeStore{tasks: []*models.Task{
		syncTask("1", "", "root"),
		syncTask("2", "1", "child"),
	}}
	issues := &fakeIssues{}
	m := newSyncManager(store, issues)

	if _, err := m.Push(context.Background(), "1", 9, false); err != nil {
		t.Fatalf("first Push: %v", err)
	}
	first := issues.body
	if _, err := m.Push(context.Background(), "1", 9, false); err != nil {
		t.Fatalf("second Push: %v", err)
	}
	if !strings.Contains(first, "## Subtasks") || issues.body != first {
		t.Error("repeated push produced a different body")
	}
}
