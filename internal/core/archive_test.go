package core

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dexhq/dex/pkg/models"
)

func TestCollectArchivableTasksRequiresCompletion(t *testing.T) {
	done := testClock.Add(-time.Hour)

	t.Run("unknown root", func(t *testing.T) {
		_, err := CollectArchivableTasks("9", buildIndex())
		if !errors.Is(err, ErrTaskNotFound) {
			t.Errorf("err = %v, want ErrTaskNotFound", err)
		}
	})

	t.Run("pending root", func(t *testing.T) {
		_, err := CollectArchivableTasks("1", buildIndex(makeTask("1", "", "pending")))
		if !errors.Is(err, ErrNotCompleted) {
			t.Errorf("err = %v, want ErrNotCompleted", err)
		}
	})

	t.Run("pending descendant", func(t *testing.T) {
		index := buildIndex(
			makeCompletedTask("1", "", "root", done),
			makeCompletedTask("2", "1", "child", done),
			makeTask("3", "2", "pending grandchild"),
		)
		_, err := CollectArchivableTasks("1", index)
		if !errors.Is(err, ErrIncompleteDescendants) {
			t.Errorf("err = %v, want ErrIncompleteDescendants", err)
		}
	})

	t.Run("fully completed subtree", func(t *testing.T) {
		index := buildIndex(
			makeCompletedTask("1", "", "root", done),
			makeCompletedTask("2", "1", "child", done),
			makeCompletedTask("3", "2", "grandchild", done),
		)
		set, err := CollectArchivableTasks("1", index)
		if err != nil {
			t.Fatalf("CollectArchivableTasks: %v", err)
		}
		if got := set.IDs(); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
			t.Errorf("ids = %v", got)
		}
	})
}

func TestAncestorsCompleted(t *testing.T) {
	done := testClock.Add(-time.Hour)
	index := buildIndex(
		makeTask("1", "", "pending root"),
		makeCompletedTask("2", "1", "child", done),
		makeCompletedTask("3", "2", "grandchild", done),
	)

	if AncestorsCompleted("3", index) {
		t.Error("pending root not detected in ancestry")
	}
	if !AncestorsCompleted("1", index) {
		t.Error("root has no ancestors and must pass")
	}
}

func TestValidateArchivableChecksBothSides(t *testing.T) {
	done := testClock.Add(-time.Hour)
	index := buildIndex(
		makeTask("1", "", "pending root"),
		makeCompletedTask("2", "1", "completed child", done),
	)

	_, err := ValidateArchivable("2", index)
	if !errors.Is(err, ErrIncompleteAncestors) {
		t.Errorf("err = %v, want ErrIncompleteAncestors", err)
	}
}

func TestCompactTaskProjectsFields(t *testing.T) {
	done := testClock.Add(-time.Hour)
	archivedAt := testClock

	task := makeCompletedTask("1", "", "Ship feature", done)
	task.Context = "Long planning notes"
	task.Result = "Shipped in v2"
	task.Priority = 1
	task.BlockedBy = []string{"7"}
	task.Metadata = &models.TaskMetadata{
		Issue:  &models.IssueRef{Repo: "acme/widgets", Number: 9},
		Commit: &models.CommitRef{Hash: "abc123", Message: "fix"},
	}

	child := makeCompletedTask("2", "1", "Subtask", done)
	child.Context = "child notes"
	child.Result = "done"

	archived := CompactTask(task, []*models.Task{child}, archivedAt)

	if archived.Name != "Ship feature" || archived.Description != "Long planning notes" {
		t.Errorf("projection wrong: %+v", archived)
	}
	if archived.Result != "Shipped in v2" {
		t.Errorf("Result = %q", archived.Result)
	}
	if archived.CompletedAt == nil || !archived.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt = %v, want %v", archived.CompletedAt, done)
	}
	if !archived.ArchivedAt.Equal(archivedAt) {
		t.Errorf("ArchivedAt = %v, want %v", archived.ArchivedAt, archivedAt)
	}
	if archived.Metadata == nil || archived.Metadata.Issue.Number != 9 || archived.Metadata.Commit.Hash != "abc123" {
		t.Errorf("metadata not carried: %+v", archived.Metadata)
	}

	if len(archived.ArchivedChildren) != 1 {
		t.Fatalf("ArchivedChildren = %d, want 1", len(archived.ArchivedChildren))
	}
	want := models.ArchivedChild{ID: "2", Name: "Subtask", Description: "child notes", Result: "done"}
	if archived.ArchivedChildren[0] != want {
		t.Errorf("child = %+v, want %+v", archived.ArchivedChildren[0], want)
	}
}

func TestCompactTaskRollupIsOneLevelDeep(t *testing.T) {
	done := testClock.Add(-time.Hour)
	index := buildIndex(
		makeCompletedTask("1", "", "root", done),
		makeCompletedTask("2", "1", "child", done),
		makeCompletedTask("3", "2", "grandchild", done),
	)

	set, err := CollectArchivableTasks("1", index)
	if err != nil {
		t.Fatalf("CollectArchivableTasks: %v", err)
	}
	records := CompactSet(set, index, testClock)

	if len(records) != 3 {
		t.Fatalf("records = %d, want one per task", len(records))
	}

	// The root's rollup holds only its direct child; the grandchild
	// appears only in the child's record.
	root := records[0]
	if len(root.ArchivedChildren) != 1 || root.ArchivedChildren[0].ID != "2" {
		t.Errorf("root rollup = %+v, want only the direct child", root.ArchivedChildren)
	}
	child := records[1]
	if len(child.ArchivedChildren) != 1 || child.ArchivedChildren[0].ID != "3" {
		t.Errorf("child rollup = %+v, want only the grandchild", child.ArchivedChildren)
	}
}

func TestCompactTaskIsDeterministic(t *testing.T) {
	done := testClock.Add(-time.Hour)
	task := makeCompletedTask("1", "", "work", done)
	task.Context = "notes"

	first := CompactTask(task, nil, testClock)
	second := CompactTask(task, nil, testClock)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("compaction not deterministic:\n%+v\n%+v", first, second)
	}
}
