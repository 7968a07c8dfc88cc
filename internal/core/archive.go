package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/dexhq/dex/pkg/models"
)

// Archival precondition failures. These are validation errors, reported to
// the caller as structured reasons rather than silently skipped.
var (
	ErrTaskNotFound          = errors.New("task not found")
	ErrNotCompleted          = errors.New("task is not completed")
	ErrIncompleteDescendants = errors.New("task has incomplete descendants")
	ErrIncompleteAncestors   = errors.New("task has incomplete ancestors")
)

// ArchivableSet is the validated result of CollectArchivableTasks: a
// completed root task plus all of its (completed) descendants in
// breadth-first order.
type ArchivableSet struct {
	Root        *models.Task
	Descendants []*models.Task
}

// All returns the root followed by its descendants.
func (s *ArchivableSet) All() []*models.Task {
	return append([]*models.Task{s.Root}, s.Descendants...)
}

// IDs returns the ids of every task in the set, root first.
func (s *ArchivableSet) IDs() []string {
	ids := make([]string, 0, len(s.Descendants)+1)
	for _, t := range s.All() {
		ids = append(ids, t.ID)
	}
	return ids
}

// CollectArchivableTasks walks the descendant set of rootID and validates
// that the root and every descendant is completed. It fails rather than
// partially archiving: either the whole subtree is archivable or none of
// it is. Ancestor-side validation is a separate check (AncestorsCompleted)
// so callers can distinguish the two failure modes.
func CollectArchivableTasks(rootID string, tasks map[string]*models.Task) (*ArchivableSet, error) {
	root, ok := tasks[rootID]
	if !ok {
		return nil, fmt.Errorf("collecting archivable tasks for %s: %w", rootID, ErrTaskNotFound)
	}
	if !root.Completed {
		return nil, fmt.Errorf("collecting archivable tasks for %s: %w", rootID, ErrNotCompleted)
	}

	descendants := Descendants(rootID, tasks)
	for _, d := range descendants {
		if !d.Completed {
			return nil, fmt.Errorf("collecting archivable tasks for %s: descendant %s: %w", rootID, d.ID, ErrIncompleteDescendants)
		}
	}

	return &ArchivableSet{Root: root, Descendants: descendants}, nil
}

// AncestorsCompleted walks upward from the given task and reports whether
// every ancestor is completed. Archival must start at the root of a fully
// completed lineage, never from the middle of an active tree.
func AncestorsCompleted(id string, tasks map[string]*models.Task) bool {
	for _, ancestor := range Ancestors(id, tasks) {
		if !ancestor.Completed {
			return false
		}
	}
	return true
}

// ValidateArchivable combines both sides: descendants via
// CollectArchivableTasks and ancestors via AncestorsCompleted.
func ValidateArchivable(rootID string, tasks map[string]*models.Task) (*ArchivableSet, error) {
	set, err := CollectArchivableTasks(rootID, tasks)
	if err != nil {
		return nil, err
	}
	if !AncestorsCompleted(rootID, tasks) {
		return nil, fmt.Errorf("collecting archivable tasks for %s: %w", rootID, ErrIncompleteAncestors)
	}
	return set, nil
}

// CompactTask projects a task into its archived form. The projection is
// deterministic for a fixed archivedAt: Description becomes Name, Context
// becomes Description, and only the issue and commit metadata survive.
// Priority and blocking edges are deliberately discarded.
//
// The rollup is one level deep per call: directChildren become minimal
// summaries, and children of children are compacted independently by the
// caller, so a multi-level completed tree yields one ArchivedTask per
// level.
func CompactTask(task *models.Task, directChildren []*models.Task, archivedAt time.Time) models.ArchivedTask {
	archived := models.ArchivedTask{
		ID:          task.ID,
		ParentID:    task.ParentID,
		Name:        task.Description,
		Description: task.Context,
		Result:      task.Result,
		CompletedAt: task.CompletedAt,
		ArchivedAt:  archivedAt,
	}

	if task.Metadata != nil && (task.Metadata.Issue != nil || task.Metadata.Commit != nil) {
		archived.Metadata = &models.TaskMetadata{
			Issue:  task.Metadata.Issue,
			Commit: task.Metadata.Commit,
		}
	}

	for _, child := range directChildren {
		archived.ArchivedChildren = append(archived.ArchivedChildren, models.ArchivedChild{
			ID:          child.ID,
			Name:        child.Description,
			Description: child.Context,
			Result:      child.Result,
		})
	}

	return archived
}

// CompactSet compacts every task in an archivable set, each with its own
// direct children, producing one ArchivedTask per former active task.
func CompactSet(set *ArchivableSet, tasks map[string]*models.Task, archivedAt time.Time) []models.ArchivedTask {
	records := make([]models.ArchivedTask, 0, len(set.Descendants)+1)
	for _, t := range set.All() {
		records = append(records, CompactTask(t, ChildrenOf(t.ID, tasks), archivedAt))
	}
	return records
}
