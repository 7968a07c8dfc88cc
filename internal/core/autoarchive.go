package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/dexhq/dex/pkg/models"
)

// TaskStore is the subset of storage.TaskStoreManager that core services
// need. Defining it here keeps core independent of the storage package.
type TaskStore interface {
	Load() ([]*models.Task, error)
	Save(tasks []*models.Task) error
}

// ArchiveStore is the subset of storage.ArchiveStoreManager that core
// services need.
type ArchiveStore interface {
	Append(records []models.ArchivedTask) (int, error)
	Load() ([]models.ArchivedTask, error)
}

// AuditLogger records one human-readable line per auto-archive event.
type AuditLogger interface {
	RecordAutoArchive(id, name string) error
}

// AutoArchiveResult reports the outcome of an auto-archive sweep.
// ArchivedCount counts roots only; ArchivedIDs lists every removed task,
// descendants included.
type AutoArchiveResult struct {
	ArchivedCount int
	ArchivedIDs   []string
}

// CanAutoArchive reports whether a single root task is eligible for the
// automatic sweep at the given time: it must be a completed root with
// CompletedAt set, at least cfg.AgeDays old, outside the keep-recent
// window, and every descendant must be completed.
func CanAutoArchive(task *models.Task, tasks map[string]*models.Task, cfg models.AutoArchiveConfig, now time.Time) bool {
	if !task.IsRoot() || !task.Completed || task.CompletedAt == nil {
		return false
	}
	minAge := time.Duration(cfg.AgeDays) * 24 * time.Hour
	if now.Sub(*task.CompletedAt) < minAge {
		return false
	}
	if inKeepRecentWindow(task.ID, tasks, cfg.KeepRecent) {
		return false
	}
	if _, err := CollectArchivableTasks(task.ID, tasks); err != nil {
		return false
	}
	return true
}

// FindAutoArchivableTasks evaluates only root-level completed tasks; a
// task with an active parent is never independently archived, it goes out
// only as part of its root's subtree. Results are sorted by id.
func FindAutoArchivableTasks(tasks map[string]*models.Task, cfg models.AutoArchiveConfig, now time.Time) []*models.Task {
	var eligible []*models.Task
	for _, t := range tasks {
		if t.IsRoot() && CanAutoArchive(t, tasks, cfg, now) {
			eligible = append(eligible, t)
		}
	}
	SortTasksByID(eligible)
	return eligible
}

// inKeepRecentWindow reports whether the task is among the keepRecent
// most-recently-completed root tasks. The window guarantees a minimum
// recent-history view regardless of age.
func inKeepRecentWindow(id string, tasks map[string]*models.Task, keepRecent int) bool {
	if keepRecent <= 0 {
		return false
	}
	var completedRoots []*models.Task
	for _, t := range tasks {
		if t.IsRoot() && t.Completed && t.CompletedAt != nil {
			completedRoots = append(completedRoots, t)
		}
	}
	sort.Slice(completedRoots, func(i, j int) bool {
		a, b := completedRoots[i], completedRoots[j]
		if !a.CompletedAt.Equal(*b.CompletedAt) {
			return a.CompletedAt.After(*b.CompletedAt)
		}
		return LessID(a.ID, b.ID)
	})
	for i, t := range completedRoots {
		if i >= keepRecent {
			return false
		}
		if t.ID == id {
			return true
		}
	}
	return false
}

// PerformAutoArchive runs one archival sweep: it selects eligible roots,
// compacts each with its full descendant set, appends the records to the
// archive store, removes the archived ids from the active set, prunes
// blocking references to them, and writes the active store exactly once.
// The sweep is all-or-nothing per invocation: nothing is written until
// every selected task has been compacted in memory.
//
// The sweep is a no-op unless cfg.Auto is true.
func PerformAutoArchive(store TaskStore, archive ArchiveStore, audit AuditLogger, cfg models.AutoArchiveConfig, now time.Time) (*AutoArchiveResult, error) {
	result := &AutoArchiveResult{}
	if !cfg.Auto {
		return result, nil
	}

	active, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("auto-archive: %w", err)
	}
	tasks := IndexTasks(active)

	roots := FindAutoArchivableTasks(tasks, cfg, now)
	if len(roots) == 0 {
		return result, nil
	}

	// Compact everything in memory first so a failure leaves no partial
	// archive state.
	var records []models.ArchivedTask
	removed := make(map[string]bool)
	for _, root := range roots {
		set, err := CollectArchivableTasks(root.ID, tasks)
		if err != nil {
			return nil, fmt.Errorf("auto-archive root %s: %w", root.ID, err)
		}
		records = append(records, CompactSet(set, tasks, now)...)
		for _, id := range set.IDs() {
			removed[id] = true
			result.ArchivedIDs = append(result.ArchivedIDs, id)
		}
	}
	result.ArchivedCount = len(roots)

	if _, err := archive.Append(records); err != nil {
		return nil, fmt.Errorf("auto-archive: appending to archive store: %w", err)
	}

	var remaining []*models.Task
	for _, t := range active {
		if !removed[t.ID] {
			remaining = append(remaining, t)
		}
	}
	CleanupReferences(IndexTasks(remaining), removed)

	if err := store.Save(remaining); err != nil {
		return nil, fmt.Errorf("auto-archive: writing active store: %w", err)
	}

	if audit != nil {
		for _, root := range roots {
			if err := audit.RecordAutoArchive(root.ID, root.Description); err != nil {
				return nil, fmt.Errorf("auto-archive: recording audit line for %s: %w", root.ID, err)
			}
		}
	}

	return result, nil
}
