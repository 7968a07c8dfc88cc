// Package core contains the business logic for dex: the task graph,
// archive compaction, the auto-archive policy engine, task lifecycle
// management, and configuration.
package core

import (
	"sort"
	"strconv"

	"github.com/dexhq/dex/pkg/models"
)

// IndexTasks builds the arena-style index keyed by task id. Children are
// always derived from ParentID back-references, never stored as forward
// edges.
func IndexTasks(tasks []*models.Task) map[string]*models.Task {
	index := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		index[t.ID] = t
	}
	return index
}

// ChildrenOf returns the direct children of the given task, sorted by id.
func ChildrenOf(id string, tasks map[string]*models.Task) []*models.Task {
	var children []*models.Task
	for _, t := range tasks {
		if t.ParentID == id {
			children = append(children, t)
		}
	}
	SortTasksByID(children)
	return children
}

// Descendants returns every task transitively below the given id, in
// breadth-first order with siblings sorted by id.
func Descendants(id string, tasks map[string]*models.Task) []*models.Task {
	var result []*models.Task
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range ChildrenOf(current, tasks) {
			result = append(result, child)
			queue = append(queue, child.ID)
		}
	}
	return result
}

// Ancestors walks upward from the given task via ParentID and returns the
// chain of existing ancestors, nearest first. A dangling ParentID ends the
// walk.
func Ancestors(id string, tasks map[string]*models.Task) []*models.Task {
	var result []*models.Task
	seen := map[string]bool{id: true}
	current, ok := tasks[id]
	for ok && current.ParentID != "" {
		parent, exists := tasks[current.ParentID]
		if !exists || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		result = append(result, parent)
		current = parent
		ok = true
	}
	return result
}

// WouldCreateCycle reports whether reparenting taskID under newParentID
// would make the task its own ancestor.
func WouldCreateCycle(taskID, newParentID string, tasks map[string]*models.Task) bool {
	if taskID == newParentID {
		return true
	}
	current, ok := tasks[newParentID]
	seen := make(map[string]bool)
	for ok {
		if current.ID == taskID {
			return true
		}
		if seen[current.ID] {
			return false
		}
		seen[current.ID] = true
		if current.ParentID == "" {
			return false
		}
		current, ok = tasks[current.ParentID]
	}
	return false
}

// AddBlocking records that blocker blocks blocked, keeping the BlockedBy
// and Blocks edge sets mutually consistent.
func AddBlocking(blocker, blocked *models.Task) {
	if !containsID(blocker.Blocks, blocked.ID) {
		blocker.Blocks = append(blocker.Blocks, blocked.ID)
		sort.Strings(blocker.Blocks)
	}
	if !containsID(blocked.BlockedBy, blocker.ID) {
		blocked.BlockedBy = append(blocked.BlockedBy, blocker.ID)
		sort.Strings(blocked.BlockedBy)
	}
}

// RemoveBlocking removes the blocking edge between blocker and blocked,
// if present, from both sides.
func RemoveBlocking(blocker, blocked *models.Task) {
	blocker.Blocks = removeID(blocker.Blocks, blocked.ID)
	blocked.BlockedBy = removeID(blocked.BlockedBy, blocker.ID)
}

// CleanupReferences prunes every BlockedBy/Blocks entry pointing at an id
// in removed, across the entire remaining set. It also clears ParentID
// fields that reference removed tasks so no dangling parent references
// survive a deletion or archival pass.
func CleanupReferences(tasks map[string]*models.Task, removed map[string]bool) {
	for _, t := range tasks {
		t.BlockedBy = pruneIDs(t.BlockedBy, removed)
		t.Blocks = pruneIDs(t.Blocks, removed)
		if t.ParentID != "" && removed[t.ParentID] {
			t.ParentID = ""
		}
	}
}

// SortTasksByID sorts tasks by id, comparing numerically when both ids are
// integers so "10" sorts after "9".
func SortTasksByID(tasks []*models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return LessID(tasks[i].ID, tasks[j].ID)
	})
}

// LessID compares two task ids, numerically when both parse as integers.
func LessID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	var result []string
	for _, existing := range ids {
		if existing != id {
			result = append(result, existing)
		}
	}
	return result
}

func pruneIDs(ids []string, removed map[string]bool) []string {
	var result []string
	for _, id := range ids {
		if !removed[id] {
			result = append(result, id)
		}
	}
	return result
}
