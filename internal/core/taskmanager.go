package core

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dexhq/dex/pkg/models"
)

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability
// package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// CreateTaskInput carries the caller-supplied fields for a new task.
type CreateTaskInput struct {
	Description string
	Context     string
	Priority    int
	ParentID    string
}

// TaskManager defines the interface for task lifecycle operations. Every
// operation is one read-modify-write cycle of the active store so multiple
// logical mutations never leave interleaved partial states.
type TaskManager interface {
	CreateTask(input CreateTaskInput) (*models.Task, error)
	GetTask(taskID string) (*models.Task, error)
	GetAllTasks() ([]*models.Task, error)
	UpdateTask(taskID string, update func(*models.Task) error) (*models.Task, error)
	CompleteTask(taskID string, result string) (*models.Task, error)
	ReopenTask(taskID string) (*models.Task, error)
	BlockTask(blockerID, blockedID string) error
	UnblockTask(blockerID, blockedID string) error
	DeleteTask(taskID string) error
	ArchiveTask(taskID string) (*AutoArchiveResult, error)
	AutoArchive(cfg models.AutoArchiveConfig) (*AutoArchiveResult, error)
}

// taskManager implements TaskManager over the JSONL stores.
type taskManager struct {
	store   TaskStore
	archive ArchiveStore
	audit   AuditLogger
	events  EventLogger
	now     func() time.Time
}

// NewTaskManager creates a TaskManager with all dependencies injected.
// events may be nil if observability is disabled.
func NewTaskManager(store TaskStore, archive ArchiveStore, audit AuditLogger, events EventLogger) TaskManager {
	return &taskManager{
		store:   store,
		archive: archive,
		audit:   audit,
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateTask assigns the next sequential numeric id, validates the parent,
// and appends the task to the active store.
func (tm *taskManager) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if input.Description == "" {
		return nil, fmt.Errorf("creating task: description must not be empty")
	}

	active, err := tm.store.Load()
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	tasks := IndexTasks(active)

	if input.ParentID != "" {
		parent, ok := tasks[input.ParentID]
		if !ok {
			return nil, fmt.Errorf("creating task: parent %s: %w", input.ParentID, ErrTaskNotFound)
		}
		if depthOf(parent, tasks) >= 2 {
			return nil, fmt.Errorf("creating task: parent %s is already at maximum nesting depth", input.ParentID)
		}
	}

	now := tm.now()
	task := &models.Task{
		ID:          nextTaskID(active),
		ParentID:    input.ParentID,
		Description: input.Description,
		Context:     input.Context,
		Priority:    input.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	active = append(active, task)
	if err := tm.store.Save(active); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	tm.logEvent("task.created", map[string]any{"id": task.ID, "parent_id": task.ParentID})
	return task.Clone(), nil
}

// GetTask returns a single task by id.
func (tm *taskManager) GetTask(taskID string) (*models.Task, error) {
	active, err := tm.store.Load()
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", taskID, err)
	}
	for _, t := range active {
		if t.ID == taskID {
			return t.Clone(), nil
		}
	}
	return nil, fmt.Errorf("getting task %s: %w", taskID, ErrTaskNotFound)
}

// GetAllTasks returns the full active set sorted by id.
func (tm *taskManager) GetAllTasks() ([]*models.Task, error) {
	active, err := tm.store.Load()
	if err != nil {
		return nil, fmt.Errorf("getting all tasks: %w", err)
	}
	SortTasksByID(active)
	return active, nil
}

// UpdateTask applies the given mutation to a task inside a single
// read-modify-write cycle. The mutation sees the stored task; UpdatedAt is
// refreshed after it returns.
func (tm *taskManager) UpdateTask(taskID string, update func(*models.Task) error) (*models.Task, error) {
	active, err := tm.store.Load()
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}

	task := findTask(active, taskID)
	if task == nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, ErrTaskNotFound)
	}

	if err := update(task); err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}
	task.UpdatedAt = tm.now()

	if err := tm.store.Save(active); err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}
	return task.Clone(), nil
}

// CompleteTask marks a task completed, setting CompletedAt and the
// optional result text.
func (tm *taskManager) CompleteTask(taskID string, result string) (*models.Task, error) {
	task, err := tm.UpdateTask(taskID, func(t *models.Task) error {
		if t.Completed {
			return fmt.Errorf("task is already completed")
		}
		now := tm.now()
		t.Completed = true
		t.CompletedAt = &now
		if result != "" {
			t.Result = result
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	tm.logEvent("task.completed", map[string]any{"id": taskID})
	return task, nil
}

// ReopenTask clears the completion state of a task.
func (tm *taskManager) ReopenTask(taskID string) (*models.Task, error) {
	return tm.UpdateTask(taskID, func(t *models.Task) error {
		if !t.Completed {
			return fmt.Errorf("task is not completed")
		}
		t.Completed = false
		t.CompletedAt = nil
		t.Result = ""
		return nil
	})
}

// BlockTask records that blockerID blocks blockedID, keeping both edge
// sets consistent.
func (tm *taskManager) BlockTask(blockerID, blockedID string) error {
	if blockerID == blockedID {
		return fmt.Errorf("blocking task %s: a task cannot block itself", blockerID)
	}
	return tm.mutateEdges("blocking", blockerID, blockedID, AddBlocking)
}

// UnblockTask removes the blocking edge between the two tasks.
func (tm *taskManager) UnblockTask(blockerID, blockedID string) error {
	return tm.mutateEdges("unblocking", blockerID, blockedID, RemoveBlocking)
}

func (tm *taskManager) mutateEdges(verb, blockerID, blockedID string, apply func(blocker, blocked *models.Task)) error {
	active, err := tm.store.Load()
	if err != nil {
		return fmt.Errorf("%s task %s: %w", verb, blockedID, err)
	}

	blocker := findTask(active, blockerID)
	if blocker == nil {
		return fmt.Errorf("%s task: blocker %s: %w", verb, blockerID, ErrTaskNotFound)
	}
	blocked := findTask(active, blockedID)
	if blocked == nil {
		return fmt.Errorf("%s task: %s: %w", verb, blockedID, ErrTaskNotFound)
	}

	apply(blocker, blocked)
	now := tm.now()
	blocker.UpdatedAt = now
	blocked.UpdatedAt = now

	if err := tm.store.Save(active); err != nil {
		return fmt.Errorf("%s task %s: %w", verb, blockedID, err)
	}
	return nil
}

// DeleteTask removes a task and reparents its children to the deleted
// task's parent. Blocking references to the removed id are pruned across
// the remaining set in the same write.
func (tm *taskManager) DeleteTask(taskID string) error {
	active, err := tm.store.Load()
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", taskID, err)
	}

	task := findTask(active, taskID)
	if task == nil {
		return fmt.Errorf("deleting task %s: %w", taskID, ErrTaskNotFound)
	}

	var remaining []*models.Task
	for _, t := range active {
		if t.ID == taskID {
			continue
		}
		if t.ParentID == taskID {
			t.ParentID = task.ParentID
		}
		remaining = append(remaining, t)
	}
	CleanupReferences(IndexTasks(remaining), map[string]bool{taskID: true})

	if err := tm.store.Save(remaining); err != nil {
		return fmt.Errorf("deleting task %s: %w", taskID, err)
	}

	tm.logEvent("task.deleted", map[string]any{"id": taskID})
	return nil
}

// ArchiveTask explicitly archives one completed root task and its
// completed descendants. Validation covers both sides of the lineage:
// incomplete descendants or ancestors abort the operation with no partial
// archive state.
func (tm *taskManager) ArchiveTask(taskID string) (*AutoArchiveResult, error) {
	active, err := tm.store.Load()
	if err != nil {
		return nil, fmt.Errorf("archiving task %s: %w", taskID, err)
	}
	tasks := IndexTasks(active)

	set, err := ValidateArchivable(taskID, tasks)
	if err != nil {
		return nil, fmt.Errorf("archiving task %s: %w", taskID, err)
	}

	now := tm.now()
	records := CompactSet(set, tasks, now)
	if _, err := tm.archive.Append(records); err != nil {
		return nil, fmt.Errorf("archiving task %s: %w", taskID, err)
	}

	removed := make(map[string]bool, len(records))
	for _, id := range set.IDs() {
		removed[id] = true
	}

	var remaining []*models.Task
	for _, t := range active {
		if !removed[t.ID] {
			remaining = append(remaining, t)
		}
	}
	CleanupReferences(IndexTasks(remaining), removed)

	if err := tm.store.Save(remaining); err != nil {
		return nil, fmt.Errorf("archiving task %s: %w", taskID, err)
	}

	tm.logEvent("task.archived", map[string]any{"id": taskID, "records": len(records)})
	return &AutoArchiveResult{ArchivedCount: 1, ArchivedIDs: set.IDs()}, nil
}

// AutoArchive runs the policy-driven sweep with the configured age and
// keep-recent rules.
func (tm *taskManager) AutoArchive(cfg models.AutoArchiveConfig) (*AutoArchiveResult, error) {
	result, err := PerformAutoArchive(tm.store, tm.archive, tm.audit, cfg, tm.now())
	if err != nil {
		return nil, err
	}
	if result.ArchivedCount > 0 {
		tm.logEvent("task.auto_archived", map[string]any{"roots": result.ArchivedCount, "ids": result.ArchivedIDs})
	}
	return result, nil
}

func (tm *taskManager) logEvent(eventType string, data map[string]any) {
	if tm.events == nil {
		return
	}
	_ = tm.events.LogEvent(eventType, data) // Non-fatal if the event log is unavailable.
}

// nextTaskID returns the successor of the highest numeric id in use.
// Non-numeric ids (imported from elsewhere) are ignored for numbering.
func nextTaskID(tasks []*models.Task) string {
	max := 0
	for _, t := range tasks {
		if n, err := strconv.Atoi(t.ID); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}

// depthOf returns how many ancestors a task has.
func depthOf(task *models.Task, tasks map[string]*models.Task) int {
	return len(Ancestors(task.ID, tasks))
}

func findTask(tasks []*models.Task, id string) *models.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
