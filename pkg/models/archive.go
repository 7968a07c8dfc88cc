package models

import "time"

// ArchivedTask is the immutable, compacted projection of a completed task.
// Compaction renames Description to Name and Context to Description, keeps
// only the issue and commit metadata, and discards priority and blocking
// edges. Direct children are rolled up into ArchivedChildren; children of
// children are compacted into their own ArchivedTask records.
type ArchivedTask struct {
	ID               string          `json:"id"`
	ParentID         string          `json:"parent_id,omitempty"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Result           string          `json:"result,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	ArchivedAt       time.Time       `json:"archived_at"`
	Metadata         *TaskMetadata   `json:"metadata,omitempty"`
	ArchivedChildren []ArchivedChild `json:"archived_children,omitempty"`
}

// ArchivedChild is the minimal summary kept for each direct child of an
// archived task.
type ArchivedChild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Result      string `json:"result,omitempty"`
}
