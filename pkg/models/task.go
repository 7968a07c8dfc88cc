// Package models defines the data types shared across dex: active tasks,
// archived tasks, and configuration.
package models

import "time"

// Task is a mutable unit of work. Tasks form a tree via ParentID (depth is
// conventionally capped at three levels: epic, task, subtask) and a directed
// blocking graph via BlockedBy/Blocks.
type Task struct {
	ID          string        `json:"id"`
	ParentID    string        `json:"parent_id,omitempty"`
	Description string        `json:"description"`
	Context     string        `json:"context,omitempty"`
	Priority    int           `json:"priority"`
	Completed   bool          `json:"completed"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Result      string        `json:"result,omitempty"`
	Metadata    *TaskMetadata `json:"metadata,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	BlockedBy   []string      `json:"blocked_by,omitempty"`
	Blocks      []string      `json:"blocks,omitempty"`
}

// IsRoot reports whether the task has no parent.
func (t *Task) IsRoot() bool {
	return t.ParentID == ""
}

// TaskMetadata holds optional structured extensions of a task: a reference
// to the GitHub issue the task is mirrored into, and a commit reference
// recorded on completion.
type TaskMetadata struct {
	Issue  *IssueRef  `json:"issue,omitempty"`
	Commit *CommitRef `json:"commit,omitempty"`
}

// IssueRef identifies the GitHub issue a task is embedded in. SubtaskID is
// the compound id ("{issueNumber}-{localIndex}") assigned when the task is
// rendered into the issue body.
type IssueRef struct {
	Repo      string `json:"repo,omitempty"`
	Number    int    `json:"number"`
	SubtaskID string `json:"subtask_id,omitempty"`
}

// CommitRef records the commit associated with a task's completion.
type CommitRef struct {
	Hash    string `json:"hash"`
	Message string `json:"message,omitempty"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.Metadata != nil {
		m := *t.Metadata
		if t.Metadata.Issue != nil {
			issue := *t.Metadata.Issue
			m.Issue = &issue
		}
		if t.Metadata.Commit != nil {
			commit := *t.Metadata.Commit
			m.Commit = &commit
		}
		c.Metadata = &m
	}
	c.BlockedBy = append([]string(nil), t.BlockedBy...)
	c.Blocks = append([]string(nil), t.Blocks...)
	return &c
}
