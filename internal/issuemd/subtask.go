// Package issuemd implements the Markdown embedding protocol that mirrors
// a root task and its subtasks into the body of a single GitHub issue.
//
// The grammar is deliberately tiny: free-form context text, a section
// header, and a sequence of <details> blocks whose structured fields live
// in "dex:subtask" HTML comments. Hand-edited or malformed bodies are
// tolerated; bad blocks are dropped and counted, never fatal.
package issuemd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dexhq/dex/pkg/models"
)

// Subtask is the transient view of a task embedded in an issue body. Its
// ID is a compound id "{issueNumber}-{localIndex}" so subtasks inside one
// issue have globally addressable identifiers without separate issues.
type Subtask struct {
	ID          string
	Description string
	Context     string
	Priority    int
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	Result      string
	Commit      *models.CommitRef
}

// TreeEntry is one row of the flattened hierarchical form: a subtask, its
// depth below the issue root, and the compound id of its parent ("" for
// direct children of the issue).
type TreeEntry struct {
	Subtask  Subtask
	Depth    int
	ParentID string
}

// CreateSubtaskID formats the compound id for the index-th subtask
// (1-based) of the given issue. It is the exact inverse of
// ParseSubtaskID.
func CreateSubtaskID(issueNumber, index int) string {
	return fmt.Sprintf("%d-%d", issueNumber, index)
}

// ParseSubtaskID decodes a compound id, splitting on the last "-". It
// returns ok=false for anything that is not "{integer}-{positiveInteger}"
// with digits only on both sides; hand-typed or malformed ids are never a
// panic or an error, just not a compound id.
func ParseSubtaskID(id string) (issueNumber, index int, ok bool) {
	sep := strings.LastIndex(id, "-")
	if sep <= 0 || sep == len(id)-1 {
		return 0, 0, false
	}
	left, right := id[:sep], id[sep+1:]
	if !allDigits(left) || !allDigits(right) {
		return 0, 0, false
	}
	issueNumber, err := strconv.Atoi(left)
	if err != nil {
		return 0, 0, false
	}
	index, err = strconv.Atoi(right)
	if err != nil || index < 1 {
		return 0, 0, false
	}
	return issueNumber, index, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
