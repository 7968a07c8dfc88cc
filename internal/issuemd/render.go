package issuemd

import (
	"fmt"
	"strings"
	"time"
)

// Section headers of the embedding format. The Task Tree checklist is a
// derived, human-skimmable view; only the Task Details blocks are ever
// parsed back.
const (
	subtasksHeader = "## Subtasks"
	treeHeader     = "## Task Tree"
	detailsHeader  = "## Task Details"
)

const commentPrefix = "<!-- dex:subtask:"

// depthMarker prefixes hierarchical summary labels, repeated once per
// nesting level.
const depthMarker = "↳ "

// RenderIssueBody emits the flat one-level form: context, a blank line,
// the "## Subtasks" header, and one <details> block per subtask.
// Rendering is a pure function of its inputs; identical input always
// produces byte-identical output so an unchanged re-sync never creates a
// spurious diff.
func RenderIssueBody(context string, subtasks []Subtask) string {
	if len(subtasks) == 0 {
		return context
	}

	var b strings.Builder
	b.WriteString(context)
	b.WriteString("\n\n")
	b.WriteString(subtasksHeader)
	for _, st := range subtasks {
		b.WriteString("\n\n")
		renderBlock(&b, st, 0, "")
	}
	b.WriteString("\n")
	return b.String()
}

// RenderHierarchicalIssueBody emits the depth-tagged form: context, a
// "## Task Tree" checklist (one indented bullet per descendant), and a
// "## Task Details" section with the authoritative blocks. The checklist
// is regenerated from the blocks on every render, never preserved from a
// previous body.
func RenderHierarchicalIssueBody(context string, entries []TreeEntry) string {
	if len(entries) == 0 {
		return context
	}

	var b strings.Builder
	b.WriteString(context)
	b.WriteString("\n\n")
	b.WriteString(treeHeader)
	b.WriteString("\n")
	for _, e := range entries {
		b.WriteString("\n")
		b.WriteString(strings.Repeat("  ", e.Depth))
		b.WriteString("- ")
		b.WriteString(checkbox(e.Subtask.Completed))
		b.WriteString(" ")
		b.WriteString(sanitizeLabel(e.Subtask.Description))
	}
	b.WriteString("\n\n")
	b.WriteString(detailsHeader)
	for _, e := range entries {
		b.WriteString("\n\n")
		renderBlock(&b, e.Subtask, e.Depth, e.ParentID)
	}
	b.WriteString("\n")
	return b.String()
}

// renderBlock writes one <details> block: the checkbox summary line, the
// metadata comments in canonical order, then the Context and Result
// sections when non-empty. The parser is key-based rather than
// positional, but a fixed comment order keeps re-rendered bodies
// diff-friendly.
func renderBlock(b *strings.Builder, st Subtask, depth int, parentID string) {
	b.WriteString("<details>\n")
	b.WriteString("<summary>")
	b.WriteString(checkbox(st.Completed))
	b.WriteString(" ")
	b.WriteString(strings.Repeat(depthMarker, depth))
	b.WriteString(sanitizeLabel(st.Description))
	b.WriteString("</summary>\n")

	writeComment(b, "id", st.ID)
	if parentID != "" {
		writeComment(b, "parent", parentID)
	}
	writeComment(b, "priority", fmt.Sprintf("%d", st.Priority))
	writeComment(b, "completed", fmt.Sprintf("%t", st.Completed))
	writeComment(b, "created_at", st.CreatedAt.UTC().Format(time.RFC3339))
	writeComment(b, "updated_at", st.UpdatedAt.UTC().Format(time.RFC3339))
	if st.CompletedAt != nil {
		writeComment(b, "completed_at", st.CompletedAt.UTC().Format(time.RFC3339))
	}
	if st.Commit != nil {
		writeComment(b, "commit_hash", st.Commit.Hash)
		if st.Commit.Message != "" {
			writeComment(b, "commit_message", st.Commit.Message)
		}
	}

	if st.Context != "" {
		b.WriteString("\n### Context\n")
		b.WriteString(st.Context)
		b.WriteString("\n")
	}
	if st.Result != "" {
		b.WriteString("\n### Result\n")
		b.WriteString(st.Result)
		b.WriteString("\n")
	}

	b.WriteString("</details>")
}

func writeComment(b *strings.Builder, key, value string) {
	b.WriteString(commentPrefix)
	b.WriteString(key)
	b.WriteString(":")
	b.WriteString(EncodeMetadataValue(value))
	b.WriteString(" -->\n")
}

// checkbox renders the exact bracket form of the summary line: a space
// for pending, "x" for completed.
func checkbox(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

// sanitizeLabel keeps the summary line a single line. Structured fields
// carry the full text; the label is display only.
func sanitizeLabel(label string) string {
	label = strings.ReplaceAll(label, "\r", " ")
	label = strings.ReplaceAll(label, "\n", " ")
	return label
}
