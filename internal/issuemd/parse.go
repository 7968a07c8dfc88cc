package issuemd

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dexhq/dex/pkg/models"
)

// ParsedIssue is the result of parsing a flat issue body.
type ParsedIssue struct {
	Context  string
	Subtasks []Subtask
	// SkippedBlocks counts <details> blocks dropped for missing a
	// required id comment. Skipping is local; the rest of the document
	// still parses.
	SkippedBlocks int
}

// ParsedTree is the result of parsing a hierarchical issue body: a flat
// ordered list of entries representing up to two levels of nesting.
type ParsedTree struct {
	Context       string
	Entries       []TreeEntry
	SkippedBlocks int
}

var summaryPattern = regexp.MustCompile(`<summary>\[([ x])\] (.*)</summary>`)

// ParseIssueBody splits an issue body at the first recognized header;
// everything before it is context (verbatim, trimmed) and everything
// after is scanned block by block. Unrecognized headers and stray HTML
// fold into the context rather than aborting. The only fatal input is one
// that is not valid text at all.
func ParseIssueBody(body string) (*ParsedIssue, error) {
	if !utf8.ValidString(body) {
		return nil, fmt.Errorf("parsing issue body: not valid UTF-8 text")
	}

	context, rest := splitAtHeader(body, subtasksHeader, treeHeader, detailsHeader)
	result := &ParsedIssue{Context: context}

	for _, raw := range extractBlocks(rest) {
		st, _, _, ok := parseBlock(raw)
		if !ok {
			result.SkippedBlocks++
			continue
		}
		result.Subtasks = append(result.Subtasks, st)
	}

	return result, nil
}

// ParseHierarchicalIssueBody is the depth-aware sibling of ParseIssueBody.
// The Task Tree checklist is a derived view and is never read; only the
// blocks under "## Task Details" are authoritative. Depth comes from the
// parent comment when present, otherwise from the arrow markers in the
// summary label.
func ParseHierarchicalIssueBody(body string) (*ParsedTree, error) {
	if !utf8.ValidString(body) {
		return nil, fmt.Errorf("parsing issue body: not valid UTF-8 text")
	}

	context, _ := splitAtHeader(body, treeHeader, detailsHeader)
	result := &ParsedTree{Context: context}

	detailsAt := headerIndex(body, detailsHeader)
	if detailsAt < 0 {
		return result, nil
	}

	depthByID := make(map[string]int)
	for _, raw := range extractBlocks(body[detailsAt:]) {
		st, parentID, markerDepth, ok := parseBlock(raw)
		if !ok {
			result.SkippedBlocks++
			continue
		}

		depth := markerDepth
		if parentID != "" {
			// The parent comment wins over the visual marker.
			if parentDepth, known := depthByID[parentID]; known {
				depth = parentDepth + 1
			} else {
				depth = 1
			}
		}
		depthByID[st.ID] = depth

		result.Entries = append(result.Entries, TreeEntry{
			Subtask:  st,
			Depth:    depth,
			ParentID: parentID,
		})
	}

	return result, nil
}

// splitAtHeader returns the trimmed context before the first of the given
// headers and the remainder starting at that header. Without any header
// the whole body is context.
func splitAtHeader(body string, headers ...string) (context, rest string) {
	at := -1
	for _, h := range headers {
		if idx := headerIndex(body, h); idx >= 0 && (at < 0 || idx < at) {
			at = idx
		}
	}
	if at < 0 {
		return strings.TrimSpace(body), ""
	}
	return strings.TrimSpace(body[:at]), body[at:]
}

// headerIndex finds a header at the start of a line.
func headerIndex(body, header string) int {
	if strings.HasPrefix(body, header) {
		return 0
	}
	if idx := strings.Index(body, "\n"+header); idx >= 0 {
		return idx + 1
	}
	return -1
}

// extractBlocks returns the inner text of every <details>...</details>
// pair. An unterminated block is ignored.
func extractBlocks(text string) []string {
	var blocks []string
	for {
		start := strings.Index(text, "<details>")
		if start < 0 {
			return blocks
		}
		text = text[start+len("<details>"):]
		end := strings.Index(text, "</details>")
		if end < 0 {
			return blocks
		}
		blocks = append(blocks, text[:end])
		text = text[end+len("</details>"):]
	}
}

// parseBlock decodes one block body. A block with no id comment is
// malformed and reported via ok=false; everything else is best-effort.
func parseBlock(raw string) (st Subtask, parentID string, markerDepth int, ok bool) {
	meta := parseComments(raw)
	id, hasID := meta["id"]
	if !hasID || id == "" {
		return Subtask{}, "", 0, false
	}
	st.ID = id
	parentID = meta["parent"]

	if m := summaryPattern.FindStringSubmatch(raw); m != nil {
		st.Completed = m[1] == "x"
		label := m[2]
		for strings.HasPrefix(label, depthMarker) {
			label = strings.TrimPrefix(label, depthMarker)
			markerDepth++
		}
		st.Description = strings.TrimSpace(label)
	}

	// Key-based fields win over the checkbox when both are present.
	if v, present := meta["completed"]; present {
		if completed, err := strconv.ParseBool(v); err == nil {
			st.Completed = completed
		}
	}
	if v, present := meta["priority"]; present {
		if p, err := strconv.Atoi(v); err == nil {
			st.Priority = p
		}
	}
	st.CreatedAt = parseTimestamp(meta["created_at"])
	st.UpdatedAt = parseTimestamp(meta["updated_at"])
	if v, present := meta["completed_at"]; present {
		if at := parseTimestamp(v); !at.IsZero() {
			st.CompletedAt = &at
		}
	}
	if hash, present := meta["commit_hash"]; present && hash != "" {
		st.Commit = &models.CommitRef{Hash: hash, Message: meta["commit_message"]}
	}

	st.Context = parseSection(raw, "### Context")
	if st.Context == "" {
		st.Context = parseSection(raw, "### Description")
	}
	st.Result = parseSection(raw, "### Result")

	return st, parentID, markerDepth, true
}

// parseComments collects every "dex:subtask" metadata comment in the
// block, decoding values. Later duplicates overwrite earlier ones.
func parseComments(raw string) map[string]string {
	meta := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, commentPrefix) || !strings.HasSuffix(line, " -->") {
			continue
		}
		inner := line[len(commentPrefix) : len(line)-len(" -->")]
		sep := strings.Index(inner, ":")
		if sep <= 0 {
			continue
		}
		meta[inner[:sep]] = DecodeMetadataValue(inner[sep+1:])
	}
	return meta
}

// parseSection extracts the text between a "### " heading and the next
// heading or the end of the block.
func parseSection(raw, heading string) string {
	idx := headerIndex(raw, heading)
	if idx < 0 {
		return ""
	}
	rest := raw[idx+len(heading):]
	if end := strings.Index(rest, "\n### "); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// parseTimestamp parses an RFC3339 timestamp, returning the zero time for
// anything unparseable so a hand-mangled value never aborts the block.
func parseTimestamp(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
