package issuemd

import (
	"strings"
	"testing"
	"time"

	"github.com/dexhq/dex/pkg/models"
)

var renderClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleSubtask(id, description string) Subtask {
	return Subtask{
		ID:          id,
		Description: description,
		Priority:    2,
		CreatedAt:   renderClock,
		UpdatedAt:   renderClock,
	}
}

func TestRenderIssueBodyNoSubtasksReturnsContext(t *testing.T) {
	if got := RenderIssueBody("just context", nil); got != "just context" {
		t.Errorf("body = %q, want the context unchanged", got)
	}
}

func TestRenderIssueBodyExactForm(t *testing.T) {
	st := sampleSubtask("9-1", "Do the thing")
	body := RenderIssueBody("ctx", []Subtask{st})

	want := "ctx\n\n## Subtasks\n\n" +
		"<details>\n" +
		"<summary>[ ] Do the thing</summary>\n" +
		"<!-- dex:subtask:id:9-1 -->\n" +
		"<!-- dex:subtask:priority:2 -->\n" +
		"<!-- dex:subtask:completed:false -->\n" +
		"<!-- dex:subtask:created_at:2024-06-01T12:00:00Z -->\n" +
		"<!-- dex:subtask:updated_at:2024-06-01T12:00:00Z -->\n" +
		"</details>\n"
	if body != want {
		t.Errorf("body mismatch:\ngot:\n%s\nwant:\n%s", body, want)
	}
}

func TestRenderIssueBodyCompletedBlock(t *testing.T) {
	completedAt := renderClock.Add(time.Hour)
	st := sampleSubtask("9-2", "Finished work")
	st.Completed = true
	st.CompletedAt = &completedAt
	st.Context = "why it mattered"
	st.Result = "merged"
	st.Commit = &models.CommitRef{Hash: "abc123", Message: "fix the bug"}

	body := RenderIssueBody("ctx", []Subtask{st})

	for _, fragment := range []string{
		"<summary>[x] Finished work</summary>",
		"<!-- dex:subtask:completed:true -->",
		"<!-- dex:subtask:completed_at:2024-06-01T13:00:00Z -->",
		"<!-- dex:subtask:commit_hash:abc123 -->",
		"<!-- dex:subtask:commit_message:fix the bug -->",
		"\n### Context\nwhy it mattered\n",
		"\n### Result\nmerged\n",
	} {
		if !strings.Contains(body, fragment) {
			t.Errorf("body missing %q:\n%s", fragment, body)
		}
	}
}

func TestRenderIssueBodyIsDeterministic(t *testing.T) {
	subtasks := []Subtask{sampleSubtask("9-1", "a"), sampleSubtask("9-2", "b")}

	first := RenderIssueBody("ctx", subtasks)
	second := RenderIssueBody("ctx", subtasks)
	if first != second {
		t.Error("identical input produced different bodies")
	}
}

func TestRenderEscapesHostileDescription(t *testing.T) {
	st := sampleSubtask("9-1", "evil --> breakout")
	body := RenderIssueBody("ctx", []Subtask{st})

	// The summary label is display-only; the id comment must stay intact.
	if !strings.Contains(body, "<!-- dex:subtask:id:9-1 -->") {
		t.Errorf("id comment broken:\n%s", body)
	}

	parsed, err := ParseIssueBody(body)
	if err != nil {
		t.Fatalf("ParseIssueBody: %v", err)
	}
	if len(parsed.Subtasks) != 1 {
		t.Fatalf("subtasks = %d, want 1", len(parsed.Subtasks))
	}
}

func TestRenderHierarchicalIssueBodyTreeAndDetails(t *testing.T) {
	child := sampleSubtask("9-1", "parent work")
	grand := sampleSubtask("9-2", "nested work")

	body := RenderHierarchicalIssueBody("ctx", []TreeEntry{
		{Subtask: child, Depth: 0},
		{Subtask: grand, Depth: 1, ParentID: "9-1"},
	})

	if !strings.Contains(body, "## Task Tree") || !strings.Contains(body, "## Task Details") {
		t.Fatalf("missing section headers:\n%s", body)
	}
	if !strings.Contains(body, "\n- [ ] parent work") {
		t.Errorf("tree missing top-level bullet:\n%s", body)
	}
	if !strings.Contains(body, "\n  - [ ] nested work") {
		t.Errorf("tree missing indented bullet:\n%s", body)
	}
	if !strings.Contains(body, "<summary>[ ] "+depthMarker+"nested work</summary>") {
		t.Errorf("details missing depth marker:\n%s", body)
	}
	if !strings.Contains(body, "<!-- dex:subtask:parent:9-1 -->") {
		t.Errorf("details missing parent comment:\n%s", body)
	}
}

func TestRenderParseRenderIsIdempotent(t *testing.T) {
	completedAt := renderClock.Add(time.Hour)
	done := sampleSubtask("9-1", "done work")
	done.Completed = true
	done.CompletedAt = &completedAt
	done.Result = "landed"
	pending := sampleSubtask("9-2", "pending work")
	pending.Context = "details here"

	first := RenderIssueBody("original context", []Subtask{done, pending})

	parsed, err := ParseIssueBody(first)
	if err != nil {
		t.Fatalf("ParseIssueBody: %v", err)
	}
	second := RenderIssueBody(parsed.Context, parsed.Subtasks)

	if first != second {
		t.Errorf("render/parse/render not byte-identical:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}
