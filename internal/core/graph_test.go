package core

import (
	"reflect"
	"testing"

	"github.com/dexhq/dex/pkg/models"
)

func buildIndex(tasks ...*models.Task) map[string]*models.Task {
	return IndexTasks(tasks)
}

func TestChildrenOfSortsByID(t *testing.T) {
	index := buildIndex(
		makeTask("1", "", "root"),
		makeTask("10", "1", "tenth"),
		makeTask("2", "1", "second"),
		makeTask("3", "2", "grandchild"),
	)

	children := ChildrenOf("1", index)
	got := make([]string, len(children))
	for i, c := range children {
		got[i] = c.ID
	}
	// Numeric-aware ordering: 2 before 10.
	want := []string{"2", "10"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}
}

func TestDescendantsWalksBreadthFirst(t *testing.T) {
	index := buildIndex(
		makeTask("1", "", "root"),
		makeTask("2", "1", "child a"),
		makeTask("3", "1", "child b"),
		makeTask("4", "2", "grandchild"),
	)

	descendants := Descendants("1", index)
	got := make([]string, len(descendants))
	for i, d := range descendants {
		got[i] = d.ID
	}
	want := []string{"2", "3", "4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("descendants = %v, want %v", got, want)
	}
}

func TestAncestorsNearestFirst(t *testing.T) {
	index := buildIndex(
		makeTask("1", "", "root"),
		makeTask("2", "1", "child"),
		makeTask("3", "2", "grandchild"),
	)

	ancestors := Ancestors("3", index)
	got := make([]string, len(ancestors))
	for i, a := range ancestors {
		got[i] = a.ID
	}
	want := []string{"2", "1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ancestors = %v, want %v", got, want)
	}
}

func TestAncestorsStopsAtDanglingParent(t *testing.T) {
	index := buildIndex(makeTask("2", "99", "orphan"))
	if got := Ancestors("2", index); len(got) != 0 {
		t.Errorf("ancestors = %v, want none", got)
	}
}

func TestWouldCreateCycle(t *testing.T) {
	index := buildIndex(
		makeTask("1", "", "root"),
		makeTask("2", "1", "child"),
		makeTask("3", "2", "grandchild"),
	)

	cases := []struct {
		name      string
		taskID    string
		newParent string
		want      bool
	}{
		{"own descendant", "1", "3", true},
		{"self", "1", "1", true},
		{"sibling move", "3", "1", false},
		{"unknown parent", "2", "99", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WouldCreateCycle(tc.taskID, tc.newParent, index); got != tc.want {
				t.Errorf("WouldCreateCycle(%s, %s) = %v, want %v", tc.taskID, tc.newParent, got, tc.want)
			}
		})
	}
}

func TestCleanupReferencesPrunesRemovedIDs(t *testing.T) {
	a := makeTask("1", "", "a")
	b := makeTask("2", "9", "b")
	a.Blocks = []string{"9", "2"}
	b.BlockedBy = []string{"9", "1"}
	index := buildIndex(a, b)

	CleanupReferences(index, map[string]bool{"9": true})

	if !reflect.DeepEqual(a.Blocks, []string{"2"}) {
		t.Errorf("a.Blocks = %v, want [2]", a.Blocks)
	}
	if !reflect.DeepEqual(b.BlockedBy, []string{"1"}) {
		t.Errorf("b.BlockedBy = %v, want [1]", b.BlockedBy)
	}
	if b.ParentID != "" {
		t.Errorf("b.ParentID = %q, want cleared", b.ParentID)
	}
}

func TestLessIDOrdersNumericallyThenLexically(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"2", "10", true},
		{"10", "2", false},
		{"3", "3", false},
		{"3-1", "3-2", true},
		{"abc", "abd", true},
	}
	for _, tc := range cases {
		if got := LessID(tc.a, tc.b); got != tc.want {
			t.Errorf("LessID(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSortTasksByID(t *testing.T) {
	tasks := []*models.Task{
		makeTask("10", "", "ten"),
		makeTask("2", "", "two"),
		makeTask("1", "", "one"),
	}
	SortTasksByID(tasks)
	got := []string{tasks[0].ID, tasks[1].ID, tasks[2].ID}
	if !reflect.DeepEqual(got, []string{"1", "2", "10"}) {
		t.Errorf("sorted = %v", got)
	}
}
