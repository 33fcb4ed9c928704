package store

import (
	"testing"
	"time"

	"gantterm/internal/model"
)

func taskAt(id, parent, rank string, created time.Time) *model.Task {
	t := &model.Task{ID: id, Rank: rank, Title: id, CreatedAt: created, UpdatedAt: created}
	if parent != "" {
		p := parent
		t.ParentID = &p
	}
	return t
}

func TestCompareTasks_RankThenCreatedAtThenID(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	a := taskAt("a", "", "h", now)
	b := taskAt("b", "", "q", now)
	if CompareTasks(a, b) >= 0 {
		t.Fatalf("rank %q should sort before %q", a.Rank, b.Rank)
	}

	// Equal ranks fall back to CreatedAt.
	c := taskAt("c", "", "h", now.Add(time.Second))
	if CompareTasks(a, c) >= 0 {
		t.Fatalf("equal ranks should order by CreatedAt")
	}

	// Equal rank and CreatedAt fall back to ID; the order must be total so
	// rebuilds never reshuffle rows.
	d := taskAt("d", "", "h", now)
	if CompareTasks(a, d) >= 0 || CompareTasks(d, a) <= 0 {
		t.Fatalf("equal rank+CreatedAt should order by ID")
	}

	// A missing rank on either side disables rank comparison entirely.
	e := taskAt("e", "", "", now.Add(-time.Hour))
	if CompareTasks(e, a) >= 0 {
		t.Fatalf("unranked older task should sort first by CreatedAt")
	}
}

func TestChildrenOf_RootsAndSorting(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := &DB{Tasks: []*model.Task{
		taskAt("r2", "", "q", now),
		taskAt("r1", "", "h", now),
		taskAt("c1", "r1", "h", now),
		taskAt("c2", "r1", "8", now),
	}}

	roots := db.ChildrenOf("")
	if len(roots) != 2 || roots[0].ID != "r1" || roots[1].ID != "r2" {
		t.Fatalf("unexpected root order: %+v", ids(roots))
	}
	kids := db.ChildrenOf("r1")
	if len(kids) != 2 || kids[0].ID != "c2" || kids[1].ID != "c1" {
		t.Fatalf("unexpected child order: %+v", ids(kids))
	}
}

func ids(tasks []*model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestDepthAndIsAncestor(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := &DB{Tasks: []*model.Task{
		taskAt("a", "", "h", now),
		taskAt("b", "a", "h", now),
		taskAt("c", "b", "h", now),
	}}

	if d := db.Depth("a"); d != 0 {
		t.Fatalf("root depth = %d, want 0", d)
	}
	if d := db.Depth("c"); d != 2 {
		t.Fatalf("depth(c) = %d, want 2", d)
	}

	if !db.IsAncestor("a", "c") {
		t.Fatalf("a should be an ancestor of c")
	}
	if db.IsAncestor("c", "a") {
		t.Fatalf("c must not be an ancestor of a")
	}
	if db.IsAncestor("a", "a") {
		t.Fatalf("a task is not its own ancestor")
	}
}

func TestIsAncestor_BrokenChainTerminates(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	// b's parent points at a missing task; the walk must stop, not loop.
	db := &DB{Tasks: []*model.Task{
		taskAt("b", "ghost", "h", now),
	}}
	if db.IsAncestor("a", "b") {
		t.Fatalf("broken chain should not report ancestry")
	}
	if d := db.Depth("b"); d != 0 {
		t.Fatalf("depth over broken chain = %d, want 0", d)
	}
}

func TestMaxChildRank(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := &DB{Tasks: []*model.Task{
		taskAt("r", "", "h", now),
		taskAt("c1", "r", "h", now),
		taskAt("c2", "r", "q", now),
	}}
	if got := db.MaxChildRank("r"); got != "q" {
		t.Fatalf("MaxChildRank = %q, want %q", got, "q")
	}
	if got := db.MaxChildRank("c1"); got != "" {
		t.Fatalf("leaf MaxChildRank = %q, want empty", got)
	}
	if got := db.MaxRootRank(); got != "h" {
		t.Fatalf("MaxRootRank = %q, want %q", got, "h")
	}
}

func TestNewTaskID_AvoidsCollisions(t *testing.T) {
	db := &DB{}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewTaskID(db)
		if err != nil {
			t.Fatalf("NewTaskID: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		db.Tasks = append(db.Tasks, &model.Task{ID: id})
	}
}
