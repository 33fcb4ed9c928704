package mutate

import (
	"errors"
	"testing"
	"time"

	"gantterm/internal/engine"
	"gantterm/internal/model"
	"gantterm/internal/store"
)

func task(id, parent, rank string, created time.Time) *model.Task {
	t := &model.Task{ID: id, Rank: rank, Title: id, CreatedAt: created, UpdatedAt: created}
	if parent != "" {
		p := parent
		t.ParentID = &p
	}
	return t
}

// a(h) > b(h), c(q); d(q) root
func moveFixture(now time.Time) *store.DB {
	return &store.DB{Version: 1, Tasks: []*model.Task{
		task("a", "", "h", now),
		task("b", "a", "h", now),
		task("c", "a", "q", now),
		task("d", "", "q", now),
	}}
}

func flatOrder(db *store.DB) []string {
	var out []string
	var walk func(parent string)
	walk = func(parent string) {
		for _, t := range db.ChildrenOf(parent) {
			out = append(out, t.ID)
			walk(t.ID)
		}
	}
	walk("")
	return out
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplyMove_Child(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)
	later := now.Add(time.Hour)

	changed, err := ApplyMove(db, []string{"d"}, "b", engine.DropChild, later)
	if err != nil || !changed {
		t.Fatalf("ApplyMove: changed=%v err=%v", changed, err)
	}
	d, _ := db.FindTask("d")
	if d.Parent() != "b" {
		t.Fatalf("d parent = %q, want b", d.Parent())
	}
	if !d.UpdatedAt.Equal(later) {
		t.Fatalf("moved task should carry the new UpdatedAt")
	}
	if got, want := flatOrder(db), []string{"a", "b", "d", "c"}; !sameOrder(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestApplyMove_BeforeAndAfter(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)

	if _, err := ApplyMove(db, []string{"d"}, "b", engine.DropBefore, now); err != nil {
		t.Fatalf("before: %v", err)
	}
	if got, want := flatOrder(db), []string{"a", "d", "b", "c"}; !sameOrder(got, want) {
		t.Fatalf("after 'before' move: %v, want %v", got, want)
	}

	if _, err := ApplyMove(db, []string{"d"}, "c", engine.DropAfter, now); err != nil {
		t.Fatalf("after: %v", err)
	}
	if got, want := flatOrder(db), []string{"a", "b", "c", "d"}; !sameOrder(got, want) {
		t.Fatalf("after 'after' move: %v, want %v", got, want)
	}
}

func TestApplyMove_OnlyMovedTasksChangeRank(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)
	b, _ := db.FindTask("b")
	c, _ := db.FindTask("c")
	rb, rc := b.Rank, c.Rank

	if _, err := ApplyMove(db, []string{"d"}, "b", engine.DropAfter, now); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	// Fractional indexing: siblings keep their keys.
	if b.Rank != rb || c.Rank != rc {
		t.Fatalf("unmoved siblings were renumbered: b %q->%q c %q->%q", rb, b.Rank, rc, c.Rank)
	}
	d, _ := db.FindTask("d")
	if !(rb < d.Rank && d.Rank < rc) {
		t.Fatalf("d rank %q not between %q and %q", d.Rank, rb, rc)
	}
}

func TestApplyMove_RejectsCycles(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)

	var cycleErr CycleError
	if _, err := ApplyMove(db, []string{"a"}, "b", engine.DropChild, now); !errors.As(err, &cycleErr) {
		t.Fatalf("moving a under its child must fail, got %v", err)
	}
	// Onto itself.
	if _, err := ApplyMove(db, []string{"a"}, "a", engine.DropChild, now); !errors.As(err, &cycleErr) {
		t.Fatalf("moving a onto itself must fail, got %v", err)
	}
	// Nothing was mutated by the rejected attempts.
	a, _ := db.FindTask("a")
	if a.Parent() != "" {
		t.Fatalf("rejected move must not mutate")
	}
}

func TestApplyMove_MultipleDraggedKeepOrder(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)

	if _, err := ApplyMove(db, []string{"b", "c"}, "d", engine.DropChild, now); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if got, want := flatOrder(db), []string{"a", "d", "b", "c"}; !sameOrder(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	b, _ := db.FindTask("b")
	c, _ := db.FindTask("c")
	if b.Parent() != "d" || c.Parent() != "d" {
		t.Fatalf("both dragged tasks should reparent")
	}
	if !(b.Rank < c.Rank) {
		t.Fatalf("dragged order lost: b=%q c=%q", b.Rank, c.Rank)
	}
}

func TestApplyMove_DuplicateLegacyRanksRebalanceWindow(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	// Legacy data: three siblings sharing rank "h", ordered only by tie-break.
	db := &store.DB{Version: 1, Tasks: []*model.Task{
		task("p", "", "h", now),
		task("x1", "p", "h", now),
		task("x2", "p", "h", now),
		task("x3", "p", "h", now),
		task("d", "", "q", now),
	}}

	changed, err := ApplyMove(db, []string{"d"}, "x2", engine.DropBefore, now)
	if err != nil || !changed {
		t.Fatalf("ApplyMove: changed=%v err=%v", changed, err)
	}
	// The duplicate bounds force a minimal-window rebalance; the moved task
	// must land between x1 and x2, not fall back to the front of the set.
	if got, want := flatOrder(db), []string{"p", "x1", "d", "x2", "x3"}; !sameOrder(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	x1, _ := db.FindTask("x1")
	x2, _ := db.FindTask("x2")
	x3, _ := db.FindTask("x3")
	d, _ := db.FindTask("d")
	if !(x1.Rank < d.Rank && d.Rank < x2.Rank) {
		t.Fatalf("d rank %q not between %q and %q", d.Rank, x1.Rank, x2.Rank)
	}
	// Siblings outside the rebalanced window keep their keys.
	if x2.Rank != "h" || x3.Rank != "h" {
		t.Fatalf("tasks outside the window were renumbered: x2=%q x3=%q", x2.Rank, x3.Rank)
	}
}

func TestApplyMove_UnknownTargetAndIDs(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)

	var nf NotFoundError
	if _, err := ApplyMove(db, []string{"d"}, "ghost", engine.DropChild, now); !errors.As(err, &nf) {
		t.Fatalf("unknown target: %v", err)
	}
	if _, err := ApplyMove(db, []string{"ghost"}, "a", engine.DropChild, now); !errors.As(err, &nf) {
		t.Fatalf("unknown moved id: %v", err)
	}
	if changed, err := ApplyMove(db, nil, "a", engine.DropChild, now); changed || err != nil {
		t.Fatalf("empty id set is a no-op, got changed=%v err=%v", changed, err)
	}
}

func TestApplyMove_SameParentReorderIsNotACycle(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)

	// Reordering among siblings hovers a sibling, never an ancestor.
	if _, err := ApplyMove(db, []string{"c"}, "b", engine.DropBefore, now); err != nil {
		t.Fatalf("sibling reorder: %v", err)
	}
	if got, want := flatOrder(db), []string{"a", "c", "b", "d"}; !sameOrder(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}
