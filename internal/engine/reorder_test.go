package engine

import (
	"testing"
	"time"
)

func reorderFixture(t *testing.T) *Index {
	t.Helper()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return NewIndex(sampleTree(now)) // a > (b > b1, b2), c
}

func TestReorder_FractionBands(t *testing.T) {
	ix := reorderFixture(t)
	r := NewReorder(DefaultReorderConfig())
	r.BeginDrag("c")

	cases := []struct {
		fraction float64
		want     DropPos
	}{
		{0.0, DropBefore},
		{0.24, DropBefore},
		{0.25, DropChild},
		{0.5, DropChild},
		{0.75, DropChild},
		{0.76, DropAfter},
		{1.0, DropAfter},
	}
	for _, c := range cases {
		pos, ok := r.OverTarget(ix, "b1", c.fraction)
		if !ok {
			t.Fatalf("fraction %v: hover rejected", c.fraction)
		}
		if pos != c.want {
			t.Fatalf("fraction %v: pos = %q, want %q", c.fraction, pos, c.want)
		}
	}
}

func TestReorder_RejectsSelfAndDescendants(t *testing.T) {
	ix := reorderFixture(t)
	r := NewReorder(DefaultReorderConfig())
	r.BeginDrag("b")

	if _, ok := r.OverTarget(ix, "b", 0.5); ok {
		t.Fatalf("dropping onto the dragged row must be rejected")
	}
	if _, ok := r.OverTarget(ix, "b1", 0.5); ok {
		t.Fatalf("dropping onto a direct child must be rejected")
	}
	// The cycle check walks the whole ancestor chain, not just one level.
	r.Cancel()
	r.BeginDrag("a")
	if _, ok := r.OverTarget(ix, "b2", 0.5); ok {
		t.Fatalf("dropping onto a deep descendant must be rejected")
	}
	// The gesture survives a rejected hover.
	if !r.Dragging() {
		t.Fatalf("rejection must not end the gesture")
	}
	if pos, ok := r.OverTarget(ix, "c", 0.5); !ok || pos != DropChild {
		t.Fatalf("valid target after rejection should work, got %q/%v", pos, ok)
	}
}

func TestReorder_VanishedTargetRejectedButGestureLives(t *testing.T) {
	ix := reorderFixture(t)
	r := NewReorder(DefaultReorderConfig())
	r.BeginDrag("c")

	if _, ok := r.OverTarget(ix, "ghost", 0.5); ok {
		t.Fatalf("unknown target must be rejected")
	}
	if !r.Dragging() {
		t.Fatalf("gesture should stay alive")
	}
	// Dropping right after a rejected hover yields nothing.
	if _, ok := r.Drop(); ok {
		t.Fatalf("drop after rejected hover must not emit an intent")
	}
	if r.Dragging() {
		t.Fatalf("drop always clears the gesture")
	}
}

func TestReorder_DropEmitsExactlyOneIntent(t *testing.T) {
	ix := reorderFixture(t)
	r := NewReorder(DefaultReorderConfig())
	r.BeginDrag("c")
	if _, ok := r.OverTarget(ix, "b1", 0.9); !ok {
		t.Fatalf("hover rejected unexpectedly")
	}

	intent, ok := r.Drop()
	if !ok {
		t.Fatalf("valid hover should produce an intent")
	}
	if intent.TargetID != "b1" || intent.Position != DropAfter {
		t.Fatalf("intent = %+v", intent)
	}
	if len(intent.DraggedIDs) != 1 || intent.DraggedIDs[0] != "c" {
		t.Fatalf("dragged ids = %v", intent.DraggedIDs)
	}

	// No residual state: a second drop is inert.
	if _, ok := r.Drop(); ok {
		t.Fatalf("second drop must not emit")
	}
	if r.Dragging() || r.DraggedIDs() != nil {
		t.Fatalf("gesture state must be fully cleared")
	}
}

func TestReorder_CancelLeavesNoState(t *testing.T) {
	ix := reorderFixture(t)
	r := NewReorder(DefaultReorderConfig())
	r.BeginDrag("c")
	r.OverTarget(ix, "b1", 0.5)
	r.Cancel()

	if r.Dragging() {
		t.Fatalf("cancel must end the gesture")
	}
	if _, ok := r.Drop(); ok {
		t.Fatalf("drop after cancel must not emit")
	}
}

func TestReorder_BeginDragDedupesAndTrims(t *testing.T) {
	r := NewReorder(DefaultReorderConfig())
	r.BeginDrag(" a ", "a", "", "b")
	got := r.DraggedIDs()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("dragged ids = %v, want [a b]", got)
	}
}
