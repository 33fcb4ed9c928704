package mutate

import (
	"errors"
	"testing"
	"time"

	"gantterm/internal/model"
)

func TestSetField_TitleTrimsAndReportsChange(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)
	later := now.Add(time.Hour)

	changed, err := SetField(db, "a", model.FieldTitle, "  New name  ", later)
	if err != nil || !changed {
		t.Fatalf("SetField: changed=%v err=%v", changed, err)
	}
	a, _ := db.FindTask("a")
	if a.Title != "New name" {
		t.Fatalf("title = %q", a.Title)
	}
	if !a.UpdatedAt.Equal(later) {
		t.Fatalf("UpdatedAt not bumped")
	}

	// Same value again: no change, no timestamp bump.
	changed, err = SetField(db, "a", model.FieldTitle, "New name", later.Add(time.Hour))
	if err != nil || changed {
		t.Fatalf("idempotent set reported change")
	}
	if !a.UpdatedAt.Equal(later) {
		t.Fatalf("no-op set must not bump UpdatedAt")
	}
}

func TestSetField_ProgressParsesAndClamps(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)
	a, _ := db.FindTask("a")

	if _, err := SetField(db, "a", model.FieldProgress, " 45% ", now); err != nil {
		t.Fatalf("percent suffix should parse: %v", err)
	}
	if a.Progress != 45 {
		t.Fatalf("progress = %d, want 45", a.Progress)
	}

	if _, err := SetField(db, "a", model.FieldProgress, "150", now); err != nil {
		t.Fatalf("out-of-range should clamp, not error: %v", err)
	}
	if a.Progress != 100 {
		t.Fatalf("progress = %d, want clamp to 100", a.Progress)
	}

	if _, err := SetField(db, "a", model.FieldProgress, "-5", now); err != nil {
		t.Fatalf("negative should clamp: %v", err)
	}
	if a.Progress != 0 {
		t.Fatalf("progress = %d, want clamp to 0", a.Progress)
	}

	if _, err := SetField(db, "a", model.FieldProgress, "lots", now); err == nil {
		t.Fatalf("non-numeric progress must error")
	}
}

func TestSetField_Dates(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)
	a, _ := db.FindTask("a")

	if _, err := SetField(db, "a", model.FieldStart, "2026-02-05", now); err != nil {
		t.Fatalf("valid date: %v", err)
	}
	if a.Start.String() != "2026-02-05" {
		t.Fatalf("start = %q", a.Start.String())
	}

	if _, err := SetField(db, "a", model.FieldDue, "05/02/2026", now); err == nil {
		t.Fatalf("non-ISO date must error")
	}

	// Clearing a date.
	if _, err := SetField(db, "a", model.FieldStart, "", now); err != nil {
		t.Fatalf("clearing: %v", err)
	}
	if a.Start != nil {
		t.Fatalf("cleared date should be nil")
	}
}

func TestSetField_RejectsComputedAndUnknown(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)

	if _, err := SetField(db, "a", model.FieldVariance, "+2d", now); err == nil {
		t.Fatalf("variance is computed and must reject edits")
	}
	if _, err := SetField(db, "a", model.FieldID("bogus"), "x", now); err == nil {
		t.Fatalf("unknown field must error")
	}
	var nf NotFoundError
	if _, err := SetField(db, "ghost", model.FieldTitle, "x", now); !errors.As(err, &nf) {
		t.Fatalf("unknown task: %v", err)
	}
}

func TestAddTask_AppendsAfterLastSibling(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)

	nt, err := AddTask(db, "a", "  Review  ", now)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if nt.Parent() != "a" || nt.Title != "Review" || nt.StatusID != "todo" {
		t.Fatalf("new task wrong: %+v", nt)
	}
	kids := db.ChildrenOf("a")
	if kids[len(kids)-1].ID != nt.ID {
		t.Fatalf("new task should be the last sibling")
	}

	// First task of an empty sibling set gets the canonical initial key.
	leaf, err := AddTask(db, nt.ID, "leaf", now)
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if leaf.Rank != "h" {
		t.Fatalf("first-child rank = %q, want h", leaf.Rank)
	}

	var nf NotFoundError
	if _, err := AddTask(db, "ghost", "x", now); !errors.As(err, &nf) {
		t.Fatalf("unknown parent: %v", err)
	}
}

func TestRemoveTask_RemovesWholeSubtree(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)

	removed, err := RemoveTask(db, "a")
	if err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	if len(removed) != 3 {
		t.Fatalf("removed %d tasks, want a+b+c", len(removed))
	}
	if len(db.Tasks) != 1 || db.Tasks[0].ID != "d" {
		t.Fatalf("remaining = %v", flatOrder(db))
	}
}

func TestToggleCollapse(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	db := moveFixture(now)
	a, _ := db.FindTask("a")

	if _, err := ToggleCollapse(db, "a", now); err != nil {
		t.Fatalf("ToggleCollapse: %v", err)
	}
	if !a.Collapsed {
		t.Fatalf("first toggle should collapse")
	}
	if _, err := ToggleCollapse(db, "a", now); err != nil {
		t.Fatalf("ToggleCollapse: %v", err)
	}
	if a.Collapsed {
		t.Fatalf("second toggle should expand")
	}
}
