package engine

import (
	"testing"
	"time"

	"gantterm/internal/model"
)

func TestRowHash_StableAndSensitive(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	a := task("a", "", "h", now)
	a.Start = &model.DateOnly{Date: "2026-02-01"}
	meta := RowMeta{Depth: 1, HasChildren: true}

	h1 := RowHash(a, meta)
	h2 := RowHash(a, meta)
	if h1 != h2 {
		t.Fatalf("same content must hash identically")
	}

	a.Title = "renamed"
	if RowHash(a, meta) == h1 {
		t.Fatalf("title change must change the row hash")
	}
	a.Title = "a"

	meta.Selected = true
	if RowHash(a, meta) == h1 {
		t.Fatalf("selection change must change the row hash")
	}
}

func TestCellHash_OnlySourceFieldsMatter(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	a := task("a", "", "h", now)
	a.StatusID = "active"
	a.Progress = 30
	meta := RowMeta{}

	status := CellHash(a, model.FieldStatus, meta)
	progress := CellHash(a, model.FieldProgress, meta)

	// A notes edit touches neither the status nor the progress cell.
	a.Notes = "changed"
	if CellHash(a, model.FieldStatus, meta) != status {
		t.Fatalf("notes edit must not invalidate the status cell")
	}
	if CellHash(a, model.FieldProgress, meta) != progress {
		t.Fatalf("notes edit must not invalidate the progress cell")
	}

	a.Progress = 31
	if CellHash(a, model.FieldProgress, meta) == progress {
		t.Fatalf("progress edit must invalidate the progress cell")
	}
	if CellHash(a, model.FieldStatus, meta) != status {
		t.Fatalf("progress edit must not invalidate the status cell")
	}
}

func TestCellHash_VarianceTracksItsInputs(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	a := task("a", "", "h", now)
	a.Start = &model.DateOnly{Date: "2026-02-01"}
	a.Due = &model.DateOnly{Date: "2026-02-20"}
	a.Progress = 50
	meta := RowMeta{}

	variance := CellHash(a, model.FieldVariance, meta)

	// Variance is computed from start, due and progress; each must reach it.
	a.Progress = 60
	if CellHash(a, model.FieldVariance, meta) == variance {
		t.Fatalf("progress change must invalidate the variance cell")
	}
	a.Progress = 50

	a.Due = &model.DateOnly{Date: "2026-02-25"}
	if CellHash(a, model.FieldVariance, meta) == variance {
		t.Fatalf("due change must invalidate the variance cell")
	}
	a.Due = &model.DateOnly{Date: "2026-02-20"}

	// Title is not an input of variance.
	a.Title = "renamed"
	if CellHash(a, model.FieldVariance, meta) != variance {
		t.Fatalf("title change must not invalidate the variance cell")
	}
}

func TestCellHash_UnknownFieldHashesSuperset(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	a := task("a", "", "h", now)
	custom := model.FieldID("custom")

	h := CellHash(a, custom, RowMeta{})
	a.Notes = "changed"
	if CellHash(a, custom, RowMeta{}) == h {
		t.Fatalf("unknown fields must conservatively track record changes")
	}
}

func TestNeedsRowRebind_Policy(t *testing.T) {
	s := &Slot{}
	h := uint64(7)

	// First bind: no cached hash.
	if !NeedsRowRebind(s, h) {
		t.Fatalf("slot without a cached hash must rebind")
	}
	CommitRowHash(s, h)
	if NeedsRowRebind(s, h) {
		t.Fatalf("unchanged hash must skip the rebind")
	}
	if !NeedsRowRebind(s, h+1) {
		t.Fatalf("changed hash must rebind")
	}

	// Pinned slots always rebuild; the live input must never be trusted to
	// a stale cache.
	s.Pinned = true
	if !NeedsRowRebind(s, h) {
		t.Fatalf("pinned slot must always rebind")
	}
}

func TestNeedsCellRebind_Policy(t *testing.T) {
	s := &Slot{}
	if !NeedsCellRebind(s, model.FieldTitle, 1) {
		t.Fatalf("unseen cell must rebind")
	}
	CommitCellHash(s, model.FieldTitle, 1)
	if NeedsCellRebind(s, model.FieldTitle, 1) {
		t.Fatalf("unchanged cell must skip")
	}
	if !NeedsCellRebind(s, model.FieldTitle, 2) {
		t.Fatalf("changed cell must rebind")
	}
	// Other cells keep their own fingerprints.
	if !NeedsCellRebind(s, model.FieldNotes, 1) {
		t.Fatalf("distinct field must track separately")
	}
}
