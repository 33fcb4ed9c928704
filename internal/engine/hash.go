package engine

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"gantterm/internal/model"
)

// Change detection: every bind decision goes through a content hash so an
// unchanged row or cell costs one hash comparison instead of a re-render.

// RowMeta is the presentation state that affects a row beyond its record.
type RowMeta struct {
	Depth       int
	HasChildren bool
	Collapsed   bool
	Selected    bool
}

const hashSep = "\x1f"

func writeField(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(s)
	_, _ = d.WriteString(hashSep)
}

func writeBool(d *xxhash.Digest, b bool) {
	if b {
		_, _ = d.WriteString("1" + hashSep)
	} else {
		_, _ = d.WriteString("0" + hashSep)
	}
}

// RowHash fingerprints the minimal attribute set that affects row-level
// presentation: identity, primary label, scheduling dates, hierarchy meta and
// the selection flag. Fields that only individual cells read are excluded so
// a notes edit doesn't invalidate every cell of the row.
func RowHash(t *model.Task, meta RowMeta) uint64 {
	d := xxhash.New()
	if t != nil {
		writeField(d, t.ID)
		writeField(d, t.Title)
		writeField(d, t.Start.String())
		writeField(d, t.Due.String())
	}
	writeField(d, strconv.Itoa(meta.Depth))
	writeBool(d, meta.HasChildren)
	writeBool(d, meta.Collapsed)
	writeBool(d, meta.Selected)
	return d.Sum64()
}

// CellHash fingerprints exactly the record attributes a field reads. Computed
// cells hash their source fields (variance reads start, due and progress, not
// a stored value of its own). Unknown field ids conservatively hash a
// superset of commonly-read attributes so a custom cell is never stale.
func CellHash(t *model.Task, f model.FieldID, meta RowMeta) uint64 {
	d := xxhash.New()
	writeField(d, string(f))
	writeBool(d, meta.Selected)
	if t == nil {
		return d.Sum64()
	}
	switch f {
	case model.FieldTitle:
		writeField(d, t.Title)
		// Indentation and the twisty are drawn inside the title cell.
		writeField(d, strconv.Itoa(meta.Depth))
		writeBool(d, meta.HasChildren)
		writeBool(d, meta.Collapsed)
	case model.FieldStatus:
		writeField(d, t.StatusID)
	case model.FieldAssignee:
		writeField(d, t.Assignee)
	case model.FieldStart:
		writeField(d, t.Start.String())
	case model.FieldDue:
		writeField(d, t.Due.String())
	case model.FieldProgress:
		writeField(d, strconv.Itoa(t.Progress))
	case model.FieldNotes:
		writeField(d, t.Notes)
	case model.FieldVariance:
		writeField(d, t.Start.String())
		writeField(d, t.Due.String())
		writeField(d, strconv.Itoa(t.Progress))
	default:
		writeField(d, t.Title)
		writeField(d, t.StatusID)
		writeField(d, t.Assignee)
		writeField(d, t.Start.String())
		writeField(d, t.Due.String())
		writeField(d, strconv.Itoa(t.Progress))
		writeField(d, t.Notes)
	}
	return d.Sum64()
}

// NeedsRowRebind decides whether a slot's row chrome must be rebuilt:
// (a) the content hash changed, (b) the slot is pinned for editing (adjacent
// non-edited aspects like readonly styling still track the record), or
// (c) no cached hash exists yet (first bind). Anything else is skipped — this
// skip is the core performance guarantee of the grid.
func NeedsRowRebind(s *Slot, h uint64) bool {
	if s == nil {
		return false
	}
	if s.Pinned || !s.hasRowHash {
		return true
	}
	return s.rowHash != h
}

// CommitRowHash records h as the slot's current row fingerprint.
func CommitRowHash(s *Slot, h uint64) {
	if s == nil {
		return
	}
	s.rowHash = h
	s.hasRowHash = true
}

// NeedsCellRebind applies the same policy per cell.
func NeedsCellRebind(s *Slot, f model.FieldID, h uint64) bool {
	if s == nil {
		return false
	}
	if s.Pinned {
		return true
	}
	old, ok := s.cellHashes[f]
	if !ok {
		return true
	}
	return old != h
}

// CommitCellHash records h as the slot's current fingerprint for field f.
func CommitCellHash(s *Slot, f model.FieldID, h uint64) {
	if s == nil {
		return
	}
	if s.cellHashes == nil {
		s.cellHashes = map[model.FieldID]uint64{}
	}
	s.cellHashes[f] = h
}
