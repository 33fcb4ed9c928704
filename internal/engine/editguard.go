package engine

import (
	"strings"

	"gantterm/internal/model"
)

// EditContext describes the single in-flight cell edit.
type EditContext struct {
	RecordID string
	FieldID  model.FieldID
	// Original is the committed value when the edit started, kept for cancel
	// and for commit-on-move semantics.
	Original string
}

// EditGuard is the single source of truth for "is this record/field being
// edited right now". At most one edit context is active at a time (single
// focus editing). It is passed into the engine by reference, never a package
// global, so multiple grid instances and tests stay independent.
type EditGuard struct {
	active EditContext
	editing bool
	// prev holds the context left behind by MoveTo until the host commits it.
	prev    EditContext
	hasPrev bool
}

func NewEditGuard() *EditGuard { return &EditGuard{} }

// IsEditing reports whether any field of recordID is under edit.
func (g *EditGuard) IsEditing(recordID string) bool {
	return g != nil && g.editing && g.active.RecordID == strings.TrimSpace(recordID)
}

// IsEditingField reports whether exactly (recordID, field) is under edit.
func (g *EditGuard) IsEditingField(recordID string, field model.FieldID) bool {
	return g.IsEditing(recordID) && g.active.FieldID == field
}

// Active returns the current edit context, if one exists.
func (g *EditGuard) Active() (EditContext, bool) {
	if g == nil || !g.editing {
		return EditContext{}, false
	}
	return g.active, true
}

// Enter starts editing (recordID, field). Entering the already-active cell is
// a no-op; entering a different cell while one is active replaces it (the
// abandoned context is discarded, not committed — hosts wanting
// commit-on-move use MoveTo).
func (g *EditGuard) Enter(recordID string, field model.FieldID, original string) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return
	}
	if g.editing && g.active.RecordID == recordID && g.active.FieldID == field {
		return
	}
	g.active = EditContext{RecordID: recordID, FieldID: field, Original: original}
	g.editing = true
	g.hasPrev = false
}

// MoveTo shifts the edit focus to another cell while preserving the previous
// context, which the host may commit. Returns the previous context.
func (g *EditGuard) MoveTo(recordID string, field model.FieldID, original string) (EditContext, bool) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return EditContext{}, false
	}
	if !g.editing {
		g.Enter(recordID, field, original)
		return EditContext{}, false
	}
	if g.active.RecordID == recordID && g.active.FieldID == field {
		return EditContext{}, false
	}
	prev := g.active
	g.active = EditContext{RecordID: recordID, FieldID: field, Original: original}
	g.prev = prev
	g.hasPrev = true
	return prev, true
}

// Previous returns the context left behind by the last MoveTo, if any.
func (g *EditGuard) Previous() (EditContext, bool) {
	if g == nil || !g.hasPrev {
		return EditContext{}, false
	}
	return g.prev, true
}

// Exit ends the active edit (commit or cancel is the host's business).
func (g *EditGuard) Exit() {
	g.editing = false
	g.active = EditContext{}
	g.hasPrev = false
}

// Validate force-exits the edit context when the backing record no longer
// exists (deleted concurrently), preventing dangling edit references.
// Returns true when the context was still valid.
func (g *EditGuard) Validate(exists func(recordID string) bool) bool {
	if g == nil || !g.editing {
		return true
	}
	if exists != nil && exists(g.active.RecordID) {
		return true
	}
	g.Exit()
	return false
}
