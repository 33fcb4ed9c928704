package engine

import (
	"strings"
)

// DropPos is where a dragged set lands relative to the hovered target row.
type DropPos string

const (
	DropBefore DropPos = "before"
	DropAfter  DropPos = "after"
	DropChild  DropPos = "child"
)

// MoveIntent is the resolved outcome of one drag gesture. It is consumed by
// the host's task store; the engine itself never mutates records.
type MoveIntent struct {
	DraggedIDs []string
	TargetID   string
	Position   DropPos
}

// ReorderConfig sets the pointer-fraction bands that split a hovered row into
// before / child / after zones.
type ReorderConfig struct {
	BeforeBand float64 // fraction below which the drop is "before"
	AfterBand  float64 // fraction above which the drop is "after"
}

func DefaultReorderConfig() ReorderConfig {
	return ReorderConfig{BeforeBand: 0.25, AfterBand: 0.75}
}

// Reorder interprets pointer-drag gestures into move intents, rejecting drops
// that would create cycles. One gesture at a time; Cancel or Drop always
// leaves zero residual state.
type Reorder struct {
	cfg ReorderConfig

	dragging  bool
	dragged   map[string]bool
	draggedIn []string // insertion order, for the emitted intent

	hoverTarget string
	hoverPos    DropPos
	hoverValid  bool
}

func NewReorder(cfg ReorderConfig) *Reorder {
	if cfg.BeforeBand <= 0 || cfg.BeforeBand >= 1 {
		cfg.BeforeBand = DefaultReorderConfig().BeforeBand
	}
	if cfg.AfterBand <= cfg.BeforeBand || cfg.AfterBand >= 1 {
		cfg.AfterBand = DefaultReorderConfig().AfterBand
	}
	return &Reorder{cfg: cfg}
}

// Dragging reports whether a gesture is in flight.
func (r *Reorder) Dragging() bool { return r != nil && r.dragging }

// DraggedIDs returns the ids of the in-flight gesture.
func (r *Reorder) DraggedIDs() []string {
	if r == nil || !r.dragging {
		return nil
	}
	return append([]string(nil), r.draggedIn...)
}

// BeginDrag starts a gesture over ids. Empty input is ignored.
func (r *Reorder) BeginDrag(ids ...string) {
	set := map[string]bool{}
	var ordered []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || set[id] {
			continue
		}
		set[id] = true
		ordered = append(ordered, id)
	}
	if len(ordered) == 0 {
		return
	}
	r.dragging = true
	r.dragged = set
	r.draggedIn = ordered
	r.hoverTarget = ""
	r.hoverValid = false
}

// OverTarget records the row currently hovered and the pointer's vertical
// fraction (0..1) within it, and returns the drop position that fraction
// implies — or ok=false when the target is rejected.
//
// A target is rejected when it is itself being dragged or is a descendant of
// any dragged record (cycle prevention: walking the parent chain from the
// target must not meet the dragged set). A vanished target also rejects; the
// gesture itself stays alive.
func (r *Reorder) OverTarget(ix *Index, targetID string, fraction float64) (DropPos, bool) {
	if r == nil || !r.dragging {
		return "", false
	}
	targetID = strings.TrimSpace(targetID)
	r.hoverTarget = targetID
	r.hoverValid = false
	if targetID == "" {
		return "", false
	}
	if ix == nil {
		return "", false
	}
	if _, ok := ix.Task(targetID); !ok {
		return "", false
	}
	if r.dragged[targetID] {
		return "", false
	}
	for id := range r.dragged {
		if ix.IsAncestor(id, targetID) {
			return "", false
		}
	}

	pos := DropChild
	switch {
	case fraction < r.cfg.BeforeBand:
		pos = DropBefore
	case fraction > r.cfg.AfterBand:
		pos = DropAfter
	}
	r.hoverPos = pos
	r.hoverValid = true
	return pos, true
}

// Drop ends the gesture. It yields exactly one MoveIntent for the last valid
// hover, or ok=false when the last hovered target was rejected or nothing was
// hovered. Either way the gesture state is fully cleared.
func (r *Reorder) Drop() (MoveIntent, bool) {
	if r == nil || !r.dragging {
		return MoveIntent{}, false
	}
	intent := MoveIntent{}
	ok := r.hoverValid && r.hoverTarget != ""
	if ok {
		intent = MoveIntent{
			DraggedIDs: append([]string(nil), r.draggedIn...),
			TargetID:   r.hoverTarget,
			Position:   r.hoverPos,
		}
	}
	r.reset()
	return intent, ok
}

// Cancel abandons the gesture (pointer left, escape, invalid target).
func (r *Reorder) Cancel() {
	if r == nil {
		return
	}
	r.reset()
}

func (r *Reorder) reset() {
	r.dragging = false
	r.dragged = nil
	r.draggedIn = nil
	r.hoverTarget = ""
	r.hoverPos = ""
	r.hoverValid = false
}
