package engine

import (
	"log/slog"
	"strings"
	"time"

	"gantterm/internal/model"
	"gantterm/internal/store"
)

// nowFn is swappable in tests.
var nowFn = time.Now

// DataSource supplies records to the engine. The engine never mutates the
// source; structural changes flow out through Callbacks and come back in via
// Reload.
type DataSource interface {
	GetAll() []*model.Task
	IsParent(id string) bool
	GetDepth(id string) int
	GetChildren(parentID string) []*model.Task
}

// Callbacks are the row-level hooks the host wires to its task store.
type Callbacks struct {
	OnCellChange      func(id string, field model.FieldID, value string)
	OnRowMove         func(ids []string, targetID string, pos DropPos)
	OnToggleCollapse  func(id string)
	OnSelectionChange func(ids []string, focusedID string)
}

// Config bundles the engine tunables.
type Config struct {
	Viewport ViewportConfig
	Reorder  ReorderConfig
	// PoolSlack is the number of spare slots beyond visible+2*buffer.
	PoolSlack int
	Logger    *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Viewport:  DefaultViewportConfig(),
		Reorder:   DefaultReorderConfig(),
		PoolSlack: 2,
	}
}

// Bind is one unit of render work for the host: the slot, the row it shows,
// and which parts actually changed. Slots absent from a tick's bind plan need
// no work at all.
type Bind struct {
	Slot      SlotID
	Row       Row
	RebindRow bool
	// Cells lists the fields whose content hash changed (or that were never
	// bound). Empty with RebindRow=false never happens in a plan.
	Cells   []model.FieldID
	Editing bool
	// Hide marks a slot whose record disappeared mid-tick; the host should
	// blank it rather than render stale data.
	Hide bool
}

// Engine is the virtualized grid core. Single-threaded: every method must be
// called from the host's event loop.
type Engine struct {
	cfg Config
	src DataSource
	cb  Callbacks
	log *slog.Logger

	vp      *Viewport
	pool    *Pool
	guard   *EditGuard
	reorder *Reorder
	ix      *Index

	selected  map[string]bool
	focusedID string

	structureDirty bool
}

// New wires an engine to a data source. The guard is passed in (not created
// internally) so hosts can share it with their own input layer.
func New(cfg Config, src DataSource, guard *EditGuard, cb Callbacks) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if guard == nil {
		guard = NewEditGuard()
	}
	e := &Engine{
		cfg:      cfg,
		src:      src,
		cb:       cb,
		log:      cfg.Logger,
		vp:       NewViewport(cfg.Viewport),
		guard:    guard,
		reorder:  NewReorder(cfg.Reorder),
		selected: map[string]bool{},
	}
	e.pool = NewPool(e.poolCapacity(), cfg.Logger)
	e.Reload()
	return e
}

func (e *Engine) poolCapacity() int {
	n := e.vp.VisibleCount() + 2*e.cfg.Viewport.BufferCount + e.cfg.PoolSlack
	if n < 1 {
		n = 1
	}
	return n
}

// Index returns the current flattened index.
func (e *Engine) Index() *Index { return e.ix }

// Guard returns the edit guard, the authoritative editing oracle.
func (e *Engine) Guard() *EditGuard { return e.guard }

// Pool exposes the slot arena (read-only for hosts).
func (e *Engine) Pool() *Pool { return e.pool }

// Viewport exposes the scroll window.
func (e *Engine) Viewport() *Viewport { return e.vp }

// Reload pulls the record set from the data source and rebuilds the flat
// index. Call after any structural mutation; pure field edits only need
// Invalidate.
func (e *Engine) Reload() {
	var tasks []*model.Task
	if e.src != nil {
		tasks = e.src.GetAll()
	}
	e.ix = NewIndex(tasks)
	e.structureDirty = true

	// A record deleted under an active edit must not leave a dangling
	// context or pin.
	if ctx, ok := e.guard.Active(); ok {
		if !e.guard.Validate(func(id string) bool { _, ok := e.ix.Task(id); return ok }) {
			e.pool.Unpin(ctx.RecordID)
			e.log.Debug("edit context dropped, record gone", "id", ctx.RecordID)
		}
	}
}

// ReplaceAll swaps the entire dataset: index, pool bindings and hash caches
// all start over.
func (e *Engine) ReplaceAll() {
	e.pool.Reset()
	e.guard.Exit()
	e.reorder.Cancel()
	e.Reload()
}

// Invalidate marks the current window dirty without rebuilding the index.
// Use after pure field edits.
func (e *Engine) Invalidate() { e.structureDirty = true }

// Resize sets the viewport extent. Per contract, this is the one runtime
// event that rebuilds the pool (capacity derives from the extent).
func (e *Engine) Resize(extent float64) {
	e.vp.Resize(extent)
	want := e.poolCapacity()
	if want > e.pool.Cap() {
		e.pool = NewPool(want, e.log)
		e.structureDirty = true
	}
}

// Scroll records a new absolute offset (coalesced until the next Tick).
func (e *Engine) Scroll(offset float64) {
	e.vp.SetScroll(offset, nowFn())
}

// ScrollBy moves by whole rows.
func (e *Engine) ScrollBy(rows int) {
	e.vp.ScrollBy(rows, nowFn())
}

// Tick runs one scheduled unit of work: apply any pending scroll, recycle the
// pool into the visible range, and hash-check every materialized slot. The
// returned plan contains only slots that need host-side work; an unchanged
// window yields an empty plan.
func (e *Engine) Tick() []Bind {
	moved := e.vp.Apply()
	if !moved && !e.structureDirty {
		return nil
	}
	e.structureDirty = false

	editing := map[string]bool{}
	if ctx, ok := e.guard.Active(); ok {
		editing[ctx.RecordID] = true
	}

	first, last := e.vp.VisibleRange(e.ix.Len())
	if err := e.pool.Recycle(first, last, e.ix, editing); err != nil {
		// Growth failed at the sanity cap; render what we can.
		e.log.Error("slot recycle failed", "err", err)
	}

	var plan []Bind
	for _, s := range e.pool.Slots() {
		if s.BoundID == "" {
			continue
		}
		t, ok := e.ix.Task(s.BoundID)
		if !ok || t == nil {
			// Flat entry without a record: hide rather than render stale data.
			e.log.Warn("slot bound to missing record", "id", s.BoundID, "slot", int(s.ID))
			e.pool.Release(s.BoundID)
			plan = append(plan, Bind{Slot: s.ID, Hide: true})
			continue
		}

		meta := RowMeta{Selected: e.selected[t.ID]}
		if row, ok := e.ix.Row(s.FlatIndex); ok && row.Task != nil && row.Task.ID == t.ID {
			meta.Depth = row.Depth
			meta.HasChildren = row.HasChildren
			meta.Collapsed = row.Collapsed
		}

		b := Bind{Slot: s.ID, Editing: e.guard.IsEditing(t.ID)}
		if row, ok := e.ix.Row(s.FlatIndex); ok {
			b.Row = row
		} else {
			// Pinned slot scrolled past the end of the data; keep it rendered
			// with its own record.
			b.Row = Row{Task: t, FlatIndex: s.FlatIndex, Depth: meta.Depth}
		}

		rh := RowHash(t, meta)
		if NeedsRowRebind(s, rh) {
			b.RebindRow = true
			CommitRowHash(s, rh)
		}
		for _, f := range model.Fields {
			ch := CellHash(t, f, meta)
			if NeedsCellRebind(s, f, ch) {
				b.Cells = append(b.Cells, f)
				CommitCellHash(s, f, ch)
			}
		}
		if b.RebindRow || len(b.Cells) > 0 {
			plan = append(plan, b)
		}
	}
	return plan
}

// StartEdit begins editing (id, field). The record's slot is pinned so
// recycling never unmounts an active edit, and rebind logic stops overwriting
// the live input.
func (e *Engine) StartEdit(id string, field model.FieldID) bool {
	id = strings.TrimSpace(id)
	t, ok := e.ix.Task(id)
	if !ok || !field.Editable() {
		return false
	}
	if prev, active := e.guard.Active(); active && prev.RecordID != id {
		e.pool.Unpin(prev.RecordID)
	}
	e.guard.Enter(id, field, t.Field(field))
	e.pool.Pin(id)
	e.structureDirty = true
	return true
}

// MoveEdit shifts focus to another cell, committing the previous cell's live
// value through OnCellChange first (commit-on-move).
func (e *Engine) MoveEdit(id string, field model.FieldID, liveValue string) bool {
	id = strings.TrimSpace(id)
	t, ok := e.ix.Task(id)
	if !ok || !field.Editable() {
		return false
	}
	prev, moved := e.guard.MoveTo(id, field, t.Field(field))
	if moved {
		if prev.RecordID != id {
			e.pool.Unpin(prev.RecordID)
		}
		if e.cb.OnCellChange != nil && liveValue != prev.Original {
			e.cb.OnCellChange(prev.RecordID, prev.FieldID, liveValue)
		}
	}
	e.pool.Pin(id)
	e.structureDirty = true
	return true
}

// CommitEdit ends the active edit and reports the final value to the host.
func (e *Engine) CommitEdit(value string) {
	ctx, ok := e.guard.Active()
	if !ok {
		return
	}
	e.guard.Exit()
	e.pool.Unpin(ctx.RecordID)
	e.structureDirty = true
	if e.cb.OnCellChange != nil && value != ctx.Original {
		e.cb.OnCellChange(ctx.RecordID, ctx.FieldID, value)
	}
}

// CancelEdit ends the active edit discarding the live value.
func (e *Engine) CancelEdit() {
	ctx, ok := e.guard.Active()
	if !ok {
		return
	}
	e.guard.Exit()
	e.pool.Unpin(ctx.RecordID)
	e.structureDirty = true
}

// ToggleCollapse reports a collapse toggle to the host. The host mutates the
// record and calls Reload; the engine does not own record state.
func (e *Engine) ToggleCollapse(id string) {
	id = strings.TrimSpace(id)
	if _, ok := e.ix.Task(id); !ok {
		return
	}
	if e.cb.OnToggleCollapse != nil {
		e.cb.OnToggleCollapse(id)
	}
}

// SetSelection replaces the selected set and focus, notifying the host.
func (e *Engine) SetSelection(ids []string, focusedID string) {
	e.selected = map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			e.selected[id] = true
		}
	}
	e.focusedID = strings.TrimSpace(focusedID)
	e.structureDirty = true
	if e.cb.OnSelectionChange != nil {
		e.cb.OnSelectionChange(ids, focusedID)
	}
}

// Selection returns the focused record id.
func (e *Engine) Selection() string { return e.focusedID }

// BeginDrag starts a drag gesture over ids.
func (e *Engine) BeginDrag(ids ...string) { e.reorder.BeginDrag(ids...) }

// DragOver forwards a hover to the reorder controller.
func (e *Engine) DragOver(targetID string, fraction float64) (DropPos, bool) {
	return e.reorder.OverTarget(e.ix, targetID, fraction)
}

// Drop resolves the gesture; a valid drop is reported through OnRowMove.
func (e *Engine) Drop() (MoveIntent, bool) {
	intent, ok := e.reorder.Drop()
	if ok && e.cb.OnRowMove != nil {
		e.cb.OnRowMove(intent.DraggedIDs, intent.TargetID, intent.Position)
	}
	return intent, ok
}

// CancelDrag abandons the gesture with no residual state.
func (e *Engine) CancelDrag() { e.reorder.Cancel() }

// Dragging reports whether a gesture is in flight.
func (e *Engine) Dragging() bool { return e.reorder.Dragging() }

// DraggedIDs returns the ids of the in-flight gesture, nil when idle.
func (e *Engine) DraggedIDs() []string { return e.reorder.DraggedIDs() }

// GenerateInsertKey returns an order key strictly between beforeKey and
// afterKey (either may be empty). Exposed for the host's commands layer.
func GenerateInsertKey(beforeKey, afterKey string) (string, error) {
	return store.RankBetween(beforeKey, afterKey)
}

// GenerateAppendKey returns an order key after lastKey ("" yields the
// canonical initial key).
func GenerateAppendKey(lastKey string) (string, error) {
	if strings.TrimSpace(lastKey) == "" {
		return store.RankInitial()
	}
	return store.RankAfter(lastKey)
}
