// Package engine implements the virtualized hierarchical grid: a flattened
// tree index, a scroll viewport, a recycling pool of render slots with
// hash-based change detection, an edit guard, and a drag-reorder controller.
//
// The engine is single-threaded by contract: all recomputation happens inside
// the host's tick, never concurrently. Hosts own the cadence (timer, frame
// callback, or a manual pump in tests).
package engine

import (
	"sort"
	"strings"

	"gantterm/internal/model"
	"gantterm/internal/store"
)

// Row is one visible entry of the depth-first, collapse-aware traversal.
// Rows are derived state: rebuilt on every structural change, never persisted.
type Row struct {
	Task        *model.Task
	FlatIndex   int
	Depth       int
	HasChildren bool
	Collapsed   bool
}

// Index flattens a task tree into the visible row sequence and provides O(1)
// id lookups. Build a fresh Index on any structural mutation (add, remove,
// reparent, reorder, collapse toggle); pure field edits don't need one.
type Index struct {
	rows     []Row
	byID     map[string]*model.Task
	flatByID map[string]int
	children map[string][]*model.Task
}

// NewIndex builds the flattened view of tasks. Siblings are ordered by rank
// with CreatedAt/ID tie-breaks; collapsed subtrees are excluded entirely, not
// merely hidden. Tasks whose parent is missing are treated as roots so a
// half-loaded dataset never silently drops subtrees.
func NewIndex(tasks []*model.Task) *Index {
	ix := &Index{
		byID:     make(map[string]*model.Task, len(tasks)),
		flatByID: make(map[string]int, len(tasks)),
		children: map[string][]*model.Task{},
	}

	for _, t := range tasks {
		if t == nil || strings.TrimSpace(t.ID) == "" {
			continue
		}
		ix.byID[t.ID] = t
	}

	var roots []*model.Task
	for _, t := range tasks {
		if t == nil || strings.TrimSpace(t.ID) == "" {
			continue
		}
		pid := ""
		if t.ParentID != nil {
			pid = strings.TrimSpace(*t.ParentID)
		}
		if pid == "" || ix.byID[pid] == nil {
			roots = append(roots, t)
			continue
		}
		ix.children[pid] = append(ix.children[pid], t)
	}

	sort.SliceStable(roots, func(i, j int) bool { return store.CompareTasks(roots[i], roots[j]) < 0 })
	for pid := range ix.children {
		sibs := ix.children[pid]
		sort.SliceStable(sibs, func(i, j int) bool { return store.CompareTasks(sibs[i], sibs[j]) < 0 })
		ix.children[pid] = sibs
	}

	var walk func(t *model.Task, depth int)
	walk = func(t *model.Task, depth int) {
		ix.flatByID[t.ID] = len(ix.rows)
		ix.rows = append(ix.rows, Row{
			Task:        t,
			FlatIndex:   len(ix.rows),
			Depth:       depth,
			HasChildren: len(ix.children[t.ID]) > 0,
			Collapsed:   t.Collapsed,
		})
		if t.Collapsed {
			return
		}
		for _, ch := range ix.children[t.ID] {
			walk(ch, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return ix
}

// Rows returns the visible rows in flat order. The slice is owned by the
// Index; callers must not mutate it.
func (ix *Index) Rows() []Row { return ix.rows }

// Len returns the number of visible rows.
func (ix *Index) Len() int { return len(ix.rows) }

// Row returns the visible row at flat index i.
func (ix *Index) Row(i int) (Row, bool) {
	if ix == nil || i < 0 || i >= len(ix.rows) {
		return Row{}, false
	}
	return ix.rows[i], true
}

// FlatIndex returns the visible position of id, or false when id is absent or
// hidden inside a collapsed subtree.
func (ix *Index) FlatIndex(id string) (int, bool) {
	if ix == nil {
		return 0, false
	}
	i, ok := ix.flatByID[strings.TrimSpace(id)]
	return i, ok
}

// Task returns the task with the given id, visible or not.
func (ix *Index) Task(id string) (*model.Task, bool) {
	if ix == nil {
		return nil, false
	}
	t, ok := ix.byID[strings.TrimSpace(id)]
	return t, ok
}

// Children returns id's direct children in sibling order.
func (ix *Index) Children(parentID string) []*model.Task {
	if ix == nil {
		return nil
	}
	return ix.children[strings.TrimSpace(parentID)]
}

// IsAncestor reports whether ancestorID is on id's parent chain. A broken or
// cyclic chain terminates the walk instead of looping.
func (ix *Index) IsAncestor(ancestorID, id string) bool {
	ancestorID = strings.TrimSpace(ancestorID)
	if ix == nil || ancestorID == "" {
		return false
	}
	seen := map[string]bool{}
	cur, ok := ix.Task(id)
	for ok && cur.ParentID != nil {
		pid := strings.TrimSpace(*cur.ParentID)
		if pid == "" || seen[pid] {
			return false
		}
		if pid == ancestorID {
			return true
		}
		seen[pid] = true
		cur, ok = ix.Task(pid)
	}
	return false
}
