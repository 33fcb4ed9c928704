package mutate

import (
	"strings"
	"time"

	"gantterm/internal/engine"
	"gantterm/internal/model"
	"gantterm/internal/store"
)

// ApplyMove realizes a MoveIntent against the task db: reparenting the
// dragged tasks and planning sibling ranks through store.PlanReorderRanks.
// On clean data only the moved tasks change rank (fractional indexing); when
// duplicate legacy ranks make the neighbor bounds unusable, the planner
// rebalances the smallest sibling window that restores valid bounds.
//
// The cycle check is repeated here even though the drag controller already
// rejects descendant targets: the db protects itself from hosts that emit
// intents directly.
func ApplyMove(db *store.DB, ids []string, targetID string, pos engine.DropPos, now time.Time) (bool, error) {
	targetID = strings.TrimSpace(targetID)
	if db == nil || targetID == "" || len(ids) == 0 {
		return false, nil
	}
	target, ok := db.FindTask(targetID)
	if !ok {
		return false, NotFoundError{Kind: "task", ID: targetID}
	}

	moved := make([]*model.Task, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		t, ok := db.FindTask(id)
		if !ok {
			return false, NotFoundError{Kind: "task", ID: id}
		}
		if id == targetID || db.IsAncestor(id, targetID) {
			return false, CycleError{MovedID: id, TargetID: targetID}
		}
		moved = append(moved, t)
	}
	if len(moved) == 0 {
		return false, nil
	}

	newParent := ""
	switch pos {
	case engine.DropChild:
		newParent = target.ID
	case engine.DropBefore, engine.DropAfter:
		if target.ParentID != nil {
			newParent = strings.TrimSpace(*target.ParentID)
		}
	default:
		return false, nil
	}

	changed := false
	for _, t := range moved {
		if setParent(t, newParent) {
			t.UpdatedAt = now
			changed = true
		}
	}

	// Plan ranks among the target's final siblings, excluding the moved tasks
	// themselves so a same-parent move computes a clean insertion index.
	rest := siblingsExcluding(db, newParent, seen)
	insertAt := insertionIndex(rest, target.ID, pos)

	placed := append([]*model.Task(nil), rest...)
	for k, t := range moved {
		set := append(append([]*model.Task(nil), placed...), t)
		res, err := store.PlanReorderRanks(set, t.ID, insertAt+k)
		if err != nil {
			return changed, err
		}
		for id, r := range res.RankByID {
			u, ok := db.FindTask(id)
			if !ok {
				continue
			}
			if strings.TrimSpace(u.Rank) != r {
				u.Rank = r
				u.UpdatedAt = now
				changed = true
			}
		}
		placed = append(placed, t)
	}
	return changed, nil
}

// insertionIndex locates the slot relative to anchorID in a rank-sorted
// sibling list (the moved tasks already excluded). A vanished anchor appends.
func insertionIndex(sibs []*model.Task, anchorID string, pos engine.DropPos) int {
	if pos == engine.DropChild {
		return len(sibs)
	}
	for i, s := range sibs {
		if strings.TrimSpace(s.ID) == anchorID {
			if pos == engine.DropBefore {
				return i
			}
			return i + 1
		}
	}
	return len(sibs)
}

func siblingsExcluding(db *store.DB, parentID string, exclude map[string]bool) []*model.Task {
	var out []*model.Task
	for _, t := range db.ChildrenOf(parentID) {
		if exclude[strings.TrimSpace(t.ID)] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func setParent(t *model.Task, parentID string) bool {
	cur := ""
	if t.ParentID != nil {
		cur = strings.TrimSpace(*t.ParentID)
	}
	if cur == parentID {
		return false
	}
	if parentID == "" {
		t.ParentID = nil
	} else {
		pid := parentID
		t.ParentID = &pid
	}
	return true
}
