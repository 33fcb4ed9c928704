package store

import (
	"errors"
	"strings"

	"gantterm/internal/model"
)

// ReorderResult describes the rank updates needed to realize a sibling
// reorder. RankByID includes only tasks whose ranks should change.
type ReorderResult struct {
	RankByID     map[string]string
	WindowIDs    []string // ids re-ranked by the fallback path, in final order
	UsedFallback bool
}

// PlanReorderRanks plans rank updates for inserting movedID at insertAt within
// its sibling set (index computed after removing the moved task).
//
//   - Fast path: change only the moved task's rank, using its immediate
//     neighbors in the final order as bounds.
//   - Fallback: when the neighbor bounds are unusable (duplicate legacy ranks),
//     rebalance the smallest contiguous window around the insertion point whose
//     outer bounds are valid.
func PlanReorderRanks(sibs []*model.Task, movedID string, insertAt int) (ReorderResult, error) {
	movedID = strings.TrimSpace(movedID)
	if movedID == "" {
		return ReorderResult{}, errors.New("missing movedID")
	}
	if len(sibs) == 0 {
		return ReorderResult{RankByID: map[string]string{}}, nil
	}

	// Copy so callers keep their slice order.
	cur := append([]*model.Task{}, sibs...)
	SortTasksByRankOrder(cur)

	movedIdx := -1
	for i := range cur {
		if strings.TrimSpace(cur[i].ID) == movedID {
			movedIdx = i
			break
		}
	}
	if movedIdx < 0 {
		return ReorderResult{}, errors.New("moved task not found in sibling set")
	}
	moved := cur[movedIdx]

	rest := make([]*model.Task, 0, len(cur)-1)
	for i := range cur {
		if i != movedIdx {
			rest = append(rest, cur[i])
		}
	}

	if insertAt < 0 {
		insertAt = 0
	}
	if insertAt > len(rest) {
		insertAt = len(rest)
	}

	curInsertAt := movedIdx
	if movedIdx > len(rest) {
		curInsertAt = len(rest)
	}
	if insertAt == curInsertAt {
		return ReorderResult{RankByID: map[string]string{}}, nil
	}
	// When moving up, prefer rebalancing to the right (the displaced
	// neighbors) rather than pulling in earlier siblings.
	preferRight := insertAt < curInsertAt

	final := make([]*model.Task, 0, len(cur))
	final = append(final, rest[:insertAt]...)
	final = append(final, moved)
	final = append(final, rest[insertAt:]...)

	existing := existingRanksExcluding(final, map[string]bool{movedID: true})
	if r, ok := rankBetweenNeighbors(existing, final, insertAt); ok {
		if strings.TrimSpace(moved.Rank) != r {
			return ReorderResult{RankByID: map[string]string{movedID: r}}, nil
		}
		return ReorderResult{RankByID: map[string]string{}}, nil
	}

	lo, hi := minimalValidWindow(final, insertAt, preferRight)

	lower := ""
	upper := ""
	if lo > 0 {
		lower = strings.TrimSpace(final[lo-1].Rank)
	}
	if hi+1 < len(final) {
		upper = strings.TrimSpace(final[hi+1].Rank)
	}

	excl := map[string]bool{}
	for i := lo; i <= hi; i++ {
		excl[strings.TrimSpace(final[i].ID)] = true
	}
	existing = existingRanksExcluding(final, excl)

	res := ReorderResult{
		RankByID:     map[string]string{},
		WindowIDs:    make([]string, 0, hi-lo+1),
		UsedFallback: true,
	}
	curLower := lower
	for i := lo; i <= hi; i++ {
		id := strings.TrimSpace(final[i].ID)
		if id == "" {
			continue
		}
		r, err := RankBetweenUnique(existing, curLower, upper)
		if err != nil {
			return ReorderResult{}, err
		}
		existing[strings.ToLower(strings.TrimSpace(r))] = true
		res.RankByID[id] = r
		res.WindowIDs = append(res.WindowIDs, id)
		curLower = r
	}
	return res, nil
}

func existingRanksExcluding(tasks []*model.Task, excludeIDs map[string]bool) map[string]bool {
	existing := map[string]bool{}
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if excludeIDs != nil && excludeIDs[strings.TrimSpace(t.ID)] {
			continue
		}
		rn := strings.ToLower(strings.TrimSpace(t.Rank))
		if rn != "" {
			existing[rn] = true
		}
	}
	return existing
}

// rankBetweenNeighbors computes a rank from the moved task's immediate
// neighbors in the final order. ok=false when the bounds are unusable.
func rankBetweenNeighbors(existing map[string]bool, final []*model.Task, movedIdx int) (string, bool) {
	lower := ""
	upper := ""
	if movedIdx > 0 {
		lower = strings.TrimSpace(final[movedIdx-1].Rank)
	}
	if movedIdx+1 < len(final) {
		upper = strings.TrimSpace(final[movedIdx+1].Rank)
	}
	if lower != "" && upper != "" && lower >= upper {
		return "", false
	}
	r, err := RankBetweenUnique(existing, lower, upper)
	if err != nil {
		return "", false
	}
	return r, true
}

// minimalValidWindow finds the smallest contiguous window [lo, hi] containing
// movedIdx whose outer bounds are open-ended or strictly increasing.
// preferRight breaks ties toward windows extending right of movedIdx.
func minimalValidWindow(final []*model.Task, movedIdx int, preferRight bool) (int, int) {
	if movedIdx < 0 || movedIdx >= len(final) {
		return 0, len(final) - 1
	}

	valid := func(lo, hi int) bool {
		lower := ""
		upper := ""
		if lo > 0 {
			lower = strings.TrimSpace(final[lo-1].Rank)
		}
		if hi+1 < len(final) {
			upper = strings.TrimSpace(final[hi+1].Rank)
		}
		if lower == "" || upper == "" {
			return true
		}
		if lower >= upper {
			return false
		}
		// Ordered bounds can still admit no key (prefix-adjacent pairs like
		// "y" < "y0"); probe before committing to the window.
		_, err := RankBetween(lower, upper)
		return err == nil
	}

	for size := 1; size <= len(final); size++ {
		startMin := movedIdx - (size - 1)
		if startMin < 0 {
			startMin = 0
		}
		startMax := movedIdx
		if startMax+size > len(final) {
			startMax = len(final) - size
		}
		if preferRight {
			for lo := startMax; lo >= startMin; lo-- {
				hi := lo + size - 1
				if lo <= movedIdx && movedIdx <= hi && valid(lo, hi) {
					return lo, hi
				}
			}
		} else {
			for lo := startMin; lo <= startMax; lo++ {
				hi := lo + size - 1
				if lo <= movedIdx && movedIdx <= hi && valid(lo, hi) {
					return lo, hi
				}
			}
		}
	}
	return 0, len(final) - 1
}
