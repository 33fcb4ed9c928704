package mutate

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"gantterm/internal/model"
	"gantterm/internal/store"
)

// SetField applies one cell edit to the task db. Values arrive as the strings
// the grid edits; field-specific parsing happens here so every host shares
// one validation path.
func SetField(db *store.DB, id string, field model.FieldID, value string, now time.Time) (bool, error) {
	id = strings.TrimSpace(id)
	if db == nil || id == "" {
		return false, nil
	}
	t, ok := db.FindTask(id)
	if !ok {
		return false, NotFoundError{Kind: "task", ID: id}
	}
	if !field.Editable() {
		return false, errors.New("field is not editable")
	}

	changed := false
	switch field {
	case model.FieldTitle:
		v := strings.TrimSpace(value)
		if t.Title != v {
			t.Title = v
			changed = true
		}
	case model.FieldStatus:
		v := strings.ToLower(strings.TrimSpace(value))
		if t.StatusID != v {
			t.StatusID = v
			changed = true
		}
	case model.FieldAssignee:
		v := strings.TrimSpace(value)
		if t.Assignee != v {
			t.Assignee = v
			changed = true
		}
	case model.FieldStart:
		d, err := parseDate(value)
		if err != nil {
			return false, err
		}
		if t.Start.String() != d.String() {
			t.Start = d
			changed = true
		}
	case model.FieldDue:
		d, err := parseDate(value)
		if err != nil {
			return false, err
		}
		if t.Due.String() != d.String() {
			t.Due = d
			changed = true
		}
	case model.FieldProgress:
		v := strings.TrimSuffix(strings.TrimSpace(value), "%")
		n, err := strconv.Atoi(v)
		if err != nil {
			return false, errors.New("progress must be a number 0-100")
		}
		if n < 0 {
			n = 0
		}
		if n > 100 {
			n = 100
		}
		if t.Progress != n {
			t.Progress = n
			changed = true
		}
	case model.FieldNotes:
		if t.Notes != value {
			t.Notes = value
			changed = true
		}
	default:
		return false, errors.New("unknown field: " + string(field))
	}

	if changed {
		t.UpdatedAt = now
	}
	return changed, nil
}

// ToggleCollapse flips the collapse flag on id. A collapse toggle is a
// structural change: callers must rebuild the flat index afterwards.
func ToggleCollapse(db *store.DB, id string, now time.Time) (bool, error) {
	t, ok := db.FindTask(id)
	if !ok {
		return false, NotFoundError{Kind: "task", ID: strings.TrimSpace(id)}
	}
	t.Collapsed = !t.Collapsed
	t.UpdatedAt = now
	return true, nil
}

// AddTask creates a task appended under parentID (empty => root level) with a
// fresh order key after the current last sibling.
func AddTask(db *store.DB, parentID, title string, now time.Time) (*model.Task, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	parentID = strings.TrimSpace(parentID)
	if parentID != "" {
		if _, ok := db.FindTask(parentID); !ok {
			return nil, NotFoundError{Kind: "task", ID: parentID}
		}
	}

	id, err := store.NewTaskID(db)
	if err != nil {
		return nil, err
	}

	last := db.MaxChildRank(parentID)
	var rank string
	if last == "" {
		rank, err = store.RankInitial()
	} else {
		rank, err = store.RankAfter(last)
	}
	if err != nil {
		return nil, err
	}

	t := &model.Task{
		ID:        id,
		Rank:      rank,
		Title:     strings.TrimSpace(title),
		StatusID:  "todo",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if parentID != "" {
		pid := parentID
		t.ParentID = &pid
	}
	db.Tasks = append(db.Tasks, t)
	return t, nil
}

// RemoveTask deletes id and its whole subtree. Returns the removed ids.
func RemoveTask(db *store.DB, id string) ([]string, error) {
	id = strings.TrimSpace(id)
	if db == nil || id == "" {
		return nil, nil
	}
	if _, ok := db.FindTask(id); !ok {
		return nil, NotFoundError{Kind: "task", ID: id}
	}

	doomed := map[string]bool{}
	var collect func(string)
	collect = func(cur string) {
		if doomed[cur] {
			return
		}
		doomed[cur] = true
		for _, ch := range db.ChildrenOf(cur) {
			collect(ch.ID)
		}
	}
	collect(id)

	var removed []string
	kept := db.Tasks[:0]
	for _, t := range db.Tasks {
		if t != nil && doomed[t.ID] {
			removed = append(removed, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	db.Tasks = kept
	return removed, nil
}

func parseDate(value string) (*model.DateOnly, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, nil
	}
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return nil, errors.New("date must be YYYY-MM-DD")
	}
	return &model.DateOnly{Date: v}, nil
}
