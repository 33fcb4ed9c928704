package model

import (
	"strconv"
	"strings"
	"time"
)

// Task is one row of the project grid.
//
// Identity is ID (stable for the task's lifetime). Rank is a lexicographic
// order key among siblings of the same ParentID; it is part of the task's
// serialized form and must survive process restarts verbatim.
type Task struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parentId,omitempty"`
	Rank     string  `json:"rank,omitempty"`

	Title    string    `json:"title"`
	StatusID string    `json:"status,omitempty"`
	Assignee string    `json:"assignee,omitempty"`
	Start    *DateOnly `json:"start,omitempty"`
	Due      *DateOnly `json:"due,omitempty"`
	// Progress is 0..100 (percent complete).
	Progress int    `json:"progress"`
	Notes    string `json:"notes,omitempty"`

	// Collapsed hides the task's whole subtree in flattened views.
	Collapsed bool `json:"collapsed,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Parent returns the trimmed parent id, or "" for a root task.
func (t *Task) Parent() string {
	if t == nil || t.ParentID == nil {
		return ""
	}
	return strings.TrimSpace(*t.ParentID)
}

// DateOnly is a calendar date without time-of-day semantics.
type DateOnly struct {
	Date string `json:"date"` // YYYY-MM-DD
}

func (d *DateOnly) String() string {
	if d == nil {
		return ""
	}
	return strings.TrimSpace(d.Date)
}

// Parse returns the date as a time.Time (UTC midnight), or false if unset/invalid.
func (d *DateOnly) Parse() (time.Time, bool) {
	if d == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(d.Date))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FieldID names one editable/displayable column of the grid.
type FieldID string

const (
	FieldTitle    FieldID = "title"
	FieldStatus   FieldID = "status"
	FieldAssignee FieldID = "assignee"
	FieldStart    FieldID = "start"
	FieldDue      FieldID = "due"
	FieldProgress FieldID = "progress"
	FieldNotes    FieldID = "notes"
	// FieldVariance is computed from start/due/progress; it has no storage of
	// its own and cannot be edited directly.
	FieldVariance FieldID = "variance"
)

// Fields lists the grid columns in display order.
var Fields = []FieldID{
	FieldTitle,
	FieldStatus,
	FieldAssignee,
	FieldStart,
	FieldDue,
	FieldProgress,
	FieldVariance,
}

// Editable reports whether a field accepts direct cell edits.
func (f FieldID) Editable() bool {
	switch f {
	case FieldVariance:
		return false
	default:
		return true
	}
}

// Known reports whether f is one of the built-in fields. Hosts may display
// custom fields; change detection treats unknown ones conservatively.
func (f FieldID) Known() bool {
	switch f {
	case FieldTitle, FieldStatus, FieldAssignee, FieldStart, FieldDue,
		FieldProgress, FieldNotes, FieldVariance:
		return true
	}
	return false
}

// Field returns the display value of a field on t.
func (t *Task) Field(f FieldID) string {
	if t == nil {
		return ""
	}
	switch f {
	case FieldTitle:
		return t.Title
	case FieldStatus:
		return t.StatusID
	case FieldAssignee:
		return t.Assignee
	case FieldStart:
		return t.Start.String()
	case FieldDue:
		return t.Due.String()
	case FieldProgress:
		return strconv.Itoa(t.Progress) + "%"
	case FieldNotes:
		return t.Notes
	case FieldVariance:
		return t.varianceLabel()
	default:
		return ""
	}
}

func (t *Task) varianceLabel() string {
	d, ok := t.VarianceDays(time.Now().UTC())
	if !ok {
		return ""
	}
	switch {
	case d > 0:
		return "+" + strconv.Itoa(d) + "d"
	case d < 0:
		return strconv.Itoa(d) + "d"
	default:
		return "on track"
	}
}

// VarianceDays compares actual progress against the elapsed share of the
// Start..Due window as of now. ok=false when either date is missing or the
// window is empty.
func (t *Task) VarianceDays(now time.Time) (int, bool) {
	start, ok := t.Start.Parse()
	if !ok {
		return 0, false
	}
	due, ok := t.Due.Parse()
	if !ok {
		return 0, false
	}
	total := int(due.Sub(start).Hours() / 24)
	if total <= 0 {
		return 0, false
	}
	elapsed := int(now.Sub(start).Hours() / 24)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}
	expected := elapsed
	actual := t.Progress * total / 100
	return actual - expected, true
}
