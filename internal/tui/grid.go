package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"gantterm/internal/engine"
	"gantterm/internal/model"
)

// Grid columns. Title flexes; the rest are fixed-width.
type column struct {
	field model.FieldID
	label string
	width int
}

var gridColumns = []column{
	{model.FieldTitle, "Task", 0},
	{model.FieldStatus, "Status", 7},
	{model.FieldAssignee, "Who", 8},
	{model.FieldStart, "Start", 10},
	{model.FieldDue, "Due", 10},
	{model.FieldProgress, "%", 5},
	{model.FieldVariance, "Var", 8},
}

const colGap = "  "

func titleWidth(total int) int {
	w := total
	for _, c := range gridColumns[1:] {
		w -= c.width + len(colGap)
	}
	if w < 12 {
		w = 12
	}
	return w
}

func padCell(s string, width int) string {
	pw := xansi.StringWidth(s)
	if pw < width {
		return s + strings.Repeat(" ", width-pw)
	}
	if pw > width {
		return xansi.Cut(s, 0, width)
	}
	return s
}

func renderHeader(width int) string {
	var cells []string
	for i, c := range gridColumns {
		w := c.width
		if i == 0 {
			w = titleWidth(width)
		}
		cells = append(cells, padCell(c.label, w))
	}
	return headerStyle.Render(padCell(strings.Join(cells, colGap), width))
}

// rowState is everything outside the record that affects how a row draws.
type rowState struct {
	selected  bool
	dragged   bool
	editing   bool
	editField model.FieldID
	editView  string // live input, rendered instead of the committed cell
	dropMark  engine.DropPos
}

// renderGridRow draws one flat row. The caller caches the result per slot and
// only calls again when the engine's bind plan says the content changed, so
// this function is the "DOM write" that change detection is saving.
func renderGridRow(row engine.Row, width int, st rowState) string {
	t := row.Task
	if t == nil {
		return ""
	}

	twisty := "  "
	if row.HasChildren {
		if row.Collapsed {
			twisty = "▸ "
		} else {
			twisty = "▾ "
		}
	}
	indent := strings.Repeat("  ", row.Depth)

	var cells []string
	for i, c := range gridColumns {
		w := c.width
		if i == 0 {
			w = titleWidth(width)
		}
		var v string
		if st.editing && c.field == st.editField {
			v = editStyle.Render(padCell(st.editView, w))
			cells = append(cells, v)
			continue
		}
		v = t.Field(c.field)
		if c.field == model.FieldTitle {
			v = indent + twisty + v
		}
		cell := padCell(v, w)
		if !st.selected {
			// Per-cell semantic color; suppressed on the selected row so the
			// highlight bar stays uniform.
			switch c.field {
			case model.FieldVariance:
				if strings.HasPrefix(v, "-") {
					cell = behindStyle.Render(cell)
				} else if strings.HasPrefix(v, "+") {
					cell = aheadStyle.Render(cell)
				}
			case model.FieldStatus:
				cell = statusStyle.Render(cell)
			}
		}
		cells = append(cells, cell)
	}
	line := strings.Join(cells, colGap)

	switch {
	case st.dropMark == engine.DropBefore:
		line = dropMarkStyle.Render("▲ ") + line
	case st.dropMark == engine.DropAfter:
		line = dropMarkStyle.Render("▼ ") + line
	case st.dropMark == engine.DropChild:
		line = dropMarkStyle.Render("▶ ") + line
	default:
		line = "  " + line
	}

	style := normalStyle
	if st.dragged {
		style = draggedStyle
	}
	if st.selected {
		style = selectedStyle
	}
	return renderFullWidth(width, style, line)
}

func renderFullWidth(width int, style lipgloss.Style, line string) string {
	pw := xansi.StringWidth(line)
	if pw < width {
		line += strings.Repeat(" ", width-pw)
	} else if pw > width {
		line = xansi.Cut(line, 0, width)
	}
	return style.Render(line)
}
