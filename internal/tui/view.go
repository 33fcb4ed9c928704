package tui

import (
	"strconv"
	"strings"
)

func (m appModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(renderHeader(m.width))
	b.WriteString("\n")

	first, last := m.displayRange()
	total := m.eng.Index().Len()
	drawn := 0
	if total > 0 {
		for i := first; i <= last; i++ {
			b.WriteString(m.renderLine(i))
			b.WriteString("\n")
			drawn++
		}
	}
	for ; drawn < m.gridHeight(); drawn++ {
		b.WriteString("\n")
	}

	if m.showPreview {
		b.WriteString(m.renderPreview())
	}
	b.WriteString(m.renderFooter(first, last, total))
	return b.String()
}

// renderLine returns the display line for flat index i. The committed content
// comes from the per-slot cache; rows with transient decoration (the live
// edit input, drag/drop marks) are drawn fresh so the cache never holds them.
func (m appModel) renderLine(i int) string {
	row, ok := m.eng.Index().Row(i)
	if !ok || row.Task == nil {
		return ""
	}

	st := rowState{selected: row.Task.ID == m.eng.Selection()}
	transient := false

	if m.editing {
		if ctx, active := m.guard.Active(); active && ctx.RecordID == row.Task.ID {
			st.editing = true
			st.editField = ctx.FieldID
			st.editView = m.input.View()
			transient = true
		}
	}
	if m.eng.Dragging() {
		for _, id := range m.eng.DraggedIDs() {
			if id == row.Task.ID {
				st.dragged = true
				transient = true
			}
		}
		if m.moveIdx == i && m.hoverMark != "" {
			st.dropMark = m.hoverMark
			transient = true
		}
	}

	if !transient {
		if s, ok := m.eng.Pool().SlotFor(row.Task.ID); ok {
			if line, ok := m.lines[s.ID]; ok && line != "" {
				return line
			}
		}
		// Cache miss (slot not yet bound this tick); render once without
		// committing, the next tick's plan will fill the cache.
	}
	return renderGridRow(row, m.width, st)
}

func (m appModel) renderPreview() string {
	h := m.previewHeight()
	var body string
	if row, ok := m.selectedRow(); ok && row.Task != nil {
		notes := strings.TrimSpace(row.Task.Notes)
		if notes == "" {
			body = mutedStyle.Render("(no notes)")
		} else {
			body = strings.TrimRight(renderMarkdown(notes, m.width-2), "\n")
		}
	}
	lines := strings.Split(body, "\n")
	if len(lines) > h-1 {
		lines = lines[:h-1]
	}
	var b strings.Builder
	b.WriteString(faintIfDark(mutedStyle).Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	for i := 0; i < h-1; i++ {
		if i < len(lines) {
			b.WriteString(lines[i])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m appModel) renderFooter(first, last, total int) string {
	var parts []string
	if total == 0 {
		parts = append(parts, "no tasks (a to add)")
	} else {
		parts = append(parts, strconv.Itoa(m.cursor+1)+"/"+strconv.Itoa(total))
		parts = append(parts, "col:"+string(gridColumns[m.focusCol].field))
	}
	switch {
	case m.editing:
		parts = append(parts, "editing · enter save · tab next · esc cancel")
	case m.moveMode:
		parts = append(parts, "moving · b/a/c position · enter drop · esc cancel")
	default:
		parts = append(parts, "enter edit · space fold · m move · a/A add · x del · p notes · q quit")
	}
	if m.host.saveErr != nil {
		parts = append(parts, behindStyle.Render("save failed: "+m.host.saveErr.Error()))
	}
	if m.statusMsg != "" {
		parts = append(parts, m.statusMsg)
	}
	line := strings.Join(parts, "  ·  ")
	return renderFullWidth(m.width, footerStyle, " "+line)
}
