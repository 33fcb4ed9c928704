package tui

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"gantterm/internal/engine"
	"gantterm/internal/model"
	"gantterm/internal/mutate"
	"gantterm/internal/store"
)

// Run starts the interactive grid over db.
func Run(s store.Store, db *store.DB) error {
	m := newAppModel(s, db)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

// hostState is shared between the model and the engine callbacks. Callbacks
// fire synchronously inside engine calls, so they cannot write model fields
// (the model is a value); they write here and Update picks the flags up.
type hostState struct {
	store store.Store
	db    *store.DB
	log   *slog.Logger

	structural bool   // a callback changed tree shape; index must be rebuilt
	movedID    string // follow this task with the cursor after the rebuild
	saveErr    error
}

func (h *hostState) save() {
	if err := h.store.Save(context.Background(), h.db); err != nil {
		h.saveErr = err
		h.log.Error("save failed", "err", err)
		return
	}
	h.saveErr = nil
}

type appModel struct {
	host  *hostState
	eng   *engine.Engine
	guard *engine.EditGuard

	width  int
	height int

	cursor   int // flat index of the selected row
	focusCol int // index into gridColumns

	editing bool
	input   textinput.Model

	// Keyboard move mode: the selected row is "picked up" and hovered over
	// moveIdx with movePos until dropped.
	moveMode  bool
	moveIdx   int
	movePos   engine.DropPos
	hoverMark engine.DropPos // last validated hover outcome, "" when invalid

	showPreview bool
	statusMsg   string

	// Committed render lines per slot, rebuilt only from the engine's bind
	// plan. Transient decoration (cursor bar, drop marks, live edit input) is
	// overlaid at view time so it never pollutes the cache.
	lines map[engine.SlotID]string

	uiState *store.UIState
}

type tickMsg struct{}

// frameInterval paces engine ticks between input events; it doubles as the
// rapid-scroll settle timer.
const frameInterval = 50 * time.Millisecond

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func newAppModel(s store.Store, db *store.DB) appModel {
	host := &hostState{store: s, db: db, log: slog.Default()}
	guard := engine.NewEditGuard()

	cfg := engine.DefaultConfig()
	// Character-cell host: one row unit per terminal line, and every whole-row
	// scroll matters (the default delta threshold is tuned for finer units).
	cfg.Viewport.RowExtent = 1
	cfg.Viewport.MinScrollDelta = 1
	cfg.Logger = slog.Default()

	cb := engine.Callbacks{
		OnCellChange: func(id string, field model.FieldID, value string) {
			if _, err := mutate.SetField(host.db, id, field, value, time.Now()); err != nil {
				host.log.Warn("edit rejected", "id", id, "field", string(field), "err", err)
				return
			}
			host.save()
		},
		OnRowMove: func(ids []string, targetID string, pos engine.DropPos) {
			if _, err := mutate.ApplyMove(host.db, ids, targetID, pos, time.Now()); err != nil {
				host.log.Warn("move rejected", "target", targetID, "err", err)
				return
			}
			host.structural = true
			if len(ids) > 0 {
				host.movedID = ids[0]
			}
			host.save()
		},
		OnToggleCollapse: func(id string) {
			if _, err := mutate.ToggleCollapse(host.db, id, time.Now()); err != nil {
				return
			}
			host.structural = true
			host.save()
		},
	}

	m := appModel{
		host:    host,
		guard:   guard,
		eng:     engine.New(cfg, db, guard, cb),
		movePos: engine.DropAfter,
		lines:   map[engine.SlotID]string{},
	}
	m.input = textinput.New()
	m.input.Prompt = ""
	m.input.CharLimit = 0

	if ui, err := s.LoadUIState(); err == nil && ui != nil {
		m.uiState = ui
		m.eng.Scroll(ui.ScrollOffset)
		if ui.SelectedTaskID != "" {
			if ix, ok := m.eng.Index().FlatIndex(ui.SelectedTaskID); ok {
				m.cursor = ix
			}
		}
		for i, c := range gridColumns {
			if string(c.field) == ui.FocusedField {
				m.focusCol = i
			}
		}
	} else {
		m.uiState = &store.UIState{Version: 1}
	}
	m.syncSelection()
	return m
}

func (m appModel) Init() tea.Cmd { return tick() }

// gridHeight is the number of task rows on screen (total minus header and
// footer, minus the preview pane when open).
func (m appModel) gridHeight() int {
	h := m.height - 2
	if m.showPreview {
		h -= m.previewHeight()
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m appModel) previewHeight() int {
	h := m.height / 3
	if h < 4 {
		h = 4
	}
	return h
}

// displayRange is the strictly on-screen window (no buffer rows).
func (m appModel) displayRange() (int, int) {
	first := int(m.eng.Viewport().Offset())
	if first < 0 {
		first = 0
	}
	total := m.eng.Index().Len()
	last := first + m.gridHeight() - 1
	if last > total-1 {
		last = total - 1
	}
	if first > last {
		first = last
	}
	if first < 0 {
		first = 0
	}
	return first, last
}

func (m *appModel) clampCursor() {
	total := m.eng.Index().Len()
	if m.cursor > total-1 {
		m.cursor = total - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *appModel) syncSelection() {
	m.clampCursor()
	if row, ok := m.eng.Index().Row(m.cursor); ok && row.Task != nil {
		m.eng.SetSelection([]string{row.Task.ID}, row.Task.ID)
	} else {
		m.eng.SetSelection(nil, "")
	}
}

func (m *appModel) ensureCursorVisible() {
	first, _ := m.displayRange()
	vis := m.gridHeight()
	if m.cursor < first {
		m.eng.Scroll(float64(m.cursor))
	} else if m.cursor >= first+vis {
		m.eng.Scroll(float64(m.cursor - vis + 1))
	}
}

func (m appModel) selectedRow() (engine.Row, bool) {
	return m.eng.Index().Row(m.cursor)
}

// pump applies one engine tick and folds the bind plan into the line cache.
func (m *appModel) pump() {
	if m.host.structural {
		m.host.structural = false
		m.eng.Reload()
		if m.host.movedID != "" {
			if ix, ok := m.eng.Index().FlatIndex(m.host.movedID); ok {
				m.cursor = ix
			}
			m.host.movedID = ""
		}
		m.syncSelection()
		m.ensureCursorVisible()
	}
	binds := m.eng.Tick()
	for _, b := range binds {
		if b.Hide {
			delete(m.lines, b.Slot)
			continue
		}
		st := rowState{selected: b.Row.Task != nil && b.Row.Task.ID == m.eng.Selection()}
		m.lines[b.Slot] = renderGridRow(b.Row, m.width, st)
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.lines = map[engine.SlotID]string{}
		m.eng.Resize(float64(m.gridHeight()))
		m.eng.Invalidate()
		m.pump()
		return m, nil

	case tickMsg:
		m.pump()
		return m, tick()

	case tea.MouseMsg:
		m = m.handleMouse(msg)
		m.pump()
		return m, nil

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		m.pump()
		return m, cmd
	}
	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (appModel, tea.Cmd) {
	if m.editing {
		return m.handleEditKey(msg)
	}
	if m.moveMode {
		return m.handleMoveKey(msg)
	}

	m.statusMsg = ""
	switch msg.String() {
	case "ctrl+c", "q":
		m.persistUIState()
		return m, tea.Quit

	case "up", "k":
		m.cursor--
		m.syncSelection()
		m.ensureCursorVisible()
	case "down", "j":
		m.cursor++
		m.syncSelection()
		m.ensureCursorVisible()
	case "pgup":
		m.cursor -= m.gridHeight()
		m.syncSelection()
		m.ensureCursorVisible()
	case "pgdown":
		m.cursor += m.gridHeight()
		m.syncSelection()
		m.ensureCursorVisible()
	case "g", "home":
		m.cursor = 0
		m.syncSelection()
		m.ensureCursorVisible()
	case "G", "end":
		m.cursor = m.eng.Index().Len() - 1
		m.syncSelection()
		m.ensureCursorVisible()

	case "left", "h":
		if m.focusCol > 0 {
			m.focusCol--
		}
	case "right", "l":
		if m.focusCol < len(gridColumns)-1 {
			m.focusCol++
		}

	case " ":
		if row, ok := m.selectedRow(); ok && row.HasChildren {
			m.eng.ToggleCollapse(row.Task.ID)
		}

	case "enter", "i":
		m = m.startEdit()

	case "a":
		m = m.addTask(false)
	case "A":
		m = m.addTask(true)
	case "x":
		m = m.removeSelected()

	case "m":
		if row, ok := m.selectedRow(); ok {
			m.moveMode = true
			m.moveIdx = m.cursor
			m.movePos = engine.DropAfter
			m.eng.BeginDrag(row.Task.ID)
			m.statusMsg = "move: ↑/↓ target, b/a/c position, enter drop, esc cancel"
		}

	case "p":
		m.showPreview = !m.showPreview
		m.lines = map[engine.SlotID]string{}
		m.eng.Resize(float64(m.gridHeight()))
		m.eng.Invalidate()
	}
	return m, nil
}

func (m appModel) startEdit() appModel {
	row, ok := m.selectedRow()
	if !ok {
		return m
	}
	field := gridColumns[m.focusCol].field
	if !field.Editable() {
		m.statusMsg = "column is computed, not editable"
		return m
	}
	if !m.eng.StartEdit(row.Task.ID, field) {
		return m
	}
	m.editing = true
	m.input.SetValue(row.Task.Field(field))
	m.input.CursorEnd()
	m.input.Focus()
	return m
}

func (m appModel) handleEditKey(msg tea.KeyMsg) (appModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.eng.CommitEdit(m.input.Value())
		m.editing = false
		m.input.Blur()
		m.pumpAfterEdit()
		return m, nil
	case "esc":
		m.eng.CancelEdit()
		m.editing = false
		m.input.Blur()
		return m, nil
	case "tab", "shift+tab":
		dir := 1
		if msg.String() == "shift+tab" {
			dir = -1
		}
		next, ok := m.nextEditableCol(dir)
		if !ok {
			return m, nil
		}
		row, ok := m.selectedRow()
		if !ok {
			return m, nil
		}
		if m.eng.MoveEdit(row.Task.ID, gridColumns[next].field, m.input.Value()) {
			m.focusCol = next
			if t, ok := m.eng.Index().Task(row.Task.ID); ok {
				m.input.SetValue(t.Field(gridColumns[next].field))
				m.input.CursorEnd()
			}
			m.pumpAfterEdit()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// pumpAfterEdit folds in index changes an edit commit may imply (a rank or
// parent field cannot change through the grid, but dates and progress feed
// the variance column of other rows' parents someday; cheap to just reload).
func (m *appModel) pumpAfterEdit() {
	m.eng.Reload()
	m.syncSelection()
}

func (m appModel) nextEditableCol(dir int) (int, bool) {
	for i := m.focusCol + dir; i >= 0 && i < len(gridColumns); i += dir {
		if gridColumns[i].field.Editable() {
			return i, true
		}
	}
	return 0, false
}

func (m appModel) handleMoveKey(msg tea.KeyMsg) (appModel, tea.Cmd) {
	total := m.eng.Index().Len()
	switch msg.String() {
	case "esc":
		m.eng.CancelDrag()
		m.moveMode = false
		m.hoverMark = ""
		m.statusMsg = ""
		return m, nil
	case "up", "k":
		if m.moveIdx > 0 {
			m.moveIdx--
		}
	case "down", "j":
		if m.moveIdx < total-1 {
			m.moveIdx++
		}
	case "b":
		m.movePos = engine.DropBefore
	case "a":
		m.movePos = engine.DropAfter
	case "c":
		m.movePos = engine.DropChild
	case "enter":
		m.hoverMoveTarget()
		if _, ok := m.eng.Drop(); ok {
			m.statusMsg = "moved"
		} else {
			m.statusMsg = "drop not allowed there"
		}
		m.moveMode = false
		m.hoverMark = ""
		return m, nil
	default:
		return m, nil
	}
	m.hoverMoveTarget()
	m.scrollMoveTargetVisible()
	return m, nil
}

// hoverMoveTarget mirrors the keyboard position onto the engine's pointer
// band model.
func (m *appModel) hoverMoveTarget() {
	m.hoverMark = ""
	row, ok := m.eng.Index().Row(m.moveIdx)
	if !ok || row.Task == nil {
		return
	}
	frac := 0.5
	switch m.movePos {
	case engine.DropBefore:
		frac = 0.1
	case engine.DropAfter:
		frac = 0.9
	}
	if pos, ok := m.eng.DragOver(row.Task.ID, frac); ok {
		m.hoverMark = pos
	}
}

func (m *appModel) scrollMoveTargetVisible() {
	first, _ := m.displayRange()
	vis := m.gridHeight()
	if m.moveIdx < first {
		m.eng.Scroll(float64(m.moveIdx))
	} else if m.moveIdx >= first+vis {
		m.eng.Scroll(float64(m.moveIdx - vis + 1))
	}
}

func (m appModel) handleMouse(msg tea.MouseMsg) appModel {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.eng.ScrollBy(-3)
		return m
	case tea.MouseButtonWheelDown:
		m.eng.ScrollBy(3)
		return m
	}

	first, last := m.displayRange()
	rowAt := func(y int) (engine.Row, bool) {
		ix := first + y - 1 // header occupies line 0
		if ix < first || ix > last {
			return engine.Row{}, false
		}
		return m.eng.Index().Row(ix)
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m
		}
		if row, ok := rowAt(msg.Y); ok && row.Task != nil {
			m.cursor = row.FlatIndex
			m.syncSelection()
			m.eng.BeginDrag(row.Task.ID)
		}
	case tea.MouseActionMotion:
		if !m.eng.Dragging() {
			return m
		}
		if row, ok := rowAt(msg.Y); ok && row.Task != nil {
			m.moveIdx = row.FlatIndex
			m.hoverMark = ""
			if pos, ok := m.eng.DragOver(row.Task.ID, dropFraction(msg.X, m.width)); ok {
				m.hoverMark = pos
			}
		}
	case tea.MouseActionRelease:
		if !m.eng.Dragging() {
			return m
		}
		if row, ok := rowAt(msg.Y); ok && row.Task != nil && row.FlatIndex != m.cursor {
			m.eng.DragOver(row.Task.ID, dropFraction(msg.X, m.width))
			m.eng.Drop()
		} else {
			m.eng.CancelDrag()
		}
		m.hoverMark = ""
	}
	return m
}

// dropFraction maps the pointer column onto the before/child/after bands: the
// left quarter targets "before", the right quarter "after", the middle nests.
func dropFraction(x, width int) float64 {
	if width <= 0 {
		return 0.5
	}
	f := float64(x) / float64(width)
	switch {
	case f < 0.25:
		return 0.1
	case f > 0.75:
		return 0.9
	}
	return 0.5
}

func (m appModel) addTask(asChild bool) appModel {
	parentID := ""
	if row, ok := m.selectedRow(); ok {
		if asChild {
			parentID = row.Task.ID
		} else {
			parentID = row.Task.Parent()
		}
	}
	t, err := mutate.AddTask(m.host.db, parentID, "New task", time.Now())
	if err != nil {
		m.statusMsg = err.Error()
		return m
	}
	m.host.save()
	m.eng.Reload()
	if ix, ok := m.eng.Index().FlatIndex(t.ID); ok {
		m.cursor = ix
	}
	m.syncSelection()
	m.ensureCursorVisible()
	m.focusCol = 0
	return m.startEdit()
}

func (m appModel) removeSelected() appModel {
	row, ok := m.selectedRow()
	if !ok {
		return m
	}
	removed, err := mutate.RemoveTask(m.host.db, row.Task.ID)
	if err != nil {
		m.statusMsg = err.Error()
		return m
	}
	m.host.save()
	m.eng.Reload()
	m.syncSelection()
	m.statusMsg = "removed " + strconv.Itoa(len(removed)) + " task(s)"
	return m
}

func (m *appModel) persistUIState() {
	ui := m.uiState
	if ui == nil {
		ui = &store.UIState{Version: 1}
	}
	ui.ScrollOffset = m.eng.Viewport().Offset()
	if row, ok := m.selectedRow(); ok && row.Task != nil {
		ui.SelectedTaskID = row.Task.ID
		ui.SelectedIDs = []string{row.Task.ID}
	}
	ui.FocusedField = string(gridColumns[m.focusCol].field)
	// Best effort; losing scroll position is not worth an error screen.
	_ = m.host.store.SaveUIState(ui)
}
