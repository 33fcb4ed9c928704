package store

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// UIState stores small, user-facing view state for restoring the grid on
// relaunch. It lives next to the task db so state is scoped per workspace.
// Intentionally best effort: callers tolerate missing/invalid data.
type UIState struct {
	Version int `json:"version"`

	// ScrollOffset is the raw scroll position in row-extent units * extent px.
	ScrollOffset float64 `json:"scrollOffset,omitempty"`

	SelectedTaskID string   `json:"selectedTaskId,omitempty"`
	SelectedIDs    []string `json:"selectedIds,omitempty"`

	// FocusedField restores the focused grid column.
	FocusedField string `json:"focusedField,omitempty"`
}

func (s Store) LoadUIState() (*UIState, error) {
	if strings.TrimSpace(s.dir) == "" {
		return &UIState{Version: 1}, nil
	}
	b, err := os.ReadFile(s.uiStatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &UIState{Version: 1}, nil
		}
		return nil, err
	}
	var st UIState
	if err := json.Unmarshal(b, &st); err != nil {
		// Best-effort; if corrupted, treat as missing.
		return &UIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (s Store) SaveUIState(st *UIState) error {
	if st == nil || strings.TrimSpace(s.dir) == "" {
		return nil
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	path := s.uiStatePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
