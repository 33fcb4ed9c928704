package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gantterm/internal/model"
)

// Store locates the on-disk workspace (SQLite db + UI state file).
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. Empty dir resolves via GANTTERM_DIR,
// then ~/.gantterm.
func NewStore(dir string) Store {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv("GANTTERM_DIR"))
	}
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".gantterm")
		} else {
			dir = ".gantterm"
		}
	}
	return Store{dir: dir}
}

func (s Store) Dir() string { return s.dir }

func (s Store) sqlitePath() string  { return filepath.Join(s.dir, "tasks.sqlite") }
func (s Store) uiStatePath() string { return filepath.Join(s.dir, "ui_state.json") }

func (s Store) ensureDir() error {
	return os.MkdirAll(s.dir, 0o755)
}

// DB is the in-memory task set. Mutations go through internal/mutate; the
// engine only ever reads it.
type DB struct {
	Version int
	Tasks   []*model.Task
}

// FindTask returns the task with the given id.
func (db *DB) FindTask(id string) (*model.Task, bool) {
	id = strings.TrimSpace(id)
	if db == nil || id == "" {
		return nil, false
	}
	for _, t := range db.Tasks {
		if t != nil && t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// ChildrenOf returns the direct children of parentID (empty string => roots),
// sorted by rank order.
func (db *DB) ChildrenOf(parentID string) []*model.Task {
	parentID = strings.TrimSpace(parentID)
	if db == nil {
		return nil
	}
	var out []*model.Task
	for _, t := range db.Tasks {
		if t == nil {
			continue
		}
		pid := ""
		if t.ParentID != nil {
			pid = strings.TrimSpace(*t.ParentID)
		}
		if pid == parentID {
			out = append(out, t)
		}
	}
	SortTasksByRankOrder(out)
	return out
}

// Depth returns the nesting depth of id (roots are depth 0).
// A broken parent chain terminates the walk rather than looping.
func (db *DB) Depth(id string) int {
	depth := 0
	seen := map[string]bool{}
	cur, ok := db.FindTask(id)
	for ok && cur.ParentID != nil {
		pid := strings.TrimSpace(*cur.ParentID)
		if pid == "" || seen[pid] {
			break
		}
		seen[pid] = true
		cur, ok = db.FindTask(pid)
		if ok {
			depth++
		}
	}
	return depth
}

// IsAncestor reports whether ancestorID appears on id's parent chain.
func (db *DB) IsAncestor(ancestorID, id string) bool {
	ancestorID = strings.TrimSpace(ancestorID)
	if db == nil || ancestorID == "" {
		return false
	}
	seen := map[string]bool{}
	cur, ok := db.FindTask(id)
	for ok && cur.ParentID != nil {
		pid := strings.TrimSpace(*cur.ParentID)
		if pid == "" || seen[pid] {
			return false
		}
		if pid == ancestorID {
			return true
		}
		seen[pid] = true
		cur, ok = db.FindTask(pid)
	}
	return false
}

// SortTasksByRankOrder sorts tasks in place using the grid ordering:
// rank (lexicographic), then CreatedAt, then ID.
func SortTasksByRankOrder(tasks []*model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return CompareTasks(tasks[i], tasks[j]) < 0
	})
}

// CompareTasks orders two tasks by rank, CreatedAt, ID.
//
// The CreatedAt/ID tie-break matters: equal (or missing) ranks must still
// produce a stable ordering, otherwise sorting may reshuffle equal elements
// between rebuilds and rows visibly jump.
func CompareTasks(a, b *model.Task) int {
	ra := strings.TrimSpace(a.Rank)
	rb := strings.TrimSpace(b.Rank)
	if ra != "" && rb != "" && ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if a.CreatedAt.Before(b.CreatedAt) {
		return -1
	}
	if a.CreatedAt.After(b.CreatedAt) {
		return 1
	}
	if a.ID < b.ID {
		return -1
	}
	if a.ID > b.ID {
		return 1
	}
	return 0
}

// MaxRootRank returns the highest rank among root tasks, or "" when none.
func (db *DB) MaxRootRank() string {
	max := ""
	if db == nil {
		return max
	}
	for _, t := range db.Tasks {
		if t == nil || t.ParentID != nil {
			continue
		}
		r := strings.TrimSpace(t.Rank)
		if r == "" {
			continue
		}
		if max == "" || r > max {
			max = r
		}
	}
	return max
}

// MaxChildRank returns the highest rank among direct children of parentID.
func (db *DB) MaxChildRank(parentID string) string {
	max := ""
	for _, t := range db.ChildrenOf(parentID) {
		r := strings.TrimSpace(t.Rank)
		if r == "" {
			continue
		}
		if max == "" || r > max {
			max = r
		}
	}
	return max
}

// GetAll returns the task slice (engine DataSource contract).
func (db *DB) GetAll() []*model.Task {
	if db == nil {
		return nil
	}
	return db.Tasks
}

// IsParent reports whether id has at least one child.
func (db *DB) IsParent(id string) bool {
	id = strings.TrimSpace(id)
	if db == nil || id == "" {
		return false
	}
	for _, t := range db.Tasks {
		if t == nil || t.ParentID == nil {
			continue
		}
		if strings.TrimSpace(*t.ParentID) == id {
			return true
		}
	}
	return false
}

// GetDepth is Depth under the engine DataSource contract.
func (db *DB) GetDepth(id string) int { return db.Depth(id) }

// GetChildren is ChildrenOf under the engine DataSource contract.
func (db *DB) GetChildren(parentID string) []*model.Task { return db.ChildrenOf(parentID) }
