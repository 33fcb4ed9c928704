package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gantterm/internal/model"

	_ "modernc.org/sqlite"
)

// Task persistence.
//
// The row carries indexed columns for hierarchy/ordering queries plus a full
// JSON blob as the source of truth, so adding task fields never needs a
// schema migration. Ranks are stored verbatim: order keys are part of the
// task's serialized form and must survive restarts unchanged.

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout avoids
	// "database is locked" flakiness with concurrent CLI invocations.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			parent_id TEXT NOT NULL,
			rank TEXT NOT NULL,
			title TEXT NOT NULL,
			status_id TEXT NOT NULL,
			collapsed INTEGER NOT NULL,
			start_date TEXT NOT NULL,
			due_date TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id, rank);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_date);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the whole task set from the workspace db.
func (s Store) Load(ctx context.Context) (*DB, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	out := &DB{Version: 1}

	var v string
	if err := db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = ?`, "version").Scan(&v); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			out.Version = n
		}
	}

	rows, err := db.QueryContext(ctx, `SELECT json FROM tasks ORDER BY parent_id, rank, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var t model.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("corrupt task row: %w", err)
		}
		if strings.TrimSpace(t.ID) == "" {
			continue
		}
		tt := t
		out.Tasks = append(out.Tasks, &tt)
	}
	return out, rows.Err()
}

// Save writes the whole task set in one transaction (replace-all: simple and
// safe at grid scale; incremental writes can come later if profiles demand it).
func (s Store) Save(ctx context.Context, st *DB) error {
	if st == nil {
		return errors.New("nil db")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(k, v) VALUES(?, ?)`, "version", fmt.Sprintf("%d", st.Version)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return err
	}

	nowMs := time.Now().UTC().UnixMilli()
	for _, t := range st.Tasks {
		if t == nil || strings.TrimSpace(t.ID) == "" {
			continue
		}
		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		parent := ""
		if t.ParentID != nil {
			parent = strings.TrimSpace(*t.ParentID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks(
			id, parent_id, rank, title, status_id, collapsed,
			start_date, due_date, json, updated_at_unixms
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, parent, strings.TrimSpace(t.Rank), t.Title, strings.TrimSpace(t.StatusID),
			boolToInt(t.Collapsed), t.Start.String(), t.Due.String(), string(raw), nowMs,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
