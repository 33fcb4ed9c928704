package cli

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gantterm/internal/engine"
	"gantterm/internal/format"
	"gantterm/internal/model"
	"gantterm/internal/mutate"
	"gantterm/internal/store"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Create, list and move tasks",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksSetCmd(app))
	cmd.AddCommand(newTasksMoveCmd(app))
	cmd.AddCommand(newTasksRmCmd(app))
	cmd.AddCommand(newTasksSeedCmd(app))
	return cmd
}

func loadDB(app *App) (store.Store, *store.DB, error) {
	s := store.NewStore(app.Dir)
	db, err := s.Load(context.Background())
	if err != nil {
		return s, nil, err
	}
	return s, db, nil
}

type taskRow struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	Rank     string `json:"rank,omitempty"`
	Depth    int    `json:"depth"`
	Title    string `json:"title"`
	Status   string `json:"status,omitempty"`
	Start    string `json:"start,omitempty"`
	Due      string `json:"due,omitempty"`
	Progress int    `json:"progress"`
	Children bool   `json:"hasChildren"`
}

func newTasksListCmd(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in outline order",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := loadDB(app)
			if err != nil {
				return err
			}
			tasks := db.Tasks
			if all {
				// Expand collapsed branches for the listing only.
				tasks = make([]*model.Task, len(db.Tasks))
				for i, t := range db.Tasks {
					c := *t
					c.Collapsed = false
					tasks[i] = &c
				}
			}
			ix := engine.NewIndex(tasks)
			out := make([]taskRow, 0, ix.Len())
			for _, r := range ix.Rows() {
				t := r.Task
				pid := ""
				if t.ParentID != nil {
					pid = *t.ParentID
				}
				out = append(out, taskRow{
					ID: t.ID, ParentID: pid, Rank: t.Rank, Depth: r.Depth,
					Title: t.Title, Status: t.StatusID,
					Start: t.Start.String(), Due: t.Due.String(),
					Progress: t.Progress, Children: r.HasChildren,
				})
			}
			return format.WriteJSON(cmd.OutOrStdout(), map[string]any{"tasks": out}, app.PrettyJSON)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include rows hidden under collapsed parents")
	return cmd
}

func newTasksAddCmd(app *App) *cobra.Command {
	var parent, start, due string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task (appended under --parent, or at root level)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, db, err := loadDB(app)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			t, err := mutate.AddTask(db, parent, strings.Join(args, " "), now)
			if err != nil {
				return err
			}
			if start != "" {
				if _, err := mutate.SetField(db, t.ID, model.FieldStart, start, now); err != nil {
					return err
				}
			}
			if due != "" {
				if _, err := mutate.SetField(db, t.ID, model.FieldDue, due, now); err != nil {
					return err
				}
			}
			if err := s.Save(context.Background(), db); err != nil {
				return err
			}
			return format.WriteJSON(cmd.OutOrStdout(), t, app.PrettyJSON)
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "Parent task id")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	return cmd
}

func newTasksSetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <task-id> <field> <value>",
		Short: "Set one field (title|status|assignee|start|due|progress|notes)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, db, err := loadDB(app)
			if err != nil {
				return err
			}
			field := model.FieldID(strings.ToLower(strings.TrimSpace(args[1])))
			if !field.Known() {
				return fmt.Errorf("unknown field: %s", args[1])
			}
			changed, err := mutate.SetField(db, args[0], field, args[2], time.Now().UTC())
			if err != nil {
				return err
			}
			if changed {
				if err := s.Save(context.Background(), db); err != nil {
					return err
				}
			}
			return format.WriteJSON(cmd.OutOrStdout(), map[string]any{"changed": changed}, app.PrettyJSON)
		},
	}
	return cmd
}

func newTasksMoveCmd(app *App) *cobra.Command {
	var target, pos string
	cmd := &cobra.Command{
		Use:   "move <task-id>...",
		Short: "Move tasks relative to a target row",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, db, err := loadDB(app)
			if err != nil {
				return err
			}
			p := engine.DropPos(strings.ToLower(strings.TrimSpace(pos)))
			switch p {
			case engine.DropBefore, engine.DropAfter, engine.DropChild:
			default:
				return errors.New("--pos must be before|after|child")
			}
			changed, err := mutate.ApplyMove(db, args, target, p, time.Now().UTC())
			if err != nil {
				return err
			}
			if changed {
				if err := s.Save(context.Background(), db); err != nil {
					return err
				}
			}
			return format.WriteJSON(cmd.OutOrStdout(), map[string]any{"moved": changed}, app.PrettyJSON)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "Target task id (required)")
	cmd.Flags().StringVar(&pos, "pos", "child", "Drop position: before|after|child")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newTasksRmCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <task-id>",
		Short: "Remove a task and its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, db, err := loadDB(app)
			if err != nil {
				return err
			}
			removed, err := mutate.RemoveTask(db, args[0])
			if err != nil {
				return err
			}
			if len(removed) > 0 {
				if err := s.Save(context.Background(), db); err != nil {
					return err
				}
			}
			return format.WriteJSON(cmd.OutOrStdout(), map[string]any{"removed": removed}, app.PrettyJSON)
		},
	}
	return cmd
}

func newTasksSeedCmd(app *App) *cobra.Command {
	var count int
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the workspace with generated tasks (grid-scale demo data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, db, err := loadDB(app)
			if err != nil {
				return err
			}
			if reset {
				db.Tasks = nil
			}
			if count < 1 {
				count = 1000
			}
			if err := seedTasks(db, count); err != nil {
				return err
			}
			if err := s.Save(context.Background(), db); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "seeded %d tasks into %s\n", count, s.Dir())
			return format.WriteJSON(cmd.OutOrStdout(), map[string]any{"total": len(db.Tasks)}, app.PrettyJSON)
		},
	}
	cmd.Flags().IntVar(&count, "count", 1000, "Number of tasks to create")
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop existing tasks first")
	return cmd
}

var seedTitles = []string{
	"Design review", "API contract", "Schema migration", "Load test",
	"Docs pass", "Release checklist", "Refactor pass", "Spike",
	"Customer feedback", "Bug triage", "Perf audit", "Rollout",
}

// seedTasks builds a plausible project tree: roots are phases, with up to two
// levels of children, dated across a few months.
func seedTasks(db *store.DB, count int) error {
	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()
	base := now.AddDate(0, -1, 0)

	var parents []string
	var grandparents []string
	for i := 0; i < count; i++ {
		parent := ""
		switch {
		case i%17 == 0 || len(grandparents) == 0:
			// New phase root.
		case i%5 == 0 && len(grandparents) > 0:
			parent = grandparents[rng.Intn(len(grandparents))]
		case len(parents) > 0:
			parent = parents[rng.Intn(len(parents))]
		}

		title := fmt.Sprintf("%s %d", seedTitles[rng.Intn(len(seedTitles))], i+1)
		t, err := mutate.AddTask(db, parent, title, now)
		if err != nil {
			return err
		}
		start := base.AddDate(0, 0, rng.Intn(60))
		t.Start = &model.DateOnly{Date: start.Format("2006-01-02")}
		t.Due = &model.DateOnly{Date: start.AddDate(0, 0, 1+rng.Intn(21)).Format("2006-01-02")}
		t.Progress = rng.Intn(101)
		t.Assignee = []string{"ana", "bo", "chi", "dev", ""}[rng.Intn(5)]
		t.StatusID = []string{"todo", "doing", "done"}[rng.Intn(3)]

		if parent == "" {
			grandparents = append(grandparents, t.ID)
		} else if rng.Intn(3) == 0 {
			parents = append(parents, t.ID)
		}
	}
	return nil
}
