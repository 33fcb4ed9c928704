package cli

import (
	"context"

	"github.com/spf13/cobra"

	"gantterm/internal/store"
	"gantterm/internal/tui"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(app)
		},
	}
}

func runTUI(app *App) error {
	s := store.NewStore(app.Dir)
	db, err := s.Load(context.Background())
	if err != nil {
		return err
	}
	return tui.Run(s, db)
}
