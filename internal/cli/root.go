package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// App carries the persistent flag state shared by all commands.
type App struct {
	Dir        string
	PrettyJSON bool
	Debug      bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "gantterm",
		Short:        "Terminal project grid: hierarchical tasks, virtualized at 10k+ rows",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive grid
  gantterm

  # Scriptable commands
  gantterm tasks list
  gantterm tasks add "Ship the beta" --parent task-xxxxxxxx

  # Populate a large demo workspace
  gantterm tasks seed --count 10000
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if app.Debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("GANTTERM_DIR", ""), "Path to workspace dir (default: ~/.gantterm)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().BoolVar(&app.Debug, "debug", false, "Verbose logging to stderr")

	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newTUICmd(app))

	return cmd
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
