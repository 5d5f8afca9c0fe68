package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexanderramin/tempus/internal/backend"
	"github.com/alexanderramin/tempus/internal/reconcile"
)

// App holds the backend and reconciliation controller used by CLI
// commands. One-shot commands talk to the backend directly; the live
// watch view reads the controller's projections.
type App struct {
	Backend    *backend.Local
	Controller *reconcile.Controller

	// Use24h selects the clock rendering for alarm times.
	Use24h bool

	// IsInteractive reports whether stdin is a terminal, gating the huh
	// wizard forms and the watch TUI.
	IsInteractive func() bool
}

// NewRootCmd creates the top-level "tempus" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "tempus",
		Short: "Alarms, timers, stopwatch, and Pomodoro from the terminal",
	}

	root.AddCommand(
		newAlarmCmd(app),
		newTimerCmd(app),
		newPomoCmd(app),
		newWatchCmd(app),
	)

	return root
}
