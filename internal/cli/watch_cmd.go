package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard: alarms, timers, stopwatch, and Pomodoro",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.IsInteractive != nil && !app.IsInteractive() {
				return fmt.Errorf("watch needs an interactive terminal")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			runErr := make(chan error, 1)
			go func() { runErr <- app.Controller.Run(ctx) }()
			defer app.Controller.Close()

			p := tea.NewProgram(newWatchModel(app), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return err
			}

			select {
			case err := <-runErr:
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
			default:
			}
			return nil
		},
	}
}
