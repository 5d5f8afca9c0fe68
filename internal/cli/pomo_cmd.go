package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tempus/internal/cli/formatter"
	"github.com/alexanderramin/tempus/internal/domain"
)

func newPomoCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pomo",
		Short: "Pomodoro focus cycle and statistics",
	}

	cmd.AddCommand(
		newPomoStartCmd(app),
		newPomoStopCmd(app),
		newPomoSkipCmd(app),
		newPomoStatusCmd(app),
		newPomoStatsCmd(app),
		newPomoResetCmd(app),
	)

	return cmd
}

func newPomoStartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a focus cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Backend.StartPomodoro(context.Background()); err != nil {
				return err
			}
			cfg := app.Backend.Config()
			fmt.Printf("%s  %s focus session started\n",
				formatter.PhaseIndicator(domain.PhaseWork),
				formatter.Duration(cfg.WorkDuration.Milliseconds()))
			return nil
		},
	}
}

func newPomoStopCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Backend.StopPomodoro(context.Background()); err != nil {
				return err
			}
			fmt.Println("Pomodoro stopped.")
			return nil
		},
	}
}

func newPomoSkipCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Skip to the next phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := app.Backend.SkipPhase(ctx); err != nil {
				return err
			}
			snap, err := app.Backend.Snapshot(ctx)
			if err != nil {
				return err
			}
			fmt.Println(formatter.PhaseIndicator(snap.Pomodoro.Phase))
			return nil
		},
	}
}

func newPomoStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.Backend.Snapshot(context.Background())
			if err != nil {
				return err
			}
			p := snap.Pomodoro
			fmt.Println(formatter.PhaseIndicator(p.Phase))
			if p.Phase != domain.PhaseIdle && p.PhaseEndEpoch != nil {
				remaining := p.PhaseEndEpoch.Sub(snap.TakenAt)
				if remaining < 0 {
					remaining = 0
				}
				fmt.Printf("%s remaining  %s\n",
					formatter.Bold(formatter.Duration(remaining.Milliseconds())),
					formatter.Dim(fmt.Sprintf("session %d, cycle %d", p.SessionIndex, p.CycleIndex)))
			}
			return nil
		},
	}
}

func newPomoStatsCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cumulative focus statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.Backend.Snapshot(context.Background())
			if err != nil {
				return err
			}
			stats := snap.Stats

			fmt.Println(formatter.Header("Pomodoro stats"))
			fmt.Printf("Focus time      %s\n", formatter.Bold(formatter.Duration(stats.FocusSeconds*1000)))
			fmt.Printf("Break time      %s\n", formatter.Duration(stats.BreakSeconds*1000))
			fmt.Printf("Sessions        %d\n", stats.SessionsCompleted)
			fmt.Printf("Cycles          %d\n", stats.CyclesCompleted)
			fmt.Printf("Current streak  %s\n", formatter.StyleGreen.Render(fmt.Sprintf("%d days", stats.CurrentStreakDays)))
			fmt.Printf("Best streak     %d days\n", stats.BestStreakDays)

			if len(stats.Daily) == 0 {
				return nil
			}
			keys := make([]string, 0, len(stats.Daily))
			for day := range stats.Daily {
				keys = append(keys, day)
			}
			sort.Sort(sort.Reverse(sort.StringSlice(keys)))
			if len(keys) > days {
				keys = keys[:days]
			}

			fmt.Println()
			fmt.Println(formatter.Header("Recent days"))
			for _, day := range keys {
				d := stats.Daily[day]
				fmt.Printf("%s  %s focus  %d sessions\n",
					day, formatter.Duration(d.FocusSeconds*1000), d.Sessions)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "How many recent days to show")

	return cmd
}

func newPomoResetCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all Pomodoro statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if app.IsInteractive == nil || !app.IsInteractive() {
					return fmt.Errorf("refusing to reset without --yes on a non-interactive terminal")
				}
				confirmed := false
				if err := confirmForm("Erase all Pomodoro statistics?", &confirmed).Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Println("Aborted.")
					return nil
				}
			}
			if err := app.Backend.ResetStats(context.Background()); err != nil {
				return err
			}
			fmt.Println("Pomodoro statistics erased.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}
