package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/tempus/internal/cli/formatter"
	"github.com/alexanderramin/tempus/internal/domain"
)

// parseTimerDuration accepts Go duration syntax ("5m", "1h30m") or a bare
// number of minutes ("25").
func parseTimerDuration(s string) (time.Duration, error) {
	if mins, err := strconv.Atoi(s); err == nil {
		return time.Duration(mins) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: want minutes or a duration like 1h30m", s)
	}
	return d, nil
}

func newTimerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Manage countdown timers",
	}

	cmd.AddCommand(
		newTimerAddCmd(app),
		newTimerListCmd(app),
		newTimerCancelCmd(app),
		newPresetCmd(app),
	)

	return cmd
}

func newTimerAddCmd(app *App) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "add <duration|preset-id>",
		Short: "Start a countdown timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			d, err := parseTimerDuration(args[0])
			if err != nil {
				// Fall back to a saved preset.
				presets, perr := app.Backend.Presets(ctx)
				if perr != nil {
					return err
				}
				for _, p := range presets {
					if p.ID == args[0] {
						d = time.Duration(p.Seconds) * time.Second
						if label == "" {
							label = p.Label
						}
						err = nil
						break
					}
				}
				if err != nil {
					return err
				}
			}

			t, err := app.Backend.CreateTimer(ctx, label, d)
			if err != nil {
				return err
			}
			fmt.Printf("Timer for %s started [%s]\n",
				formatter.Duration(t.Duration.Milliseconds()), shortID(t.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Timer label")

	return cmd
}

func newTimerListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List running timers",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.Backend.Snapshot(context.Background())
			if err != nil {
				return err
			}
			if len(snap.Timers) == 0 {
				fmt.Println("No running timers.")
				return nil
			}

			fmt.Println(formatter.Header("Timers"))
			for _, t := range snap.Timers {
				line := fmt.Sprintf("%s  %s remaining",
					shortID(t.ID),
					formatter.Bold(formatter.Duration(t.Remaining(snap.TakenAt).Milliseconds())))
				if t.Label != "" {
					line += "  " + t.Label
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newTimerCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a running timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			snap, err := app.Backend.Snapshot(ctx)
			if err != nil {
				return err
			}
			id := args[0]
			for _, t := range snap.Timers {
				if t.ID == id || shortID(t.ID) == id {
					id = t.ID
					break
				}
			}
			if err := app.Backend.CancelTimer(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Timer %s cancelled\n", shortID(id))
			return nil
		},
	}
}

func newPresetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage saved timer durations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := app.Backend.Presets(context.Background())
			if err != nil {
				return err
			}
			fmt.Println(formatter.Header("Presets"))
			for _, p := range presets {
				fmt.Printf("%-10s %6s  %s\n", p.ID,
					formatter.Duration(int64(p.Seconds)*1000), p.Label)
			}
			return nil
		},
	}

	var saveLabel string
	save := &cobra.Command{
		Use:   "save <duration>",
		Short: "Save a new preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseTimerDuration(args[0])
			if err != nil {
				return err
			}
			p := domain.Preset{
				ID:      uuid.New().String()[:8],
				Seconds: int(d / time.Second),
				Label:   saveLabel,
			}
			if p.Label == "" {
				p.Label = formatter.Duration(int64(p.Seconds) * 1000)
			}
			if err := app.Backend.SavePreset(context.Background(), p); err != nil {
				return err
			}
			fmt.Printf("Preset %s saved\n", p.ID)
			return nil
		},
	}
	save.Flags().StringVar(&saveLabel, "label", "", "Preset label")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Backend.DeletePreset(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Preset %s removed\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, save, rm)
	return cmd
}
