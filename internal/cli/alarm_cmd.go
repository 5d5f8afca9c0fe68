package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/tempus/internal/cli/formatter"
	"github.com/alexanderramin/tempus/internal/domain"
	"github.com/alexanderramin/tempus/internal/recurrence"
)

// resolveAlarmID resolves user input against the stored alarms: exact ID,
// then unique ID prefix, then unique label match (case-insensitive).
func resolveAlarmID(ctx context.Context, app *App, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("alarm ID is required")
	}
	alarms, err := app.Backend.Alarms(ctx)
	if err != nil {
		return "", err
	}

	for _, a := range alarms {
		if a.ID == input {
			return a.ID, nil
		}
	}

	var matches []string
	for _, a := range alarms {
		if strings.HasPrefix(a.ID, input) {
			matches = append(matches, a.ID)
		}
	}
	if len(matches) == 0 {
		for _, a := range alarms {
			if strings.EqualFold(a.Label, input) {
				matches = append(matches, a.ID)
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("alarm not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("alarm %q is ambiguous (%d matches)", input, len(matches))
	}
}

func newAlarmCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alarm",
		Short: "Manage alarms",
	}

	cmd.AddCommand(
		newAlarmAddCmd(app),
		newAlarmListCmd(app),
		newAlarmEditCmd(app),
		newAlarmRemoveCmd(app),
		newAlarmToggleCmd(app),
		newAlarmSnoozeCmd(app),
	)

	return cmd
}

func newAlarmAddCmd(app *App) *cobra.Command {
	var timeStr, label string
	rec := domain.Recurrence{Kind: domain.RecurOnce}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new alarm",
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeStr == "" {
				if app.IsInteractive == nil || !app.IsInteractive() {
					return fmt.Errorf("--time is required")
				}
				repeat := "once"
				if err := alarmForm(&timeStr, &label, &repeat).Run(); err != nil {
					return err
				}
				parsed, err := parseRepeat(repeat)
				if err != nil {
					return err
				}
				rec = parsed
			}

			hour, minute, err := parseClockTime(timeStr)
			if err != nil {
				return err
			}
			a, err := app.Backend.CreateAlarm(context.Background(), label,
				domain.TimeOfDay{Hour: hour, Minute: minute}, rec)
			if err != nil {
				return err
			}

			fmt.Printf("Alarm set for %s (%s) [%s]\n",
				formatter.Clock(a.Time, app.Use24h), describeRepeat(a.Recurrence), shortID(a.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&timeStr, "time", "", "Alarm time (HH:MM)")
	cmd.Flags().StringVar(&label, "label", "", "Alarm label")
	cmd.Flags().Var(newRepeatFlag(&rec), "repeat", "Repeat schedule: once|daily|weekdays|weekends|mon,wed,fri")

	return cmd
}

func newAlarmListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alarms",
		RunE: func(cmd *cobra.Command, args []string) error {
			alarms, err := app.Backend.Alarms(context.Background())
			if err != nil {
				return err
			}
			if len(alarms) == 0 {
				fmt.Println("No alarms.")
				return nil
			}

			fmt.Println(formatter.Header("Alarms"))
			now := time.Now()
			for _, a := range alarms {
				state := formatter.StyleGreen.Render("on")
				if !a.Enabled {
					state = formatter.Dim("off")
				}
				line := fmt.Sprintf("%s  %s  %-10s %s",
					shortID(a.ID),
					formatter.Bold(formatter.Clock(a.Time, app.Use24h)),
					describeRepeat(a.Recurrence),
					state)
				if a.Label != "" {
					line += "  " + a.Label
				}
				if a.SnoozedUntil != nil && a.SnoozedUntil.After(now) {
					line += "  " + formatter.StyleYellow.Render(
						fmt.Sprintf("(snoozed until %s)", a.SnoozedUntil.Format("15:04")))
				}
				if a.Enabled {
					if next, err := recurrence.NextOccurrence(a.Time, a.Recurrence, now); err == nil {
						line += "  " + formatter.Dim(nextWhenText(next))
					}
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newAlarmEditCmd(app *App) *cobra.Command {
	var timeStr, label string
	var rec domain.Recurrence

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an alarm's time, label, or schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveAlarmID(ctx, app, args[0])
			if err != nil {
				return err
			}
			current, err := app.Backend.Alarms(ctx)
			if err != nil {
				return err
			}
			var existing domain.Alarm
			for _, a := range current {
				if a.ID == id {
					existing = a
				}
			}

			if timeStr == "" {
				timeStr = fmt.Sprintf("%02d:%02d", existing.Time.Hour, existing.Time.Minute)
			}
			if !cmd.Flags().Changed("label") {
				label = existing.Label
			}
			if !cmd.Flags().Changed("repeat") {
				rec = existing.Recurrence
			}

			hour, minute, err := parseClockTime(timeStr)
			if err != nil {
				return err
			}
			updated, err := app.Backend.UpdateAlarm(ctx, id, label,
				domain.TimeOfDay{Hour: hour, Minute: minute}, rec)
			if err != nil {
				return err
			}
			fmt.Printf("Alarm %s updated to %s (%s)\n",
				shortID(updated.ID), formatter.Clock(updated.Time, app.Use24h),
				describeRepeat(updated.Recurrence))
			return nil
		},
	}

	cmd.Flags().StringVar(&timeStr, "time", "", "New alarm time (HH:MM)")
	cmd.Flags().StringVar(&label, "label", "", "New label")
	cmd.Flags().Var(newRepeatFlag(&rec), "repeat", "New repeat schedule")

	return cmd
}

func newAlarmRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Delete an alarm",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveAlarmID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Backend.DeleteAlarm(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Alarm %s removed\n", shortID(id))
			return nil
		},
	}
}

func newAlarmToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable an alarm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveAlarmID(ctx, app, args[0])
			if err != nil {
				return err
			}
			enabled, err := app.Backend.ToggleAlarm(ctx, id)
			if err != nil {
				return err
			}
			if enabled {
				fmt.Printf("Alarm %s enabled\n", shortID(id))
			} else {
				fmt.Printf("Alarm %s disabled\n", shortID(id))
			}
			return nil
		},
	}
}

func newAlarmSnoozeCmd(app *App) *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "snooze <id>",
		Short: "Postpone an alarm's next firing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveAlarmID(ctx, app, args[0])
			if err != nil {
				return err
			}
			a, err := app.Backend.SnoozeAlarm(ctx, id, time.Duration(minutes)*time.Minute)
			if err != nil {
				return err
			}
			fmt.Printf("Alarm %s snoozed until %s\n",
				shortID(a.ID), a.SnoozedUntil.Format("15:04"))
			return nil
		},
	}

	cmd.Flags().IntVar(&minutes, "for", 5, "Snooze duration in minutes")

	return cmd
}

func nextWhenText(n recurrence.Next) string {
	switch n.When {
	case recurrence.WhenToday:
		return "today"
	case recurrence.WhenTomorrow:
		return "tomorrow"
	case recurrence.WhenWeekday:
		return strings.ToLower(domain.WeekdayName(n.Weekday))
	default:
		return "next week"
	}
}

// shortID truncates a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
