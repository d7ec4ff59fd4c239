package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gia/internal/control"
	"gia/internal/storage"
)

const requestTimeout = 5 * time.Second

func withClient(appCtx *appContext, run func(ctx context.Context, client *control.Client) error) error {
	client, err := control.Dial(filepath.Join(appCtx.ConfigDir, control.LockFileName))
	if err != nil {
		if errors.Is(err, control.ErrNotRunning) {
			return fmt.Errorf("%w (start it with `gia run`)", err)
		}
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return run(ctx, client)
}

func printResult(result control.ResultView) {
	if result.Message == "" {
		return
	}
	if result.OK {
		fmt.Printf("✓ %s\n", result.Message)
		return
	}
	fmt.Println(result.Message)
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

type StatusCmd struct {
	JSON bool `help:"Print the raw status as JSON."`
}

func (c *StatusCmd) Run(appCtx *appContext) error {
	return withClient(appCtx, func(ctx context.Context, client *control.Client) error {
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}
		if c.JSON {
			return printJSON(status)
		}

		fmt.Printf("State:    %s\n", status.State)
		switch {
		case status.Exited:
			fmt.Println("Reminders stopped until resumed.")
		case status.ResumeAt != nil:
			fmt.Printf("Disabled until %s\n", status.ResumeAt.Local().Format("15:04"))
		case status.Paused:
			fmt.Println("Reminders paused.")
		}
		if status.NextBreak != nil {
			fmt.Printf("Next break:      %s\n", status.NextBreak.Local().Format("15:04:05"))
		}
		if status.NextLongBreak != nil {
			fmt.Printf("Next long break: %s\n", status.NextLongBreak.Local().Format("15:04:05"))
		}
		fmt.Printf("Minutes toward long break: %d\n", status.ElapsedMinutes)
		if status.DemoRunning {
			fmt.Println("Demo running.")
		}
		return nil
	})
}

type PauseCmd struct{}

func (c *PauseCmd) Run(appCtx *appContext) error {
	return withClient(appCtx, func(ctx context.Context, client *control.Client) error {
		result, err := client.Pause(ctx)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	})
}

type ResumeCmd struct{}

func (c *ResumeCmd) Run(appCtx *appContext) error {
	return withClient(appCtx, func(ctx context.Context, client *control.Client) error {
		result, err := client.Resume(ctx)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	})
}

type ExitCmd struct{}

func (c *ExitCmd) Run(appCtx *appContext) error {
	return withClient(appCtx, func(ctx context.Context, client *control.Client) error {
		result, err := client.Exit(ctx)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	})
}

type SnoozeCmd struct {
	Minutes int `arg:"" optional:"" help:"Minutes to delay the next break (default: snooze setting)."`
}

func (c *SnoozeCmd) Run(appCtx *appContext) error {
	if c.Minutes < 0 {
		return fmt.Errorf("invalid minutes: %d", c.Minutes)
	}
	return withClient(appCtx, func(ctx context.Context, client *control.Client) error {
		result, err := client.Snooze(ctx, c.Minutes)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	})
}

type BreakCmd struct{}

func (c *BreakCmd) Run(appCtx *appContext) error {
	return withClient(appCtx, func(ctx context.Context, client *control.Client) error {
		result, err := client.Break(ctx)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	})
}

type DisableCmd struct {
	Hours int `arg:"" help:"Hours to disable reminders for."`
}

func (c *DisableCmd) Run(appCtx *appContext) error {
	if c.Hours < 1 {
		return fmt.Errorf("invalid hours: %d (must be at least 1)", c.Hours)
	}
	return withClient(appCtx, func(ctx context.Context, client *control.Client) error {
		result, err := client.Disable(ctx, c.Hours)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	})
}

type DemoCmd struct{}

func (c *DemoCmd) Run(appCtx *appContext) error {
	return withClient(appCtx, func(ctx context.Context, client *control.Client) error {
		result, err := client.Demo(ctx)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	})
}

type RescheduleCmd struct{}

func (c *RescheduleCmd) Run(appCtx *appContext) error {
	return withClient(appCtx, func(ctx context.Context, client *control.Client) error {
		result, err := client.Reschedule(ctx)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	})
}

type StatsCmd struct {
	Recent int `help:"Number of recent breaks to list." default:"5"`
}

func (c *StatsCmd) Run(appCtx *appContext) error {
	store, err := storage.OpenState(filepath.Join(appCtx.ConfigDir, storage.StateFileName))
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(time.Now())
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	fmt.Printf("Breaks today: %d\n", stats.Today)
	fmt.Printf("Breaks total: %d (%d short, %d long)\n", stats.Total, stats.Short, stats.Long)
	fmt.Printf("Streak:       %d day(s)\n", stats.StreakDays)
	if !stats.LastBreak.IsZero() {
		fmt.Printf("Last break:   %s\n", stats.LastBreak.Local().Format("2006-01-02 15:04"))
	}

	if c.Recent <= 0 {
		return nil
	}
	recent, err := store.RecentBreaks(c.Recent)
	if err != nil {
		return fmt.Errorf("failed to list breaks: %w", err)
	}
	if len(recent) == 0 {
		return nil
	}
	fmt.Println()
	for _, record := range recent {
		fmt.Printf("  %s  %-5s  %s\n", record.At.Local().Format("2006-01-02 15:04"), record.Kind, record.Duration)
	}
	return nil
}

type AutostartEnableCmd struct{}

func (c *AutostartEnableCmd) Run(appCtx *appContext) error {
	if err := setAutostart(appCtx, true); err != nil {
		return err
	}
	fmt.Println("✓ Gia will start at login.")
	return nil
}

type AutostartDisableCmd struct{}

func (c *AutostartDisableCmd) Run(appCtx *appContext) error {
	if err := setAutostart(appCtx, false); err != nil {
		return err
	}
	fmt.Println("✓ Gia will not start at login.")
	return nil
}

type AutostartStatusCmd struct{}

func (c *AutostartStatusCmd) Run(appCtx *appContext) error {
	enabled, err := appCtx.Platform.AutostartEnabled()
	if err != nil {
		return err
	}
	if enabled {
		fmt.Println("Start at login: enabled")
	} else {
		fmt.Println("Start at login: disabled")
	}
	return nil
}

// setAutostart registers the login item and records the choice in settings.
func setAutostart(appCtx *appContext, enabled bool) error {
	if err := applyAutostart(appCtx.Platform, enabled); err != nil {
		return err
	}
	settingsFile := storage.NewSettingsFile(appCtx.ConfigDir)
	settings, err := settingsFile.LoadSettings()
	if err != nil {
		return err
	}
	settings.Autostart = enabled
	return settingsFile.SaveSettings(settings)
}

type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(appCtx *appContext) error {
	settingsFile := storage.NewSettingsFile(appCtx.ConfigDir)
	settings, err := settingsFile.LoadSettings()
	if err != nil {
		return err
	}

	fmt.Printf("Long breaks:         %t\n", settings.LongBreakEnabled)
	fmt.Printf("Long break every:    %d min\n", settings.LongBreakEveryMinutes)
	fmt.Printf("Long break duration: %d min\n", settings.LongBreakDurationMinutes)
	fmt.Printf("Snooze:              %d min\n", settings.SnoozeMinutes)
	fmt.Printf("Tone:                %s\n", settings.Tone)
	fmt.Printf("Voice:               %t\n", settings.VoiceEnabled)
	fmt.Printf("Language:            %s\n", settings.Language)
	fmt.Printf("Start at login:      %t\n", settings.Autostart)
	fmt.Printf("Paused:              %t\n", settings.Paused)
	return nil
}

type SettingsPathCmd struct{}

func (c *SettingsPathCmd) Run(appCtx *appContext) error {
	path := storage.NewSettingsFile(appCtx.ConfigDir).Path()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Printf("%s (not created yet)\n", path)
		return nil
	}
	fmt.Println(path)
	return nil
}
