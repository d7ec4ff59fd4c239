package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"gia/internal/control"
	"gia/internal/core/alarm"
	"gia/internal/core/model"
	"gia/internal/core/scheduler"
	"gia/internal/logger"
	"gia/internal/messages"
	"gia/internal/platform"
	"gia/internal/storage"
	"gia/internal/ui/overlay"
	"gia/internal/ui/preferences"
	"gia/internal/ui/tray"
	"gia/resources"
)

const (
	appID          = "app.gia"
	statusInterval = 30 * time.Second
	shutdownGrace  = 2 * time.Second
)

// RunCmd starts the tray application.
type RunCmd struct {
	NoOverlay bool `help:"Use desktop notifications instead of the break card." env:"GIA_NO_OVERLAY"`
}

func (cmd *RunCmd) Run(appCtx *appContext) error {
	listener, err := control.Listen(platform.AppName)
	if err != nil {
		if errors.Is(err, control.ErrAlreadyRunning) {
			fmt.Println("Gia is already running.")
			return nil
		}
		return err
	}

	if err := os.MkdirAll(appCtx.ConfigDir, 0o755); err != nil {
		_ = listener.Close()
		return fmt.Errorf("create config dir: %w", err)
	}

	settingsFile := storage.NewSettingsFile(appCtx.ConfigDir)
	state, err := storage.OpenState(filepath.Join(appCtx.ConfigDir, storage.StateFileName))
	if err != nil {
		_ = listener.Close()
		return err
	}
	defer func() {
		if err := state.Close(); err != nil {
			logger.Warn("close state failed", "error", err)
		}
	}()

	generator, err := messages.NewGenerator()
	if err != nil {
		_ = listener.Close()
		return err
	}
	speaker := platform.NewSpeaker()

	alarms := alarm.NewManager(nil)
	sched := scheduler.New(scheduler.Deps{
		Alarms:   alarms,
		Settings: settingsFile,
		State:    state,
		Sound:    speaker,
	})
	alarms.SetHandler(sched.HandleAlarm)

	fyneApp := app.NewWithID(appID)
	fyneApp.SetIcon(resources.MustLogo())
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		_ = listener.Close()
		return errors.New("system tray unsupported on this platform")
	}

	trayWindow := fyneApp.NewWindow("Gia")
	trayWindow.SetContent(widget.NewLabel("Gia is running in the system tray."))
	trayWindow.SetCloseIntercept(func() {
		trayWindow.Hide()
	})
	trayWindow.Hide()
	desktopApp.SetSystemTrayWindow(trayWindow)

	var breakCard breakView
	if !cmd.NoOverlay {
		card := overlay.New(fyneApp, resources.MustLogo())
		card.SetOnSnooze(func() {
			sched.Snooze(0)
		})
		card.SetOnDone(speaker.Stop)
		card.SetOnFinished(speaker.Stop)
		breakCard = card
	}

	initial, err := settingsFile.LoadSettings()
	if err != nil {
		logger.Warn("load settings failed, using defaults", "error", err)
	}
	prefsWindow := preferences.New(fyneApp, initial, func(updated model.Settings) error {
		// The window may have been opened before a pause from the tray or CLI.
		if current, err := settingsFile.LoadSettings(); err == nil {
			updated.Paused = current.Paused
			updated.Exited = current.Exited
		}
		if err := settingsFile.SaveSettings(updated); err != nil {
			return err
		}
		if err := applyAutostart(appCtx.Platform, updated.Autostart); err != nil {
			logger.Warn("apply autostart failed", "error", err)
		}
		sched.SettingsChanged()
		return nil
	})

	trayManager := tray.New(desktopApp, resources.MustStage, tray.Callbacks{
		OnPreferences: func() {
			current, err := settingsFile.LoadSettings()
			if err != nil {
				logger.Warn("load settings failed", "error", err)
			}
			prefsWindow.UpdateSettings(current)
			prefsWindow.Show()
		},
		OnBreakNow: sched.ImmediateBreak,
		OnSnooze: func() {
			sched.Snooze(0)
		},
		OnTogglePause: func() {
			if sched.Status().Paused {
				sched.Resume()
				return
			}
			sched.Pause()
		},
		OnDisableFor: func(hours int) {
			if err := sched.DisableTemporarily(hours); err != nil {
				logger.Warn("disable failed", "error", err)
			}
		},
		OnDemo: func() {
			sched.StartDemo()
		},
		OnQuit: func() {
			fyneApp.Quit()
		},
	})

	lockPath := filepath.Join(appCtx.ConfigDir, control.LockFileName)
	server := control.NewServer(sched, lockPath)
	go func() {
		if err := server.Serve(listener); err != nil {
			logger.Error("control server stopped", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := storage.NewWatcher(settingsFile.Path(), storage.DefaultDebounce, sched.SettingsChanged)
	if err != nil {
		logger.Warn("settings watcher unavailable", "error", err)
	} else {
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Warn("settings watcher stopped", "error", err)
			}
		}()
	}

	view := &presenter{
		view:      breakCard,
		tray:      trayManager,
		voice:     speaker,
		notify:    notifier(fyneApp),
		settings:  settingsFile,
		generator: generator,
		status:    sched,
		now:       time.Now,
	}
	events := sched.Subscribe(32)
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	go view.run(events, ticker.C)

	sched.Start()
	trayManager.SetPaused(sched.Status().Paused)
	view.refreshStatus()
	logger.Info("gia started", "config_dir", appCtx.ConfigDir, "version", version)

	fyneApp.Run()

	cancel()
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logger.Warn("close watcher failed", "error", err)
		}
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("control server shutdown failed", "error", err)
	}
	speaker.Stop()
	sched.Stop()
	logger.Info("gia stopped")
	return nil
}

func notifier(fyneApp fyne.App) func(title, body string) {
	return func(title, body string) {
		fyne.Do(func() {
			fyneApp.SendNotification(fyne.NewNotification(title, body))
		})
	}
}

func applyAutostart(service platform.Service, enabled bool) error {
	if !enabled {
		return service.DisableAutostart()
	}
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	return service.EnableAutostart(execPath)
}
