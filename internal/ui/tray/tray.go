package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnPreferences func()
	OnBreakNow    func()
	OnSnooze      func()
	OnTogglePause func()
	OnDisableFor  func(hours int)
	OnDemo        func()
	OnQuit        func()
}

// IconSource returns the tray icon for a stage.
type IconSource func(stage int) fyne.Resource

// DisableHours are the choices of the "Disable for" submenu.
var DisableHours = []int{1, 2, 4}

// Manager handles system tray state.
type Manager struct {
	app        desktop.App
	icons      IconSource
	callbacks  Callbacks
	statusItem *fyne.MenuItem
	pauseItem  *fyne.MenuItem
	snoozeItem *fyne.MenuItem
	menu       *fyne.Menu
	paused     bool
	stage      int
	status     string
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, icons IconSource, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		icons:     icons,
		callbacks: callbacks,
		status:    "starting...",
	}

	manager.statusItem = fyne.NewMenuItem("", nil)
	manager.statusItem.Disabled = true

	preferences := fyne.NewMenuItem("Preferences", call(&manager.callbacks.OnPreferences))
	breakNow := fyne.NewMenuItem("Take a break now", call(&manager.callbacks.OnBreakNow))
	manager.snoozeItem = fyne.NewMenuItem("Snooze", call(&manager.callbacks.OnSnooze))
	manager.pauseItem = fyne.NewMenuItem("Pause", call(&manager.callbacks.OnTogglePause))

	disable := fyne.NewMenuItem("Disable for...", nil)
	hoursItems := make([]*fyne.MenuItem, 0, len(DisableHours))
	for _, hours := range DisableHours {
		hoursItems = append(hoursItems, fyne.NewMenuItem(hoursLabel(hours), func() {
			if manager.callbacks.OnDisableFor != nil {
				manager.callbacks.OnDisableFor(hours)
			}
		}))
	}
	disable.ChildMenu = fyne.NewMenu("", hoursItems...)

	demo := fyne.NewMenuItem("Start demo", call(&manager.callbacks.OnDemo))
	quit := fyne.NewMenuItem("Quit", call(&manager.callbacks.OnQuit))
	quit.IsQuit = true

	manager.menu = fyne.NewMenu("Gia",
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		breakNow,
		manager.snoozeItem,
		manager.pauseItem,
		disable,
		fyne.NewMenuItemSeparator(),
		preferences,
		demo,
		quit,
	)
	manager.refreshStatusLabel()
	if app != nil {
		app.SetSystemTrayMenu(manager.menu)
		manager.setIcon()
	}

	return manager
}

// SetStatus updates the status label.
func (manager *Manager) SetStatus(status string) {
	fyne.Do(func() {
		manager.status = status
		manager.refreshStatusLabel()
		manager.refreshMenu()
	})
}

// SetPaused updates pause state.
func (manager *Manager) SetPaused(paused bool) {
	fyne.Do(func() {
		manager.paused = paused
		if paused {
			manager.pauseItem.Label = "Resume"
		} else {
			manager.pauseItem.Label = "Pause"
		}
		manager.snoozeItem.Disabled = paused
		manager.refreshStatusLabel()
		manager.refreshMenu()
	})
}

// SetStage swaps the tray icon for the given stage.
func (manager *Manager) SetStage(stage int) {
	fyne.Do(func() {
		manager.stage = stage
		manager.setIcon()
	})
}

func (manager *Manager) setIcon() {
	if manager.app == nil || manager.icons == nil {
		return
	}
	if icon := manager.icons(manager.stage); icon != nil {
		manager.app.SetSystemTrayIcon(icon)
	}
}

func (manager *Manager) refreshStatusLabel() {
	manager.statusItem.Label = fmt.Sprintf("Status: %s", manager.status)
}

func (manager *Manager) refreshMenu() {
	if manager.menu != nil {
		manager.menu.Refresh()
	}
}

func call(handler *func()) func() {
	return func() {
		if *handler != nil {
			(*handler)()
		}
	}
}

func hoursLabel(hours int) string {
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
