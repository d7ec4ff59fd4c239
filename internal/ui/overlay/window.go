package overlay

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"gia/internal/core/model"
)

// Card is the content of one break.
type Card struct {
	Kind     model.BreakKind
	Message  string
	Duration time.Duration
}

// Window is the undecorated break card.
type Window struct {
	window     fyne.Window
	image      *canvas.Image
	titleLabel *canvas.Text
	message    *widget.Label
	timerLabel *canvas.Text
	doneButton *widget.Button
	snooze     *widget.Button
	cancelCtx  context.CancelFunc
	onDone     func()
	onSnooze   func()
	onFinished func()
}

const (
	cardWidth  = float32(420)
	cardHeight = float32(220)
)

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// New creates the break card window. It stays hidden until Show.
func New(app fyne.App, logo fyne.Resource) *Window {
	window := app.NewWindow("Gia")
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Splash window is undecorated (no native frame/buttons).
		window = driver.CreateSplashWindow()
	}
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	background := canvas.NewRectangle(color.NRGBA{R: 18, G: 32, B: 38, A: 235})

	image := canvas.NewImageFromResource(logo)
	image.FillMode = canvas.ImageFillContain
	image.SetMinSize(fyne.NewSize(64, 64))

	titleLabel := canvas.NewText("Eye break", color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	titleLabel.TextSize = 21

	message := widget.NewLabel("")
	message.Wrapping = fyne.TextWrapWord

	timerLabel := canvas.NewText("00:00", color.NRGBA{R: 120, G: 214, B: 186, A: 255})
	timerLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	timerLabel.TextSize = 18

	overlay := &Window{
		window:     window,
		image:      image,
		titleLabel: titleLabel,
		message:    message,
		timerLabel: timerLabel,
	}
	overlay.doneButton = widget.NewButton("Done", overlay.handleDone)
	overlay.snooze = widget.NewButton("Snooze", overlay.handleSnooze)

	header := container.NewBorder(nil, nil, image, nil, titleLabel)
	buttons := container.NewHBox(timerLabel, layout.NewSpacer(), overlay.snooze, overlay.doneButton)
	card := container.NewPadded(container.NewBorder(header, buttons, nil, nil, message))
	window.SetContent(container.NewStack(background, card))
	window.Resize(fyne.NewSize(cardWidth, cardHeight))

	return overlay
}

// SetOnDone sets the handler for the Done button.
func (overlay *Window) SetOnDone(handler func()) {
	overlay.onDone = handler
}

// SetOnSnooze sets the handler for the Snooze button.
func (overlay *Window) SetOnSnooze(handler func()) {
	overlay.onSnooze = handler
}

// SetOnFinished sets the handler run when the countdown reaches zero.
func (overlay *Window) SetOnFinished(handler func()) {
	overlay.onFinished = handler
}

// Show displays the card and starts its countdown. Safe to call from any goroutine.
func (overlay *Window) Show(card Card) {
	fyne.Do(func() {
		overlay.stopCountdown()
		overlay.titleLabel.Text = title(card.Kind)
		overlay.titleLabel.Refresh()
		overlay.message.SetText(card.Message)
		overlay.setRemaining(card.Duration)

		overlay.window.CenterOnScreen()
		overlay.window.Show()
		overlay.window.RequestFocus()

		ctx, cancel := context.WithCancel(context.Background())
		overlay.cancelCtx = cancel
		go overlay.countdown(ctx, time.Now().Add(card.Duration))
	})
}

// Hide closes the card. Safe to call from any goroutine.
func (overlay *Window) Hide() {
	fyne.Do(overlay.hide)
}

func (overlay *Window) hide() {
	overlay.stopCountdown()
	overlay.window.Hide()
}

func (overlay *Window) countdown(ctx context.Context, deadline time.Time) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			remaining := deadline.Sub(now)
			if remaining <= 0 {
				fyne.Do(func() {
					if ctx.Err() != nil {
						return
					}
					overlay.hide()
					if overlay.onFinished != nil {
						overlay.onFinished()
					}
				})
				return
			}
			fyne.Do(func() {
				if ctx.Err() == nil {
					overlay.setRemaining(remaining)
				}
			})
		}
	}
}

func (overlay *Window) handleDone() {
	overlay.hide()
	if overlay.onDone != nil {
		overlay.onDone()
	}
}

func (overlay *Window) handleSnooze() {
	overlay.hide()
	if overlay.onSnooze != nil {
		overlay.onSnooze()
	}
}

func (overlay *Window) stopCountdown() {
	if overlay.cancelCtx != nil {
		overlay.cancelCtx()
		overlay.cancelCtx = nil
	}
}

func (overlay *Window) setRemaining(remaining time.Duration) {
	overlay.timerLabel.Text = formatDuration(remaining)
	overlay.timerLabel.Refresh()
}

func title(kind model.BreakKind) string {
	if kind == model.BreakLong {
		return "Long break"
	}
	return "Eye break"
}

func formatDuration(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	seconds := int((value + time.Second - 1) / time.Second)
	minutes := seconds / 60
	seconds = seconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
