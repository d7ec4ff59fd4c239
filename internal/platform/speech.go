package platform

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"gia/internal/logger"
	"gia/internal/messages"
)

// ErrSpeechUnavailable is returned when no speech program is installed.
var ErrSpeechUnavailable = errors.New("speech synthesis unavailable")

// Speaker reads reminders aloud through the platform speech program.
// At most one utterance plays at a time.
type Speaker struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	current uint64
	command func(ctx context.Context, text string, voice messages.Voice) (*exec.Cmd, error)
}

// NewSpeaker returns a Speaker for the current platform.
func NewSpeaker() *Speaker {
	return &Speaker{command: speechCommand}
}

// Speak interrupts any utterance in flight and starts reading text.
func (speaker *Speaker) Speak(text string, voice messages.Voice) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	speaker.mu.Lock()
	defer speaker.mu.Unlock()

	speaker.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	cmd, err := speaker.command(ctx, text, voice)
	if err != nil {
		cancel()
		return err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start speech: %w", err)
	}

	speaker.current++
	id := speaker.current
	speaker.cancel = cancel
	go speaker.wait(cmd, id)
	return nil
}

// Stop silences the utterance in flight, if any.
func (speaker *Speaker) Stop() {
	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	speaker.stopLocked()
}

func (speaker *Speaker) stopLocked() {
	if speaker.cancel != nil {
		speaker.cancel()
		speaker.cancel = nil
	}
}

func (speaker *Speaker) wait(cmd *exec.Cmd, id uint64) {
	if err := cmd.Wait(); err != nil {
		logger.Debug("speech ended", "error", err)
	}
	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	if speaker.current == id && speaker.cancel != nil {
		speaker.cancel()
		speaker.cancel = nil
	}
}

// scale maps a 1.0-relative factor onto [-limit, limit].
func scale(factor float64, limit int) int {
	value := int((factor - 1) * float64(limit))
	return max(-limit, min(limit, value))
}
