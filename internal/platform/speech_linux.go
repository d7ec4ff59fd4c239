//go:build linux

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"gia/internal/messages"
)

func speechCommand(ctx context.Context, text string, voice messages.Voice) (*exec.Cmd, error) {
	path, err := exec.LookPath("spd-say")
	if err != nil {
		return nil, fmt.Errorf("find spd-say: %w", ErrSpeechUnavailable)
	}
	// -w blocks until speech finishes so cancellation interrupts it.
	return exec.CommandContext(ctx, path,
		"-w",
		"-r", strconv.Itoa(scale(voice.Rate, 100)),
		"-p", strconv.Itoa(scale(voice.Pitch, 100)),
		"-i", strconv.Itoa(scale(voice.Volume, 100)),
		text,
	), nil
}
