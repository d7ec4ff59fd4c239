//go:build windows

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"gia/internal/messages"
)

func speechCommand(ctx context.Context, text string, voice messages.Voice) (*exec.Cmd, error) {
	path, err := exec.LookPath("powershell")
	if err != nil {
		return nil, fmt.Errorf("find powershell: %w", ErrSpeechUnavailable)
	}

	volume := int(voice.Volume * 100)
	volume = max(0, min(100, volume))
	script := fmt.Sprintf(
		"Add-Type -AssemblyName System.Speech; "+
			"$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; "+
			"$s.Rate = %d; $s.Volume = %d; $s.Speak('%s')",
		scale(voice.Rate, 10), volume, strings.ReplaceAll(text, "'", "''"),
	)
	return exec.CommandContext(ctx, path, "-NoProfile", "-NonInteractive", "-Command", script), nil
}
