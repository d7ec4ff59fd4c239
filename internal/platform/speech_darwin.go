//go:build darwin

package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"gia/internal/messages"
)

const defaultWordsPerMinute = 175

func speechCommand(ctx context.Context, text string, voice messages.Voice) (*exec.Cmd, error) {
	path, err := exec.LookPath("say")
	if err != nil {
		return nil, fmt.Errorf("find say: %w", ErrSpeechUnavailable)
	}
	rate := int(defaultWordsPerMinute * voice.Rate)
	if rate <= 0 {
		rate = defaultWordsPerMinute
	}
	return exec.CommandContext(ctx, path, "-r", strconv.Itoa(rate), text), nil
}
