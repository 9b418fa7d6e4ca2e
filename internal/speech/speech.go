// Package speech voices recognized labels through a text-to-speech command.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandSpeaker runs argv with the text appended as the final argument.
type CommandSpeaker struct {
	argv []string
}

func NewCommandSpeaker(argv []string) *CommandSpeaker {
	return &CommandSpeaker{argv: append([]string(nil), argv...)}
}

// Speak blocks until the command exits. Blank text is a no-op.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(s.argv) == 0 {
		return fmt.Errorf("speech command argv cannot be empty")
	}

	args := append(append([]string(nil), s.argv[1:]...), text)
	cmd := exec.CommandContext(ctx, s.argv[0], args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(output.String()); detail != "" {
			return fmt.Errorf("run %s: %w: %s", s.argv[0], err, detail)
		}
		return fmt.Errorf("run %s: %w", s.argv[0], err)
	}
	return nil
}

// Nop discards everything it is asked to say.
type Nop struct{}

func (Nop) Speak(context.Context, string) error { return nil }
