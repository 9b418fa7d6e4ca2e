package app

import (
	"context"
	"fmt"

	"github.com/rbright/signcap/internal/audio"
	"github.com/rbright/signcap/internal/recognition"
)

// commandListen records one utterance from the microphone and prints its
// transcription. Recording ends on Enter, end of input, or the duration cap.
func (r Runner) commandListen(ctx context.Context, svc *services) int {
	cfg := svc.cfg.Audio
	selection, err := audio.SelectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if selection.Warning != "" {
		fmt.Fprintf(r.Stderr, "warning: %s\n", selection.Warning)
		svc.logger.Warn("audio device fallback", "warning", selection.Warning)
	}

	capture, err := audio.StartCapture(ctx, selection.Device, cfg.MaxDuration())
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "Listening on %s; press Enter to stop\n", selection.Device.Description)

	done := make(chan struct{})
	defer close(done)
	lines := readLines(r.Stdin, done)
	select {
	case <-lines:
	case <-capture.Full():
		fmt.Fprintln(r.Stdout, "maximum recording length reached")
	case <-ctx.Done():
	}

	clip, err := capture.Stop()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if ctx.Err() != nil {
		return 1
	}
	svc.logger.Info("audio captured", "device", selection.Device.ID, "duration_ms", capture.Duration().Milliseconds())

	outcome, err := svc.recognizer.Transcribe(ctx, clip)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	text, ok := recognition.Label(outcome)
	if !ok {
		fmt.Fprintln(r.Stdout, "No speech recognized")
		return 0
	}
	fmt.Fprintln(r.Stdout, text)
	return 0
}
