package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/signcap/internal/indicator"
	"github.com/rbright/signcap/internal/ipc"
	"github.com/rbright/signcap/internal/recognition"
	"github.com/rbright/signcap/internal/session"
	"github.com/rbright/signcap/internal/timing"
	"github.com/rbright/signcap/internal/transcript"
)

const translateKeys = `Enter  record a sign
s      stop recording now
c      cancel the current capture
u      remove the last word
x      clear the sentence
q      quit`

// commandTranslate owns the capture screen: it reads key lines from stdin,
// runs one capture per Enter, and serves the IPC socket so other processes
// can stop, cancel, undo, and clear.
func (r Runner) commandTranslate(ctx context.Context, svc *services) int {
	logger := svc.logger
	cfg := svc.cfg

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	socket, err := ipc.Acquire(ctx, socketPath, ipc.DefaultAcquireOptions())
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: a translate screen is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer socket.Release()

	buffer := transcript.NewBuffer(transcript.Options{
		Lowercase:           cfg.Transcript.Lowercase,
		CapitalizeSentences: cfg.Transcript.CapitalizeSentences,
	})
	timer := timing.New()
	screen := indicator.NewTerminal(cfg.Indicator, r.Stdout, timer, logger)
	defer screen.Close(context.Background())

	service := recognition.NewService(svc.recognizer, buffer, svc.speaker, svc.sampleArchiver(), logger)
	defer service.Wait()

	controller := session.NewController(session.Deps{
		Logger:     logger,
		Camera:     svc.camera,
		Recognizer: service,
		Transcript: buffer,
		Indicator:  screen,
		Timer:      timer,
		Durations: session.Durations{
			Total:       cfg.Capture.Total(),
			Preparation: cfg.Capture.Preparation(),
			MaxDuration: cfg.Capture.MaxDuration(),
		},
	})

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, socket, controller)
	}()

	fmt.Fprintln(r.Stdout, translateKeys)

	done := make(chan struct{})
	defer close(done)
	lines := readLines(r.Stdin, done)
	results := make(chan session.Result, 1)
	inflight := 0
	// Quitting ends any capture still counting down or recording.
	captureCtx, cancelCaptures := context.WithCancel(ctx)
	defer cancelCaptures()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case res := <-results:
			inflight--
			r.reportCapture(logger, res, buffer)
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
				if inflight > 0 || controller.State().Active() {
					fmt.Fprintln(r.Stderr, "a capture is already running")
					continue
				}
				inflight++
				go func() { results <- controller.Run(captureCtx) }()
			case "s":
				r.sendKey(ctx, controller, ipc.CommandStop)
			case "c":
				r.sendKey(ctx, controller, ipc.CommandCancel)
			case "u":
				r.sendKey(ctx, controller, ipc.CommandUndo)
			case "x":
				r.sendKey(ctx, controller, ipc.CommandClear)
			case "q":
				cancelCaptures()
				break loop
			case "?", "h":
				fmt.Fprintln(r.Stdout, translateKeys)
			default:
				fmt.Fprintf(r.Stderr, "unknown key %q; press ? for help\n", line)
			}
		}
	}

	for ; inflight > 0; inflight-- {
		r.reportCapture(logger, <-results, buffer)
	}

	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	return 0
}

func (r Runner) reportCapture(logger *slog.Logger, res session.Result, buffer *transcript.Buffer) {
	logSessionResult(logger, res)
	switch {
	case res.Cancelled, errors.Is(res.Err, context.Canceled):
		fmt.Fprintln(r.Stdout, "cancelled")
	case res.Err != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", res.Err)
	default:
		if _, ok := recognition.Label(res.Outcome); ok {
			fmt.Fprintf(r.Stdout, "sentence: %s\n", buffer.Sentence())
		}
	}
}

func (r Runner) sendKey(ctx context.Context, controller *session.Controller, command string) {
	resp := controller.Handle(ctx, ipc.Request{Command: command})
	if !resp.OK {
		fmt.Fprintf(r.Stderr, "%s\n", resp.Error)
		return
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	if command == ipc.CommandUndo || command == ipc.CommandClear {
		fmt.Fprintf(r.Stdout, "sentence: %s\n", resp.Sentence)
	}
}

// readLines streams stdin lines until EOF or done closes. A read blocked on
// an open terminal is abandoned; the process exits right after.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return out
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	label, recognized := recognition.Label(result.Outcome)
	fields := []any{
		"session_id", result.SessionID,
		"state", result.State,
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"recognized", recognized,
		"label", label,
	}
	if result.Outcome != nil && !recognized {
		fields = append(fields, "outcome", fmt.Sprint(result.Outcome))
	}

	if result.Err != nil {
		logger.Error("capture failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("capture complete", fields...)
}
