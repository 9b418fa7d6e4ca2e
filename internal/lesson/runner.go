package lesson

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/media"
	"github.com/rbright/signcap/internal/recognition"
)

// FrameSource grabs one still frame from the camera.
type FrameSource interface {
	CaptureFrame(ctx context.Context) (media.Resource, error)
}

// GestureRecognizer classifies a frame as a fingerspelled letter.
type GestureRecognizer interface {
	RecognizeGesture(ctx context.Context, frame media.Resource) (recognition.Outcome, error)
}

// Runner polls the camera and drives a Session until it finishes or ctx ends.
type Runner struct {
	Frames       FrameSource
	Gestures     GestureRecognizer
	Session      *Session
	PollInterval time.Duration
	SaveInterval time.Duration
	Logger       *slog.Logger
	// OnUpdate is called after every accepted letter.
	OnUpdate func(Snapshot)
}

// Run returns nil when the lesson finishes or ctx is cancelled. Capture
// device failures end the run; recognition failures are logged and skipped.
func (r Runner) Run(ctx context.Context) error {
	poll := r.PollInterval
	if poll <= 0 {
		poll = 300 * time.Millisecond
	}
	saveEvery := r.SaveInterval
	if saveEvery <= 0 {
		saveEvery = 10 * time.Second
	}

	pollTicker := time.NewTicker(poll)
	defer pollTicker.Stop()
	saveTicker := time.NewTicker(saveEvery)
	defer saveTicker.Stop()

	defer func() {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		r.Session.Checkpoint(saveCtx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-saveTicker.C:
			r.Session.Checkpoint(ctx)
		case <-pollTicker.C:
			finished, err := r.tick(ctx)
			if err != nil {
				return err
			}
			if finished {
				return nil
			}
		}
	}
}

func (r Runner) tick(ctx context.Context) (bool, error) {
	frame, err := r.Frames.CaptureFrame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		if apperr.IsUserBlocking(err) {
			return false, err
		}
		r.log(slog.LevelWarn, "lesson frame capture failed", "error", err.Error())
		return false, nil
	}

	outcome, err := r.Gestures.RecognizeGesture(ctx, frame)
	if ctx.Err() != nil {
		// The lesson ended while the request was in flight.
		return false, nil
	}
	if err != nil {
		r.log(slog.LevelWarn, "gesture recognition failed", "error", err.Error(), "network", errors.Is(err, apperr.ErrNetworkFailure))
		return false, nil
	}
	letter, ok := recognition.Label(outcome)
	if !ok {
		return false, nil
	}

	snap, accepted := r.Session.Detect(ctx, strings.ToUpper(letter))
	if accepted && r.OnUpdate != nil {
		r.OnUpdate(snap)
	}
	return snap.Finished, nil
}

func (r Runner) log(level slog.Level, msg string, args ...any) {
	if r.Logger == nil {
		return
	}
	r.Logger.Log(context.Background(), level, msg, args...)
}
