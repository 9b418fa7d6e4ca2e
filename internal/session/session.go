// Package session coordinates one sign capture from countdown to recognized label.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/camera"
	"github.com/rbright/signcap/internal/fsm"
	"github.com/rbright/signcap/internal/ipc"
	"github.com/rbright/signcap/internal/logging"
	"github.com/rbright/signcap/internal/media"
	"github.com/rbright/signcap/internal/recognition"
	"github.com/rbright/signcap/internal/timing"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// Result is the outcome of one Run.
type Result struct {
	SessionID  string
	State      fsm.State
	Outcome    recognition.Outcome
	Cancelled  bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Deps are the collaborators of a Controller. Camera may be nil, in which
// case every Run fails with apperr.ErrDeviceUnavailable.
type Deps struct {
	Logger     *slog.Logger
	Camera     Camera
	Recognizer Recognizer
	Transcript Transcript
	Indicator  Indicator
	Timer      *timing.Machine
	Durations  Durations
}

// Controller runs at most one capture at a time.
type Controller struct {
	logger     *slog.Logger
	camera     Camera
	recognizer Recognizer
	transcript Transcript
	indicator  Indicator
	timer      *timing.Machine
	durations  Durations

	mu    sync.RWMutex
	state fsm.State

	actions chan action
}

func NewController(deps Deps) *Controller {
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.Timer == nil {
		deps.Timer = timing.New()
	}
	if deps.Durations.MaxDuration < deps.Durations.Total {
		deps.Durations.MaxDuration = deps.Durations.Total
	}

	return &Controller{
		logger:     deps.Logger,
		camera:     deps.Camera,
		recognizer: deps.Recognizer,
		transcript: deps.Transcript,
		indicator:  deps.Indicator,
		timer:      deps.Timer,
		durations:  deps.Durations,
		state:      fsm.StateIdle,
		actions:    make(chan action, 1),
	}
}

func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

type clipResult struct {
	clip media.Resource
	err  error
}

// Run performs one capture: countdown, recording, and recognition. The
// recording resolving, whether by stop, timer, or device cap, is what ends
// the capture, so the recognizer runs at most once.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{SessionID: uuid.NewString(), StartedAt: time.Now()}
	finish := func() Result {
		result.State = c.State()
		result.FinishedAt = time.Now()
		return result
	}

	if c.camera == nil {
		result.Err = fmt.Errorf("%w: no camera configured", apperr.ErrDeviceUnavailable)
		return finish()
	}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return finish()
	}
	if err := c.transition(fsm.EventStart); err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrBusy, err)
		return finish()
	}
	c.drainActions()
	logger := c.sessionLogger(result.SessionID)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	if err := c.timer.Start(c.durations.Total, c.durations.Preparation, c.onPhase); err != nil {
		c.indicator.ShowError(ctx, "Invalid capture timing")
		c.toErrorAndReset()
		result.Err = err
		return finish()
	}
	c.indicator.CueStart(ctx)

	clip, err := c.camera.StartRecording(ctx, c.durations.MaxDuration)
	if err != nil {
		c.timer.Cancel()
		c.indicator.ShowError(context.Background(), "Unable to start camera")
		c.toErrorAndReset()
		logger.Error("camera start failed", "error", err.Error())
		result.Err = err
		return finish()
	}

	waitCh := make(chan clipResult, 1)
	go func() {
		res, err := clip.Wait()
		waitCh <- clipResult{clip: res, err: err}
	}()

	resolved, cancelled, ctxErr := c.awaitRecording(ctx, clip, waitCh)
	c.timer.Cancel()

	switch {
	case ctxErr != nil:
		_ = resolved.clip.Discard()
		c.indicator.CueCancel(context.Background())
		c.toErrorAndReset()
		result.Err = ctxErr
		return finish()
	case cancelled:
		_ = resolved.clip.Discard()
		c.indicator.CueCancel(context.Background())
		if err := c.transition(fsm.EventCancel); err != nil {
			c.toErrorAndReset()
		}
		result.Cancelled = true
		result.Outcome = recognition.NotRecognized{Reason: recognition.ReasonCancelled}
		logger.Info("capture cancelled")
		return finish()
	case resolved.err != nil:
		c.indicator.ShowError(context.Background(), "Recording failed")
		c.toErrorAndReset()
		logger.Error("recording failed", "error", resolved.err.Error())
		result.Err = resolved.err
		return finish()
	}

	if err := c.transition(fsm.EventStop); err != nil {
		c.toErrorAndReset()
		result.Err = err
		return finish()
	}
	c.indicator.CueStop(ctx)
	c.indicator.ShowPhase(ctx, timing.PhaseComplete)
	if err := c.transition(fsm.EventRecorded); err != nil {
		c.toErrorAndReset()
		result.Err = err
		return finish()
	}

	outcome := recognition.Outcome(recognition.NotRecognized{Reason: "no recognizer configured"})
	if c.recognizer != nil {
		outcome = c.recognizer.Recognize(ctx, resolved.clip)
	} else {
		_ = resolved.clip.Discard()
	}
	result.Outcome = outcome

	if ctx.Err() != nil {
		// The owner went away while recognition was in flight.
		c.toErrorAndReset()
		result.Err = ctx.Err()
		return finish()
	}

	if err := c.transition(fsm.EventRecognized); err != nil {
		c.toErrorAndReset()
		result.Err = err
		return finish()
	}
	c.indicator.ShowResult(ctx, outcome)
	c.indicator.CueComplete(ctx)
	logger.Info("capture finished", "outcome", outcome.String())
	return finish()
}

// awaitRecording waits for the clip to resolve while serving stop and cancel
// requests. It reads waitCh exactly once.
func (c *Controller) awaitRecording(ctx context.Context, clip camera.Clip, waitCh <-chan clipResult) (clipResult, bool, error) {
	cancelled := false
	for {
		select {
		case <-ctx.Done():
			_ = clip.Stop()
			return <-waitCh, true, ctx.Err()
		case a := <-c.actions:
			if a == actionCancel {
				cancelled = true
			}
			_ = clip.Stop()
		case res := <-waitCh:
			return res, cancelled, nil
		}
	}
}

// onPhase runs on the timer's notifier goroutine and must not block.
func (c *Controller) onPhase(phase timing.Phase) {
	c.indicator.ShowPhase(context.Background(), phase)
	switch phase {
	case timing.PhaseRecord:
		_ = c.transition(fsm.EventRecord)
	case timing.PhaseComplete:
		select {
		case c.actions <- actionStop:
		default:
		}
	}
}

func (c *Controller) drainActions() {
	for {
		select {
		case <-c.actions:
		default:
			return
		}
	}
}

// EndCapture asks the camera to finish the current recording. The media is
// delivered by the running capture, never by this call.
func (c *Controller) EndCapture() error {
	return c.request(actionStop)
}

// CancelCapture stops the current recording and discards it.
func (c *Controller) CancelCapture() error {
	return c.request(actionCancel)
}

var errAlreadyRequested = errors.New("already requested")

func (c *Controller) request(a action) error {
	state := c.State()
	if state != fsm.StatePreparing && state != fsm.StateRecording {
		return fmt.Errorf("%w (state %s)", ErrNotCapturing, state)
	}
	select {
	case c.actions <- a:
		return nil
	default:
		return errAlreadyRequested
	}
}

// Handle serves IPC commands for the running screen.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus, ipc.CommandSentence:
		return c.reply(ipc.Response{OK: true})
	case ipc.CommandStop:
		return c.respond(c.EndCapture(), "stop requested", "stop already requested")
	case ipc.CommandCancel:
		return c.respond(c.CancelCapture(), "cancel requested", "cancel already requested")
	case ipc.CommandUndo:
		if c.transcript == nil || !c.transcript.Undo() {
			return c.reply(ipc.Response{Error: "transcript is empty"})
		}
		return c.reply(ipc.Response{OK: true, Message: "removed last word"})
	case ipc.CommandClear:
		if c.transcript != nil {
			c.transcript.Clear()
		}
		return c.reply(ipc.Response{OK: true, Message: "transcript cleared"})
	default:
		return c.reply(ipc.Response{Error: fmt.Sprintf("unknown command: %s", req.Command)})
	}
}

func (c *Controller) reply(resp ipc.Response) ipc.Response {
	resp.State = string(c.State())
	resp.Sentence = c.sentence()
	return resp
}

func (c *Controller) respond(err error, ok string, duplicate string) ipc.Response {
	switch {
	case err == nil:
		return c.reply(ipc.Response{OK: true, Message: ok})
	case errors.Is(err, errAlreadyRequested):
		return c.reply(ipc.Response{OK: true, Message: duplicate})
	default:
		return c.reply(ipc.Response{Error: err.Error()})
	}
}

func (c *Controller) sentence() string {
	if c.transcript == nil {
		return ""
	}
	return c.transcript.Sentence()
}

// toErrorAndReset transitions to error and back to idle best-effort.
func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}

func (c *Controller) sessionLogger(id string) *slog.Logger {
	return logging.OrDiscard(c.logger).With("session_id", id)
}
