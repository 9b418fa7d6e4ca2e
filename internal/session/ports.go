package session

import (
	"context"
	"errors"
	"time"

	"github.com/rbright/signcap/internal/camera"
	"github.com/rbright/signcap/internal/media"
	"github.com/rbright/signcap/internal/recognition"
	"github.com/rbright/signcap/internal/timing"
)

var (
	// ErrBusy means a capture is already running on this controller.
	ErrBusy = errors.New("a capture is already in progress")
	// ErrNotCapturing means there is no capture to stop or cancel.
	ErrNotCapturing = errors.New("no capture in progress")
)

// Camera starts sign recordings.
type Camera interface {
	StartRecording(ctx context.Context, maxDuration time.Duration) (camera.Clip, error)
}

// Recognizer classifies a finished recording and fans the result out.
type Recognizer interface {
	Recognize(ctx context.Context, clip media.Resource) recognition.Outcome
}

// Transcript is the running sentence edited through IPC.
type Transcript interface {
	Undo() bool
	Clear()
	Sentence() string
}

// Indicator is the session-facing subset of the recording indicator.
type Indicator interface {
	ShowPhase(context.Context, timing.Phase)
	ShowResult(context.Context, recognition.Outcome)
	ShowError(context.Context, string)
	CueStart(context.Context)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowPhase(context.Context, timing.Phase)         {}
func (noopIndicator) ShowResult(context.Context, recognition.Outcome) {}
func (noopIndicator) ShowError(context.Context, string)               {}
func (noopIndicator) CueStart(context.Context)                        {}
func (noopIndicator) CueStop(context.Context)                         {}
func (noopIndicator) CueComplete(context.Context)                     {}
func (noopIndicator) CueCancel(context.Context)                       {}
func (noopIndicator) Hide(context.Context)                            {}

// Durations bound one capture.
type Durations struct {
	Total       time.Duration
	Preparation time.Duration
	// MaxDuration caps the device recording; it must be at least Total.
	MaxDuration time.Duration
}
