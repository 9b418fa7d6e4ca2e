// Package indicator renders the capture countdown on a terminal and plays
// audio cues.
package indicator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rbright/signcap/internal/config"
	"github.com/rbright/signcap/internal/recognition"
	"github.com/rbright/signcap/internal/timing"
)

const (
	clearLine      = "\r\x1b[2K"
	refreshEvery   = 100 * time.Millisecond
	notifyTimeout  = 400 * time.Millisecond
	resultNotifyMS = 2500
)

// Clock reports how far the current capture has progressed.
type Clock interface {
	Progress() float64
	Window() (total, preparation time.Duration)
}

// Terminal is the indicator used by the translate screen. It redraws one
// status line while a capture runs.
type Terminal struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	out      io.Writer
	clock    Clock
	paint    painter
	messages messages
	emit     func(context.Context, cueKind) error

	mu             sync.Mutex
	phase          timing.Phase
	transient      bool
	stop           chan struct{}
	stopped        chan struct{}
	notificationID uint32

	soundMu sync.Mutex
	cues    sync.WaitGroup
}

// NewTerminal writes to out and reads progress from clock, which may be nil.
func NewTerminal(cfg config.IndicatorConfig, out io.Writer, clock Clock, logger *slog.Logger) *Terminal {
	t := &Terminal{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		clock:    clock,
		paint:    painter{r: lipgloss.NewRenderer(out)},
		messages: defaultMessages(),
		phase:    timing.PhaseIdle,
	}
	t.emit = func(ctx context.Context, kind cueKind) error {
		return emitCue(ctx, kind, t.cfg)
	}
	return t
}

// ShowPhase draws the phase line and keeps the bar moving until the capture
// completes.
func (t *Terminal) ShowPhase(_ context.Context, phase timing.Phase) {
	if !t.cfg.Enable {
		return
	}
	t.mu.Lock()
	t.phase = phase
	t.drawLocked()
	startLoop := phase == timing.PhasePrepare && t.stop == nil
	if startLoop {
		t.stop = make(chan struct{})
		t.stopped = make(chan struct{})
		go t.refresh(t.stop, t.stopped)
	}
	t.mu.Unlock()

	if phase == timing.PhaseComplete {
		t.stopRefresh()
	}
}

// ShowResult prints the outcome on its own line.
func (t *Terminal) ShowResult(ctx context.Context, outcome recognition.Outcome) {
	if !t.cfg.Enable {
		return
	}
	t.stopRefresh()
	t.println(t.paint.outcomeLine(outcome))

	if label, ok := recognition.Label(outcome); ok && t.cfg.DesktopNotify {
		t.run(ctx, func(ctx context.Context) error { return t.notify(ctx, label) })
	}
}

// ShowError prints an error line.
func (t *Terminal) ShowError(_ context.Context, text string) {
	if !t.cfg.Enable {
		return
	}
	if text == "" {
		text = t.messages.errorText
	}
	t.stopRefresh()
	t.println(t.paint.fg(errorColor, true, text))
}

func (t *Terminal) CueStart(ctx context.Context)    { t.playCue(ctx, cueStart) }
func (t *Terminal) CueStop(ctx context.Context)     { t.playCue(ctx, cueStop) }
func (t *Terminal) CueComplete(ctx context.Context) { t.playCue(ctx, cueComplete) }
func (t *Terminal) CueCancel(ctx context.Context)   { t.playCue(ctx, cueCancel) }

// Hide clears a phase line left on screen.
func (t *Terminal) Hide(context.Context) {
	t.stopRefresh()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = timing.PhaseIdle
	if t.transient {
		_, _ = io.WriteString(t.out, clearLine)
		t.transient = false
	}
}

// Close waits for queued cues and dismisses the desktop notification.
func (t *Terminal) Close(ctx context.Context) {
	t.Hide(ctx)
	t.cues.Wait()

	t.mu.Lock()
	id := t.notificationID
	t.notificationID = 0
	t.mu.Unlock()
	if id != 0 {
		t.run(ctx, func(ctx context.Context) error { return desktopDismiss(ctx, id) })
	}
}

func (t *Terminal) refresh(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			t.drawLocked()
			t.mu.Unlock()
		}
	}
}

func (t *Terminal) stopRefresh() {
	t.mu.Lock()
	stop, stopped := t.stop, t.stopped
	t.stop, t.stopped = nil, nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-stopped
	}
}

func (t *Terminal) drawLocked() {
	progress, prepFraction := 0.0, 0.0
	if t.clock != nil {
		progress = t.clock.Progress()
		if total, prep := t.clock.Window(); total > 0 {
			prepFraction = float64(prep) / float64(total)
		}
	}
	if t.phase == timing.PhaseComplete {
		progress = 1
	}
	line := t.paint.phaseLine(t.messages, t.phase, t.cfg.Width, progress, prepFraction)
	if line == "" {
		return
	}
	_, _ = io.WriteString(t.out, clearLine+line)
	t.transient = true
}

func (t *Terminal) println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.out, clearLine+line+"\n")
	t.transient = false
}

func (t *Terminal) notify(ctx context.Context, label string) error {
	t.mu.Lock()
	replaceID := t.notificationID
	t.mu.Unlock()

	id, err := desktopNotify(ctx, t.cfg.DesktopAppName, replaceID, "Sign recognized", label, resultNotifyMS)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.notificationID = id
	t.mu.Unlock()
	return nil
}

// run executes a desktop operation with a bounded timeout.
func (t *Terminal) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		t.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (t *Terminal) playCue(ctx context.Context, kind cueKind) {
	if !t.cfg.SoundEnable {
		return
	}
	cueCtx := context.WithoutCancel(ctx)
	t.cues.Add(1)
	go func() {
		defer t.cues.Done()
		t.soundMu.Lock()
		defer t.soundMu.Unlock()
		if err := t.emit(cueCtx, kind); err != nil {
			t.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (t *Terminal) log(message string, err error) {
	if t.logger == nil || err == nil {
		return
	}
	t.logger.Debug(message, "error", err.Error())
}
