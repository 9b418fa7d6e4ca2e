// Package timing drives the prepare/record/complete phase sequence of one capture.
package timing

import (
	"sync"
	"time"

	"github.com/rbright/signcap/internal/apperr"
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePrepare  Phase = "prepare"
	PhaseRecord   Phase = "record"
	PhaseComplete Phase = "complete"
)

// PhaseFunc observes phase changes. It runs on the machine's notifier
// goroutine and must not call Cancel.
type PhaseFunc func(Phase)

// Machine is a one-session-at-a-time phase timer. The zero value is idle and ready.
type Machine struct {
	mu    sync.Mutex
	phase Phase
	run   *run
}

// run is the arena for one started session; Cancel discards it whole.
type run struct {
	startedAt   time.Time
	total       time.Duration
	preparation time.Duration

	cancelled bool
	cancel    chan struct{}
	done      chan struct{}
}

// New returns an idle machine.
func New() *Machine {
	return &Machine{phase: PhaseIdle}
}

// Validate checks 0 < preparation < total.
func Validate(total, preparation time.Duration) error {
	if preparation <= 0 {
		return apperr.Configf("preparation duration %s must be > 0", preparation)
	}
	if preparation >= total {
		return apperr.Configf("preparation duration %s must be shorter than total duration %s", preparation, total)
	}
	return nil
}

// Start enters prepare and schedules record at preparation and complete at
// total, both measured from now. Start is a no-op unless the machine is idle.
func (m *Machine) Start(total, preparation time.Duration, onPhase PhaseFunc) error {
	if err := Validate(total, preparation); err != nil {
		return err
	}
	if onPhase == nil {
		onPhase = func(Phase) {}
	}

	m.mu.Lock()
	if m.currentLocked() != PhaseIdle {
		m.mu.Unlock()
		return nil
	}
	r := &run{
		startedAt:   time.Now(),
		total:       total,
		preparation: preparation,
		cancel:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	m.run = r
	m.phase = PhasePrepare
	m.mu.Unlock()

	go m.notify(r, onPhase)
	return nil
}

// Cancel drops any pending transitions and returns to idle without notifying.
// Once Cancel returns, the cancelled session delivers nothing further.
func (m *Machine) Cancel() {
	m.mu.Lock()
	r := m.run
	m.run = nil
	m.phase = PhaseIdle
	if r != nil && !r.cancelled {
		r.cancelled = true
		close(r.cancel)
	}
	m.mu.Unlock()

	if r != nil {
		<-r.done
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

// Progress returns the elapsed fraction of the total duration in [0, 1].
func (m *Machine) Progress() float64 {
	m.mu.Lock()
	r := m.run
	m.mu.Unlock()
	if r == nil {
		return 0
	}
	p := float64(time.Since(r.startedAt)) / float64(r.total)
	if p > 1 {
		return 1
	}
	return p
}

// Window returns the total and preparation durations of the active session.
func (m *Machine) Window() (total, preparation time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.run == nil {
		return 0, 0
	}
	return m.run.total, m.run.preparation
}

func (m *Machine) currentLocked() Phase {
	if m.phase == "" {
		return PhaseIdle
	}
	return m.phase
}

// notify delivers prepare, record, and complete in order for one run.
func (m *Machine) notify(r *run, onPhase PhaseFunc) {
	defer close(r.done)

	if !m.deliver(r, PhasePrepare, onPhase) {
		return
	}

	steps := []struct {
		at    time.Duration
		phase Phase
	}{
		{at: r.preparation, phase: PhaseRecord},
		{at: r.total, phase: PhaseComplete},
	}
	for _, step := range steps {
		wait := step.at - time.Since(r.startedAt)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-r.cancel:
			timer.Stop()
			return
		case <-timer.C:
		}
		if !m.deliver(r, step.phase, onPhase) {
			return
		}
	}
}

// deliver re-checks the run token under the lock before notifying, so a
// timer that fired concurrently with Cancel is dropped.
func (m *Machine) deliver(r *run, phase Phase, onPhase PhaseFunc) bool {
	m.mu.Lock()
	if r.cancelled || m.run != r {
		m.mu.Unlock()
		return false
	}
	m.phase = phase
	m.mu.Unlock()

	onPhase(phase)
	return true
}
