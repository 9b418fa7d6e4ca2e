package lesson

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/media"
	"github.com/rbright/signcap/internal/recognition"
)

type recordingSaver struct {
	mu    sync.Mutex
	saved []int
	err   error
}

func (r *recordingSaver) Save(_ context.Context, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, index)
	return r.err
}

func (r *recordingSaver) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.saved...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestSession(index int, saver Saver) (*Session, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	s := NewSession(index, 500*time.Millisecond, saver, nil)
	s.now = clock.Now
	s.pick = func(int) int { return 0 }
	return s, clock
}

func TestNewSessionScoresStartingIndex(t *testing.T) {
	s, _ := newTestSession(4, nil)
	snap := s.Snapshot()
	require.Equal(t, "E", snap.Letter)
	require.Equal(t, 200, snap.Score)
	require.Equal(t, 26, snap.Total)

	require.Equal(t, 0, NewSession(-1, 0, nil, nil).Snapshot().Index)
	require.Equal(t, 0, NewSession(26, 0, nil, nil).Snapshot().Index)
}

func TestDetectAdvancesAndSaves(t *testing.T) {
	saver := &recordingSaver{}
	s, _ := newTestSession(0, saver)

	snap, ok := s.Detect(context.Background(), "a")
	require.True(t, ok)
	require.Equal(t, "B", snap.Letter)
	require.Equal(t, 1, snap.Index)
	require.Equal(t, 50, snap.Score)
	require.Equal(t, "Good job!", snap.Message)
	require.Equal(t, []int{1}, saver.values())
}

func TestDetectIgnoresMismatch(t *testing.T) {
	saver := &recordingSaver{}
	s, _ := newTestSession(0, saver)

	snap, ok := s.Detect(context.Background(), "B")
	require.False(t, ok)
	require.Equal(t, "A", snap.Letter)
	require.Zero(t, snap.Score)
	require.Empty(t, saver.values())
}

func TestDetectHonorsCooldown(t *testing.T) {
	s, clock := newTestSession(0, nil)

	_, ok := s.Detect(context.Background(), "A")
	require.True(t, ok)

	clock.Advance(499 * time.Millisecond)
	_, ok = s.Detect(context.Background(), "B")
	require.False(t, ok, "locked during cooldown")

	clock.Advance(time.Millisecond)
	snap, ok := s.Detect(context.Background(), "B")
	require.True(t, ok)
	require.Equal(t, "C", snap.Letter)
}

func TestDetectLastLetterFinishesAndResetsProgress(t *testing.T) {
	saver := &recordingSaver{}
	s, _ := newTestSession(25, saver)

	snap, ok := s.Detect(context.Background(), "Z")
	require.True(t, ok)
	require.True(t, snap.Finished)
	require.Equal(t, 26*PointsPerLetter, snap.Score)
	require.Equal(t, []int{0}, saver.values())

	_, ok = s.Detect(context.Background(), "Z")
	require.False(t, ok)

	s.Checkpoint(context.Background())
	require.Equal(t, []int{0}, saver.values(), "finished lesson keeps the reset")
}

func TestCheckpointSkipsStart(t *testing.T) {
	saver := &recordingSaver{}
	s, _ := newTestSession(0, saver)
	s.Checkpoint(context.Background())
	require.Empty(t, saver.values())

	s2, _ := newTestSession(3, saver)
	s2.Checkpoint(context.Background())
	require.Equal(t, []int{3}, saver.values())
}

func TestSaveErrorsAreNotFatal(t *testing.T) {
	s, _ := newTestSession(0, &recordingSaver{err: apperr.ErrAuthenticationRequired})
	_, ok := s.Detect(context.Background(), "A")
	require.True(t, ok)

	s2, _ := newTestSession(0, &recordingSaver{err: errors.New("disk full")})
	_, ok = s2.Detect(context.Background(), "A")
	require.True(t, ok)
}

type scriptedCamera struct {
	calls atomic.Int32
	err   error
}

func (c *scriptedCamera) CaptureFrame(context.Context) (media.Resource, error) {
	c.calls.Add(1)
	if c.err != nil {
		return media.Resource{}, c.err
	}
	return media.Frame([]byte("jpeg")), nil
}

type scriptedGestures struct {
	mu       sync.Mutex
	outcomes []recognition.Outcome
	errs     []error
	// before runs ahead of every answer.
	before func()
}

func (g *scriptedGestures) RecognizeGesture(context.Context, media.Resource) (recognition.Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.before != nil {
		g.before()
	}
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(g.outcomes) == 0 {
		return recognition.NotRecognized{Reason: recognition.ReasonNoGesture}, nil
	}
	out := g.outcomes[0]
	g.outcomes = g.outcomes[1:]
	return out, nil
}

func TestRunnerFeedsRecognizedLettersUntilFinished(t *testing.T) {
	saver := &recordingSaver{}
	session := NewSession(24, 0, saver, nil)
	gestures := &scriptedGestures{
		errs: []error{&apperr.NetworkError{Endpoint: "gesture", StatusCode: 500}},
		outcomes: []recognition.Outcome{
			recognition.NotRecognized{Reason: recognition.ReasonNoGesture},
			recognition.Recognized{Label: "y"},
			recognition.Recognized{Label: "Z"},
		},
	}

	var updates []Snapshot
	runner := Runner{
		Frames:       &scriptedCamera{},
		Gestures:     gestures,
		Session:      session,
		PollInterval: 5 * time.Millisecond,
		SaveInterval: time.Hour,
		OnUpdate:     func(s Snapshot) { updates = append(updates, s) },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, runner.Run(ctx))

	require.Len(t, updates, 2)
	require.Equal(t, "Z", updates[0].Letter)
	require.True(t, updates[1].Finished)
	require.Equal(t, []int{25, 0}, saver.values())
}

func TestRunnerSavesOnExitAndPeriodically(t *testing.T) {
	saver := &recordingSaver{}
	session := NewSession(5, 0, saver, nil)
	runner := Runner{
		Frames:       &scriptedCamera{},
		Gestures:     &scriptedGestures{},
		Session:      session,
		PollInterval: time.Hour,
		SaveInterval: 20 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()
	require.NoError(t, runner.Run(ctx))

	saved := saver.values()
	require.GreaterOrEqual(t, len(saved), 2)
	for _, index := range saved {
		require.Equal(t, 5, index)
	}
}

func TestRunnerStopsOnDeviceFailure(t *testing.T) {
	camera := &scriptedCamera{err: apperr.ErrDeviceUnavailable}
	runner := Runner{
		Frames:       camera,
		Gestures:     &scriptedGestures{},
		Session:      NewSession(0, 0, nil, nil),
		PollInterval: 5 * time.Millisecond,
	}

	err := runner.Run(context.Background())
	require.ErrorIs(t, err, apperr.ErrDeviceUnavailable)
	require.Equal(t, int32(1), camera.calls.Load())
}

func TestRunnerIgnoresLetterAnsweredAfterStop(t *testing.T) {
	saver := &recordingSaver{}
	session := NewSession(0, 0, saver, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var updates []Snapshot
	runner := Runner{
		Frames: &scriptedCamera{},
		Gestures: &scriptedGestures{
			before:   cancel,
			outcomes: []recognition.Outcome{recognition.Recognized{Label: "A"}},
		},
		Session:      session,
		PollInterval: 5 * time.Millisecond,
		SaveInterval: time.Hour,
		OnUpdate:     func(s Snapshot) { updates = append(updates, s) },
	}

	require.NoError(t, runner.Run(ctx))
	require.Empty(t, updates)
	require.Equal(t, "A", session.Snapshot().Letter)
	require.Empty(t, saver.values())
}
