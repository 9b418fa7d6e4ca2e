// Package lesson runs the fingerspelling alphabet lesson.
package lesson

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rbright/signcap/internal/apperr"
)

// PointsPerLetter is awarded for each correctly signed letter.
const PointsPerLetter = 50

// Alphabet is the lesson order.
var Alphabet = strings.Split("ABCDEFGHIJKLMNOPQRSTUVWXYZ", "")

var congratulations = []string{
	"Good job!",
	"That was awesome!",
	"You're amazing!",
	"Perfect!",
	"Keep it up!",
	"You're a natural!",
	"Excellent work!",
}

// Saver persists the lesson position.
type Saver interface {
	Save(ctx context.Context, index int) error
}

// Snapshot is the lesson state shown to the learner.
type Snapshot struct {
	Letter   string
	Index    int
	Total    int
	Score    int
	Message  string
	Finished bool
}

// Session tracks one pass through the alphabet.
type Session struct {
	mu          sync.Mutex
	index       int
	score       int
	message     string
	finished    bool
	lockedUntil time.Time

	cooldown time.Duration
	saver    Saver
	logger   *slog.Logger
	now      func() time.Time
	pick     func(n int) int
}

// NewSession starts at index (clamped into the alphabet) with the score the
// learner would have earned to get there.
func NewSession(index int, cooldown time.Duration, saver Saver, logger *slog.Logger) *Session {
	if index < 0 || index >= len(Alphabet) {
		index = 0
	}
	return &Session{
		index:    index,
		score:    index * PointsPerLetter,
		cooldown: cooldown,
		saver:    saver,
		logger:   logger,
		now:      time.Now,
		pick:     rand.IntN,
	}
}

// Detect feeds one recognized letter. It reports whether the letter was
// accepted; mismatches and letters inside the cooldown are ignored.
func (s *Session) Detect(ctx context.Context, letter string) (Snapshot, bool) {
	letter = strings.ToUpper(strings.TrimSpace(letter))

	s.mu.Lock()
	if s.finished || s.now().Before(s.lockedUntil) || letter != Alphabet[s.index] {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false
	}

	s.lockedUntil = s.now().Add(s.cooldown)
	s.score += PointsPerLetter
	s.message = congratulations[s.pick(len(congratulations))]

	saveIndex := s.index + 1
	if s.index == len(Alphabet)-1 {
		s.finished = true
		saveIndex = 0
	} else {
		s.index++
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.save(ctx, saveIndex)
	return snap, true
}

// Checkpoint saves the current position when there is progress to keep.
func (s *Session) Checkpoint(ctx context.Context) {
	s.mu.Lock()
	index, finished := s.index, s.finished
	s.mu.Unlock()
	if finished || index == 0 {
		return
	}
	s.save(ctx, index)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Letter:   Alphabet[s.index],
		Index:    s.index,
		Total:    len(Alphabet),
		Score:    s.score,
		Message:  s.message,
		Finished: s.finished,
	}
}

func (s *Session) save(ctx context.Context, index int) {
	if s.saver == nil {
		return
	}
	err := s.saver.Save(ctx, index)
	if err == nil || s.logger == nil {
		return
	}
	if errors.Is(err, apperr.ErrAuthenticationRequired) {
		s.logger.Debug("lesson progress not saved; signed out", "index", index)
		return
	}
	s.logger.Warn("lesson progress save failed", "index", index, "error", err.Error())
}
