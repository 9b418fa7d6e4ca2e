package recognition

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/media"
)

const backgroundTimeout = 30 * time.Second

// SignRecognizer classifies one recorded sign clip.
type SignRecognizer interface {
	RecognizeSign(ctx context.Context, clip media.Resource) (Outcome, error)
}

// Speaker voices a recognized label.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Archiver files a recognized clip under its label.
type Archiver interface {
	Archive(ctx context.Context, label string, clip media.Resource) error
}

// ArchiveFunc adapts a function to Archiver.
type ArchiveFunc func(ctx context.Context, label string, clip media.Resource) error

func (f ArchiveFunc) Archive(ctx context.Context, label string, clip media.Resource) error {
	return f(ctx, label, clip)
}

// Sink receives recognized labels, typically a transcript.Buffer.
type Sink interface {
	Append(token string) bool
}

// Service turns a recorded clip into a label and distributes it.
type Service struct {
	recognizer SignRecognizer
	sink       Sink
	speaker    Speaker
	archiver   Archiver
	logger     *slog.Logger

	wg sync.WaitGroup
}

// NewService wires the fan-out; speaker and archiver may be nil.
func NewService(recognizer SignRecognizer, sink Sink, speaker Speaker, archiver Archiver, logger *slog.Logger) *Service {
	return &Service{
		recognizer: recognizer,
		sink:       sink,
		speaker:    speaker,
		archiver:   archiver,
		logger:     logger,
	}
}

// Recognize classifies clip. Network failures are logged and reported as
// NotRecognized. An answer arriving after ctx is done is dropped as
// ReasonCancelled. A Recognized label is appended to the sink, then spoken
// and archived in the background. The service owns clip from here on.
func (s *Service) Recognize(ctx context.Context, clip media.Resource) Outcome {
	if clip.Empty() {
		return NotRecognized{Reason: ReasonEmptyMedia}
	}

	outcome, err := s.recognizer.RecognizeSign(ctx, clip)
	if ctx.Err() != nil {
		s.log(slog.LevelInfo, "sign result dropped", "reason", ReasonCancelled)
		s.discard(clip)
		return NotRecognized{Reason: ReasonCancelled}
	}
	if err != nil {
		s.log(slog.LevelError, "sign recognition failed", "error", err.Error(), "network", errors.Is(err, apperr.ErrNetworkFailure))
		s.discard(clip)
		return NotRecognized{Reason: ReasonRequestFailed}
	}

	recognized, ok := outcome.(Recognized)
	if !ok {
		s.log(slog.LevelInfo, "sign not recognized", "outcome", outcome.String())
		s.discard(clip)
		return outcome
	}

	s.log(slog.LevelInfo, "sign recognized", "label", recognized.Label)
	if s.sink != nil {
		s.sink.Append(recognized.Label)
	}

	bg := context.WithoutCancel(ctx)
	if s.speaker != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			speakCtx, cancel := context.WithTimeout(bg, backgroundTimeout)
			defer cancel()
			if err := s.speaker.Speak(speakCtx, recognized.Label); err != nil {
				s.log(slog.LevelWarn, "speech playback failed", "error", err.Error())
			}
		}()
	}

	if s.archiver == nil {
		s.discard(clip)
		return recognized
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.discard(clip)
		archiveCtx, cancel := context.WithTimeout(bg, backgroundTimeout)
		defer cancel()
		if err := s.archiver.Archive(archiveCtx, recognized.Label, clip); err != nil {
			level := slog.LevelWarn
			if errors.Is(err, apperr.ErrAuthenticationRequired) {
				level = slog.LevelDebug
			}
			s.log(level, "archive upload skipped", "label", recognized.Label, "error", err.Error())
		}
	}()
	return recognized
}

// Wait blocks until background speech and archive work has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) discard(clip media.Resource) {
	if err := clip.Discard(); err != nil {
		s.log(slog.LevelWarn, "discard clip failed", "error", err.Error())
	}
}

func (s *Service) log(level slog.Level, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Log(context.Background(), level, msg, args...)
}
