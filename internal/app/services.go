package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/rbright/signcap/internal/auth"
	"github.com/rbright/signcap/internal/camera"
	"github.com/rbright/signcap/internal/config"
	"github.com/rbright/signcap/internal/progress"
	"github.com/rbright/signcap/internal/recognition"
	"github.com/rbright/signcap/internal/speech"
	"github.com/rbright/signcap/internal/storage"
)

// userResolver names whoever progress and archived samples belong to.
type userResolver interface {
	UserID(ctx context.Context) (string, error)
}

// localUser is the profile used when no backend is configured, so progress
// and samples still have an owner.
type localUser string

func (u localUser) UserID(context.Context) (string, error) { return string(u), nil }

func localUserID() string {
	name := strings.TrimSpace(os.Getenv("USER"))
	if name == "" {
		name = "default"
	}
	return "local-" + name
}

// services is everything the interactive commands share, built from config.
type services struct {
	cfg        config.Config
	logger     *slog.Logger
	recognizer *recognition.Client
	camera     *camera.Recorder
	auth       *auth.Manager
	users      userResolver
	progress   *progress.Tracker
	archiver   *storage.Archiver
	speaker    recognition.Speaker

	closers []io.Closer
}

func newServices(cfg config.Config, logger *slog.Logger) (*services, error) {
	httpClient := &http.Client{Timeout: cfg.Recognition.Timeout()}
	svc := &services{cfg: cfg, logger: logger}

	recognizer, err := recognition.NewClient(recognition.Config{
		BaseURL:              cfg.Recognition.BaseURL,
		GestureBaseURL:       cfg.Recognition.GestureURL,
		TranscriptionBaseURL: cfg.Recognition.TranscriptionURL,
		AudioField:           cfg.Recognition.AudioField,
		Timeout:              cfg.Recognition.Timeout(),
	}, httpClient)
	if err != nil {
		return nil, err
	}
	svc.recognizer = recognizer

	svc.camera = camera.New(camera.Config{
		FFmpeg:      cfg.Capture.FFmpeg,
		Device:      cfg.Capture.Device,
		InputFormat: cfg.Capture.InputFormat,
		OutputDir:   cfg.Debug.MediaDir,
	}, logger)

	if err := svc.buildAuth(cfg, httpClient); err != nil {
		return nil, err
	}
	if err := svc.buildProgress(cfg, httpClient); err != nil {
		svc.Close()
		return nil, err
	}
	if err := svc.buildArchive(cfg, httpClient); err != nil {
		svc.Close()
		return nil, err
	}

	if cfg.Speech.Enable && len(cfg.Speech.Command.Argv) > 0 {
		svc.speaker = speech.NewCommandSpeaker(cfg.Speech.Command.Argv)
	} else {
		svc.speaker = speech.Nop{}
	}
	return svc, nil
}

func (s *services) buildAuth(cfg config.Config, httpClient *http.Client) error {
	sessionPath, err := config.StatePath("", "session.json")
	if err != nil {
		return err
	}

	var client *auth.Client
	if backendConfigured(cfg) {
		client, err = auth.NewClient(cfg.Backend.URL, cfg.Backend.AnonKey, httpClient)
		if err != nil {
			return err
		}
	}
	s.auth = auth.NewManager(client, auth.NewStore(sessionPath))

	if client != nil {
		s.users = s.auth
	} else {
		s.users = localUser(localUserID())
	}
	return nil
}

func (s *services) buildProgress(cfg config.Config, httpClient *http.Client) error {
	var store progress.Store
	switch cfg.Progress.Store {
	case config.StoreRemote:
		remote, err := progress.NewRemoteStore(cfg.Backend.URL, cfg.Backend.AnonKey, s.accessToken, httpClient)
		if err != nil {
			return err
		}
		store = remote
	default:
		path, err := config.StatePath(cfg.Progress.Path, "progress.db")
		if err != nil {
			return err
		}
		local, err := progress.OpenSQLite(path)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, local)
		store = local
	}
	s.progress = progress.NewTracker(store, s.users)
	return nil
}

func (s *services) buildArchive(cfg config.Config, httpClient *http.Client) error {
	if !cfg.Archive.Enable {
		return nil
	}

	var store storage.ObjectStore
	switch cfg.Archive.Store {
	case config.StoreRemote:
		remote, err := storage.NewRESTStore(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.Archive.Bucket, s.accessToken, httpClient)
		if err != nil {
			return err
		}
		store = remote
	default:
		root, err := config.StatePath(cfg.Archive.Dir, "archive")
		if err != nil {
			return err
		}
		store = storage.NewLocalStore(root)
	}
	s.archiver = storage.NewArchiver(store)
	return nil
}

// accessToken feeds the signed-in session's bearer token to the REST stores.
func (s *services) accessToken(ctx context.Context) (string, error) {
	current, err := s.auth.Current(ctx)
	if err != nil {
		return "", err
	}
	return current.AccessToken, nil
}

// sampleArchiver files recognized clips for the current user, or nil when
// archiving is off.
func (s *services) sampleArchiver() recognition.Archiver {
	if s.archiver == nil {
		return nil
	}
	return storage.UserArchiver{Archiver: s.archiver, Users: s.users}
}

func (s *services) Close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil && s.logger != nil {
			s.logger.Warn("close failed", "error", err.Error())
		}
	}
	s.closers = nil
}

func backendConfigured(cfg config.Config) bool {
	return strings.TrimSpace(cfg.Backend.URL) != "" && strings.TrimSpace(cfg.Backend.AnonKey) != ""
}
