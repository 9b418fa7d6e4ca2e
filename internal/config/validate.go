package config

import (
	"net/url"
	"strings"

	"github.com/rbright/signcap/internal/apperr"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if err := validateURL("recognition.base_url", cfg.Recognition.BaseURL, true); err != nil {
		return nil, err
	}
	if err := validateURL("recognition.gesture_url", cfg.Recognition.GestureURL, false); err != nil {
		return nil, err
	}
	if err := validateURL("recognition.transcription_url", cfg.Recognition.TranscriptionURL, false); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Recognition.AudioField) == "" {
		return nil, apperr.Configf("recognition.audio_field must not be empty")
	}
	if cfg.Recognition.TimeoutMS <= 0 {
		return nil, apperr.Configf("recognition.timeout_ms must be > 0")
	}

	c := cfg.Capture
	if c.PreparationMS <= 0 || c.PreparationMS >= c.TotalMS {
		return nil, apperr.Configf("capture.preparation_ms must be > 0 and < capture.total_ms (got %d, %d)", c.PreparationMS, c.TotalMS)
	}
	if c.MaxDurationMS < c.TotalMS {
		return nil, apperr.Configf("capture.max_duration_ms (%d) must be >= capture.total_ms (%d)", c.MaxDurationMS, c.TotalMS)
	}
	if strings.TrimSpace(c.Device) == "" {
		return nil, apperr.Configf("capture.device must not be empty")
	}
	if strings.TrimSpace(c.FFmpeg) == "" {
		return nil, apperr.Configf("capture.ffmpeg must not be empty")
	}

	l := cfg.Lesson
	if l.CooldownMS < 0 {
		return nil, apperr.Configf("lesson.cooldown_ms must be >= 0")
	}
	if l.PollIntervalMS <= 0 {
		return nil, apperr.Configf("lesson.poll_interval_ms must be > 0")
	}
	if l.SaveIntervalMS <= 0 {
		return nil, apperr.Configf("lesson.save_interval_ms must be > 0")
	}
	if cfg.Audio.MaxDurationMS <= 0 {
		return nil, apperr.Configf("audio.max_duration_ms must be > 0")
	}

	if cfg.Speech.Enable && len(cfg.Speech.Command.Argv) == 0 {
		return nil, apperr.Configf("speech.command must not be empty when speech.enable=true")
	}

	switch cfg.Progress.Store {
	case StoreSQLite, StoreRemote:
	default:
		return nil, apperr.Configf("progress.store must be one of: sqlite, remote")
	}
	switch cfg.Archive.Store {
	case StoreLocal, StoreRemote:
	default:
		return nil, apperr.Configf("archive.store must be one of: local, remote")
	}
	if cfg.Archive.Enable && cfg.Archive.Store == StoreRemote && strings.TrimSpace(cfg.Archive.Bucket) == "" {
		return nil, apperr.Configf("archive.bucket must not be empty when archive.store=remote")
	}

	if err := validateURL("backend.url", cfg.Backend.URL, false); err != nil {
		return nil, err
	}
	needsBackend := cfg.Progress.Store == StoreRemote || (cfg.Archive.Enable && cfg.Archive.Store == StoreRemote)
	if needsBackend && (strings.TrimSpace(cfg.Backend.URL) == "" || strings.TrimSpace(cfg.Backend.AnonKey) == "") {
		return nil, apperr.Configf("backend.url and backend.anon_key are required by remote progress or archive storage")
	}
	if strings.TrimSpace(cfg.Backend.URL) == "" {
		warnings = append(warnings, Warning{Message: "backend.url is not set; login, signup, and remote storage are unavailable"})
	}

	if cfg.Indicator.Width <= 0 {
		return nil, apperr.Configf("indicator.width must be > 0")
	}
	if cfg.Indicator.DesktopNotify && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, apperr.Configf("indicator.desktop_app_name must not be empty when indicator.desktop_notify=true")
	}

	return warnings, nil
}

func validateURL(key string, raw string, required bool) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return apperr.Configf("%s must not be empty", key)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperr.Configf("%s must be an absolute http(s) URL: %q", key, raw)
	}
	return nil
}
