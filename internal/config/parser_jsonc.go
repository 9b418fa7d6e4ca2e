package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsoncConfig struct {
	Recognition *jsoncRecognition `json:"recognition"`
	Capture     *jsoncCapture     `json:"capture"`
	Lesson      *jsoncLesson      `json:"lesson"`
	Audio       *jsoncAudio       `json:"audio"`
	Speech      *jsoncSpeech      `json:"speech"`
	Transcript  *jsoncTranscript  `json:"transcript"`
	Backend     *jsoncBackend     `json:"backend"`
	Progress    *jsoncProgress    `json:"progress"`
	Archive     *jsoncArchive     `json:"archive"`
	Indicator   *jsoncIndicator   `json:"indicator"`
	Debug       *jsoncDebug       `json:"debug"`
}

type jsoncRecognition struct {
	BaseURL          *string `json:"base_url"`
	GestureURL       *string `json:"gesture_url"`
	TranscriptionURL *string `json:"transcription_url"`
	AudioField       *string `json:"audio_field"`
	TimeoutMS        *int    `json:"timeout_ms"`
}

type jsoncCapture struct {
	TotalMS       *int    `json:"total_ms"`
	PreparationMS *int    `json:"preparation_ms"`
	MaxDurationMS *int    `json:"max_duration_ms"`
	Device        *string `json:"device"`
	InputFormat   *string `json:"input_format"`
	FFmpeg        *string `json:"ffmpeg"`
}

type jsoncLesson struct {
	CooldownMS     *int `json:"cooldown_ms"`
	PollIntervalMS *int `json:"poll_interval_ms"`
	SaveIntervalMS *int `json:"save_interval_ms"`
}

type jsoncAudio struct {
	Input         *string `json:"input"`
	Fallback      *string `json:"fallback"`
	MaxDurationMS *int    `json:"max_duration_ms"`
}

type jsoncSpeech struct {
	Enable  *bool   `json:"enable"`
	Command *string `json:"command"`
}

type jsoncTranscript struct {
	Lowercase           *bool `json:"lowercase"`
	CapitalizeSentences *bool `json:"capitalize_sentences"`
}

type jsoncBackend struct {
	URL     *string `json:"url"`
	AnonKey *string `json:"anon_key"`
}

type jsoncProgress struct {
	Store *string `json:"store"`
	Path  *string `json:"path"`
}

type jsoncArchive struct {
	Enable *bool   `json:"enable"`
	Store  *string `json:"store"`
	Bucket *string `json:"bucket"`
	Dir    *string `json:"dir"`
}

type jsoncIndicator struct {
	Enable            *bool   `json:"enable"`
	Width             *int    `json:"width"`
	SoundEnable       *bool   `json:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file"`
	DesktopNotify     *bool   `json:"desktop_notify"`
	DesktopAppName    *string `json:"desktop_app_name"`
}

type jsoncDebug struct {
	MediaDir *string `json:"media_dir"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	cfg, err := decodeJSONC(content, base)
	if err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

// decodeJSONC applies content over base without validating the result.
func decodeJSONC(content string, base Config) (Config, error) {
	plain, err := stripJSONC(content)
	if err != nil {
		return Config{}, err
	}

	decoder := json.NewDecoder(strings.NewReader(plain))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, locateJSONError(plain, err)
	}
	tail := plain[decoder.InputOffset():]
	if rest := strings.TrimLeft(tail, " \t\r\n"); rest != "" {
		line, col := position(plain, int64(len(plain)-len(rest))+1)
		return Config{}, fmt.Errorf("line %d column %d: unexpected content after the top-level object", line, col)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if r := payload.Recognition; r != nil {
		setString(&cfg.Recognition.BaseURL, r.BaseURL)
		setString(&cfg.Recognition.GestureURL, r.GestureURL)
		setString(&cfg.Recognition.TranscriptionURL, r.TranscriptionURL)
		setString(&cfg.Recognition.AudioField, r.AudioField)
		setInt(&cfg.Recognition.TimeoutMS, r.TimeoutMS)
	}

	if c := payload.Capture; c != nil {
		setInt(&cfg.Capture.TotalMS, c.TotalMS)
		setInt(&cfg.Capture.PreparationMS, c.PreparationMS)
		setInt(&cfg.Capture.MaxDurationMS, c.MaxDurationMS)
		setString(&cfg.Capture.Device, c.Device)
		setString(&cfg.Capture.InputFormat, c.InputFormat)
		setString(&cfg.Capture.FFmpeg, c.FFmpeg)
	}

	if l := payload.Lesson; l != nil {
		setInt(&cfg.Lesson.CooldownMS, l.CooldownMS)
		setInt(&cfg.Lesson.PollIntervalMS, l.PollIntervalMS)
		setInt(&cfg.Lesson.SaveIntervalMS, l.SaveIntervalMS)
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
		setInt(&cfg.Audio.MaxDurationMS, a.MaxDurationMS)
	}

	if sp := payload.Speech; sp != nil {
		setBool(&cfg.Speech.Enable, sp.Enable)
		if sp.Command != nil {
			cmd, err := ParseCommand(*sp.Command)
			if err != nil {
				return fmt.Errorf("invalid speech.command: %w", err)
			}
			cfg.Speech.Command = cmd
		}
	}

	if t := payload.Transcript; t != nil {
		setBool(&cfg.Transcript.Lowercase, t.Lowercase)
		setBool(&cfg.Transcript.CapitalizeSentences, t.CapitalizeSentences)
	}

	if b := payload.Backend; b != nil {
		setString(&cfg.Backend.URL, b.URL)
		setString(&cfg.Backend.AnonKey, b.AnonKey)
	}

	if p := payload.Progress; p != nil {
		setString(&cfg.Progress.Store, p.Store)
		setString(&cfg.Progress.Path, p.Path)
		cfg.Progress.Store = strings.ToLower(cfg.Progress.Store)
	}

	if a := payload.Archive; a != nil {
		setBool(&cfg.Archive.Enable, a.Enable)
		setString(&cfg.Archive.Store, a.Store)
		setString(&cfg.Archive.Bucket, a.Bucket)
		setString(&cfg.Archive.Dir, a.Dir)
		cfg.Archive.Store = strings.ToLower(cfg.Archive.Store)
	}

	if i := payload.Indicator; i != nil {
		setBool(&cfg.Indicator.Enable, i.Enable)
		setInt(&cfg.Indicator.Width, i.Width)
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, i.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, i.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, i.SoundCompleteFile)
		setString(&cfg.Indicator.SoundCancelFile, i.SoundCancelFile)
		setBool(&cfg.Indicator.DesktopNotify, i.DesktopNotify)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
	}

	if d := payload.Debug; d != nil {
		setString(&cfg.Debug.MediaDir, d.MediaDir)
	}

	return nil
}
