// Package config resolves, parses, validates, and defaults signcap configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by signcap.
type Config struct {
	Recognition RecognitionConfig
	Capture     CaptureConfig
	Lesson      LessonConfig
	Audio       AudioConfig
	Speech      SpeechConfig
	Transcript  TranscriptConfig
	Backend     BackendConfig
	Progress    ProgressConfig
	Archive     ArchiveConfig
	Indicator   IndicatorConfig
	Debug       DebugConfig
}

// RecognitionConfig addresses the inference service.
type RecognitionConfig struct {
	BaseURL          string
	GestureURL       string
	TranscriptionURL string
	AudioField       string
	TimeoutMS        int
}

// CaptureConfig controls the sign capture window and the camera device.
type CaptureConfig struct {
	TotalMS       int
	PreparationMS int
	// MaxDurationMS is the device-level recording cap.
	MaxDurationMS int
	Device        string
	InputFormat   string
	FFmpeg        string
}

// LessonConfig controls the fingerspelling lesson loop.
type LessonConfig struct {
	CooldownMS     int
	PollIntervalMS int
	SaveIntervalMS int
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input         string
	Fallback      string
	MaxDurationMS int
}

// SpeechConfig controls spoken playback of recognized labels.
type SpeechConfig struct {
	Enable  bool
	Command CommandConfig
}

// TranscriptConfig controls sentence assembly formatting.
type TranscriptConfig struct {
	Lowercase           bool
	CapitalizeSentences bool
}

// BackendConfig addresses the hosted auth, database, and storage REST API.
type BackendConfig struct {
	URL     string
	AnonKey string
}

// ProgressConfig selects where lesson progress is persisted.
type ProgressConfig struct {
	Store string
	Path  string
}

// ArchiveConfig controls upload of recognized sign recordings.
type ArchiveConfig struct {
	Enable bool
	Store  string
	Bucket string
	Dir    string
}

// IndicatorConfig controls the terminal indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Width             int
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	DesktopNotify     bool
	DesktopAppName    string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	// MediaDir holds recordings until they are uploaded; empty means the system temp dir.
	MediaDir string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

const (
	StoreSQLite = "sqlite"
	StoreLocal  = "local"
	StoreRemote = "remote"
)

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c CaptureConfig) Total() time.Duration       { return ms(c.TotalMS) }
func (c CaptureConfig) Preparation() time.Duration { return ms(c.PreparationMS) }
func (c CaptureConfig) MaxDuration() time.Duration { return ms(c.MaxDurationMS) }

func (c LessonConfig) Cooldown() time.Duration     { return ms(c.CooldownMS) }
func (c LessonConfig) PollInterval() time.Duration { return ms(c.PollIntervalMS) }
func (c LessonConfig) SaveInterval() time.Duration { return ms(c.SaveIntervalMS) }

func (c RecognitionConfig) Timeout() time.Duration { return ms(c.TimeoutMS) }

func (c AudioConfig) MaxDuration() time.Duration { return ms(c.MaxDurationMS) }
