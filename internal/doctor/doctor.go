// Package doctor runs runtime readiness diagnostics for config, tools,
// devices, and the recognition service.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/signcap/internal/audio"
	"github.com/rbright/signcap/internal/camera"
	"github.com/rbright/signcap/internal/config"
	"github.com/rbright/signcap/internal/recognition"
)

const healthTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// environment holds the live device lookups, swapped out in tests.
type environment struct {
	selectAudio func(ctx context.Context, input string, fallback string) (audio.Selection, error)
	checkCamera func(cfg config.CaptureConfig) error
}

func liveEnvironment() environment {
	return environment{
		selectAudio: audio.SelectDevice,
		checkCamera: func(cfg config.CaptureConfig) error {
			return camera.New(camera.Config{Device: cfg.Device, InputFormat: cfg.InputFormat, FFmpeg: cfg.FFmpeg}, nil).CheckDevice()
		},
	}
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	return run(ctx, loaded, liveEnvironment())
}

func run(ctx context.Context, loaded config.Loaded, p environment) Report {
	cfg := loaded.Config
	checks := []Check{configCheck(loaded)}

	checks = append(checks, checkCamera(cfg.Capture, p.checkCamera))
	checks = append(checks, checkCommand([]string{cfg.Capture.FFmpeg}, "capture.ffmpeg"))
	if cfg.Speech.Enable {
		checks = append(checks, checkCommand(cfg.Speech.Command.Argv, "speech.command"))
	}
	checks = append(checks, checkAudioSelection(ctx, cfg.Audio, p.selectAudio))
	checks = append(checks, checkRecognition(ctx, cfg.Recognition)...)
	checks = append(checks, checkBackend(cfg))

	return Report{Checks: checks}
}

func configCheck(loaded config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		message = fmt.Sprintf("using defaults (%q not found)", loaded.Path)
	}
	if loaded.EnvFile != "" {
		message += fmt.Sprintf(", env from %q", loaded.EnvFile)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkCamera(cfg config.CaptureConfig, readable func(config.CaptureConfig) error) Check {
	if err := readable(cfg); err != nil {
		return Check{Name: "capture.device", Pass: false, Message: err.Error()}
	}
	return Check{Name: "capture.device", Pass: true, Message: fmt.Sprintf("%s (%s) is readable", cfg.Device, cfg.InputFormat)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.AudioConfig, selectDevice func(context.Context, string, string) (audio.Selection, error)) Check {
	selection, err := selectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkRecognition calls /health on every distinct recognition base URL.
func checkRecognition(ctx context.Context, cfg config.RecognitionConfig) []Check {
	bases := []struct{ name, url string }{
		{"recognition", cfg.BaseURL},
		{"recognition.gesture", cfg.GestureURL},
		{"recognition.transcription", cfg.TranscriptionURL},
	}

	seen := map[string]bool{}
	checks := make([]Check, 0, len(bases))
	for _, base := range bases {
		url := strings.TrimRight(strings.TrimSpace(base.url), "/")
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true

		client, err := recognition.NewClient(recognition.Config{BaseURL: url, Timeout: healthTimeout}, nil)
		if err != nil {
			checks = append(checks, Check{Name: base.name, Pass: false, Message: err.Error()})
			continue
		}
		healthCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		err = client.Health(healthCtx)
		cancel()
		if err != nil {
			checks = append(checks, Check{Name: base.name, Pass: false, Message: err.Error()})
			continue
		}
		checks = append(checks, Check{Name: base.name, Pass: true, Message: fmt.Sprintf("reachable at %s", url)})
	}
	return checks
}

func checkBackend(cfg config.Config) Check {
	if strings.TrimSpace(cfg.Backend.URL) == "" {
		return Check{Name: "backend", Pass: true, Message: "not configured; accounts and remote storage disabled"}
	}
	if strings.TrimSpace(cfg.Backend.AnonKey) == "" {
		return Check{Name: "backend", Pass: false, Message: "backend.anon_key is empty"}
	}
	return Check{Name: "backend", Pass: true, Message: fmt.Sprintf("configured at %s (progress=%s, archive=%s)", cfg.Backend.URL, cfg.Progress.Store, archiveMode(cfg.Archive))}
}

func archiveMode(cfg config.ArchiveConfig) string {
	if !cfg.Enable {
		return "off"
	}
	return cfg.Store
}
