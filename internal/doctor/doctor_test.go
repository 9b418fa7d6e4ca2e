package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/audio"
	"github.com/rbright/signcap/internal/config"
)

func fakeEnvironment(cameraErr error, audioErr error) environment {
	return environment{
		selectAudio: func(context.Context, string, string) (audio.Selection, error) {
			if audioErr != nil {
				return audio.Selection{}, audioErr
			}
			return audio.Selection{Device: audio.Device{ID: "alsa_input.usb"}, Warning: "fallback used"}, nil
		},
		checkCamera: func(config.CaptureConfig) error { return cameraErr },
	}
}

func installFakeBin(t *testing.T, names ...string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	}
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "speech.command")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	installFakeBin(t, "fake-bin")

	check := checkCommand([]string{"fake-bin", "--arg"}, "speech.command")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "speech.command command is available")
}

func TestRunAllChecksPass(t *testing.T) {
	installFakeBin(t, "ffmpeg", "spd-say")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Recognition.BaseURL = server.URL
	cfg.Recognition.GestureURL = server.URL + "/"

	report := run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg, Exists: true}, fakeEnvironment(nil, nil))
	require.True(t, report.OK(), report.String())

	text := report.String()
	require.Contains(t, text, `[OK] config: loaded "/tmp/config.jsonc"`)
	require.Contains(t, text, `[OK] audio.device: selected "alsa_input.usb" (fallback used)`)
	require.Contains(t, text, "[OK] recognition: reachable at "+server.URL)
	require.NotContains(t, text, "recognition.gesture")
	require.Contains(t, text, "[OK] backend: not configured")
}

func TestRunReportsFailures(t *testing.T) {
	installFakeBin(t, "ffmpeg")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Recognition.BaseURL = server.URL
	cfg.Speech.Enable = false
	cfg.Backend.URL = "https://project.example"

	report := run(context.Background(), config.Loaded{Path: "/tmp/missing.jsonc", Config: cfg}, fakeEnvironment(apperr.ErrPermissionDenied, apperr.ErrDeviceUnavailable))
	require.False(t, report.OK())

	text := report.String()
	require.Contains(t, text, "using defaults")
	require.Contains(t, text, "[FAIL] capture.device: permission denied")
	require.Contains(t, text, "[FAIL] audio.device")
	require.Contains(t, text, "[FAIL] recognition: ")
	require.Contains(t, text, "503")
	require.Contains(t, text, "[FAIL] backend: backend.anon_key is empty")
	require.NotContains(t, text, "speech.command")
}
