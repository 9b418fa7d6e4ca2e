package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)

	runtime, err := New()
	require.NoError(t, err)
	defer runtime.Close()
	require.Equal(t, filepath.Join(xdgStateHome, "signcap", "log.jsonl"), runtime.Path)
}

func TestNewCreatesWritableJSONLogFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv(EnvLevel, "")

	runtime, err := New()
	require.NoError(t, err)

	runtime.Logger.Info("unit-test-log", "component", "logging")
	runtime.Logger.Debug("hidden-debug-line")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"msg":"unit-test-log"`)
	require.Contains(t, string(contents), `"component":"logging"`)
	require.NotContains(t, string(contents), "hidden-debug-line")

	stat, err := os.Stat(runtime.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestLevelFromEnv(t *testing.T) {
	for raw, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	} {
		t.Setenv(EnvLevel, raw)
		require.Equal(t, want, levelFromEnv(), raw)
	}
}

func TestOrDiscard(t *testing.T) {
	require.NotNil(t, OrDiscard(nil))
	require.False(t, OrDiscard(nil).Enabled(t.Context(), slog.LevelError))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	require.Same(t, logger, OrDiscard(logger))
}
