package indicator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/signcap/internal/config"
	"github.com/rbright/signcap/internal/recognition"
	"github.com/rbright/signcap/internal/timing"
)

type fixedClock struct {
	progress    float64
	total, prep time.Duration
}

func (c fixedClock) Progress() float64                      { return c.progress }
func (c fixedClock) Window() (time.Duration, time.Duration) { return c.total, c.prep }

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() config.IndicatorConfig {
	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	cfg.Width = 10
	return cfg
}

func TestTerminalRendersPhaseLines(t *testing.T) {
	out := &safeBuffer{}
	term := NewTerminal(testConfig(), out, fixedClock{progress: 0.5, total: time.Second, prep: 200 * time.Millisecond}, nil)

	term.ShowPhase(context.Background(), timing.PhasePrepare)
	term.ShowPhase(context.Background(), timing.PhaseRecord)
	term.ShowPhase(context.Background(), timing.PhaseComplete)
	term.Hide(context.Background())

	text := out.String()
	require.Contains(t, text, "Get ready...")
	require.Contains(t, text, "SIGN NOW!")
	require.Contains(t, text, "Processing...")
	require.Contains(t, text, "█████░░░░░")
	require.Contains(t, text, "██████████")
	require.True(t, strings.HasSuffix(text, clearLine))
}

func TestTerminalShowResultPrintsLabel(t *testing.T) {
	out := &safeBuffer{}
	term := NewTerminal(testConfig(), out, nil, nil)

	confidence := 0.91
	term.ShowResult(context.Background(), recognition.Recognized{Label: "HELLO", Confidence: &confidence})
	term.ShowResult(context.Background(), recognition.NotRecognized{Reason: recognition.ReasonEmptyLabel})
	term.ShowError(context.Background(), "")
	term.Hide(context.Background())

	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(out.String(), clearLine, "")), "\n")
	require.Equal(t, []string{
		"HELLO (0.91)",
		"No sign recognized: empty label",
		"Sign recognition error",
	}, lines)
}

func TestTerminalDisabledWritesNothing(t *testing.T) {
	out := &safeBuffer{}
	cfg := testConfig()
	cfg.Enable = false
	term := NewTerminal(cfg, out, nil, nil)

	term.ShowPhase(context.Background(), timing.PhasePrepare)
	term.ShowResult(context.Background(), recognition.Recognized{Label: "YES"})
	term.ShowError(context.Background(), "boom")
	term.Hide(context.Background())

	require.Empty(t, out.String())
}

func TestTerminalRefreshLoopStopsOnHide(t *testing.T) {
	out := &safeBuffer{}
	term := NewTerminal(testConfig(), out, fixedClock{progress: 0.1, total: time.Second, prep: 500 * time.Millisecond}, nil)

	term.ShowPhase(context.Background(), timing.PhasePrepare)
	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "Get ready...") >= 2
	}, time.Second, 10*time.Millisecond)

	term.Hide(context.Background())
	settled := out.String()
	time.Sleep(3 * refreshEvery)
	require.Equal(t, settled, out.String())
}

func TestTerminalCuesSerializeThroughEmitter(t *testing.T) {
	cfg := testConfig()
	cfg.SoundEnable = true
	term := NewTerminal(cfg, &safeBuffer{}, nil, nil)

	var mu sync.Mutex
	var played []cueKind
	term.emit = func(_ context.Context, kind cueKind) error {
		mu.Lock()
		defer mu.Unlock()
		played = append(played, kind)
		return nil
	}

	term.CueStart(context.Background())
	term.CueStop(context.Background())
	term.CueComplete(context.Background())
	term.CueCancel(context.Background())
	term.Close(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []cueKind{cueStart, cueStop, cueComplete, cueCancel}, played)
}

func TestTerminalDesktopNotifyOnRecognizedLabel(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "$*" == *" Notify "* ]]; then
  echo 'u 42'
fi
`)

	cfg := testConfig()
	cfg.DesktopNotify = true
	term := NewTerminal(cfg, &safeBuffer{}, nil, nil)

	term.ShowResult(context.Background(), recognition.Recognized{Label: "THANK-YOU"})
	term.ShowResult(context.Background(), recognition.NotRecognized{Reason: recognition.ReasonNoGesture})
	term.Close(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Notify susssasa{sv}i signcap 0  Sign recognized THANK-YOU 0 0 2500")
	require.Contains(t, lines[1], "CloseNotification u 42")
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
