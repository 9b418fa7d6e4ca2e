// Package camera records sign clips and still frames through ffmpeg.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/media"
)

const stopGrace = 3 * time.Second

// Config selects the capture device and the ffmpeg binary that drives it.
type Config struct {
	FFmpeg      string
	Device      string
	InputFormat string
	// OutputDir holds recorded clips; empty means os.TempDir().
	OutputDir string
}

// Clip is one in-progress recording.
type Clip interface {
	// Stop asks the device to finish. It is safe to call more than once.
	Stop() error
	// Wait blocks until the recording has resolved.
	Wait() (media.Resource, error)
}

type Recorder struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Recorder {
	if strings.TrimSpace(cfg.FFmpeg) == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	if strings.TrimSpace(cfg.InputFormat) == "" {
		cfg.InputFormat = "v4l2"
	}
	return &Recorder{cfg: cfg, logger: logger}
}

// CheckDevice reports whether the configured device node can be opened.
func (r *Recorder) CheckDevice() error {
	device := strings.TrimSpace(r.cfg.Device)
	if device == "" {
		return fmt.Errorf("%w: no camera device configured", apperr.ErrDeviceUnavailable)
	}
	if !strings.HasPrefix(device, "/") {
		return nil
	}
	f, err := os.Open(device)
	if err != nil {
		return classifyOpenError(device, err)
	}
	return f.Close()
}

func classifyOpenError(device string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: camera %s not found", apperr.ErrDeviceUnavailable, device)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: camera %s: %v", apperr.ErrPermissionDenied, device, err)
	default:
		return fmt.Errorf("%w: camera %s: %v", apperr.ErrDeviceUnavailable, device, err)
	}
}

// StartRecording begins an MP4 recording capped at maxDuration. The clip
// ends at Stop, at the cap, or when ctx is done.
func (r *Recorder) StartRecording(ctx context.Context, maxDuration time.Duration) (Clip, error) {
	if err := r.CheckDevice(); err != nil {
		return nil, err
	}

	dir := r.cfg.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create clip dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("sign-%d.mp4", time.Now().UnixNano()))

	args := r.inputArgs()
	if maxDuration > 0 {
		args = append(args, "-t", strconv.FormatFloat(maxDuration.Seconds(), 'f', 3, 64))
	}
	args = append(args, "-an", "-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p", "-movflags", "+faststart", path)

	cmd := exec.Command(r.cfg.FFmpeg, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin for %s: %w", r.cfg.FFmpeg, err)
	}
	rec := &recording{
		cmd:    cmd,
		stdin:  stdin,
		path:   path,
		done:   make(chan struct{}),
		logger: r.logger,
	}
	cmd.Stderr = &rec.stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("%w: start %s: %v", apperr.ErrDeviceUnavailable, r.cfg.FFmpeg, err)
	}
	if r.logger != nil {
		r.logger.Debug("camera recording started", "device", r.cfg.Device, "path", path, "max_duration", maxDuration)
	}

	go func() {
		rec.err = cmd.Wait()
		close(rec.done)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = rec.Stop()
		case <-rec.done:
		}
	}()

	return rec, nil
}

// CaptureFrame grabs a single JPEG frame.
func (r *Recorder) CaptureFrame(ctx context.Context) (media.Resource, error) {
	if err := r.CheckDevice(); err != nil {
		return media.Resource{}, err
	}

	args := append(r.inputArgs(), "-frames:v", "1", "-f", "image2pipe", "-vcodec", "mjpeg", "-")
	cmd := exec.CommandContext(ctx, r.cfg.FFmpeg, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return media.Resource{}, classifyFFmpegError(err, stderr.String())
	}
	if stdout.Len() == 0 {
		return media.Resource{}, fmt.Errorf("%w: camera returned an empty frame", apperr.ErrDeviceUnavailable)
	}
	return media.Frame(stdout.Bytes()), nil
}

func (r *Recorder) inputArgs() []string {
	return []string{"-hide_banner", "-loglevel", "error", "-y", "-f", r.cfg.InputFormat, "-i", r.cfg.Device}
}

type recording struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	path   string
	stderr bytes.Buffer
	logger *slog.Logger

	stopOnce sync.Once
	done     chan struct{}
	err      error
}

// Stop sends ffmpeg's quit key and escalates to a kill if it lingers.
func (r *recording) Stop() error {
	r.stopOnce.Do(func() {
		_, _ = io.WriteString(r.stdin, "q")
		_ = r.stdin.Close()

		go func() {
			timer := time.NewTimer(stopGrace)
			defer timer.Stop()
			select {
			case <-r.done:
			case <-timer.C:
				if r.logger != nil {
					r.logger.Warn("camera did not stop gracefully; killing", "path", r.path)
				}
				_ = r.cmd.Process.Kill()
			}
		}()
	})
	return nil
}

func (r *recording) Wait() (media.Resource, error) {
	<-r.done
	if r.err != nil {
		_ = os.Remove(r.path)
		return media.Resource{}, classifyFFmpegError(r.err, r.stderr.String())
	}

	info, err := os.Stat(r.path)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(r.path)
		return media.Resource{}, fmt.Errorf("%w: camera produced no video", apperr.ErrDeviceUnavailable)
	}
	return media.Video(r.path), nil
}

func classifyFFmpegError(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = err.Error()
	}
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "permission denied"):
		return fmt.Errorf("%w: %s", apperr.ErrPermissionDenied, detail)
	default:
		return fmt.Errorf("%w: %s", apperr.ErrDeviceUnavailable, detail)
	}
}
