package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const socketName = "signcap.sock"

var (
	ErrAlreadyRunning = errors.New("signcap translate screen already running")
	// ErrRuntimeDirUnset means there is nowhere to put the socket.
	ErrRuntimeDirUnset = errors.New("XDG_RUNTIME_DIR is not set")
)

// RuntimeSocketPath is where the translate screen listens.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", ErrRuntimeDirUnset
	}
	return filepath.Join(runtimeDir, socketName), nil
}

// AcquireOptions controls stale-socket recovery.
type AcquireOptions struct {
	// PingTimeout bounds the status roundtrip used to tell a live owner
	// from a socket file left behind by a crash.
	PingTimeout time.Duration
	// Retries is how many times a stale socket is removed and re-listened.
	Retries int
}

func DefaultAcquireOptions() AcquireOptions {
	return AcquireOptions{PingTimeout: 180 * time.Millisecond, Retries: 8}
}

// Socket is the translate screen's claim on the socket path.
type Socket struct {
	net.Listener
	path string
}

// Release closes the listener and removes the socket file.
func (s *Socket) Release() {
	_ = s.Listener.Close()
	_ = os.Remove(s.path)
}

// Acquire listens on path. A live owner yields ErrAlreadyRunning; a socket
// nobody answers on is removed and claimed.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (*Socket, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return &Socket{Listener: listener, path: path}, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		if err := evictStale(ctx, path, opts.PingTimeout); err != nil {
			return nil, err
		}
		if attempt >= opts.Retries {
			return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, opts.Retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
		}
	}
}

// evictStale removes path unless an owner answers on it. An inconclusive
// ping leaves the file alone.
func evictStale(ctx context.Context, path string, timeout time.Duration) error {
	alive, err := Ping(ctx, path, timeout)
	if alive {
		return ErrAlreadyRunning
	}
	if err != nil {
		return fmt.Errorf("ping existing socket %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
