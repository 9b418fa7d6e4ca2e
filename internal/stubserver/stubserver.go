// Package stubserver serves canned recognition responses for local development.
// It performs no inference.
package stubserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
)

const maxUpload = 64 << 20

// Options selects the canned answers.
type Options struct {
	// SignLabels are returned in rotation by the sign endpoint.
	SignLabels []string
	// GestureLabels are returned in rotation by the gesture endpoint; "None"
	// stands for a frame without a hand sign.
	GestureLabels []string
	Transcript    string
	// ForceStatus, when non-zero, makes every recognition endpoint fail with it.
	ForceStatus int
	Logger      *slog.Logger
}

func DefaultOptions() Options {
	gestures := make([]string, 0, 52)
	for r := 'A'; r <= 'Z'; r++ {
		gestures = append(gestures, "None", string(r))
	}
	return Options{
		SignLabels:    []string{"HELLO", "THANK-YOU", "YES", "NO"},
		GestureLabels: gestures,
		Transcript:    "hello from signcap",
	}
}

type Server struct {
	opts     Options
	signs    atomic.Uint64
	gestures atomic.Uint64
	requests atomic.Uint64
}

func New(opts Options) *Server {
	defaults := DefaultOptions()
	if len(opts.SignLabels) == 0 {
		opts.SignLabels = defaults.SignLabels
	}
	if len(opts.GestureLabels) == 0 {
		opts.GestureLabels = defaults.GestureLabels
	}
	if opts.Transcript == "" {
		opts.Transcript = defaults.Transcript
	}
	return &Server{opts: opts}
}

// Requests is the number of recognition requests served.
func (s *Server) Requests() uint64 {
	return s.requests.Load()
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/recognize-sign-from-video/", s.handleSign).Methods(http.MethodPost)
	r.HandleFunc("/recognize-gesture/", s.handleGesture).Methods(http.MethodPost)
	r.HandleFunc("/process_audio/", s.handleAudio).Methods(http.MethodPost)
	return r
}

// Serve runs until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	if !s.accept(w, r) {
		return
	}
	label := pick(s.opts.SignLabels, s.signs.Add(1))
	writeJSON(w, http.StatusOK, map[string]string{"recognized_word": label})
}

func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	if !s.accept(w, r) {
		return
	}
	label := pick(s.opts.GestureLabels, s.gestures.Add(1))
	writeJSON(w, http.StatusOK, map[string]string{"gesture": label})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if !s.accept(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"recognized_text": s.opts.Transcript})
}

// accept checks for exactly one uploaded file and applies ForceStatus.
func (s *Server) accept(w http.ResponseWriter, r *http.Request) bool {
	s.requests.Add(1)

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "multipart body required"})
		return false
	}
	defer r.MultipartForm.RemoveAll()

	files := 0
	var size int64
	for _, headers := range r.MultipartForm.File {
		for _, h := range headers {
			files++
			size += h.Size
		}
	}
	if files == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "file field required"})
		return false
	}

	if s.opts.Logger != nil {
		s.opts.Logger.Info("stub recognition request", "path", r.URL.Path, "bytes", size)
	}

	if s.opts.ForceStatus != 0 {
		http.Error(w, fmt.Sprintf("forced %d", s.opts.ForceStatus), s.opts.ForceStatus)
		return false
	}
	return true
}

func pick(labels []string, n uint64) string {
	return labels[(n-1)%uint64(len(labels))]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
