// Package recognition talks to the remote sign, gesture, and speech
// recognition endpoints and fans recognized labels out to the rest of the app.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/media"
	"github.com/rbright/signcap/internal/version"
)

const (
	PathSign    = "/recognize-sign-from-video/"
	PathGesture = "/recognize-gesture/"
	PathAudio   = "/process_audio/"
	PathHealth  = "/health"

	// noneLabel is the server's literal for "nothing recognized".
	noneLabel = "None"

	maxErrorBody = 4 << 10
)

// Config addresses the recognition endpoints.
type Config struct {
	BaseURL string
	// GestureBaseURL and TranscriptionBaseURL default to BaseURL.
	GestureBaseURL       string
	TranscriptionBaseURL string
	// AudioField is the multipart field name for audio uploads.
	AudioField string
	Timeout    time.Duration
}

// Client is an HTTP client for the recognition service.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient validates cfg and builds a client. A nil httpClient gets one
// with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if err := ValidateBaseURL(cfg.BaseURL); err != nil {
		return nil, err
	}
	if cfg.GestureBaseURL == "" {
		cfg.GestureBaseURL = cfg.BaseURL
	}
	if cfg.TranscriptionBaseURL == "" {
		cfg.TranscriptionBaseURL = cfg.BaseURL
	}
	for _, base := range []string{cfg.GestureBaseURL, cfg.TranscriptionBaseURL} {
		if err := ValidateBaseURL(base); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(cfg.AudioField) == "" {
		cfg.AudioField = "file"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// ValidateBaseURL requires an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperr.Configf("recognition base URL %q must be an absolute http(s) URL", raw)
	}
	return nil
}

type response struct {
	RecognizedWord *string  `json:"recognized_word"`
	Gesture        *string  `json:"gesture"`
	RecognizedText *string  `json:"recognized_text"`
	Confidence     *float64 `json:"confidence"`
}

// RecognizeSign uploads an MP4 clip and returns the recognized word. A
// "None" word is reported as NotRecognized.
func (c *Client) RecognizeSign(ctx context.Context, clip media.Resource) (Outcome, error) {
	resp, err := c.upload(ctx, c.cfg.BaseURL, PathSign, "file", clip)
	if err != nil {
		return nil, err
	}
	if isNone(resp.RecognizedWord) {
		return NotRecognized{Reason: ReasonNoSign}, nil
	}
	return labelOutcome(resp.RecognizedWord, resp.Confidence), nil
}

// RecognizeGesture uploads one JPEG frame. The server's "None" means no
// gesture was found and is reported as NotRecognized.
func (c *Client) RecognizeGesture(ctx context.Context, frame media.Resource) (Outcome, error) {
	resp, err := c.upload(ctx, c.cfg.GestureBaseURL, PathGesture, "file", frame)
	if err != nil {
		return nil, err
	}
	if isNone(resp.Gesture) {
		return NotRecognized{Reason: ReasonNoGesture}, nil
	}
	return labelOutcome(resp.Gesture, resp.Confidence), nil
}

// Transcribe uploads WAV audio and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, audio media.Resource) (Outcome, error) {
	resp, err := c.upload(ctx, c.cfg.TranscriptionBaseURL, PathAudio, c.cfg.AudioField, audio)
	if err != nil {
		return nil, err
	}
	return labelOutcome(resp.RecognizedText, resp.Confidence), nil
}

// Health checks the service; any non-5xx answer counts as reachable.
func (c *Client) Health(ctx context.Context) error {
	endpoint := joinURL(c.cfg.BaseURL, PathHealth)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return &apperr.NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apperr.NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

// isNone reports the server's "nothing found" sentinel.
func isNone(field *string) bool {
	return field != nil && strings.TrimSpace(*field) == noneLabel
}

func labelOutcome(field *string, confidence *float64) Outcome {
	if field == nil {
		return NotRecognized{Reason: ReasonMissingField}
	}
	label := strings.TrimSpace(*field)
	if label == "" {
		return NotRecognized{Reason: ReasonEmptyLabel}
	}
	return Recognized{Label: label, Confidence: confidence}
}

func (c *Client) upload(ctx context.Context, base string, path string, field string, res media.Resource) (response, error) {
	endpoint := joinURL(base, path)

	data, err := res.Bytes()
	if err != nil {
		return response{}, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, res.Filename()))
	header.Set("Content-Type", res.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return response{}, fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return response{}, fmt.Errorf("write multipart part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return response{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, &apperr.NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return response{}, &apperr.NetworkError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
		}
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return response{}, &apperr.NetworkError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return decoded, nil
}

func joinURL(base string, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}
