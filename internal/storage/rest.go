package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/version"
)

// TokenSource supplies the bearer token of the signed-in user.
type TokenSource func(ctx context.Context) (string, error)

// RESTStore talks to a hosted storage bucket over its REST API.
type RESTStore struct {
	baseURL string
	anonKey string
	bucket  string
	token   TokenSource
	http    *http.Client
}

func NewRESTStore(baseURL string, anonKey string, bucket string, token TokenSource, httpClient *http.Client) (*RESTStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" || strings.TrimSpace(anonKey) == "" {
		return nil, apperr.Configf("backend.url and backend.anon_key are required for remote storage")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, apperr.Configf("backend.bucket is required for remote storage")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &RESTStore{baseURL: baseURL, anonKey: anonKey, bucket: bucket, token: token, http: httpClient}, nil
}

func (s *RESTStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	endpoint := s.baseURL + "/storage/v1/object/" + url.PathEscape(s.bucket) + "/" + escapeKey(key)
	req, err := s.request(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	return s.do(req, endpoint, nil)
}

func (s *RESTStore) Move(ctx context.Context, from string, to string) error {
	payload, err := json.Marshal(map[string]string{
		"bucketId":       s.bucket,
		"sourceKey":      from,
		"destinationKey": to,
	})
	if err != nil {
		return fmt.Errorf("encode move request: %w", err)
	}
	endpoint := s.baseURL + "/storage/v1/object/move"
	req, err := s.request(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, endpoint, nil)
}

type listedObject struct {
	Name string  `json:"name"`
	ID   *string `json:"id"`
}

func (s *RESTStore) List(ctx context.Context, prefix string) ([]string, error) {
	payload, err := json.Marshal(map[string]any{
		"prefix": strings.Trim(prefix, "/"),
		"limit":  1000,
		"offset": 0,
		"sortBy": map[string]string{"column": "name", "order": "asc"},
	})
	if err != nil {
		return nil, fmt.Errorf("encode list request: %w", err)
	}
	endpoint := s.baseURL + "/storage/v1/object/list/" + url.PathEscape(s.bucket)
	req, err := s.request(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var objects []listedObject
	if err := s.do(req, endpoint, &objects); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		// Folders come back without an id.
		if obj.ID == nil {
			continue
		}
		names = append(names, obj.Name)
	}
	return names, nil
}

func (s *RESTStore) request(ctx context.Context, method string, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build storage request: %w", err)
	}
	bearer := s.anonKey
	if s.token != nil {
		token, err := s.token(ctx)
		if err != nil {
			return nil, err
		}
		bearer = token
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}

func (s *RESTStore) do(req *http.Request, endpoint string, out any) error {
	resp, err := s.http.Do(req)
	if err != nil {
		return &apperr.NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &apperr.NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.NetworkError{Endpoint: endpoint, Err: fmt.Errorf("decode storage response: %w", err)}
	}
	return nil
}

func escapeKey(key string) string {
	parts := strings.Split(strings.Trim(key, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
