package progress

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

// TokenSource supplies the bearer token for row-level security.
type TokenSource func(ctx context.Context) (string, error)

// RemoteStore writes to the hosted user_progress table over its REST interface.
type RemoteStore struct {
	baseURL string
	anonKey string
	token   TokenSource
	http    *http.Client
}

func NewRemoteStore(baseURL string, anonKey string, token TokenSource, httpClient *http.Client) (*RemoteStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" || strings.TrimSpace(anonKey) == "" {
		return nil, apperr.Configf("backend.url and backend.anon_key are required for remote progress")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &RemoteStore{baseURL: baseURL, anonKey: anonKey, token: token, http: httpClient}, nil
}

type progressRow struct {
	UserID             string `json:"user_id"`
	CurrentLetterIndex int    `json:"current_letter_index"`
}

// Save upserts on user_id.
func (s *RemoteStore) Save(ctx context.Context, userID string, index int) error {
	payload, err := json.Marshal(progressRow{UserID: userID, CurrentLetterIndex: index})
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	endpoint := s.baseURL + "/rest/v1/user_progress?on_conflict=user_id"
	req, err := s.request(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.do(req, endpoint)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (s *RemoteStore) Get(ctx context.Context, userID string) (int, error) {
	query := url.Values{}
	query.Set("select", "current_letter_index")
	query.Set("user_id", "eq."+userID)
	endpoint := s.baseURL + "/rest/v1/user_progress?" + query.Encode()

	req, err := s.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.do(req, endpoint)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var rows []progressRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return 0, &apperr.NetworkError{Endpoint: endpoint, Err: fmt.Errorf("decode progress: %w", err)}
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].CurrentLetterIndex, nil
}

func (s *RemoteStore) request(ctx context.Context, method string, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build progress request: %w", err)
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("User-Agent", version.UserAgent())

	bearer := s.anonKey
	if s.token != nil {
		token, err := s.token(ctx)
		if err != nil {
			return nil, err
		}
		bearer = token
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req, nil
}

func (s *RemoteStore) do(req *http.Request, endpoint string) (*http.Response, error) {
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &apperr.NetworkError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &apperr.NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return resp, nil
}
