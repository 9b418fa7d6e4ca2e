// Package auth signs users in against the hosted auth REST API and keeps the
// resulting session on disk.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/version"
)

// ErrConfirmationPending means sign-up succeeded but the account must be
// confirmed before a session is issued.
var ErrConfirmationPending = errors.New("account created; confirm the email address before signing in")

// Session is a signed-in user.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
}

// Expired reports whether the access token is at or past expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	now     func() time.Time
}

func NewClient(baseURL string, anonKey string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, apperr.Configf("backend.url is required for sign-in")
	}
	if strings.TrimSpace(anonKey) == "" {
		return nil, apperr.Configf("backend.anon_key is required for sign-in")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, anonKey: anonKey, http: httpClient, now: time.Now}, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	// Sign-up without auto-confirm returns the bare user.
	ID string `json:"id"`
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email string, password string) (Session, error) {
	if err := checkCredentials(email, password); err != nil {
		return Session{}, err
	}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", "", credentials{Email: email, Password: password}, &resp); err != nil {
		return Session{}, err
	}
	return c.session(resp)
}

// SignUp registers a new account. When the backend requires confirmation it
// returns ErrConfirmationPending.
func (c *Client) SignUp(ctx context.Context, email string, password string) (Session, error) {
	if err := checkCredentials(email, password); err != nil {
		return Session{}, err
	}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/signup", "", credentials{Email: email, Password: password}, &resp); err != nil {
		return Session{}, err
	}
	if resp.AccessToken == "" {
		return Session{}, ErrConfirmationPending
	}
	return c.session(resp)
}

// Refresh trades the refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, current Session) (Session, error) {
	if current.RefreshToken == "" {
		return Session{}, fmt.Errorf("%w: session cannot be refreshed", apperr.ErrAuthenticationRequired)
	}
	var resp tokenResponse
	body := map[string]string{"refresh_token": current.RefreshToken}
	if err := c.post(ctx, "/auth/v1/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return Session{}, err
	}
	return c.session(resp)
}

// SignOut revokes the session server-side.
func (c *Client) SignOut(ctx context.Context, current Session) error {
	return c.post(ctx, "/auth/v1/logout", current.AccessToken, nil, nil)
}

func (c *Client) session(resp tokenResponse) (Session, error) {
	if resp.AccessToken == "" || resp.User == nil || resp.User.ID == "" {
		return Session{}, fmt.Errorf("%w: auth response carried no session", apperr.ErrNetworkFailure)
	}
	s := Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.User.ID,
		Email:        resp.User.Email,
	}
	if resp.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return s, nil
}

func (c *Client) post(ctx context.Context, path string, bearer string, payload any, out any) error {
	endpoint := c.baseURL + path

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode auth request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &apperr.NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		netErr := &apperr.NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", apperr.ErrAuthenticationRequired, netErr)
		}
		return netErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.NetworkError{Endpoint: endpoint, Err: fmt.Errorf("decode auth response: %w", err)}
	}
	return nil
}

func checkCredentials(email string, password string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address %q", email)
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}
	return nil
}
