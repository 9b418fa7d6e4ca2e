package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/signcap/internal/apperr"
)

// Store persists the session as JSON with owner-only permissions.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns ErrAuthenticationRequired when nobody is signed in.
func (s *Store) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, apperr.ErrAuthenticationRequired
		}
		return Session{}, fmt.Errorf("read session %q: %w", s.path, err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("decode session %q: %w", s.path, err)
	}
	if session.UserID == "" {
		return Session{}, apperr.ErrAuthenticationRequired
	}
	return session, nil
}

func (s *Store) Save(session Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Manager ties the API client to the on-disk session.
type Manager struct {
	client *Client
	store  *Store
	now    func() time.Time
}

// NewManager accepts a nil client; only the network operations then fail.
func NewManager(client *Client, store *Store) *Manager {
	return &Manager{client: client, store: store, now: time.Now}
}

func (m *Manager) Login(ctx context.Context, email string, password string) (Session, error) {
	if m.client == nil {
		return Session{}, apperr.Configf("backend is not configured")
	}
	session, err := m.client.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return session, m.store.Save(session)
}

func (m *Manager) Signup(ctx context.Context, email string, password string) (Session, error) {
	if m.client == nil {
		return Session{}, apperr.Configf("backend is not configured")
	}
	session, err := m.client.SignUp(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return session, m.store.Save(session)
}

// Logout removes the local session even if server-side revocation fails.
func (m *Manager) Logout(ctx context.Context) error {
	session, err := m.store.Load()
	if errors.Is(err, apperr.ErrAuthenticationRequired) {
		return nil
	}
	var revokeErr error
	if err == nil && m.client != nil {
		revokeErr = m.client.SignOut(ctx, session)
	}
	if err := m.store.Clear(); err != nil {
		return err
	}
	return revokeErr
}

// Current returns the signed-in session, refreshing it when expired.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	session, err := m.store.Load()
	if err != nil {
		return Session{}, err
	}
	if !session.Expired(m.now()) {
		return session, nil
	}
	if m.client == nil {
		return Session{}, fmt.Errorf("%w: session expired", apperr.ErrAuthenticationRequired)
	}
	refreshed, err := m.client.Refresh(ctx, session)
	if err != nil {
		return Session{}, fmt.Errorf("%w: session expired: %v", apperr.ErrAuthenticationRequired, err)
	}
	return refreshed, m.store.Save(refreshed)
}

// UserID is Current reduced to the user identifier.
func (m *Manager) UserID(ctx context.Context) (string, error) {
	session, err := m.Current(ctx)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}
