// Package progress persists each user's position in the fingerspelling lesson.
package progress

import (
	"context"
	"fmt"

	"github.com/rbright/signcap/internal/apperr"
)

// Store keeps one letter index per user; the last write wins.
type Store interface {
	Save(ctx context.Context, userID string, index int) error
	// Get returns 0 for a user with no saved progress.
	Get(ctx context.Context, userID string) (int, error)
}

// Users resolves the signed-in user.
type Users interface {
	UserID(ctx context.Context) (string, error)
}

// Tracker reads and writes progress for whoever is signed in.
type Tracker struct {
	store Store
	users Users
}

func NewTracker(store Store, users Users) *Tracker {
	return &Tracker{store: store, users: users}
}

// Save returns apperr.ErrAuthenticationRequired when nobody is signed in.
func (t *Tracker) Save(ctx context.Context, index int) error {
	if index < 0 {
		return fmt.Errorf("progress index %d cannot be negative", index)
	}
	userID, err := t.user(ctx)
	if err != nil {
		return err
	}
	return t.store.Save(ctx, userID, index)
}

// Load returns 0 alongside any error.
func (t *Tracker) Load(ctx context.Context) (int, error) {
	userID, err := t.user(ctx)
	if err != nil {
		return 0, err
	}
	index, err := t.store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return index, nil
}

func (t *Tracker) user(ctx context.Context) (string, error) {
	if t.users == nil {
		return "", apperr.ErrAuthenticationRequired
	}
	userID, err := t.users.UserID(ctx)
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", apperr.ErrAuthenticationRequired
	}
	return userID, nil
}
