package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/media"
)

// MisclassifiedPrefix holds clips the user flagged as wrongly recognized.
const MisclassifiedPrefix = "incorrect-translations"

// Archiver files clips by user and label.
type Archiver struct {
	store ObjectStore
}

func NewArchiver(store ObjectStore) *Archiver {
	return &Archiver{store: store}
}

// Key returns the object key for a user's clip of label. Labels come from
// the recognition server, so anything that could leave the user's folder
// is refused.
func Key(userID string, label string) (string, error) {
	name, err := objectName(label)
	if err != nil {
		return "", err
	}
	return path.Join(userID, name+".mp4"), nil
}

// objectName lower-cases a label for use as one path segment.
func objectName(label string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(label))
	switch {
	case name == "":
		return "", fmt.Errorf("archive label cannot be empty")
	case strings.ContainsAny(name, `/\`) || strings.Contains(name, ".."):
		return "", fmt.Errorf("archive label %q is not a valid object name", label)
	}
	return name, nil
}

// Archive uploads clip to <userID>/<label>.mp4, replacing an earlier sample.
func (a *Archiver) Archive(ctx context.Context, userID string, label string, clip media.Resource) error {
	if userID == "" {
		return apperr.ErrAuthenticationRequired
	}
	key, err := Key(userID, label)
	if err != nil {
		return err
	}
	data, err := clip.Bytes()
	if err != nil {
		return err
	}
	contentType := clip.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}
	return a.store.Upload(ctx, key, data, contentType)
}

// ReportMisclassification moves the user's samples recorded as translated
// into the misclassified folder, named after what was actually signed.
// It returns how many samples were moved.
func (a *Archiver) ReportMisclassification(ctx context.Context, userID string, translated string, signed string, now time.Time) (int, error) {
	if userID == "" {
		return 0, apperr.ErrAuthenticationRequired
	}
	if strings.TrimSpace(translated) == "" || strings.TrimSpace(signed) == "" {
		return 0, fmt.Errorf("both the signed and the translated word are required")
	}
	translated, err := objectName(translated)
	if err != nil {
		return 0, err
	}
	signed, err = objectName(signed)
	if err != nil {
		return 0, err
	}

	names, err := a.store.List(ctx, userID)
	if err != nil {
		return 0, err
	}

	stamp := now.Format("15:04:05")
	moved := 0
	for _, name := range names {
		if strings.TrimSuffix(name, path.Ext(name)) != translated {
			continue
		}
		dest := fmt.Sprintf("%s-%s.mp4", signed, stamp)
		if moved > 0 {
			dest = fmt.Sprintf("%s-%s-%d.mp4", signed, stamp, moved)
		}
		if err := a.store.Move(ctx, path.Join(userID, name), path.Join(MisclassifiedPrefix, dest)); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// Users resolves the signed-in user.
type Users interface {
	UserID(ctx context.Context) (string, error)
}

// UserArchiver archives on behalf of whoever is signed in.
type UserArchiver struct {
	Archiver *Archiver
	Users    Users
}

func (u UserArchiver) Archive(ctx context.Context, label string, clip media.Resource) error {
	userID, err := u.Users.UserID(ctx)
	if err != nil {
		return err
	}
	return u.Archiver.Archive(ctx, userID, label, clip)
}
