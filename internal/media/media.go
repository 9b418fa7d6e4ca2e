// Package media describes captured artifacts handed between capture and recognition.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindVideo Kind = "video"
	KindFrame Kind = "frame"
	KindAudio Kind = "audio"
)

// Resource is one captured artifact, either in memory or on disk.
type Resource struct {
	Kind        Kind
	ContentType string
	// Path is set when the artifact lives in a file.
	Path string
	Data []byte
}

func Video(path string) Resource {
	return Resource{Kind: KindVideo, ContentType: "video/mp4", Path: path}
}

func Frame(data []byte) Resource {
	return Resource{Kind: KindFrame, ContentType: "image/jpeg", Data: data}
}

func Audio(data []byte) Resource {
	return Resource{Kind: KindAudio, ContentType: "audio/wav", Data: data}
}

// Bytes returns the artifact contents, reading Path when Data is empty.
func (r Resource) Bytes() ([]byte, error) {
	if len(r.Data) > 0 || r.Path == "" {
		return r.Data, nil
	}
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.Kind, err)
	}
	return data, nil
}

// Filename is the upload name used for multipart bodies.
func (r Resource) Filename() string {
	if r.Path != "" {
		return filepath.Base(r.Path)
	}
	switch r.Kind {
	case KindVideo:
		return "video.mp4"
	case KindFrame:
		return "frame.jpg"
	case KindAudio:
		return "audio.wav"
	default:
		return "upload.bin"
	}
}

// Empty reports whether the artifact has no content to send.
func (r Resource) Empty() bool {
	return len(r.Data) == 0 && strings.TrimSpace(r.Path) == ""
}

// Discard removes the backing file, if any.
func (r Resource) Discard() error {
	if r.Path == "" {
		return nil
	}
	if err := os.Remove(r.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", r.Path, err)
	}
	return nil
}
