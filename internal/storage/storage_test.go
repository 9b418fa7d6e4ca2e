package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/signcap/internal/apperr"
	"github.com/rbright/signcap/internal/media"
)

func TestLocalStoreUploadListMove(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "user-1/hello.mp4", []byte("v1"), "video/mp4"))
	require.NoError(t, store.Upload(ctx, "user-1/hello.mp4", []byte("v2"), "video/mp4"))
	require.NoError(t, store.Upload(ctx, "user-1/yes.mp4", []byte("y"), "video/mp4"))

	names, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"hello.mp4", "yes.mp4"}, names)

	data, err := os.ReadFile(filepath.Join(root, "user-1", "hello.mp4"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))

	require.NoError(t, store.Move(ctx, "user-1/yes.mp4", "other/yes.mp4"))
	names, err = store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"hello.mp4"}, names)

	names, err = store.List(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestLocalStoreKeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)

	require.NoError(t, store.Upload(context.Background(), "../../escape.mp4", []byte("x"), "video/mp4"))
	_, err := os.Stat(filepath.Join(root, "escape.mp4"))
	require.NoError(t, err)

	require.Error(t, store.Upload(context.Background(), "..", []byte("x"), "video/mp4"))
}

func TestArchiverArchiveUsesLowercaseLabelKey(t *testing.T) {
	root := t.TempDir()
	archiver := NewArchiver(NewLocalStore(root))

	err := archiver.Archive(context.Background(), "user-1", "HELLO", media.Resource{Kind: media.KindVideo, Data: []byte("clip")})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "user-1", "hello.mp4"))
	require.NoError(t, err)
	require.Equal(t, "clip", string(data))
	key, err := Key("user-1", " Thank You ")
	require.NoError(t, err)
	require.Equal(t, "user-1/thank you.mp4", key)
}

func TestArchiverRefusesLabelsLeavingTheUserFolder(t *testing.T) {
	root := t.TempDir()
	archiver := NewArchiver(NewLocalStore(root))
	clip := media.Resource{Kind: media.KindVideo, Data: []byte("clip")}

	for _, label := range []string{"../bob/hello", "bob/hello", `bob\hello`, "..", "a..b"} {
		_, err := Key("alice", label)
		require.Error(t, err, label)
		require.Error(t, archiver.Archive(context.Background(), "alice", label, clip), label)
	}

	_, err := os.Stat(filepath.Join(root, "bob"))
	require.True(t, os.IsNotExist(err))

	_, err = archiver.ReportMisclassification(context.Background(), "alice", "hello", "../../bob/x", time.Now())
	require.Error(t, err)
}

func TestArchiverRequiresUserAndLabel(t *testing.T) {
	archiver := NewArchiver(NewLocalStore(t.TempDir()))
	clip := media.Resource{Data: []byte("clip")}

	require.ErrorIs(t, archiver.Archive(context.Background(), "", "HELLO", clip), apperr.ErrAuthenticationRequired)
	require.Error(t, archiver.Archive(context.Background(), "user-1", " ", clip))
}

func TestReportMisclassificationMovesMatchingSamples(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "user-1/hello.mp4", []byte("h"), "video/mp4"))
	require.NoError(t, store.Upload(ctx, "user-1/hello-world.mp4", []byte("hw"), "video/mp4"))
	require.NoError(t, store.Upload(ctx, "user-1/yes.mp4", []byte("y"), "video/mp4"))

	archiver := NewArchiver(store)
	now := time.Date(2026, 10, 19, 14, 5, 9, 0, time.Local)
	moved, err := archiver.ReportMisclassification(ctx, "user-1", "HELLO", "Goodbye", now)
	require.NoError(t, err)
	require.Equal(t, 1, moved)

	data, err := os.ReadFile(filepath.Join(root, MisclassifiedPrefix, "goodbye-14:05:09.mp4"))
	require.NoError(t, err)
	require.Equal(t, "h", string(data))

	names, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"hello-world.mp4", "yes.mp4"}, names)
}

func TestReportMisclassificationNoMatch(t *testing.T) {
	archiver := NewArchiver(NewLocalStore(t.TempDir()))
	moved, err := archiver.ReportMisclassification(context.Background(), "user-1", "hello", "bye", time.Now())
	require.NoError(t, err)
	require.Zero(t, moved)

	_, err = archiver.ReportMisclassification(context.Background(), "", "hello", "bye", time.Now())
	require.ErrorIs(t, err, apperr.ErrAuthenticationRequired)
	_, err = archiver.ReportMisclassification(context.Background(), "user-1", "", "bye", time.Now())
	require.Error(t, err)
}

type staticUsers string

func (s staticUsers) UserID(context.Context) (string, error) {
	if s == "" {
		return "", apperr.ErrAuthenticationRequired
	}
	return string(s), nil
}

func TestUserArchiverResolvesSignedInUser(t *testing.T) {
	root := t.TempDir()
	archiver := NewArchiver(NewLocalStore(root))

	signedIn := UserArchiver{Archiver: archiver, Users: staticUsers("user-7")}
	require.NoError(t, signedIn.Archive(context.Background(), "YES", media.Resource{Data: []byte("y")}))
	_, err := os.Stat(filepath.Join(root, "user-7", "yes.mp4"))
	require.NoError(t, err)

	signedOut := UserArchiver{Archiver: archiver, Users: staticUsers("")}
	require.ErrorIs(t, signedOut.Archive(context.Background(), "YES", media.Resource{Data: []byte("y")}), apperr.ErrAuthenticationRequired)
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func newFakeBucketServer(t *testing.T) (*httptest.Server, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: map[string]string{}, types: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/storage/v1/object/move", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "video-files", req["bucketId"])
		bucket.mu.Lock()
		defer bucket.mu.Unlock()
		data, ok := bucket.objects[req["sourceKey"]]
		if !ok {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		delete(bucket.objects, req["sourceKey"])
		bucket.objects[req["destinationKey"]] = data
		_, _ = io.WriteString(w, `{"message":"Successfully moved"}`)
	})
	mux.HandleFunc("/storage/v1/object/list/video-files", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prefix string `json:"prefix"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		bucket.mu.Lock()
		defer bucket.mu.Unlock()
		out := []map[string]any{{"name": "nested", "id": nil}}
		for key := range bucket.objects {
			dir, name := filepath.Split(key)
			if filepath.Clean(dir) == req.Prefix {
				out = append(out, map[string]any{"name": name, "id": "obj-" + name})
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("/storage/v1/object/video-files/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.Header.Get("x-upsert"))
		require.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		require.Equal(t, "anon", r.Header.Get("apikey"))
		data, _ := io.ReadAll(r.Body)
		key := r.URL.Path[len("/storage/v1/object/video-files/"):]
		bucket.mu.Lock()
		bucket.objects[key] = string(data)
		bucket.types[key] = r.Header.Get("Content-Type")
		bucket.mu.Unlock()
		_, _ = io.WriteString(w, `{"Key":"video-files/`+key+`"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, bucket
}

func TestRESTStoreArchiveAndReport(t *testing.T) {
	server, bucket := newFakeBucketServer(t)
	token := func(context.Context) (string, error) { return "user-token", nil }
	store, err := NewRESTStore(server.URL, "anon", "video-files", token, nil)
	require.NoError(t, err)

	archiver := NewArchiver(store)
	ctx := context.Background()
	require.NoError(t, archiver.Archive(ctx, "user-1", "Hello", media.Resource{ContentType: "video/mp4", Data: []byte("clip")}))

	bucket.mu.Lock()
	require.Equal(t, "clip", bucket.objects["user-1/hello.mp4"])
	require.Equal(t, "video/mp4", bucket.types["user-1/hello.mp4"])
	bucket.mu.Unlock()

	names, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"hello.mp4"}, names)

	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.Local)
	moved, err := archiver.ReportMisclassification(ctx, "user-1", "hello", "thanks", now)
	require.NoError(t, err)
	require.Equal(t, 1, moved)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	require.Equal(t, "clip", bucket.objects["incorrect-translations/thanks-09:30:00.mp4"])
	_, ok := bucket.objects["user-1/hello.mp4"]
	require.False(t, ok)
}

func TestRESTStoreNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bucket not found", http.StatusBadRequest)
	}))
	defer server.Close()

	store, err := NewRESTStore(server.URL, "anon", "video-files", nil, nil)
	require.NoError(t, err)
	err = store.Upload(context.Background(), "u/a.mp4", []byte("x"), "video/mp4")
	require.ErrorIs(t, err, apperr.ErrNetworkFailure)
	require.Contains(t, err.Error(), "bucket not found")
}

func TestNewRESTStoreValidates(t *testing.T) {
	_, err := NewRESTStore("", "anon", "b", nil, nil)
	require.ErrorIs(t, err, apperr.ErrConfiguration)
	_, err = NewRESTStore("http://x", "anon", "", nil, nil)
	require.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestEscapeKey(t *testing.T) {
	require.Equal(t, "user-1/thank%20you.mp4", escapeKey("/user-1/thank you.mp4"))
}
