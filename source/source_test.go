package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/internal/httpclient"
)

func writeDoc(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.jsonld")
	writeDoc(t, path, `{"@id":"foo"}`)

	doc, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, `{"@id":"foo"}`, doc)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.jsonld"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestLoad_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty.jsonld" {
			return
		}
		w.Write([]byte(`{"@id":"foo"}`))
	}))
	defer srv.Close()

	client := WithHTTPClient(httpclient.New(time.Second, httpclient.AllowPrivateNetworks()))
	ctx := context.Background()

	doc, err := Load(ctx, srv.URL+"/doc.jsonld", client)
	require.NoError(t, err)
	assert.Equal(t, `{"@id":"foo"}`, doc)

	_, err = Load(ctx, srv.URL+"/empty.jsonld", client)
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)

	// The default client refuses loopback addresses.
	_, err = Load(ctx, srv.URL+"/doc.jsonld")
	assert.ErrorIs(t, err, httpclient.ErrBlocked)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.org/doc.jsonld"))
	assert.True(t, IsRemote("HTTP://example.org"))
	assert.False(t, IsRemote("doc.jsonld"))
	assert.False(t, IsRemote(Stdin))
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""), "empty")
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestWatcher_DeliversChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.jsonld")
	writeDoc(t, path, "v1")

	changes := make(chan string, 4)
	w, err := NewWatcher(path, "v1", func(doc string) { changes <- doc }, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	writeDoc(t, path, "v2")
	select {
	case doc := <-changes:
		assert.Equal(t, "v2", doc)
	case <-time.After(5 * time.Second):
		t.Fatal("change not delivered")
	}

	// Rewriting identical content is not a change.
	writeDoc(t, path, "v2")
	writeDoc(t, filepath.Join(filepath.Dir(path), "other.jsonld"), "noise")
	select {
	case doc := <-changes:
		t.Fatalf("unexpected delivery %q", doc)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.jsonld")
	writeDoc(t, path, "v0")

	changes := make(chan string, 16)
	w, err := NewWatcher(path, "v0", func(doc string) { changes <- doc }, WithDebounce(150*time.Millisecond))
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	for _, v := range []string{"v1", "v2", "v3"} {
		writeDoc(t, path, v)
	}

	select {
	case doc := <-changes:
		assert.Equal(t, "v3", doc)
	case <-time.After(5 * time.Second):
		t.Fatal("change not delivered")
	}
	assert.Empty(t, changes)
}

func TestNewWatcher_MissingFile(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), "", func(string) {})
	assert.Error(t, err)
}

func TestNewWatcher_RejectsRemote(t *testing.T) {
	_, err := NewWatcher("https://example.org/doc.jsonld", "", func(string) {})
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)
}
