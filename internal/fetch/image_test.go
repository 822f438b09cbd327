package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func pngBody(size int) []byte {
	b := make([]byte, size)
	copy(b, pngHeader)
	return b
}

func newImages(maxBytes int64) *Images {
	return &Images{
		Client:   &http.Client{},
		MaxBytes: maxBytes,
		Log:      zerolog.Nop(),
	}
}

func TestImagesFetch(t *testing.T) {
	body := pngBody(2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	art, err := newImages(1 << 20).Fetch(context.Background(), srv.URL+"/photo.png", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, int64(2048), art.Size)
	assert.Equal(t, "image/png", art.MIME)
	assert.FileExists(t, art.Path)
	assert.Equal(t, KindPhoto, art.Kind())
}

func TestImagesFetchTooLargeByHeader(t *testing.T) {
	body := pngBody(4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	_, err := newImages(100).Fetch(context.Background(), srv.URL, t.TempDir())
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestImagesFetchTooLargeByBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flush forces chunked encoding so the length is unknown up front.
		w.Write(pngHeader)
		w.(http.Flusher).Flush()
		w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := newImages(100).Fetch(context.Background(), srv.URL, dir)
	assert.ErrorIs(t, err, ErrTooLarge)

	// The partial file written before the abort must not survive it.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImagesFetchRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("just text "), 10))
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := newImages(1 << 20).Fetch(context.Background(), srv.URL, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImagesFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newImages(1 << 20).Fetch(context.Background(), srv.URL, t.TempDir())
	assert.Error(t, err)
}
