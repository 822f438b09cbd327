package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// ErrTooLarge reports an image body beyond the transfer ceiling.
var ErrTooLarge = errors.New("fetch: image exceeds size limit")

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// IsImageURL reports whether rawURL points at a direct image by suffix.
// Query strings are ignored.
func IsImageURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	trimmed := strings.ToLower(strings.SplitN(rawURL, "?", 2)[0])
	for _, ext := range imageExts {
		if strings.HasSuffix(trimmed, ext) {
			return true
		}
	}
	return false
}

// Images fetches direct image URLs. Unlike video downloads these are small
// and quick, so they bypass the global download gate entirely.
type Images struct {
	Client   *http.Client
	MaxBytes int64
	Log      zerolog.Logger
}

// Fetch streams the image into destDir, refusing bodies over MaxBytes both by
// declared Content-Length and by actual size. The stored file gets its
// extension from content sniffing, not from the URL.
func (f *Images) Fetch(ctx context.Context, rawURL, destDir string) (*Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %s", resp.Status)
	}
	if resp.ContentLength > f.MaxBytes {
		return nil, ErrTooLarge
	}

	path := filepath.Join(destDir, "image")
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create image file: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(resp.Body, f.MaxBytes+1))
	cerr := out.Close()
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if cerr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close image file: %w", cerr)
	}
	if n > f.MaxBytes {
		os.Remove(path)
		return nil, ErrTooLarge
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("detect image type: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		os.Remove(path)
		return nil, fmt.Errorf("fetch image: %s is not an image", mtype.String())
	}

	final := path + mtype.Extension()
	if err := os.Rename(path, final); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("rename image file: %w", err)
	}

	return &Artifact{Path: final, Size: n, MIME: mtype.String()}, nil
}
