// Package fetch retrieves external media into local scratch files. It knows
// nothing about quotas or chat transports; callers own admission and delivery.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Quality is the resolution ceiling for a video fetch.
type Quality int

const (
	Quality360 Quality = 360
	Quality720 Quality = 720
)

// ErrNoOutput reports that the downloader ran without producing a file.
var ErrNoOutput = errors.New("fetch: no output file produced")

// Kind buckets an artifact for the delivery API call.
type Kind int

const (
	KindDocument Kind = iota
	KindVideo
	KindAudio
	KindPhoto
)

// Artifact is one downloaded file ready for delivery.
type Artifact struct {
	Path  string
	Size  int64
	MIME  string
	Title string
}

// Kind picks the delivery bucket from the file suffix.
func (a *Artifact) Kind() Kind {
	if strings.HasPrefix(a.MIME, "image/") {
		return KindPhoto
	}
	switch strings.ToLower(filepath.Ext(a.Path)) {
	case ".mp4", ".mkv", ".webm", ".mov":
		return KindVideo
	case ".mp3", ".m4a", ".aac", ".opus":
		return KindAudio
	default:
		return KindDocument
	}
}

// Downloader fetches the media behind rawURL into destDir and returns the
// produced artifact. destDir must exist and be empty.
type Downloader interface {
	Fetch(ctx context.Context, rawURL string, q Quality, destDir string) (*Artifact, error)
}

// largestFile returns the biggest regular file in dir. Merged downloads can
// leave partial streams behind, the final container is always the largest.
func largestFile(dir string) (string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("read output dir: %w", err)
	}

	var best string
	var bestSize int64 = -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, e.Name())
			bestSize = info.Size()
		}
	}

	if best == "" {
		return "", 0, ErrNoOutput
	}
	return best, bestSize, nil
}
