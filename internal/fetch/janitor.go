package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Black1ssl/after2/pkg/util"
)

// RunJanitor runs a background goroutine that sweeps stranded download
// scratch directories every interval until ctx is done. Scratch dirs strand
// when the process dies mid-job. Call from main.
func RunJanitor(ctx context.Context, dir string, interval, maxAge time.Duration, log zerolog.Logger) {
	log = log.With().Str("component", "janitor").Logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := SweepTemp(ctx, dir, maxAge)
			if err != nil {
				log.Error().Err(err).Msg("Temp sweep failed")
			}
			if removed > 0 {
				log.Info().Int("removed", removed).Msg("Swept stranded download artifacts")
			}
		}
	}
}

// SweepTemp removes entries of dir older than maxAge and returns how many it
// deleted. A missing dir is not an error.
func SweepTemp(ctx context.Context, dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var stale []string
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, filepath.Join(dir, e.Name()))
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	err = util.Parallel(ctx, stale, 4, func(_ context.Context, path string) error {
		return os.RemoveAll(path)
	})
	return len(stale), err
}
