package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Black1ssl/after2/internal/fetch"
	"github.com/Black1ssl/after2/internal/metrics"
	"github.com/Black1ssl/after2/internal/quota"
	"github.com/Black1ssl/after2/pkg/util"
)

// MaxFileBytes is the transfer ceiling for files sent through the bot API.
const MaxFileBytes = 50 * 1024 * 1024

// SizeError reports an artifact over the transfer ceiling. Oversize is a
// terminal outcome, not retryable; the user should fetch the source directly.
type SizeError struct {
	Size int64
	Max  int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("download: artifact is %s, ceiling is %s",
		util.HumanBytes(e.Size), util.HumanBytes(e.Max))
}

// DeliverFunc pushes a finished artifact to the requesting user.
type DeliverFunc func(ctx context.Context, art *fetch.Artifact) error

// Service runs one download request end to end: quota check, gate admission,
// fetch, size policy, delivery.
type Service struct {
	tracker    *quota.Tracker
	gate       *Gate
	downloader fetch.Downloader
	tmpRoot    string
	maxBytes   int64
	log        zerolog.Logger
}

func NewService(tracker *quota.Tracker, gate *Gate, dl fetch.Downloader, tmpRoot string, log zerolog.Logger) *Service {
	return &Service{
		tracker:    tracker,
		gate:       gate,
		downloader: dl,
		tmpRoot:    tmpRoot,
		maxBytes:   MaxFileBytes,
		log:        log.With().Str("component", "download").Logger(),
	}
}

// Gate exposes the concurrency gate for busy pre-checks in the transport
// layer.
func (s *Service) Gate() *Gate { return s.gate }

// Run executes one request. The quota unit is charged as soon as the job is
// admitted and refunded on any failed outcome, covering the fetch itself, the
// size policy, and delivery. A request refused by quota or gate performs no
// side effects at all.
func (s *Service) Run(ctx context.Context, userID int64, rawURL string, q fetch.Quality, deliver DeliverFunc) (err error) {
	defer func() { metrics.DownloadsTotal.WithLabelValues(outcomeOf(err)).Inc() }()

	if err := s.tracker.Check(userID, quota.ClassDownload); err != nil {
		metrics.QuotaDeniedTotal.WithLabelValues(string(quota.ClassDownload)).Inc()
		return err
	}

	waitStart := time.Now()
	permit, err := s.gate.Enter(ctx, userID)
	if err != nil {
		return err
	}
	defer permit.Release()
	metrics.DownloadWaitSeconds.Observe(time.Since(waitStart).Seconds())

	metrics.DownloadActive.Inc()
	defer metrics.DownloadActive.Dec()

	// Optimistic charge: holding the permit already commits us to the work.
	s.tracker.Commit(userID, quota.ClassDownload)

	jobLog := s.log.With().Str("job", uuid.NewString()).Int64("user", userID).Logger()
	jobLog.Info().Str("url", rawURL).Int("quality", int(q)).Msg("Download started")

	if err := os.MkdirAll(s.tmpRoot, 0o755); err != nil {
		s.tracker.Refund(userID, quota.ClassDownload)
		return fmt.Errorf("create temp root: %w", err)
	}
	dir, err := os.MkdirTemp(s.tmpRoot, "dl-")
	if err != nil {
		s.tracker.Refund(userID, quota.ClassDownload)
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	start := time.Now()
	art, err := s.downloader.Fetch(ctx, rawURL, q, dir)
	if err != nil {
		s.tracker.Refund(userID, quota.ClassDownload)
		return err
	}

	jobLog.Info().
		Str("file", art.Path).
		Int64("bytes", art.Size).
		Dur("took", time.Since(start)).
		Msg("Downloaded file")

	if art.Size > s.maxBytes {
		s.tracker.Refund(userID, quota.ClassDownload)
		return &SizeError{Size: art.Size, Max: s.maxBytes}
	}

	if err := deliver(ctx, art); err != nil {
		s.tracker.Refund(userID, quota.ClassDownload)
		return fmt.Errorf("deliver: %w", err)
	}

	return nil
}

func outcomeOf(err error) string {
	var sizeErr *SizeError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, quota.ErrExhausted):
		return "quota"
	case errors.Is(err, ErrUserBusy):
		return "busy"
	case errors.As(err, &sizeErr):
		return "oversize"
	default:
		return "error"
	}
}
