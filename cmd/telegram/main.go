// cmd/telegram/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Black1ssl/after2/internal/config"
	"github.com/Black1ssl/after2/internal/download"
	"github.com/Black1ssl/after2/internal/fetch"
	"github.com/Black1ssl/after2/internal/instance"
	"github.com/Black1ssl/after2/internal/logging"
	"github.com/Black1ssl/after2/internal/quota"
	"github.com/Black1ssl/after2/internal/storage"
	"github.com/Black1ssl/after2/internal/telegram"
	v "github.com/Black1ssl/after2/internal/version"
	"github.com/Black1ssl/after2/internal/web"
	"github.com/Black1ssl/after2/pkg/retrylimit"
)

const (
	janitorInterval = 30 * time.Minute
	janitorMaxAge   = 2 * time.Hour
	imageTimeout    = 10 * time.Minute
	shutdownGrace   = 5 * time.Second
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("[ERR] config: %v", err)
	}

	logger := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	logger.Info().Str("app", v.AppName).Str("go", v.GoVersion).Msg("Starting bot")

	// Two pollers on one token fight over getUpdates, so a second start is a
	// deliberate no-op.
	guard, err := instance.Acquire(cfg.DataDir)
	if err != nil {
		if errors.Is(err, instance.ErrAlreadyRunning) {
			pid, _ := instance.OwnerPID(cfg.DataDir)
			logger.Warn().Int("pid", pid).Msg("Another instance is already running, exiting")
			return
		}
		logger.Fatal().Err(err).Msg("Instance lock failed")
	}
	defer guard.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		// Fatal exits without running defers; drop the lock by hand.
		guard.Release()
		logger.Fatal().Err(err).Msg("Storage init failed")
	}
	defer store.Close()

	isOwner := func(userID int64) bool { return userID == cfg.OwnerID }
	tracker := quota.NewTracker(quota.Limits{
		Downloads:  cfg.LimitDownloads,
		MediaPosts: cfg.LimitMediaPosts,
		TextPosts:  cfg.LimitTextPosts,
	}, isOwner)
	gate := download.NewGate()

	images := &fetch.Images{
		Client:   fetch.NewHTTPClient(cfg.DownloadProxy, imageTimeout, logger),
		MaxBytes: download.MaxFileBytes,
		Log:      logger.With().Str("component", "images").Logger(),
	}

	bot, err := telegram.New(telegram.Deps{
		Config:     cfg,
		Store:      store,
		Tracker:    tracker,
		Gate:       gate,
		Downloader: pickDownloader(cfg, logger),
		Images:     images,
		Log:        logger,
	})
	if err != nil {
		guard.Release()
		logger.Fatal().Err(err).Msg("Bot init failed")
	}

	started := time.Now()
	ops := web.NewServer(cfg.HTTPAddr, func() web.Status {
		return web.Status{
			Version:         v.GitHash,
			UptimeSeconds:   int64(time.Since(started).Seconds()),
			ActiveDownloads: gate.Active(),
		}
	}, logger)
	go func() {
		if err := ops.Start(); err != nil {
			logger.Error().Err(err).Msg("Ops server failed")
		}
	}()

	go fetch.RunJanitor(ctx, cfg.TempDir(), janitorInterval, janitorMaxAge, logger)

	// Long polling dies with the network; restart it with backoff instead of
	// taking the process down on every blip.
	errCh := make(chan error, 1)
	go func() {
		retryCfg := retrylimit.DefaultConfig()
		retryCfg.MaxDelay = time.Minute
		retryCfg.OnRetry = func(attempt int, err error) {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("Poll loop failed, restarting")
		}
		err := retrylimit.WithRetry(ctx, func() error { return bot.Run(ctx) }, retryCfg)
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("Shutting down")
		cancel()
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("Bot error")
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Ops server shutdown failed")
	}

	logger.Info().Msg("Bot exited cleanly")
}

// pickDownloader prefers the external yt-dlp binary, which handles far more
// sites. Without it the embedded client still covers YouTube.
func pickDownloader(cfg *config.Config, logger zerolog.Logger) fetch.Downloader {
	fetchLog := logger.With().Str("component", "fetch").Logger()

	ytdlp := &fetch.Ytdlp{Path: cfg.YtdlpPath, Log: fetchLog}
	if ytdlp.Available() {
		logger.Info().Str("path", cfg.YtdlpPath).Msg("Using yt-dlp downloader")
		return ytdlp
	}

	logger.Warn().Msg("yt-dlp not found, falling back to the built-in YouTube client")
	client := fetch.NewHTTPClient(cfg.DownloadProxy, 0, logger)
	return fetch.NewKkdai(client, fetchLog)
}
