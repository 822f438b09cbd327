package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Ytdlp drives the yt-dlp binary. It handles every site yt-dlp supports and
// is the preferred downloader whenever the binary is installed.
type Ytdlp struct {
	Path string // binary name or absolute path
	Log  zerolog.Logger
}

// Available reports whether the binary can be resolved.
func (d *Ytdlp) Available() bool {
	_, err := exec.LookPath(d.Path)
	return err == nil
}

func ffmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Fetch downloads rawURL into destDir at the requested quality ceiling and
// returns the largest produced file. Without ffmpeg the quality selector is
// dropped since separate streams cannot be merged.
func (d *Ytdlp) Fetch(ctx context.Context, rawURL string, q Quality, destDir string) (*Artifact, error) {
	title, err := d.probeTitle(ctx, rawURL)
	if err != nil {
		d.Log.Debug().Err(err).Str("url", rawURL).Msg("Title probe failed")
	}

	outTemplate := filepath.Join(destDir, "output.%(ext)s")

	var args []string
	if ffmpegAvailable() {
		format := fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", q, q)
		args = []string{"-f", format, "--merge-output-format", "mp4"}
	} else {
		d.Log.Warn().Msg("ffmpeg not found, downloading best single stream")
		args = []string{"-f", "best"}
	}
	args = append(args, "--no-playlist", "--quiet", "--no-warnings", "-o", outTemplate, rawURL)

	cmd := exec.CommandContext(ctx, d.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("yt-dlp: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	path, size, err := largestFile(destDir)
	if err != nil {
		return nil, err
	}

	return &Artifact{Path: path, Size: size, Title: title}, nil
}

// probeTitle asks yt-dlp for the media title. Best effort, failures only cost
// a nicer log line.
func (d *Ytdlp) probeTitle(ctx context.Context, rawURL string) (string, error) {
	cmd := exec.CommandContext(ctx, d.Path, "-J", "--no-playlist", rawURL)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp probe: %w", err)
	}

	var info struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(output, &info); err != nil {
		return "", fmt.Errorf("yt-dlp probe unmarshal: %w", err)
	}
	return info.Title, nil
}
