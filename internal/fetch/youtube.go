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

	youtube "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
)

// Kkdai is the library fallback for YouTube links when the yt-dlp binary is
// missing. It only serves progressive formats (video and audio in one
// stream), so no local merge step is needed.
type Kkdai struct {
	Client *youtube.Client
	Log    zerolog.Logger
}

func NewKkdai(httpClient *http.Client, log zerolog.Logger) *Kkdai {
	return &Kkdai{
		Client: &youtube.Client{HTTPClient: httpClient},
		Log:    log,
	}
}

func (d *Kkdai) Fetch(ctx context.Context, rawURL string, q Quality, destDir string) (*Artifact, error) {
	videoID, err := extractYouTubeID(rawURL)
	if err != nil {
		return nil, err
	}

	video, err := d.Client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("youtube metadata: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, errors.New("youtube: no progressive formats available")
	}

	format := pickFormat(formats, int(q))

	stream, _, err := d.Client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("youtube stream: %w", err)
	}
	defer stream.Close()

	path := filepath.Join(destDir, "output"+extFromMime(format.MimeType))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	n, err := io.Copy(f, stream)
	cerr := f.Close()
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("youtube download: %w", err)
	}
	if cerr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close output file: %w", cerr)
	}

	return &Artifact{Path: path, Size: n, Title: video.Title}, nil
}

// pickFormat returns the best format not above the height ceiling, or the
// smallest one when everything exceeds it.
func pickFormat(formats youtube.FormatList, maxHeight int) *youtube.Format {
	var best *youtube.Format
	var smallest *youtube.Format

	for i := range formats {
		f := &formats[i]
		if smallest == nil || f.Height < smallest.Height {
			smallest = f
		}
		if f.Height > maxHeight {
			continue
		}
		if best == nil || f.Height > best.Height {
			best = f
		}
	}

	if best == nil {
		return smallest
	}
	return best
}

func extFromMime(mime string) string {
	mime = strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])
	switch mime {
	case "video/webm", "audio/webm":
		return ".webm"
	case "video/3gpp":
		return ".3gp"
	default:
		return ".mp4"
	}
}

func extractYouTubeID(rawURL string) (string, error) {
	switch {
	case strings.Contains(rawURL, "youtu.be/"):
		parts := strings.Split(rawURL, "youtu.be/")
		if len(parts) != 2 {
			return "", errors.New("invalid YouTube URL format")
		}
		return strings.Split(parts[1], "?")[0], nil

	case strings.Contains(rawURL, "youtube.com/watch?v="):
		parts := strings.Split(rawURL, "v=")
		if len(parts) != 2 {
			return "", errors.New("invalid YouTube URL format")
		}
		return strings.Split(parts[1], "&")[0], nil

	case strings.Contains(rawURL, "youtube.com/shorts/"):
		parts := strings.Split(rawURL, "shorts/")
		if len(parts) != 2 {
			return "", errors.New("invalid YouTube URL format")
		}
		return strings.Split(parts[1], "?")[0], nil

	default:
		return "", errors.New("unsupported URL format")
	}
}
