package fetch

import (
	"os"
	"path/filepath"
	"testing"

	youtube "github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactKind(t *testing.T) {
	cases := []struct {
		path string
		mime string
		want Kind
	}{
		{"out/output.mp4", "", KindVideo},
		{"out/output.MKV", "", KindVideo},
		{"out/output.webm", "", KindVideo},
		{"out/track.mp3", "", KindAudio},
		{"out/track.opus", "", KindAudio},
		{"out/archive.zip", "", KindDocument},
		{"out/image.png", "image/png", KindPhoto},
	}
	for _, c := range cases {
		a := &Artifact{Path: c.path, MIME: c.mime}
		assert.Equal(t, c.want, a.Kind(), "path %s", c.path)
	}
}

func TestIsImageURL(t *testing.T) {
	assert.True(t, IsImageURL("https://example.com/pic.jpg"))
	assert.True(t, IsImageURL("https://example.com/pic.PNG?size=big"))
	assert.True(t, IsImageURL("https://example.com/anim.webp"))
	assert.False(t, IsImageURL("https://example.com/watch?v=abc"))
	assert.False(t, IsImageURL(""))
}

func TestExtractYouTubeID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL1", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/AbCdEf12345?feature=share", "AbCdEf12345"},
	}
	for _, c := range cases {
		id, err := extractYouTubeID(c.url)
		require.NoError(t, err, c.url)
		assert.Equal(t, c.want, id)
	}

	_, err := extractYouTubeID("https://vimeo.com/12345")
	assert.Error(t, err)
}

func TestPickFormat(t *testing.T) {
	formats := youtube.FormatList{
		{Height: 144},
		{Height: 360},
		{Height: 720},
		{Height: 1080},
	}

	assert.Equal(t, 360, pickFormat(formats, 360).Height)
	assert.Equal(t, 720, pickFormat(formats, 720).Height)
	assert.Equal(t, 1080, pickFormat(formats, 4000).Height)

	// Everything above the ceiling falls back to the smallest stream.
	assert.Equal(t, 144, pickFormat(formats, 100).Height)
}

func TestExtFromMime(t *testing.T) {
	assert.Equal(t, ".mp4", extFromMime(`video/mp4; codecs="avc1.42001E, mp4a.40.2"`))
	assert.Equal(t, ".webm", extFromMime("video/webm"))
	assert.Equal(t, ".mp4", extFromMime("application/octet-stream"))
}

func TestLargestFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "small.part"), make([]byte, 10), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.mp4"), make([]byte, 1000), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	path, size, err := largestFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "output.mp4"), path)
	assert.Equal(t, int64(1000), size)
}

func TestLargestFileEmptyDir(t *testing.T) {
	_, _, err := largestFile(t.TempDir())
	assert.ErrorIs(t, err, ErrNoOutput)
}
