package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepTempRemovesOnlyStale(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "dl-stale")
	fresh := filepath.Join(dir, "dl-fresh")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "output.mp4"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(fresh, 0o755))

	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed, err := SweepTemp(context.Background(), dir, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
}

func TestSweepTempMissingDir(t *testing.T) {
	removed, err := SweepTemp(context.Background(), filepath.Join(t.TempDir(), "nope"), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
