package instance

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	g, err := Acquire(dir)
	require.NoError(t, err)
	require.FileExists(t, g.Path())

	pid, err := OwnerPID(dir)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	g.Release()
	assert.NoFileExists(t, g.Path())
}

func TestAcquireSecondInstanceRefused(t *testing.T) {
	dir := t.TempDir()

	g, err := Acquire(dir)
	require.NoError(t, err)
	defer g.Release()

	_, err = Acquire(dir)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireAfterRelease(t *testing.T) {
	dir := t.TempDir()

	g, err := Acquire(dir)
	require.NoError(t, err)
	g.Release()
	g.Release() // idempotent

	g2, err := Acquire(dir)
	require.NoError(t, err)
	g2.Release()
}

func TestAcquireStrandedMarkerStillRefuses(t *testing.T) {
	dir := t.TempDir()

	// A marker left behind by a hard-killed process vetoes startup even
	// though its owner is gone.
	require.NoError(t, os.WriteFile(dir+"/bot.lock", []byte("99999\n"), 0o644))

	_, err := Acquire(dir)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	pid, err := OwnerPID(dir)
	require.NoError(t, err)
	assert.Equal(t, 99999, pid)
}

func TestOwnerPIDNoMarker(t *testing.T) {
	pid, err := OwnerPID(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, pid)
}

func TestActive(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Active(dir))

	g, err := Acquire(dir)
	require.NoError(t, err)
	assert.True(t, Active(dir))

	g.Release()
	assert.False(t, Active(dir))
}

func TestAcquireCreatesDataDir(t *testing.T) {
	dir := t.TempDir() + "/nested/data"

	g, err := Acquire(dir)
	require.NoError(t, err)
	defer g.Release()

	assert.DirExists(t, dir)
}
