package quota

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = Limits{Downloads: 2, MediaPosts: 10, TextPosts: 5}

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(c *clock, exempt func(int64) bool) *Tracker {
	return NewTracker(testLimits, exempt).WithNow(c.now)
}

func TestCheckCommitUntilExhausted(t *testing.T) {
	c := newClock()
	tr := newTestTracker(c, nil)

	for i := 0; i < testLimits.Downloads; i++ {
		require.NoError(t, tr.Check(7, ClassDownload))
		tr.Commit(7, ClassDownload)
	}

	err := tr.Check(7, ClassDownload)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)

	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, ClassDownload, denied.Class)
	assert.Equal(t, 2, denied.Used)
	assert.Equal(t, 2, denied.Limit)
	assert.Greater(t, denied.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, denied.RetryAfter, Window)
}

func TestWindowResetsAfter24h(t *testing.T) {
	c := newClock()
	tr := newTestTracker(c, nil)

	tr.Commit(7, ClassDownload)
	tr.Commit(7, ClassDownload)
	require.ErrorIs(t, tr.Check(7, ClassDownload), ErrExhausted)

	c.advance(Window + time.Second)

	require.NoError(t, tr.Check(7, ClassDownload))
	used, limit, _ := tr.Usage(7, ClassDownload)
	assert.Equal(t, 0, used)
	assert.Equal(t, 2, limit)
}

func TestCommitReevaluatesExpiry(t *testing.T) {
	c := newClock()
	tr := newTestTracker(c, nil)

	// Anchor a window, then let it lapse between Check and Commit.
	tr.Commit(7, ClassTextPost)
	require.NoError(t, tr.Check(7, ClassTextPost))

	c.advance(Window + time.Minute)
	tr.Commit(7, ClassTextPost)

	// The commit must land in a fresh window, not on the stale anchor.
	used, _, resetIn := tr.Usage(7, ClassTextPost)
	assert.Equal(t, 1, used)
	assert.Equal(t, Window, resetIn)
}

func TestRefundFlooredAtZero(t *testing.T) {
	c := newClock()
	tr := newTestTracker(c, nil)

	tr.Commit(7, ClassMediaPost)
	tr.Refund(7, ClassMediaPost)
	tr.Refund(7, ClassMediaPost)

	used, _, _ := tr.Usage(7, ClassMediaPost)
	assert.Equal(t, 0, used)
}

func TestClassesAreIndependent(t *testing.T) {
	c := newClock()
	tr := newTestTracker(c, nil)

	tr.Commit(7, ClassDownload)
	tr.Commit(7, ClassDownload)
	require.ErrorIs(t, tr.Check(7, ClassDownload), ErrExhausted)

	assert.NoError(t, tr.Check(7, ClassMediaPost))
	assert.NoError(t, tr.Check(7, ClassTextPost))
}

func TestUsersAreIndependent(t *testing.T) {
	c := newClock()
	tr := newTestTracker(c, nil)

	tr.Commit(1, ClassDownload)
	tr.Commit(1, ClassDownload)
	require.ErrorIs(t, tr.Check(1, ClassDownload), ErrExhausted)

	assert.NoError(t, tr.Check(2, ClassDownload))
}

func TestExemptUserBypassesEverything(t *testing.T) {
	c := newClock()
	owner := int64(99)
	tr := newTestTracker(c, func(id int64) bool { return id == owner })

	for i := 0; i < 100; i++ {
		require.NoError(t, tr.Check(owner, ClassDownload))
		tr.Commit(owner, ClassDownload)
	}

	used, limit, resetIn := tr.Usage(owner, ClassDownload)
	assert.Equal(t, 0, used)
	assert.Equal(t, 2, limit)
	assert.Equal(t, time.Duration(0), resetIn)
}

func TestRetryAfterCountsDown(t *testing.T) {
	c := newClock()
	tr := newTestTracker(c, nil)

	tr.Commit(7, ClassDownload)
	tr.Commit(7, ClassDownload)

	c.advance(10 * time.Hour)

	var denied *DeniedError
	err := tr.Check(7, ClassDownload)
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, 14*time.Hour, denied.RetryAfter)
}

func TestZeroLimitAlwaysDenied(t *testing.T) {
	c := newClock()
	tr := NewTracker(Limits{}, nil).WithNow(c.now)

	assert.ErrorIs(t, tr.Check(7, ClassDownload), ErrExhausted)
}
