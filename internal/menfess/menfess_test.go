package menfess

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Black1ssl/after2/internal/quota"
	"github.com/Black1ssl/after2/internal/storage"
)

func publishOK(ctx context.Context) error { return nil }

func newTestService(t *testing.T, notify NotifyFunc) (*Service, *quota.Tracker) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tracker := quota.NewTracker(quota.Limits{Downloads: 2, MediaPosts: 2, TextPosts: 1}, nil)
	return NewService(tracker, store, nil, notify, zerolog.Nop()), tracker
}

func sub(kind Kind) *Submission {
	return &Submission{UserID: 7, Username: "sender", Kind: kind, Gender: storage.GenderFemale, Caption: "hello #female"}
}

func TestParseGenderTag(t *testing.T) {
	g, ok := ParseGenderTag("confession time #MALE")
	require.True(t, ok)
	assert.Equal(t, storage.GenderMale, g)

	g, ok = ParseGenderTag("#female here")
	require.True(t, ok)
	assert.Equal(t, storage.GenderFemale, g)

	_, ok = ParseGenderTag("no tag at all")
	assert.False(t, ok)
}

func TestSubmitCommitsAfterPublish(t *testing.T) {
	svc, tracker := newTestService(t, nil)

	rcpt, err := svc.Submit(context.Background(), sub(KindText), publishOK)
	require.NoError(t, err)

	assert.Equal(t, 1, rcpt.Used)
	assert.Equal(t, 1, rcpt.Limit)
	assert.False(t, rcpt.Exempt)
	assert.Greater(t, rcpt.ResetIn, 23*quota.Window/24)

	used, _, _ := tracker.Usage(7, quota.ClassTextPost)
	assert.Equal(t, 1, used)
}

func TestSubmitPublishFailureNotChargedAndNotifies(t *testing.T) {
	notified := false
	svc, tracker := newTestService(t, func(ctx context.Context, s *Submission, cause error) {
		notified = true
		assert.Equal(t, int64(7), s.UserID)
		assert.Error(t, cause)
	})

	_, err := svc.Submit(context.Background(), sub(KindMedia), func(ctx context.Context) error {
		return errors.New("channel unreachable")
	})
	require.Error(t, err)
	assert.True(t, notified)

	used, _, _ := tracker.Usage(7, quota.ClassMediaPost)
	assert.Equal(t, 0, used)
}

func TestSubmitQuotaExhaustedNoPublish(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Submit(context.Background(), sub(KindText), publishOK)
	require.NoError(t, err)

	published := false
	_, err = svc.Submit(context.Background(), sub(KindText), func(ctx context.Context) error {
		published = true
		return nil
	})
	assert.ErrorIs(t, err, quota.ErrExhausted)
	assert.False(t, published)
}

func TestSubmitKindsMeteredSeparately(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Submit(context.Background(), sub(KindText), publishOK)
	require.NoError(t, err)
	require.ErrorIs(t, errOf(svc.Submit(context.Background(), sub(KindText), publishOK)), quota.ErrExhausted)

	// Text being exhausted leaves media untouched.
	rcpt, err := svc.Submit(context.Background(), sub(KindMedia), publishOK)
	require.NoError(t, err)
	assert.Equal(t, 1, rcpt.Used)
	assert.Equal(t, 2, rcpt.Limit)
}

func TestSubmitMissingGenderRejected(t *testing.T) {
	svc, tracker := newTestService(t, nil)

	tagless := sub(KindText)
	tagless.Gender = ""

	published := false
	_, err := svc.Submit(context.Background(), tagless, func(ctx context.Context) error {
		published = true
		return nil
	})
	require.ErrorIs(t, err, ErrNoGenderTag)
	assert.False(t, published)

	used, _, _ := tracker.Usage(7, quota.ClassTextPost)
	assert.Equal(t, 0, used)

	// Nothing was recorded, so the user's first tagged submission still
	// registers cleanly instead of tripping a mismatch against "".
	rcpt, err := svc.Submit(context.Background(), sub(KindText), publishOK)
	require.NoError(t, err)
	assert.Equal(t, 1, rcpt.Used)
}

func TestSubmitGenderMismatchRejected(t *testing.T) {
	svc, tracker := newTestService(t, nil)

	_, err := svc.Submit(context.Background(), sub(KindText), publishOK)
	require.NoError(t, err)

	male := sub(KindMedia)
	male.Gender = storage.GenderMale

	published := false
	_, err = svc.Submit(context.Background(), male, func(ctx context.Context) error {
		published = true
		return nil
	})

	var mismatch *storage.GenderMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, storage.GenderFemale, mismatch.Recorded)
	assert.False(t, published)

	used, _, _ := tracker.Usage(7, quota.ClassMediaPost)
	assert.Equal(t, 0, used)
}

func errOf(_ *Receipt, err error) error { return err }
