// Package quota tracks per-user rolling 24h usage counters across activity
// classes. Windows reset lazily on access; nothing prunes idle users, state
// lives in memory for the process lifetime.
package quota

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Window is the fixed length of one usage window.
const Window = 24 * time.Hour

// Class identifies one metered activity.
type Class string

const (
	ClassDownload  Class = "download"
	ClassMediaPost Class = "media-post"
	ClassTextPost  Class = "text-post"
)

// Limits carries the per-class ceiling for one window.
type Limits struct {
	Downloads  int
	MediaPosts int
	TextPosts  int
}

// For returns the ceiling for class c, 0 for an unknown class.
func (l Limits) For(c Class) int {
	switch c {
	case ClassDownload:
		return l.Downloads
	case ClassMediaPost:
		return l.MediaPosts
	case ClassTextPost:
		return l.TextPosts
	default:
		return 0
	}
}

// ErrExhausted is matched by every denial via errors.Is.
var ErrExhausted = errors.New("quota exhausted")

// DeniedError reports an exhausted window and the time left until it reopens.
type DeniedError struct {
	Class      Class
	Used       int
	Limit      int
	RetryAfter time.Duration
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("quota: %s limit %d reached, retry in %s", e.Class, e.Limit, e.RetryAfter)
}

func (e *DeniedError) Unwrap() error { return ErrExhausted }

type key struct {
	user  int64
	class Class
}

type window struct {
	start time.Time
	count int
}

// Tracker is the policy engine for "is this action allowed right now". All
// methods are safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	limits  Limits
	exempt  func(userID int64) bool
	now     func() time.Time
	windows map[key]*window
}

// NewTracker builds a tracker. exempt is the single predicate deciding which
// users bypass all limits; nil means nobody is exempt.
func NewTracker(limits Limits, exempt func(userID int64) bool) *Tracker {
	if exempt == nil {
		exempt = func(int64) bool { return false }
	}
	return &Tracker{
		limits:  limits,
		exempt:  exempt,
		now:     time.Now,
		windows: make(map[key]*window),
	}
}

// WithNow replaces the tracker clock. Tests only.
func (t *Tracker) WithNow(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Check reports whether user may perform one more action of class c. An
// expired window is reset as part of the read. Denials are returned as a
// *DeniedError carrying the time until the window reopens.
func (t *Tracker) Check(userID int64, c Class) error {
	if t.exempt(userID) {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.current(userID, c)
	limit := t.limits.For(c)
	if w.count >= limit {
		return &DeniedError{
			Class:      c,
			Used:       w.count,
			Limit:      limit,
			RetryAfter: t.retryAfter(w),
		}
	}
	return nil
}

// Commit records one successful action. Expiry is re-evaluated here, so a
// window that lapsed between Check and Commit starts fresh instead of
// inheriting a stale anchor. No-op for exempt users.
func (t *Tracker) Commit(userID int64, c Class) {
	if t.exempt(userID) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.current(userID, c)
	w.count++
}

// Refund undoes one committed action after a failed side effect. The count
// never goes below zero.
func (t *Tracker) Refund(userID int64, c Class) {
	if t.exempt(userID) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.current(userID, c)
	if w.count > 0 {
		w.count--
	}
}

// Usage reports the used count, the class limit, and the time until the
// current window resets. Exempt users always report zero used.
func (t *Tracker) Usage(userID int64, c Class) (used, limit int, resetIn time.Duration) {
	limit = t.limits.For(c)
	if t.exempt(userID) {
		return 0, limit, 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.current(userID, c)
	return w.count, limit, t.retryAfter(w)
}

// current returns the live window for (user, class), creating it on first
// access and resetting it once expired. Callers must hold mu.
func (t *Tracker) current(userID int64, c Class) *window {
	k := key{user: userID, class: c}
	now := t.now()

	w, ok := t.windows[k]
	if !ok {
		w = &window{start: now}
		t.windows[k] = w
		return w
	}
	if now.Sub(w.start) >= Window {
		w.start = now
		w.count = 0
	}
	return w
}

// retryAfter is the time left until w expires, floored at zero. Callers must
// hold mu.
func (t *Tracker) retryAfter(w *window) time.Duration {
	d := w.start.Add(Window).Sub(t.now())
	if d < 0 {
		return 0
	}
	return d
}
