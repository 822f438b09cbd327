// Package menfess publishes anonymous submissions to the public channel and
// charges the per-user post quota around the publish call.
package menfess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Black1ssl/after2/internal/metrics"
	"github.com/Black1ssl/after2/internal/quota"
	"github.com/Black1ssl/after2/internal/storage"
)

// Kind classifies a submission by its payload.
type Kind string

const (
	KindMedia Kind = "media"
	KindText  Kind = "text"
)

func (k Kind) class() quota.Class {
	if k == KindMedia {
		return quota.ClassMediaPost
	}
	return quota.ClassTextPost
}

// ErrNoGenderTag reports a submission without the mandatory gender hashtag.
var ErrNoGenderTag = errors.New("menfess: submission carries no gender tag")

var genderTags = []struct {
	tag    string
	gender storage.Gender
}{
	{"#male", storage.GenderMale},
	{"#female", storage.GenderFemale},
}

// ParseGenderTag finds the mandatory gender hashtag anywhere in text. The
// first matching tag wins.
func ParseGenderTag(text string) (storage.Gender, bool) {
	lower := strings.ToLower(text)
	for _, t := range genderTags {
		if strings.Contains(lower, t.tag) {
			return t.gender, true
		}
	}
	return "", false
}

// Submission is one inbound anonymous post.
type Submission struct {
	UserID   int64
	Username string
	Kind     Kind
	Gender   storage.Gender
	Caption  string // message text or media caption, already tagged
}

// PublishFunc performs the actual channel send for a submission.
type PublishFunc func(ctx context.Context) error

// NotifyFunc alerts the operator after a failed publish. Implementations must
// swallow their own errors; the side channel never surfaces to the submitter.
type NotifyFunc func(ctx context.Context, sub *Submission, cause error)

// Receipt reports post-commit usage for the confirmation message.
type Receipt struct {
	Used    int
	Limit   int
	ResetIn time.Duration
	Exempt  bool
}

// Service orchestrates submissions: quota check, gender registration,
// publish, then commit.
type Service struct {
	tracker *quota.Tracker
	store   *storage.Storage
	exempt  func(userID int64) bool
	notify  NotifyFunc
	log     zerolog.Logger
}

func NewService(tracker *quota.Tracker, store *storage.Storage, exempt func(int64) bool, notify NotifyFunc, log zerolog.Logger) *Service {
	if exempt == nil {
		exempt = func(int64) bool { return false }
	}
	return &Service{
		tracker: tracker,
		store:   store,
		exempt:  exempt,
		notify:  notify,
		log:     log.With().Str("component", "menfess").Logger(),
	}
}

// Submit runs one submission end to end. The quota unit is charged only after
// the channel confirms the publish, so a failed send never costs allowance.
// On publish failure the operator is alerted best-effort before the error is
// returned. A submission without a gender is rejected up front; letting one
// through would register an empty gender immutably and lock the account out
// of every later tagged post.
func (s *Service) Submit(ctx context.Context, sub *Submission, publish PublishFunc) (*Receipt, error) {
	if sub.Gender == "" {
		metrics.PostsTotal.WithLabelValues(string(sub.Kind), "gender").Inc()
		return nil, ErrNoGenderTag
	}

	class := sub.Kind.class()

	if err := s.tracker.Check(sub.UserID, class); err != nil {
		metrics.QuotaDeniedTotal.WithLabelValues(string(class)).Inc()
		metrics.PostsTotal.WithLabelValues(string(sub.Kind), "quota").Inc()
		return nil, err
	}

	if err := s.store.RegisterGender(sub.UserID, sub.Username, sub.Gender); err != nil {
		metrics.PostsTotal.WithLabelValues(string(sub.Kind), "gender").Inc()
		return nil, err
	}

	if err := publish(ctx); err != nil {
		metrics.PostsTotal.WithLabelValues(string(sub.Kind), "error").Inc()
		s.log.Error().Err(err).
			Int64("user", sub.UserID).
			Str("kind", string(sub.Kind)).
			Msg("Publish to channel failed")
		if s.notify != nil {
			s.notify(ctx, sub, err)
		}
		return nil, fmt.Errorf("publish: %w", err)
	}

	s.tracker.Commit(sub.UserID, class)
	metrics.PostsTotal.WithLabelValues(string(sub.Kind), "ok").Inc()

	used, limit, resetIn := s.tracker.Usage(sub.UserID, class)
	return &Receipt{
		Used:    used,
		Limit:   limit,
		ResetIn: resetIn,
		Exempt:  s.exempt(sub.UserID),
	}, nil
}
