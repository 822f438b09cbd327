package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// botAPI is the slice of tgbotapi.BotAPI the sender calls.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sender wraps the bot API with the rate limits Telegram enforces server
// side: roughly 30 messages per second overall and about one per second
// within a single chat. When the API still answers 429 the call sleeps out
// the advertised retry window and tries once more.
type Sender struct {
	api    botAPI
	global *rate.Limiter

	mu    sync.Mutex
	chats map[int64]*rate.Limiter

	log zerolog.Logger
}

func NewSender(api botAPI, log zerolog.Logger) *Sender {
	return &Sender{
		api:    api,
		global: rate.NewLimiter(rate.Limit(30), 30),
		chats:  make(map[int64]*rate.Limiter),
		log:    log.With().Str("component", "sender").Logger(),
	}
}

// Send delivers any Chattable that yields a message. Pass the target chat so
// the per-chat limiter can meter it.
func (s *Sender) Send(ctx context.Context, chatID int64, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := s.wait(ctx, chatID); err != nil {
		return tgbotapi.Message{}, err
	}

	msg, err := s.api.Send(c)
	if retry := retryAfter(err); retry > 0 {
		s.log.Warn().Int64("chat", chatID).Dur("retry_after", retry).Msg("Hit Telegram flood limit")
		select {
		case <-time.After(retry):
		case <-ctx.Done():
			return tgbotapi.Message{}, ctx.Err()
		}
		msg, err = s.api.Send(c)
	}
	return msg, err
}

// Request is Send for calls without a message result: callback answers,
// deletions, bans. A zero chatID skips the per-chat limiter.
func (s *Sender) Request(ctx context.Context, chatID int64, c tgbotapi.Chattable) error {
	if err := s.wait(ctx, chatID); err != nil {
		return err
	}

	_, err := s.api.Request(c)
	if retry := retryAfter(err); retry > 0 {
		s.log.Warn().Int64("chat", chatID).Dur("retry_after", retry).Msg("Hit Telegram flood limit")
		select {
		case <-time.After(retry):
		case <-ctx.Done():
			return ctx.Err()
		}
		_, err = s.api.Request(c)
	}
	return err
}

// Reply sends text as a reply to msg and logs instead of returning the
// error; confirmation traffic is best-effort.
func (s *Sender) Reply(ctx context.Context, to *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(to.Chat.ID, ClampMessage(text))
	msg.ReplyToMessageID = to.MessageID
	if _, err := s.Send(ctx, to.Chat.ID, msg); err != nil {
		s.log.Error().Err(err).Int64("chat", to.Chat.ID).Msg("Reply failed")
	}
}

func (s *Sender) wait(ctx context.Context, chatID int64) error {
	if err := s.global.Wait(ctx); err != nil {
		return err
	}
	if chatID == 0 {
		return nil
	}
	return s.chatLimiter(chatID).Wait(ctx)
}

func (s *Sender) chatLimiter(chatID int64) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.chats[chatID]
	if !ok {
		// Burst of 3 lets a progress edit and its follow-up through together.
		l = rate.NewLimiter(rate.Every(time.Second), 3)
		s.chats[chatID] = l
	}
	return l
}

func retryAfter(err error) time.Duration {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second
	}
	return 0
}
