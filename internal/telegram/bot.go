// Package telegram is the transport layer: it runs the long-polling update
// loop and translates messages and callbacks into calls on the menfess and
// download services.
package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/Black1ssl/after2/internal/config"
	"github.com/Black1ssl/after2/internal/download"
	"github.com/Black1ssl/after2/internal/fetch"
	"github.com/Black1ssl/after2/internal/menfess"
	"github.com/Black1ssl/after2/internal/quota"
	"github.com/Black1ssl/after2/internal/storage"
)

// A URL waiting on a quality choice is held at most this long; stale picks
// would otherwise fire on links the user has long forgotten.
const (
	pendingURLTTL = 15 * time.Minute
	pendingURLCap = 1024
)

type Bot struct {
	api       *tgbotapi.BotAPI
	cfg       *config.Config
	sender    *Sender
	store     *storage.Storage
	tracker   *quota.Tracker
	posts     *menfess.Service
	downloads *download.Service
	images    *fetch.Images
	pending   *expirable.LRU[int64, string]
	log       zerolog.Logger
}

// Deps carries everything the bot does not own itself. The gate lives
// outside so the ops server can report active downloads.
type Deps struct {
	Config     *config.Config
	Store      *storage.Storage
	Tracker    *quota.Tracker
	Gate       *download.Gate
	Downloader fetch.Downloader
	Images     *fetch.Images
	Log        zerolog.Logger
}

func New(d Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(d.Config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	d.Log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	b := &Bot{
		api:     api,
		cfg:     d.Config,
		sender:  NewSender(api, d.Log),
		store:   d.Store,
		tracker: d.Tracker,
		images:  d.Images,
		pending: expirable.NewLRU[int64, string](pendingURLCap, nil, pendingURLTTL),
		log:     d.Log.With().Str("component", "telegram").Logger(),
	}
	b.posts = menfess.NewService(d.Tracker, d.Store, b.isOwner, b.notifyOwner, d.Log)
	b.downloads = download.NewService(d.Tracker, d.Gate, d.Downloader, d.Config.TempDir(), d.Log)
	return b, nil
}

func (b *Bot) isOwner(userID int64) bool { return userID == b.cfg.OwnerID }

// Run polls for updates until ctx is cancelled. Each update is handled on
// its own goroutine so a waiting download cannot stall the loop.
func (b *Bot) Run(ctx context.Context) error {
	// A leftover webhook blocks getUpdates; clear it along with any backlog.
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		b.log.Warn().Err(err).Msg("Webhook cleanup failed")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := b.api.GetUpdatesChan(u)

	b.log.Info().Msg("Bot running")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Int("update", update.UpdateID).Msg("Update handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}

	if len(msg.NewChatMembers) > 0 {
		b.handleNewMembers(ctx, msg)
		return
	}

	if msg.IsCommand() {
		b.dispatchCommand(ctx, msg)
		return
	}

	if msg.Chat.IsPrivate() {
		// Bare links request a download; anything else, media included, is a
		// submission attempt.
		if url := FirstURL(msg); url != "" && len(msg.Photo) == 0 && msg.Video == nil {
			b.handleDownloadRequest(ctx, msg, url)
			return
		}
		b.handleSubmission(ctx, msg)
		return
	}

	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		if url := FirstURL(msg); url != "" {
			b.handleLinkPost(ctx, msg)
		}
	}
}

func (b *Bot) editText(ctx context.Context, chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, ClampMessage(text))
	if _, err := b.sender.Send(ctx, chatID, edit); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("Message edit failed")
	}
}
