package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Black1ssl/after2/internal/download"
	"github.com/Black1ssl/after2/internal/fetch"
	"github.com/Black1ssl/after2/internal/quota"
	"github.com/Black1ssl/after2/pkg/util"
)

const imageFetchTimeout = 30 * time.Second

func (b *Bot) handleDownloadRequest(ctx context.Context, msg *tgbotapi.Message, url string) {
	if fetch.IsImageURL(url) {
		b.handleImageURL(ctx, msg, url)
		return
	}

	// Park the URL until the user picks a quality.
	b.pending.Add(msg.From.ID, url)

	prompt := tgbotapi.NewMessage(msg.Chat.ID, "Pick a download quality:")
	prompt.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("360p", "q_360"),
			tgbotapi.NewInlineKeyboardButtonData("720p", "q_720"),
		),
	)
	if _, err := b.sender.Send(ctx, msg.Chat.ID, prompt); err != nil {
		b.log.Error().Err(err).Int64("user", msg.From.ID).Msg("Quality prompt failed")
	}
}

// handleImageURL serves direct image links. The fetch is one bounded GET, so
// it skips the download gate; only the quota applies. The unit is charged
// once the bytes are on disk and refunded if the send fails.
func (b *Bot) handleImageURL(ctx context.Context, msg *tgbotapi.Message, url string) {
	userID := msg.From.ID

	if err := b.tracker.Check(userID, quota.ClassDownload); err != nil {
		b.sender.Reply(ctx, msg, downloadDeniedText(err))
		return
	}

	b.sender.Reply(ctx, msg, "⏳ Fetching photo...")

	if err := os.MkdirAll(b.cfg.TempDir(), 0o755); err != nil {
		b.log.Error().Err(err).Msg("Temp root unavailable")
		b.sender.Reply(ctx, msg, "❌ Failed to fetch the photo.")
		return
	}
	dir, err := os.MkdirTemp(b.cfg.TempDir(), "img-")
	if err != nil {
		b.log.Error().Err(err).Msg("Scratch dir unavailable")
		b.sender.Reply(ctx, msg, "❌ Failed to fetch the photo.")
		return
	}
	defer os.RemoveAll(dir)

	fetchCtx, cancel := context.WithTimeout(ctx, imageFetchTimeout)
	defer cancel()

	art, err := b.images.Fetch(fetchCtx, url, dir)
	if err != nil {
		if errors.Is(err, fetch.ErrTooLarge) {
			b.sender.Reply(ctx, msg, "❌ The photo is larger than 50MB and cannot be sent.")
			return
		}
		b.log.Error().Err(err).Str("url", url).Msg("Image fetch failed")
		b.sender.Reply(ctx, msg, fmt.Sprintf("❌ Failed to fetch the photo: %v", err))
		return
	}

	b.tracker.Commit(userID, quota.ClassDownload)

	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FilePath(art.Path))
	if _, err := b.sender.Send(ctx, msg.Chat.ID, photo); err != nil {
		// Some formats bounce as photos but pass as documents.
		doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FilePath(art.Path))
		if _, err := b.sender.Send(ctx, msg.Chat.ID, doc); err != nil {
			b.tracker.Refund(userID, quota.ClassDownload)
			b.log.Error().Err(err).Int64("user", userID).Msg("Photo delivery failed")
			b.sender.Reply(ctx, msg, "❌ Failed to send the photo.")
			return
		}
	}

	b.sender.Reply(ctx, msg, "✅ Photo sent.")
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || !strings.HasPrefix(cb.Data, "q_") {
		return
	}

	q := fetch.Quality360
	if cb.Data == "q_720" {
		q = fetch.Quality720
	}

	userID := cb.From.ID
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID

	url, ok := b.pending.Get(userID)
	if !ok {
		b.answerCallback(ctx, cb.ID, "")
		b.editText(ctx, chatID, msgID, "❌ No URL on file. Send the link again.")
		return
	}

	// A running job already holds this user's slot; alert instead of queueing
	// a duplicate.
	if b.downloads.Gate().IsActive(userID) {
		b.answerAlert(ctx, cb.ID, "⏳ Your previous download is still running")
		return
	}

	b.answerCallback(ctx, cb.ID, "")
	b.editText(ctx, chatID, msgID, "⏳ Downloading, hang tight...")

	err := b.downloads.Run(ctx, userID, url, q, func(ctx context.Context, art *fetch.Artifact) error {
		return b.deliverArtifact(ctx, chatID, art)
	})

	var denied *quota.DeniedError
	var oversize *download.SizeError
	switch {
	case err == nil:
		b.pending.Remove(userID)
		b.editText(ctx, chatID, msgID, "✅ Download finished. The file has been sent to you.")
	case errors.Is(err, download.ErrUserBusy):
		b.editText(ctx, chatID, msgID, "⏳ Your previous download is still running.")
	case errors.As(err, &denied):
		b.editText(ctx, chatID, msgID, downloadDeniedText(err))
	case errors.As(err, &oversize):
		b.editText(ctx, chatID, msgID,
			"❌ The file is larger than 50MB and cannot be sent through the bot.\nPlease fetch it from the source directly.")
	default:
		b.editText(ctx, chatID, msgID, fmt.Sprintf("❌ Download failed: %v", err))
	}
}

func (b *Bot) deliverArtifact(ctx context.Context, chatID int64, art *fetch.Artifact) error {
	file := tgbotapi.FilePath(art.Path)

	var c tgbotapi.Chattable
	switch art.Kind() {
	case fetch.KindVideo:
		v := tgbotapi.NewVideo(chatID, file)
		v.Caption = ClampCaption(art.Title)
		c = v
	case fetch.KindAudio:
		a := tgbotapi.NewAudio(chatID, file)
		a.Caption = ClampCaption(art.Title)
		c = a
	case fetch.KindPhoto:
		c = tgbotapi.NewPhoto(chatID, file)
	default:
		c = tgbotapi.NewDocument(chatID, file)
	}

	_, err := b.sender.Send(ctx, chatID, c)
	return err
}

func downloadDeniedText(err error) string {
	var denied *quota.DeniedError
	if !errors.As(err, &denied) {
		return "❌ Download refused."
	}
	return fmt.Sprintf(
		"😅 Daily download quota is used up\n⏳ Resets in %s\n📅 Limit: %d downloads per day",
		util.HumanDuration(denied.RetryAfter), denied.Limit)
}

func (b *Bot) answerCallback(ctx context.Context, id, text string) {
	if err := b.sender.Request(ctx, 0, tgbotapi.NewCallback(id, text)); err != nil {
		b.log.Debug().Err(err).Msg("Callback answer failed")
	}
}

func (b *Bot) answerAlert(ctx context.Context, id, text string) {
	if err := b.sender.Request(ctx, 0, tgbotapi.NewCallbackWithAlert(id, text)); err != nil {
		b.log.Debug().Err(err).Msg("Callback alert failed")
	}
}
