package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Black1ssl/after2/internal/menfess"
	"github.com/Black1ssl/after2/internal/quota"
	"github.com/Black1ssl/after2/internal/storage"
	"github.com/Black1ssl/after2/pkg/util"
)

func (b *Bot) handleSubmission(ctx context.Context, msg *tgbotapi.Message) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	gender, ok := menfess.ParseGenderTag(text)
	if !ok {
		b.sender.Reply(ctx, msg, "❌ Post rejected.\nTag your post with #male or #female.")
		return
	}

	kind := menfess.KindText
	if len(msg.Photo) > 0 || msg.Video != nil {
		kind = menfess.KindMedia
	}

	sub := &menfess.Submission{
		UserID:   msg.From.ID,
		Username: msg.From.UserName,
		Kind:     kind,
		Gender:   gender,
		Caption:  text,
	}

	receipt, err := b.posts.Submit(ctx, sub, func(ctx context.Context) error {
		return b.publishToChannel(ctx, msg, text)
	})
	if err != nil {
		b.replySubmitError(ctx, msg, kind, err)
		return
	}

	if receipt.Exempt {
		b.sender.Reply(ctx, msg, "✅ Post delivered (admin: unlimited).")
	} else {
		b.sender.Reply(ctx, msg, fmt.Sprintf(
			"✅ Post delivered. Used today: %d/%d\n⏳ Resets in %s",
			receipt.Used, receipt.Limit, util.HumanDuration(receipt.ResetIn)))
	}

	b.auditSubmission(ctx, msg, gender)
}

// publishToChannel reposts the submission to the public channel. Media goes
// out by file_id, so nothing is ever re-uploaded. Notifications stay off to
// keep channel members unbothered.
func (b *Bot) publishToChannel(ctx context.Context, msg *tgbotapi.Message, text string) error {
	chatID := b.cfg.ChannelID

	var c tgbotapi.Chattable
	switch {
	case len(msg.Photo) > 0:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(msg.Photo[len(msg.Photo)-1].FileID))
		photo.Caption = ClampCaption(text)
		photo.DisableNotification = true
		c = photo
	case msg.Video != nil:
		video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(msg.Video.FileID))
		video.Caption = ClampCaption(text)
		video.DisableNotification = true
		c = video
	default:
		m := tgbotapi.NewMessage(chatID, ClampMessage(text))
		m.DisableWebPagePreview = true
		m.DisableNotification = true
		c = m
	}

	_, err := b.sender.Send(ctx, chatID, c)
	return err
}

func (b *Bot) replySubmitError(ctx context.Context, msg *tgbotapi.Message, kind menfess.Kind, err error) {
	var denied *quota.DeniedError
	var mismatch *storage.GenderMismatchError
	switch {
	case errors.As(err, &denied):
		noun := "text"
		if kind == menfess.KindMedia {
			noun = "photo/video"
		}
		b.sender.Reply(ctx, msg, fmt.Sprintf(
			"😅 Daily %s post quota is used up.\n⏳ Resets in %s\n⌛ Please try again later.",
			noun, util.HumanDuration(denied.RetryAfter)))
	case errors.As(err, &mismatch):
		b.sender.Reply(ctx, msg, fmt.Sprintf(
			"❌ Post rejected.\nYour account is already registered as #%s.", mismatch.Recorded))
	default:
		b.sender.Reply(ctx, msg, "⚠️ Posting to the channel failed; the admin has been notified.")
	}
}

// notifyOwner DMs the operator after a failed publish with enough context to
// repost by hand. Its own failures only hit the log.
func (b *Bot) notifyOwner(ctx context.Context, sub *menfess.Submission, cause error) {
	body := sub.Caption
	if sub.Kind == menfess.KindMedia {
		body = "(media attached)"
	}
	text := fmt.Sprintf(
		"[AUTOFALLBACK] Publishing a post to the channel (%d) failed.\n"+
			"User: @%s (id: %d)\nGender: #%s\n\nContent:\n%s\n\nError: %v",
		b.cfg.ChannelID, sub.Username, sub.UserID, sub.Gender, body, cause)

	dm := tgbotapi.NewMessage(b.cfg.OwnerID, ClampMessage(text))
	dm.DisableWebPagePreview = true
	if _, err := b.sender.Send(ctx, b.cfg.OwnerID, dm); err != nil {
		b.log.Error().Err(err).Msg("Owner fallback DM failed")
	}
}

// auditSubmission mirrors the post to the private log channel with the
// submitter's identity attached, de-anonymized for moderation. Best-effort;
// the submitter never sees a failure here.
func (b *Bot) auditSubmission(ctx context.Context, msg *tgbotapi.Message, gender storage.Gender) {
	if b.cfg.LogChannelID == 0 {
		return
	}

	username := "(no username)"
	if msg.From.UserName != "" {
		username = "@" + msg.From.UserName
	}
	name := msg.From.FirstName
	if name == "" {
		name = "-"
	}
	text := msg.Caption
	if text == "" {
		text = msg.Text
	}

	caption := fmt.Sprintf(
		"👤 <b>Name:</b> %s\n🔗 <b>Username:</b> %s\n🆔 <b>User ID:</b> <code>%d</code>\n⚧ <b>Gender:</b> #%s\n\n%s",
		html.EscapeString(name), html.EscapeString(username), msg.From.ID, gender, html.EscapeString(text))

	chatID := b.cfg.LogChannelID
	var c tgbotapi.Chattable
	switch {
	case len(msg.Photo) > 0:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(msg.Photo[len(msg.Photo)-1].FileID))
		photo.Caption = ClampCaption(caption)
		photo.ParseMode = tgbotapi.ModeHTML
		photo.DisableNotification = true
		c = photo
	case msg.Video != nil:
		video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(msg.Video.FileID))
		video.Caption = ClampCaption(caption)
		video.ParseMode = tgbotapi.ModeHTML
		video.DisableNotification = true
		c = video
	default:
		m := tgbotapi.NewMessage(chatID, ClampMessage(caption))
		m.ParseMode = tgbotapi.ModeHTML
		m.DisableNotification = true
		c = m
	}

	if _, err := b.sender.Send(ctx, chatID, c); err != nil {
		b.log.Error().Err(err).Int64("user", msg.From.ID).Msg("Audit copy failed")
	}
}
