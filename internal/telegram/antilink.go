package telegram

import (
	"context"
	"fmt"
	"html"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const linkBanDuration = time.Hour

// handleLinkPost enforces the group no-links rule: the message is removed
// and the author banned for an hour. Chat admins are left alone.
func (b *Bot) handleLinkPost(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	user := msg.From

	if b.isChatAdmin(chatID, user.ID) {
		return
	}

	if err := b.sender.Request(ctx, chatID, tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
		b.log.Debug().Err(err).Int64("chat", chatID).Msg("Could not delete link post")
	}

	ban := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: user.ID},
		UntilDate:        time.Now().Add(linkBanDuration).Unix(),
	}
	if err := b.sender.Request(ctx, chatID, ban); err != nil {
		b.log.Error().Err(err).Int64("user", user.ID).Int64("chat", chatID).Msg("Link ban failed")
		return
	}

	b.log.Info().Int64("user", user.ID).Int64("chat", chatID).Msg("Banned for posting a link")

	notice := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"🚫 <b>%s</b> banned for 1 hour\nReason: posting a link", html.EscapeString(user.FirstName)))
	notice.ParseMode = tgbotapi.ModeHTML
	if _, err := b.sender.Send(ctx, chatID, notice); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("Ban notice failed")
	}
}

// isChatAdmin fails closed: if the membership lookup errors the user is
// treated as a regular member.
func (b *Bot) isChatAdmin(chatID, userID int64) bool {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		b.log.Debug().Err(err).Int64("user", userID).Msg("Chat member lookup failed")
		return false
	}
	return member.IsAdministrator() || member.IsCreator()
}
