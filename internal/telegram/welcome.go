package telegram

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleNewMembers greets each joining human exactly once per chat. The join
// service message itself is deleted when the bot has the right to.
func (b *Bot) handleNewMembers(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if err := b.sender.Request(ctx, chatID, tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
		b.log.Debug().Err(err).Int64("chat", chatID).Msg("Could not delete join notice")
	}

	for _, user := range msg.NewChatMembers {
		if user.IsBot {
			continue
		}

		first, err := b.store.MarkWelcomed(user.ID, chatID)
		if err != nil {
			b.log.Error().Err(err).Int64("user", user.ID).Msg("Welcome bookkeeping failed")
			continue
		}
		if !first {
			continue
		}

		greet := tgbotapi.NewMessage(chatID, fmt.Sprintf("👋 Welcome %s!", html.EscapeString(user.FirstName)))
		greet.ParseMode = tgbotapi.ModeHTML
		if _, err := b.sender.Send(ctx, chatID, greet); err != nil {
			b.log.Error().Err(err).Int64("user", user.ID).Msg("Greeting failed")
		}
	}
}
