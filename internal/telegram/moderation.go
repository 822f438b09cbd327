package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func init() {
	register(&command{name: "ban", help: "/ban <user_id> [hours]", groupOnly: true, adminOnly: true, run: (*Bot).handleBan})
	register(&command{name: "kick", help: "/kick <user_id> (or reply)", groupOnly: true, adminOnly: true, run: (*Bot).handleKick})
	register(&command{name: "unban", help: "/unban <user_id>", groupOnly: true, adminOnly: true, run: (*Bot).handleUnban})
	register(&command{name: "tag", help: "/tag <user_id> <text> (or reply)", groupOnly: true, adminOnly: true, run: (*Bot).handleTag})
}

func (b *Bot) handleBan(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.sender.Reply(ctx, msg, "Usage: /ban <user_id> [hours]")
		return
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.sender.Reply(ctx, msg, "The user ID must be a number.")
		return
	}

	// Without an hour count the ban is permanent.
	var hours float64
	var until int64
	if len(args) >= 2 {
		if h, err := strconv.ParseFloat(args[1], 64); err == nil && h > 0 {
			hours = h
			until = time.Now().Add(time.Duration(h * float64(time.Hour))).Unix()
		}
	}

	ban := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: msg.Chat.ID, UserID: target},
		UntilDate:        until,
	}
	if err := b.sender.Request(ctx, msg.Chat.ID, ban); err != nil {
		b.log.Error().Err(err).Int64("target", target).Msg("Ban failed")
		b.sender.Reply(ctx, msg, fmt.Sprintf("❌ Ban failed: %v", err))
		return
	}

	if until > 0 {
		b.sender.Reply(ctx, msg, fmt.Sprintf("✅ User %d banned for %g hours.", target, hours))
	} else {
		b.sender.Reply(ctx, msg, fmt.Sprintf("✅ User %d banned permanently (until unbanned).", target))
	}
}

func (b *Bot) handleKick(ctx context.Context, msg *tgbotapi.Message) {
	var target int64
	switch {
	case msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil:
		target = msg.ReplyToMessage.From.ID
	default:
		args := strings.Fields(msg.CommandArguments())
		if len(args) == 0 {
			b.sender.Reply(ctx, msg, "Usage: reply to the user with /kick, or /kick <user_id>")
			return
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			b.sender.Reply(ctx, msg, "The user ID must be a number, or reply to the user's message.")
			return
		}
		target = id
	}

	// A short ban followed by an unban removes the user without a lasting
	// block.
	ban := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: msg.Chat.ID, UserID: target},
		UntilDate:        time.Now().Add(30 * time.Second).Unix(),
	}
	if err := b.sender.Request(ctx, msg.Chat.ID, ban); err != nil {
		b.log.Error().Err(err).Int64("target", target).Msg("Kick failed")
		b.sender.Reply(ctx, msg, fmt.Sprintf("❌ Kick failed: %v", err))
		return
	}
	unban := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: msg.Chat.ID, UserID: target},
	}
	if err := b.sender.Request(ctx, msg.Chat.ID, unban); err != nil {
		b.log.Error().Err(err).Int64("target", target).Msg("Kick unban failed")
		b.sender.Reply(ctx, msg, fmt.Sprintf("❌ Kick failed: %v", err))
		return
	}

	b.sender.Reply(ctx, msg, fmt.Sprintf("✅ User %d kicked.", target))
}

func (b *Bot) handleUnban(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.sender.Reply(ctx, msg, "❌ Usage: /unban <user_id>")
		return
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.sender.Reply(ctx, msg, "❌ The user ID must be a number.")
		return
	}

	unban := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: msg.Chat.ID, UserID: target},
	}
	if err := b.sender.Request(ctx, msg.Chat.ID, unban); err != nil {
		b.log.Error().Err(err).Int64("target", target).Msg("Unban failed")
		b.sender.Reply(ctx, msg, fmt.Sprintf("❌ Unban failed: %v", err))
		return
	}

	b.sender.Reply(ctx, msg, fmt.Sprintf("✅ User %d has been unbanned.", target))
}

// handleTag pings a member through a tg://user deep link, which notifies
// even users without a public @username.
func (b *Bot) handleTag(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())

	var target int64
	var text string
	switch {
	case msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil:
		target = msg.ReplyToMessage.From.ID
		text = strings.Join(args, " ")
	case len(args) > 0:
		if strings.HasPrefix(args[0], "@") {
			b.sender.Reply(ctx, msg, "Mention by @username is not supported; reply to the user or give a user ID.")
			return
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			b.sender.Reply(ctx, msg, "Invalid user ID.")
			return
		}
		target = id
		text = strings.Join(args[1:], " ")
	default:
		b.sender.Reply(ctx, msg, "Usage: /tag <user_id> <message>, or reply with /tag <message>")
		return
	}

	if text == "" {
		text = "(tagged by an admin)"
	}

	mention := fmt.Sprintf(`<a href="tg://user?id=%d">here</a>`, target)
	out := tgbotapi.NewMessage(msg.Chat.ID, ClampMessage(fmt.Sprintf("🔔 %s\n\n%s", mention, html.EscapeString(text))))
	out.ParseMode = tgbotapi.ModeHTML
	if _, err := b.sender.Send(ctx, msg.Chat.ID, out); err != nil {
		b.log.Error().Err(err).Int64("target", target).Msg("Tag failed")
		b.sender.Reply(ctx, msg, fmt.Sprintf("❌ Could not tag the member: %v", err))
	}
}
