package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func init() {
	register(&command{name: "help", help: "/help", run: (*Bot).handleHelp}, "start")
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	help := fmt.Sprintf(`📚 What this bot does:

- Anonymous posts via private chat: send text, a photo or a video tagged #male or #female
- Video/audio downloads from most platforms (pick 360p or 720p)
- Photo downloads from direct image URLs
- Files up to 50 MB can be sent through the bot
- Download limit: %d per day per user
- Post limits per day: %d photo/video, %d text

Admin commands (group only):
%s`,
		b.cfg.LimitDownloads, b.cfg.LimitMediaPosts, b.cfg.LimitTextPosts,
		strings.Join(adminHelp(), "\n"))

	b.sender.Reply(ctx, msg, help)
}
