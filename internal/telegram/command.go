package telegram

import (
	"context"
	"fmt"
	"sort"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// command is one bot command. Gating is declared here and enforced by the
// dispatcher, so handlers never check their own permissions.
type command struct {
	name      string // without the leading slash
	help      string // usage line shown by /help
	groupOnly bool
	adminOnly bool // bot owner or a chat admin
	run       func(*Bot, context.Context, *tgbotapi.Message)
}

// registry maps command names and aliases to their entries. Filled by the
// init functions next to the handlers.
var registry = make(map[string]*command)

func register(c *command, aliases ...string) {
	registry[c.name] = c
	for _, name := range aliases {
		registry[name] = c
	}
}

// adminHelp returns the usage lines of the admin-gated commands, sorted by
// command name.
func adminHelp() []string {
	var entries []*command
	seen := make(map[string]bool)
	for _, c := range registry {
		if c.adminOnly && !seen[c.name] {
			seen[c.name] = true
			entries = append(entries, c)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	lines := make([]string, len(entries))
	for i, c := range entries {
		lines[i] = c.help
	}
	return lines
}

// dispatchCommand looks up the command and applies its gating. Unknown
// commands are ignored.
func (b *Bot) dispatchCommand(ctx context.Context, msg *tgbotapi.Message) {
	c, ok := registry[msg.Command()]
	if !ok {
		return
	}
	if c.groupOnly && !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		b.sender.Reply(ctx, msg, "This command only works in groups.")
		return
	}
	if c.adminOnly && !b.isOwner(msg.From.ID) && !b.isChatAdmin(msg.Chat.ID, msg.From.ID) {
		b.sender.Reply(ctx, msg, fmt.Sprintf("❌ Only the owner or a group admin can use /%s.", c.name))
		return
	}
	c.run(b, ctx, msg)
}
