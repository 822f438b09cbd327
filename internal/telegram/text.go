package telegram

import "strings"

// Telegram rejects captions over 1024 characters and message text over 4096.
const (
	captionLimit = 1024
	messageLimit = 4096
)

// ClampCaption trims a media caption to the API cap.
func ClampCaption(s string) string { return clamp(s, captionLimit) }

// ClampMessage trims message text to the API cap.
func ClampMessage(s string) string { return clamp(s, messageLimit) }

// The API counts characters, not bytes, so the cut is by rune. NUL bytes
// make the API reject the whole payload and are stripped up front.
func clamp(s string, limit int) string {
	s = strings.ReplaceAll(s, "\x00", "")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
