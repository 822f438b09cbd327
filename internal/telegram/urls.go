package telegram

import (
	"regexp"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var urlRe = regexp.MustCompile(`(?i)https?://\S+|www\.\S+|t\.me/\S+|telegram\.me/\S+`)

// FirstURL returns the first URL a message carries, or "". Entity metadata
// wins over the regex scan because text_link entities hide the target behind
// display text.
func FirstURL(msg *tgbotapi.Message) string {
	if msg == nil {
		return ""
	}
	if u := entityURL(msg.Text, msg.Entities); u != "" {
		return u
	}
	if u := entityURL(msg.Caption, msg.CaptionEntities); u != "" {
		return u
	}
	return urlRe.FindString(msg.Text + " " + msg.Caption)
}

func entityURL(text string, entities []tgbotapi.MessageEntity) string {
	for _, ent := range entities {
		switch {
		case ent.IsTextLink() && ent.URL != "":
			return ent.URL
		case ent.IsURL() && text != "":
			if u := entitySlice(text, ent.Offset, ent.Length); u != "" {
				return u
			}
		}
	}
	return ""
}

// Entity offsets count UTF-16 code units, not bytes or runes.
func entitySlice(text string, offset, length int) string {
	units := utf16.Encode([]rune(text))
	if offset < 0 || length < 0 || offset+length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[offset : offset+length]))
}
