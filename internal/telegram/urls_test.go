package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestFirstURLFromEntity(t *testing.T) {
	msg := &tgbotapi.Message{
		Text: "check this out https://example.com/v/1 now",
		Entities: []tgbotapi.MessageEntity{
			{Type: "url", Offset: 15, Length: 23},
		},
	}
	assert.Equal(t, "https://example.com/v/1", FirstURL(msg))
}

func TestFirstURLCountsUTF16Offsets(t *testing.T) {
	// Each flame emoji takes two UTF-16 code units, so byte or rune based
	// slicing would cut into the URL.
	msg := &tgbotapi.Message{
		Text: "🔥🔥 https://go.dev/x",
		Entities: []tgbotapi.MessageEntity{
			{Type: "url", Offset: 5, Length: 16},
		},
	}
	assert.Equal(t, "https://go.dev/x", FirstURL(msg))
}

func TestFirstURLPrefersTextLinkTarget(t *testing.T) {
	msg := &tgbotapi.Message{
		Text: "here",
		Entities: []tgbotapi.MessageEntity{
			{Type: "text_link", URL: "https://hidden.example/page", Offset: 0, Length: 4},
		},
	}
	assert.Equal(t, "https://hidden.example/page", FirstURL(msg))
}

func TestFirstURLFromCaptionEntity(t *testing.T) {
	msg := &tgbotapi.Message{
		Caption: "pic www.example.com",
		CaptionEntities: []tgbotapi.MessageEntity{
			{Type: "url", Offset: 4, Length: 15},
		},
	}
	assert.Equal(t, "www.example.com", FirstURL(msg))
}

func TestFirstURLRegexFallback(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"grab t.me/somechannel now", "t.me/somechannel"},
		{"see www.example.org please", "www.example.org"},
		{"plain HTTPS://UPPER.example/x", "HTTPS://UPPER.example/x"},
		{"no links here", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FirstURL(&tgbotapi.Message{Text: tc.text}), tc.text)
	}
}

func TestFirstURLNilMessage(t *testing.T) {
	assert.Empty(t, FirstURL(nil))
}

func TestFirstURLIgnoresBrokenOffsets(t *testing.T) {
	msg := &tgbotapi.Message{
		Text: "short",
		Entities: []tgbotapi.MessageEntity{
			{Type: "url", Offset: 3, Length: 99},
		},
	}
	assert.Empty(t, FirstURL(msg))
}
