package delivery

import (
	"strings"
	"unicode/utf8"

	"github.com/qepting91/mikubot/internal/domain"
)

const hashtags = "#NakanoMiku #Miku #GotoubunNoHanayome #QuintessentialQuintuplets"

// Telegram rejects photo captions longer than this many characters.
const maxCaptionLen = 1024

// FormatCaption appends the source line and hashtags to the record's caption.
func FormatCaption(rec domain.ContentRecord) string {
	var b strings.Builder
	b.WriteString(rec.Caption)
	b.WriteString("\n\n")
	if rec.Source != "" {
		b.WriteString("Source: ")
		b.WriteString(rec.Source)
		b.WriteString("\n")
	}
	b.WriteString(hashtags)

	full := b.String()
	if utf8.RuneCountInString(full) <= maxCaptionLen {
		return full
	}

	// shorten the caption body, never the attribution
	tail := full[len(rec.Caption):]
	room := maxCaptionLen - utf8.RuneCountInString(tail) - 1
	if room < 0 {
		room = 0
	}
	body := []rune(rec.Caption)
	if len(body) > room {
		body = body[:room]
	}
	return string(body) + "…" + tail
}
