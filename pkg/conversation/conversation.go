// Package conversation holds the session-local chat state: conversations,
// their messages and the active conversation. Every Store operation returns a
// new Store and leaves the receiver untouched.
package conversation

import (
	"time"
	"unicode/utf8"
)

// DefaultTitle is the title of a conversation before its first exchange.
const DefaultTitle = "New Conversation"

const (
	titleMaxRunes = 30
	titleEllipsis = "..."
)

// Sender identifies who authored a message.
type Sender int

const (
	User Sender = iota
	Bot
)

func (s Sender) String() string {
	switch s {
	case User:
		return "user"
	case Bot:
		return "bot"
	}
	return "unknown"
}

// Message is a single transcript entry. Messages are never edited once
// appended.
type Message struct {
	Text   string
	Sender Sender

	// ImageSrc is a URL or data URI attached by the user. It is display-only.
	ImageSrc string
}

// Conversation is an ordered transcript with a title.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Messages  []Message
}

// TitleFrom derives a conversation title from the first user message:
// at most 30 runes, followed by "..." when the text was longer.
func TitleFrom(text string) string {
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}
	return string([]rune(text)[:titleMaxRunes]) + titleEllipsis
}
