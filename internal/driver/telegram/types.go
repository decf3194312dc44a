package telegram

import (
	"time"

	"petit-panthere/pkg/panthere"
)

// Update is the Telegram adapter's internal message projection before it
// becomes a neutral event.
type Update struct {
	ID         string
	OccurredAt time.Time
	Chat       ChatRef
	Actor      ActorRef
	Self       ActorRef
	MessageID  string
	Text       string
	// Mentions holds user ids addressed by the message. @username mentions of
	// the bot are resolved to the bot's id.
	Mentions []string
}

// ChatRef identifies Telegram chat context.
type ChatRef struct {
	ID    string
	Title string
	Type  panthere.ConversationType
}

// ActorRef identifies Telegram actor context.
type ActorRef struct {
	ID          string
	Username    string
	DisplayName string
	IsBot       bool
}
