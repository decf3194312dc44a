package panthere

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Platform identifies an external chat platform source.
type Platform string

const (
	// PlatformSlack is Slack.
	PlatformSlack Platform = "slack"
	// PlatformTelegram is Telegram.
	PlatformTelegram Platform = "telegram"
)

// ConversationType identifies conversation scope.
type ConversationType string

const (
	// ConversationTypePrivate is a direct one-to-one conversation.
	ConversationTypePrivate ConversationType = "private"
	// ConversationTypeGroup is a group conversation.
	ConversationTypeGroup ConversationType = "group"
	// ConversationTypeChannel is a channel-style conversation.
	ConversationTypeChannel ConversationType = "channel"
)

// Event is the neutral inbound message envelope drivers hand to the chat module.
type Event struct {
	// ID is a stable identifier for this event instance.
	ID string
	// OccurredAt is the source-platform timestamp for the event.
	OccurredAt time.Time
	// Platform identifies the upstream platform that produced the event.
	Platform Platform
	// Conversation identifies where the message was posted.
	Conversation Conversation
	// Actor identifies who posted the message.
	Actor Actor
	// Self identifies the bot account that received the event.
	Self Actor
	// Text is the raw message text, mention tokens included.
	Text string
	// Mentions lists actor IDs explicitly mentioned in Text.
	Mentions []string
}

// Conversation identifies the neutral destination where an event occurred.
type Conversation struct {
	// ID is the stable conversation identifier on the source platform.
	ID string
	// Type describes the conversation scope.
	Type ConversationType
}

// Actor identifies the user/account that initiated an event.
type Actor struct {
	// ID is the stable actor identifier on the source platform.
	ID string
	// Username is the platform handle when available.
	Username string
	// IsBot reports whether the actor is an automated account.
	IsBot bool
}

// Validate checks the minimal invariants every driver must satisfy.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if e.Platform == "" {
		return fmt.Errorf("%w: missing platform", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Conversation.ID) == "" {
		return fmt.Errorf("%w: missing conversation id", ErrInvalidEvent)
	}
	if e.Conversation.Type == "" {
		return fmt.Errorf("%w: missing conversation type", ErrInvalidEvent)
	}

	return nil
}

// IsDirect reports whether the event happened in a one-to-one conversation.
func (e *Event) IsDirect() bool {
	return e != nil && e.Conversation.Type == ConversationTypePrivate
}

// MentionsSelf reports whether the event mentions the receiving bot account.
func (e *Event) MentionsSelf() bool {
	if e == nil || e.Self.ID == "" {
		return false
	}

	return slices.Contains(e.Mentions, e.Self.ID)
}
