// Package chatbot turns inbound chat-platform events into single-turn relay
// calls and posts each reply back to the originating conversation.
package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"petit-panthere/pkg/panthere"
)

// ErrorReplyPrefix starts the reply posted when the model call fails.
const ErrorReplyPrefix = "⚠️ Error communicating with the model: "

// Option mutates handler configuration.
type Option func(*Handler)

// WithLogger injects the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(handler *Handler) {
		if logger != nil {
			handler.logger = logger
		}
	}
}

// Handler filters chat events, relays relevant ones, and posts replies.
type Handler struct {
	relay      panthere.Relay
	dispatcher panthere.SinkDispatcher
	logger     *slog.Logger
}

// New creates a chat handler.
func New(relay panthere.Relay, dispatcher panthere.SinkDispatcher, options ...Option) (*Handler, error) {
	if relay == nil {
		return nil, fmt.Errorf("new chatbot handler: nil relay")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("new chatbot handler: nil sink dispatcher")
	}

	handler := &Handler{
		relay:      relay,
		dispatcher: dispatcher,
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(handler)
	}

	return handler, nil
}

// Handle processes one event. It satisfies panthere.EventHandler.
//
// Model failures are reported to the conversation as an error reply rather
// than returned; only delivery and validation failures surface as errors.
func (h *Handler) Handle(ctx context.Context, event *panthere.Event) error {
	scope := "chatbot handle event"
	if event != nil {
		scope = fmt.Sprintf("chatbot handle event %s", event.ID)
	}

	return runSafely(scope, func() error {
		return h.handle(ctx, event)
	})
}

func (h *Handler) handle(ctx context.Context, event *panthere.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("validate event: %w", err)
	}
	if !ShouldRespond(event) {
		return nil
	}

	input := event.Text
	output := h.reply(ctx, event, input)
	if strings.TrimSpace(output) == "" {
		h.logger.WarnContext(ctx, "chat reply empty, nothing posted",
			"platform", event.Platform,
			"conversation_id", event.Conversation.ID,
			"sender", event.Actor.ID,
		)
		return nil
	}

	target, err := panthere.OutboundTargetFromEvent(event)
	if err != nil {
		return fmt.Errorf("derive reply target: %w", err)
	}
	if _, err := h.dispatcher.SendMessage(ctx, panthere.SendMessageRequest{Target: target, Text: output}); err != nil {
		return fmt.Errorf("post reply: %w", err)
	}

	h.logger.InfoContext(ctx, "chat exchange",
		"platform", event.Platform,
		"conversation_id", event.Conversation.ID,
		"sender", event.Actor.ID,
		"input", input,
		"output", output,
	)

	return nil
}

func (h *Handler) reply(ctx context.Context, event *panthere.Event, input string) string {
	reply, err := h.relay.Send(ctx, input, panthere.RelayContext{
		SenderID:       event.Actor.ID,
		ConversationID: event.Conversation.ID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "chat relay failed",
			"platform", event.Platform,
			"conversation_id", event.Conversation.ID,
			"sender", event.Actor.ID,
			"error", err,
		)
		return ErrorReplyPrefix + err.Error()
	}

	return reply.Text
}

// ShouldRespond reports whether an event warrants a reply: human-authored,
// non-blank, and either direct or mentioning the bot.
func ShouldRespond(event *panthere.Event) bool {
	if event == nil || event.Actor.IsBot {
		return false
	}
	if event.Self.ID != "" && event.Actor.ID == event.Self.ID {
		return false
	}
	if strings.TrimSpace(event.Text) == "" {
		return false
	}

	return event.IsDirect() || event.MentionsSelf()
}

// runSafely executes fn and converts panics into returned errors tagged with scope.
func runSafely(scope string, fn func() error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		err = fmt.Errorf("%s: panic recovered: %v", scope, recovered)
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}

	return nil
}
