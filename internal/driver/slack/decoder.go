package slack

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"petit-panthere/pkg/panthere"

	"github.com/slack-go/slack/slackevents"
)

const subTypeBotMessage = "bot_message"

// Subtypes that still carry a fresh human-authored message.
var acceptedSubTypes = map[string]struct{}{
	"":                 {},
	"file_share":       {},
	"thread_broadcast": {},
	subTypeBotMessage:  {},
}

var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)

// Self is the bot identity reported by auth.test.
type Self struct {
	UserID string
	User   string
	BotID  string
}

// decodeMessage projects one Events API message into a neutral event.
// The boolean is false for edits, deletions and other non-message subtypes.
func decodeMessage(message *slackevents.MessageEvent, self Self) (*panthere.Event, bool) {
	if message == nil {
		return nil, false
	}
	if _, ok := acceptedSubTypes[message.SubType]; !ok {
		return nil, false
	}

	id := message.ClientMsgID
	if id == "" {
		id = message.Channel + ":" + message.TimeStamp
	}

	return &panthere.Event{
		ID:         id,
		OccurredAt: parseTimestamp(message.TimeStamp),
		Platform:   DriverPlatform,
		Conversation: panthere.Conversation{
			ID:   message.Channel,
			Type: conversationType(message.ChannelType),
		},
		Actor: panthere.Actor{
			ID:    message.User,
			IsBot: message.BotID != "" || message.SubType == subTypeBotMessage,
		},
		Self: panthere.Actor{
			ID:       self.UserID,
			Username: self.User,
			IsBot:    true,
		},
		Text:     message.Text,
		Mentions: mentions(message.Text),
	}, true
}

func conversationType(channelType string) panthere.ConversationType {
	switch channelType {
	case "im":
		return panthere.ConversationTypePrivate
	case "mpim", "group":
		return panthere.ConversationTypeGroup
	default:
		return panthere.ConversationTypeChannel
	}
}

func mentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, match[1])
	}

	return out
}

// parseTimestamp converts a Slack "seconds.micros" timestamp.
func parseTimestamp(ts string) time.Time {
	secondsPart, microsPart, _ := strings.Cut(ts, ".")
	seconds, err := strconv.ParseInt(secondsPart, 10, 64)
	if err != nil || seconds <= 0 {
		return time.Time{}
	}
	micros, err := strconv.ParseInt(microsPart, 10, 64)
	if err != nil {
		micros = 0
	}

	return time.Unix(seconds, micros*int64(time.Microsecond)).UTC()
}
