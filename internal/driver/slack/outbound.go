package slack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"petit-panthere/pkg/panthere"

	slackapi "github.com/slack-go/slack"
)

const defaultOutboundTimeout = 10 * time.Second

type messagePoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SinkDispatcher posts neutral outbound messages through chat.postMessage.
type SinkDispatcher struct {
	poster  messagePoster
	timeout time.Duration
	logger  *slog.Logger
}

func newSinkDispatcher(poster messagePoster, logger *slog.Logger) (*SinkDispatcher, error) {
	if poster == nil {
		return nil, fmt.Errorf("new slack sink dispatcher: nil poster")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SinkDispatcher{
		poster:  poster,
		timeout: defaultOutboundTimeout,
		logger:  logger,
	}, nil
}

// SendMessage posts request.Text to the target channel.
func (d *SinkDispatcher) SendMessage(
	ctx context.Context,
	request panthere.SendMessageRequest,
) (*panthere.OutboundMessage, error) {
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("slack send message: %w", err)
	}
	if request.Target.Platform != "" && request.Target.Platform != DriverPlatform {
		return nil, fmt.Errorf("slack send message: %w: platform %s", panthere.ErrOutboundUnsupported, request.Target.Platform)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	channel, timestamp, err := d.poster.PostMessageContext(
		callCtx,
		request.Target.Conversation.ID,
		slackapi.MsgOptionText(request.Text, false),
	)
	if err != nil {
		return nil, fmt.Errorf("slack send message to %s: %w", request.Target.Conversation.ID, err)
	}
	d.logger.DebugContext(ctx, "slack outbound message", "channel", channel, "ts", timestamp)

	return &panthere.OutboundMessage{
		ID:     timestamp,
		Target: request.Target,
	}, nil
}

var _ panthere.SinkDispatcher = (*SinkDispatcher)(nil)
