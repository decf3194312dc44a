package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"petit-panthere/pkg/panthere"

	"github.com/gotd/td/crypto"
	gotdtelegram "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message/unpack"
	"github.com/gotd/td/tg"
)

const defaultOutboundTimeout = 10 * time.Second

type outboundRPC interface {
	SendText(ctx context.Context, peer tg.InputPeerClass, text string) (int, error)
}

// SinkDispatcher adapts neutral outbound messages to Telegram RPC calls.
type SinkDispatcher struct {
	rpc     outboundRPC
	peers   *PeerCache
	timeout time.Duration
	logger  *slog.Logger
}

func newSinkDispatcher(rpc outboundRPC, peers *PeerCache, logger *slog.Logger) (*SinkDispatcher, error) {
	if rpc == nil {
		return nil, fmt.Errorf("new telegram sink dispatcher: nil rpc adapter")
	}
	if peers == nil {
		return nil, fmt.Errorf("new telegram sink dispatcher: nil peer cache")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SinkDispatcher{
		rpc:     rpc,
		peers:   peers,
		timeout: defaultOutboundTimeout,
		logger:  logger,
	}, nil
}

// SendMessage publishes a text message to a Telegram conversation.
func (d *SinkDispatcher) SendMessage(
	ctx context.Context,
	request panthere.SendMessageRequest,
) (*panthere.OutboundMessage, error) {
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("telegram send message: %w", err)
	}
	if request.Target.Platform != "" && request.Target.Platform != DriverPlatform {
		return nil, fmt.Errorf("telegram send message: %w: platform %s", panthere.ErrOutboundUnsupported, request.Target.Platform)
	}

	peer, err := d.peers.Resolve(request.Target.Conversation)
	if err != nil {
		return nil, fmt.Errorf("telegram send message: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	messageID, err := d.rpc.SendText(callCtx, peer, request.Text)
	if err != nil {
		return nil, fmt.Errorf("telegram send message to %s: %w", request.Target.Conversation.ID, err)
	}
	d.logger.DebugContext(ctx, "telegram outbound message",
		"conversation_id", request.Target.Conversation.ID,
		"message_id", messageID,
	)

	return &panthere.OutboundMessage{
		ID:     strconv.Itoa(messageID),
		Target: request.Target,
	}, nil
}

type gotdOutboundRPC struct {
	raw  *tg.Client
	rand io.Reader
}

func newGotdOutboundRPC(client *gotdtelegram.Client) gotdOutboundRPC {
	return gotdOutboundRPC{
		raw:  client.API(),
		rand: crypto.DefaultRand(),
	}
}

func (r gotdOutboundRPC) SendText(ctx context.Context, peer tg.InputPeerClass, text string) (int, error) {
	randomID, err := crypto.RandInt64(r.rand)
	if err != nil {
		return 0, fmt.Errorf("send text random id: %w", err)
	}

	updates, err := r.raw.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  text,
		RandomID: randomID,
	})
	if err != nil {
		return 0, fmt.Errorf("send text: %w", err)
	}

	messageID, err := unpack.MessageID(updates, nil)
	if err != nil {
		return 0, fmt.Errorf("extract sent message id: %w", err)
	}

	return messageID, nil
}

var _ panthere.SinkDispatcher = (*SinkDispatcher)(nil)
