package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"petit-panthere/pkg/panthere"
)

// DriverOption mutates Telegram driver configuration.
type DriverOption func(*Driver)

// WithName configures the driver identity.
func WithName(name string) DriverOption {
	return func(driver *Driver) {
		if name != "" {
			driver.name = name
		}
	}
}

// WithLogger configures driver logging.
func WithLogger(logger *slog.Logger) DriverOption {
	return func(driver *Driver) {
		if logger != nil {
			driver.logger = logger
		}
	}
}

// Driver adapts Telegram updates into neutral events.
type Driver struct {
	name   string
	source UpdateSource
	logger *slog.Logger
}

// NewDriver creates a Telegram driver over source.
func NewDriver(source UpdateSource, options ...DriverOption) (*Driver, error) {
	if source == nil {
		return nil, fmt.Errorf("new telegram driver: nil source")
	}

	driver := &Driver{
		name:   DriverType,
		source: source,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(driver)
	}

	return driver, nil
}

// Name returns the stable driver identifier.
func (d *Driver) Name() string {
	return d.name
}

// Start consumes updates and runs handler for each message in its own
// goroutine. It returns once the source stops and in-flight handlers finish.
func (d *Driver) Start(ctx context.Context, handler panthere.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("start telegram driver: nil handler")
	}

	var handlers sync.WaitGroup
	defer handlers.Wait()

	err := d.source.Consume(ctx, func(handlerCtx context.Context, update Update) error {
		event := decodeUpdate(update)
		handlers.Add(1)
		go func() {
			defer handlers.Done()
			if err := handler(handlerCtx, event); err != nil {
				d.logger.Error("telegram event handler failed", "event_id", event.ID, "error", err)
			}
		}()
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return fmt.Errorf("start telegram driver: consume updates: %w", err)
	}

	return nil
}

func decodeUpdate(update Update) *panthere.Event {
	return &panthere.Event{
		ID:         update.ID,
		OccurredAt: update.OccurredAt,
		Platform:   DriverPlatform,
		Conversation: panthere.Conversation{
			ID:   update.Chat.ID,
			Type: update.Chat.Type,
		},
		Actor: panthere.Actor{
			ID:       update.Actor.ID,
			Username: update.Actor.Username,
			IsBot:    update.Actor.IsBot,
		},
		Self: panthere.Actor{
			ID:       update.Self.ID,
			Username: update.Self.Username,
			IsBot:    true,
		},
		Text:     update.Text,
		Mentions: update.Mentions,
	}
}

var _ panthere.Driver = (*Driver)(nil)
