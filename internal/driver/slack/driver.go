package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"petit-panthere/pkg/panthere"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// socketClient is the Socket Mode surface the driver consumes.
type socketClient interface {
	RunContext(ctx context.Context) error
	Ack(req socketmode.Request, payload ...any)
	Events() <-chan socketmode.Event
}

// identityClient resolves the bot's own identity.
type identityClient interface {
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
}

type socketModeAdapter struct {
	client *socketmode.Client
}

func (a socketModeAdapter) RunContext(ctx context.Context) error {
	return a.client.RunContext(ctx)
}

func (a socketModeAdapter) Ack(req socketmode.Request, payload ...any) {
	a.client.Ack(req, payload...)
}

func (a socketModeAdapter) Events() <-chan socketmode.Event {
	return a.client.Events
}

// DriverOption mutates Slack driver configuration.
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

// Driver adapts Slack Socket Mode events into neutral events.
type Driver struct {
	name     string
	socket   socketClient
	identity identityClient
	logger   *slog.Logger
}

func newDriver(socket socketClient, identity identityClient, options ...DriverOption) (*Driver, error) {
	if socket == nil {
		return nil, fmt.Errorf("new slack driver: nil socket client")
	}
	if identity == nil {
		return nil, fmt.Errorf("new slack driver: nil identity client")
	}

	driver := &Driver{
		name:     DriverType,
		socket:   socket,
		identity: identity,
		logger:   slog.Default(),
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

// Start resolves the bot identity, connects Socket Mode and dispatches every
// accepted message to handler in its own goroutine. It returns after ctx is
// canceled and all in-flight handlers finished.
func (d *Driver) Start(ctx context.Context, handler panthere.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("start slack driver: nil handler")
	}

	auth, err := d.identity.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("start slack driver: auth test: %w", err)
	}
	self := Self{UserID: auth.UserID, User: auth.User, BotID: auth.BotID}
	d.logger.Info("slack identity resolved", "user_id", self.UserID, "user", self.User, "team", auth.Team)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- d.socket.RunContext(runCtx)
	}()

	var handlers sync.WaitGroup
	defer handlers.Wait()

	events := d.socket.Events()
	for {
		select {
		case <-ctx.Done():
			cancel()
			return d.awaitRun(runErr)
		case err := <-runErr:
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("start slack driver: socket mode: %w", err)
		case evt, ok := <-events:
			if !ok {
				cancel()
				return d.awaitRun(runErr)
			}
			if err := d.handleSocketEvent(runCtx, evt, self, handler, &handlers); err != nil {
				cancel()
				_ = d.awaitRun(runErr)
				return fmt.Errorf("start slack driver: %w", err)
			}
		}
	}
}

func (d *Driver) awaitRun(runErr <-chan error) error {
	err := <-runErr
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}

	return fmt.Errorf("start slack driver: socket mode: %w", err)
}

func (d *Driver) handleSocketEvent(
	ctx context.Context,
	evt socketmode.Event,
	self Self,
	handler panthere.EventHandler,
	handlers *sync.WaitGroup,
) error {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		d.logger.Info("slack socket mode connecting")
		return nil
	case socketmode.EventTypeConnected:
		d.logger.Info("slack socket mode connected")
		return nil
	case socketmode.EventTypeConnectionError:
		d.logger.Warn("slack socket mode connection error", "data", evt.Data)
		return nil
	case socketmode.EventTypeInvalidAuth:
		return fmt.Errorf("socket mode: invalid auth")
	case socketmode.EventTypeInteractive, socketmode.EventTypeSlashCommand:
		d.ack(evt)
		return nil
	case socketmode.EventTypeEventsAPI:
	default:
		return nil
	}

	// Acknowledge before any processing so Slack does not redeliver.
	d.ack(evt)

	apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok || apiEvent.Type != slackevents.CallbackEvent {
		return nil
	}
	message, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return nil
	}
	event, ok := decodeMessage(message, self)
	if !ok {
		return nil
	}

	handlers.Add(1)
	go func() {
		defer handlers.Done()
		if err := handler(ctx, event); err != nil {
			d.logger.Error("slack event handler failed", "event_id", event.ID, "error", err)
		}
	}()

	return nil
}

func (d *Driver) ack(evt socketmode.Event) {
	if evt.Request == nil {
		return
	}
	d.socket.Ack(*evt.Request)
}

var _ panthere.Driver = (*Driver)(nil)
