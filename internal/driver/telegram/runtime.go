package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"petit-panthere/internal/driver/credential"

	"github.com/gotd/td/session"
	gotdtelegram "github.com/gotd/td/telegram"
)

const (
	defaultSessionFile = ".cache/telegram/session.json"
	defaultAuthTimeout = time.Minute
)

// Config carries the MTProto application credentials and bot token.
type Config struct {
	AppID       int
	AppHash     string
	BotToken    string
	SessionFile string
}

// ConfigFromEnv reads TELEGRAM_APP_ID, TELEGRAM_APP_HASH, TELEGRAM_BOT_TOKEN
// and the optional TELEGRAM_SESSION_FILE.
func ConfigFromEnv(lookup credential.LookupFunc) (Config, error) {
	rawAppID, err := credential.Require(lookup, EnvAppID, "Get it from: https://my.telegram.org → API development tools")
	if err != nil {
		return Config{}, fmt.Errorf("telegram config: %w", err)
	}
	appID, err := strconv.Atoi(rawAppID)
	if err != nil || appID <= 0 {
		return Config{}, fmt.Errorf("telegram config: %s must be a positive integer", EnvAppID)
	}
	appHash, err := credential.Require(lookup, EnvAppHash, "Get it from: https://my.telegram.org → API development tools")
	if err != nil {
		return Config{}, fmt.Errorf("telegram config: %w", err)
	}
	botToken, err := credential.Require(lookup, EnvBotToken, "Get it from: @BotFather → /newbot")
	if err != nil {
		return Config{}, fmt.Errorf("telegram config: %w", err)
	}

	sessionFile := credential.Optional(lookup, EnvSessionFile)
	if sessionFile == "" {
		sessionFile = defaultSessionFile
	}

	return Config{
		AppID:       appID,
		AppHash:     appHash,
		BotToken:    botToken,
		SessionFile: sessionFile,
	}, nil
}

// BuildRuntime builds the Telegram driver and its outbound sink sharing one MTProto client.
func BuildRuntime(name string, logger *slog.Logger, cfg Config) (*Driver, *SinkDispatcher, error) {
	if cfg.AppID <= 0 || cfg.AppHash == "" || cfg.BotToken == "" {
		return nil, nil, fmt.Errorf("build telegram runtime: app id, app hash and bot token are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("driver", name)

	storage, err := newSessionStorage(cfg.SessionFile)
	if err != nil {
		return nil, nil, fmt.Errorf("build telegram runtime: %w", err)
	}

	updates := NewGotdUpdateChannel(0)
	client := gotdtelegram.NewClient(cfg.AppID, cfg.AppHash, gotdtelegram.Options{
		UpdateHandler:  updates,
		SessionStorage: storage,
	})

	peers := NewPeerCache()
	mapper := NewGotdUpdateMapper(peers)
	source := &GotdBotSource{
		client: gotdBotClient{
			client:   client,
			botToken: cfg.BotToken,
			mapper:   mapper,
			logger:   logger,
		},
		stream: updates,
		mapper: mapper,
		logger: logger,
	}

	driver, err := NewDriver(source, WithName(name), WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("build telegram runtime: %w", err)
	}
	sink, err := newSinkDispatcher(newGotdOutboundRPC(client), peers, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build telegram runtime: %w", err)
	}

	return driver, sink, nil
}

func newSessionStorage(path string) (*session.FileStorage, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve session file path: %w", err)
	}
	sessionDir := filepath.Dir(absPath)
	if err := os.MkdirAll(sessionDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory %s: %w", sessionDir, err)
	}

	return &session.FileStorage{Path: absPath}, nil
}

// sessionRunner runs fn inside an authenticated MTProto session.
type sessionRunner interface {
	Run(ctx context.Context, fn func(runCtx context.Context) error) error
}

// GotdBotSource runs a gotd bot session and forwards mapped updates.
type GotdBotSource struct {
	client sessionRunner
	stream *GotdUpdateChannel
	mapper *GotdUpdateMapper
	logger *slog.Logger
}

// Consume runs the session until ctx is canceled.
func (s *GotdBotSource) Consume(ctx context.Context, handler UpdateHandler) error {
	if handler == nil {
		return fmt.Errorf("consume gotd bot updates: nil handler")
	}

	err := s.client.Run(ctx, func(runCtx context.Context) error {
		updates := s.stream.Updates()
		for {
			select {
			case <-runCtx.Done():
				return nil
			case envelope := <-updates:
				mapped, accepted, err := s.mapSafely(envelope)
				if err != nil {
					s.logger.Warn("skip telegram update", "update", envelope.updateClass, "error", err)
					continue
				}
				if !accepted {
					continue
				}
				if err := handler(runCtx, mapped); err != nil {
					return fmt.Errorf("consume gotd update %s: %w", mapped.ID, err)
				}
			}
		}
	})
	if err != nil {
		return fmt.Errorf("consume gotd bot updates: %w", err)
	}

	return nil
}

// mapSafely isolates mapper panics so one bad update cannot crash the process.
func (s *GotdBotSource) mapSafely(envelope gotdUpdateEnvelope) (mapped Update, accepted bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("map gotd update panic: %v", recovered)
		}
	}()

	return s.mapper.Map(envelope)
}

type gotdBotClient struct {
	client   *gotdtelegram.Client
	botToken string
	mapper   *GotdUpdateMapper
	logger   *slog.Logger
}

// Run connects, logs in with the bot token when the stored session is not
// authorized, records the bot identity and then runs fn.
func (c gotdBotClient) Run(ctx context.Context, fn func(runCtx context.Context) error) error {
	return c.client.Run(ctx, func(runCtx context.Context) error {
		if err := c.authenticate(runCtx); err != nil {
			return fmt.Errorf("authenticate telegram bot: %w", err)
		}

		return fn(runCtx)
	})
}

func (c gotdBotClient) authenticate(ctx context.Context) error {
	authCtx, cancel := context.WithTimeout(ctx, defaultAuthTimeout)
	defer cancel()

	status, err := c.client.Auth().Status(authCtx)
	if err != nil {
		return fmt.Errorf("check auth status: %w", err)
	}
	if !status.Authorized {
		if _, err := c.client.Auth().Bot(authCtx, c.botToken); err != nil {
			return fmt.Errorf("bot login: %w", err)
		}
	}

	self, err := c.client.Self(authCtx)
	if err != nil {
		return fmt.Errorf("resolve self: %w", err)
	}
	ref := actorFromUser(self)
	c.mapper.SetSelf(ref)
	c.logger.Info("telegram bot authorized", "user_id", ref.ID, "username", ref.Username)

	return nil
}
