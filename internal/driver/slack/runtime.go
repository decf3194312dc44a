package slack

import (
	"fmt"
	"log/slog"

	"petit-panthere/internal/driver/credential"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// Config carries the two tokens a Socket Mode bot needs.
type Config struct {
	BotToken string
	AppToken string
}

// ConfigFromEnv reads SLACK_BOT_TOKEN and SLACK_APP_TOKEN.
func ConfigFromEnv(lookup credential.LookupFunc) (Config, error) {
	botToken, err := credential.Require(lookup, EnvBotToken,
		"Get it from: https://api.slack.com/apps → OAuth & Permissions",
	)
	if err != nil {
		return Config{}, fmt.Errorf("slack config: %w", err)
	}
	appToken, err := credential.Require(lookup, EnvAppToken,
		"Get it from: https://api.slack.com/apps → Basic Information → App-Level Tokens",
		"Make sure Socket Mode is enabled!",
	)
	if err != nil {
		return Config{}, fmt.Errorf("slack config: %w", err)
	}

	return Config{BotToken: botToken, AppToken: appToken}, nil
}

// BuildRuntime builds the Slack driver and its outbound sink sharing one Web API client.
func BuildRuntime(name string, logger *slog.Logger, cfg Config) (*Driver, *SinkDispatcher, error) {
	if cfg.BotToken == "" || cfg.AppToken == "" {
		return nil, nil, fmt.Errorf("build slack runtime: bot and app tokens are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	sdkLog := slog.NewLogLogger(logger.With("driver", name).Handler(), slog.LevelDebug)
	api := slackapi.New(
		cfg.BotToken,
		slackapi.OptionAppLevelToken(cfg.AppToken),
		slackapi.OptionLog(sdkLog),
	)
	socket := socketmode.New(api, socketmode.OptionLog(sdkLog))

	driver, err := newDriver(
		socketModeAdapter{client: socket},
		api,
		WithName(name),
		WithLogger(logger.With("driver", name)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build slack runtime: %w", err)
	}
	sink, err := newSinkDispatcher(api, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build slack runtime: %w", err)
	}

	return driver, sink, nil
}
