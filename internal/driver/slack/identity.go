package slack

import "petit-panthere/pkg/panthere"

const (
	// DriverType is the CHAT_PLATFORM token for the Slack runtime.
	DriverType = "slack"
	// DriverPlatform is the neutral platform produced by the Slack runtime.
	DriverPlatform panthere.Platform = panthere.PlatformSlack
)

const (
	// EnvBotToken holds the xoxb- bot token used for the Web API.
	EnvBotToken = "SLACK_BOT_TOKEN"
	// EnvAppToken holds the xapp- app-level token used for Socket Mode.
	EnvAppToken = "SLACK_APP_TOKEN"
)
