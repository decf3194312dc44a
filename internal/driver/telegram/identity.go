package telegram

import "petit-panthere/pkg/panthere"

const (
	// DriverType is the CHAT_PLATFORM token for the Telegram runtime.
	DriverType = "telegram"
	// DriverPlatform is the neutral platform produced by the Telegram runtime.
	DriverPlatform panthere.Platform = panthere.PlatformTelegram
)

const (
	// EnvAppID holds the MTProto application id from my.telegram.org.
	EnvAppID = "TELEGRAM_APP_ID"
	// EnvAppHash holds the MTProto application hash from my.telegram.org.
	EnvAppHash = "TELEGRAM_APP_HASH"
	// EnvBotToken holds the BotFather token.
	EnvBotToken = "TELEGRAM_BOT_TOKEN"
	// EnvSessionFile optionally overrides where the MTProto session is stored.
	EnvSessionFile = "TELEGRAM_SESSION_FILE"
)
