package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"petit-panthere/internal/bootstrap"
	"petit-panthere/internal/driver"
	"petit-panthere/internal/driver/credential"
	"petit-panthere/pkg/llm/config"
	"petit-panthere/pkg/panthere"
)

func lookupFrom(env map[string]string) bootstrap.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPrepareReportsMissingCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		env         map[string]string
		wantMissing string
		wantHints   []string
	}{
		{
			name:        "slack bot token first",
			env:         map[string]string{},
			wantMissing: "SLACK_BOT_TOKEN",
			wantHints:   []string{"Get it from: https://api.slack.com/apps → OAuth & Permissions"},
		},
		{
			name:        "slack app token",
			env:         map[string]string{"SLACK_BOT_TOKEN": "xoxb-1"},
			wantMissing: "SLACK_APP_TOKEN",
			wantHints: []string{
				"Get it from: https://api.slack.com/apps → Basic Information → App-Level Tokens",
				"Make sure Socket Mode is enabled!",
			},
		},
		{
			name:        "model credential last",
			env:         map[string]string{"SLACK_BOT_TOKEN": "xoxb-1", "SLACK_APP_TOKEN": "xapp-1"},
			wantMissing: "CLAUDE_API_KEY",
			wantHints:   []string{anthropicConsoleHint},
		},
		{
			name:        "telegram platform",
			env:         map[string]string{envChatPlatform: "telegram"},
			wantMissing: "TELEGRAM_APP_ID",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := prepare(context.Background(), config.Default(), lookupFrom(testCase.env), discardLogger(), time.Now())
			var missing *credential.MissingError
			if !errors.As(err, &missing) {
				t.Fatalf("prepare() error = %v, want *credential.MissingError", err)
			}
			if missing.Variable != testCase.wantMissing {
				t.Fatalf("missing = %s, want %s", missing.Variable, testCase.wantMissing)
			}
			if testCase.wantHints != nil && strings.Join(missing.Hints, "|") != strings.Join(testCase.wantHints, "|") {
				t.Fatalf("hints = %q, want %q", missing.Hints, testCase.wantHints)
			}
		})
	}
}

func TestPrepareRejectsUnknownPlatform(t *testing.T) {
	t.Parallel()

	_, err := prepare(
		context.Background(),
		config.Default(),
		lookupFrom(map[string]string{envChatPlatform: "discord"}),
		discardLogger(),
		time.Now(),
	)
	if err == nil || !strings.Contains(err.Error(), envChatPlatform) {
		t.Fatalf("prepare() error = %v, want CHAT_PLATFORM error", err)
	}
}

func TestPrepareWiresSlack(t *testing.T) {
	t.Parallel()

	application, err := prepare(
		context.Background(),
		config.Default(),
		lookupFrom(map[string]string{
			"SLACK_BOT_TOKEN":   "xoxb-1",
			"SLACK_APP_TOKEN":   "xapp-1",
			"ANTHROPIC_API_KEY": "sk-ant-test",
		}),
		discardLogger(),
		time.Now(),
	)
	if err != nil {
		t.Fatalf("prepare() error = %v", err)
	}
	if len(application.runtimes) != 1 || application.runtimes[0].Platform != panthere.PlatformSlack {
		t.Fatalf("runtimes = %+v", application.runtimes)
	}
	if application.agent.Persona.Agent != config.AgentDemo {
		t.Fatalf("agent = %q, want %q", application.agent.Persona.Agent, config.AgentDemo)
	}
	if application.handler == nil {
		t.Fatal("handler is nil")
	}
}

func TestPrintMissingCredential(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printMissingCredential(&out, &credential.MissingError{
		Variable: "SLACK_APP_TOKEN",
		Hints:    []string{"Get it from: somewhere", "Make sure Socket Mode is enabled!"},
	})

	want := "❌ Error: SLACK_APP_TOKEN not set\nGet it from: somewhere\nMake sure Socket Mode is enabled!\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestPrintBanner(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printBanner(&out, []driver.Runtime{
		{Platform: panthere.PlatformSlack},
		{Platform: panthere.PlatformTelegram},
	})

	if !strings.Contains(out.String(), "Connecting to Slack, Telegram...") {
		t.Fatalf("banner = %q", out.String())
	}
}
