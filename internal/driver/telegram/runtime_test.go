package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"petit-panthere/internal/driver/credential"
	"petit-panthere/pkg/panthere"

	"github.com/gotd/td/tg"
)

func TestConfigFromEnv(t *testing.T) {
	t.Parallel()

	full := map[string]string{
		EnvAppID:    "12345",
		EnvAppHash:  "hash",
		EnvBotToken: "123:abc",
	}

	tests := []struct {
		name        string
		env         map[string]string
		override    map[string]string
		want        Config
		wantMissing string
		wantErr     bool
	}{
		{
			name: "defaults session file",
			env:  full,
			want: Config{AppID: 12345, AppHash: "hash", BotToken: "123:abc", SessionFile: defaultSessionFile},
		},
		{
			name:     "custom session file",
			env:      full,
			override: map[string]string{EnvSessionFile: "/var/lib/panthere/tg.json"},
			want:     Config{AppID: 12345, AppHash: "hash", BotToken: "123:abc", SessionFile: "/var/lib/panthere/tg.json"},
		},
		{
			name:        "missing bot token",
			env:         full,
			override:    map[string]string{EnvBotToken: "  "},
			wantMissing: EnvBotToken,
			wantErr:     true,
		},
		{
			name:        "missing app id",
			env:         map[string]string{},
			wantMissing: EnvAppID,
			wantErr:     true,
		},
		{
			name:     "invalid app id",
			env:      full,
			override: map[string]string{EnvAppID: "abc"},
			wantErr:  true,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			env := make(map[string]string)
			for key, value := range testCase.env {
				env[key] = value
			}
			for key, value := range testCase.override {
				env[key] = value
			}

			cfg, err := ConfigFromEnv(func(key string) (string, bool) {
				value, ok := env[key]
				return value, ok
			})
			if (err != nil) != testCase.wantErr {
				t.Fatalf("ConfigFromEnv() error = %v, wantErr %v", err, testCase.wantErr)
			}
			if testCase.wantMissing != "" {
				var missing *credential.MissingError
				if !errors.As(err, &missing) || missing.Variable != testCase.wantMissing {
					t.Fatalf("ConfigFromEnv() error = %v, want missing %s", err, testCase.wantMissing)
				}
			}
			if err == nil && cfg != testCase.want {
				t.Fatalf("ConfigFromEnv() = %+v, want %+v", cfg, testCase.want)
			}
		})
	}
}

func TestBuildRuntime(t *testing.T) {
	t.Parallel()

	if _, _, err := BuildRuntime("telegram", nil, Config{}); err == nil {
		t.Fatal("BuildRuntime(empty config) error = nil")
	}

	sessionFile := filepath.Join(t.TempDir(), "nested", "session.json")
	driver, sink, err := BuildRuntime("tg-main", nil, Config{
		AppID:       1,
		AppHash:     "hash",
		BotToken:    "123:abc",
		SessionFile: sessionFile,
	})
	if err != nil {
		t.Fatalf("BuildRuntime() error = %v", err)
	}
	if driver == nil || sink == nil {
		t.Fatal("BuildRuntime() returned nil runtime parts")
	}
	if driver.Name() != "tg-main" {
		t.Fatalf("driver.Name() = %q", driver.Name())
	}
}

type runnerStub struct {
	err error
}

func (s runnerStub) Run(ctx context.Context, fn func(context.Context) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(ctx)
}

func TestGotdBotSourceConsume(t *testing.T) {
	t.Parallel()

	stream := NewGotdUpdateChannel(4)
	mapper := NewGotdUpdateMapper(NewPeerCache())
	source := &GotdBotSource{
		client: runnerStub{},
		stream: stream,
		mapper: mapper,
		logger: discardLogger(),
	}

	batch := &tg.Updates{
		Users: []tg.UserClass{&tg.User{ID: 42, AccessHash: 1, FirstName: "Denise"}},
		Updates: []tg.UpdateClass{
			&tg.UpdateDeleteMessages{Messages: []int{1}},
			&tg.UpdateNewMessage{Message: &tg.Message{ID: 5, PeerID: &tg.PeerUser{UserID: 42}, Message: "hello"}},
		},
	}
	if err := stream.Handle(context.Background(), batch); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received []Update
	err := source.Consume(ctx, func(_ context.Context, update Update) error {
		received = append(received, update)
		cancel()
		return nil
	})
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("received %d updates, want 1", len(received))
	}
	if received[0].ID != "tg:42:5" || received[0].Chat.Type != panthere.ConversationTypePrivate {
		t.Fatalf("update = %+v", received[0])
	}
}

func TestGotdBotSourceConsumeErrors(t *testing.T) {
	t.Parallel()

	source := &GotdBotSource{
		client: runnerStub{err: errors.New("dial failed")},
		stream: NewGotdUpdateChannel(1),
		mapper: NewGotdUpdateMapper(nil),
		logger: discardLogger(),
	}
	if err := source.Consume(context.Background(), func(context.Context, Update) error { return nil }); err == nil {
		t.Fatal("Consume() error = nil, want runner error")
	}
	if err := source.Consume(context.Background(), nil); err == nil {
		t.Fatal("Consume(nil handler) error = nil")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
