package driver

import (
	"context"
	"errors"
	"slices"
	"testing"

	"petit-panthere/internal/driver/credential"
	"petit-panthere/internal/driver/slack"
	"petit-panthere/internal/driver/telegram"
)

func TestNewBuiltinRegistryIncludesPlatforms(t *testing.T) {
	t.Parallel()

	registry, err := NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("NewBuiltinRegistry() error = %v", err)
	}
	if got := registry.Types(); !slices.Equal(got, []string{slack.DriverType, telegram.DriverType}) {
		t.Fatalf("Types() = %v", got)
	}

	for _, driverType := range []string{slack.DriverType, telegram.DriverType} {
		if _, err := registry.PlatformForType(driverType); err != nil {
			t.Fatalf("PlatformForType(%s) error = %v", driverType, err)
		}
	}
	if _, err := registry.PlatformForType("discord"); err == nil {
		t.Fatal("PlatformForType(discord) error = nil")
	}
}

func TestBuiltinRegistryReportsMissingCredentials(t *testing.T) {
	t.Parallel()

	registry, err := NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("NewBuiltinRegistry() error = %v", err)
	}

	tests := []struct {
		name        string
		definition  Definition
		wantMissing string
	}{
		{name: "slack", definition: Definition{Name: "slack", Type: slack.DriverType}, wantMissing: slack.EnvBotToken},
		{name: "telegram", definition: Definition{Name: "telegram", Type: telegram.DriverType}, wantMissing: telegram.EnvAppID},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := registry.Build(context.Background(), []Definition{testCase.definition}, emptyLookup, nil)
			var missing *credential.MissingError
			if !errors.As(err, &missing) || missing.Variable != testCase.wantMissing {
				t.Fatalf("Build() error = %v, want missing %s", err, testCase.wantMissing)
			}
			if len(missing.Hints) == 0 {
				t.Fatal("missing credential has no hints")
			}
		})
	}
}

func TestBuiltinRegistryBuildsSlack(t *testing.T) {
	t.Parallel()

	registry, err := NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("NewBuiltinRegistry() error = %v", err)
	}
	env := map[string]string{
		slack.EnvBotToken: "xoxb-test",
		slack.EnvAppToken: "xapp-test",
	}
	runtimes, err := registry.Build(context.Background(), []Definition{{Name: "slack", Type: slack.DriverType}}, func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(runtimes) != 1 || runtimes[0].Driver == nil || runtimes[0].SinkDispatcher == nil {
		t.Fatalf("runtimes = %+v", runtimes)
	}
	if runtimes[0].Platform != slack.DriverPlatform {
		t.Fatalf("Platform = %q", runtimes[0].Platform)
	}
}

func emptyLookup(string) (string, bool) {
	return "", false
}
