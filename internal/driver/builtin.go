package driver

import (
	"context"
	"fmt"
	"log/slog"

	"petit-panthere/internal/driver/credential"
	"petit-panthere/internal/driver/slack"
	"petit-panthere/internal/driver/telegram"
)

// NewBuiltinRegistry constructs the runtime registry with all built-in drivers.
func NewBuiltinRegistry() (*Registry, error) {
	return NewRegistry([]Descriptor{
		{
			Type:     slack.DriverType,
			Platform: slack.DriverPlatform,
			Builder:  buildSlackRuntime,
		},
		{
			Type:     telegram.DriverType,
			Platform: telegram.DriverPlatform,
			Builder:  buildTelegramRuntime,
		},
	})
}

func buildSlackRuntime(
	_ context.Context,
	definition Definition,
	lookup credential.LookupFunc,
	logger *slog.Logger,
) (Runtime, error) {
	cfg, err := slack.ConfigFromEnv(lookup)
	if err != nil {
		return Runtime{}, err
	}
	runtimeDriver, sinkDispatcher, err := slack.BuildRuntime(definition.Name, logger, cfg)
	if err != nil {
		return Runtime{}, fmt.Errorf("build slack runtime: %w", err)
	}

	return Runtime{
		Name:           definition.Name,
		Platform:       slack.DriverPlatform,
		Driver:         runtimeDriver,
		SinkDispatcher: sinkDispatcher,
	}, nil
}

func buildTelegramRuntime(
	_ context.Context,
	definition Definition,
	lookup credential.LookupFunc,
	logger *slog.Logger,
) (Runtime, error) {
	cfg, err := telegram.ConfigFromEnv(lookup)
	if err != nil {
		return Runtime{}, err
	}
	runtimeDriver, sinkDispatcher, err := telegram.BuildRuntime(definition.Name, logger, cfg)
	if err != nil {
		return Runtime{}, fmt.Errorf("build telegram runtime: %w", err)
	}

	return Runtime{
		Name:           definition.Name,
		Platform:       telegram.DriverPlatform,
		Driver:         runtimeDriver,
		SinkDispatcher: sinkDispatcher,
	}, nil
}
