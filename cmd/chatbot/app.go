package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"petit-panthere/internal/bootstrap"
	"petit-panthere/internal/driver"
	"petit-panthere/internal/driver/credential"
	"petit-panthere/modules/chatbot"
	"petit-panthere/modules/relay"
	"petit-panthere/pkg/llm/config"
)

const (
	envChatPlatform     = "CHAT_PLATFORM"
	defaultChatPlatform = "slack"

	anthropicConsoleHint = "Get it from: https://console.anthropic.com/"
)

type app struct {
	runtimes []driver.Runtime
	handler  *chatbot.Handler
	agent    bootstrap.Agent
	logger   *slog.Logger
}

func run() error {
	if err := bootstrap.LoadDotEnv(bootstrap.DotEnvFile); err != nil {
		return err
	}

	logger, err := bootstrap.NewLogger(os.Stdout, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	llmCfg, _, err := bootstrap.LoadLLMConfig(os.LookupEnv)
	if err != nil {
		return fmt.Errorf("load llm config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := prepare(ctx, llmCfg, os.LookupEnv, logger, time.Now())
	if err != nil {
		return err
	}
	printBanner(os.Stdout, application.runtimes)

	return application.run(ctx)
}

// prepare validates credentials and wires drivers, relay, and handler without
// connecting anywhere. Platform credentials are checked before the model
// credential.
func prepare(
	ctx context.Context,
	llmCfg config.Config,
	lookup bootstrap.LookupFunc,
	logger *slog.Logger,
	now time.Time,
) (*app, error) {
	registry, err := driver.NewBuiltinRegistry()
	if err != nil {
		return nil, fmt.Errorf("new builtin driver registry: %w", err)
	}

	rawPlatforms := credential.Optional(credential.LookupFunc(lookup), envChatPlatform)
	if rawPlatforms == "" {
		rawPlatforms = defaultChatPlatform
	}
	definitions, err := driver.ParseDefinitions(rawPlatforms)
	if err != nil {
		return nil, err
	}
	for _, definition := range definitions {
		if _, err := registry.PlatformForType(definition.Type); err != nil {
			return nil, fmt.Errorf("%s: %w", envChatPlatform, err)
		}
	}

	runtimes, err := registry.Build(ctx, definitions, credential.LookupFunc(lookup), logger)
	if err != nil {
		return nil, err
	}

	agent, err := bootstrap.ResolveAgent(llmCfg, config.AgentDemo, lookup, now)
	if err != nil {
		return nil, err
	}
	if !agent.ProviderConfigured() {
		return nil, missingModelCredential(llmCfg, agent)
	}

	directRelay, err := relay.NewDirectRelay(agent.Persona, agent.Provider)
	if err != nil {
		return nil, fmt.Errorf("build direct relay: %w", err)
	}
	dispatcher, err := driver.NewCompositeSinkDispatcher(runtimes)
	if err != nil {
		return nil, fmt.Errorf("build sink dispatcher: %w", err)
	}
	handler, err := chatbot.New(directRelay, dispatcher, chatbot.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("build chatbot handler: %w", err)
	}

	return &app{
		runtimes: runtimes,
		handler:  handler,
		agent:    agent,
		logger:   logger,
	}, nil
}

func (a *app) run(ctx context.Context) error {
	a.logger.Info("chatbot starting",
		"agent", a.agent.Persona.Agent,
		"model", a.agent.Persona.Model,
		"drivers", len(a.runtimes),
	)

	if err := driver.Run(ctx, a.runtimes, a.handler.Handle, driver.WithRunLogger(a.logger)); err != nil {
		return fmt.Errorf("run drivers: %w", err)
	}

	return nil
}

func missingModelCredential(llmCfg config.Config, agent bootstrap.Agent) *credential.MissingError {
	variable := agent.ProviderKey + " api key"
	if len(agent.CredentialEnv) > 0 {
		variable = agent.CredentialEnv[0]
	}

	var hints []string
	if llmCfg.Providers[agent.ProviderKey].Type == config.ProviderTypeAnthropic {
		hints = append(hints, anthropicConsoleHint)
	}

	return &credential.MissingError{Variable: variable, Hints: hints}
}

func printMissingCredential(w io.Writer, missing *credential.MissingError) {
	_, _ = fmt.Fprintf(w, "❌ Error: %s\n", missing.Error())
	for _, hint := range missing.Hints {
		_, _ = fmt.Fprintln(w, hint)
	}
}

func printBanner(w io.Writer, runtimes []driver.Runtime) {
	names := make([]string, 0, len(runtimes))
	for _, runtime := range runtimes {
		names = append(names, platformTitle(string(runtime.Platform)))
	}

	_, _ = fmt.Fprintln(w, "🐆 Petit Panthère starting...")
	_, _ = fmt.Fprintf(w, "Connecting to %s...\n", strings.Join(names, ", "))
}

func platformTitle(platform string) string {
	if platform == "" {
		return platform
	}
	return strings.ToUpper(platform[:1]) + platform[1:]
}
