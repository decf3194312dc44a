package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"petit-panthere/internal/bootstrap"
	"petit-panthere/internal/httpapi"
	"petit-panthere/modules/budget"
	"petit-panthere/modules/notes"
	"petit-panthere/modules/relay"
	"petit-panthere/modules/session"
	"petit-panthere/pkg/llm/config"

	"github.com/shopspring/decimal"
)

const (
	envPort        = "PORT"
	envMemoryDir   = "MEMORY_DIR"
	envStaticDir   = "STATIC_DIR"
	envBudgetLimit = "BUDGET_LIMIT_USD"

	defaultPort      = 5001
	defaultStaticDir = "."
)

type appConfig struct {
	port        int
	staticDir   string
	memoryDir   string
	budgetLimit decimal.Decimal
}

func run() error {
	if err := bootstrap.LoadDotEnv(bootstrap.DotEnvFile); err != nil {
		return err
	}

	logger, err := bootstrap.NewLogger(os.Stdout, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	cfg, err := loadConfig(os.LookupEnv)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	llmCfg, llmCfgPath, err := bootstrap.LoadLLMConfig(os.LookupEnv)
	if err != nil {
		return fmt.Errorf("load llm config: %w", err)
	}

	server, agent, err := buildServer(cfg, llmCfg, logger, os.LookupEnv, time.Now())
	if err != nil {
		return err
	}
	printBanner(os.Stdout, cfg, agent)
	logger.Info("server starting",
		"port", cfg.port,
		"agent", agent.Persona.Agent,
		"model", agent.Persona.Model,
		"llm_config", llmConfigLabel(llmCfgPath),
		"budget_limit", cfg.budgetLimit.String(),
		"memory_dir", cfg.memoryDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("run http server: %w", err)
	}

	return nil
}

func loadConfig(lookup bootstrap.LookupFunc) (appConfig, error) {
	cfg := appConfig{
		port:        defaultPort,
		staticDir:   defaultStaticDir,
		memoryDir:   notes.DefaultDir,
		budgetLimit: budget.DefaultLimit,
	}

	if raw := lookupTrimmed(lookup, envPort); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return appConfig{}, fmt.Errorf("parse %s: invalid port %q", envPort, raw)
		}
		cfg.port = port
	}
	if raw := lookupTrimmed(lookup, envStaticDir); raw != "" {
		cfg.staticDir = raw
	}
	if raw := lookupTrimmed(lookup, envMemoryDir); raw != "" {
		cfg.memoryDir = raw
	}
	if raw := lookupTrimmed(lookup, envBudgetLimit); raw != "" {
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			return appConfig{}, fmt.Errorf("parse %s: %w", envBudgetLimit, err)
		}
		if !limit.IsPositive() {
			return appConfig{}, fmt.Errorf("parse %s: must be > 0", envBudgetLimit)
		}
		cfg.budgetLimit = limit
	}

	return cfg, nil
}

func buildServer(
	cfg appConfig,
	llmCfg config.Config,
	logger *slog.Logger,
	lookup bootstrap.LookupFunc,
	now time.Time,
) (*httpapi.Server, bootstrap.Agent, error) {
	agent, err := bootstrap.ResolveAgent(llmCfg, config.AgentCompanion, lookup, now)
	if err != nil {
		return nil, bootstrap.Agent{}, err
	}
	if !agent.ProviderConfigured() {
		logger.Warn("no model credential found; chat requests will fail",
			"provider", agent.ProviderKey,
			"credential_env", agent.CredentialEnv,
		)
	}

	sessionRelay, err := relay.NewSessionRelay(
		agent.Persona,
		agent.Provider,
		session.New(),
		budget.New(budget.WithLimit(cfg.budgetLimit)),
		relay.WithNoteSink(notes.NewSink(cfg.memoryDir)),
		relay.WithSessionLogger(logger),
	)
	if err != nil {
		return nil, bootstrap.Agent{}, fmt.Errorf("build session relay: %w", err)
	}

	server, err := httpapi.New(
		sessionRelay,
		httpapi.WithAddr(":"+strconv.Itoa(cfg.port)),
		httpapi.WithStaticDir(cfg.staticDir),
		httpapi.WithLogger(logger),
	)
	if err != nil {
		return nil, bootstrap.Agent{}, fmt.Errorf("build http server: %w", err)
	}

	return server, agent, nil
}

func printBanner(w io.Writer, cfg appConfig, agent bootstrap.Agent) {
	if !agent.ProviderConfigured() {
		_, _ = fmt.Fprintf(w, "⚠️  Warning: No model API key found. Set %s env variable.\n",
			strings.Join(agent.CredentialEnv, " or "))
	}
	_, _ = fmt.Fprintln(w, "🐆 Petit Panthère Chat Server starting...")
	_, _ = fmt.Fprintf(w, "📱 Running on port %d\n\n", cfg.port)
}

func llmConfigLabel(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

func lookupTrimmed(lookup bootstrap.LookupFunc, key string) string {
	value, ok := lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
