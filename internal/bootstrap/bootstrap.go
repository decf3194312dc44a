// Package bootstrap holds process setup shared by the server and chatbot
// binaries: .env loading, logger construction, and agent resolution.
package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"petit-panthere/modules/relay"
	"petit-panthere/pkg/llm"
	"petit-panthere/pkg/llm/config"
	"petit-panthere/pkg/panthere"

	"github.com/joho/godotenv"
)

const (
	// EnvLLMConfig points at an LLM configuration file.
	EnvLLMConfig = "PANTHERE_LLM_CONFIG"
	// EnvLogLevel selects the minimum log level.
	EnvLogLevel = "LOG_LEVEL"
	// DotEnvFile is loaded at startup when present.
	DotEnvFile = ".env"
)

var llmConfigCandidates = []string{"config/llm.json", "config/llm.yaml", "config/llm.yml"}

// LookupFunc reports one environment value, matching os.LookupEnv.
type LookupFunc func(string) (string, bool)

// LoadDotEnv loads path into the process environment when the file exists.
// Variables already set are left untouched.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

// ParseLogLevel maps debug|info|warn|error onto slog levels.
func ParseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}

// NewLogger builds the JSON logger both binaries write to w.
func NewLogger(w io.Writer, lookup LookupFunc) (*slog.Logger, error) {
	raw, _ := lookupOrEmpty(lookup, EnvLogLevel)
	level, err := ParseLogLevel(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", EnvLogLevel, err)
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// LoadLLMConfig loads the LLM configuration named by PANTHERE_LLM_CONFIG, or
// the first of config/llm.{json,yaml,yml} that exists, or the built-in
// default. The returned path is empty for the default.
func LoadLLMConfig(lookup LookupFunc) (config.Config, string, error) {
	path, err := resolveLLMConfigPath(lookup)
	if err != nil {
		return config.Config{}, "", err
	}
	if path == "" {
		return config.Default(), "", nil
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return config.Config{}, "", err
	}

	return cfg, path, nil
}

func resolveLLMConfigPath(lookup LookupFunc) (string, error) {
	if configured, _ := lookupOrEmpty(lookup, EnvLLMConfig); configured != "" {
		return configured, nil
	}

	for _, candidate := range llmConfigCandidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("llm config %s is a directory", candidate)
			}
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat llm config %s: %w", candidate, err)
		}
	}

	return "", nil
}

// Agent is one persona bound to its provider.
type Agent struct {
	Persona relay.Persona
	// Provider is nil when the agent's provider credential is missing.
	Provider panthere.LLMProvider
	// ProviderKey names the provider profile the agent uses.
	ProviderKey string
	// CredentialEnv lists the variables the provider credential is read from.
	CredentialEnv []string
}

// ProviderConfigured reports whether a model credential was found.
func (a Agent) ProviderConfigured() bool {
	return a.Provider != nil
}

// ResolveAgent builds every provider in cfg and binds agentName to its provider.
// A missing credential is not an error; the agent is returned without a provider.
func ResolveAgent(cfg config.Config, agentName string, lookup LookupFunc, now time.Time) (Agent, error) {
	agentCfg, err := cfg.Agent(agentName)
	if err != nil {
		return Agent{}, fmt.Errorf("resolve agent %s: %w", agentName, err)
	}

	providers, _, err := llm.BuildProviders(cfg, llm.LookupFunc(lookup))
	if err != nil {
		return Agent{}, fmt.Errorf("resolve agent %s: %w", agentName, err)
	}
	var provider panthere.LLMProvider
	if len(providers) > 0 {
		registry, err := llm.NewRegistry(providers)
		if err != nil {
			return Agent{}, fmt.Errorf("resolve agent %s: %w", agentName, err)
		}
		provider = llm.ResolveAgent(registry, agentCfg)
	}

	persona, err := relay.PersonaFromAgent(agentCfg, now)
	if err != nil {
		return Agent{}, fmt.Errorf("resolve agent %s: %w", agentName, err)
	}

	return Agent{
		Persona:       persona,
		Provider:      provider,
		ProviderKey:   agentCfg.Provider,
		CredentialEnv: append([]string(nil), cfg.Providers[agentCfg.Provider].APIKeyEnv...),
	}, nil
}

func lookupOrEmpty(lookup LookupFunc, key string) (string, bool) {
	if lookup == nil {
		return "", false
	}
	value, ok := lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)

	return value, value != ""
}
