package llm

import (
	"context"
	"strings"
	"testing"

	"petit-panthere/pkg/llm/config"
	"petit-panthere/pkg/panthere"
)

type providerStub struct{}

func (providerStub) Generate(context.Context, panthere.LLMGenerateRequest) (panthere.LLMGenerateResponse, error) {
	return panthere.LLMGenerateResponse{}, nil
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		providers        map[string]panthere.LLMProvider
		wantErrSubstring string
	}{
		{name: "valid", providers: map[string]panthere.LLMProvider{"anthropic": providerStub{}}},
		{name: "empty", providers: nil, wantErrSubstring: "empty providers"},
		{name: "blank key", providers: map[string]panthere.LLMProvider{" ": providerStub{}}, wantErrSubstring: "empty provider key"},
		{name: "nil provider", providers: map[string]panthere.LLMProvider{"a": nil}, wantErrSubstring: "is nil"},
		{
			name:             "duplicate after trim",
			providers:        map[string]panthere.LLMProvider{"a": providerStub{}, " a ": providerStub{}},
			wantErrSubstring: "duplicate provider key",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			registry, err := NewRegistry(testCase.providers)
			if testCase.wantErrSubstring != "" {
				if err == nil || !strings.Contains(err.Error(), testCase.wantErrSubstring) {
					t.Fatalf("error = %v, want substring %q", err, testCase.wantErrSubstring)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRegistry failed: %v", err)
			}
			if _, err := registry.Resolve(" anthropic "); err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if _, err := registry.Resolve("openai"); err == nil {
				t.Fatal("expected unknown provider error")
			}
		})
	}
}

func TestBuildProviders(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Providers: map[string]config.ProviderProfile{
			"claude": {Type: config.ProviderTypeAnthropic, APIKeyEnv: []string{"CLAUDE_API_KEY"}},
			"openai": {Type: config.ProviderTypeOpenAI, APIKey: "sk-test"},
			"gemini": {Type: config.ProviderTypeGemini, APIKeyEnv: []string{"GEMINI_API_KEY"}},
		},
	}
	env := map[string]string{"CLAUDE_API_KEY": "sk-ant"}
	lookup := func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}

	providers, missing, err := BuildProviders(cfg, lookup)
	if err != nil {
		t.Fatalf("BuildProviders failed: %v", err)
	}
	if len(providers) != 2 || providers["claude"] == nil || providers["openai"] == nil {
		t.Fatalf("providers = %v, want claude and openai", providers)
	}
	if len(missing) != 1 || missing[0] != "gemini" {
		t.Fatalf("missing = %v, want [gemini]", missing)
	}

	registry, err := NewRegistry(providers)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if ResolveAgent(registry, config.Agent{Provider: "claude"}) == nil {
		t.Fatal("expected claude provider for agent")
	}
	if ResolveAgent(registry, config.Agent{Provider: "gemini"}) != nil {
		t.Fatal("expected nil provider for agent bound to skipped profile")
	}
	if ResolveAgent(nil, config.Agent{Provider: "claude"}) != nil {
		t.Fatal("expected nil provider for nil registry")
	}
}
