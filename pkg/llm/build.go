package llm

import (
	"fmt"
	"sort"

	"petit-panthere/pkg/llm/config"
	anthropicprovider "petit-panthere/pkg/llm/providers/anthropic"
	geminiprovider "petit-panthere/pkg/llm/providers/gemini"
	openaiprovider "petit-panthere/pkg/llm/providers/openai"
	"petit-panthere/pkg/panthere"
)

// LookupFunc reports one environment value, matching os.LookupEnv.
type LookupFunc func(string) (string, bool)

// BuildProviders constructs one provider per configured profile.
//
// Profiles whose credential cannot be resolved are skipped and their keys
// returned in sorted order, so callers can keep serving and report the
// missing credential per request.
func BuildProviders(cfg config.Config, lookup LookupFunc) (map[string]panthere.LLMProvider, []string, error) {
	providers := make(map[string]panthere.LLMProvider, len(cfg.Providers))
	var missing []string

	for key, profile := range cfg.Providers {
		apiKey := profile.ResolveAPIKey(lookup)
		if apiKey == "" {
			missing = append(missing, key)
			continue
		}

		provider, err := buildProvider(profile, apiKey)
		if err != nil {
			return nil, nil, fmt.Errorf("build llm provider %s: %w", key, err)
		}
		providers[key] = provider
	}
	sort.Strings(missing)

	return providers, missing, nil
}

func buildProvider(profile config.ProviderProfile, apiKey string) (panthere.LLMProvider, error) {
	switch profile.Type {
	case config.ProviderTypeAnthropic:
		return anthropicprovider.New(anthropicprovider.ProviderConfig{
			APIKey:     apiKey,
			BaseURL:    profile.BaseURL,
			MaxRetries: profile.MaxRetries,
		})
	case config.ProviderTypeOpenAI:
		cfg := openaiprovider.ProviderConfig{
			APIKey:     apiKey,
			BaseURL:    profile.BaseURL,
			MaxRetries: profile.MaxRetries,
		}
		if profile.OpenAI != nil {
			cfg.Organization = profile.OpenAI.Organization
			cfg.Project = profile.OpenAI.Project
		}
		return openaiprovider.New(cfg)
	case config.ProviderTypeGemini:
		cfg := geminiprovider.ProviderConfig{
			APIKey:  apiKey,
			BaseURL: profile.BaseURL,
		}
		if profile.Gemini != nil {
			cfg.APIVersion = profile.Gemini.APIVersion
		}
		return geminiprovider.New(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider type %q", profile.Type)
	}
}

// ResolveAgent returns the provider bound to agent, or nil when that
// provider was skipped for a missing credential.
func ResolveAgent(registry panthere.LLMProviderRegistry, agent config.Agent) panthere.LLMProvider {
	if registry == nil {
		return nil
	}
	provider, err := registry.Resolve(agent.Provider)
	if err != nil {
		return nil
	}

	return provider
}
