package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

const (
	defaultRequestTimeout = 90 * time.Second

	// ProviderTypeAnthropic selects the Anthropic Messages API provider.
	ProviderTypeAnthropic = "anthropic"
	// ProviderTypeOpenAI selects the OpenAI Responses API provider.
	ProviderTypeOpenAI = "openai"
	// ProviderTypeGemini selects the Gemini Developer API provider.
	ProviderTypeGemini = "gemini"

	defaultGeminiAPIVersion = "v1beta"
)

// Config is the full runtime LLM configuration model.
type Config struct {
	// RequestTimeout is the upper bound for one model call; agents may narrow it.
	RequestTimeout time.Duration
	// Providers contains provider profiles keyed by profile name.
	Providers map[string]ProviderProfile
	// Agents contains the personas the relays can bind to.
	Agents []Agent
}

// ProviderProfile describes one named provider profile.
type ProviderProfile struct {
	// Type identifies provider implementation kind.
	Type string
	// APIKey is the inline provider credential.
	APIKey string
	// APIKeyEnv lists environment variables consulted in order when APIKey is empty.
	APIKeyEnv []string
	// BaseURL optionally overrides provider API endpoint.
	BaseURL string
	// MaxRetries optionally overrides SDK retry count.
	MaxRetries *int
	// OpenAI carries OpenAI-specific options.
	OpenAI *OpenAIOptions
	// Gemini carries Gemini-specific options.
	Gemini *GeminiOptions
}

// OpenAIOptions carries OpenAI-specific profile options.
type OpenAIOptions struct {
	Organization string
	Project      string
}

// GeminiOptions carries Gemini-specific profile options.
type GeminiOptions struct {
	// APIVersion selects the Gemini Developer API version.
	APIVersion string
}

// Agent describes one persona bound to a provider profile and model.
type Agent struct {
	// Name identifies the agent; relays look agents up by name.
	Name string
	// Description is a short operator-facing explanation for this agent.
	Description string
	// Provider identifies which provider profile to resolve.
	Provider string
	// Model identifies which provider model name to call.
	Model string
	// SystemPromptTemplate is the persona template rendered once at startup.
	SystemPromptTemplate string
	// TemplateVariables are additional template variables injected at render time.
	TemplateVariables map[string]string
	// MaxOutputTokens bounds generated token count.
	MaxOutputTokens int
	// Temperature optionally controls output randomness.
	Temperature float64
	// RequestTimeout bounds one model call for this agent.
	RequestTimeout time.Duration
}

type fileConfig struct {
	RequestTimeout string                       `json:"request_timeout" yaml:"request_timeout"`
	Providers      map[string]fileProviderEntry `json:"providers" yaml:"providers"`
	Agents         []fileAgent                  `json:"agents" yaml:"agents"`
}

type fileProviderEntry struct {
	Type       string           `json:"type" yaml:"type"`
	APIKey     string           `json:"api_key" yaml:"api_key"`
	APIKeyEnv  []string         `json:"api_key_env" yaml:"api_key_env"`
	BaseURL    string           `json:"base_url" yaml:"base_url"`
	MaxRetries *int             `json:"max_retries" yaml:"max_retries"`
	OpenAI     *fileOpenAIEntry `json:"openai" yaml:"openai"`
	Gemini     *fileGeminiEntry `json:"gemini" yaml:"gemini"`
}

type fileOpenAIEntry struct {
	Organization string `json:"organization" yaml:"organization"`
	Project      string `json:"project" yaml:"project"`
}

type fileGeminiEntry struct {
	APIVersion string `json:"api_version" yaml:"api_version"`
}

type fileAgent struct {
	Name                 string            `json:"name" yaml:"name"`
	Description          string            `json:"description" yaml:"description"`
	Provider             string            `json:"provider" yaml:"provider"`
	Model                string            `json:"model" yaml:"model"`
	SystemPromptTemplate string            `json:"system_prompt_template" yaml:"system_prompt_template"`
	TemplateVariables    map[string]string `json:"template_variables" yaml:"template_variables"`
	MaxOutputTokens      int               `json:"max_output_tokens" yaml:"max_output_tokens"`
	Temperature          float64           `json:"temperature" yaml:"temperature"`
	RequestTimeout       string            `json:"request_timeout" yaml:"request_timeout"`
}

type rootRaw struct {
	Providers json.RawMessage `json:"providers"`
}

// LoadFile reads and validates runtime LLM configuration from path.
//
// Files ending in .yaml or .yml are decoded as YAML; everything else is JSON.
// Both decoders reject unknown fields.
func LoadFile(path string) (Config, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Config{}, fmt.Errorf("load llm config: empty path")
	}

	data, err := os.ReadFile(trimmedPath)
	if err != nil {
		return Config{}, fmt.Errorf("load llm config read %s: %w", trimmedPath, err)
	}

	var parsed fileConfig
	switch strings.ToLower(filepath.Ext(trimmedPath)) {
	case ".yaml", ".yml":
		if err := decodeStrictYAML(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("load llm config parse %s: %w", trimmedPath, err)
		}
	default:
		if err := validateDuplicateProviderKeys(data); err != nil {
			return Config{}, fmt.Errorf("load llm config parse %s: %w", trimmedPath, err)
		}
		if err := decodeStrictJSON(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("load llm config parse %s: %w", trimmedPath, err)
		}
	}

	cfg, err := parsed.build()
	if err != nil {
		return Config{}, fmt.Errorf("load llm config %s: %w", trimmedPath, err)
	}

	return cfg, nil
}

func (parsed fileConfig) build() (Config, error) {
	cfg := Config{
		RequestTimeout: defaultRequestTimeout,
		Providers:      make(map[string]ProviderProfile, len(parsed.Providers)),
		Agents:         make([]Agent, 0, len(parsed.Agents)),
	}

	if rawTimeout := strings.TrimSpace(parsed.RequestTimeout); rawTimeout != "" {
		timeout, err := parsePositiveDuration(rawTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse request_timeout: %w", err)
		}
		cfg.RequestTimeout = timeout
	}

	for key, rawProvider := range parsed.Providers {
		profileKey := strings.TrimSpace(key)
		if profileKey == "" {
			return Config{}, fmt.Errorf("providers: empty provider key")
		}
		if _, exists := cfg.Providers[profileKey]; exists {
			return Config{}, fmt.Errorf("providers: duplicate provider key %s", profileKey)
		}
		cfg.Providers[profileKey] = parseProviderProfile(rawProvider)
	}

	for index, rawAgent := range parsed.Agents {
		agentTimeout := cfg.RequestTimeout
		if rawTimeout := strings.TrimSpace(rawAgent.RequestTimeout); rawTimeout != "" {
			timeout, err := parsePositiveDuration(rawTimeout)
			if err != nil {
				return Config{}, fmt.Errorf("agents[%d]: parse request_timeout: %w", index, err)
			}
			agentTimeout = timeout
		}

		cfg.Agents = append(cfg.Agents, Agent{
			Name:                 strings.TrimSpace(rawAgent.Name),
			Description:          strings.TrimSpace(rawAgent.Description),
			Provider:             strings.TrimSpace(rawAgent.Provider),
			Model:                strings.TrimSpace(rawAgent.Model),
			SystemPromptTemplate: strings.TrimSpace(rawAgent.SystemPromptTemplate),
			TemplateVariables:    cloneStringMap(rawAgent.TemplateVariables),
			MaxOutputTokens:      rawAgent.MaxOutputTokens,
			Temperature:          rawAgent.Temperature,
			RequestTimeout:       agentTimeout,
		})
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks configuration coherence.
//
// A provider without a credential is valid here; credential presence is a
// runtime concern reported when providers are built.
func (cfg Config) Validate() error {
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("validate llm config: request_timeout must be > 0")
	}
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("validate llm config: providers is required")
	}
	if len(cfg.Agents) == 0 {
		return fmt.Errorf("validate llm config: at least one agent is required")
	}

	for key, profile := range cfg.Providers {
		profileKey := strings.TrimSpace(key)
		if profileKey == "" {
			return fmt.Errorf("validate llm config providers: empty provider key")
		}
		if err := validateProviderProfile(profile); err != nil {
			return fmt.Errorf("validate llm config providers[%s]: %w", profileKey, err)
		}
	}

	seenNames := make(map[string]struct{}, len(cfg.Agents))
	for index, agent := range cfg.Agents {
		if err := validateAgent(agent); err != nil {
			return fmt.Errorf("validate llm config agents[%d]: %w", index, err)
		}

		normalized := normalizeAgentName(agent.Name)
		if _, exists := seenNames[normalized]; exists {
			return fmt.Errorf("validate llm config: duplicate agent name %q", agent.Name)
		}
		seenNames[normalized] = struct{}{}

		if _, exists := cfg.Providers[strings.TrimSpace(agent.Provider)]; !exists {
			return fmt.Errorf("validate llm config agents[%d]: provider %s is not configured", index, agent.Provider)
		}
		if agent.RequestTimeout > cfg.RequestTimeout {
			return fmt.Errorf(
				"validate llm config agents[%d]: request_timeout %s exceeds global request_timeout %s",
				index,
				agent.RequestTimeout,
				cfg.RequestTimeout,
			)
		}
	}

	return nil
}

// Agent returns one configured agent by case-insensitive name.
func (cfg Config) Agent(name string) (Agent, error) {
	normalized := normalizeAgentName(name)
	for _, agent := range cfg.Agents {
		if normalizeAgentName(agent.Name) == normalized {
			return agent, nil
		}
	}

	return Agent{}, fmt.Errorf("llm config agent %q is not configured", name)
}

// ResolveAPIKey returns the inline credential, or the first non-empty value
// among APIKeyEnv as reported by lookup.
func (p ProviderProfile) ResolveAPIKey(lookup func(string) (string, bool)) string {
	if key := strings.TrimSpace(p.APIKey); key != "" {
		return key
	}
	if lookup == nil {
		return ""
	}
	for _, name := range p.APIKeyEnv {
		if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}

	return ""
}

func parseProviderProfile(raw fileProviderEntry) ProviderProfile {
	profile := ProviderProfile{
		Type:       strings.ToLower(strings.TrimSpace(raw.Type)),
		APIKey:     strings.TrimSpace(raw.APIKey),
		APIKeyEnv:  trimStrings(raw.APIKeyEnv),
		BaseURL:    strings.TrimSpace(raw.BaseURL),
		MaxRetries: cloneIntPointer(raw.MaxRetries),
	}
	if raw.OpenAI != nil {
		profile.OpenAI = &OpenAIOptions{
			Organization: strings.TrimSpace(raw.OpenAI.Organization),
			Project:      strings.TrimSpace(raw.OpenAI.Project),
		}
	}
	if raw.Gemini != nil {
		profile.Gemini = &GeminiOptions{APIVersion: strings.TrimSpace(raw.Gemini.APIVersion)}
	}
	if profile.Type == ProviderTypeGemini {
		if profile.Gemini == nil {
			profile.Gemini = &GeminiOptions{}
		}
		if profile.Gemini.APIVersion == "" {
			profile.Gemini.APIVersion = defaultGeminiAPIVersion
		}
	}

	return profile
}

func validateProviderProfile(profile ProviderProfile) error {
	switch strings.ToLower(strings.TrimSpace(profile.Type)) {
	case "":
		return fmt.Errorf("missing type")
	case ProviderTypeAnthropic:
		if profile.OpenAI != nil || profile.Gemini != nil {
			return fmt.Errorf("anthropic providers accept no vendor options")
		}
	case ProviderTypeOpenAI:
		if profile.Gemini != nil {
			return fmt.Errorf("gemini options are only supported for gemini providers")
		}
	case ProviderTypeGemini:
		if profile.OpenAI != nil {
			return fmt.Errorf("openai options are only supported for openai providers")
		}
		if profile.Gemini != nil && !isValidAPIVersion(profile.Gemini.APIVersion) {
			return fmt.Errorf("invalid api_version %q", profile.Gemini.APIVersion)
		}
	default:
		return fmt.Errorf("unsupported type %q", profile.Type)
	}

	if profile.MaxRetries != nil && *profile.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0")
	}
	if strings.TrimSpace(profile.APIKey) == "" && len(profile.APIKeyEnv) == 0 {
		return fmt.Errorf("one of api_key or api_key_env is required")
	}
	if rawBaseURL := strings.TrimSpace(profile.BaseURL); rawBaseURL != "" {
		parsed, err := url.Parse(rawBaseURL)
		if err != nil {
			return fmt.Errorf("invalid base_url: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid base_url: must include scheme and host")
		}
	}

	return nil
}

func validateAgent(agent Agent) error {
	if strings.TrimSpace(agent.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if strings.TrimSpace(agent.Provider) == "" {
		return fmt.Errorf("missing provider")
	}
	if strings.TrimSpace(agent.Model) == "" {
		return fmt.Errorf("missing model")
	}
	if strings.TrimSpace(agent.SystemPromptTemplate) == "" {
		return fmt.Errorf("missing system_prompt_template")
	}
	if agent.MaxOutputTokens <= 0 {
		return fmt.Errorf("max_output_tokens must be > 0")
	}
	if agent.Temperature < 0 {
		return fmt.Errorf("temperature must be >= 0")
	}
	if agent.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0")
	}
	if _, err := parsePromptTemplate(agent.SystemPromptTemplate); err != nil {
		return fmt.Errorf("invalid system_prompt_template: %w", err)
	}

	return nil
}

func parsePromptTemplate(raw string) (*template.Template, error) {
	return template.New("system-prompt").Option("missingkey=error").Parse(raw)
}

func validateDuplicateProviderKeys(data []byte) error {
	var raw rootRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode root json: %w", err)
	}
	if len(raw.Providers) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	decoder := json.NewDecoder(bytes.NewReader(raw.Providers))
	token, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("providers: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("providers: expected object")
	}

	for decoder.More() {
		rawKey, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("providers: %w", err)
		}
		key, ok := rawKey.(string)
		if !ok {
			return fmt.Errorf("providers: expected string key")
		}
		trimmedKey := strings.TrimSpace(key)
		if _, exists := seen[trimmedKey]; exists {
			return fmt.Errorf("providers: duplicate provider key %s", trimmedKey)
		}
		seen[trimmedKey] = struct{}{}

		var discard json.RawMessage
		if err := decoder.Decode(&discard); err != nil {
			return fmt.Errorf("providers[%s]: %w", trimmedKey, err)
		}
	}

	return nil
}

func decodeStrictJSON(data []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("unexpected trailing content")
		}
		return fmt.Errorf("decode trailing json: %w", err)
	}

	return nil
}

// yaml.v3 rejects duplicate mapping keys on its own.
func decodeStrictYAML(data []byte, target any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}

	return nil
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, fmt.Errorf("must be > 0")
	}

	return value, nil
}

func isValidAPIVersion(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '-', '.', '_':
		default:
			return false
		}
	}

	return true
}

func normalizeAgentName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func trimStrings(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			trimmed = append(trimmed, value)
		}
	}
	if len(trimmed) == 0 {
		return nil
	}

	return trimmed
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}

	cloned := make(map[string]string, len(values))
	for key, value := range values {
		cloned[key] = value
	}

	return cloned
}

func cloneIntPointer(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
