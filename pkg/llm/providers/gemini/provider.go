package gemini

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode"

	"petit-panthere/pkg/panthere"

	"google.golang.org/genai"
)

const defaultAPIVersion = "v1beta"

// ProviderConfig configures one Gemini-backed provider instance.
type ProviderConfig struct {
	// APIKey is the credential used to authenticate requests.
	APIKey string
	// BaseURL optionally overrides the Gemini endpoint.
	BaseURL string
	// APIVersion optionally overrides Gemini API version.
	//
	// Zero defaults to v1beta.
	APIVersion string
}

// Provider is a panthere LLM provider backed by the Gemini Developer API.
type Provider struct {
	models geminiModelsClient
}

type geminiModelsClient interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// New builds one Gemini API provider instance.
func New(cfg ProviderConfig) (*Provider, error) {
	normalized, err := normalizeProviderConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("new gemini provider: %w", err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  normalized.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    normalized.BaseURL,
			APIVersion: normalized.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("new gemini client: %w", err)
	}
	if client == nil || client.Models == nil {
		return nil, fmt.Errorf("new gemini client: models client is nil")
	}

	return &Provider{models: client.Models}, nil
}

// Generate performs one blocking GenerateContent call.
func (p *Provider) Generate(
	ctx context.Context,
	req panthere.LLMGenerateRequest,
) (panthere.LLMGenerateResponse, error) {
	if p == nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("gemini generate: nil provider")
	}
	if ctx == nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("gemini generate: nil context")
	}
	if p.models == nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("gemini generate: models client is nil")
	}
	if err := req.Validate(); err != nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("gemini generate validate request: %w", err)
	}

	contents, config, err := mapGenerateRequest(req)
	if err != nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("gemini generate map request: %w", err)
	}

	resp, err := p.models.GenerateContent(ctx, strings.TrimSpace(req.Model), contents, config)
	if err != nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("gemini generate: empty response")
	}

	result := panthere.LLMGenerateResponse{
		Text:  resp.Text(),
		Model: resp.ModelVersion,
	}
	if resp.UsageMetadata != nil {
		result.Usage = panthere.LLMUsage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	return result, nil
}

func mapGenerateRequest(req panthere.LLMGenerateRequest) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	systemParts := make([]string, 0, 1)
	contents := make([]*genai.Content, 0, len(req.Messages))
	for index, message := range req.Messages {
		switch message.Role {
		case panthere.LLMMessageRoleSystem:
			systemParts = append(systemParts, message.Content)
		case panthere.LLMMessageRoleUser, panthere.LLMMessageRoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  mapMessageRole(message.Role),
				Parts: []*genai.Part{{Text: message.Content}},
			})
		default:
			return nil, nil, fmt.Errorf("messages[%d] role: unsupported role %q", index, message.Role)
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("missing non-system messages")
	}

	config := &genai.GenerateContentConfig{}
	if len(systemParts) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}
	if req.Temperature > 0 {
		temperature := float32(req.Temperature)
		config.Temperature = &temperature
	}
	if req.MaxOutputTokens > 0 {
		if req.MaxOutputTokens > math.MaxInt32 {
			return nil, nil, fmt.Errorf("max_output_tokens exceeds int32 range")
		}
		config.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	return contents, config, nil
}

func mapMessageRole(role panthere.LLMMessageRole) string {
	if role == panthere.LLMMessageRoleAssistant {
		return string(genai.RoleModel)
	}

	return string(genai.RoleUser)
}

func normalizeProviderConfig(cfg ProviderConfig) (ProviderConfig, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIVersion = strings.TrimSpace(cfg.APIVersion)

	if cfg.APIKey == "" {
		return ProviderConfig{}, fmt.Errorf("missing api_key")
	}
	if cfg.BaseURL != "" {
		parsed, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return ProviderConfig{}, fmt.Errorf("parse base_url: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return ProviderConfig{}, fmt.Errorf("parse base_url: must include scheme and host")
		}
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if !isValidAPIVersion(cfg.APIVersion) {
		return ProviderConfig{}, fmt.Errorf("invalid api_version %q", cfg.APIVersion)
	}

	return cfg, nil
}

func isValidAPIVersion(raw string) bool {
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

var _ panthere.LLMProvider = (*Provider)(nil)
