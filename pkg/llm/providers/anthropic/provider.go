package anthropic

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"petit-panthere/pkg/panthere"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const contentTypeText = "text"

// ProviderConfig configures one Anthropic-backed provider instance.
type ProviderConfig struct {
	// APIKey is the credential used to authenticate requests.
	APIKey string
	// BaseURL optionally overrides the Anthropic endpoint.
	BaseURL string
	// MaxRetries optionally overrides the SDK retry count.
	//
	// Nil keeps the SDK default behavior.
	MaxRetries *int
}

// Provider is a panthere LLM provider backed by the Anthropic Messages API.
type Provider struct {
	messages anthropicMessagesClient
}

type anthropicMessagesClient interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type anthropicMessageServiceAdapter struct {
	service anthropic.MessageService
}

func (a anthropicMessageServiceAdapter) New(
	ctx context.Context,
	body anthropic.MessageNewParams,
	opts ...option.RequestOption,
) (*anthropic.Message, error) {
	return a.service.New(ctx, body, opts...)
}

// New builds one Anthropic Messages API provider instance.
func New(cfg ProviderConfig) (*Provider, error) {
	normalized, err := normalizeProviderConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("new anthropic provider: %w", err)
	}

	options := make([]option.RequestOption, 0, 3)
	options = append(options, option.WithAPIKey(normalized.APIKey))
	if normalized.BaseURL != "" {
		options = append(options, option.WithBaseURL(normalized.BaseURL))
	}
	if normalized.MaxRetries != nil {
		options = append(options, option.WithMaxRetries(*normalized.MaxRetries))
	}

	client := anthropic.NewClient(options...)

	return &Provider{
		messages: anthropicMessageServiceAdapter{service: client.Messages},
	}, nil
}

// Generate performs one blocking Messages API call.
func (p *Provider) Generate(
	ctx context.Context,
	req panthere.LLMGenerateRequest,
) (panthere.LLMGenerateResponse, error) {
	if p == nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("anthropic generate: nil provider")
	}
	if ctx == nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("anthropic generate: nil context")
	}
	if p.messages == nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("anthropic generate: messages client is nil")
	}
	if err := req.Validate(); err != nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("anthropic generate validate request: %w", err)
	}

	params, err := mapGenerateRequest(req)
	if err != nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("anthropic generate map request: %w", err)
	}

	message, err := p.messages.New(ctx, params)
	if err != nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("anthropic generate: %w", err)
	}
	if message == nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("anthropic generate: empty message")
	}

	return panthere.LLMGenerateResponse{
		Text:  firstText(message.Content),
		Model: string(message.Model),
		Usage: panthere.LLMUsage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		},
	}, nil
}

func mapGenerateRequest(req panthere.LLMGenerateRequest) (anthropic.MessageNewParams, error) {
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for index, message := range req.Messages {
		switch message.Role {
		case panthere.LLMMessageRoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: message.Content})
		case panthere.LLMMessageRoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(message.Content)))
		case panthere.LLMMessageRoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(message.Content)))
		default:
			return anthropic.MessageNewParams{}, fmt.Errorf("messages[%d] role: unsupported role %q", index, message.Role)
		}
	}
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("no conversational messages")
	}
	if req.MaxOutputTokens <= 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("max_output_tokens is required")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(strings.TrimSpace(req.Model)),
		MaxTokens: int64(req.MaxOutputTokens),
		Messages:  messages,
		System:    system,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	return params, nil
}

func firstText(blocks []anthropic.ContentBlockUnion) string {
	for _, block := range blocks {
		if block.Type == contentTypeText {
			return block.Text
		}
	}

	return ""
}

func normalizeProviderConfig(cfg ProviderConfig) (ProviderConfig, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)

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
	if cfg.MaxRetries != nil && *cfg.MaxRetries < 0 {
		return ProviderConfig{}, fmt.Errorf("max_retries must be >= 0")
	}

	return cfg, nil
}

var _ panthere.LLMProvider = (*Provider)(nil)
