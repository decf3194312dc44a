package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"petit-panthere/pkg/llm/config"
	"petit-panthere/pkg/panthere"
)

const (
	defaultRequestTimeout = 90 * time.Second

	metadataKeyAgent = "agent"
)

// Persona is one rendered agent: a fixed system prompt bound to one model.
type Persona struct {
	// Agent names the configured agent the persona was rendered from.
	Agent string
	// Model identifies which provider model to call.
	Model string
	// SystemPrompt is the rendered system instruction.
	SystemPrompt string
	// MaxOutputTokens bounds generated output.
	MaxOutputTokens int
	// Temperature optionally controls output randomness.
	Temperature float64
	// RequestTimeout bounds one model call.
	RequestTimeout time.Duration
}

// PersonaFromAgent renders agent's prompt template against now.
func PersonaFromAgent(agent config.Agent, now time.Time) (Persona, error) {
	prompt, err := config.RenderSystemPrompt(agent, now)
	if err != nil {
		return Persona{}, fmt.Errorf("render persona %s: %w", agent.Name, err)
	}

	persona := Persona{
		Agent:           agent.Name,
		Model:           agent.Model,
		SystemPrompt:    prompt,
		MaxOutputTokens: agent.MaxOutputTokens,
		Temperature:     agent.Temperature,
		RequestTimeout:  agent.RequestTimeout,
	}
	if err := persona.Validate(); err != nil {
		return Persona{}, err
	}

	return persona, nil
}

// Validate checks that the persona can produce a generation request.
func (p Persona) Validate() error {
	if strings.TrimSpace(p.Model) == "" {
		return fmt.Errorf("validate persona: missing model")
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return fmt.Errorf("validate persona: missing system prompt")
	}
	if p.MaxOutputTokens <= 0 {
		return fmt.Errorf("validate persona: max_output_tokens must be > 0")
	}

	return nil
}

func (p Persona) timeout() time.Duration {
	if p.RequestTimeout > 0 {
		return p.RequestTimeout
	}

	return defaultRequestTimeout
}

// request assembles the generation request for history plus one new user turn.
// Blank history turns are skipped since providers reject empty content.
func (p Persona) request(history []panthere.Turn, text string) panthere.LLMGenerateRequest {
	messages := make([]panthere.LLMMessage, 0, len(history)+2)
	messages = append(messages, panthere.LLMMessage{Role: panthere.LLMMessageRoleSystem, Content: p.SystemPrompt})
	for _, turn := range history {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		messages = append(messages, panthere.LLMMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, panthere.LLMMessage{Role: panthere.LLMMessageRoleUser, Content: text})

	req := panthere.LLMGenerateRequest{
		Model:           p.Model,
		Messages:        messages,
		MaxOutputTokens: p.MaxOutputTokens,
		Temperature:     p.Temperature,
	}
	if p.Agent != "" {
		req.Metadata = map[string]string{metadataKeyAgent: p.Agent}
	}

	return req
}

// generate performs one bounded model call. Failures wrap both
// panthere.ErrGeneration and the provider error.
func (p Persona) generate(
	ctx context.Context,
	provider panthere.LLMProvider,
	history []panthere.Turn,
	text string,
) (panthere.LLMGenerateResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	resp, err := provider.Generate(callCtx, p.request(history, text))
	if err != nil {
		return panthere.LLMGenerateResponse{}, fmt.Errorf("%w: %w", panthere.ErrGeneration, err)
	}

	return resp, nil
}
