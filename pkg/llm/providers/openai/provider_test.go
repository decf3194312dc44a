package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"petit-panthere/pkg/panthere"

	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

func TestNewOpenAIProviderConfigValidation(t *testing.T) {
	t.Parallel()

	retries := 1
	tests := []struct {
		name             string
		cfg              ProviderConfig
		wantErrSubstring string
	}{
		{
			name: "valid config",
			cfg: ProviderConfig{
				APIKey:     "sk-test",
				BaseURL:    "https://api.openai.com/v1",
				MaxRetries: &retries,
			},
		},
		{
			name:             "missing api key",
			cfg:              ProviderConfig{APIKey: "   "},
			wantErrSubstring: "missing api_key",
		},
		{
			name:             "invalid base url",
			cfg:              ProviderConfig{APIKey: "sk-test", BaseURL: "not a url"},
			wantErrSubstring: "parse base_url",
		},
		{
			name:             "negative retries",
			cfg:              ProviderConfig{APIKey: "sk-test", MaxRetries: ptrInt(-1)},
			wantErrSubstring: "max_retries must be >= 0",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			provider, err := New(testCase.cfg)
			if testCase.wantErrSubstring != "" {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), testCase.wantErrSubstring) {
					t.Fatalf("error = %v, want substring %q", err, testCase.wantErrSubstring)
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if provider == nil {
				t.Fatal("expected provider instance")
			}
		})
	}
}

func TestOpenAIProviderGenerateValidation(t *testing.T) {
	t.Parallel()

	client := &openAIResponsesClientStub{}
	provider := &Provider{responses: client}

	_, err := provider.Generate(context.Background(), panthere.LLMGenerateRequest{Model: "gpt-5-mini"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "validate request") {
		t.Fatalf("error = %v, want validate request error", err)
	}
	if len(client.params) != 0 {
		t.Fatalf("request count = %d, want 0", len(client.params))
	}
}

func TestOpenAIProviderGenerateMapsRequest(t *testing.T) {
	t.Parallel()

	client := &openAIResponsesClientStub{
		response: mustUnmarshalResponse(t, `{
			"id":"resp_1",
			"object":"response",
			"model":"gpt-5-mini",
			"output":[
				{
					"type":"message",
					"id":"msg_1",
					"role":"assistant",
					"status":"completed",
					"content":[{"type":"output_text","text":"bonjour","annotations":[]}]
				}
			],
			"usage":{
				"input_tokens":42,
				"input_tokens_details":{"cached_tokens":0},
				"output_tokens":7,
				"output_tokens_details":{"reasoning_tokens":0},
				"total_tokens":49
			}
		}`),
	}
	provider := &Provider{responses: client}

	req := panthere.LLMGenerateRequest{
		Model: "gpt-5-mini",
		Messages: []panthere.LLMMessage{
			{Role: panthere.LLMMessageRoleSystem, Content: "sys"},
			{Role: panthere.LLMMessageRoleUser, Content: "hello"},
			{Role: panthere.LLMMessageRoleAssistant, Content: "hi"},
		},
		MaxOutputTokens: 512,
		Temperature:     0.35,
		Metadata:        map[string]string{"agent": "petit-panthere"},
	}
	resp, err := provider.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != "bonjour" {
		t.Fatalf("text = %q, want bonjour", resp.Text)
	}
	if resp.Usage.InputTokens != 42 || resp.Usage.OutputTokens != 7 {
		t.Fatalf("usage = %+v, want 42/7", resp.Usage)
	}

	if len(client.params) != 1 {
		t.Fatalf("request count = %d, want 1", len(client.params))
	}
	got := client.params[0]
	if got.Model != req.Model {
		t.Fatalf("model = %q, want %q", got.Model, req.Model)
	}
	if !got.Temperature.Valid() || got.Temperature.Value != req.Temperature {
		t.Fatalf("temperature = %+v, want %v", got.Temperature, req.Temperature)
	}
	if !got.MaxOutputTokens.Valid() || got.MaxOutputTokens.Value != 512 {
		t.Fatalf("max output tokens = %+v, want 512", got.MaxOutputTokens)
	}
	if got.Metadata["agent"] != "petit-panthere" {
		t.Fatalf("metadata = %v, want agent", got.Metadata)
	}

	if len(got.Input.OfInputItemList) != 3 {
		t.Fatalf("input messages len = %d, want 3", len(got.Input.OfInputItemList))
	}
	wantRoles := []string{"system", "user", "assistant"}
	for index, item := range got.Input.OfInputItemList {
		role := item.GetRole()
		if role == nil {
			t.Fatalf("input[%d] role is nil", index)
		}
		if *role != wantRoles[index] {
			t.Fatalf("input[%d] role = %q, want %q", index, *role, wantRoles[index])
		}
	}
}

func TestOpenAIProviderGenerateUpstreamError(t *testing.T) {
	t.Parallel()

	upstream := errors.New("rate limited")
	provider := &Provider{responses: &openAIResponsesClientStub{err: upstream}}

	_, err := provider.Generate(context.Background(), panthere.LLMGenerateRequest{
		Model:    "gpt-5-mini",
		Messages: []panthere.LLMMessage{{Role: panthere.LLMMessageRoleUser, Content: "hi"}},
	})
	if !errors.Is(err, upstream) {
		t.Fatalf("error = %v, want wrapped upstream error", err)
	}
}

func mustUnmarshalResponse(t *testing.T, raw string) *responses.Response {
	t.Helper()

	var resp responses.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}

	return &resp
}

func ptrInt(value int) *int {
	return &value
}

type openAIResponsesClientStub struct {
	params   []responses.ResponseNewParams
	response *responses.Response
	err      error
}

func (s *openAIResponsesClientStub) New(
	_ context.Context,
	body responses.ResponseNewParams,
	_ ...option.RequestOption,
) (*responses.Response, error) {
	s.params = append(s.params, body)
	if s.err != nil {
		return nil, s.err
	}

	return s.response, nil
}
