package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"petit-panthere/pkg/panthere"

	"google.golang.org/genai"
)

func TestNewGeminiProviderConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		cfg              ProviderConfig
		wantErrSubstring string
	}{
		{
			name: "valid config",
			cfg: ProviderConfig{
				APIKey:     "gm-test",
				BaseURL:    "https://generativelanguage.googleapis.com/",
				APIVersion: "v1beta",
			},
		},
		{
			name: "default api version",
			cfg:  ProviderConfig{APIKey: "gm-test"},
		},
		{
			name:             "missing api key",
			cfg:              ProviderConfig{APIKey: "   "},
			wantErrSubstring: "missing api_key",
		},
		{
			name:             "invalid base url",
			cfg:              ProviderConfig{APIKey: "gm-test", BaseURL: "not a url"},
			wantErrSubstring: "parse base_url",
		},
		{
			name:             "invalid api version",
			cfg:              ProviderConfig{APIKey: "gm-test", APIVersion: "v1 beta"},
			wantErrSubstring: "invalid api_version",
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

func TestGeminiProviderGenerateMapsRequest(t *testing.T) {
	t.Parallel()

	client := &modelsClientStub{
		response: &genai.GenerateContentResponse{
			ModelVersion: "gemini-2.5-flash",
			Candidates: []*genai.Candidate{
				{
					Content: &genai.Content{
						Role: string(genai.RoleModel),
						Parts: []*genai.Part{
							{Text: "thinking...", Thought: true},
							{Text: "salut"},
						},
					},
				},
			},
			UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
				PromptTokenCount:     11,
				CandidatesTokenCount: 4,
			},
		},
	}
	provider := &Provider{models: client}

	resp, err := provider.Generate(context.Background(), panthere.LLMGenerateRequest{
		Model: " gemini-2.5-flash ",
		Messages: []panthere.LLMMessage{
			{Role: panthere.LLMMessageRoleSystem, Content: "persona"},
			{Role: panthere.LLMMessageRoleUser, Content: "hello"},
			{Role: panthere.LLMMessageRoleAssistant, Content: "hi"},
			{Role: panthere.LLMMessageRoleUser, Content: "again"},
		},
		MaxOutputTokens: 256,
		Temperature:     0.2,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != "salut" {
		t.Fatalf("text = %q, want salut", resp.Text)
	}
	if resp.Usage.InputTokens != 11 || resp.Usage.OutputTokens != 4 {
		t.Fatalf("usage = %+v, want 11/4", resp.Usage)
	}

	if len(client.calls) != 1 {
		t.Fatalf("call count = %d, want 1", len(client.calls))
	}
	call := client.calls[0]
	if call.model != "gemini-2.5-flash" {
		t.Fatalf("model = %q, want trimmed model", call.model)
	}
	if len(call.contents) != 3 {
		t.Fatalf("contents len = %d, want 3", len(call.contents))
	}
	wantRoles := []string{string(genai.RoleUser), string(genai.RoleModel), string(genai.RoleUser)}
	for index, role := range wantRoles {
		if call.contents[index].Role != role {
			t.Fatalf("contents[%d] role = %q, want %q", index, call.contents[index].Role, role)
		}
	}
	if call.config.SystemInstruction == nil || call.config.SystemInstruction.Parts[0].Text != "persona" {
		t.Fatalf("system instruction = %+v, want persona", call.config.SystemInstruction)
	}
	if call.config.MaxOutputTokens != 256 {
		t.Fatalf("max output tokens = %d, want 256", call.config.MaxOutputTokens)
	}
	if call.config.Temperature == nil || *call.config.Temperature != float32(0.2) {
		t.Fatalf("temperature = %v, want 0.2", call.config.Temperature)
	}
}

func TestGeminiProviderGenerateErrors(t *testing.T) {
	t.Parallel()

	upstream := errors.New("quota")
	tests := []struct {
		name             string
		client           *modelsClientStub
		req              panthere.LLMGenerateRequest
		wantErrSubstring string
		wantCalls        int
	}{
		{
			name:             "invalid request",
			client:           &modelsClientStub{},
			req:              panthere.LLMGenerateRequest{Model: "gemini-2.5-flash"},
			wantErrSubstring: "validate request",
		},
		{
			name:   "system only",
			client: &modelsClientStub{},
			req: panthere.LLMGenerateRequest{
				Model:    "gemini-2.5-flash",
				Messages: []panthere.LLMMessage{{Role: panthere.LLMMessageRoleSystem, Content: "sys"}},
			},
			wantErrSubstring: "missing non-system messages",
		},
		{
			name:   "upstream failure",
			client: &modelsClientStub{err: upstream},
			req: panthere.LLMGenerateRequest{
				Model:    "gemini-2.5-flash",
				Messages: []panthere.LLMMessage{{Role: panthere.LLMMessageRoleUser, Content: "hi"}},
			},
			wantErrSubstring: "quota",
			wantCalls:        1,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			provider := &Provider{models: testCase.client}
			_, err := provider.Generate(context.Background(), testCase.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), testCase.wantErrSubstring) {
				t.Fatalf("error = %v, want substring %q", err, testCase.wantErrSubstring)
			}
			if len(testCase.client.calls) != testCase.wantCalls {
				t.Fatalf("call count = %d, want %d", len(testCase.client.calls), testCase.wantCalls)
			}
		})
	}
}

type modelsClientCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type modelsClientStub struct {
	calls    []modelsClientCall
	response *genai.GenerateContentResponse
	err      error
}

func (s *modelsClientStub) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	s.calls = append(s.calls, modelsClientCall{model: model, contents: contents, config: config})
	if s.err != nil {
		return nil, s.err
	}

	return s.response, nil
}
