package config

import (
	"strings"
	"testing"
	"time"
)

func TestRenderSystemPrompt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.February, 7, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name             string
		agent            Agent
		want             string
		wantErrSubstring string
	}{
		{
			name:  "long date",
			agent: Agent{Name: "petit-panthere", SystemPromptTemplate: "Current date: {{.DateLong}}"},
			want:  "Current date: February 07, 2026",
		},
		{
			name: "template variables",
			agent: Agent{
				Name:                 "demo",
				SystemPromptTemplate: "{{.AgentName}} helps {{.who}}",
				TemplateVariables:    map[string]string{"who": "Denise"},
			},
			want: "demo helps Denise",
		},
		{
			name:             "missing key",
			agent:            Agent{Name: "a", SystemPromptTemplate: "{{.Nope}}"},
			wantErrSubstring: "execute system prompt template",
		},
		{
			name:             "renders empty",
			agent:            Agent{Name: "a", SystemPromptTemplate: "{{if false}}x{{end}}"},
			wantErrSubstring: "rendered system prompt is empty",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := RenderSystemPrompt(testCase.agent, now)
			if testCase.wantErrSubstring != "" {
				if err == nil || !strings.Contains(err.Error(), testCase.wantErrSubstring) {
					t.Fatalf("error = %v, want substring %q", err, testCase.wantErrSubstring)
				}
				return
			}
			if err != nil {
				t.Fatalf("RenderSystemPrompt failed: %v", err)
			}
			if got != testCase.want {
				t.Fatalf("RenderSystemPrompt() = %q, want %q", got, testCase.want)
			}
		})
	}
}

func TestRenderDefaultPersonas(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.Local)
	for _, agent := range Default().Agents {
		rendered, err := RenderSystemPrompt(agent, now)
		if err != nil {
			t.Fatalf("render %s failed: %v", agent.Name, err)
		}
		if agent.Name == AgentCompanion && !strings.HasSuffix(rendered, "Current date: October 19, 2026") {
			t.Fatalf("companion prompt tail = %q", rendered[len(rendered)-40:])
		}
		if agent.Name == AgentCompanion && !strings.Contains(rendered, "SAVE_MEMORY:") {
			t.Fatal("companion prompt lacks memory directive instructions")
		}
	}
}
