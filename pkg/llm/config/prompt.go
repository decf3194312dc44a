package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// RenderSystemPrompt executes the agent persona template against now.
//
// Dates are rendered in now's location; relays pass the process start time so
// the persona stays fixed for the lifetime of the process.
func RenderSystemPrompt(agent Agent, now time.Time) (string, error) {
	tmpl, err := parsePromptTemplate(agent.SystemPromptTemplate)
	if err != nil {
		return "", fmt.Errorf("parse system prompt template: %w", err)
	}

	data := map[string]any{
		"Now":               now,
		"DateLong":          now.Format("January 02, 2006"),
		"Date":              now.Format("2006-01-02"),
		"Time":              now.Format("15:04"),
		"AgentName":         agent.Name,
		"AgentDescription":  agent.Description,
		"Model":             agent.Model,
		"TemplateVariables": cloneStringMap(agent.TemplateVariables),
	}
	for key, value := range agent.TemplateVariables {
		data[key] = value
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, data); err != nil {
		return "", fmt.Errorf("execute system prompt template: %w", err)
	}

	result := strings.TrimSpace(rendered.String())
	if result == "" {
		return "", fmt.Errorf("rendered system prompt is empty")
	}

	return result, nil
}
