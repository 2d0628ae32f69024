// Package llm provides the OpenAI-compatible chat-completion collaborator.
package llm

import "context"

// FieldSpec names one field the structured extraction should look for.
type FieldSpec struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ExtractedField is one field the model found in conversation text.
type ExtractedField struct {
	Value      string `json:"value"`
	Confidence int    `json:"confidence"` // 0-100
}

// Client defines the chat-completion collaborator consumed by the pipeline.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// Complete generates a chat completion for the prompt.
	Complete(ctx context.Context, systemMessage, prompt string) (string, error)

	// ExtractFields asks the model to map conversation text onto the given
	// fields. Fields the model could not find are absent from the result.
	ExtractFields(ctx context.Context, text string, fields []FieldSpec) (map[string]ExtractedField, error)

	// Model returns the configured model name.
	Model() string
}

var _ Client = (*OpenAIClient)(nil)
