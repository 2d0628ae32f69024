package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds configuration for creating an LLM client.
type Config struct {
	Endpoint string        // Base URL, e.g., "https://api.openai.com/v1"
	Model    string        // Model name, e.g., "gpt-4o-mini"
	APIKey   string        // Optional for local endpoints
	Timeout  time.Duration // Per-request bound; zero means no extra bound
}

// OpenAIClient talks to any OpenAI-compatible chat-completion endpoint.
type OpenAIClient struct {
	client   *openai.Client
	endpoint string
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewClient creates a new OpenAI-compatible LLM client.
func NewClient(cfg *Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		logger:   logger.Named("llm"),
	}, nil
}

// Complete generates a chat completion for the prompt.
func (c *OpenAIClient) Complete(ctx context.Context, systemMessage, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

const extractionSystemPrompt = `Ты извлекаешь структурированные данные из текста диалога.
Верни ТОЛЬКО JSON-объект вида {"field_key": {"value": "...", "confidence": 0-100}}.
Включай только поля, значения которых явно присутствуют в тексте.
Никогда не выдумывай значения.`

// ExtractFields asks the model to map conversation text onto the given fields.
// The response is parsed with the balanced-JSON extractor, so surrounding
// prose or code fences from the model do not break parsing.
func (c *OpenAIClient) ExtractFields(ctx context.Context, text string, fields []FieldSpec) (map[string]ExtractedField, error) {
	if len(fields) == 0 {
		return map[string]ExtractedField{}, nil
	}

	var sb strings.Builder
	sb.WriteString("Поля для извлечения:\n")
	for _, f := range fields {
		fmt.Fprintf(&sb, "- %s (%s)\n", f.Key, f.Label)
	}
	sb.WriteString("\nТекст диалога:\n")
	sb.WriteString(text)

	response, err := c.Complete(ctx, extractionSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	extracted, err := ParseJSONResponse[map[string]ExtractedField](response)
	if err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	// Keep only requested keys; models occasionally return extras.
	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f.Key] = true
	}
	for key, v := range extracted {
		if !allowed[key] || strings.TrimSpace(v.Value) == "" {
			delete(extracted, key)
		}
	}

	return extracted, nil
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}
