package llm

import "context"

// MockClient is a configurable mock for testing pipeline components.
// Set the function fields to control behavior in tests.
type MockClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns an empty string and nil error.
	CompleteFunc func(ctx context.Context, systemMessage, prompt string) (string, error)

	// ExtractFieldsFunc is called when ExtractFields is invoked.
	// If nil, returns an empty map and nil error.
	ExtractFieldsFunc func(ctx context.Context, text string, fields []FieldSpec) (map[string]ExtractedField, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// Call tracking for verification
	CompleteCalls      int
	ExtractFieldsCalls int
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a new mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{ModelName: "mock-model"}
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, systemMessage, prompt string) (string, error) {
	m.CompleteCalls++
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemMessage, prompt)
	}
	return "", nil
}

// ExtractFields implements Client.
func (m *MockClient) ExtractFields(ctx context.Context, text string, fields []FieldSpec) (map[string]ExtractedField, error) {
	m.ExtractFieldsCalls++
	if m.ExtractFieldsFunc != nil {
		return m.ExtractFieldsFunc(ctx, text, fields)
	}
	return map[string]ExtractedField{}, nil
}

// Model implements Client.
func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}
