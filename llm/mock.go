// Mock provider - deterministic stand-in that never calls a network service.

package llm

import (
	"context"
	"fmt"
	"sync/atomic"
)

// mockExcerptLen is the number of prompt characters echoed back.
const mockExcerptLen = 50

// MockProvider echoes a truncated excerpt of the prompt prefixed with the
// model name. It never fails and counts its invocations.
type MockProvider struct {
	calls atomic.Int64
}

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// Generate returns "[Mock <model>] Response to: <first 50 chars>...".
func (p *MockProvider) Generate(_ context.Context, prompt, model string, _ Params) (string, error) {
	p.calls.Add(1)
	return MockResponse(prompt, model), nil
}

// ListModels returns the mock model identifiers.
func (p *MockProvider) ListModels() []string {
	return ProviderMock.Models()
}

// CallCount returns how many times Generate has been called.
func (p *MockProvider) CallCount() int {
	return int(p.calls.Load())
}

// MockResponse is the text the mock provider returns for prompt and model.
func MockResponse(prompt, model string) string {
	excerpt := []rune(prompt)
	if len(excerpt) > mockExcerptLen {
		excerpt = excerpt[:mockExcerptLen]
	}
	return fmt.Sprintf("[Mock %s] Response to: %s...", model, string(excerpt))
}

// Verify MockProvider implements Provider
var _ Provider = (*MockProvider)(nil)
