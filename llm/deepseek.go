// DeepSeek Provider implementation using go-openai library.
//
// Information Hiding:
// - Uses OpenAI-compatible API with different base URL
// - Supports deepseek-chat and deepseek-reasoner models

package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekProvider implements the Provider interface for DeepSeek.
type DeepSeekProvider struct {
	client    *openai.Client
	maxTokens int
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(apiKey string, maxTokens uint32, baseURL string) *DeepSeekProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = deepseekBaseURL
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &DeepSeekProvider{
		client:    openai.NewClientWithConfig(config),
		maxTokens: int(maxTokens),
	}
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

// ListModels returns the DeepSeek model catalogue.
func (p *DeepSeekProvider) ListModels() []string {
	return ProviderDeepSeek.Models()
}

// Generate sends a chat completion request and returns the content.
func (p *DeepSeekProvider) Generate(ctx context.Context, prompt, model string, params Params) (string, error) {
	completion, err := p.Complete(ctx, prompt, model, params)
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// Complete sends a chat completion request and returns content with usage.
// DeepSeek accepts max_completion_tokens rather than max_tokens.
func (p *DeepSeekProvider) Complete(ctx context.Context, prompt, model string, params Params) (Completion, error) {
	req := newChatCompletionRequest(prompt, model, params)
	req.MaxCompletionTokens = maxTokensFor(params, p.maxTokens)
	return createChatCompletion(ctx, p.client, p.Name(), req)
}

// Verify DeepSeekProvider implements Provider and Completer
var (
	_ Provider  = (*DeepSeekProvider)(nil)
	_ Completer = (*DeepSeekProvider)(nil)
)
