// OpenAI Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions API

package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/cair/cairerr"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client    *openai.Client
	maxTokens int
}

// NewOpenAIProvider creates a new OpenAI provider.
// An empty baseURL keeps the public OpenAI endpoint.
func NewOpenAIProvider(apiKey string, maxTokens uint32, baseURL string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(config),
		maxTokens: int(maxTokens),
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// ListModels returns the OpenAI model catalogue.
func (p *OpenAIProvider) ListModels() []string {
	return ProviderOpenAI.Models()
}

// Generate sends a chat completion request and returns the content.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt, model string, params Params) (string, error) {
	completion, err := p.Complete(ctx, prompt, model, params)
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// Complete sends a chat completion request and returns content with usage.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt, model string, params Params) (Completion, error) {
	req := newChatCompletionRequest(prompt, model, params)
	req.MaxTokens = maxTokensFor(params, p.maxTokens)
	return createChatCompletion(ctx, p.client, p.Name(), req)
}

// newChatCompletionRequest maps a prompt and params onto an OpenAI-compatible request.
func newChatCompletionRequest(prompt, model string, params Params) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if system, ok := params.Options.String(OptionSystem); ok {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(params.Temperature),
	}
	if topP, ok := params.Options.Float(OptionTopP); ok {
		req.TopP = float32(topP)
	}
	if stop, ok := params.Options.Strings(OptionStop); ok {
		req.Stop = stop
	}
	return req
}

// createChatCompletion runs req and converts the response and any failure.
func createChatCompletion(ctx context.Context, client *openai.Client, provider string, req openai.ChatCompletionRequest) (Completion, error) {
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Completion{}, cairerr.Provider(provider, fmt.Errorf("chat completion failed: %w", err))
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	usage := &TokenUsage{
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
	}

	return Completion{Text: content, Usage: usage}, nil
}

func maxTokensFor(params Params, defaultMax int) int {
	if params.MaxTokens > 0 {
		return params.MaxTokens
	}
	return defaultMax
}

// Verify OpenAIProvider implements Provider and Completer
var (
	_ Provider  = (*OpenAIProvider)(nil)
	_ Completer = (*OpenAIProvider)(nil)
)
