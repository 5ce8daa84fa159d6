// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API

package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/richinex/cair/cairerr"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client    anthropic.Client
	maxTokens int64
}

// NewAnthropicProvider creates a new Anthropic provider.
// An empty baseURL keeps the public Anthropic endpoint.
func NewAnthropicProvider(apiKey string, maxTokens uint32, baseURL string) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(opts...),
		maxTokens: int64(maxTokens),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// ListModels returns the Anthropic model catalogue.
func (p *AnthropicProvider) ListModels() []string {
	return ProviderAnthropic.Models()
}

// Generate sends a message request and returns the text content.
func (p *AnthropicProvider) Generate(ctx context.Context, prompt, model string, params Params) (string, error) {
	completion, err := p.Complete(ctx, prompt, model, params)
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// Complete sends a message request and returns text with usage.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt, model string, params Params) (Completion, error) {
	message, err := p.client.Messages.New(ctx, p.messageParams(prompt, model, params))
	if err != nil {
		return Completion{}, cairerr.Provider(p.Name(), fmt.Errorf("chat completion failed: %w", err))
	}

	content := ""
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		}
	}

	var usage *TokenUsage
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:     uint32(message.Usage.InputTokens),
			CompletionTokens: uint32(message.Usage.OutputTokens),
			TotalTokens:      uint32(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}

	return Completion{Text: content, Usage: usage}, nil
}

// messageParams maps a prompt and params onto a Messages API request.
func (p *AnthropicProvider) messageParams(prompt, model string, params Params) anthropic.MessageNewParams {
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokensFor(params, int(p.maxTokens))),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(params.Temperature),
	}

	if system, ok := params.Options.String(OptionSystem); ok {
		req.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}
	if topP, ok := params.Options.Float(OptionTopP); ok {
		req.TopP = anthropic.Float(topP)
	}
	if stop, ok := params.Options.Strings(OptionStop); ok {
		req.StopSequences = stop
	}
	return req
}

// Verify AnthropicProvider implements Provider and Completer
var (
	_ Provider  = (*AnthropicProvider)(nil)
	_ Completer = (*AnthropicProvider)(nil)
)
