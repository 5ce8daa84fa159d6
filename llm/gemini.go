// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/richinex/cair/cairerr"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client    *genai.Client
	maxTokens int32
}

// NewGeminiProvider creates a new Gemini provider.
// Client initialization failures are reported immediately as
// cairerr.ErrCapabilityUnavailable.
func NewGeminiProvider(apiKey string, maxTokens uint32, baseURL string) (*GeminiProvider, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, cairerr.CapabilityUnavailable("gemini",
			fmt.Errorf("failed to initialize Gemini client: %w", err))
	}

	return &GeminiProvider{
		client:    client,
		maxTokens: int32(maxTokens),
	}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// ListModels returns the Gemini model catalogue.
func (p *GeminiProvider) ListModels() []string {
	return ProviderGemini.Models()
}

// Generate sends a generate-content request and returns the text.
func (p *GeminiProvider) Generate(ctx context.Context, prompt, model string, params Params) (string, error) {
	completion, err := p.Complete(ctx, prompt, model, params)
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// Complete sends a generate-content request and returns text with usage.
func (p *GeminiProvider) Complete(ctx context.Context, prompt, model string, params Params) (Completion, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	response, err := p.client.Models.GenerateContent(ctx, model, contents, p.generateConfig(params))
	if err != nil {
		return Completion{}, cairerr.Provider(p.Name(), fmt.Errorf("chat completion failed: %w", err))
	}

	content := response.Text()
	if content == "" {
		return Completion{}, cairerr.Provider(p.Name(), fmt.Errorf("empty response from Gemini"))
	}

	var usage *TokenUsage
	if response.UsageMetadata != nil {
		usage = &TokenUsage{
			PromptTokens:     uint32(response.UsageMetadata.PromptTokenCount),
			CompletionTokens: uint32(response.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      uint32(response.UsageMetadata.TotalTokenCount),
		}
	}

	return Completion{Text: content, Usage: usage}, nil
}

// generateConfig maps params onto a GenerateContentConfig.
func (p *GeminiProvider) generateConfig(params Params) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(params.Temperature)),
		MaxOutputTokens: int32(maxTokensFor(params, int(p.maxTokens))),
	}

	if system, ok := params.Options.String(OptionSystem); ok {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if topP, ok := params.Options.Float(OptionTopP); ok {
		config.TopP = genai.Ptr(float32(topP))
	}
	if stop, ok := params.Options.Strings(OptionStop); ok {
		config.StopSequences = stop
	}
	return config
}

// Verify GeminiProvider implements Provider and Completer
var (
	_ Provider  = (*GeminiProvider)(nil)
	_ Completer = (*GeminiProvider)(nil)
)
