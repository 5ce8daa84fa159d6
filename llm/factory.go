// LLM Provider Factory - builder API for creating vendor providers.
//
// Model and sampling parameters travel with every call (they belong to the
// role binding), so a provider is configured only with its credential and
// transport settings.
//
// Quick Start:
//
//	// Read API key from environment
//	openai, err := llm.ProviderOpenAI.FromEnv()
//
//	// Custom default response cap and endpoint
//	claude, err := llm.ProviderAnthropic.
//	    Builder().
//	    MaxTokens(8192).
//	    BaseURL("https://proxy.internal").
//	    FromEnv()
//
//	// With explicit API key
//	provider, err := llm.ProviderOpenAI.APIKey("sk-...")

package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/richinex/cair/cairerr"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
	// ProviderMock is the deterministic no-op provider.
	ProviderMock
)

// defaultMaxTokens is used when neither the call nor the builder sets a cap.
const defaultMaxTokens = 4096

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderGemini:
		return "gemini"
	case ProviderMock:
		return "mock"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable name for this provider's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return ModelOpenAIGPT4o
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	case ProviderGemini:
		return ModelGeminiFlash25
	case ProviderMock:
		return "mock-gpt-4"
	default:
		return ""
	}
}

// Models returns the static model catalogue for this provider type.
// It needs no credentials.
func (p ProviderType) Models() []string {
	switch p {
	case ProviderOpenAI:
		return []string{
			ModelOpenAIGPT4,
			ModelOpenAIGPT4Turbo,
			ModelOpenAIGPT35Turbo,
			ModelOpenAIGPT4o,
			ModelOpenAIGPT4oMini,
			ModelOpenAIGPT5,
			ModelOpenAIGPT52,
			ModelOpenAIO3Mini,
		}
	case ProviderAnthropic:
		return []string{
			ModelAnthropicClaude3Opus,
			ModelAnthropicClaude3Sonnet,
			ModelAnthropicClaude3Haiku,
			ModelAnthropicClaude35Sonnet,
			ModelAnthropicClaudeSonnet4,
			ModelAnthropicClaudeOpus45,
		}
	case ProviderDeepSeek:
		return []string{ModelDeepSeekChat, ModelDeepSeekReasoner}
	case ProviderGemini:
		return []string{
			ModelGeminiPro,
			ModelGeminiProVision,
			ModelGemini15Pro,
			ModelGemini15Flash,
			ModelGeminiFlash25,
		}
	case ProviderMock:
		return []string{"mock-gpt-4", "mock-claude-3", "mock-gemini-pro"}
	default:
		return nil
	}
}

// Aliases returns the alternative names accepted for this provider.
func (p ProviderType) Aliases() []string {
	switch p {
	case ProviderOpenAI:
		return []string{"gpt"}
	case ProviderAnthropic:
		return []string{"claude"}
	case ProviderGemini:
		return []string{"google"}
	case ProviderMock:
		return []string{"test", "noop"}
	default:
		return nil
	}
}

// ProviderTypes lists every built-in provider type.
func ProviderTypes() []ProviderType {
	return []ProviderType{ProviderOpenAI, ProviderAnthropic, ProviderDeepSeek, ProviderGemini, ProviderMock}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range ProviderTypes() {
		if s == p.String() {
			return p, nil
		}
		for _, alias := range p.Aliases() {
			if s == alias {
				return p, nil
			}
		}
	}
	return 0, cairerr.UnknownProvider(s)
}

// FromEnv creates a provider with defaults, reading API key from environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// APIKey creates a provider with an explicit API key.
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// Builder starts configuring this provider.
func (p ProviderType) Builder() *ProviderBuilder {
	return NewProviderBuilder(p)
}

// ProviderBuilder is a builder for configuring LLM providers.
type ProviderBuilder struct {
	providerType ProviderType
	maxTokens    uint32
	baseURL      string
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{
		providerType: providerType,
	}
}

// MaxTokens sets the default response cap used when a call does not set one.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// BaseURL overrides the API endpoint (proxies, compatible gateways, tests).
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.baseURL = url
	return b
}

// FromEnv builds the provider, reading API key from environment.
// A missing key is reported as cairerr.ErrCapabilityUnavailable.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	if b.providerType == ProviderMock {
		return NewMockProvider(), nil
	}
	envVar := b.providerType.EnvVar()
	apiKey := os.Getenv(envVar)
	if apiKey == "" {
		return nil, cairerr.CapabilityUnavailable(b.providerType.String(),
			fmt.Errorf("%s environment variable not set", envVar))
	}
	return b.build(apiKey)
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	if b.providerType == ProviderMock {
		return NewMockProvider(), nil
	}
	if key == "" {
		return nil, cairerr.CapabilityUnavailable(b.providerType.String(),
			fmt.Errorf("empty API key"))
	}
	return b.build(key)
}

func (b *ProviderBuilder) build(apiKey string) (Provider, error) {
	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	switch b.providerType {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, maxTokens, b.baseURL), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, maxTokens, b.baseURL), nil
	case ProviderDeepSeek:
		return NewDeepSeekProvider(apiKey, maxTokens, b.baseURL), nil
	case ProviderGemini:
		return NewGeminiProvider(apiKey, maxTokens, b.baseURL)
	default:
		return nil, cairerr.UnknownProvider(b.providerType.String())
	}
}

// Model identifier constants for all supported providers.

// OpenAI model identifiers
const (
	ModelOpenAIGPT52      = "gpt-5.2"
	ModelOpenAIGPT5       = "gpt-5"
	ModelOpenAIO3Mini     = "o3-mini"
	ModelOpenAIGPT4o      = "gpt-4o"
	ModelOpenAIGPT4oMini  = "gpt-4o-mini"
	ModelOpenAIGPT4       = "gpt-4"
	ModelOpenAIGPT4Turbo  = "gpt-4-turbo"
	ModelOpenAIGPT35Turbo = "gpt-3.5-turbo"
)

// Anthropic model identifiers
const (
	ModelAnthropicClaudeOpus45   = "claude-opus-4-5-20251101"
	ModelAnthropicClaudeSonnet4  = "claude-sonnet-4-20250514"
	ModelAnthropicClaude3Opus    = "claude-3-opus-20240229"
	ModelAnthropicClaude3Sonnet  = "claude-3-sonnet-20240229"
	ModelAnthropicClaude35Sonnet = "claude-3-5-sonnet-20240620"
	ModelAnthropicClaude3Haiku   = "claude-3-haiku-20240307"
)

// DeepSeek model identifiers
const (
	ModelDeepSeekChat     = "deepseek-chat"
	ModelDeepSeekReasoner = "deepseek-reasoner"
)

// Gemini model identifiers
const (
	ModelGeminiPro       = "gemini-pro"
	ModelGeminiProVision = "gemini-pro-vision"
	ModelGemini15Pro     = "gemini-1.5-pro"
	ModelGemini15Flash   = "gemini-1.5-flash"
	ModelGeminiFlash25   = "gemini-2.5-flash"
)
