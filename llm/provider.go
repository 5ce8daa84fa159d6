// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the capability every backend exposes to the registry.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling
//
// Providers never retry, stream or batch. A provider that needs a missing
// credential fails at construction time with cairerr.ErrCapabilityUnavailable.

package llm

import (
	"context"
	"slices"

	"github.com/richinex/cair/cairerr"
)

// Provider turns a prompt into generated text for one vendor (or the mock).
// Implementations are shared across every role bound to the same provider
// name and must be safe for concurrent use.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Generate sends a single prompt to the given model and returns the text.
	Generate(ctx context.Context, prompt, model string, params Params) (string, error)

	// ListModels returns the provider's static model catalogue.
	ListModels() []string
}

// Completer is implemented by providers that can also report token usage.
type Completer interface {
	Complete(ctx context.Context, prompt, model string, params Params) (Completion, error)
}

// Complete calls p.Complete when p is a Completer and falls back to Generate
// with no usage otherwise.
func Complete(ctx context.Context, p Provider, prompt, model string, params Params) (Completion, error) {
	if c, ok := p.(Completer); ok {
		return c.Complete(ctx, prompt, model, params)
	}
	text, err := p.Generate(ctx, prompt, model, params)
	if err != nil {
		return Completion{}, err
	}
	return Completion{Text: text}, nil
}

// CheckModel returns ModelNotFound if model is absent from p's catalogue.
func CheckModel(p Provider, model string) error {
	if slices.Contains(p.ListModels(), model) {
		return nil
	}
	return cairerr.ModelNotFound(model, p.Name())
}
