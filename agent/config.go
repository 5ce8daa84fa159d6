// Agent binding configuration.
//
// Information Hiding:
// - Default values hidden
// - Parameter validation logic hidden

package agent

import (
	"fmt"

	"github.com/richinex/cair/cairerr"
	"github.com/richinex/cair/llm"
)

// DefaultTemperature is the sampling temperature of a binding that sets none.
const DefaultTemperature = 0.7

// Binding ties a role to a provider, model and sampling parameters.
type Binding struct {
	// Provider is the provider name as configured (aliases allowed).
	Provider string

	// Model is passed verbatim to the provider.
	Model string

	// Tier is informational.
	Tier ModelTier

	// Temperature is in [0, 1].
	Temperature float64

	// MaxTokens caps the response. Zero defers to the provider default.
	MaxTokens int

	// Extra holds provider-specific overrides. The registry never interprets it.
	Extra llm.Options
}

// BindingOption customizes a Binding.
type BindingOption func(*Binding)

// WithTier sets the model tier.
func WithTier(tier ModelTier) BindingOption {
	return func(b *Binding) { b.Tier = tier }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) BindingOption {
	return func(b *Binding) { b.Temperature = temperature }
}

// WithMaxTokens sets the response cap.
func WithMaxTokens(maxTokens int) BindingOption {
	return func(b *Binding) { b.MaxTokens = maxTokens }
}

// WithExtra merges provider-specific options into the binding.
func WithExtra(extra llm.Options) BindingOption {
	return func(b *Binding) { b.Extra = b.Extra.Merge(extra) }
}

// NewBinding creates a binding with TierPro and DefaultTemperature unless
// overridden by opts.
func NewBinding(provider, model string, opts ...BindingOption) Binding {
	b := Binding{
		Provider:    provider,
		Model:       model,
		Tier:        TierPro,
		Temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Validate checks the binding's fields.
func (b Binding) Validate() error {
	if b.Provider == "" {
		return cairerr.Configuration("provider name is required")
	}
	if b.Model == "" {
		return cairerr.Configuration("model is required for provider %q", b.Provider)
	}
	if !b.Tier.Valid() {
		return cairerr.Configuration("unknown model tier: %q", b.Tier)
	}
	if b.Temperature < 0 || b.Temperature > 1 {
		return cairerr.Configuration("temperature %.2f out of range [0, 1]", b.Temperature)
	}
	if b.MaxTokens < 0 {
		return cairerr.Configuration("max tokens must not be negative, got %d", b.MaxTokens)
	}
	return nil
}

// Params converts the binding into call parameters, overlaying call options
// on the binding's Extra.
func (b Binding) Params(callOptions llm.Options) llm.Params {
	return llm.Params{
		Temperature: b.Temperature,
		MaxTokens:   b.MaxTokens,
		Options:     b.Extra.Merge(callOptions),
	}
}

// Clone returns a copy whose Extra map is not shared.
func (b Binding) Clone() Binding {
	b.Extra = b.Extra.Clone()
	return b
}

func (b Binding) String() string {
	return fmt.Sprintf("%s/%s (%s, temperature=%.2f)", b.Provider, b.Model, b.Tier, b.Temperature)
}
