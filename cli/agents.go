// Default role bindings for CLI commands.
//
// Information Hiding:
// - Per-role tier and temperature choices hidden
// - Provider default model and env limits hidden

package cli

import (
	"github.com/richinex/cair/agent"
	"github.com/richinex/cair/config"
	"github.com/richinex/cair/registry"
)

// DefaultBindings builds the workflow roles on one provider. Generation and
// refinement run on the pro tier at LLM_TEMPERATURE; QA runs cool on the
// flash tier. Every role is capped at LLM_MAX_TOKENS.
func DefaultBindings(provider, model string) (*agent.Collection, error) {
	settings, err := config.New(provider)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = settings.LLM.Model
	}
	maxTokens := int(settings.LLM.MaxTokens)
	temperature := settings.LLM.Temperature

	roles := agent.NewCollection()
	builders := []*agent.Builder{
		agent.NewBuilder(agent.RoleGenerator).Temperature(temperature),
		agent.NewBuilder(agent.RoleReviewer).Temperature(0.5),
		agent.NewBuilder(agent.RoleRefiner).Temperature(temperature),
		agent.NewBuilder(agent.RoleQAAnalyst).Tier(agent.TierFlash).Temperature(0.3),
	}
	for _, b := range builders {
		if err := roles.Add(b.Provider(settings.LLM.Provider).Model(model).MaxTokens(maxTokens)); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// ConfigureDefaults binds every workflow role the registry does not have yet.
// Roles configured from a file keep their binding.
func ConfigureDefaults(reg *registry.Registry, provider, model string) error {
	if provider == "" {
		provider = DefaultOptions().Provider
	}
	roles, err := DefaultBindings(provider, model)
	if err != nil {
		return err
	}
	return roles.Each(func(role agent.Role, binding agent.Binding) error {
		if _, ok := reg.Binding(role); ok {
			return nil
		}
		return reg.ConfigureBinding(role, binding)
	})
}
