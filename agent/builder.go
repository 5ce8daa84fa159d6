// Binding builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"github.com/richinex/cair/llm"
)

// Builder provides fluent configuration for a role binding.
// Usage: agent.NewBuilder(agent.RoleGenerator) - no stutter.
type Builder struct {
	role    Role
	binding Binding
}

// NewBuilder creates a builder for the given role.
func NewBuilder(role Role) *Builder {
	return &Builder{
		role:    role,
		binding: NewBinding("", ""),
	}
}

// Provider sets the provider name.
func (b *Builder) Provider(name string) *Builder {
	b.binding.Provider = name
	return b
}

// Model sets the model identifier.
func (b *Builder) Model(model string) *Builder {
	b.binding.Model = model
	return b
}

// Tier sets the model tier.
func (b *Builder) Tier(tier ModelTier) *Builder {
	b.binding.Tier = tier
	return b
}

// Temperature sets the sampling temperature.
func (b *Builder) Temperature(temperature float64) *Builder {
	b.binding.Temperature = temperature
	return b
}

// MaxTokens sets the response cap.
func (b *Builder) MaxTokens(maxTokens int) *Builder {
	b.binding.MaxTokens = maxTokens
	return b
}

// Option adds one provider-specific option.
func (b *Builder) Option(key string, value any) *Builder {
	b.binding.Extra = b.binding.Extra.Merge(llm.Options{key: value})
	return b
}

// Role returns the builder's role.
func (b *Builder) Role() Role {
	return b.role
}

// Build validates and returns the binding.
func (b *Builder) Build() (Binding, error) {
	if err := b.binding.Validate(); err != nil {
		return Binding{}, err
	}
	return b.binding.Clone(), nil
}

// Collection gathers bindings for several roles.
type Collection struct {
	order    []Role
	bindings map[Role]Binding
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		bindings: make(map[Role]Binding),
	}
}

// Add builds and stores the builder's binding. A later Add for the same
// role replaces the earlier one.
func (c *Collection) Add(builder *Builder) error {
	binding, err := builder.Build()
	if err != nil {
		return err
	}
	c.Set(builder.Role(), binding)
	return nil
}

// Set stores a pre-built binding.
func (c *Collection) Set(role Role, binding Binding) {
	if _, ok := c.bindings[role]; !ok {
		c.order = append(c.order, role)
	}
	c.bindings[role] = binding
}

// Each calls fn for every binding in insertion order, stopping at the first error.
func (c *Collection) Each(fn func(Role, Binding) error) error {
	for _, role := range c.order {
		if err := fn(role, c.bindings[role]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of roles.
func (c *Collection) Len() int {
	return len(c.bindings)
}
