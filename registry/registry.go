// Package registry binds agent roles to providers and routes prompts to them.
//
// Information Hiding:
// - Provider construction, caching and fallback policy
// - Binding and prompt table synchronization
// - Dispatch instrumentation
//
// A Registry owns its binding table, provider cache and prompt table. It is
// safe for concurrent use; provider calls run outside the lock.
package registry

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/richinex/cair/agent"
	"github.com/richinex/cair/cairerr"
	"github.com/richinex/cair/llm"
	"github.com/richinex/cair/prompt"
	"github.com/richinex/cair/telemetry"
)

// ProviderStatus describes how a configured provider name was resolved.
type ProviderStatus struct {
	// Name is the canonical provider name (or the name as configured when unknown).
	Name string

	// Fallback is true when the mock provider stands in for the requested one.
	Fallback bool

	// Reason is the construction error that caused the fallback.
	Reason error
}

// Registry maps roles to bindings and provider handles.
type Registry struct {
	mu        sync.RWMutex
	bindings  map[agent.Role]agent.Binding
	providers map[string]llm.Provider
	status    map[string]ProviderStatus
	prompts   map[string]string

	catalog        *llm.Catalog
	fallback       llm.Provider
	logger         *slog.Logger
	instruments    *telemetry.Instruments
	strict         bool
	validateModels bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithCatalog replaces the default provider catalog.
func WithCatalog(catalog *llm.Catalog) Option {
	return func(r *Registry) { r.catalog = catalog }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithFallback replaces the provider used when construction fails.
func WithFallback(provider llm.Provider) Option {
	return func(r *Registry) { r.fallback = provider }
}

// WithStrictProviders makes Configure return provider construction errors
// instead of falling back to the mock provider.
func WithStrictProviders() Option {
	return func(r *Registry) { r.strict = true }
}

// WithModelValidation makes Configure reject models missing from the
// provider's ListModels catalogue.
func WithModelValidation() Option {
	return func(r *Registry) { r.validateModels = true }
}

// WithInstruments sets the metrics recorder.
func WithInstruments(instruments *telemetry.Instruments) Option {
	return func(r *Registry) { r.instruments = instruments }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		bindings:  make(map[agent.Role]agent.Binding),
		providers: make(map[string]llm.Provider),
		status:    make(map[string]ProviderStatus),
		prompts:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.catalog == nil {
		r.catalog = llm.DefaultCatalog()
	}
	if r.fallback == nil {
		r.fallback = llm.NewMockProvider()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.instruments == nil {
		if in, err := telemetry.NewInstruments(); err == nil {
			r.instruments = in
		} else {
			r.logger.Warn("metrics disabled", "error", err)
		}
	}
	return r
}

// Configure upserts the binding for role. The previous binding, if any, is
// replaced rather than merged. The provider handle for providerName is
// created on first use and shared by every role bound to it.
func (r *Registry) Configure(role agent.Role, providerName, model string, opts ...agent.BindingOption) error {
	return r.ConfigureBinding(role, agent.NewBinding(providerName, model, opts...))
}

// ConfigureBinding upserts a pre-built binding for role.
func (r *Registry) ConfigureBinding(role agent.Role, binding agent.Binding) error {
	if !role.Valid() {
		return cairerr.Configuration("unknown role: %q", role)
	}
	if err := binding.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	provider, status, err := r.resolveLocked(binding.Provider)
	if err != nil {
		return err
	}
	if r.validateModels {
		if err := llm.CheckModel(provider, binding.Model); err != nil {
			return err
		}
	}

	if status.Fallback {
		if _, seen := r.status[status.Name]; !seen {
			r.logger.Warn("provider unavailable, using mock provider",
				"provider", binding.Provider,
				"fallback", provider.Name(),
				"error", status.Reason,
			)
		}
	}
	r.providers[status.Name] = provider
	r.status[status.Name] = status
	r.bindings[role] = binding.Clone()

	r.logger.Debug("agent configured",
		"role", role,
		"provider", status.Name,
		"model", binding.Model,
		"tier", binding.Tier,
		"temperature", binding.Temperature,
	)
	return nil
}

// resolveLocked returns the cached handle for name or constructs one,
// without touching the tables. Caller must hold r.mu.
func (r *Registry) resolveLocked(name string) (llm.Provider, ProviderStatus, error) {
	key, _ := r.catalog.Canonical(name)
	if provider, ok := r.providers[key]; ok {
		return provider, r.status[key], nil
	}

	provider, err := r.catalog.New(name)
	if err == nil {
		return provider, ProviderStatus{Name: key}, nil
	}
	if r.strict || !fallbackAllowed(err) {
		return nil, ProviderStatus{}, err
	}
	return r.fallback, ProviderStatus{Name: key, Fallback: true, Reason: err}, nil
}

func fallbackAllowed(err error) bool {
	return errors.Is(err, cairerr.ErrUnknownProvider) || errors.Is(err, cairerr.ErrCapabilityUnavailable)
}

// Binding returns a copy of the binding for role.
func (r *Registry) Binding(role agent.Role) (agent.Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[role]
	if !ok {
		return agent.Binding{}, false
	}
	return b.Clone(), true
}

// Roles returns the configured roles in declaration order.
func (r *Registry) Roles() []agent.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]agent.Role, 0, len(r.bindings))
	for _, role := range agent.Roles() {
		if _, ok := r.bindings[role]; ok {
			roles = append(roles, role)
		}
	}
	return roles
}

// Provider returns the cached provider handle for name, if any role has used it.
func (r *Registry) Provider(name string) (llm.Provider, bool) {
	key, _ := r.catalog.Canonical(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[key]
	return p, ok
}

// ProviderStatus reports how name was resolved.
func (r *Registry) ProviderStatus(name string) (ProviderStatus, bool) {
	key, _ := r.catalog.Canonical(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.status[key]
	return s, ok
}

// Fallbacks returns the status of every provider name that fell back to the
// mock provider, sorted by name.
func (r *Registry) Fallbacks() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ProviderStatus
	for _, s := range r.status {
		if s.Fallback {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadPrompt reads source and stores its text under name, replacing any
// previous prompt of that name.
func (r *Registry) LoadPrompt(name string, source prompt.Source) error {
	text, err := source.Text()
	if err != nil {
		return cairerr.Configuration("failed to load prompt %q", name).Wrap(err)
	}

	r.mu.Lock()
	r.prompts[name] = text
	r.mu.Unlock()
	return nil
}

// GetPrompt returns the text stored under name.
func (r *Registry) GetPrompt(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	text, ok := r.prompts[name]
	if !ok {
		return "", cairerr.PromptNotFound(name)
	}
	return text, nil
}

// Prompts returns the loaded prompt names in sorted order.
func (r *Registry) Prompts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.prompts))
	for name := range r.prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
