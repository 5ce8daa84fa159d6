package registry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/richinex/cair/agent"
	"github.com/richinex/cair/cairerr"
	"github.com/richinex/cair/llm"
	"github.com/richinex/cair/telemetry"
)

// DispatchOption customizes a single dispatch.
type DispatchOption func(*dispatchConfig)

type dispatchConfig struct {
	taskContext agent.TaskContext
	options     llm.Options
	maxTokens   int
}

// WithContext attaches opaque task metadata. It is logged and traced but
// never sent to the provider.
func WithContext(tctx agent.TaskContext) DispatchOption {
	return func(c *dispatchConfig) { c.taskContext = tctx }
}

// WithOptions overlays per-call options on the binding's Extra.
func WithOptions(opts llm.Options) DispatchOption {
	return func(c *dispatchConfig) { c.options = c.options.Merge(opts) }
}

// WithMaxTokens overrides the binding's response cap for one call.
func WithMaxTokens(maxTokens int) DispatchOption {
	return func(c *dispatchConfig) { c.maxTokens = maxTokens }
}

// Dispatch sends prompt to the provider bound to role and returns its text
// verbatim. An unconfigured role fails with cairerr.ErrRoleNotConfigured
// before any provider call. Provider failures are returned unretried.
func (r *Registry) Dispatch(ctx context.Context, role agent.Role, prompt string, opts ...DispatchOption) (string, error) {
	completion, err := r.dispatch(ctx, role, prompt, opts, false)
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// DispatchCompletion is Dispatch plus token usage for providers that report it.
// Completion.Model is the binding's model at the time of the call.
func (r *Registry) DispatchCompletion(ctx context.Context, role agent.Role, prompt string, opts ...DispatchOption) (llm.Completion, error) {
	return r.dispatch(ctx, role, prompt, opts, true)
}

func (r *Registry) dispatch(ctx context.Context, role agent.Role, prompt string, opts []DispatchOption, withUsage bool) (llm.Completion, error) {
	var cfg dispatchConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	binding, provider, err := r.lookup(role)
	if err != nil {
		r.instruments.RecordDispatch(ctx, role.String(), "", string(cairerr.KindOf(err)))
		return llm.Completion{}, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "registry.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(telemetry.AttrRole, role.String()),
			attribute.String(telemetry.AttrProvider, provider.Name()),
			attribute.String(telemetry.AttrModel, binding.Model),
		),
	)
	defer span.End()

	params := binding.Params(cfg.options)
	if cfg.maxTokens > 0 {
		params.MaxTokens = cfg.maxTokens
	}

	r.logger.DebugContext(ctx, "dispatching",
		"role", role,
		"provider", provider.Name(),
		"model", binding.Model,
		"prompt_len", len(prompt),
		"context_keys", len(cfg.taskContext),
	)

	start := time.Now()
	var completion llm.Completion
	if withUsage {
		completion, err = llm.Complete(ctx, provider, prompt, binding.Model, params)
	} else {
		completion.Text, err = provider.Generate(ctx, prompt, binding.Model, params)
	}
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.instruments.RecordDispatch(ctx, role.String(), provider.Name(), errorKind(err))
		r.logger.DebugContext(ctx, "dispatch failed", "role", role, "error", err, "elapsed", elapsed)
		return llm.Completion{}, err
	}

	completion.Model = binding.Model
	r.instruments.RecordDispatch(ctx, role.String(), provider.Name(), "")
	if completion.Usage != nil {
		span.SetAttributes(
			attribute.Int("gen_ai.usage.input_tokens", int(completion.Usage.PromptTokens)),
			attribute.Int("gen_ai.usage.output_tokens", int(completion.Usage.CompletionTokens)),
		)
	}
	r.logger.DebugContext(ctx, "dispatch complete", "role", role, "response_len", len(completion.Text), "elapsed", elapsed)
	return completion, nil
}

// lookup resolves role to its binding and provider handle under the read lock.
func (r *Registry) lookup(role agent.Role) (agent.Binding, llm.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	binding, ok := r.bindings[role]
	if !ok {
		return agent.Binding{}, nil, cairerr.RoleNotConfigured(role.String())
	}
	key, _ := r.catalog.Canonical(binding.Provider)
	provider, ok := r.providers[key]
	if !ok {
		return agent.Binding{}, nil, cairerr.Configuration("no provider handle for %q", binding.Provider)
	}
	return binding, provider, nil
}

func errorKind(err error) string {
	if kind := cairerr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "unknown"
}
