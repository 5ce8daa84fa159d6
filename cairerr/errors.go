// Package cairerr provides the typed error taxonomy shared by the registry,
// providers and the refinement pipeline.
//
// Every error carries a Kind. Kinds form a small hierarchy so callers can
// match broadly or narrowly with errors.Is:
//
//	errors.Is(err, cairerr.ErrConfiguration)     // any configuration problem
//	errors.Is(err, cairerr.ErrRoleNotConfigured) // only the missing-role case
package cairerr

import (
	"errors"
	"fmt"
)

// Kind classifies framework errors.
type Kind string

const (
	KindConfiguration         Kind = "configuration"
	KindRoleNotConfigured     Kind = "role_not_configured"
	KindUnknownProvider       Kind = "unknown_provider"
	KindProvider              Kind = "provider"
	KindModelNotFound         Kind = "model_not_found"
	KindCapabilityUnavailable Kind = "capability_unavailable"
	KindPromptNotFound        Kind = "prompt_not_found"
)

// parent maps a kind to its broader kind.
var parent = map[Kind]Kind{
	KindRoleNotConfigured:     KindConfiguration,
	KindUnknownProvider:       KindConfiguration,
	KindModelNotFound:         KindProvider,
	KindCapabilityUnavailable: KindProvider,
}

// IsA reports whether k equals target or descends from it.
func (k Kind) IsA(target Kind) bool {
	for cur := k; cur != ""; cur = parent[cur] {
		if cur == target {
			return true
		}
	}
	return false
}

// Error is a typed framework error.
// It can be matched with errors.Is against the sentinels below and
// unwrapped with errors.As.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Context map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error whose kind is the same as, or an ancestor of, e.Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind.IsA(t.Kind)
}

// With attaches a context value and returns the error for chaining.
func (e *Error) With(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// Wrap sets the underlying cause and returns the error for chaining.
func (e *Error) Wrap(cause error) *Error {
	e.Err = cause
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinels for errors.Is.
var (
	ErrConfiguration         = &Error{Kind: KindConfiguration, Message: "configuration error"}
	ErrRoleNotConfigured     = &Error{Kind: KindRoleNotConfigured, Message: "role not configured"}
	ErrUnknownProvider       = &Error{Kind: KindUnknownProvider, Message: "unknown provider"}
	ErrProvider              = &Error{Kind: KindProvider, Message: "provider error"}
	ErrModelNotFound         = &Error{Kind: KindModelNotFound, Message: "model not found"}
	ErrCapabilityUnavailable = &Error{Kind: KindCapabilityUnavailable, Message: "capability unavailable"}
	ErrPromptNotFound        = &Error{Kind: KindPromptNotFound, Message: "prompt not found"}
)

// Configuration creates a generic configuration error.
func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// RoleNotConfigured reports dispatch to a role with no binding.
func RoleNotConfigured(role string) *Error {
	return (&Error{
		Kind:    KindRoleNotConfigured,
		Message: "No agent configured for role: " + role,
	}).With("role", role)
}

// UnknownProvider reports a provider name absent from the catalog.
func UnknownProvider(name string) *Error {
	return (&Error{
		Kind:    KindUnknownProvider,
		Message: fmt.Sprintf("unknown provider: %q", name),
	}).With("provider", name)
}

// Provider wraps a failure that originated inside a provider.
func Provider(provider string, cause error) *Error {
	return (&Error{
		Kind:    KindProvider,
		Message: provider + " provider failed",
		Err:     cause,
	}).With("provider", provider)
}

// ModelNotFound reports a model identifier missing from a provider's catalogue.
func ModelNotFound(model, provider string) *Error {
	return (&Error{
		Kind:    KindModelNotFound,
		Message: fmt.Sprintf("Model '%s' not found for provider '%s'", model, provider),
	}).With("model", model).With("provider", provider)
}

// CapabilityUnavailable reports a provider that cannot be constructed,
// typically because a credential is missing.
func CapabilityUnavailable(provider string, cause error) *Error {
	return (&Error{
		Kind:    KindCapabilityUnavailable,
		Message: provider + " provider unavailable",
		Err:     cause,
	}).With("provider", provider)
}

// PromptNotFound reports lookup of a prompt that was never loaded.
func PromptNotFound(name string) *Error {
	return (&Error{
		Kind:    KindPromptNotFound,
		Message: "Prompt not found: " + name,
	}).With("prompt", name)
}
