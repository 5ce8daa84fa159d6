// Package agent provides the role and binding model used by the registry.
//
// Contains the closed Role and ModelTier enumerations and the per-role
// Binding that ties a role to a provider, model and sampling parameters.
package agent

import (
	"strings"

	"github.com/richinex/cair/cairerr"
)

// Role is the function an agent fulfills in a workflow.
type Role string

const (
	// RoleGenerator creates initial content or solutions.
	RoleGenerator Role = "generator"
	// RoleReviewer provides critical analysis and feedback.
	RoleReviewer Role = "reviewer"
	// RoleRefiner improves content based on feedback.
	RoleRefiner Role = "refiner"
	// RoleQAAnalyst validates quality and correctness.
	RoleQAAnalyst Role = "qa_analyst"
	// RoleOrchestrator coordinates multi-agent workflows.
	RoleOrchestrator Role = "orchestrator"
)

// Roles returns every role in declaration order.
func Roles() []Role {
	return []Role{RoleGenerator, RoleReviewer, RoleRefiner, RoleQAAnalyst, RoleOrchestrator}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGenerator, RoleReviewer, RoleRefiner, RoleQAAnalyst, RoleOrchestrator:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name, case-insensitively.
// "qa" and "qa-analyst" are accepted for the QA analyst.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "qa", "qa-analyst":
		return RoleQAAnalyst, nil
	}
	r := Role(name)
	if !r.Valid() {
		return "", cairerr.Configuration("unknown role: %q", s)
	}
	return r, nil
}

// ModelTier is a capability/cost hint attached to a binding.
// It is informational only; nothing in dispatch enforces it.
type ModelTier string

const (
	// TierPro is for high-capability models on complex, critical tasks.
	TierPro ModelTier = "pro"
	// TierFlash is for fast, cost-effective models on simpler tasks.
	TierFlash ModelTier = "flash"
)

// Valid reports whether t is a declared tier.
func (t ModelTier) Valid() bool {
	return t == TierPro || t == TierFlash
}

func (t ModelTier) String() string {
	return string(t)
}

// ParseTier parses a tier name. An empty string yields TierPro.
func ParseTier(s string) (ModelTier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return TierPro, nil
	}
	t := ModelTier(name)
	if !t.Valid() {
		return "", cairerr.Configuration("unknown model tier: %q", s)
	}
	return t, nil
}

// TaskContext is opaque caller metadata threaded through dispatch.
// It never changes provider behavior.
type TaskContext map[string]any

// Clone returns a shallow copy, or nil for a nil context.
func (c TaskContext) Clone() TaskContext {
	if c == nil {
		return nil
	}
	out := make(TaskContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
