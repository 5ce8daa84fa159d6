package cairerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleNotConfiguredIsConfiguration(t *testing.T) {
	err := RoleNotConfigured("generator")

	assert.True(t, errors.Is(err, ErrRoleNotConfigured))
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.False(t, errors.Is(err, ErrProvider))
	assert.Equal(t, "No agent configured for role: generator", err.Error())
	assert.Equal(t, "generator", err.Context["role"])
}

func TestModelNotFoundIsProvider(t *testing.T) {
	err := ModelNotFound("gpt-9", "openai")

	assert.True(t, errors.Is(err, ErrModelNotFound))
	assert.True(t, errors.Is(err, ErrProvider))
	assert.False(t, errors.Is(err, ErrConfiguration))
	assert.Equal(t, "Model 'gpt-9' not found for provider 'openai'", err.Error())
}

func TestProviderWrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Provider("anthropic", cause)

	assert.True(t, errors.Is(err, ErrProvider))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrappedErrorStillMatches(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", PromptNotFound("system"))

	require.True(t, errors.Is(err, ErrPromptNotFound))

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, KindPromptNotFound, typed.Kind)
	assert.Equal(t, "Prompt not found: system", typed.Error())
}

func TestSentinelDoesNotMatchNarrowerKind(t *testing.T) {
	err := Configuration("bad tier %q", "ultra")

	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.False(t, errors.Is(err, ErrRoleNotConfigured))
}

func TestCapabilityUnavailableHierarchy(t *testing.T) {
	err := CapabilityUnavailable("gemini", errors.New("GEMINI_API_KEY not set"))

	assert.True(t, errors.Is(err, ErrCapabilityUnavailable))
	assert.True(t, errors.Is(err, ErrProvider))
	assert.False(t, errors.Is(err, ErrUnknownProvider))
	assert.True(t, errors.Is(UnknownProvider("x"), ErrConfiguration))
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", RoleNotConfigured("refiner"))

	assert.Equal(t, KindRoleNotConfigured, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestWrapKeepsKind(t *testing.T) {
	cause := errors.New("permission denied")
	err := Configuration("failed to load prompt %q", "review").Wrap(cause)

	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `failed to load prompt "review": permission denied`, err.Error())
}
