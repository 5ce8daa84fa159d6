// Package config provides application settings loaded from environment variables
// and from an optional YAML file.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific model lookup

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/richinex/cair/llm"
)

// Pipeline defaults when neither env nor file override them.
const (
	DefaultMaxIterations    = 3
	DefaultQualityThreshold = 0.85
)

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
}

// PipelineConfig holds refinement loop configuration.
type PipelineConfig struct {
	MaxIterations    int
	QualityThreshold float64
}

// New creates settings for the specified provider, loading values from environment variables.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	pt, err := llm.ParseProviderType(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	maxIterations, err := getEnvInt("CAIR_MAX_ITERATIONS", DefaultMaxIterations)
	if err != nil {
		return Settings{}, err
	}

	threshold, err := getEnvFloat64("CAIR_QUALITY_THRESHOLD", DefaultQualityThreshold)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    pt.String(),
			Model:       modelFor(pt),
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Pipeline: PipelineConfig{
			MaxIterations:    maxIterations,
			QualityThreshold: threshold,
		},
	}, nil
}

// ModelFor returns the model for a provider, checking <PROVIDER>_MODEL first.
func ModelFor(provider string) (string, error) {
	pt, err := llm.ParseProviderType(provider)
	if err != nil {
		return "", err
	}
	return modelFor(pt), nil
}

func modelFor(pt llm.ProviderType) string {
	if val := os.Getenv(strings.ToUpper(pt.String()) + "_MODEL"); val != "" {
		return val
	}
	return pt.DefaultModel()
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	types := llm.ProviderTypes()
	result := make([]string, 0, len(types))
	for _, pt := range types {
		result = append(result, pt.String())
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
