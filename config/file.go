package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/richinex/cair/agent"
	"github.com/richinex/cair/cairerr"
	"github.com/richinex/cair/llm"
	"github.com/richinex/cair/prompt"
	"github.com/richinex/cair/registry"
)

// EnvPrefix selects environment overrides for file settings.
const EnvPrefix = "CAIR_"

// File is the YAML configuration schema.
type File struct {
	Log       LogFile              `koanf:"log"`
	Telemetry TelemetryFile        `koanf:"telemetry"`
	Pipeline  PipelineFile         `koanf:"pipeline"`
	Agents    map[string]AgentFile `koanf:"agents"`
	Prompts   map[string]string    `koanf:"prompts"`

	dir string
}

type LogFile struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryFile struct {
	Exporter string `koanf:"exporter"` // none, stdout
}

type PipelineFile struct {
	MaxIterations    int     `koanf:"max_iterations"`
	QualityThreshold float64 `koanf:"quality_threshold"`
	QAStage          bool    `koanf:"qa_stage"`
}

// AgentFile is one role binding.
type AgentFile struct {
	Provider    string         `koanf:"provider"`
	Model       string         `koanf:"model"`
	Tier        string         `koanf:"tier"`
	Temperature *float64       `koanf:"temperature"`
	MaxTokens   int            `koanf:"max_tokens"`
	Options     map[string]any `koanf:"options"`
}

// Load reads defaults, then the YAML file at path (if any), then CAIR_ env overrides.
// CAIR_PIPELINE_MAX_ITERATIONS sets pipeline.max_iterations: the first underscore
// after the prefix separates the section from the key. The names New reads,
// CAIR_MAX_ITERATIONS and CAIR_QUALITY_THRESHOLD, set the same pipeline keys.
func Load(path string) (*File, error) {
	k := koanf.New(".")

	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "none")
	k.Set("pipeline.max_iterations", DefaultMaxIterations)
	k.Set("pipeline.quality_threshold", DefaultQualityThreshold)
	k.Set("pipeline.qa_stage", false)

	var cfg File
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.dir = filepath.Dir(path)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

var envAliases = map[string]string{
	"CAIR_MAX_ITERATIONS":    "pipeline.max_iterations",
	"CAIR_QUALITY_THRESHOLD": "pipeline.quality_threshold",
}

func envKey(s string) string {
	if key, ok := envAliases[s]; ok {
		return key
	}
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

// Bindings converts the agents section into role bindings keyed by role.
func (f *File) Bindings() (map[agent.Role]agent.Binding, error) {
	bindings := make(map[agent.Role]agent.Binding, len(f.Agents))
	for name, a := range f.Agents {
		role, err := agent.ParseRole(name)
		if err != nil {
			return nil, err
		}
		tier, err := agent.ParseTier(a.Tier)
		if err != nil {
			return nil, err
		}

		opts := []agent.BindingOption{agent.WithTier(tier), agent.WithMaxTokens(a.MaxTokens)}
		if a.Temperature != nil {
			opts = append(opts, agent.WithTemperature(*a.Temperature))
		}
		if len(a.Options) > 0 {
			opts = append(opts, agent.WithExtra(llm.Options(a.Options)))
		}

		model := a.Model
		if model == "" {
			if model, err = ModelFor(a.Provider); err != nil {
				return nil, cairerr.Configuration("agent %s has no model: %v", name, err)
			}
		}
		bindings[role] = agent.NewBinding(a.Provider, model, opts...)
	}
	return bindings, nil
}

// Apply configures every role and loads every prompt file into reg.
// Relative prompt paths resolve against the config file's directory.
func (f *File) Apply(reg *registry.Registry) error {
	bindings, err := f.Bindings()
	if err != nil {
		return err
	}
	for _, role := range agent.Roles() {
		binding, ok := bindings[role]
		if !ok {
			continue
		}
		if err := reg.ConfigureBinding(role, binding); err != nil {
			return fmt.Errorf("failed to configure %s: %w", role, err)
		}
	}

	names := make([]string, 0, len(f.Prompts))
	for name := range f.Prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := f.Prompts[name]
		if !filepath.IsAbs(path) && f.dir != "" {
			path = filepath.Join(f.dir, path)
		}
		if err := reg.LoadPrompt(name, prompt.File(path)); err != nil {
			return err
		}
	}
	return nil
}
