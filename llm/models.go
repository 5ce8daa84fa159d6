// Package llm provides shared data models for LLM providers.
package llm

import "maps"

// Options is an open, provider-specific parameter bag.
// The registry and pipeline only merge and forward it; adapters decide which
// keys they understand. The vendor adapters in this package read:
//
//	"system" string   - system prompt / instruction
//	"top_p"  float64  - nucleus sampling
//	"stop"   []string - stop sequences
type Options map[string]any

// Well-known option keys read by the vendor adapters.
const (
	OptionSystem = "system"
	OptionTopP   = "top_p"
	OptionStop   = "stop"
)

// Merge returns a new map holding o overlaid with over. Neither input is modified.
func (o Options) Merge(over Options) Options {
	merged := make(Options, len(o)+len(over))
	maps.Copy(merged, o)
	maps.Copy(merged, over)
	return merged
}

// Clone returns a shallow copy.
func (o Options) Clone() Options {
	if o == nil {
		return Options{}
	}
	return maps.Clone(o)
}

// String returns a string option.
func (o Options) String(key string) (string, bool) {
	s, ok := o[key].(string)
	return s, ok && s != ""
}

// Float returns a numeric option as float64.
func (o Options) Float(key string) (float64, bool) {
	switch v := o[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Strings returns a string-slice option. A single string is promoted to a
// one-element slice.
func (o Options) Strings(key string) ([]string, bool) {
	switch v := o[key].(type) {
	case []string:
		return v, len(v) > 0
	case string:
		return []string{v}, v != ""
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, len(out) > 0
	default:
		return nil, false
	}
}

// Params carries the sampling parameters of one generate call.
type Params struct {
	Temperature float64
	// MaxTokens caps the response length; 0 means the provider default.
	MaxTokens int
	Options   Options
}

// Completion is the text of a response plus token usage when the provider
// reports it.
type Completion struct {
	Text  string
	Model string // model that served the call, set by the caller that picked it
	Usage *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}
