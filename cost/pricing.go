// Package cost estimates and records token spend per model.
//
// Nothing here is invoked automatically: callers record usage after each
// response when they want accounting.
package cost

import "sort"

// Price is the USD cost per 1K tokens of a model.
type Price struct {
	Input  float64
	Output float64
}

// Prices maps model identifiers to per-1K-token prices.
type Prices map[string]Price

// DefaultPrices returns the built-in pricing table.
func DefaultPrices() Prices {
	return Prices{
		// OpenAI
		"gpt-4":         {Input: 0.03, Output: 0.06},
		"gpt-4-turbo":   {Input: 0.01, Output: 0.03},
		"gpt-4o":        {Input: 0.005, Output: 0.015},
		"gpt-3.5-turbo": {Input: 0.0005, Output: 0.0015},

		// Anthropic
		"claude-3-opus-20240229":     {Input: 0.015, Output: 0.075},
		"claude-3-sonnet-20240229":   {Input: 0.003, Output: 0.015},
		"claude-3-5-sonnet-20240620": {Input: 0.003, Output: 0.015},
		"claude-3-haiku-20240307":    {Input: 0.00025, Output: 0.00125},

		// Google Gemini
		"gemini-pro":       {Input: 0.00025, Output: 0.0005},
		"gemini-1.5-pro":   {Input: 0.0035, Output: 0.0105},
		"gemini-1.5-flash": {Input: 0.00035, Output: 0.00105},
	}
}

// Estimate returns the cost of one call. Unknown models cost 0.
func (p Prices) Estimate(model string, inputTokens, outputTokens int) float64 {
	price, ok := p[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000*price.Input + float64(outputTokens)/1000*price.Output
}

// Models returns the priced model identifiers in sorted order.
func (p Prices) Models() []string {
	models := make([]string, 0, len(p))
	for m := range p {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}
