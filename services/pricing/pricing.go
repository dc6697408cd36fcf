package pricing

import (
	"math"

	"github.com/upb/llm-cost-guard/services"
)

// ModelPricing is the per-1K-token rate card for one model.
type ModelPricing struct {
	PromptCostPer1K     float64
	CompletionCostPer1K float64
}

// table is the fixed rate card. No dynamic fetching, no default rates:
// an unknown model is an error, never a guess.
var table = map[string]ModelPricing{
	"gpt-4":         {PromptCostPer1K: 30.00, CompletionCostPer1K: 60.00},
	"gpt-3.5-turbo": {PromptCostPer1K: 1.50, CompletionCostPer1K: 2.00},
	"claude-3-opus": {PromptCostPer1K: 15.00, CompletionCostPer1K: 75.00},
}

// Lookup returns the rate card for a model.
func Lookup(model string) (ModelPricing, error) {
	p, ok := table[model]
	if !ok {
		return ModelPricing{}, services.NewDomainError(services.ErrorTypeValidation, "unsupported model", nil).
			WithDetail("model", model)
	}
	return p, nil
}

// SupportedModels returns the models the rate card covers.
func SupportedModels() []string {
	models := make([]string, 0, len(table))
	for m := range table {
		models = append(models, m)
	}
	return models
}

// EstimateCost computes the dollar cost of a call. Rounding is
// conservative: always up to the next cent, so estimates never
// understate spend against a budget.
func EstimateCost(model string, promptTokens, completionTokens int) (float64, error) {
	p, err := Lookup(model)
	if err != nil {
		return 0, err
	}

	cost := float64(promptTokens)/1000*p.PromptCostPer1K +
		float64(completionTokens)/1000*p.CompletionCostPer1K

	return roundUpCents(cost), nil
}

// roundUpCents rounds a dollar amount up to the cent. The epsilon
// keeps exact cent amounts that land just above their binary
// representation, like 0.07 stored as 0.070000000000000007, from
// being pushed to the next cent.
func roundUpCents(v float64) float64 {
	return math.Ceil(v*100-1e-9) / 100
}
