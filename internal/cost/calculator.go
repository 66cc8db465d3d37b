package cost

import "github.com/shopspring/decimal"

// ModelRate holds per-model token pricing in USD per million tokens.
type ModelRate struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// Calculator computes billing cost for provider token usage.
type Calculator struct {
	rates map[string]ModelRate
}

func NewCalculator(rates map[string]ModelRate) *Calculator {
	return &Calculator{rates: rates}
}

var million = decimal.NewFromInt(1_000_000)

// Cents returns the cost of a call in whole cents, rounded half-up.
// Unknown models (including self-hosted ones) cost 0.
func (c *Calculator) Cents(model string, promptTokens, completionTokens int) int64 {
	rate, ok := c.rates[model]
	if !ok {
		return 0
	}

	in := decimal.NewFromInt(int64(promptTokens)).Div(million).Mul(rate.Input)
	out := decimal.NewFromInt(int64(completionTokens)).Div(million).Mul(rate.Output)

	return in.Add(out).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func rate(input, output string) ModelRate {
	return ModelRate{
		Input:  decimal.RequireFromString(input),
		Output: decimal.RequireFromString(output),
	}
}

// DefaultRates returns pricing for the hosted models the platform ships
// with. Self-hosted ollama models are intentionally absent.
func DefaultRates() map[string]ModelRate {
	return map[string]ModelRate{
		"claude-haiku-4-5-20251001":  rate("0.80", "4.00"),
		"claude-sonnet-4-5-20250929": rate("3.00", "15.00"),
		"gemini-2.0-flash":           rate("0.10", "0.40"),
		"gemini-2.5-pro":             rate("1.25", "10.00"),
		"openrouter/auto":            rate("1.00", "3.00"),
	}
}
