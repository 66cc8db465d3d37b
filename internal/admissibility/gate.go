package admissibility

import (
	"context"
	"strings"
)

// Verdict is the result of the pre-pipeline admissibility check.
type Verdict struct {
	IsValid  bool     `json:"is_valid"`
	Reasons  []string `json:"reasons,omitempty"`
	Category string   `json:"category,omitempty"`
}

// Gate decides whether a question is in-domain before an inquiry is
// created. Implementations must be safe for concurrent use.
type Gate interface {
	Validate(ctx context.Context, question string, userID uint64) (Verdict, error)
}

// topic keyword groups, matched on lowercased whole words.
var topics = map[string][]string{
	"investing":  {"invest", "investment", "stock", "stocks", "bond", "bonds", "etf", "etfs", "fund", "funds", "portfolio", "dividend", "dividends", "equity", "shares", "asset", "assets", "allocation"},
	"retirement": {"retirement", "retire", "401k", "ira", "pension", "annuity"},
	"banking":    {"savings", "deposit", "interest", "loan", "loans", "mortgage", "credit", "debt", "refinance", "bank"},
	"tax":        {"tax", "taxes", "taxable", "deduction", "capital", "gains"},
	"markets":    {"market", "markets", "inflation", "recession", "currency", "forex", "crypto", "bitcoin", "commodity", "yield"},
	"planning":   {"budget", "budgeting", "income", "expense", "expenses", "insurance", "estate", "wealth", "financial", "finance", "money"},
}

const minQuestionLen = 10

// KeywordGate is the default classifier: a question is admissible when
// it mentions at least one known finance term.
type KeywordGate struct{}

func NewKeywordGate() *KeywordGate { return &KeywordGate{} }

func (g *KeywordGate) Validate(ctx context.Context, question string, userID uint64) (Verdict, error) {
	_ = ctx
	_ = userID

	trimmed := strings.TrimSpace(question)
	if len(trimmed) < minQuestionLen {
		return Verdict{
			IsValid: false,
			Reasons: []string{"question is too short"},
		}, nil
	}

	words := tokenize(trimmed)
	for category, keywords := range topics {
		for _, kw := range keywords {
			if _, ok := words[kw]; ok {
				return Verdict{IsValid: true, Category: category}, nil
			}
		}
	}

	return Verdict{
		IsValid: false,
		Reasons: []string{"question does not appear to be finance-related"},
	}, nil
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		out[w] = struct{}{}
	}
	return out
}
