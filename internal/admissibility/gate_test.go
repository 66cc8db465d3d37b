package admissibility

import (
	"context"
	"testing"
)

func TestKeywordGate_AcceptsFinanceQuestions(t *testing.T) {
	g := NewKeywordGate()

	cases := []struct {
		question string
		category string
	}{
		{"How should I diversify my portfolio?", "investing"},
		{"Is a 401k better than an IRA for me?", "retirement"},
		{"What mortgage rate should I expect?", "banking"},
		{"How does inflation affect the market?", "markets"},
	}

	for _, tc := range cases {
		v, err := g.Validate(context.Background(), tc.question, 1)
		if err != nil {
			t.Fatalf("validate %q: %v", tc.question, err)
		}
		if !v.IsValid {
			t.Fatalf("expected %q to be admissible, reasons=%v", tc.question, v.Reasons)
		}
		if v.Category != tc.category {
			t.Fatalf("question %q: expected category %q, got %q", tc.question, tc.category, v.Category)
		}
	}
}

func TestKeywordGate_RejectsOffTopic(t *testing.T) {
	g := NewKeywordGate()

	v, err := g.Validate(context.Background(), "What's a good recipe for pasta?", 1)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.IsValid {
		t.Fatalf("expected rejection")
	}
	if len(v.Reasons) == 0 {
		t.Fatalf("expected a rejection reason")
	}
}

func TestKeywordGate_RejectsTooShort(t *testing.T) {
	g := NewKeywordGate()

	v, err := g.Validate(context.Background(), "stocks?", 1)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.IsValid {
		t.Fatalf("expected short question to be rejected")
	}
}
