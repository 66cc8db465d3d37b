package inquiry

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestConsolidate_SkipsErroredAndEmptyReplies(t *testing.T) {
	ans, err := Consolidate([]ProviderReply{
		{ProviderID: "a", Answer: "Buy index funds.", Confidence: 0.9},
		{ProviderID: "b", Answer: "", Confidence: 0.99},
		{ProviderID: "c", Answer: "ignored", Confidence: 0.95, Error: "timeout"},
	})
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}

	sources := ans.SourceList()
	if len(sources) != 1 || sources[0] != "a" {
		t.Fatalf("expected sources [a], got %v", sources)
	}
	if ans.Answer != "Buy index funds." {
		t.Fatalf("unexpected answer: %q", ans.Answer)
	}
}

func TestConsolidate_WeightedConfidenceExample(t *testing.T) {
	// A at 0.9, B at 0.8, C errored: confidence = (0.81+0.64)/(0.9+0.8).
	ans, err := Consolidate([]ProviderReply{
		{ProviderID: "a", Answer: "Diversify across asset classes.", Confidence: 0.9},
		{ProviderID: "b", Answer: "favor low-cost ETFs.", Confidence: 0.8},
		{ProviderID: "c", Confidence: 0, Error: "connection refused"},
	})
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}

	want := (0.9*0.9 + 0.8*0.8) / (0.9 + 0.8)
	if math.Abs(ans.Confidence-want) > 1e-9 {
		t.Fatalf("expected confidence %.6f, got %.6f", want, ans.Confidence)
	}

	sources := ans.SourceList()
	if len(sources) != 2 || sources[0] != "a" || sources[1] != "b" {
		t.Fatalf("expected sources [a b], got %v", sources)
	}

	// B is above the secondary threshold, so the answer is composite.
	if !strings.HasPrefix(ans.Answer, "Diversify across asset classes.") {
		t.Fatalf("primary answer missing: %q", ans.Answer)
	}
	if !strings.Contains(ans.Answer, "Additionally, favor low-cost ETFs.") {
		t.Fatalf("secondary answer missing: %q", ans.Answer)
	}
}

func TestConsolidate_LowConfidenceSecondariesExcludedFromNarrative(t *testing.T) {
	ans, err := Consolidate([]ProviderReply{
		{ProviderID: "a", Answer: "Primary.", Confidence: 0.9},
		{ProviderID: "b", Answer: "Weak take.", Confidence: 0.4},
	})
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}

	if ans.Answer != "Primary." {
		t.Fatalf("low-confidence reply leaked into narrative: %q", ans.Answer)
	}
	// It still contributes to sources and the weighted score.
	if got := ans.SourceList(); len(got) != 2 {
		t.Fatalf("expected 2 sources, got %v", got)
	}
}

func TestConsolidate_ConfidenceCapped(t *testing.T) {
	ans, err := Consolidate([]ProviderReply{
		{ProviderID: "a", Answer: "x", Confidence: 1.0},
		{ProviderID: "b", Answer: "y", Confidence: 1.0},
	})
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if ans.Confidence != maxConfidence {
		t.Fatalf("expected capped confidence %v, got %v", maxConfidence, ans.Confidence)
	}
}

func TestConsolidate_ConfidenceBounds(t *testing.T) {
	cases := [][]ProviderReply{
		{{ProviderID: "a", Answer: "x", Confidence: 0}},
		{{ProviderID: "a", Answer: "x", Confidence: 0}, {ProviderID: "b", Answer: "y", Confidence: 0}},
		{{ProviderID: "a", Answer: "x", Confidence: 0.3}},
		{{ProviderID: "a", Answer: "x", Confidence: 1}, {ProviderID: "b", Answer: "y", Confidence: 0.01}},
	}
	for i, replies := range cases {
		ans, err := Consolidate(replies)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if ans.Confidence < 0 || ans.Confidence > maxConfidence {
			t.Fatalf("case %d: confidence %v out of bounds", i, ans.Confidence)
		}
	}
}

func TestConsolidate_AllFailed(t *testing.T) {
	_, err := Consolidate([]ProviderReply{
		{ProviderID: "a", Error: "timeout"},
		{ProviderID: "b", Error: "status 500"},
		{ProviderID: "c", Answer: "   "},
	})
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}
}

func TestConsolidate_SortsByConfidenceStable(t *testing.T) {
	ans, err := Consolidate([]ProviderReply{
		{ProviderID: "low", Answer: "low answer", Confidence: 0.7},
		{ProviderID: "tie1", Answer: "tie1 answer", Confidence: 0.9},
		{ProviderID: "tie2", Answer: "tie2 answer", Confidence: 0.9},
	})
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}

	sources := ans.SourceList()
	want := []string{"tie1", "tie2", "low"}
	for i := range want {
		if sources[i] != want[i] {
			t.Fatalf("expected sources %v, got %v", want, sources)
		}
	}
	if !strings.HasPrefix(ans.Answer, "tie1 answer") {
		t.Fatalf("expected tie1 to stay primary, got %q", ans.Answer)
	}
}

func TestConsolidate_MethodologyNamesAggregation(t *testing.T) {
	ans, err := Consolidate([]ProviderReply{
		{ProviderID: "a", Answer: "x", Confidence: 0.8},
		{ProviderID: "b", Answer: "y", Confidence: 0.7},
		{ProviderID: "c", Answer: "z", Confidence: 0.5},
	})
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if !strings.Contains(ans.Methodology, "3 provider responses") {
		t.Fatalf("methodology should name the contributor count: %q", ans.Methodology)
	}
	if !strings.Contains(ans.Methodology, "confidence-weighted") {
		t.Fatalf("methodology should name the aggregation: %q", ans.Methodology)
	}
}
