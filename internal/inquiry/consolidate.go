package inquiry

import (
	"fmt"
	"sort"
)

const (
	// maxConfidence caps the consolidated score; the engine never
	// claims near-certainty.
	maxConfidence = 0.95

	// secondaryThreshold is the minimum confidence for a non-primary
	// reply to be woven into the composite answer.
	secondaryThreshold = 0.6

	secondaryConnective = "\n\nAdditionally, "
)

// Consolidate merges provider replies into one answer.
//
// Replies with an error marker or an empty answer are dropped. The
// highest-confidence reply becomes the primary narrative; remaining
// replies above the secondary threshold are appended to it. The
// consolidated confidence is Σ(c²)/Σ(c) over the valid set, capped at
// maxConfidence; squaring up-weights already-confident providers.
func Consolidate(replies []ProviderReply) (*ConsolidatedAnswer, error) {
	valid := make([]ProviderReply, 0, len(replies))
	for _, r := range replies {
		if r.Usable() {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil, ErrAllProvidersFailed
	}

	// Stable keeps dispatch (priority) order for equal confidence.
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Confidence > valid[j].Confidence
	})

	answer := valid[0].Answer
	for _, r := range valid[1:] {
		if r.Confidence > secondaryThreshold {
			answer += secondaryConnective + r.Answer
		}
	}

	var num, den float64
	for _, r := range valid {
		num += r.Confidence * r.Confidence
		den += r.Confidence
	}
	confidence := 0.0
	if den > 0 {
		confidence = num / den
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	sources := make([]string, 0, len(valid))
	for _, r := range valid {
		sources = append(sources, r.ProviderID)
	}

	out := &ConsolidatedAnswer{
		Answer:     answer,
		Confidence: confidence,
		Methodology: fmt.Sprintf(
			"Consolidated from %d provider responses using confidence-weighted aggregation",
			len(valid),
		),
	}
	out.setSources(sources)
	return out, nil
}
