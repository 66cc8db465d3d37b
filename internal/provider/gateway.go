package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/finadvisor/platform/internal/ai"
	"github.com/finadvisor/platform/internal/cost"
	"github.com/finadvisor/platform/internal/inquiry"
)

const askSystemPrompt = `You are one of several independent financial advisory engines.
Answer the user's finance question concisely and factually.
Respond with a single JSON object and nothing else:
{"answer": "<your answer>", "confidence": <0.0-1.0, your self-assessed confidence>}`

const rateSystemPrompt = `You are auditing an answer produced for a finance question.
Score how correct and complete the answer is.
Respond with a single JSON object and nothing else:
{"correctness_percentage": <0-100>, "reasoning": "<one or two sentences>"}`

// Gateway adapts one chat backend to the pipeline's Ask/Rate contract.
// Ask absorbs every failure (timeout, transport error, panic,
// malformed reply) into an error-marked ProviderReply with confidence
// 0; exceptions never cross this boundary.
type Gateway struct {
	rec    Record
	client ai.Provider
	costs  *cost.Calculator
}

func NewGateway(rec Record, client ai.Provider, costs *cost.Calculator) *Gateway {
	return &Gateway{rec: rec, client: client, costs: costs}
}

func (g *Gateway) ProviderID() string { return g.rec.ID }

func (g *Gateway) Ask(ctx context.Context, question, questionContext string) inquiry.ProviderReply {
	reply := inquiry.ProviderReply{ProviderID: g.rec.ID}

	user := question
	if questionContext != "" {
		user = "Context: " + questionContext + "\n\nQuestion: " + question
	}

	start := time.Now()
	res, err := g.chat(ctx, askSystemPrompt, user)
	reply.ResponseTimeMs = time.Since(start).Milliseconds()

	if err != nil {
		reply.Error = err.Error()
		return reply
	}

	reply.TokensUsed = res.Usage.Total()
	reply.CostCents = g.costs.Cents(g.rec.Model, res.Usage.PromptTokens, res.Usage.CompletionTokens)

	var parsed struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSON(res.Content)), &parsed); err == nil && strings.TrimSpace(parsed.Answer) != "" {
		reply.Answer = parsed.Answer
		reply.Confidence = clamp(parsed.Confidence, 0, 1)
		return reply
	}

	// A plain-text answer is kept at middling confidence rather than
	// discarded.
	reply.Answer = strings.TrimSpace(res.Content)
	reply.Confidence = 0.5
	if reply.Answer == "" {
		reply.Error = "provider returned an empty answer"
		reply.Confidence = 0
	}
	return reply
}

func (g *Gateway) Rate(ctx context.Context, answer, originalQuestion string) (inquiry.RatingReply, error) {
	user := "Question: " + originalQuestion + "\n\nAnswer under review:\n" + answer

	res, err := g.chat(ctx, rateSystemPrompt, user)
	if err != nil {
		return inquiry.RatingReply{}, err
	}

	var parsed struct {
		CorrectnessPercentage float64 `json:"correctness_percentage"`
		Reasoning             string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSON(res.Content)), &parsed); err != nil {
		return inquiry.RatingReply{}, fmt.Errorf("malformed rating reply: %w", err)
	}

	return inquiry.RatingReply{
		ProviderID:            g.rec.ID,
		CorrectnessPercentage: clamp(parsed.CorrectnessPercentage, 0, 100),
		Reasoning:             parsed.Reasoning,
	}, nil
}

// chat runs one bounded call against the backend, converting panics
// into errors.
func (g *Gateway) chat(ctx context.Context, system, user string) (res *ai.Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.rec.Timeout())
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()

	return g.client.Chat(ctx, []ai.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
}

// extractJSON pulls the outermost JSON object out of a reply that may
// be wrapped in markdown fences or prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
