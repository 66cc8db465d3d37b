package inquiry

import "context"

// RatingReply is a provider's raw rating before persistence.
type RatingReply struct {
	ProviderID            string
	CorrectnessPercentage float64
	Reasoning             string
}

// AnswerClient is the per-provider capability the pipeline dispatches
// to. Ask never returns an error: every failure mode (timeout,
// transport error, malformed reply, panic) is folded into the reply's
// Error field with confidence 0, so the dispatcher can treat all
// providers uniformly. Rate may fail; a failed rating is simply absent.
type AnswerClient interface {
	ProviderID() string
	Ask(ctx context.Context, question, questionContext string) ProviderReply
	Rate(ctx context.Context, answer, originalQuestion string) (RatingReply, error)
}

// ClientSource yields the ACTIVE provider snapshot, priority-ordered.
// The snapshot is taken once per inquiry run; later registry changes
// do not affect in-flight inquiries.
type ClientSource interface {
	ActiveClients(ctx context.Context) ([]AnswerClient, error)
}
