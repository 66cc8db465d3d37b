package inquiry

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// askAll fans the question out to every client concurrently and waits
// for all of them to settle. The result slice has exactly one entry
// per client, in snapshot order; partial failure is normal, not
// exceptional, and nothing short-circuits.
func askAll(ctx context.Context, clients []AnswerClient, question, questionContext string) []ProviderReply {
	replies := make([]ProviderReply, len(clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clients {
		g.Go(func() error {
			replies[i] = c.Ask(gctx, question, questionContext)
			return nil
		})
	}
	// Ask never errors; Wait is a join.
	_ = g.Wait()

	return replies
}

// rateAll asks every client in the snapshot to score the consolidated
// answer. A client's failure to produce a rating is logged and its
// slot dropped; a missing rating never fails the inquiry.
func rateAll(ctx context.Context, clients []AnswerClient, answer, originalQuestion string) []RatingReply {
	results := make([]*RatingReply, len(clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clients {
		g.Go(func() error {
			r, err := c.Rate(gctx, answer, originalQuestion)
			if err != nil {
				zap.L().Warn("inquiry: rating failed",
					zap.String("provider_id", c.ProviderID()),
					zap.Error(err),
				)
				return nil
			}
			results[i] = &r
			return nil
		})
	}
	_ = g.Wait()

	out := make([]RatingReply, 0, len(clients))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
