package provider

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/finadvisor/platform/internal/ai"
	"github.com/finadvisor/platform/internal/cost"
	"github.com/finadvisor/platform/internal/inquiry"
)

// Source builds the per-inquiry client snapshot from the registry
// table. It implements inquiry.ClientSource.
type Source struct {
	repo  *Repo
	kinds *ai.Registry
	costs *cost.Calculator
}

func NewSource(repo *Repo, kinds *ai.Registry, costs *cost.Calculator) *Source {
	return &Source{repo: repo, kinds: kinds, costs: costs}
}

func (s *Source) ActiveClients(ctx context.Context) ([]inquiry.AnswerClient, error) {
	recs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "provider: list active")
	}

	clients := make([]inquiry.AnswerClient, 0, len(recs))
	for _, rec := range recs {
		client, err := s.kinds.Get(ctx, rec.Kind, rec.Model)
		if err != nil {
			// A misconfigured record cannot be called; skip it rather
			// than failing the whole snapshot.
			zap.L().Warn("provider: skipping unconstructable provider",
				zap.String("provider_id", rec.ID),
				zap.String("kind", rec.Kind),
				zap.Error(err),
			)
			continue
		}
		clients = append(clients, NewGateway(rec, client, s.costs))
	}
	return clients, nil
}
