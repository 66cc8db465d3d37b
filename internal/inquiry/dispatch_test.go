package inquiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeClient is a deterministic AnswerClient test double.
type fakeClient struct {
	id      string
	reply   ProviderReply
	rating  RatingReply
	rateErr error
	delay   time.Duration
}

func (f *fakeClient) ProviderID() string { return f.id }

func (f *fakeClient) Ask(ctx context.Context, question, questionContext string) ProviderReply {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	r := f.reply
	r.ProviderID = f.id
	return r
}

func (f *fakeClient) Rate(ctx context.Context, answer, originalQuestion string) (RatingReply, error) {
	if f.rateErr != nil {
		return RatingReply{}, f.rateErr
	}
	r := f.rating
	r.ProviderID = f.id
	return r, nil
}

func TestAskAll_OneReplyPerClientInSnapshotOrder(t *testing.T) {
	clients := []AnswerClient{
		&fakeClient{id: "slow", reply: ProviderReply{Answer: "slow answer", Confidence: 0.7}, delay: 30 * time.Millisecond},
		&fakeClient{id: "fast", reply: ProviderReply{Answer: "fast answer", Confidence: 0.8}},
		&fakeClient{id: "broken", reply: ProviderReply{Error: "boom"}},
	}

	replies := askAll(context.Background(), clients, "q", "")

	if len(replies) != 3 {
		t.Fatalf("expected 3 replies, got %d", len(replies))
	}
	for i, want := range []string{"slow", "fast", "broken"} {
		if replies[i].ProviderID != want {
			t.Fatalf("slot %d: expected %s, got %s", i, want, replies[i].ProviderID)
		}
	}
	if replies[2].Error == "" {
		t.Fatalf("expected error marker on broken provider")
	}
	if replies[0].Answer != "slow answer" {
		t.Fatalf("slow provider was not awaited: %+v", replies[0])
	}
}

func TestRateAll_DropsFailedRaters(t *testing.T) {
	clients := []AnswerClient{
		&fakeClient{id: "a", rating: RatingReply{CorrectnessPercentage: 90, Reasoning: "solid"}},
		&fakeClient{id: "b", rateErr: errors.New("rate limit")},
		&fakeClient{id: "c", rating: RatingReply{CorrectnessPercentage: 70, Reasoning: "ok"}},
	}

	ratings := rateAll(context.Background(), clients, "answer", "question")

	if len(ratings) != 2 {
		t.Fatalf("expected 2 ratings, got %d", len(ratings))
	}
	for _, r := range ratings {
		if r.ProviderID == "b" {
			t.Fatalf("failed rater should be absent: %+v", ratings)
		}
	}
}
