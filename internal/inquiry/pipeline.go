package inquiry

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finadvisor/platform/internal/admissibility"
	"github.com/finadvisor/platform/internal/chat"
)

// Orchestrator drives an inquiry through PENDING -> PROCESSING ->
// COMPLETED|FAILED. It holds only injected dependencies and no mutable
// state, so one instance may be shared across requests.
type Orchestrator struct {
	db       *gorm.DB
	repo     *Repo
	chatRepo *chat.Repo
	gate     admissibility.Gate
	source   ClientSource
}

func NewOrchestrator(db *gorm.DB, gate admissibility.Gate, source ClientSource) *Orchestrator {
	return &Orchestrator{
		db:       db,
		repo:     NewRepo(db),
		chatRepo: chat.NewRepo(db),
		gate:     gate,
		source:   source,
	}
}

type SubmitInput struct {
	ThreadID string
	UserID   uint64
	Question string
	Context  string
}

// Submit runs the admissibility gate and, on acceptance, creates the
// inquiry and the user message in one transaction. On rejection a
// system message explaining the rejection is persisted instead and a
// *RejectedError is returned; no inquiry row exists in that case.
func (o *Orchestrator) Submit(ctx context.Context, in SubmitInput) (*Inquiry, error) {
	verdict, err := o.gate.Validate(ctx, in.Question, in.UserID)
	if err != nil {
		return nil, eris.Wrap(err, "inquiry: admissibility check")
	}

	if !verdict.IsValid {
		rejection := &RejectedError{Verdict: verdict}
		err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			cr := o.chatRepo.WithTx(tx)
			if err := cr.InsertMessage(ctx, &chat.Message{
				ThreadID: in.ThreadID,
				UserID:   in.UserID,
				Role:     chat.RoleSystem,
				Content:  rejectionMessage(verdict),
			}); err != nil {
				return err
			}
			return cr.IncrementMessageCount(ctx, in.ThreadID, 1)
		})
		if err != nil {
			return nil, eris.Wrap(err, "inquiry: persist rejection")
		}
		return nil, rejection
	}

	inq := &Inquiry{
		ID:       uuid.NewString(),
		ThreadID: in.ThreadID,
		UserID:   in.UserID,
		Question: in.Question,
		Context:  in.Context,
		Status:   StatusPending,
	}
	if verdict.Category != "" {
		raw, _ := json.Marshal(map[string]string{"category": verdict.Category})
		inq.Metadata = string(raw)
	}

	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := o.repo.WithTx(tx).CreateInquiry(ctx, inq); err != nil {
			return err
		}
		cr := o.chatRepo.WithTx(tx)
		if err := cr.InsertMessage(ctx, &chat.Message{
			ThreadID: in.ThreadID,
			UserID:   in.UserID,
			Role:     chat.RoleUser,
			Content:  in.Question,
		}); err != nil {
			return err
		}
		return cr.IncrementMessageCount(ctx, in.ThreadID, 1)
	})
	if err != nil {
		return nil, eris.Wrap(err, "inquiry: create")
	}

	return inq, nil
}

func rejectionMessage(v admissibility.Verdict) string {
	msg := "I can only help with finance-related questions."
	for _, r := range v.Reasons {
		msg += " (" + r + ")"
	}
	return msg
}

// Run drives a pending inquiry to a terminal status and returns the
// consolidated answer on success. Every failure after PENDING ends in
// a best-effort FAILED mark; an inquiry is never left stuck.
//
// The run outlives its caller: a disconnected HTTP client or a
// shutting-down worker must not abort provider calls mid-flight, so
// the context is detached up front. Per-provider timeouts still bound
// each call.
func (o *Orchestrator) Run(ctx context.Context, inquiryID string) (*ConsolidatedAnswer, error) {
	ctx = context.WithoutCancel(ctx)

	inq, err := o.repo.GetInquiryByID(ctx, inquiryID)
	if err != nil {
		return nil, eris.Wrap(err, "inquiry: load")
	}

	ans, err := o.process(ctx, inq)
	if err != nil {
		o.markFailed(ctx, inq.ID, err)
		return nil, err
	}
	return ans, nil
}

func (o *Orchestrator) process(ctx context.Context, inq *Inquiry) (*ConsolidatedAnswer, error) {
	log := zap.L().With(
		zap.String("inquiry_id", inq.ID),
		zap.String("thread_id", inq.ThreadID),
	)

	if err := o.repo.MarkProcessing(ctx, inq.ID); err != nil {
		return nil, eris.Wrap(err, "inquiry: mark processing")
	}

	// Snapshot once: registry changes do not affect this run.
	clients, err := o.source.ActiveClients(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "inquiry: load provider snapshot")
	}
	if len(clients) == 0 {
		return nil, ErrNoProvidersAvailable
	}

	// Network phase, deliberately outside any transaction.
	replies := askAll(ctx, clients, inq.Question, inq.Context)
	for i := range replies {
		replies[i].InquiryID = inq.ID
	}

	failed := 0
	for _, r := range replies {
		if !r.Usable() {
			failed++
		}
	}
	log.Info("inquiry: fan-out settled",
		zap.Int("providers", len(replies)),
		zap.Int("failed", failed),
	)

	ans, err := Consolidate(replies)
	if err != nil {
		return nil, err
	}
	ans.InquiryID = inq.ID

	ratings := rateAll(ctx, clients, ans.Answer, inq.Question)
	log.Info("inquiry: cross-rating settled", zap.Int("ratings", len(ratings)))

	if err := o.finalize(ctx, inq, replies, ans, ratings); err != nil {
		return nil, eris.Wrap(err, "inquiry: finalize")
	}

	log.Info("inquiry: completed",
		zap.Float64("confidence", ans.Confidence),
		zap.Strings("sources", ans.SourceList()),
	)
	return ans, nil
}

// finalize persists every artifact and flips the status in a single
// transaction: replies, then the consolidated answer, then ratings,
// then the assistant message and COMPLETED. A reader that observes
// COMPLETED can rely on all prior artifacts existing.
func (o *Orchestrator) finalize(ctx context.Context, inq *Inquiry, replies []ProviderReply, ans *ConsolidatedAnswer, ratings []RatingReply) error {
	rows := make([]ProviderRating, 0, len(ratings))
	for _, r := range ratings {
		rows = append(rows, ProviderRating{
			InquiryID:             inq.ID,
			ProviderID:            r.ProviderID,
			CorrectnessPercentage: r.CorrectnessPercentage,
			Reasoning:             r.Reasoning,
			RatedBy:               r.ProviderID,
		})
	}

	meta, err := json.Marshal(AnswerMetadata{
		Confidence:  ans.Confidence,
		Sources:     ans.SourceList(),
		Methodology: ans.Methodology,
	})
	if err != nil {
		return err
	}

	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := o.repo.WithTx(tx)
		if err := repo.CreateReplies(ctx, replies); err != nil {
			return err
		}
		if err := repo.CreateConsolidated(ctx, ans); err != nil {
			return err
		}
		if err := repo.CreateRatings(ctx, rows); err != nil {
			return err
		}

		cr := o.chatRepo.WithTx(tx)
		if err := cr.InsertMessage(ctx, &chat.Message{
			ThreadID: inq.ThreadID,
			UserID:   inq.UserID,
			Role:     chat.RoleAssistant,
			Content:  ans.Answer,
			Metadata: string(meta),
		}); err != nil {
			return err
		}
		if err := cr.IncrementMessageCount(ctx, inq.ThreadID, 1); err != nil {
			return err
		}

		return repo.MarkCompleted(ctx, inq.ID)
	})
}

// markFailed is best-effort and out-of-band: it must never crash the
// request, and it ignores the caller's cancellation so a timed-out
// caller still leaves a terminal status behind.
func (o *Orchestrator) markFailed(ctx context.Context, inquiryID string, cause error) {
	if err := o.repo.MarkFailed(context.WithoutCancel(ctx), inquiryID); err != nil {
		zap.L().Error("inquiry: failed to mark FAILED",
			zap.String("inquiry_id", inquiryID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	zap.L().Warn("inquiry: marked FAILED",
		zap.String("inquiry_id", inquiryID),
		zap.Error(cause),
	)
}
