package inquiry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/finadvisor/platform/internal/admissibility"
	"github.com/finadvisor/platform/internal/chat"
)

type fakeSource struct {
	clients []AnswerClient
	err     error
}

func (s *fakeSource) ActiveClients(ctx context.Context) ([]AnswerClient, error) {
	return s.clients, s.err
}

type fakeGate struct {
	verdict admissibility.Verdict
}

func (g *fakeGate) Validate(ctx context.Context, question string, userID uint64) (admissibility.Verdict, error) {
	return g.verdict, nil
}

func acceptAll() *fakeGate {
	return &fakeGate{verdict: admissibility.Verdict{IsValid: true, Category: "investing"}}
}

func rejectAll(reason string) *fakeGate {
	return &fakeGate{verdict: admissibility.Verdict{IsValid: false, Reasons: []string{reason}}}
}

func openPipelineDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&chat.Thread{}, &chat.Message{},
		&Inquiry{}, &ProviderReply{}, &ConsolidatedAnswer{}, &ProviderRating{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedThread(t *testing.T, db *gorm.DB, userID uint64) *chat.Thread {
	t.Helper()
	thread := &chat.Thread{ThreadID: "01PIPELINETHREAD0000000000", UserID: userID}
	if err := chat.NewRepo(db).CreateThread(context.Background(), thread); err != nil {
		t.Fatalf("seed thread: %v", err)
	}
	return thread
}

func threeHealthyClients() []AnswerClient {
	return []AnswerClient{
		&fakeClient{
			id:     "prov-a",
			reply:  ProviderReply{Answer: "Spread risk across bonds and equities.", Confidence: 0.9},
			rating: RatingReply{CorrectnessPercentage: 88, Reasoning: "accurate"},
		},
		&fakeClient{
			id:     "prov-b",
			reply:  ProviderReply{Answer: "keep an emergency fund first.", Confidence: 0.8},
			rating: RatingReply{CorrectnessPercentage: 75, Reasoning: "reasonable"},
		},
		&fakeClient{
			id:      "prov-c",
			reply:   ProviderReply{Error: "timeout"},
			rateErr: errors.New("timeout"),
		},
	}
}

func TestSubmit_CreatesInquiryAndUserMessage(t *testing.T) {
	db := openPipelineDB(t)
	thread := seedThread(t, db, 1)

	orch := NewOrchestrator(db, acceptAll(), &fakeSource{})

	inq, err := orch.Submit(context.Background(), SubmitInput{
		ThreadID: thread.ThreadID,
		UserID:   1,
		Question: "How should I invest?",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if inq.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", inq.Status)
	}

	var msgs []chat.Message
	if err := db.Where("thread_id = ?", thread.ThreadID).Find(&msgs).Error; err != nil {
		t.Fatalf("query messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != chat.RoleUser || msgs[0].Content != "How should I invest?" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	got, err := chat.NewRepo(db).GetThreadByThreadID(context.Background(), thread.ThreadID)
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	if got.MessageCount != 1 {
		t.Fatalf("expected counter 1, got %d", got.MessageCount)
	}
}

func TestSubmit_RejectionLeavesOnlySystemMessage(t *testing.T) {
	db := openPipelineDB(t)
	thread := seedThread(t, db, 1)

	orch := NewOrchestrator(db, rejectAll("question does not appear to be finance-related"), &fakeSource{})

	_, err := orch.Submit(context.Background(), SubmitInput{
		ThreadID: thread.ThreadID,
		UserID:   1,
		Question: "What's a good recipe for pasta?",
	})

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if len(rejected.Verdict.Reasons) != 1 {
		t.Fatalf("expected rejection reasons, got %+v", rejected.Verdict)
	}

	var inquiryCount int64
	if err := db.Model(&Inquiry{}).Count(&inquiryCount).Error; err != nil {
		t.Fatalf("count inquiries: %v", err)
	}
	if inquiryCount != 0 {
		t.Fatalf("rejection must not create an inquiry row, found %d", inquiryCount)
	}

	var msgs []chat.Message
	if err := db.Where("thread_id = ?", thread.ThreadID).Find(&msgs).Error; err != nil {
		t.Fatalf("query messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != chat.RoleSystem {
		t.Fatalf("expected a single system message, got %+v", msgs)
	}
}

func TestRun_CompletesAndPersistsAllArtifacts(t *testing.T) {
	db := openPipelineDB(t)
	thread := seedThread(t, db, 1)

	orch := NewOrchestrator(db, acceptAll(), &fakeSource{clients: threeHealthyClients()})

	inq, err := orch.Submit(context.Background(), SubmitInput{
		ThreadID: thread.ThreadID,
		UserID:   1,
		Question: "How should I invest my savings?",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ans, err := orch.Run(context.Background(), inq.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	stored, err := NewRepo(db).GetInquiryByID(context.Background(), inq.ID)
	if err != nil {
		t.Fatalf("get inquiry: %v", err)
	}
	if stored.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", stored.Status)
	}

	replies, err := NewRepo(db).ListRepliesByInquiry(context.Background(), inq.ID)
	if err != nil {
		t.Fatalf("list replies: %v", err)
	}
	if len(replies) != 3 {
		t.Fatalf("expected 3 reply rows (failures included), got %d", len(replies))
	}

	sources := ans.SourceList()
	if len(sources) != 2 || sources[0] != "prov-a" || sources[1] != "prov-b" {
		t.Fatalf("expected sources [prov-a prov-b], got %v", sources)
	}

	ratings, err := NewRepo(db).ListRatingsByInquiry(context.Background(), inq.ID)
	if err != nil {
		t.Fatalf("list ratings: %v", err)
	}
	if len(ratings) != 2 {
		t.Fatalf("expected 2 ratings (failed rater absent), got %d", len(ratings))
	}
	for _, r := range ratings {
		if r.RatedBy != r.ProviderID {
			t.Fatalf("rated_by should mirror provider_id: %+v", r)
		}
	}

	var msgs []chat.Message
	if err := db.Where("thread_id = ?", thread.ThreadID).Order("id ASC").Find(&msgs).Error; err != nil {
		t.Fatalf("query messages: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Role != chat.RoleAssistant {
		t.Fatalf("expected user+assistant messages, got %+v", msgs)
	}
	if msgs[1].Content != ans.Answer {
		t.Fatalf("assistant message should carry the consolidated answer")
	}

	var meta AnswerMetadata
	if err := json.Unmarshal([]byte(msgs[1].Metadata), &meta); err != nil {
		t.Fatalf("assistant metadata: %v", err)
	}
	if meta.Confidence != ans.Confidence || len(meta.Sources) != 2 {
		t.Fatalf("unexpected assistant metadata: %+v", meta)
	}

	got, _ := chat.NewRepo(db).GetThreadByThreadID(context.Background(), thread.ThreadID)
	if got.MessageCount != 2 {
		t.Fatalf("expected counter 2, got %d", got.MessageCount)
	}
}

func TestRun_AllProvidersFailed(t *testing.T) {
	db := openPipelineDB(t)
	thread := seedThread(t, db, 1)

	source := &fakeSource{clients: []AnswerClient{
		&fakeClient{id: "a", reply: ProviderReply{Error: "timeout"}},
		&fakeClient{id: "b", reply: ProviderReply{Error: "timeout"}},
		&fakeClient{id: "c", reply: ProviderReply{Error: "timeout"}},
	}}
	orch := NewOrchestrator(db, acceptAll(), source)

	inq, err := orch.Submit(context.Background(), SubmitInput{
		ThreadID: thread.ThreadID, UserID: 1, Question: "Which bonds should I buy?",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := orch.Run(context.Background(), inq.ID); !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
	}

	stored, _ := NewRepo(db).GetInquiryByID(context.Background(), inq.ID)
	if stored.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", stored.Status)
	}

	if _, err := NewRepo(db).GetConsolidatedByInquiry(context.Background(), inq.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("no consolidated answer may exist for a failed inquiry, got %v", err)
	}
}

func TestRun_NoActiveProviders(t *testing.T) {
	db := openPipelineDB(t)
	thread := seedThread(t, db, 1)

	orch := NewOrchestrator(db, acceptAll(), &fakeSource{})

	inq, err := orch.Submit(context.Background(), SubmitInput{
		ThreadID: thread.ThreadID, UserID: 1, Question: "Is my portfolio balanced?",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := orch.Run(context.Background(), inq.ID); !errors.Is(err, ErrNoProvidersAvailable) {
		t.Fatalf("expected ErrNoProvidersAvailable, got %v", err)
	}

	stored, _ := NewRepo(db).GetInquiryByID(context.Background(), inq.ID)
	if stored.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", stored.Status)
	}
}

func TestRun_TerminalStatusIsSticky(t *testing.T) {
	db := openPipelineDB(t)
	thread := seedThread(t, db, 1)

	orch := NewOrchestrator(db, acceptAll(), &fakeSource{clients: threeHealthyClients()})

	inq, err := orch.Submit(context.Background(), SubmitInput{
		ThreadID: thread.ThreadID, UserID: 1, Question: "How much should I save for retirement?",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := orch.Run(context.Background(), inq.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// A second run must not re-enter the pipeline or downgrade COMPLETED.
	if _, err := orch.Run(context.Background(), inq.ID); err == nil {
		t.Fatalf("expected second run to fail")
	}

	stored, _ := NewRepo(db).GetInquiryByID(context.Background(), inq.ID)
	if stored.Status != StatusCompleted {
		t.Fatalf("terminal status changed: %s", stored.Status)
	}
}

// disconnectingClient aborts with an error-marked reply the moment its
// context is cancelled, like a real backend would.
type disconnectingClient struct {
	id         string
	answer     string
	confidence float64
	delay      time.Duration
}

func (c *disconnectingClient) ProviderID() string { return c.id }

func (c *disconnectingClient) Ask(ctx context.Context, question, questionContext string) ProviderReply {
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return ProviderReply{ProviderID: c.id, Error: ctx.Err().Error()}
	}
	return ProviderReply{ProviderID: c.id, Answer: c.answer, Confidence: c.confidence}
}

func (c *disconnectingClient) Rate(ctx context.Context, answer, originalQuestion string) (RatingReply, error) {
	if err := ctx.Err(); err != nil {
		return RatingReply{}, err
	}
	return RatingReply{ProviderID: c.id, CorrectnessPercentage: 80, Reasoning: "fine"}, nil
}

func TestRun_SurvivesCallerDisconnect(t *testing.T) {
	db := openPipelineDB(t)
	thread := seedThread(t, db, 1)

	source := &fakeSource{clients: []AnswerClient{
		&disconnectingClient{id: "a", answer: "Hold a diversified mix.", confidence: 0.9, delay: 40 * time.Millisecond},
		&disconnectingClient{id: "b", answer: "keep cash reserves too.", confidence: 0.8, delay: 40 * time.Millisecond},
	}}
	orch := NewOrchestrator(db, acceptAll(), source)

	inq, err := orch.Submit(context.Background(), SubmitInput{
		ThreadID: thread.ThreadID, UserID: 1, Question: "How should I invest my savings?",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The caller hangs up while providers are still answering.
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	ans, err := orch.Run(ctx, inq.ID)
	if err != nil {
		t.Fatalf("run after caller disconnect: %v", err)
	}
	if ans.Answer == "" {
		t.Fatalf("expected a consolidated answer despite caller disconnect")
	}

	stored, _ := NewRepo(db).GetInquiryByID(context.Background(), inq.ID)
	if stored.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED after caller disconnect, got %s", stored.Status)
	}
}

func TestRun_CallerGoneBeforeLoad(t *testing.T) {
	db := openPipelineDB(t)
	thread := seedThread(t, db, 1)

	source := &fakeSource{clients: []AnswerClient{
		&disconnectingClient{id: "a", answer: "Pay down high-interest debt first.", confidence: 0.85},
	}}
	orch := NewOrchestrator(db, acceptAll(), source)

	inq, err := orch.Submit(context.Background(), SubmitInput{
		ThreadID: thread.ThreadID, UserID: 1, Question: "Should I pay off my loan or invest?",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := orch.Run(ctx, inq.ID); err != nil {
		t.Fatalf("run with already-cancelled caller: %v", err)
	}

	// Never PENDING after a run, whatever the caller's context did.
	stored, _ := NewRepo(db).GetInquiryByID(context.Background(), inq.ID)
	if stored.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", stored.Status)
	}
}

func TestRatings_AreAdvisoryOnly(t *testing.T) {
	db := openPipelineDB(t)
	thread := seedThread(t, db, 1)

	orch := NewOrchestrator(db, acceptAll(), &fakeSource{clients: threeHealthyClients()})

	inq, err := orch.Submit(context.Background(), SubmitInput{
		ThreadID: thread.ThreadID, UserID: 1, Question: "Should I refinance my mortgage?",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	ans, err := orch.Run(context.Background(), inq.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if err := db.Where("inquiry_id = ?", inq.ID).Delete(&ProviderRating{}).Error; err != nil {
		t.Fatalf("delete ratings: %v", err)
	}

	after, err := NewRepo(db).GetConsolidatedByInquiry(context.Background(), inq.ID)
	if err != nil {
		t.Fatalf("get consolidated: %v", err)
	}
	if after.Answer != ans.Answer || after.Confidence != ans.Confidence {
		t.Fatalf("stored answer changed after removing ratings")
	}

	stored, _ := NewRepo(db).GetInquiryByID(context.Background(), inq.ID)
	if stored.Status != StatusCompleted {
		t.Fatalf("status must not depend on ratings: %s", stored.Status)
	}
}
