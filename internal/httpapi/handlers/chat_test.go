package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finadvisor/platform/internal/admissibility"
	"github.com/finadvisor/platform/internal/chat"
	"github.com/finadvisor/platform/internal/httpapi/middleware"
	"github.com/finadvisor/platform/internal/inquiry"
)

func init() {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
}

type noProviders struct{}

func (noProviders) ActiveClients(ctx context.Context) ([]inquiry.AnswerClient, error) {
	return nil, nil
}

type brokenQueue struct{}

func (brokenQueue) PublishInquiry(ctx context.Context, inquiryID string) error {
	return errors.New("broker unavailable")
}

func newHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&chat.Thread{}, &chat.Message{},
		&inquiry.Inquiry{}, &inquiry.ProviderReply{},
		&inquiry.ConsolidatedAnswer{}, &inquiry.ProviderRating{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestSubmitInquiry_PublishFailureMarksInquiryFailed(t *testing.T) {
	db := newHandlerTestDB(t)

	thread := &chat.Thread{ThreadID: "01HANDLERTESTTHREAD0000000", UserID: 1}
	if err := chat.NewRepo(db).CreateThread(context.Background(), thread); err != nil {
		t.Fatalf("seed thread: %v", err)
	}

	h := &Handler{
		DB:           db,
		ChatSvc:      chat.NewService(chat.NewRepo(db)),
		InquiryRepo:  inquiry.NewRepo(db),
		Orchestrator: inquiry.NewOrchestrator(db, admissibility.NewKeywordGate(), noProviders{}),
		Publisher:    brokenQueue{},
	}

	body, _ := json.Marshal(gin.H{
		"thread_id": thread.ThreadID,
		"question":  "How should I invest my savings?",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/chat/inquiries", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.UserIDKey, uint64(1))

	h.SubmitInquiry(c)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	// The inquiry exists but no worker will ever pick it up, so it
	// must not be left PENDING.
	var inqs []inquiry.Inquiry
	if err := db.Find(&inqs).Error; err != nil {
		t.Fatalf("query inquiries: %v", err)
	}
	if len(inqs) != 1 {
		t.Fatalf("expected 1 inquiry row, got %d", len(inqs))
	}
	if inqs[0].Status != inquiry.StatusFailed {
		t.Fatalf("unqueued inquiry must be FAILED, got %s", inqs[0].Status)
	}
}
