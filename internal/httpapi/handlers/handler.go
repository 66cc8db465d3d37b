package handlers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/finadvisor/platform/internal/admissibility"
	"github.com/finadvisor/platform/internal/ai"
	"github.com/finadvisor/platform/internal/chat"
	"github.com/finadvisor/platform/internal/config"
	"github.com/finadvisor/platform/internal/cost"
	"github.com/finadvisor/platform/internal/inquiry"
	"github.com/finadvisor/platform/internal/provider"
	"github.com/finadvisor/platform/internal/store/rabbitmq"
	"github.com/finadvisor/platform/internal/store/redisstore"
)

// InquiryQueue hands accepted inquiries to the async worker.
type InquiryQueue interface {
	PublishInquiry(ctx context.Context, inquiryID string) error
}

type Handler struct {
	DB           *gorm.DB
	Cfg          config.Config
	ChatSvc      *chat.Service
	InquiryRepo  *inquiry.Repo
	Orchestrator *inquiry.Orchestrator
	Providers    *provider.Repo
	Kinds        *ai.Registry

	// Publisher is nil when no broker is configured; inquiries then run
	// synchronously inside the request.
	Publisher InquiryQueue
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, pub *rabbitmq.Publisher) *Handler {
	kinds := ai.NewDefaultRegistry(cfg)
	costs := cost.NewCalculator(cost.DefaultRates())
	providers := provider.NewRepo(db)
	source := provider.NewSource(providers, kinds, costs)

	var gate admissibility.Gate = admissibility.NewKeywordGate()
	if rds != nil {
		gate = admissibility.NewCachedGate(gate, rds.Client, time.Duration(cfg.GateCacheTTLSec)*time.Second)
	}

	h := &Handler{
		DB:           db,
		Cfg:          cfg,
		ChatSvc:      chat.NewService(chat.NewRepo(db)),
		InquiryRepo:  inquiry.NewRepo(db),
		Orchestrator: inquiry.NewOrchestrator(db, gate, source),
		Providers:    providers,
		Kinds:        kinds,
	}
	// A nil *Publisher must stay a nil interface.
	if pub != nil {
		h.Publisher = pub
	}
	return h
}
