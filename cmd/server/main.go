package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/finadvisor/platform/internal/config"
	"github.com/finadvisor/platform/internal/db"
	"github.com/finadvisor/platform/internal/httpapi"
	"github.com/finadvisor/platform/internal/store/rabbitmq"
	"github.com/finadvisor/platform/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	if err := config.InitLogger(); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zap.L().Sync() //nolint:errcheck

	gdb := db.Connect(cfg.DBDSN)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rds.Ping(ctx); err != nil {
		zap.L().Warn("redis unavailable, verdict caching disabled", zap.Error(err))
		rds = nil
	}
	cancel()

	// Without a broker the pipeline runs synchronously in-request.
	var pub *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.InquiryQueue)
		if err != nil {
			zap.L().Warn("rabbitmq unavailable, running inquiries synchronously", zap.Error(err))
		} else {
			pub = p
			defer pub.Close()
		}
	}

	r := httpapi.NewRouter(gdb, cfg, rds, pub)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	zap.L().Info("server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}
