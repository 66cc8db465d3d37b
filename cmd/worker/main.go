package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/finadvisor/platform/internal/admissibility"
	"github.com/finadvisor/platform/internal/ai"
	"github.com/finadvisor/platform/internal/config"
	"github.com/finadvisor/platform/internal/cost"
	"github.com/finadvisor/platform/internal/db"
	"github.com/finadvisor/platform/internal/inquiry"
	"github.com/finadvisor/platform/internal/provider"
	"github.com/finadvisor/platform/internal/store/rabbitmq"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	if err := config.InitLogger(); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zap.L().Sync() //nolint:errcheck

	gdb := db.Connect(cfg.DBDSN)

	kinds := ai.NewDefaultRegistry(cfg)
	costs := cost.NewCalculator(cost.DefaultRates())
	source := provider.NewSource(provider.NewRepo(gdb), kinds, costs)

	// The worker never gates: admissibility already ran at submit time.
	orch := inquiry.NewOrchestrator(gdb, admissibility.NewKeywordGate(), source)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		zap.L().Fatal("rabbit dial", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		zap.L().Fatal("rabbit channel", zap.Error(err))
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.InquiryQueue); err != nil {
		zap.L().Fatal("queue declare", zap.Error(err))
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		zap.L().Fatal("qos", zap.Error(err))
	}

	msgs, err := ch.Consume(cfg.InquiryQueue, "", false, false, false, false, nil)
	if err != nil {
		zap.L().Fatal("consume", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zap.L().Info("worker started",
		zap.String("queue", cfg.InquiryQueue),
		zap.Int("concurrency", concurrency),
	)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m rabbitmq.InquiryMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.InquiryID == "" {
					zap.L().Warn("bad message", zap.Int("worker", workerID), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if _, err := orch.Run(ctx, m.InquiryID); err != nil {
					zap.L().Error("inquiry run failed",
						zap.Int("worker", workerID),
						zap.String("inquiry_id", m.InquiryID),
						zap.Duration("cost", time.Since(start)),
						zap.Error(err),
					)
					// The inquiry is already FAILED; dead-letter the delivery.
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					zap.L().Warn("ack failed",
						zap.Int("worker", workerID),
						zap.String("inquiry_id", m.InquiryID),
						zap.Error(err),
					)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				zap.L().Warn("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}
