// Package main 查询审计落库 worker 入口
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sop-rag-api/internal/application/rag"
	"sop-rag-api/internal/config"
	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/infrastructure/messaging"
	"sop-rag-api/internal/wire"
	"sop-rag-api/pkg/logger"
	"sop-rag-api/pkg/tracer"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.FromContext(ctx)
	log.Info("starting audit-worker",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name + "-audit-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
		Env:         cfg.App.Env,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	dl, cleanup, err := wire.InitializeDataLayer(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize data layer", err)
	}
	defer cleanup()

	hostname, _ := os.Hostname()
	persist := func(ctx context.Context, msg *messaging.Message) error {
		if msg.Type != messaging.MsgTypeQueryAudit {
			logger.FromContext(ctx).Warn("skipping unexpected message type", "type", msg.Type)
			return nil
		}

		var event rag.QueryAuditEvent
		if err := msg.UnmarshalPayload(&event); err != nil {
			return fmt.Errorf("decode query audit event: %w", err)
		}

		return dl.QueryLogRepo.Create(ctx, &entity.QueryLog{
			TenantID:    event.TenantID,
			UserID:      event.UserID,
			Role:        event.Role,
			Query:       event.Query,
			Outcome:     event.Outcome,
			ErrorTag:    event.ErrorTag,
			ChunkCount:  event.ChunkCount,
			FactCount:   event.FactCount,
			SourceCount: event.SourceCount,
			DurationMs:  int(event.DurationMs),
			CreatedAt:   event.OccurredAt,
		})
	}

	consumer := messaging.NewConsumer(dl.RedisClient.Redis(), persist, messaging.ConsumerConfig{
		Stream:        messaging.StreamQueryAudit,
		Group:         messaging.ConsumerGroupAuditWriter,
		ConsumerName:  fmt.Sprintf("audit-worker-%s-%d", hostname, os.Getpid()),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	go consumer.MonitorDLQ(ctx, 100)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down audit-worker...")
	consumer.Stop()
	cancel()
	log.Info("audit-worker exited")
}
