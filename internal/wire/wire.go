// Package wire 提供依赖装配
package wire

import (
	"context"
	"fmt"

	"sop-rag-api/internal/application/policy"
	"sop-rag-api/internal/application/rag"
	"sop-rag-api/internal/config"
	"sop-rag-api/internal/infrastructure/embedding"
	"sop-rag-api/internal/infrastructure/llm"
	"sop-rag-api/internal/infrastructure/messaging"
	"sop-rag-api/internal/infrastructure/persistence/milvus"
	"sop-rag-api/internal/infrastructure/persistence/postgres"
	"sop-rag-api/internal/infrastructure/persistence/redis"
	"sop-rag-api/internal/interfaces/http/handler"
	"sop-rag-api/internal/interfaces/http/router"
	wfprompt "sop-rag-api/internal/workflow/prompt"
	"sop-rag-api/pkg/logger"
)

// App 装配完成的应用
type App struct {
	Router *router.Router

	PgClient     *postgres.Client
	RedisClient  *redis.Client
	MilvusClient *milvus.Client

	TxManager     *postgres.TxManager
	TenantContext *postgres.TenantContext
	UserRepo      *postgres.UserRepository
	TenantRepo    *postgres.TenantRepository
	DocumentRepo  *postgres.DocumentRepository
	SessionRepo   *postgres.ConversationSessionRepository
	TurnRepo      *postgres.ConversationTurnRepository
	QueryLogRepo  *postgres.QueryLogRepository

	VectorRepo *milvus.Repository
	Producer   *messaging.Producer
	Service    *rag.Service
	Catalog    *rag.Catalog
}

// DataLayer audit-worker 等后台进程需要的最小数据层
type DataLayer struct {
	PgClient     *postgres.Client
	RedisClient  *redis.Client
	QueryLogRepo *postgres.QueryLogRepository
}

// InitializeApp 装配整个应用
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	app := &App{}
	cleanup := func() {
		if app.MilvusClient != nil {
			_ = app.MilvusClient.Close()
		}
		if app.RedisClient != nil {
			_ = app.RedisClient.Close()
		}
		if app.PgClient != nil {
			_ = app.PgClient.Close()
		}
	}

	var err error
	if app.PgClient, err = postgres.NewClient(&cfg.Database.Postgres); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init postgres: %w", err)
	}
	if app.RedisClient, err = redis.NewClient(&cfg.Cache.Redis); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init redis: %w", err)
	}
	if app.MilvusClient, err = milvus.NewClient(ctx, &cfg.Vector.Milvus); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init milvus: %w", err)
	}

	app.TxManager = postgres.NewTxManager(app.PgClient)
	app.TenantContext = postgres.NewTenantContext(app.PgClient)
	app.UserRepo = postgres.NewUserRepository(app.PgClient)
	app.TenantRepo = postgres.NewTenantRepository(app.PgClient)
	app.DocumentRepo = postgres.NewDocumentRepository(app.PgClient)
	app.SessionRepo = postgres.NewConversationSessionRepository(app.PgClient)
	app.TurnRepo = postgres.NewConversationTurnRepository(app.PgClient)
	app.QueryLogRepo = postgres.NewQueryLogRepository(app.PgClient)

	app.VectorRepo = milvus.NewRepository(app.MilvusClient, cfg.Embedding.Dimension)
	app.Producer = messaging.NewProducer(app.RedisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))

	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init embedder: %w", err)
	}
	factory := llm.NewEinoFactory(cfg)
	registry := wfprompt.NewRegistry()

	accessPolicy := policy.New(policy.DefaultHierarchy())
	retriever := rag.NewRetriever(embedder, app.VectorRepo,
		cfg.Pipeline.TopK, cfg.Pipeline.CandidatePool, cfg.Pipeline.MinScore)
	extractor := rag.NewFactExtractor(factory, registry, cfg.LLM.StageProvider("extraction"))
	composer := rag.NewAnswerComposer(factory, registry, cfg.LLM.StageProvider("generation"))
	verifier := rag.NewComplianceVerifier(factory, registry, cfg.LLM.StageProvider("verification"))

	orch := rag.NewOrchestrator(accessPolicy, retriever, extractor, composer, verifier,
		cfg.Pipeline.StageTimeout, rag.ModelConfig{
			Extraction:   cfg.LLM.StageProvider("extraction"),
			Generation:   cfg.LLM.StageProvider("generation"),
			Verification: cfg.LLM.StageProvider("verification"),
		})

	answerCache := redis.NewAnswerCache(app.RedisClient)
	app.Service = rag.NewService(orch, answerCache, app.Producer, app.TurnRepo, cfg.Pipeline.AnswerCacheTTL)
	app.Catalog = rag.NewCatalog(accessPolicy, app.DocumentRepo)

	handlers := router.Handlers{
		Health:       handler.NewHealthHandler(app.PgClient, app.RedisClient, app.MilvusClient),
		Auth:         handler.NewAuthHandler(cfg.Security.JWT, app.UserRepo, app.TenantRepo),
		Query:        handler.NewQueryHandler(app.Service, app.SessionRepo),
		Document:     handler.NewDocumentHandler(app.Catalog, app.DocumentRepo, app.VectorRepo),
		Conversation: handler.NewConversationHandler(app.SessionRepo, app.TurnRepo),
		User:         handler.NewUserHandler(app.UserRepo),
		Tenant:       handler.NewTenantHandler(app.TenantRepo),
	}

	app.Router = router.New(cfg, handlers, router.Deps{
		RateLimiter: redis.NewRateLimiter(app.RedisClient),
		TxManager:   app.TxManager,
		TenantCtx:   app.TenantContext,
	})

	logger.Info(ctx, "application wired",
		"collection_prefix", cfg.Vector.Milvus.CollectionPrefix,
		"default_provider", cfg.LLM.DefaultProvider,
	)
	return app, cleanup, nil
}

// InitializeDataLayer 装配后台进程数据层
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	dl := &DataLayer{}
	cleanup := func() {
		if dl.RedisClient != nil {
			_ = dl.RedisClient.Close()
		}
		if dl.PgClient != nil {
			_ = dl.PgClient.Close()
		}
	}

	var err error
	if dl.PgClient, err = postgres.NewClient(&cfg.Database.Postgres); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init postgres: %w", err)
	}
	if dl.RedisClient, err = redis.NewClient(&cfg.Cache.Redis); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init redis: %w", err)
	}
	dl.QueryLogRepo = postgres.NewQueryLogRepository(dl.PgClient)
	return dl, cleanup, nil
}
