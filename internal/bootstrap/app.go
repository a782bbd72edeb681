package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/cache"
	"gopherai-docqa/internal/config"
	"gopherai-docqa/internal/pkg/extract"
	"gopherai-docqa/internal/pkg/secret"
	"gopherai-docqa/internal/pkg/textsplit"
	"gopherai-docqa/internal/platform/database"
	rabbitmqClient "gopherai-docqa/internal/platform/rabbitmq"
	redisClient "gopherai-docqa/internal/platform/redis"
	"gopherai-docqa/internal/repository"
	"gopherai-docqa/internal/tracer"
	"gopherai-docqa/internal/vectorindex"
	"gopherai-docqa/internal/worker"
)

const serviceName = "gopherai-docqa"

type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	// Redis and MQConn are nil when the matching section is disabled.
	Redis       *redis.Client
	MQConn      *amqp.Connection
	RetryWorker *worker.IngestRetryWorker

	RAG         *app.RAGService
	Credentials *app.CredentialService

	shutdownTracer tracer.Shutdown
	StartedAt      time.Time
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	a.shutdownTracer = tracer.Init(ctx, cfg.Tracing, serviceName, logger)

	db, err := database.Open(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.DB = db

	var historyCache app.HistoryCache
	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		historyCache = cache.NewHistoryCache(a.Redis, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second, 0)
	}

	documents := repository.NewDocumentRepository(db)
	sessions := repository.NewSessionRepository(db)
	messages := repository.NewMessageRepository(db)

	index, err := newVectorIndex(cfg.Index.Backend, db)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	embeddingKey := cfg.Embedding.APIKey
	if embeddingKey == "" {
		embeddingKey = cfg.LLM.APIKey
	}
	client := ai.NewOpenAICompatibleClient()
	embedder := ai.NewEmbedder(client, ai.EmbeddingConfig{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  embeddingKey,
		Model:   cfg.Embedding.Model,
	}, cfg.Embedding.BatchSize, cfg.Embedding.Concurrency)

	slot := app.NewGeneratorSlot()
	conversation := app.NewConversationLog(messages, historyCache, logger)
	coordinator := app.NewIndexCoordinator(documents, newSplitter(cfg.RAG), embedder, index, logger)
	orchestrator := app.NewRetrievalOrchestrator(slot, sessions, documents, embedder, index, conversation, logger)

	deps := app.RAGServiceDeps{
		Extractor:    extract.New(),
		Documents:    documents,
		Sessions:     sessions,
		Conversation: conversation,
		Coordinator:  coordinator,
		Orchestrator: orchestrator,
		DocCache:     cache.NewDocumentCache(time.Hour, 10*time.Minute),
	}

	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.IngestRetryQueue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		publisher := rabbitmqClient.NewIngestJobPublisher(a.MQConn, cfg.RabbitMQ.IngestRetryQueue)
		deps.Retry = publisher
		a.RetryWorker = worker.NewIngestRetryWorker(
			a.MQConn,
			cfg.RabbitMQ.IngestRetryQueue,
			coordinator,
			documents,
			publisher,
			cfg.RabbitMQ.MaxAttempts,
			logger,
		)
		if err := a.RetryWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start ingest retry worker failed: %w", err)
		}
	}

	a.RAG = app.NewRAGService(deps, app.RAGOptions{
		DefaultNResults: cfg.RAG.DefaultNResults,
		MaxNResults:     cfg.RAG.MaxNResults,
	}, logger)

	box, err := secret.NewBox(cfg.LLM.CredentialSecret)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Credentials = app.NewCredentialService(
		repository.NewCredentialRepository(db),
		box,
		slot,
		func(binding ai.Binding, apiKey string) (app.AnswerGenerator, error) {
			generator, err := ai.NewGenerator(client, binding, apiKey)
			if err != nil {
				return nil, err
			}
			return generator, nil
		},
		logger,
	)
	if err := a.Credentials.Restore(ctx, app.SetCredentialInput{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
	}); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("restore llm credential failed: %w", err)
	}

	return a, nil
}

func newVectorIndex(backend string, db *gorm.DB) (app.VectorIndex, error) {
	switch backend {
	case "sql":
		return vectorindex.NewSQL(db), nil
	case "pgvector":
		return vectorindex.NewPGVector(db), nil
	case "memory":
		return vectorindex.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported index backend %q", backend)
	}
}

func newSplitter(cfg config.RAGConfig) app.Splitter {
	if cfg.Splitter == "window" {
		return textsplit.NewWindow(cfg.ChunkSize, cfg.ChunkOverlap)
	}
	return textsplit.NewRecursive(cfg.ChunkSize, cfg.ChunkOverlap)
}

func (a *App) Close() error {
	var errs []error
	if a.RetryWorker != nil {
		a.RetryWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracer(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
