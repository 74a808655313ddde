package bootstrap

import (
	"context"
	"fmt"

	"manual-chatbot-be/internal/config"
	"manual-chatbot-be/internal/controller"
	"manual-chatbot-be/internal/dto"
	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/internal/service"
	"manual-chatbot-be/internal/websocket"
	"manual-chatbot-be/pkg/database"
	"manual-chatbot-be/pkg/document"
	"manual-chatbot-be/pkg/embedding"
	embeddingFactory "manual-chatbot-be/pkg/embedding/factory"
	"manual-chatbot-be/pkg/events"
	"manual-chatbot-be/pkg/ingest"
	"manual-chatbot-be/pkg/llm"
	llmFactory "manual-chatbot-be/pkg/llm/factory"
	pktNats "manual-chatbot-be/pkg/nats"
	"manual-chatbot-be/pkg/rag/engine"
	"manual-chatbot-be/pkg/rag/topic"
	"manual-chatbot-be/pkg/session"
	"manual-chatbot-be/pkg/vectorindex"
	"manual-chatbot-be/pkg/vectorindex/pgvector"
	"manual-chatbot-be/pkg/vectorindex/sqlite"
)

const logModule = "Bootstrap"

type Container struct {
	Config *config.Config
	Logger logger.ILogger

	// Core
	Sessions   *session.Registry
	Extractors *document.Registry
	Store      vectorindex.Store
	Runner     *ingest.Runner
	Engines    *engine.Cache
	Gate       *topic.Gate

	// Events
	Bus          *events.Bus
	WebSocketHub *websocket.Hub
	natsPub      *pktNats.Publisher

	// Services
	SessionService service.ISessionService
	ChatService    service.IChatService

	// Controllers
	SessionController controller.ISessionController
	ChatController    controller.IChatController
	HealthController  *controller.HealthController

	closers []func()
}

// Overrides replace providers built from config. Tests and the CLI use them.
type Overrides struct {
	Logger   logger.ILogger
	Embedder embedding.EmbeddingProvider
	LLM      llm.LLMProvider
}

func NewContainer(cfg *config.Config, o Overrides) (*Container, error) {
	c := &Container{Config: cfg}

	// 1. Logging
	c.Logger = o.Logger
	if c.Logger == nil {
		c.Logger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	}

	// 2. Providers
	embedder := o.Embedder
	if embedder == nil {
		var err error
		embedder, err = embeddingFactory.NewEmbeddingProvider(cfg.Ai.EmbeddingProvider, embeddingFactory.Options{
			OllamaBaseURL: cfg.Ai.OllamaBaseURL,
			OllamaModel:   cfg.Ai.OllamaModel,
			GeminiAPIKey:  cfg.Keys.GoogleGemini,
			JinaAPIKey:    cfg.Keys.Jina,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding provider: %w", err)
		}
	}

	llmProvider := o.LLM
	if llmProvider == nil {
		var err error
		llmProvider, err = llmFactory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.LLMBaseURL, llmAPIKey(cfg))
		if err != nil {
			return nil, fmt.Errorf("llm provider: %w", err)
		}
	}
	c.Logger.Info(logModule, "Providers ready", map[string]interface{}{
		"embedding": cfg.Ai.EmbeddingProvider,
		"llm":       cfg.Ai.LLMProvider,
		"model":     cfg.Ai.LLMModel,
	})

	// 3. Vector index backend
	store, err := c.newStore(embedder)
	if err != nil {
		return nil, err
	}
	c.Store = store

	// 4. Topic gate
	if cfg.Query.TopicKeywordsFile != "" {
		c.Gate, err = topic.LoadFile(cfg.Query.TopicKeywordsFile, cfg.Query.TopicProfile)
	} else {
		c.Gate, err = topic.New(cfg.Query.TopicProfile)
	}
	if err != nil {
		return nil, fmt.Errorf("topic gate: %w", err)
	}

	// 5. Registry and event bus
	c.Sessions, err = session.NewRegistry(cfg.Storage.DataDir, c.Logger)
	if err != nil {
		return nil, err
	}
	c.Bus = events.NewBus(c.Logger)
	c.Sessions.SetNotifier(events.NewSessionNotifier(c.Bus, c.Logger))
	c.closers = append(c.closers, func() { _ = c.Bus.Close() })

	// 6. Ingestion and query
	c.Extractors = document.NewRegistry()
	c.Runner = ingest.NewRunner(c.Sessions, c.Extractors, c.Store, ingest.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		BatchSize:    cfg.Ingest.BatchSize,
	}, c.Logger)

	c.Engines = engine.NewCache(&engine.Deps{
		Sessions: c.Sessions,
		Store:    c.Store,
		LLM:      llmProvider,
		Gate:     c.Gate,
		Logger:   c.Logger,
	}, engine.Config{
		TopK:         cfg.Query.TopK,
		QueryTimeout: cfg.Query.Timeout,
	})
	c.Runner.OnReady(c.Engines.Refresh)

	// 7. Transport
	c.WebSocketHub = websocket.NewHub(c.Sessions, c.Logger)

	c.SessionService = service.NewSessionService(c.Sessions, c.Extractors, c.Runner, c.Engines, c.Store, service.SessionServiceConfig{
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		MaxAge:         cfg.Storage.SessionMaxAge,
	}, c.Logger)
	c.ChatService = service.NewChatService(c.Engines)

	c.SessionController = controller.NewSessionController(c.SessionService, c.WebSocketHub)
	c.ChatController = controller.NewChatController(c.ChatService)
	c.HealthController = controller.NewHealthController(c.health)

	return c, nil
}

func llmAPIKey(cfg *config.Config) string {
	switch cfg.Ai.LLMProvider {
	case "gemini":
		return cfg.Keys.GoogleGemini
	case "huggingface":
		return cfg.Keys.HuggingFace
	}
	return ""
}

func (c *Container) newStore(embedder embedding.EmbeddingProvider) (vectorindex.Store, error) {
	switch c.Config.Storage.VectorStore {
	case "", "sqlite":
		return sqlite.NewStore(embedder), nil
	case "pgvector":
		db, err := database.NewGormDBFromDSN(c.Config.Database.Connection, !c.Config.IsProduction())
		if err != nil {
			return nil, fmt.Errorf("connect pgvector database: %w", err)
		}
		c.closers = append(c.closers, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})

		store := pgvector.NewStore(db, embedder)
		if err := store.Migrate(context.Background()); err != nil {
			return nil, fmt.Errorf("migrate pgvector store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", c.Config.Storage.VectorStore)
	}
}

func (c *Container) health() dto.HealthResponse {
	return dto.HealthResponse{
		Status:         "ok",
		ActiveSessions: len(c.Sessions.List()),
		LoadedEngines:  c.Engines.Len(),
		VectorStore:    c.Config.Storage.VectorStore,
		TopicProfile:   c.Gate.Profile(),
	}
}

// StartBackground launches the websocket hub, the sweeper and, when NATS_URL
// is set, the lifecycle export. Everything stops with ctx.
func (c *Container) StartBackground(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)
	if err := c.WebSocketHub.Listen(ctx, c.Bus); err != nil {
		return fmt.Errorf("websocket hub subscription: %w", err)
	}

	go c.SessionService.RunSweeper(ctx, c.Config.Storage.SweepInterval)

	if c.Config.App.NatsURL == "" {
		return nil
	}
	pub, err := pktNats.NewPublisher(c.Config.App.NatsURL, c.Logger)
	if err != nil {
		// Export is optional; the API works without it.
		c.Logger.Warn(logModule, "NATS unavailable, lifecycle export disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}
	c.natsPub = pub
	c.closers = append(c.closers, pub.Close)
	return pktNats.Forward(ctx, c.Bus, pub)
}

// Close waits for in-flight ingestion runs, then releases resources in
// reverse order of creation.
func (c *Container) Close() {
	c.Runner.Wait()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
