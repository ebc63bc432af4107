package bootstrap

import (
	"log"

	"course-assistant-be/internal/config"
	"course-assistant-be/internal/controller"
	"course-assistant-be/internal/pkg/logger"
	"course-assistant-be/internal/service"
	"course-assistant-be/pkg/docproc"
	"course-assistant-be/pkg/embedding"
	"course-assistant-be/pkg/llm/factory"
	"course-assistant-be/pkg/rag/generator"
	"course-assistant-be/pkg/rag/session"
	"course-assistant-be/pkg/rag/tools"
	"course-assistant-be/pkg/vectorstore"
	"course-assistant-be/pkg/vectorstore/memory"
	"course-assistant-be/pkg/vectorstore/pgvector"

	pktNats "course-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

const ingestTopic = "INGEST_COURSE_DOCUMENT"

type Container struct {
	AssistantController controller.IAssistantController

	// Background services (exposed for main.go to run)
	ConsumerService  service.IConsumerService
	PublisherService service.IPublisherService

	AssistantService service.IAssistantService
	EventPublisher   *pktNats.Publisher
	Logger           logger.ILogger
}

// NewContainer wires the whole dependency graph. db may be nil when the
// vector backend is the in-memory engine.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Event bus for background ingestion work
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Embedding provider
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	// LLM provider
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:         cfg.Ai.LLMProvider,
		Model:            cfg.Ai.LLMModel,
		AnthropicApiKey:  cfg.Ai.AnthropicApiKey,
		AnthropicBaseURL: cfg.Ai.AnthropicBaseURL,
		OllamaBaseURL:    cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Vector engine
	var engine vectorstore.Engine
	if cfg.Vector.Backend == "postgres" {
		if db == nil {
			log.Fatalf("[FATAL] Vector backend is postgres but no database connection was provided")
		}
		engine, err = pgvector.NewEngine(db)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize pgvector engine: %v", err)
		}
		log.Printf("[INFO] Using Vector Backend: POSTGRES (pgvector)")
	} else {
		engine, err = memory.NewEngine(cfg.Vector.IndexPath)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize in-memory vector engine: %v", err)
		}
		log.Printf("[INFO] Using Vector Backend: MEMORY (%s)", cfg.Vector.IndexPath)
	}

	store := vectorstore.NewStore(engine, embeddingProvider, cfg.Rag.MaxResults, sysLogger)

	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewCourseSearchTool(store, sysLogger)); err != nil {
		log.Fatalf("[FATAL] Failed to register search tool: %v", err)
	}

	answerGenerator := generator.New(llmProvider, cfg.Ai.LLMModel, sysLogger)
	sessionManager := session.NewManager(cfg.Rag.MaxHistory)
	processor := docproc.NewProcessor(cfg.Rag.ChunkSize, cfg.Rag.ChunkOverlap)

	// NATS is optional; ingestion still works without the event bus.
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	assistantService := service.NewAssistantService(
		processor,
		store,
		answerGenerator,
		registry,
		sessionManager,
		eventPublisher,
		sysLogger,
	)

	publisherService := service.NewPublisherService(pubSub, ingestTopic)
	consumerService := service.NewConsumerService(
		pubSub,
		ingestTopic,
		assistantService,
		sysLogger,
	)

	return &Container{
		AssistantController: controller.NewAssistantController(assistantService),
		ConsumerService:     consumerService,
		PublisherService:    publisherService,
		AssistantService:    assistantService,
		EventPublisher:      natsPub,
		Logger:              sysLogger,
	}
}
