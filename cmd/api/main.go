package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"proposal-ai/internal/config"
	"proposal-ai/internal/conversation"
	"proposal-ai/internal/dedupe"
	"proposal-ai/internal/http"
	"proposal-ai/internal/indexer"
	"proposal-ai/internal/llm"
	"proposal-ai/internal/metadata"
	"proposal-ai/internal/rag"
	"proposal-ai/internal/service"
	"proposal-ai/internal/storage"
	"proposal-ai/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	sessionRepo := storage.NewSessionRepo(db)

	// Initialize Qdrant vector store
	ctx := context.Background()
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	vectorStore.SetTimeout(cfg.RemoteTimeout)

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.EmbeddingDim); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingDim)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDim)
	embedder.SetTimeout(cfg.RemoteTimeout)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.EmbeddingDim {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingDim, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.EmbeddingDim)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	llmClient.SetTimeout(cfg.RemoteTimeout)

	// Create ingestion pipeline
	roster := metadata.NewRoster(cfg.Roster)
	extractor := metadata.NewExtractor(llmClient, cfg.LLMModelName, roster, cfg.ClientExclusions)
	detector := dedupe.NewDetector(docRepo, cfg.DuplicateWarnThreshold, cfg.DuplicateBlockThreshold, cfg.DuplicateCandidates)
	chunker := indexer.NewChunker(cfg.ChunkTargetWords, cfg.ChunkOverlapFraction, cfg.ChunkMinChars)
	pipeline, err := indexer.NewPipeline(docRepo, chunkRepo, extractor, detector, embedder, vectorStore, chunker, indexer.PipelineConfig{
		Collection:    cfg.QdrantCollection,
		Workers:       cfg.IngestWorkers,
		InsertsPerSec: cfg.IngestInsertsPerSec,
	})
	if err != nil {
		log.Fatalf("Failed to create ingestion pipeline: %v", err)
	}
	defer pipeline.Close()
	slog.Info("Ingestion pipeline initialized", "workers", cfg.IngestWorkers)

	// Create retrieval engine
	ragEngine := rag.NewEngine(
		embedder,
		vectorStore,
		chunkRepo,
		rag.NewExpander(llmClient, cfg.LLMModelName),
		rag.NewReranker(llmClient, cfg.LLMModelName),
		rag.EngineConfig{
			Collection:       cfg.QdrantCollection,
			RecallThreshold:  cfg.RecallThreshold,
			DefaultThreshold: cfg.DefaultThreshold,
			DefaultLimit:     cfg.DefaultLimit,
			MaxPerDocument:   cfg.MaxPerDocument,
		},
	)
	slog.Info("Retrieval engine initialized")

	// Create conversation and service layers
	sessions := conversation.NewManager(sessionRepo, cfg.HistoryCapacity)
	resolver := conversation.NewResolver(docRepo)
	queryService := service.NewQueryService(ragEngine, resolver, sessions, llmClient, cfg.LLMModelName)
	ingestService := service.NewIngestService(pipeline, docRepo)

	// Create router with dependencies
	deps := &http.Deps{
		QueryService:  queryService,
		IngestService: ingestService,
		DB:            db,
		VectorStore:   vectorStore,
		Collection:    cfg.QdrantCollection,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
