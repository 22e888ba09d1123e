// Package bootstrap wires infrastructure into the use cases. All instances
// are explicit; nothing hangs off package-level state.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jvanleeuwen/regelrag/internal/cache"
	"github.com/jvanleeuwen/regelrag/internal/config"
	"github.com/jvanleeuwen/regelrag/internal/core/analyzer"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
	"github.com/jvanleeuwen/regelrag/internal/core/usecase"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/chunking"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/extractor"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/extractor/bwbxml"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/extractor/pdf"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/extractor/plaintext"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/llm/ollama"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/queue/nats"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/repository/postgres"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/resilience"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/storage/localfs"
	"github.com/jvanleeuwen/regelrag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    ports.MessageQueue
	Repo     ports.DocumentRepository
	VectorDB ports.VectorStore

	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.DocumentQueryService
	RemoveUC  ports.DocumentRemover

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	generator := ollama.NewGenerator(ollamaClient)
	reasoner := ollama.NewReasoner(ollamaClient)

	embeddingCache := cache.NewEmbeddingCache(cfg.EmbeddingCacheSize, postgres.NewEmbeddingStore(db), logger)
	embedder := cache.NewCachingEmbedder(ollama.NewEmbedder(ollamaClient), embeddingCache)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollectionPrefix)

	weights, err := config.LoadRankingWeights(cfg.RankingConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load ranking weights: %w", err)
	}

	queryAnalyzer := analyzer.New(reasoner, cfg.AnalyzerLLMTimeout, logger)
	reranker := usecase.NewReranker(weights, reasoner, cfg.VerifyTimeout, logger)
	queryCache := cache.NewQueryCache(cfg.QueryCacheSize, cfg.QueryCacheTTL)

	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	articleChunker := chunking.NewArticleChunker()
	extractorMux := extractor.NewMux(
		plaintext.NewExtractor(storage),
		pdf.NewExtractor(storage),
		bwbxml.NewExtractor(storage),
	)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(
		repo, extractorMux, splitter, articleChunker, embedder, vectorDB, cfg.EmbedBatchSize,
	)
	queryUC := usecase.NewQueryUseCase(
		queryAnalyzer, embedder, vectorDB, reranker, generator, queryCache,
		usecase.QueryLimits{
			DefaultTopK:           cfg.DefaultTopK,
			MaxTopK:               cfg.MaxTopK,
			SimilarityThreshold:   cfg.SimilarityThreshold,
			MinimumRelevance:      cfg.MinimumRelevance,
			FallbackResultCount:   cfg.FallbackResultCount,
			CandidateMultiplier:   cfg.CandidateMultiplier,
			CandidateCeiling:      cfg.CandidateCeiling,
			VerifyBelowConfidence: cfg.VerifyBelowConfidence,
		},
		logger,
	)
	removeUC := usecase.NewRemoveDocumentUseCase(repo, vectorDB)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:    queue,
		Repo:     repo,
		VectorDB: vectorDB,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,
		RemoveUC:  removeUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
