package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_clients.go -package=mocks proposal-ai/internal/rag CompletionClient,Embedder

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"proposal-ai/internal/contextutil"
	"proposal-ai/internal/llm"
	"proposal-ai/internal/storage"
	"proposal-ai/internal/vectorstore"
)

// CompletionClient is the LLM surface the retrieval pipeline needs.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, params llm.ChatParams) (string, error)
}

// Embedder is the embedding surface the retrieval pipeline needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// recallMultiplier sizes the candidate pool: each query variant searches for
// this many times the requested passage count, at a permissive threshold, and
// reranking does the precision work afterwards.
const recallMultiplier = 4

// EngineConfig carries the engine's tuning knobs.
type EngineConfig struct {
	Collection string
	// RecallThreshold is the permissive similarity floor for candidate
	// gathering.
	RecallThreshold float32
	// DefaultThreshold is the stricter floor used by the fallback search.
	DefaultThreshold float32
	// DefaultLimit is the passage count when a request doesn't set one.
	DefaultLimit int
	// MaxPerDocument caps passages from a single document in the final set.
	MaxPerDocument int
}

// Engine runs the retrieval pipeline: query expansion, parallel multi-query
// search at high recall, cross-encoder reranking, and a per-document
// diversity cap. When any stage of the pipeline fails outright, Retrieve
// degrades to a plain single-query search rather than failing the read.
type Engine struct {
	embedder Embedder
	vectors  vectorstore.VectorStore
	chunks   storage.ChunkStore
	expander *Expander
	reranker *Reranker
	cfg      EngineConfig
}

func NewEngine(
	embedder Embedder,
	vectors vectorstore.VectorStore,
	chunks storage.ChunkStore,
	expander *Expander,
	reranker *Reranker,
	cfg EngineConfig,
) *Engine {
	return &Engine{
		embedder: embedder,
		vectors:  vectors,
		chunks:   chunks,
		expander: expander,
		reranker: reranker,
		cfg:      cfg,
	}
}

// Retrieve returns the top passages for a query. It returns an error only
// when both the full pipeline and the fallback search fail.
func (e *Engine) Retrieve(ctx context.Context, req Request) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	queries := e.expander.Expand(ctx, req.Query)
	candidates, err := e.multiSearch(ctx, queries, limit*recallMultiplier, req.Filters)
	if err != nil {
		logger.WarnContext(ctx, "retrieval pipeline failed, falling back to plain search", "error", err)
		return e.fallback(ctx, req.Query, limit, req.Filters)
	}

	passages := e.hydrate(ctx, candidates)
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Similarity > passages[j].Similarity
	})

	reranked, ok := e.reranker.Rerank(ctx, req.Query, passages)

	return &Result{
		Passages: diversityFilter(reranked, e.cfg.MaxPerDocument, limit),
		Meta: Meta{
			QueriesUsed:    queries,
			CandidateCount: len(passages),
			Reranked:       ok,
		},
	}, nil
}

// multiSearch embeds and searches every query variant in parallel and merges
// the results, keeping the best similarity per chunk. Individual variants may
// fail as long as at least one succeeds.
func (e *Engine) multiSearch(ctx context.Context, queries []string, k int, filters vectorstore.Filters) ([]vectorstore.SearchResult, error) {
	var (
		mu        sync.Mutex
		merged    = make(map[string]vectorstore.SearchResult)
		succeeded int
		firstErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, query := range queries {
		q := query
		g.Go(func() error {
			results, err := e.searchOne(gctx, q, k, e.cfg.RecallThreshold, filters)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("query %q: %w", q, err)
				}
				// Partial failure is tolerated; don't cancel the group.
				return nil
			}
			succeeded++
			for _, result := range results {
				if existing, ok := merged[result.PointID]; !ok || result.Score > existing.Score {
					merged[result.PointID] = result
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if succeeded == 0 {
		return nil, firstErr
	}

	results := make([]vectorstore.SearchResult, 0, len(merged))
	for _, result := range merged {
		results = append(results, result)
	}
	return results, nil
}

func (e *Engine) searchOne(ctx context.Context, query string, k int, threshold float32, filters vectorstore.Filters) ([]vectorstore.SearchResult, error) {
	vectors, err := e.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return e.vectors.Search(ctx, e.cfg.Collection, vectors[0], k, threshold, filters)
}

// fallback is the degraded read path: one embedding, one search at the
// default threshold, no expansion or reranking.
func (e *Engine) fallback(ctx context.Context, query string, limit int, filters vectorstore.Filters) (*Result, error) {
	results, err := e.searchOne(ctx, query, limit*2, e.cfg.DefaultThreshold, filters)
	if err != nil {
		return nil, fmt.Errorf("fallback search failed: %w", err)
	}

	passages := e.hydrate(ctx, results)
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Similarity > passages[j].Similarity
	})

	return &Result{
		Passages: diversityFilter(passages, e.cfg.MaxPerDocument, limit),
		Meta: Meta{
			QueriesUsed:    []string{query},
			CandidateCount: len(passages),
			Fallback:       true,
		},
	}, nil
}

// hydrate resolves search hits to their stored chunk text. A hit whose chunk
// is gone (stale vector from a replaced generation) is skipped.
func (e *Engine) hydrate(ctx context.Context, results []vectorstore.SearchResult) []RankedPassage {
	logger := contextutil.LoggerFromContext(ctx)

	passages := make([]RankedPassage, 0, len(results))
	for _, result := range results {
		chunk, err := e.chunks.GetByID(ctx, result.PointID)
		if err == storage.ErrNotFound {
			logger.DebugContext(ctx, "skipping stale vector", "chunk_id", result.PointID)
			continue
		}
		if err != nil {
			logger.WarnContext(ctx, "failed to load chunk", "chunk_id", result.PointID, "error", err)
			continue
		}

		passages = append(passages, RankedPassage{
			ChunkID:     chunk.ID,
			DocumentID:  chunk.DocumentID,
			Filename:    metaString(result.Meta, "filename"),
			Section:     chunk.Section,
			Sector:      metaString(result.Meta, "sector"),
			Author:      metaString(result.Meta, "author"),
			Client:      metaString(result.Meta, "client"),
			ChunkIndex:  chunk.ChunkIndex,
			Text:        chunk.Text,
			Similarity:  result.Score,
			RerankScore: -1,
		})
	}
	return passages
}

func metaString(meta map[string]any, key string) string {
	if value, ok := meta[key].(string); ok {
		return value
	}
	return ""
}
