package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks proposal-ai/internal/indexer Embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"proposal-ai/internal/contextutil"
	"proposal-ai/internal/dedupe"
	"proposal-ai/internal/metadata"
	"proposal-ai/internal/storage"
	"proposal-ai/internal/vectorstore"
)

// ErrEmptyDocument is returned when an upload has no extractable text.
var ErrEmptyDocument = errors.New("document is empty")

// Embedder is the embedding surface the pipeline needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline runs document ingestion: normalize, dedupe, extract metadata,
// chunk, embed, and store. Chunk embedding fans out over a bounded worker
// pool with a token-bucket limiter in front of the remote embedding service,
// so a large upload cannot starve it.
type Pipeline struct {
	docs       storage.DocumentStore
	chunks     storage.ChunkStore
	extractor  *metadata.Extractor
	detector   *dedupe.Detector
	embedder   Embedder
	vectors    vectorstore.VectorStore
	collection string
	chunker    *Chunker
	normalizer *Normalizer
	pool       *ants.Pool
	limiter    *rate.Limiter
}

// PipelineConfig carries the pipeline's tuning knobs.
type PipelineConfig struct {
	Collection    string
	Workers       int
	InsertsPerSec float64
}

// NewPipeline creates an ingestion pipeline. The worker pool is shared across
// documents; Close releases it.
func NewPipeline(
	docs storage.DocumentStore,
	chunks storage.ChunkStore,
	extractor *metadata.Extractor,
	detector *dedupe.Detector,
	embedder Embedder,
	vectors vectorstore.VectorStore,
	chunker *Chunker,
	cfg PipelineConfig,
) (*Pipeline, error) {
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Pipeline{
		docs:       docs,
		chunks:     chunks,
		extractor:  extractor,
		detector:   detector,
		embedder:   embedder,
		vectors:    vectors,
		collection: cfg.Collection,
		chunker:    chunker,
		normalizer: NewNormalizer(),
		pool:       pool,
		limiter:    rate.NewLimiter(rate.Limit(cfg.InsertsPerSec), cfg.Workers),
	}, nil
}

// Close releases the worker pool.
func (p *Pipeline) Close() {
	p.pool.Release()
}

// IngestDocument runs the full pipeline for one upload. A blocked duplicate
// is reported through the result, not as an error. A metadata LLM failure
// aborts the document; a failed chunk is recorded and the rest of the
// document proceeds. Re-ingesting an existing filename bumps the document's
// generation and replaces its chunks.
func (p *Pipeline) IngestDocument(ctx context.Context, filename string, content []byte) (*IngestResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	text := p.normalizer.Normalize(content)
	if text == "" {
		return nil, ErrEmptyDocument
	}

	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])

	verdict, err := p.detector.Check(ctx, filename, text, hash)
	if err != nil {
		return nil, err
	}
	if !verdict.ShouldProceed {
		return &IngestResult{Duplicate: verdict}, nil
	}

	meta, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to extract metadata: %w", err)
	}

	doc, err := p.upsertDocument(ctx, filename, hash, text, meta)
	if err != nil {
		return nil, err
	}

	chunkTexts := p.chunker.Chunk(text)
	result := &IngestResult{
		DocumentID:  doc.ID,
		Generation:  doc.Generation,
		Duplicate:   verdict,
		Metadata:    meta,
		ChunksTotal: len(chunkTexts),
	}
	if len(chunkTexts) == 0 {
		logger.WarnContext(ctx, "document produced no chunks", "filename", filename)
		return result, nil
	}

	sections := ExtractSections(text)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		indexed   int
		chunkErrs []string
	)
	for i, chunkText := range chunkTexts {
		index, body := i, chunkText
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.indexChunk(ctx, doc, index, body, sections); err != nil {
				mu.Lock()
				chunkErrs = append(chunkErrs, fmt.Sprintf("chunk %d: %v", index, err))
				mu.Unlock()
				logger.ErrorContext(ctx, "failed to index chunk", "filename", filename, "chunk", index, "error", err)
				return
			}
			mu.Lock()
			indexed++
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			chunkErrs = append(chunkErrs, fmt.Sprintf("chunk %d: %v", index, submitErr))
			mu.Unlock()
		}
	}
	wg.Wait()

	sort.Strings(chunkErrs)
	result.ChunksIndexed = indexed
	result.ChunkErrors = chunkErrs

	logger.InfoContext(ctx, "document ingested",
		"filename", filename,
		"document_id", doc.ID,
		"generation", doc.Generation,
		"chunks_total", result.ChunksTotal,
		"chunks_indexed", result.ChunksIndexed,
	)
	return result, nil
}

// upsertDocument creates the document record, or bumps its generation and
// clears its previous chunks when the filename was ingested before.
func (p *Pipeline) upsertDocument(ctx context.Context, filename, hash, text string, meta metadata.Result) (*storage.DocumentRecord, error) {
	logger := contextutil.LoggerFromContext(ctx)

	doc := &storage.DocumentRecord{
		Filename:     filename,
		Hash:         hash,
		Sector:       meta.Sector,
		Author:       meta.Author,
		Client:       meta.Client,
		ProposalDate: meta.ProposalDate,
		Tags:         meta.Tags,
		Text:         text,
	}

	existing, err := p.docs.GetByFilename(ctx, filename)
	if err != nil && err != storage.ErrNotFound {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}

	if existing == nil {
		doc.ID = uuid.NewString()
		doc.Generation = 1
		if err := p.docs.Insert(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}

	doc.ID = existing.ID
	doc.Generation = existing.Generation + 1

	oldChunkIDs, err := p.chunks.ListIDsByDocument(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list previous chunks: %w", err)
	}
	if len(oldChunkIDs) > 0 {
		// Stale vectors are tolerable; the generation payload lets readers
		// spot them, so a vector-store failure here is not fatal.
		if err := p.vectors.Delete(ctx, p.collection, oldChunkIDs); err != nil {
			logger.WarnContext(ctx, "failed to delete previous vectors", "document_id", existing.ID, "error", err)
		}
	}
	if err := p.chunks.DeleteByDocument(ctx, existing.ID); err != nil {
		return nil, fmt.Errorf("failed to delete previous chunks: %w", err)
	}
	if err := p.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// indexChunk embeds one chunk and writes it to both stores.
func (p *Pipeline) indexChunk(ctx context.Context, doc *storage.DocumentRecord, index int, body string, sections map[string]string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	vectors, err := p.embedder.EmbedTexts(ctx, []string{body})
	if err != nil {
		return fmt.Errorf("failed to embed chunk: %w", err)
	}

	chunk := &storage.ChunkRecord{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		ChunkIndex: index,
		Section:    sectionForChunk(body, sections),
		Text:       body,
		Generation: doc.Generation,
	}
	if err := p.chunks.Insert(ctx, chunk); err != nil {
		return err
	}

	meta := map[string]any{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"sector":      doc.Sector,
		"author":      doc.Author,
		"chunk_index": index,
		"generation":  doc.Generation,
	}
	if doc.Client != "" {
		meta["client"] = doc.Client
	}
	if chunk.Section != "" {
		meta["section"] = chunk.Section
	}
	if len(doc.Tags) > 0 {
		tags := make([]any, len(doc.Tags))
		for i, t := range doc.Tags {
			tags[i] = t
		}
		meta["tags"] = tags
	}

	return p.vectors.Upsert(ctx, p.collection, []vectorstore.Point{{
		ID:   chunk.ID,
		Vec:  vectors[0],
		Meta: meta,
	}})
}
