package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/aura-systems/aura/internal/domain"
	"github.com/aura-systems/aura/internal/extract"
	"github.com/aura-systems/aura/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex defines the interface for filtered vector storage and search.
// Every Search call is scoped to one brain; the adapter must apply that
// filter server-side, never post-hoc.
type VectorIndex interface {
	Upsert(ctx context.Context, entries []domain.VectorEntry) ([]string, error)
	Search(ctx context.Context, vector []float32, brainID int64, limit int, scoreThreshold float32) ([]domain.VectorMatch, error)
	DeleteByDocument(ctx context.Context, documentID int64) error
	DeleteByBrain(ctx context.Context, brainID int64) error
}

// BlobStore defines the interface for raw uploaded file bytes
type BlobStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// TextExtractor turns raw file bytes into chunk candidates
type TextExtractor interface {
	Extract(fileType domain.FileType, data []byte) ([]extract.Candidate, error)
}

// IngestDocumentRepository defines the document persistence operations the
// pipeline needs
type IngestDocumentRepository interface {
	MarkProcessed(ctx context.Context, id int64, vectorIDs []string) error
	MarkFailed(ctx context.Context, id int64, message string) error
}

// IngestionService turns an uploaded document into vector entries:
// extraction, chunking, embedding, and storage, in that order.
type IngestionService struct {
	extractor TextExtractor
	embedding EmbeddingClient
	index     VectorIndex
	blobs     BlobStore
	docs      IngestDocumentRepository
	chunkCfg  ChunkConfig

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	extractor TextExtractor,
	embedding EmbeddingClient,
	index VectorIndex,
	blobs BlobStore,
	docs IngestDocumentRepository,
	chunkCfg ChunkConfig,
) *IngestionService {
	if chunkCfg.Size <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &IngestionService{
		extractor: extractor,
		embedding: embedding,
		index:     index,
		blobs:     blobs,
		docs:      docs,
		chunkCfg:  chunkCfg,
		locks:     make(map[int64]*sync.Mutex),
	}
}

// documentLock returns the mutex for one document id. Two ingestions of the
// same document must never interleave; distinct documents run concurrently.
func (s *IngestionService) documentLock(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Ingest runs the full pipeline for a document and records the outcome on
// the document row: PROCESSED with the written vector ids, or FAILED with a
// human-readable message. The returned ids mirror what was recorded.
func (s *IngestionService) Ingest(ctx context.Context, doc *domain.Document) ([]string, error) {
	lock := s.documentLock(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		BrainID:    doc.BrainID,
		DocumentID: doc.ID,
		Operation:  "ingest",
	})
	defer span.End()

	vectorIDs, err := s.run(ctx, doc)
	if err != nil {
		span.SetError(err)
		if markErr := s.docs.MarkFailed(ctx, doc.ID, err.Error()); markErr != nil {
			log.Printf("failed to mark document %d failed: %v", doc.ID, markErr)
		}
		return nil, err
	}

	if err := s.docs.MarkProcessed(ctx, doc.ID, vectorIDs); err != nil {
		return nil, fmt.Errorf("failed to mark document %d processed: %w", doc.ID, err)
	}

	return vectorIDs, nil
}

func (s *IngestionService) run(ctx context.Context, doc *domain.Document) ([]string, error) {
	// Reject undeclared types before touching the blob store or the index.
	if !domain.IsSupportedFileType(doc.FileType) {
		return nil, domain.ErrUnsupportedFileType
	}

	data, err := s.blobs.GetObject(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %d bytes: %w", doc.ID, err)
	}

	candidates, err := s.extractor.Extract(doc.FileType, data)
	if err != nil {
		return nil, err
	}
	telemetry.AddBreadcrumb(ctx, "ingest", fmt.Sprintf("extracted %d candidates from document %d", len(candidates), doc.ID))

	chunks := s.buildChunks(doc, candidates)
	if len(chunks) == 0 {
		// Nothing extractable is a successful run with zero vectors.
		return []string{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := s.embedding.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, domain.NewProviderError("embedding", err)
	}

	entries := make([]domain.VectorEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.VectorEntry{
			Embedding: embeddings[i],
			Payload:   s.buildPayload(doc, c),
		}
	}

	vectorIDs, err := s.index.Upsert(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to store vectors for document %d: %w", doc.ID, err)
	}
	telemetry.AddBreadcrumb(ctx, "ingest", fmt.Sprintf("stored %d vectors for document %d", len(vectorIDs), doc.ID))

	return vectorIDs, nil
}

// buildChunks applies the overlapping-window chunker to every extracted
// candidate, carrying page numbers through to the sub-chunks.
func (s *IngestionService) buildChunks(doc *domain.Document, candidates []extract.Candidate) []domain.Chunk {
	var chunks []domain.Chunk
	for _, candidate := range candidates {
		for _, content := range chunkText(candidate.Content, s.chunkCfg) {
			chunks = append(chunks, domain.Chunk{
				DocumentID: doc.ID,
				Content:    content,
				Page:       candidate.Page,
			})
		}
	}
	return chunks
}

func (s *IngestionService) buildPayload(doc *domain.Document, c domain.Chunk) map[string]any {
	payload := make(map[string]any, len(doc.Metadata)+6)
	for k, v := range doc.Metadata {
		payload[k] = v
	}
	payload[domain.PayloadKeyContent] = c.Content
	payload[domain.PayloadKeyBrainID] = doc.BrainID
	payload[domain.PayloadKeyDocumentID] = doc.ID
	payload[domain.PayloadKeyFileType] = string(doc.FileType)
	payload["original_filename"] = doc.OriginalFilename
	if c.Page != nil {
		payload[domain.PayloadKeyPage] = *c.Page
	}
	return payload
}
