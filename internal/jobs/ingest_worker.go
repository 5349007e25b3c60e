package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/aura-systems/aura/internal/domain"
)

const (
	// ClaimBatchSize bounds how many documents one tick processes.
	ClaimBatchSize = 5
)

// PendingDocumentRepository claims pending documents for processing.
// Claims use row locking so concurrent workers never pick the same
// document twice.
type PendingDocumentRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.Document, error)
}

// Ingester runs the extract-chunk-embed-store pipeline for one document.
type Ingester interface {
	Ingest(ctx context.Context, doc *domain.Document) ([]string, error)
}

// IngestProcessor claims pending documents and feeds them through the
// ingestion pipeline. Per-document failures are recorded on the document
// row by the pipeline itself and do not stop the batch.
type IngestProcessor struct {
	repo     PendingDocumentRepository
	ingester Ingester
}

func NewIngestProcessor(repo PendingDocumentRepository, ingester Ingester) *IngestProcessor {
	return &IngestProcessor{
		repo:     repo,
		ingester: ingester,
	}
}

// ProcessPending implements the Processor interface
func (p *IngestProcessor) ProcessPending(ctx context.Context) error {
	docs, err := p.repo.ClaimPending(ctx, ClaimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending documents: %w", err)
	}

	if len(docs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending documents", len(docs))

	for _, doc := range docs {
		log.Printf("Ingesting document %d (%s)", doc.ID, doc.OriginalFilename)
		vectorIDs, err := p.ingester.Ingest(ctx, doc)
		if err != nil {
			log.Printf("Error ingesting document %d: %v", doc.ID, err)
			continue
		}
		log.Printf("Document %d ingested successfully (%d vectors)", doc.ID, len(vectorIDs))
	}

	return nil
}
