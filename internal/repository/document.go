package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-systems/aura/internal/domain"
)

// DocumentRepository handles persistence of uploaded documents.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) (int64, error) {
	// vector_ids, metadata, and processing_error are NOT NULL; nil slices
	// and maps must insert as empty values, never as SQL NULL.
	vectorIDs := d.VectorIDs
	if vectorIDs == nil {
		vectorIDs = []string{}
	}
	metadata := d.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO documents
			(brain_id, filename, original_filename, file_type, storage_key, file_size, status, vector_ids, metadata, processing_error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		d.BrainID, d.Filename, d.OriginalFilename, d.FileType, d.StorageKey, d.FileSize,
		d.Status, vectorIDs, metadata, d.ProcessingError, d.CreatedAt, d.UpdatedAt,
	).Scan(&id)
	return id, err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	var d domain.Document
	var processingError *string
	err := r.db.QueryRow(ctx,
		`SELECT id, brain_id, filename, original_filename, file_type, storage_key, file_size, status, vector_ids, metadata, processing_error, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.BrainID, &d.Filename, &d.OriginalFilename, &d.FileType, &d.StorageKey, &d.FileSize,
		&d.Status, &d.VectorIDs, &d.Metadata, &processingError, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if processingError != nil {
		d.ProcessingError = *processingError
	}
	return &d, nil
}

func (r *DocumentRepository) ListByBrain(ctx context.Context, brainID int64) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, brain_id, filename, original_filename, file_type, storage_key, file_size, status, vector_ids, metadata, processing_error, created_at, updated_at
		 FROM documents
		 WHERE brain_id = $1
		 ORDER BY created_at DESC`,
		brainID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	documents := make([]*domain.Document, 0)
	for rows.Next() {
		var d domain.Document
		var processingError *string
		if err := rows.Scan(&d.ID, &d.BrainID, &d.Filename, &d.OriginalFilename, &d.FileType, &d.StorageKey, &d.FileSize,
			&d.Status, &d.VectorIDs, &d.Metadata, &processingError, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if processingError != nil {
			d.ProcessingError = *processingError
		}
		documents = append(documents, &d)
	}

	return documents, rows.Err()
}

// ClaimPending stamps up to limit pending documents as claimed and returns
// them. Documents stay pending while ingesting; the claim stamp plus SKIP
// LOCKED keeps concurrent workers off the same rows, and a stale stamp
// (crashed worker) expires after ten minutes.
func (r *DocumentRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM documents
			 WHERE status = $1
			   AND (claimed_at IS NULL OR claimed_at < NOW() - INTERVAL '10 minutes')
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE documents
		 SET claimed_at = NOW()
		 FROM cte
		 WHERE documents.id = cte.id
		 RETURNING documents.id, documents.brain_id, documents.filename, documents.original_filename,
		           documents.file_type, documents.storage_key, documents.file_size, documents.status,
		           documents.vector_ids, documents.metadata, documents.processing_error,
		           documents.created_at, documents.updated_at`,
		domain.DocumentStatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*domain.Document
	for rows.Next() {
		var d domain.Document
		var processingError *string
		if err := rows.Scan(&d.ID, &d.BrainID, &d.Filename, &d.OriginalFilename, &d.FileType, &d.StorageKey, &d.FileSize,
			&d.Status, &d.VectorIDs, &d.Metadata, &processingError, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if processingError != nil {
			d.ProcessingError = *processingError
		}
		documents = append(documents, &d)
	}

	return documents, rows.Err()
}

// MarkProcessed records a successful ingestion. Only a pending document can
// become processed; the status guard in SQL enforces the monotonic
// transition even under concurrent writers.
func (r *DocumentRepository) MarkProcessed(ctx context.Context, id int64, vectorIDs []string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, vector_ids = $2, processing_error = '', claimed_at = NULL, updated_at = $3
		 WHERE id = $4 AND status = $5`,
		domain.DocumentStatusProcessed, vectorIDs, time.Now().UTC(), id, domain.DocumentStatusPending,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// MarkFailed records a failed ingestion with a human-readable message.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id int64, message string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, processing_error = $2, claimed_at = NULL, updated_at = $3
		 WHERE id = $4 AND status = $5`,
		domain.DocumentStatusFailed, message, time.Now().UTC(), id, domain.DocumentStatusPending,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// ResetForReprocess is the only path back to pending; it clears the previous
// run's vector ids and error.
func (r *DocumentRepository) ResetForReprocess(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, vector_ids = '[]', processing_error = '', claimed_at = NULL, updated_at = $2
		 WHERE id = $3`,
		domain.DocumentStatusPending, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
