package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/aura-systems/aura/internal/domain"
)

// VectorEntryRepository is the pgvector-backed vector index. One table holds
// every entry; cosine distance orders searches and the brain id column is a
// mandatory filter on every query.
type VectorEntryRepository struct {
	db dbtx
}

func NewVectorEntryRepository(pool *pgxpool.Pool) *VectorEntryRepository {
	return &VectorEntryRepository{db: pool}
}

func NewVectorEntryRepositoryWithTx(tx pgx.Tx) *VectorEntryRepository {
	return &VectorEntryRepository{db: tx}
}

// Upsert writes one row per entry and returns the assigned ids in input
// order. Repeated calls create new entries; callers delete stale sets first.
func (r *VectorEntryRepository) Upsert(ctx context.Context, entries []domain.VectorEntry) ([]string, error) {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		id := entry.ID
		if id == "" {
			id = uuid.NewString()
		}

		brainID := payloadColumnInt64(entry.Payload, domain.PayloadKeyBrainID)
		documentID := payloadColumnInt64(entry.Payload, domain.PayloadKeyDocumentID)
		content, _ := entry.Payload[domain.PayloadKeyContent].(string)
		fileType, _ := entry.Payload[domain.PayloadKeyFileType].(string)

		var page *int64
		if v, ok := entry.Payload[domain.PayloadKeyPage]; ok {
			p := payloadColumnInt64(map[string]any{"p": v}, "p")
			page = &p
		}

		metadata := make(map[string]any)
		for k, v := range entry.Payload {
			switch k {
			case domain.PayloadKeyContent, domain.PayloadKeyBrainID, domain.PayloadKeyDocumentID,
				domain.PayloadKeyFileType, domain.PayloadKeyPage:
			default:
				metadata[k] = v
			}
		}

		_, err := r.db.Exec(ctx,
			`INSERT INTO vector_entries (id, brain_id, document_id, content, file_type, page, metadata, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
			id, brainID, documentID, content, nullableString(fileType), page, metadata, pgvector.NewVector(entry.Embedding),
		)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Search returns the brain's entries nearest to the query vector, best
// first, dropping anything below the score threshold. The brain filter is
// applied in SQL; results can never cross a brain boundary.
func (r *VectorEntryRepository) Search(ctx context.Context, vector []float32, brainID int64, limit int, scoreThreshold float32) ([]domain.VectorMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(vector)

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, content, file_type, page, metadata,
		        1 - (embedding <=> $1) AS score
		 FROM vector_entries
		 WHERE brain_id = $2
		   AND 1 - (embedding <=> $1) >= $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		vec, brainID, scoreThreshold, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]domain.VectorMatch, 0, limit)
	for rows.Next() {
		var (
			id         string
			documentID int64
			content    string
			fileType   *string
			page       *int64
			metadata   map[string]any
			score      float64
		)
		if err := rows.Scan(&id, &documentID, &content, &fileType, &page, &metadata, &score); err != nil {
			return nil, err
		}

		payload := make(map[string]any, len(metadata)+5)
		for k, v := range metadata {
			payload[k] = v
		}
		payload[domain.PayloadKeyContent] = content
		payload[domain.PayloadKeyBrainID] = brainID
		payload[domain.PayloadKeyDocumentID] = documentID
		if fileType != nil {
			payload[domain.PayloadKeyFileType] = *fileType
		}
		if page != nil {
			payload[domain.PayloadKeyPage] = int(*page)
		}

		matches = append(matches, domain.VectorMatch{
			ID:      id,
			Score:   float32(score),
			Payload: payload,
		})
	}

	return matches, rows.Err()
}

// DeleteByDocument removes every entry written for one document.
func (r *VectorEntryRepository) DeleteByDocument(ctx context.Context, documentID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM vector_entries WHERE document_id = $1`, documentID)
	return err
}

// DeleteByBrain removes every entry belonging to one brain.
func (r *VectorEntryRepository) DeleteByBrain(ctx context.Context, brainID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM vector_entries WHERE brain_id = $1`, brainID)
	return err
}

func payloadColumnInt64(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
