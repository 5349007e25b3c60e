// Package vectorstore provides the Qdrant-backed vector index. It is a
// minimal REST client; the default deployment uses the pgvector index in
// the repository package instead.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aura-systems/aura/internal/domain"
)

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// QdrantIndex talks to a Qdrant collection over its REST API. It assumes
// cosine distance and creates the collection on first use if missing.
type QdrantIndex struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

func NewQdrantIndex(cfg QdrantConfig) *QdrantIndex {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantIndex{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if it does not exist. Qdrant
// returns 200 when the collection already exists with the same schema.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid dimensions %d", dimensions)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	return q.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", q.url, q.collection), body, nil)
}

func (q *QdrantIndex) Upsert(ctx context.Context, entries []domain.VectorEntry) ([]string, error) {
	ids := make([]string, len(entries))
	points := make([]map[string]any, len(entries))
	for i, entry := range entries {
		id := entry.ID
		if id == "" {
			id = uuid.NewString()
		}
		ids[i] = id
		points[i] = map[string]any{
			"id":      id,
			"vector":  entry.Embedding,
			"payload": entry.Payload,
		}
	}

	body := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, q.collection)
	if err := q.doJSON(ctx, http.MethodPut, url, body, nil); err != nil {
		return nil, err
	}
	return ids, nil
}

func (q *QdrantIndex) Search(ctx context.Context, vector []float32, brainID int64, limit int, scoreThreshold float32) ([]domain.VectorMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": domain.PayloadKeyBrainID, "match": map[string]any{"value": brainID}},
			},
		},
	}

	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", q.url, q.collection)
	if err := q.doJSON(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}

	matches := make([]domain.VectorMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		matches = append(matches, domain.VectorMatch{
			ID:      r.ID,
			Score:   float32(r.Score),
			Payload: r.Payload,
		})
	}
	return matches, nil
}

func (q *QdrantIndex) DeleteByDocument(ctx context.Context, documentID int64) error {
	return q.deleteByFilter(ctx, domain.PayloadKeyDocumentID, documentID)
}

func (q *QdrantIndex) DeleteByBrain(ctx context.Context, brainID int64) error {
	return q.deleteByFilter(ctx, domain.PayloadKeyBrainID, brainID)
}

func (q *QdrantIndex) deleteByFilter(ctx context.Context, key string, value int64) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": key, "match": map[string]any{"value": value}},
			},
		},
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", q.url, q.collection)
	return q.doJSON(ctx, http.MethodPost, url, body, nil)
}

func (q *QdrantIndex) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
