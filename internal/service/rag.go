package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aura-systems/aura/internal/domain"
	"github.com/aura-systems/aura/internal/telemetry"
)

const (
	defaultScoreThreshold = 0.7
	defaultMaxContextDocs = 5
	maxHistoryTurns       = 10
	sourcePreviewChars    = 200

	// groundingPrompt instructs the model to answer only from retrieved
	// context and to say so when context is insufficient.
	groundingPrompt = "You are a helpful AI assistant that answers questions based on the provided context. " +
		"Always base your answers on the context provided. If the context doesn't contain " +
		"relevant information, politely say so. Be concise and accurate."

	defaultSessionTitle = "New Chat"
)

// GenerationClient defines the interface for the generation provider
type GenerationClient interface {
	GenerateCompletion(ctx context.Context, turns []domain.ChatTurn, temperature float32, maxTokens int) (string, error)
	GenerateTitle(ctx context.Context, firstMessage string) (string, error)
}

// RAGConfig tunes retrieval and generation.
type RAGConfig struct {
	ScoreThreshold float32
	MaxContextDocs int
	Temperature    float32
	MaxTokens      int
}

// DefaultRAGConfig provides the stock retrieval/generation knobs.
func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		ScoreThreshold: defaultScoreThreshold,
		MaxContextDocs: defaultMaxContextDocs,
		Temperature:    0.7,
		MaxTokens:      2000,
	}
}

// Answer is the outcome of one retrieval-augmented generation run.
type Answer struct {
	Text        string
	Sources     []domain.Source
	UsedContext bool
}

// RAGService answers questions against a single brain by retrieving relevant
// chunks and conditioning the generation model on them.
type RAGService struct {
	embedding  EmbeddingClient
	generation GenerationClient
	index      VectorIndex
	cfg        RAGConfig
}

// NewRAGService creates a new RAGService instance
func NewRAGService(embedding EmbeddingClient, generation GenerationClient, index VectorIndex, cfg RAGConfig) *RAGService {
	if cfg.MaxContextDocs <= 0 {
		cfg.MaxContextDocs = defaultMaxContextDocs
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = defaultScoreThreshold
	}
	return &RAGService{
		embedding:  embedding,
		generation: generation,
		index:      index,
		cfg:        cfg,
	}
}

// Answer embeds the query, searches the brain's vectors, and generates a
// grounded answer. Zero retrieval hits is not an error; it is reported via
// UsedContext so the caller can distinguish grounded from ungrounded answers.
func (s *RAGService) Answer(ctx context.Context, query string, brainID int64, history []domain.ChatTurn, maxContextDocs int) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query cannot be empty")
	}
	if maxContextDocs <= 0 {
		maxContextDocs = s.cfg.MaxContextDocs
	}

	ctx, span := telemetry.StartSpan(ctx, "RAGService.Answer", telemetry.SpanAttributes{
		BrainID:   brainID,
		Operation: "answer",
	})
	defer span.End()

	queryEmbedding, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewProviderError("embedding", err)
	}

	matches, err := s.index.Search(ctx, queryEmbedding, brainID, maxContextDocs, s.cfg.ScoreThreshold)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	contextParts := make([]string, 0, len(matches))
	sources := make([]domain.Source, 0, len(matches))
	for _, match := range matches {
		source := sourceFromMatch(match)
		contextParts = append(contextParts, payloadString(match.Payload, domain.PayloadKeyContent))
		sources = append(sources, source)
	}

	turns := s.buildTurns(query, strings.Join(contextParts, "\n\n"), history)

	answer, err := s.generation.GenerateCompletion(ctx, turns, s.cfg.Temperature, s.cfg.MaxTokens)
	if err != nil {
		return nil, domain.NewProviderError("generation", err)
	}

	return &Answer{
		Text:        answer,
		Sources:     sources,
		UsedContext: len(matches) > 0,
	}, nil
}

// Retrieve performs retrieval only, returning scored sources without
// invoking the generation model.
func (s *RAGService) Retrieve(ctx context.Context, query string, brainID int64, limit int) ([]domain.Source, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.Source{}, nil
	}
	if limit <= 0 {
		limit = s.cfg.MaxContextDocs
	}

	queryEmbedding, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewProviderError("embedding", err)
	}

	matches, err := s.index.Search(ctx, queryEmbedding, brainID, limit, s.cfg.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	sources := make([]domain.Source, 0, len(matches))
	for _, match := range matches {
		sources = append(sources, sourceFromMatch(match))
	}
	return sources, nil
}

// Title generates a short session title from the first user message. Title
// generation must never block session creation, so any provider failure
// falls back to the default title.
func (s *RAGService) Title(ctx context.Context, firstMessage string) string {
	title, err := s.generation.GenerateTitle(ctx, firstMessage)
	if err != nil {
		return defaultSessionTitle
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return defaultSessionTitle
	}
	return title
}

// buildTurns composes the provider message sequence: the grounding system
// prompt, up to the last ten history turns, then the context block followed
// by the literal question.
func (s *RAGService) buildTurns(query, contextBlock string, history []domain.ChatTurn) []domain.ChatTurn {
	turns := make([]domain.ChatTurn, 0, len(history)+2)
	turns = append(turns, domain.ChatTurn{Role: domain.ChatRoleSystem, Content: groundingPrompt})

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	turns = append(turns, history...)

	turns = append(turns, domain.ChatTurn{
		Role:    domain.ChatRoleUser,
		Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, query),
	})
	return turns
}

func sourceFromMatch(match domain.VectorMatch) domain.Source {
	source := domain.Source{
		DocumentID: payloadInt64(match.Payload, domain.PayloadKeyDocumentID),
		Content:    previewContent(payloadString(match.Payload, domain.PayloadKeyContent)),
		Score:      match.Score,
		FileType:   domain.FileType(payloadString(match.Payload, domain.PayloadKeyFileType)),
	}
	if page, ok := payloadIntOptional(match.Payload, domain.PayloadKeyPage); ok {
		source.Page = &page
	}
	return source
}

func previewContent(content string) string {
	runes := []rune(content)
	if len(runes) <= sourcePreviewChars {
		return content
	}
	return string(runes[:sourcePreviewChars]) + "..."
}

func payloadString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

// payloadInt64 reads an integer payload value. JSON round trips deliver
// numbers as float64, so both representations are accepted.
func payloadInt64(payload map[string]any, key string) int64 {
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

func payloadIntOptional(payload map[string]any, key string) (int, bool) {
	switch v := payload[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
