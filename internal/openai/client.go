package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/aura-systems/aura/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the model used for grounded answer generation
	DefaultChatModel = openai.GPT4TurboPreview
	// DefaultTitleModel is the lower-cost model used for session titles
	DefaultTitleModel = openai.GPT3Dot5Turbo

	maxRetryElapsed = 30 * time.Second
)

var (
	// ErrEmptyInput is returned when no text is given to embed
	ErrEmptyInput = errors.New("input texts cannot be empty")
	// ErrWrongDimensions is returned when an embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// CompletionAPI defines the raw provider calls the client wraps
type CompletionAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	CreateChatCompletion(ctx context.Context, model string, turns []domain.ChatTurn, temperature float32, maxTokens int) (string, error)
}

// Client wraps the OpenAI API with retry, dimension checks, and the model
// configuration for embeddings, generation, and title generation.
type Client struct {
	api        CompletionAPI
	dimensions int
	chatModel  string
	titleModel string
}

type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client:         openai.NewClient(apiKey),
		embeddingModel: model,
	}
}

// CreateEmbeddings calls the OpenAI API to embed a batch of texts. Output
// order matches input order.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		embeddings[i] = item.Embedding
	}
	return embeddings, nil
}

// CreateChatCompletion calls the OpenAI chat API and returns the completion text.
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, model string, turns []domain.ChatTurn, temperature float32, maxTokens int) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string
	TitleModel          string
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	titleModel := cfg.TitleModel
	if titleModel == "" {
		titleModel = DefaultTitleModel
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, openai.EmbeddingModel(cfg.EmbeddingModel)),
		dimensions: dimensions,
		chatModel:  chatModel,
		titleModel: titleModel,
	}
}

// GenerateEmbeddings embeds a batch of texts, preserving input order. Every
// returned vector is validated against the configured dimension.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	var embeddings [][]float32
	err := withRetry(ctx, func() error {
		var callErr error
		embeddings, callErr = c.api.CreateEmbeddings(ctx, texts)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	for i, embedding := range embeddings {
		if len(embedding) != c.dimensions {
			return nil, fmt.Errorf("embedding %d: %w (expected %d, got %d)", i, ErrWrongDimensions, c.dimensions, len(embedding))
		}
	}

	return embeddings, nil
}

// GenerateEmbedding embeds a single text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// GenerateCompletion produces a chat completion from the given turns.
func (c *Client) GenerateCompletion(ctx context.Context, turns []domain.ChatTurn, temperature float32, maxTokens int) (string, error) {
	var completion string
	err := withRetry(ctx, func() error {
		var callErr error
		completion, callErr = c.api.CreateChatCompletion(ctx, c.chatModel, turns, temperature, maxTokens)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	return completion, nil
}

// GenerateTitle produces a short session title via the lower-cost model.
// No retry here: callers fall back to a default title on any failure.
func (c *Client) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	turns := []domain.ChatTurn{
		{
			Role:    domain.ChatRoleSystem,
			Content: "Generate a short, concise title (max 6 words) for this conversation based on the user's message.",
		},
		{Role: domain.ChatRoleUser, Content: firstMessage},
	}
	return c.api.CreateChatCompletion(ctx, c.titleModel, turns, 0.7, 20)
}

// Dimensions returns the configured embedding dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// withRetry runs op with exponential backoff for transient provider errors.
// Client-side errors (4xx other than 429) are permanent and not retried.
func withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxRetryElapsed

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return true
		}
		return apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	// Network-level failures have no APIError; treat them as transient.
	return true
}
