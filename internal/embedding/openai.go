package embedding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/parchmentlabs/recall/internal/domain"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"
	// DefaultDimension matches DefaultModel's output size.
	DefaultDimension = 1536
	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 30 * time.Second
)

// ErrEmptyBatch is returned when EmbedBatch is called with no texts.
var ErrEmptyBatch = errors.New("embedding batch cannot be empty")

// embeddingAPI is the slice of the go-openai client used here, extracted so
// tests can fake the transport.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Config holds settings for the OpenAI-compatible embedding client. BaseURL
// selects the backend: empty targets the OpenAI API, a local URL (e.g. an
// Ollama /v1 endpoint) selects a local model server speaking the same
// protocol.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration

	// ZeroVectorFallback substitutes a zero vector for texts whose
	// individual embedding fails after a batch failure, instead of failing
	// the whole ingestion. It silently degrades retrieval quality for the
	// affected chunks and is off by default; every substitution is logged.
	ZeroVectorFallback bool
}

// Client is an embedding Provider backed by an OpenAI-compatible API.
type Client struct {
	api          embeddingAPI
	model        openai.EmbeddingModel
	dimension    int
	timeout      time.Duration
	zeroFallback bool
}

// NewClient creates an embedding client from configuration.
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = DimensionFor(model, DefaultDimension)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:          openai.NewClientWithConfig(apiCfg),
		model:        openai.EmbeddingModel(model),
		dimension:    dim,
		timeout:      timeout,
		zeroFallback: cfg.ZeroVectorFallback,
	}
}

// Dimension returns the output vector length for the active model.
func (c *Client) Dimension() int {
	return c.dimension
}

// EmbedBatch embeds all texts in one request, returning vectors in input
// order. The batch fails as a whole unless the zero-vector fallback was
// explicitly enabled.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, domain.NewEmbeddingProviderError(ErrEmptyBatch)
	}
	for i, text := range texts {
		if text == "" {
			return nil, domain.NewEmbeddingProviderError(fmt.Errorf("text at index %d is empty", i))
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewServiceUnavailableError("embedding provider", err)
		}
		if c.zeroFallback {
			return c.embedWithFallback(ctx, texts)
		}
		return nil, domain.NewEmbeddingProviderError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, domain.NewEmbeddingProviderError(
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, domain.NewEmbeddingProviderError(fmt.Errorf("embedding index %d out of range", item.Index))
		}
		if len(item.Embedding) != c.dimension {
			return nil, domain.NewEmbeddingProviderError(
				fmt.Errorf("embedding has %d dimensions, expected %d", len(item.Embedding), c.dimension))
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, domain.NewEmbeddingProviderError(fmt.Errorf("no embedding returned for text %d", i))
		}
	}

	return vectors, nil
}

// embedWithFallback retries texts one at a time, substituting a zero vector
// where an individual embedding fails. Only reachable when
// ZeroVectorFallback is set.
func (c *Client) embedWithFallback(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: c.model,
		})
		cancel()

		if err != nil || len(resp.Data) == 0 || len(resp.Data[0].Embedding) != c.dimension {
			log.Printf("embedding fallback: substituting zero vector for text %d: %v", i, err)
			vectors[i] = make([]float32, c.dimension)
			continue
		}
		vectors[i] = resp.Data[0].Embedding
	}
	return vectors, nil
}
