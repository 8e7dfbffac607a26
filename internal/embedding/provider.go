// Package embedding maps text to fixed-length vectors through a swappable
// provider backend.
package embedding

import "context"

// Provider generates embeddings for batches of text. Implementations must be
// safe for concurrent use; a single provider handle is shared by all
// requests.
type Provider interface {
	// EmbedBatch returns one vector per input text, order-preserving. A
	// provider-level failure fails the whole batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the output vector length for the active model. Stable
	// for the lifetime of the provider.
	Dimension() int
}

// DefaultDimensions maps known embedding models to their output
// dimensionality.
var DefaultDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"all-minilm":             384,
}

// DimensionFor returns the known dimensionality for a model, or fallback if
// the model is not recognized.
func DimensionFor(model string, fallback int) int {
	if dim, ok := DefaultDimensions[model]; ok {
		return dim
	}
	return fallback
}
