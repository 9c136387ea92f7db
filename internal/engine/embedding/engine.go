// Package embedding turns text into vectors for the semantic retriever.
// Two backends are supported: Google GenAI (cloud) and Ollama (local).
package embedding

import (
	"context"
	"fmt"

	"astrogeo/internal/common/config"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of the vectors.
	Dimensions() int

	// Name identifies the backend and model.
	Name() string
}

// NewEngine builds the configured backend. A failure here is a startup
// configuration failure; callers degrade the retriever rather than
// aborting the process.
func NewEngine(cfg config.EmbeddingConfig) (Engine, error) {
	switch cfg.Provider {
	case "genai":
		return NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel)
	case "ollama", "":
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'genai' or 'ollama')", cfg.Provider)
	}
}
