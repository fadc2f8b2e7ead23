package cmd

import (
	"context"
	"fmt"

	"github.com/medlit/medsearch/internal/config"
	"github.com/medlit/medsearch/internal/embed"
)

// newEmbedder constructs the configured embedding provider.
func newEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	switch cfg.Embeddings.Provider {
	case "static":
		return embed.NewStaticEmbedder(), nil
	case "ollama":
		e, err := embed.NewOllamaEmbedder(ctx, embed.OllamaConfig{
			Host:       cfg.Embeddings.OllamaHost,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
			BatchSize:  cfg.Embeddings.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("ollama embedder unavailable: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Embeddings.Provider)
	}
}
