package usecase

import (
	"context"
	"maps"
	"time"

	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/domain/repository"
	"mcp-gateway/internal/logging"
)

// Generator calls the generation backend and reports its failures as
// GENERATION_ERROR so they are never confused with context failures.
type Generator struct {
	provider repository.AIProvider
	timeout  time.Duration
}

func NewGenerator(provider repository.AIProvider, timeout time.Duration) *Generator {
	return &Generator{provider: provider, timeout: timeout}
}

func (g *Generator) Generate(ctx context.Context, query string, fetched entity.Context) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	// The backend gets its own top-level copy; the caller's map is returned
	// to the client as-is.
	text, err := g.provider.Generate(ctx, query, maps.Clone(fetched))
	if err != nil {
		logging.From(ctx).Warn("generation failed", "error", err)
		return "", entity.NewGenerationError(err)
	}
	return text, nil
}
