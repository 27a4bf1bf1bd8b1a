package repository

import (
	"context"
	"mcp-gateway/internal/domain/entity"
)

type RateLimiter interface {
	Admit(clientID string) entity.RateLimitDecision
	Usage(clientID string) int
	Stats() entity.RateLimitStats
}

type ContextProvider interface {
	FetchContext(ctx context.Context, query string, maxResults int) (entity.Context, error)
}

type AIProvider interface {
	Generate(ctx context.Context, query string, fetched entity.Context) (string, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type InteractionStore interface {
	SaveInteraction(ctx context.Context, interaction *entity.Interaction) error
	Close() error
}
