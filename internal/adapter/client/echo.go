package client

import (
	"context"

	"mcp-gateway/internal/domain/entity"
)

// EchoGenerator is the placeholder backend: it echoes the query and ignores
// the context.
type EchoGenerator struct{}

func NewEchoGenerator() *EchoGenerator {
	return &EchoGenerator{}
}

func (EchoGenerator) Generate(ctx context.Context, query string, fetched entity.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "Processed message: " + query, nil
}
