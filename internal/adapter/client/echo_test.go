package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mcp-gateway/internal/adapter/client"
	"mcp-gateway/internal/domain/entity"
)

func TestEchoGenerator(t *testing.T) {
	fetched := entity.Context{"results": []any{"a"}}
	out, err := client.NewEchoGenerator().Generate(context.Background(), "hello", fetched)
	require.NoError(t, err)
	assert.Equal(t, "Processed message: hello", out)
	assert.Equal(t, entity.Context{"results": []any{"a"}}, fetched)
}

func TestEchoGenerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.NewEchoGenerator().Generate(ctx, "hello", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := client.BuildPrompt("where is my order?", entity.Context{"b": 2, "a": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Context:\n{\"a\":\"x\",\"b\":2}\n\nQuery: where is my order?", prompt)

	prompt, err = client.BuildPrompt("hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Query: hi", prompt)
}
