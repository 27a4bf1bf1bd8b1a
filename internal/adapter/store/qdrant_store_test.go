package store_test

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mcp-gateway/internal/adapter/store"
)

// keywordEmbedder maps text onto a tiny vector space so similar prompts land
// next to each other without calling a real model.
type keywordEmbedder struct{}

func (keywordEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v := []float32{0.1, 0.1, 0.1, 0.1}
	for i, kw := range []string{"password", "billing", "refund", "login"} {
		if strings.Contains(text, kw) {
			v[i] = 1
		}
	}
	return v, nil
}

func setupQdrant(t *testing.T) *qdrant.Client {
	host := os.Getenv("TEST_QDRANT_HOST")
	if host == "" {
		t.Skip("TEST_QDRANT_HOST must be set to run Qdrant tests")
	}
	port := 6334
	if p := os.Getenv("TEST_QDRANT_PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		require.NoError(t, err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestQdrantStore_SaveAndFetchContext(t *testing.T) {
	client := setupQdrant(t)
	ctx := context.Background()
	collection := "test_interactions_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		client.DeleteCollection(context.Background(), collection)
	})

	s := store.NewQdrantStore(client, keywordEmbedder{}, collection)
	require.NoError(t, s.InitCollection(ctx, 4))

	interaction := newInteraction(uuid.NewString(), "42", time.Now())
	interaction.Message = "I forgot my password"
	interaction.Response = "Use the reset link"
	require.NoError(t, s.SaveInteraction(ctx, interaction))

	fetched, err := s.FetchContext(ctx, "password reset", 3)
	require.NoError(t, err)

	results, ok := fetched["results"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, results)
	first := results[0].(map[string]any)
	assert.Equal(t, "Use the reset link", first["content"])
	assert.Equal(t, "I forgot my password", first["prompt"])
}
