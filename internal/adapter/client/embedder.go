package client

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Embedder turns text into vectors of a fixed size so they always fit the
// qdrant collection they are written to.
type Embedder struct {
	client *genai.Client
	model  string // e.g., "text-embedding-004"
	dim    int32
}

// NewEmbedderFromClient requests dim-sized vectors; zero leaves the model default.
func NewEmbedderFromClient(c *genai.Client, model string, dim int32) *Embedder {
	return &Embedder{
		client: c,
		model:  model,
		dim:    dim,
	}
}

func (e *Embedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	var cfg *genai.EmbedContentConfig
	if e.dim > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(e.dim)}
	}

	res, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content", goerr.V("model", e.model))
	}
	if len(res.Embeddings) == 0 {
		return nil, goerr.New("no embeddings returned", goerr.V("model", e.model))
	}

	values := res.Embeddings[0].Values
	if e.dim > 0 && len(values) != int(e.dim) {
		return nil, goerr.New("embedding size mismatch",
			goerr.V("model", e.model),
			goerr.V("expected", e.dim),
			goerr.V("actual", len(values)))
	}
	return values, nil
}
