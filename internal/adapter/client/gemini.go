package client

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
	"mcp-gateway/internal/canonical"
	"mcp-gateway/internal/domain/entity"
)

const systemInstruction = `You are a customer support assistant.
Answer the user's query using the provided context when it is relevant.
If the context does not help, answer from general knowledge and say so briefly.`

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClientFromClient(c *genai.Client, model string) *GeminiClient {
	return &GeminiClient{
		client: c,
		model:  model,
	}
}

func (g *GeminiClient) Generate(ctx context.Context, query string, fetched entity.Context) (string, error) {
	prompt, err := BuildPrompt(query, fetched)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content", goerr.V("model", g.model))
	}

	text := result.Text()
	if text == "" {
		return "", goerr.New("empty response from model", goerr.V("model", g.model))
	}
	return text, nil
}

// BuildPrompt renders the query and the canonical JSON of the fetched context
// into a single prompt. The context map is only read.
func BuildPrompt(query string, fetched entity.Context) (string, error) {
	var b strings.Builder
	if len(fetched) > 0 {
		data, err := canonical.JSON(fetched)
		if err != nil {
			return "", goerr.Wrap(err, "failed to serialize context")
		}
		b.WriteString("Context:\n")
		b.Write(data)
		b.WriteString("\n\n")
	}
	b.WriteString("Query: ")
	b.WriteString(query)
	return b.String(), nil
}
