package client

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/valyala/fasthttp"
	"mcp-gateway/internal/domain/entity"
)

// HTTPContextProvider fetches context from a remote service with
// POST {baseURL}/context and body {"query", "max_results"}.
type HTTPContextProvider struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
}

func NewHTTPContextProvider(baseURL, apiKey string) *HTTPContextProvider {
	return &HTTPContextProvider{
		client: &fasthttp.Client{
			Name:                "mcp-gateway",
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 90 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type contextRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func (p *HTTPContextProvider) FetchContext(ctx context.Context, query string, maxResults int) (entity.Context, error) {
	body, err := json.Marshal(contextRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal context request")
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	url := p.baseURL + "/context"
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	req.SetBody(body)

	if err := p.do(ctx, req, resp); err != nil {
		return nil, goerr.Wrap(err, "context request failed", goerr.V("url", url))
	}

	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return nil, goerr.New("context provider returned non-success status",
			goerr.V("url", url),
			goerr.V("status", status),
			goerr.V("body", truncate(string(resp.Body()), 512)))
	}

	var fetched entity.Context
	if err := json.Unmarshal(resp.Body(), &fetched); err != nil {
		return nil, goerr.Wrap(err, "malformed context payload", goerr.V("url", url))
	}
	if fetched == nil {
		return nil, goerr.New("context payload is not a JSON object", goerr.V("url", url))
	}
	return fetched, nil
}

// do bounds the request by ctx's deadline. Without one it falls back to a
// plain Do and relies on the caller's timeout.
func (p *HTTPContextProvider) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		return p.client.DoDeadline(req, resp, deadline)
	}
	return p.client.Do(req, resp)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
