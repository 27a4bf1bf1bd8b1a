package usecase

import (
	"context"
	"time"

	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/domain/repository"
	"mcp-gateway/internal/logging"
)

// ContextFetcher makes a single, time-bounded call to the context provider.
// Every failure comes back as a CONTEXT_FETCH_ERROR; retries are left to the
// caller.
type ContextFetcher struct {
	provider   repository.ContextProvider
	maxResults int
	timeout    time.Duration
}

func NewContextFetcher(provider repository.ContextProvider, maxResults int, timeout time.Duration) *ContextFetcher {
	return &ContextFetcher{
		provider:   provider,
		maxResults: maxResults,
		timeout:    timeout,
	}
}

func (f *ContextFetcher) Fetch(ctx context.Context, query string) (entity.Context, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	fetched, err := f.provider.FetchContext(ctx, query, f.maxResults)
	if err != nil {
		logging.From(ctx).Warn("context fetch failed", "error", err, "elapsed", time.Since(start))
		return nil, entity.NewContextFetchError(err)
	}
	if fetched == nil {
		fetched = entity.Context{}
	}

	logging.From(ctx).Debug("context fetched", "keys", len(fetched), "elapsed", time.Since(start))
	return fetched, nil
}
