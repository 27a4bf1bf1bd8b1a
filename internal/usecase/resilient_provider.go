package usecase

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/domain/repository"
	"mcp-gateway/internal/logging"
)

// ResilientProvider wraps a primary generation backend with retries and an
// optional fallback backend, all bounded by one timeout.
type ResilientProvider struct {
	primary    repository.AIProvider
	fallback   repository.AIProvider // may be nil
	maxRetries int
	baseDelay  time.Duration
	timeout    time.Duration
}

type ResilientOption func(*ResilientProvider)

func WithMaxRetries(n int) ResilientOption {
	return func(r *ResilientProvider) {
		r.maxRetries = n
	}
}

func WithBaseDelay(d time.Duration) ResilientOption {
	return func(r *ResilientProvider) {
		r.baseDelay = d
	}
}

func WithTimeout(d time.Duration) ResilientOption {
	return func(r *ResilientProvider) {
		r.timeout = d
	}
}

func NewResilientProvider(primary, fallback repository.AIProvider, opts ...ResilientOption) *ResilientProvider {
	r := &ResilientProvider{
		primary:    primary,
		fallback:   fallback,
		maxRetries: 2, // 3 attempts on the primary
		baseDelay:  500 * time.Millisecond,
		timeout:    25 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ResilientProvider) Generate(ctx context.Context, query string, fetched entity.Context) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.executeWithRetry(ctx, r.primary, query, fetched)
	if err == nil {
		return text, nil
	}
	if r.fallback == nil || ctx.Err() != nil {
		return "", err
	}

	logging.From(ctx).Warn("primary generator exhausted, switching to fallback", "error", err)

	text, fallbackErr := r.fallback.Generate(ctx, query, fetched)
	if fallbackErr != nil {
		return "", goerr.Wrap(fallbackErr, "both primary and fallback failed", goerr.V("primary_error", err.Error()))
	}
	return text, nil
}

func (r *ResilientProvider) executeWithRetry(ctx context.Context, p repository.AIProvider, query string, fetched entity.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		text, err := p.Generate(ctx, query, fetched)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == r.maxRetries {
			break
		}

		wait := r.calculateBackoff(attempt)
		logging.From(ctx).Debug("retrying generation", "attempt", attempt+1, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			continue
		case <-ctx.Done():
			timer.Stop()
			return "", goerr.Wrap(ctx.Err(), "generation cancelled while backing off", goerr.V("last_error", lastErr.Error()))
		}
	}
	return "", lastErr
}

// isRetryable matches rate limits, server errors and deadline hits reported
// by the backend.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "deadline")
}

func (r *ResilientProvider) calculateBackoff(attempt int) time.Duration {
	backoff := float64(r.baseDelay) * float64(int(1)<<attempt)
	jitter := (rand.Float64() * 0.2) * backoff // 20% jitter
	return time.Duration(backoff + jitter)
}
