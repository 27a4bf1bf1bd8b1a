package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"mcp-gateway/internal/usecase"
)

func TestResilientProvider_RetriesTransientErrors(t *testing.T) {
	primary := new(MockAIProvider)
	primary.On("Generate", mock.Anything, "q", mock.Anything).Return("", errors.New("503 service unavailable")).Twice()
	primary.On("Generate", mock.Anything, "q", mock.Anything).Return("ok", nil).Once()

	p := usecase.NewResilientProvider(primary, nil, usecase.WithBaseDelay(time.Millisecond))
	out, err := p.Generate(context.Background(), "q", nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	primary.AssertNumberOfCalls(t, "Generate", 3)
}

func TestResilientProvider_NonRetryableSkipsToFallback(t *testing.T) {
	primary := new(MockAIProvider)
	fallback := new(MockAIProvider)
	primary.On("Generate", mock.Anything, "q", mock.Anything).Return("", errors.New("invalid argument"))
	fallback.On("Generate", mock.Anything, "q", mock.Anything).Return("from fallback", nil)

	p := usecase.NewResilientProvider(primary, fallback, usecase.WithBaseDelay(time.Millisecond))
	out, err := p.Generate(context.Background(), "q", nil)

	require.NoError(t, err)
	assert.Equal(t, "from fallback", out)
	primary.AssertNumberOfCalls(t, "Generate", 1)
	fallback.AssertNumberOfCalls(t, "Generate", 1)
}

func TestResilientProvider_BothFail(t *testing.T) {
	primary := new(MockAIProvider)
	fallback := new(MockAIProvider)
	primary.On("Generate", mock.Anything, "q", mock.Anything).Return("", errors.New("429 too many requests"))
	fallback.On("Generate", mock.Anything, "q", mock.Anything).Return("", errors.New("fallback down"))

	p := usecase.NewResilientProvider(primary, fallback,
		usecase.WithBaseDelay(time.Millisecond),
		usecase.WithMaxRetries(1),
	)
	_, err := p.Generate(context.Background(), "q", nil)

	assert.ErrorContains(t, err, "fallback down")
	primary.AssertNumberOfCalls(t, "Generate", 2)
}

func TestResilientProvider_TimeoutStopsBackoff(t *testing.T) {
	primary := new(MockAIProvider)
	fallback := new(MockAIProvider)
	primary.On("Generate", mock.Anything, "q", mock.Anything).Return("", errors.New("500 internal"))

	p := usecase.NewResilientProvider(primary, fallback,
		usecase.WithBaseDelay(time.Second),
		usecase.WithTimeout(50*time.Millisecond),
	)

	start := time.Now()
	_, err := p.Generate(context.Background(), "q", nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	fallback.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}
