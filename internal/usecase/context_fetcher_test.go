package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/usecase"
)

func TestContextFetcher_Success(t *testing.T) {
	provider := new(MockContextProvider)
	provider.On("FetchContext", mock.Anything, "q", 5).Return(entity.Context{"results": []any{}}, nil)

	fetched, err := usecase.NewContextFetcher(provider, 5, time.Second).Fetch(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, entity.Context{"results": []any{}}, fetched)
	provider.AssertExpectations(t)
}

func TestContextFetcher_NilBecomesEmpty(t *testing.T) {
	provider := new(MockContextProvider)
	provider.On("FetchContext", mock.Anything, "q", 3).Return(nil, nil)

	fetched, err := usecase.NewContextFetcher(provider, 3, 0).Fetch(context.Background(), "q")
	require.NoError(t, err)
	assert.NotNil(t, fetched)
	assert.Empty(t, fetched)
}

func TestContextFetcher_ErrorIsNormalized(t *testing.T) {
	provider := new(MockContextProvider)
	provider.On("FetchContext", mock.Anything, "q", 5).Return(nil, errors.New("connection refused"))

	_, err := usecase.NewContextFetcher(provider, 5, time.Second).Fetch(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, entity.CodeContextFetchError, entity.CodeOf(err))

	gwErr, _ := entity.AsGatewayError(err)
	assert.Contains(t, gwErr.Message, "connection refused")
	assert.NotEmpty(t, gwErr.Details["timestamp"])
	provider.AssertNumberOfCalls(t, "FetchContext", 1)
}

func TestContextFetcher_AppliesTimeout(t *testing.T) {
	provider := new(MockContextProvider)
	provider.On("FetchContext", mock.Anything, "slow", 5).
		Return(nil, context.DeadlineExceeded).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok, "provider must receive a deadline")
			<-ctx.Done()
		})

	start := time.Now()
	_, err := usecase.NewContextFetcher(provider, 5, 50*time.Millisecond).Fetch(context.Background(), "slow")
	assert.Equal(t, entity.CodeContextFetchError, entity.CodeOf(err))
	assert.Less(t, time.Since(start), time.Second)
}
