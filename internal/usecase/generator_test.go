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

func TestGenerator_Success(t *testing.T) {
	provider := new(MockAIProvider)
	fetched := entity.Context{"results": []any{"x"}}
	provider.On("Generate", mock.Anything, "q", fetched).Return("answer", nil)

	out, err := usecase.NewGenerator(provider, time.Second).Generate(context.Background(), "q", fetched)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestGenerator_DoesNotExposeCallerContext(t *testing.T) {
	provider := new(MockAIProvider)
	fetched := entity.Context{"k": "v"}
	provider.On("Generate", mock.Anything, "q", mock.Anything).
		Return("answer", nil).
		Run(func(args mock.Arguments) {
			args.Get(2).(entity.Context)["injected"] = true
		})

	_, err := usecase.NewGenerator(provider, 0).Generate(context.Background(), "q", fetched)
	require.NoError(t, err)
	assert.Equal(t, entity.Context{"k": "v"}, fetched)
}

func TestGenerator_ErrorIsGenerationError(t *testing.T) {
	provider := new(MockAIProvider)
	provider.On("Generate", mock.Anything, "q", mock.Anything).Return("", errors.New("model overloaded"))

	_, err := usecase.NewGenerator(provider, time.Second).Generate(context.Background(), "q", nil)
	require.Error(t, err)
	assert.Equal(t, entity.CodeGenerationError, entity.CodeOf(err))
}
