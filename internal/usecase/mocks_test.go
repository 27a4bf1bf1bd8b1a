package usecase_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"mcp-gateway/internal/domain/entity"
)

type MockContextProvider struct {
	mock.Mock
}

func (m *MockContextProvider) FetchContext(ctx context.Context, query string, maxResults int) (entity.Context, error) {
	args := m.Called(ctx, query, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entity.Context), args.Error(1)
}

type MockAIProvider struct {
	mock.Mock
}

func (m *MockAIProvider) Generate(ctx context.Context, query string, fetched entity.Context) (string, error) {
	args := m.Called(ctx, query, fetched)
	return args.String(0), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, userID, message, response string, fetched entity.Context) bool {
	args := m.Called(ctx, userID, message, response, fetched)
	return args.Bool(0)
}

type MockInteractionStore struct {
	mock.Mock
}

func (m *MockInteractionStore) SaveInteraction(ctx context.Context, interaction *entity.Interaction) error {
	return m.Called(ctx, interaction).Error(0)
}

func (m *MockInteractionStore) Close() error {
	return m.Called().Error(0)
}
