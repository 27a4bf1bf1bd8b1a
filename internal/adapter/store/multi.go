package store

import (
	"context"
	"errors"

	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/domain/repository"
)

// MultiStore fans each interaction out to every configured store. A failing
// store does not stop the others.
type MultiStore struct {
	stores []repository.InteractionStore
}

func NewMultiStore(stores ...repository.InteractionStore) *MultiStore {
	return &MultiStore{stores: stores}
}

func (m *MultiStore) Len() int {
	return len(m.stores)
}

func (m *MultiStore) SaveInteraction(ctx context.Context, interaction *entity.Interaction) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.SaveInteraction(ctx, interaction); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiStore) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
