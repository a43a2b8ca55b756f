package mocks

import (
	"context"

	"certdocs/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) Get(ctx context.Context, id string) (*model.ApplicationSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApplicationSnapshot), args.Error(1)
}
