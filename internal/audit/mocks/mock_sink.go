package mocks

import (
	"context"

	"certdocs/internal/audit"

	"github.com/stretchr/testify/mock"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Record(ctx context.Context, e audit.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
