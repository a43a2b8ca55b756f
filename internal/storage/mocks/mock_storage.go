package mocks

import (
	"context"
	"io"
	"time"

	"certdocs/internal/model"
	"certdocs/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Put(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions, by model.Actor) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, r, opt, by)
	if f, ok := args.Get(0).(func(context.Context, string, io.Reader, storage.PutObjectOptions, model.Actor) storage.ObjectInfo); ok {
		return f(ctx, key, r, opt, by), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockStorage) Get(ctx context.Context, key string, by model.Actor) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, key, by)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockStorage) Delete(ctx context.Context, key string, by model.Actor) error {
	args := m.Called(ctx, key, by)
	return args.Error(0)
}

func (m *MockStorage) PresignGet(ctx context.Context, key string, expiry time.Duration, by model.Actor) (string, error) {
	args := m.Called(ctx, key, expiry, by)
	return args.String(0), args.Error(1)
}
