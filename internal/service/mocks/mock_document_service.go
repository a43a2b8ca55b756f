package mocks

import (
	"context"

	"certdocs/internal/model"
	"certdocs/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, applicationID string, category model.Category, file model.File, actor model.Actor) (*model.Document, error) {
	args := m.Called(ctx, applicationID, category, file, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) UploadBatch(ctx context.Context, applicationID string, category model.Category, files []model.File, actor model.Actor) (*service.BatchResult, error) {
	args := m.Called(ctx, applicationID, category, files, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, applicationID string, actor model.Actor) ([]model.Document, error) {
	args := m.Called(ctx, applicationID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentService) Download(ctx context.Context, documentID string, actor model.Actor) (*service.Download, error) {
	args := m.Called(ctx, documentID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Download), args.Error(1)
}

func (m *MockDocumentService) PresignDownload(ctx context.Context, documentID string, actor model.Actor) (*service.PresignedURL, error) {
	args := m.Called(ctx, documentID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PresignedURL), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, documentID string, actor model.Actor) error {
	args := m.Called(ctx, documentID, actor)
	return args.Error(0)
}

func (m *MockDocumentService) Requirements(ctx context.Context, applicationID string) (*service.Requirements, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Requirements), args.Error(1)
}

func (m *MockDocumentService) Completion(ctx context.Context, applicationID string) (*service.Completion, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Completion), args.Error(1)
}
