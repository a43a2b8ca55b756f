package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"certdocs/internal/audit"
	auditMocks "certdocs/internal/audit/mocks"
	"certdocs/internal/logging"
	"certdocs/internal/model"
	"certdocs/internal/repository"
	repoMocks "certdocs/internal/repository/mocks"
	"certdocs/internal/storage"
	storeMocks "certdocs/internal/storage/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	owner    = model.Actor{ID: "owner-1", Email: "owner@example.com", Role: model.RoleApplicant}
	stranger = model.Actor{ID: "other-2", Email: "other@example.com", Role: model.RoleApplicant}
	reviewer = model.Actor{ID: "rev-3", Email: "rev@example.com", Role: model.RoleReviewer}

	fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

func draftApp() *model.ApplicationSnapshot {
	return &model.ApplicationSnapshot{ID: "app-1", OwnerID: owner.ID, Status: model.StatusDraft}
}

func appWithStatus(status model.ApplicationStatus) *model.ApplicationSnapshot {
	a := draftApp()
	a.Status = status
	return a
}

func pdf(name string, content string) model.File {
	return model.File{Name: name, ContentType: "application/pdf", Size: int64(len(content)), Content: strings.NewReader(content)}
}

type mocked struct {
	store   *storeMocks.MockStorage
	docs    *repoMocks.MockDocumentRepository
	apps    *repoMocks.MockApplicationRepository
	sink    *auditMocks.MockSink
	metrics *Metrics
	svc     *documentService
}

func newMocked(t *testing.T, opts ...Option) *mocked {
	t.Helper()
	m := &mocked{
		store: new(storeMocks.MockStorage),
		docs:  new(repoMocks.MockDocumentRepository),
		apps:  new(repoMocks.MockApplicationRepository),
		sink:  new(auditMocks.MockSink),
	}
	reg := prometheus.NewRegistry()
	emitter, err := audit.NewEmitter(m.sink, logging.Discard(), reg)
	require.NoError(t, err)
	m.metrics, err = NewMetrics(reg)
	require.NoError(t, err)

	opts = append([]Option{WithMetrics(m.metrics)}, opts...)
	m.svc = NewDocumentService(m.store, m.docs, m.apps, emitter, opts...).(*documentService)
	m.svc.now = func() time.Time { return fixedNow }
	var seq atomic.Int64
	m.svc.newID = func() string { return fmt.Sprintf("doc-%d", seq.Add(1)) }
	return m
}

func (m *mocked) assertExpectations(t *testing.T) {
	m.store.AssertExpectations(t)
	m.docs.AssertExpectations(t)
	m.apps.AssertExpectations(t)
	m.sink.AssertExpectations(t)
}

func passthrough(doc *model.Document) *model.Document {
	out := *doc
	return &out
}

func eventOfType(typ audit.EventType, subject string) any {
	return mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == typ && e.SubjectID == subject
	})
}

func TestDocumentService_Upload(t *testing.T) {
	tests := []struct {
		name       string
		actor      model.Actor
		category   model.Category
		file       model.File
		setupMocks func(m *mocked)
		wantErr    error
		check      func(t *testing.T, m *mocked, doc *model.Document)
	}{
		{
			name:     "happy path",
			actor:    owner,
			category: model.CategoryIdentity,
			file:     pdf("Passport.PDF", "hello world"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.docs.On("ListByApplication", mock.Anything, "app-1").Return([]model.Document{}, nil)
				m.store.On("Put", mock.Anything, "applications/app-1/identity/doc-1.pdf", mock.Anything, storage.PutObjectOptions{
					Size:        11,
					ContentType: "application/pdf",
					Metadata: map[string]string{
						"original-filename": "Passport.PDF",
						"application-id":    "app-1",
						"category":          "identity",
					},
				}, owner).Return(storage.ObjectInfo{Key: "applications/app-1/identity/doc-1.pdf", Size: 11}, nil)
				m.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
					return d.ID == "doc-1" && d.Category == model.CategoryIdentity && d.UploadedBy == owner.ID
				})).Return(passthrough, nil)
				m.sink.On("Record", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
					return e.Type == audit.DocumentUpload && e.SubjectID == "doc-1" && e.Actor == owner &&
						e.Metadata["category"] == "identity"
				})).Return(nil)
			},
			check: func(t *testing.T, m *mocked, doc *model.Document) {
				assert.Equal(t, "app-1", doc.ApplicationID)
				assert.Equal(t, "applications/app-1/identity/doc-1.pdf", doc.StorageKey)
				assert.Equal(t, "Passport.PDF", doc.OriginalName)
				assert.Equal(t, int64(11), doc.SizeBytes)
				assert.Equal(t, fixedNow, doc.UploadedAt)
				assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.operations.WithLabelValues("upload", "ok")))
			},
		},
		{
			name:     "other category skips duplicate lookup",
			actor:    owner,
			category: model.CategoryOther,
			file:     pdf("notes.pdf", "abc"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(appWithStatus(model.StatusUnderReview), nil)
				m.store.On("Put", mock.Anything, "applications/app-1/other/doc-1.pdf", mock.Anything, mock.Anything, owner).
					Return(storage.ObjectInfo{}, nil)
				m.docs.On("Create", mock.Anything, mock.Anything).Return(passthrough, nil)
				m.sink.On("Record", mock.Anything, eventOfType(audit.DocumentUpload, "doc-1")).Return(nil)
			},
			check: func(t *testing.T, m *mocked, doc *model.Document) {
				m.docs.AssertNotCalled(t, "ListByApplication", mock.Anything, mock.Anything)
				assert.Equal(t, int64(3), doc.SizeBytes)
			},
		},
		{
			name:     "application not found",
			actor:    owner,
			category: model.CategoryIdentity,
			file:     pdf("id.pdf", "x"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(nil, sql.ErrNoRows)
			},
			wantErr: model.ErrNotFound,
		},
		{
			name:     "application lookup fails",
			actor:    owner,
			category: model.CategoryIdentity,
			file:     pdf("id.pdf", "x"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(nil, errors.New("conn refused"))
			},
			wantErr: model.ErrPersistenceUnavailable,
		},
		{
			name:     "non owner denied",
			actor:    stranger,
			category: model.CategoryIdentity,
			file:     pdf("id.pdf", "x"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
			},
			wantErr: model.ErrAccessDenied,
		},
		{
			name:     "reviewer cannot write by default",
			actor:    reviewer,
			category: model.CategoryIdentity,
			file:     pdf("id.pdf", "x"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
			},
			wantErr: model.ErrAccessDenied,
		},
		{
			name:     "submitted application is frozen",
			actor:    owner,
			category: model.CategoryIdentity,
			file:     pdf("id.pdf", "x"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(appWithStatus(model.StatusSubmitted), nil)
			},
			wantErr: model.ErrInvalidState,
		},
		{
			name:     "unknown category is a configuration error",
			actor:    owner,
			category: model.NumCategories,
			file:     pdf("id.pdf", "x"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
			},
			wantErr: model.ErrConfiguration,
		},
		{
			name:     "duplicate category",
			actor:    owner,
			category: model.CategoryIdentity,
			file:     pdf("id.pdf", "x"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.docs.On("ListByApplication", mock.Anything, "app-1").
					Return([]model.Document{{ID: "existing", Category: model.CategoryIdentity}}, nil)
			},
			wantErr: model.ErrDuplicateDocument,
			check: func(t *testing.T, m *mocked, _ *model.Document) {
				m.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:     "oversized file",
			actor:    owner,
			category: model.CategoryIdentity,
			file:     model.File{Name: "id.pdf", ContentType: "application/pdf", Size: 6 << 20, Content: strings.NewReader("x")},
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.docs.On("ListByApplication", mock.Anything, "app-1").Return([]model.Document{}, nil)
			},
			wantErr: model.ErrPolicyViolation,
			check: func(t *testing.T, m *mocked, _ *model.Document) {
				m.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				m.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.policyViolations.WithLabelValues("identity", model.RuleSize)))
			},
		},
		{
			name:     "disallowed media type",
			actor:    owner,
			category: model.CategorySafetyPermit,
			file:     model.File{Name: "permit.pdf", ContentType: "image/png", Size: 10, Content: strings.NewReader("x")},
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.docs.On("ListByApplication", mock.Anything, "app-1").Return([]model.Document{}, nil)
			},
			wantErr: model.ErrPolicyViolation,
			check: func(t *testing.T, m *mocked, _ *model.Document) {
				m.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:     "nil reader",
			actor:    owner,
			category: model.CategoryOther,
			file:     model.File{Name: "a.pdf", ContentType: "application/pdf", Size: 10},
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
			},
			wantErr: ErrReaderNil,
		},
		{
			name:     "storage error",
			actor:    owner,
			category: model.CategoryOther,
			file:     pdf("a.pdf", "hello"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, owner).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErr: model.ErrStorageUnavailable,
			check: func(t *testing.T, m *mocked, _ *model.Document) {
				m.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			},
		},
		{
			name:     "repository error rolls back storage",
			actor:    owner,
			category: model.CategoryOther,
			file:     pdf("a.pdf", "hello"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.store.On("Put", mock.Anything, "applications/app-1/other/doc-1.pdf", mock.Anything, mock.Anything, owner).
					Return(storage.ObjectInfo{Key: "applications/app-1/other/doc-1.pdf"}, nil)
				m.docs.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
				m.store.On("Delete", mock.Anything, "applications/app-1/other/doc-1.pdf", owner).Return(nil)
			},
			wantErr: model.ErrPersistenceUnavailable,
		},
		{
			name:     "unique violation is reported as duplicate",
			actor:    owner,
			category: model.CategoryPropertyDeed,
			file:     pdf("deed.pdf", "hello"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.docs.On("ListByApplication", mock.Anything, "app-1").Return([]model.Document{}, nil)
				m.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, owner).
					Return(storage.ObjectInfo{}, nil)
				m.docs.On("Create", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: uq_documents_application_category", repository.ErrUniqueViolation))
				m.store.On("Delete", mock.Anything, "applications/app-1/property_deed/doc-1.pdf", owner).
					Return(errors.New("rollback fail"))
			},
			wantErr: model.ErrDuplicateDocument,
		},
		{
			name:     "audit failure does not fail the upload",
			actor:    owner,
			category: model.CategoryOther,
			file:     pdf("a.pdf", "hello"),
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, owner).
					Return(storage.ObjectInfo{}, nil)
				m.docs.On("Create", mock.Anything, mock.Anything).Return(passthrough, nil)
				m.sink.On("Record", mock.Anything, mock.Anything).Return(errors.New("audit down"))
			},
			check: func(t *testing.T, m *mocked, doc *model.Document) {
				assert.Equal(t, "doc-1", doc.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocked(t)
			tt.setupMocks(m)

			doc, err := m.svc.Upload(context.Background(), "app-1", tt.category, tt.file, tt.actor)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
				m.sink.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				require.NotNil(t, doc)
			}
			if tt.check != nil {
				tt.check(t, m, doc)
			}
			m.assertExpectations(t)
		})
	}
}

func TestDocumentService_UploadBatch(t *testing.T) {
	t.Run("partial success keeps input order", func(t *testing.T) {
		m := newMocked(t)
		m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
		m.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, owner).Return(storage.ObjectInfo{}, nil)
		m.docs.On("Create", mock.Anything, mock.Anything).Return(passthrough, nil)
		m.sink.On("Record", mock.Anything, mock.MatchedBy(func(e audit.Event) bool { return e.Type == audit.DocumentUpload })).Return(nil)

		files := []model.File{
			pdf("file1.pdf", "one"),
			{Name: "file2.txt", ContentType: "text/plain", Size: 3, Content: strings.NewReader("two")},
			pdf("file3.pdf", "three"),
		}

		res, err := m.svc.UploadBatch(context.Background(), "app-1", model.CategoryOther, files, owner)

		require.NoError(t, err)
		require.Len(t, res.Created, 2)
		assert.Equal(t, "file1.pdf", res.Created[0].OriginalName)
		assert.Equal(t, "file3.pdf", res.Created[1].OriginalName)
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, "file2.txt", res.Skipped[0].Name)
		assert.ErrorIs(t, res.Skipped[0].Err, model.ErrPolicyViolation)
		assert.Contains(t, res.Skipped[0].Reason, "text/plain")
		m.sink.AssertNumberOfCalls(t, "Record", 2)
		m.store.AssertNumberOfCalls(t, "Put", 2)
		m.assertExpectations(t)
	})

	t.Run("single-document category keeps the first file", func(t *testing.T) {
		m := newMocked(t, WithBatchConcurrency(8))
		m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
		m.docs.On("ListByApplication", mock.Anything, "app-1").Return([]model.Document{}, nil).Once()
		m.docs.On("ListByApplication", mock.Anything, "app-1").
			Return([]model.Document{{ID: "doc-1", Category: model.CategoryIdentity}}, nil).Once()
		m.store.On("Put", mock.Anything, "applications/app-1/identity/doc-1.pdf", mock.Anything, mock.Anything, owner).
			Return(storage.ObjectInfo{}, nil).Once()
		m.docs.On("Create", mock.Anything, mock.Anything).Return(passthrough, nil).Once()
		m.sink.On("Record", mock.Anything, eventOfType(audit.DocumentUpload, "doc-1")).Return(nil).Once()

		files := []model.File{pdf("front.pdf", "front"), pdf("back.pdf", "back")}

		res, err := m.svc.UploadBatch(context.Background(), "app-1", model.CategoryIdentity, files, owner)

		require.NoError(t, err)
		require.Len(t, res.Created, 1)
		assert.Equal(t, "front.pdf", res.Created[0].OriginalName)
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, "back.pdf", res.Skipped[0].Name)
		assert.ErrorIs(t, res.Skipped[0].Err, model.ErrDuplicateDocument)
		m.assertExpectations(t)
	})

	t.Run("application level failure fails the call", func(t *testing.T) {
		m := newMocked(t)
		m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)

		res, err := m.svc.UploadBatch(context.Background(), "app-1", model.CategoryOther, []model.File{pdf("a.pdf", "a")}, stranger)

		assert.ErrorIs(t, err, model.ErrAccessDenied)
		assert.Nil(t, res)
		m.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("file without content is skipped by name", func(t *testing.T) {
		m := newMocked(t)
		m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)

		files := []model.File{{Name: "scan.pdf", ContentType: "application/pdf", Size: 10}}

		res, err := m.svc.UploadBatch(context.Background(), "app-1", model.CategoryOther, files, owner)

		require.NoError(t, err)
		assert.Empty(t, res.Created)
		require.Len(t, res.Skipped, 1)
		assert.ErrorIs(t, res.Skipped[0].Err, ErrReaderNil)
		assert.ErrorIs(t, res.Skipped[0].Err, model.ErrPolicyViolation)
		assert.Contains(t, res.Skipped[0].Reason, "other")
		assert.Contains(t, res.Skipped[0].Reason, "scan.pdf")
		m.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty batch", func(t *testing.T) {
		m := newMocked(t)
		m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)

		res, err := m.svc.UploadBatch(context.Background(), "app-1", model.CategoryOther, nil, owner)

		require.NoError(t, err)
		assert.Empty(t, res.Created)
		assert.Empty(t, res.Skipped)
		assert.NotNil(t, res.Created)
		assert.NotNil(t, res.Skipped)
	})
}

func TestDocumentService_List(t *testing.T) {
	older := model.Document{ID: "a", UploadedAt: fixedNow.Add(-time.Hour)}
	newer := model.Document{ID: "b", UploadedAt: fixedNow}

	tests := []struct {
		name       string
		actor      model.Actor
		setupMocks func(m *mocked)
		wantErr    error
		wantIDs    []string
	}{
		{
			name:  "owner sees newest first",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.docs.On("ListByApplication", mock.Anything, "app-1").Return([]model.Document{older, newer}, nil)
			},
			wantIDs: []string{"b", "a"},
		},
		{
			name:  "reviewer may read",
			actor: reviewer,
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(appWithStatus(model.StatusApproved), nil)
				m.docs.On("ListByApplication", mock.Anything, "app-1").Return([]model.Document{newer}, nil)
			},
			wantIDs: []string{"b"},
		},
		{
			name:  "stranger denied",
			actor: stranger,
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
			},
			wantErr: model.ErrAccessDenied,
		},
		{
			name:  "repository error",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.docs.On("ListByApplication", mock.Anything, "app-1").Return(nil, errors.New("db fail"))
			},
			wantErr: model.ErrPersistenceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocked(t)
			tt.setupMocks(m)

			docs, err := m.svc.List(context.Background(), "app-1", tt.actor)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				ids := make([]string, 0, len(docs))
				for _, d := range docs {
					ids = append(ids, d.ID)
				}
				assert.Equal(t, tt.wantIDs, ids)
			}
			m.sink.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
			m.assertExpectations(t)
		})
	}
}

func storedDoc() *model.Document {
	return &model.Document{
		ID:            "doc-9",
		ApplicationID: "app-1",
		Category:      model.CategoryInsuranceCertificate,
		StorageKey:    "applications/app-1/insurance_certificate/doc-9.pdf",
		OriginalName:  "insurance.pdf",
		MimeType:      "application/pdf",
		SizeBytes:     42,
	}
}

func TestDocumentService_Download(t *testing.T) {
	tests := []struct {
		name       string
		actor      model.Actor
		setupMocks func(m *mocked)
		wantErr    error
	}{
		{
			name:  "happy path",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
				m.apps.On("Get", mock.Anything, "app-1").Return(appWithStatus(model.StatusSubmitted), nil)
				m.store.On("Get", mock.Anything, storedDoc().StorageKey, owner).
					Return(io.NopCloser(strings.NewReader("pdf-bytes")), storage.ObjectInfo{Size: 9}, nil)
				m.sink.On("Record", mock.Anything, eventOfType(audit.DocumentDownload, "doc-9")).Return(nil)
			},
		},
		{
			name:  "document not found",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(nil, sql.ErrNoRows)
			},
			wantErr: model.ErrNotFound,
		},
		{
			name:  "stranger denied",
			actor: stranger,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
			},
			wantErr: model.ErrAccessDenied,
		},
		{
			name:  "content missing from storage",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.store.On("Get", mock.Anything, mock.Anything, owner).Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)
			},
			wantErr: model.ErrNotFound,
		},
		{
			name:  "storage unavailable",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.store.On("Get", mock.Anything, mock.Anything, owner).Return(nil, storage.ObjectInfo{}, errors.New("timeout"))
			},
			wantErr: model.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocked(t)
			tt.setupMocks(m)

			dl, err := m.svc.Download(context.Background(), "doc-9", tt.actor)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, dl)
				m.sink.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				defer dl.Body.Close()
				body, err := io.ReadAll(dl.Body)
				require.NoError(t, err)
				assert.Equal(t, "pdf-bytes", string(body))
				assert.Equal(t, "application/pdf", dl.MimeType)
				assert.Equal(t, "insurance.pdf", dl.FileName)
				assert.Equal(t, int64(9), dl.Size)
			}
			m.assertExpectations(t)
		})
	}
}

func TestDocumentService_PresignDownload(t *testing.T) {
	m := newMocked(t, WithPresignExpiry(time.Minute))
	m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
	m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
	m.store.On("PresignGet", mock.Anything, storedDoc().StorageKey, time.Minute, reviewer).Return("https://signed.example/doc-9", nil)
	m.sink.On("Record", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.DocumentDownload && e.Metadata["mode"] == "presign"
	})).Return(nil)

	p, err := m.svc.PresignDownload(context.Background(), "doc-9", reviewer)

	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/doc-9", p.URL)
	assert.Equal(t, time.Minute, p.ExpiresIn)
	m.assertExpectations(t)
}

func TestDocumentService_Delete(t *testing.T) {
	key := storedDoc().StorageKey

	tests := []struct {
		name       string
		actor      model.Actor
		setupMocks func(m *mocked)
		wantErr    error
	}{
		{
			name:  "happy path",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.store.On("Delete", mock.Anything, key, owner).Return(nil)
				m.docs.On("Delete", mock.Anything, "doc-9").Return(nil)
				m.sink.On("Record", mock.Anything, eventOfType(audit.DocumentDelete, "doc-9")).Return(nil)
			},
		},
		{
			name:  "not found",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(nil, sql.ErrNoRows)
			},
			wantErr: model.ErrNotFound,
		},
		{
			name:  "under review is frozen",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
				m.apps.On("Get", mock.Anything, "app-1").Return(appWithStatus(model.StatusUnderReview), nil)
			},
			wantErr: model.ErrInvalidState,
		},
		{
			name:  "stranger denied",
			actor: stranger,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
			},
			wantErr: model.ErrAccessDenied,
		},
		{
			name:  "storage delete error keeps the record",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.store.On("Delete", mock.Anything, key, owner).Return(errors.New("storage fail"))
			},
			wantErr: model.ErrStorageUnavailable,
		},
		{
			name:  "record delete error after storage delete",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.store.On("Delete", mock.Anything, key, owner).Return(nil)
				m.docs.On("Delete", mock.Anything, "doc-9").Return(errors.New("db fail"))
			},
			wantErr: model.ErrPersistenceUnavailable,
		},
		{
			name:  "record already gone",
			actor: owner,
			setupMocks: func(m *mocked) {
				m.docs.On("FindByID", mock.Anything, "doc-9").Return(storedDoc(), nil)
				m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
				m.store.On("Delete", mock.Anything, key, owner).Return(nil)
				m.docs.On("Delete", mock.Anything, "doc-9").Return(sql.ErrNoRows)
			},
			wantErr: model.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocked(t)
			tt.setupMocks(m)

			err := m.svc.Delete(context.Background(), "doc-9", tt.actor)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				m.sink.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
			}
			m.assertExpectations(t)
		})
	}
}

func TestDocumentService_Requirements(t *testing.T) {
	m := newMocked(t)
	m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
	m.docs.On("ListByApplication", mock.Anything, "app-1").Return([]model.Document{
		{ID: "id-doc", Category: model.CategoryIdentity, UploadedAt: fixedNow},
		{ID: "other-new", Category: model.CategoryOther, UploadedAt: fixedNow},
		{ID: "other-old", Category: model.CategoryOther, UploadedAt: fixedNow.Add(-time.Hour)},
	}, nil)

	reqs, err := m.svc.Requirements(context.Background(), "app-1")

	require.NoError(t, err)
	require.Len(t, reqs.Required, 3)
	assert.Equal(t, Requirement{
		Category:    model.CategoryIdentity,
		Description: reqs.Required[0].Description,
		Uploaded:    true,
		DocumentID:  "id-doc",
	}, reqs.Required[0])
	assert.False(t, reqs.Required[1].Uploaded)
	assert.False(t, reqs.Required[2].Uploaded)

	require.Len(t, reqs.Optional, 2)
	assert.Equal(t, model.CategoryPropertyDeed, reqs.Optional[0].Category)
	assert.False(t, reqs.Optional[0].Uploaded)
	assert.Equal(t, model.CategoryOther, reqs.Optional[1].Category)
	assert.Equal(t, "other-new", reqs.Optional[1].DocumentID)
	m.assertExpectations(t)
}

func TestDocumentService_Completion(t *testing.T) {
	t.Run("missing required categories", func(t *testing.T) {
		m := newMocked(t)
		m.apps.On("Get", mock.Anything, "app-1").Return(draftApp(), nil)
		m.docs.On("ListByApplication", mock.Anything, "app-1").Return([]model.Document{
			{ID: "1", Category: model.CategorySafetyPermit},
		}, nil)

		c, err := m.svc.Completion(context.Background(), "app-1")

		require.NoError(t, err)
		assert.False(t, c.IsComplete)
		assert.Equal(t, []model.Category{model.CategoryIdentity, model.CategoryInsuranceCertificate}, c.Missing)
	})

	t.Run("application not found", func(t *testing.T) {
		m := newMocked(t)
		m.apps.On("Get", mock.Anything, "app-1").Return(nil, sql.ErrNoRows)

		c, err := m.svc.Completion(context.Background(), "app-1")

		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.Nil(t, c)
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "duplicate", outcome(model.NewError(model.ErrDuplicateDocument, "identity", "x")))
	assert.Equal(t, "error", outcome(errors.New("plain")))
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "applications/app-1/safety_permit/doc-1.pdf", StorageKey("app-1", model.CategorySafetyPermit, "doc-1", ".pdf"))
}
