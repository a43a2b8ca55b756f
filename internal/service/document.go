package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"certdocs/internal/access"
	"certdocs/internal/audit"
	"certdocs/internal/model"
	"certdocs/internal/policy"
	"certdocs/internal/repository"
	"certdocs/internal/storage"
)

var ErrReaderNil = errors.New("reader is nil")

// SkippedFile is a batch entry that was not stored.
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// BatchResult lists created documents and skipped files, both in input order.
type BatchResult struct {
	Created []model.Document `json:"created"`
	Skipped []SkippedFile    `json:"skipped"`
}

// Download is a document's content ready to be streamed. The caller must close Body.
type Download struct {
	Body     io.ReadCloser
	MimeType string
	FileName string
	Size     int64
}

// PresignedURL is a time-limited direct download link.
type PresignedURL struct {
	URL       string        `json:"url"`
	ExpiresIn time.Duration `json:"-"`
}

// Auditor receives events for successful mutations and downloads.
type Auditor interface {
	Emit(ctx context.Context, e audit.Event)
}

// DocumentService defines the document workflow of an application.
type DocumentService interface {
	// Upload validates and stores one file for the given category.
	Upload(ctx context.Context, applicationID string, category model.Category, file model.File, actor model.Actor) (*model.Document, error)

	// UploadBatch uploads several files of one category. A file that fails is reported in
	// Skipped and does not fail the call; only application-level failures do.
	UploadBatch(ctx context.Context, applicationID string, category model.Category, files []model.File, actor model.Actor) (*BatchResult, error)

	// List returns the documents of an application, most recent upload first.
	List(ctx context.Context, applicationID string, actor model.Actor) ([]model.Document, error)

	// Download opens a document's content for streaming.
	Download(ctx context.Context, documentID string, actor model.Actor) (*Download, error)

	// PresignDownload returns a time-limited URL for a document.
	PresignDownload(ctx context.Context, documentID string, actor model.Actor) (*PresignedURL, error)

	// Delete removes a document from storage, then its record.
	Delete(ctx context.Context, documentID string, actor model.Actor) error

	// Requirements annotates every category policy with whether the application satisfies it.
	Requirements(ctx context.Context, applicationID string) (*Requirements, error)

	// Completion reports whether all required categories have a document.
	Completion(ctx context.Context, applicationID string) (*Completion, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store   storage.Storage
	docs    repository.DocumentRepository
	apps    repository.ApplicationRepository
	auditor Auditor
	access  access.Evaluator
	metrics *Metrics
	log     logrus.FieldLogger
	tracer  trace.Tracer

	batchConcurrency int
	presignExpiry    time.Duration

	now   func() time.Time
	newID func() string
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, docs repository.DocumentRepository, apps repository.ApplicationRepository, auditor Auditor, opts ...Option) DocumentService {
	s := &documentService{
		store:   store,
		docs:    docs,
		apps:    apps,
		auditor: auditor,
		tracer:  otel.Tracer("certdocs/internal/service"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	defaults(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StorageKey is the object key of a document: scoped to its application and derived from its id.
func StorageKey(applicationID string, category model.Category, documentID, ext string) string {
	return path.Join("applications", applicationID, category.String(), documentID+ext)
}

func (s *documentService) Upload(ctx context.Context, applicationID string, category model.Category, file model.File, actor model.Actor) (doc *model.Document, err error) {
	ctx, span := s.tracer.Start(ctx, "DocumentService.Upload", trace.WithAttributes(
		attribute.String("application.id", applicationID),
		attribute.String("document.category", category.String()),
	))
	defer func() { s.finish(span, "upload", err) }()

	snap, pol, err := s.prepareUpload(ctx, applicationID, category, actor)
	if err != nil {
		return nil, err
	}
	return s.uploadOne(ctx, snap, pol, file, actor)
}

func (s *documentService) UploadBatch(ctx context.Context, applicationID string, category model.Category, files []model.File, actor model.Actor) (res *BatchResult, err error) {
	ctx, span := s.tracer.Start(ctx, "DocumentService.UploadBatch", trace.WithAttributes(
		attribute.String("application.id", applicationID),
		attribute.String("document.category", category.String()),
		attribute.Int("batch.size", len(files)),
	))
	defer func() { s.finish(span, "upload_batch", err) }()

	snap, pol, err := s.prepareUpload(ctx, applicationID, category, actor)
	if err != nil {
		return nil, err
	}

	type fileResult struct {
		doc *model.Document
		err error
	}
	results := make([]fileResult, len(files))

	// Single-document categories run one at a time so the first file in input order wins.
	limit := s.batchConcurrency
	if !category.AllowsMultiple() {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, f := range files {
		g.Go(func() error {
			doc, err := s.uploadOne(ctx, snap, pol, f, actor)
			s.metrics.observe("upload", err)
			results[i] = fileResult{doc: doc, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res = &BatchResult{Created: []model.Document{}, Skipped: []SkippedFile{}}
	for i, r := range results {
		if r.err != nil {
			res.Skipped = append(res.Skipped, SkippedFile{
				Name:   files[i].Name,
				Reason: model.Reason(r.err, r.err.Error()),
				Err:    r.err,
			})
			continue
		}
		res.Created = append(res.Created, *r.doc)
	}

	span.SetAttributes(attribute.Int("batch.created", len(res.Created)), attribute.Int("batch.skipped", len(res.Skipped)))
	s.log.WithFields(logrus.Fields{
		"application_id": applicationID,
		"category":       category.String(),
		"created":        len(res.Created),
		"skipped":        len(res.Skipped),
	}).Info("batch upload finished")
	return res, nil
}

func (s *documentService) prepareUpload(ctx context.Context, applicationID string, category model.Category, actor model.Actor) (*model.ApplicationSnapshot, policy.ValidationPolicy, error) {
	snap, err := s.snapshot(ctx, applicationID)
	if err != nil {
		return nil, policy.ValidationPolicy{}, err
	}
	if err := s.access.Check(actor, *snap, access.WriteCreate); err != nil {
		return nil, policy.ValidationPolicy{}, err
	}
	pol, err := policy.For(category)
	if err != nil {
		return nil, policy.ValidationPolicy{}, err
	}
	return snap, pol, nil
}

// uploadOne runs the per-file part of an upload: duplicate check, policy validation,
// storage, record creation and audit.
func (s *documentService) uploadOne(ctx context.Context, snap *model.ApplicationSnapshot, pol policy.ValidationPolicy, file model.File, actor model.Actor) (*model.Document, error) {
	category := pol.Category

	if !category.AllowsMultiple() {
		existing, err := s.docs.ListByApplication(ctx, snap.ID)
		if err != nil {
			return nil, model.WrapError(model.ErrPersistenceUnavailable, "application "+snap.ID, "could not load existing documents", err)
		}
		for _, d := range existing {
			if d.Category == category {
				return nil, duplicate(category, d.ID)
			}
		}
	}

	if err := pol.Validate(file); err != nil {
		s.metrics.violation(err)
		return nil, err
	}
	if file.Content == nil {
		return nil, model.WrapError(model.ErrPolicyViolation, category.String(), fmt.Sprintf("%q has no content", file.Name), ErrReaderNil)
	}

	id := s.newID()
	key := StorageKey(snap.ID, category, id, policy.Extension(file.Name))
	mediaType := policy.NormalizeMediaType(file.ContentType)

	obj, err := s.store.Put(ctx, key, file.Content, storage.PutObjectOptions{
		Size:        file.Size,
		ContentType: mediaType,
		Metadata: map[string]string{
			"original-filename": file.Name,
			"application-id":    snap.ID,
			"category":          category.String(),
		},
	}, actor)
	if err != nil {
		return nil, model.WrapError(model.ErrStorageUnavailable, category.String(), fmt.Sprintf("could not store %q", file.Name), err)
	}

	size := file.Size
	if obj.Size > 0 {
		size = obj.Size
	}
	doc := &model.Document{
		ID:            id,
		ApplicationID: snap.ID,
		Category:      category,
		StorageKey:    key,
		OriginalName:  file.Name,
		MimeType:      mediaType,
		SizeBytes:     size,
		UploadedBy:    actor.ID,
		UploadedAt:    s.now().UTC(),
	}
	stored, err := s.docs.Create(ctx, doc)
	if err != nil {
		s.rollback(ctx, key, actor, err)
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, duplicate(category, "")
		}
		return nil, model.WrapError(model.ErrPersistenceUnavailable, category.String(), fmt.Sprintf("could not save %q", file.Name), err)
	}

	s.auditor.Emit(ctx, audit.Event{
		Type:      audit.DocumentUpload,
		SubjectID: stored.ID,
		Actor:     actor,
		Metadata: map[string]string{
			"application_id": snap.ID,
			"category":       category.String(),
			"original_name":  file.Name,
		},
	})
	return stored, nil
}

// rollback removes bytes stored for a record that could not be created.
func (s *documentService) rollback(ctx context.Context, key string, actor model.Actor, cause error) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key, actor); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"storage_key": key,
			"cause":       cause.Error(),
		}).Error("rollback of stored object failed, object is orphaned")
	}
}

func duplicate(category model.Category, existingID string) error {
	reason := fmt.Sprintf("a %s document is already uploaded; delete it before uploading a replacement", category)
	if existingID != "" {
		reason = fmt.Sprintf("a %s document is already uploaded (document %s); delete it before uploading a replacement", category, existingID)
	}
	return model.NewError(model.ErrDuplicateDocument, category.String(), reason)
}

func (s *documentService) List(ctx context.Context, applicationID string, actor model.Actor) (docs []model.Document, err error) {
	ctx, span := s.tracer.Start(ctx, "DocumentService.List", trace.WithAttributes(attribute.String("application.id", applicationID)))
	defer func() { s.finish(span, "list", err) }()

	snap, err := s.snapshot(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Check(actor, *snap, access.Read); err != nil {
		return nil, err
	}
	docs, err = s.listDocuments(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *documentService) listDocuments(ctx context.Context, applicationID string) ([]model.Document, error) {
	docs, err := s.docs.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, model.WrapError(model.ErrPersistenceUnavailable, "application "+applicationID, "could not load documents", err)
	}
	slices.SortStableFunc(docs, func(a, b model.Document) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})
	return docs, nil
}

func (s *documentService) Download(ctx context.Context, documentID string, actor model.Actor) (dl *Download, err error) {
	ctx, span := s.tracer.Start(ctx, "DocumentService.Download", trace.WithAttributes(attribute.String("document.id", documentID)))
	defer func() { s.finish(span, "download", err) }()

	doc, err := s.authorizeDocument(ctx, documentID, actor, access.Read)
	if err != nil {
		return nil, err
	}

	body, info, err := s.store.Get(ctx, doc.StorageKey, actor)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, model.WrapError(model.ErrNotFound, "document "+doc.ID, "document content is missing from storage", err)
		}
		return nil, model.WrapError(model.ErrStorageUnavailable, "document "+doc.ID, "could not read document content", err)
	}

	s.auditor.Emit(ctx, audit.Event{
		Type:      audit.DocumentDownload,
		SubjectID: doc.ID,
		Actor:     actor,
		Metadata:  map[string]string{"application_id": doc.ApplicationID, "mode": "stream"},
	})

	size := doc.SizeBytes
	if info.Size > 0 {
		size = info.Size
	}
	return &Download{
		Body:     body,
		MimeType: doc.MimeType,
		FileName: doc.OriginalName,
		Size:     size,
	}, nil
}

func (s *documentService) PresignDownload(ctx context.Context, documentID string, actor model.Actor) (p *PresignedURL, err error) {
	ctx, span := s.tracer.Start(ctx, "DocumentService.PresignDownload", trace.WithAttributes(attribute.String("document.id", documentID)))
	defer func() { s.finish(span, "presign", err) }()

	doc, err := s.authorizeDocument(ctx, documentID, actor, access.Read)
	if err != nil {
		return nil, err
	}

	u, err := s.store.PresignGet(ctx, doc.StorageKey, s.presignExpiry, actor)
	if err != nil {
		return nil, model.WrapError(model.ErrStorageUnavailable, "document "+doc.ID, "could not create a download link", err)
	}

	s.auditor.Emit(ctx, audit.Event{
		Type:      audit.DocumentDownload,
		SubjectID: doc.ID,
		Actor:     actor,
		Metadata:  map[string]string{"application_id": doc.ApplicationID, "mode": "presign"},
	})
	return &PresignedURL{URL: u, ExpiresIn: s.presignExpiry}, nil
}

func (s *documentService) Delete(ctx context.Context, documentID string, actor model.Actor) (err error) {
	ctx, span := s.tracer.Start(ctx, "DocumentService.Delete", trace.WithAttributes(attribute.String("document.id", documentID)))
	defer func() { s.finish(span, "delete", err) }()

	doc, err := s.authorizeDocument(ctx, documentID, actor, access.WriteDelete)
	if err != nil {
		return err
	}

	// Storage goes first; a failed record delete afterwards leaves an orphaned object,
	// never a record pointing at missing bytes.
	if err := s.store.Delete(ctx, doc.StorageKey, actor); err != nil {
		return model.WrapError(model.ErrStorageUnavailable, "document "+doc.ID, "could not delete document content", err)
	}
	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NewError(model.ErrNotFound, "document "+doc.ID, "document not found")
		}
		return model.WrapError(model.ErrPersistenceUnavailable, "document "+doc.ID, "could not delete document record", err)
	}

	s.auditor.Emit(ctx, audit.Event{
		Type:      audit.DocumentDelete,
		SubjectID: doc.ID,
		Actor:     actor,
		Metadata: map[string]string{
			"application_id": doc.ApplicationID,
			"category":       doc.Category.String(),
		},
	})
	return nil
}

// authorizeDocument loads a document and checks intent against its owning application.
func (s *documentService) authorizeDocument(ctx context.Context, documentID string, actor model.Actor, intent access.Intent) (*model.Document, error) {
	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NewError(model.ErrNotFound, "document "+documentID, "document not found")
		}
		return nil, model.WrapError(model.ErrPersistenceUnavailable, "document "+documentID, "could not load document", err)
	}
	snap, err := s.snapshot(ctx, doc.ApplicationID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Check(actor, *snap, intent); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) snapshot(ctx context.Context, applicationID string) (*model.ApplicationSnapshot, error) {
	snap, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NewError(model.ErrNotFound, "application "+applicationID, "application not found")
		}
		return nil, model.WrapError(model.ErrPersistenceUnavailable, "application "+applicationID, "could not load application", err)
	}
	return snap, nil
}

func (s *documentService) finish(span trace.Span, op string, err error) {
	s.metrics.observe(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
	}
	span.End()
}
