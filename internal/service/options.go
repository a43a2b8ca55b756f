package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"certdocs/internal/access"
	"certdocs/internal/logging"
)

const (
	defaultBatchConcurrency = 4
	defaultPresignExpiry    = 15 * time.Minute
)

// Option customizes a DocumentService.
type Option func(*documentService)

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *documentService) { s.log = log.WithField("component", "document_service") }
}

func WithMetrics(m *Metrics) Option {
	return func(s *documentService) { s.metrics = m }
}

func WithEvaluator(e access.Evaluator) Option {
	return func(s *documentService) { s.access = e }
}

// WithBatchConcurrency bounds parallel uploads within one batch. Values below 1 are ignored.
func WithBatchConcurrency(n int) Option {
	return func(s *documentService) {
		if n >= 1 {
			s.batchConcurrency = n
		}
	}
}

func WithPresignExpiry(d time.Duration) Option {
	return func(s *documentService) {
		if d > 0 {
			s.presignExpiry = d
		}
	}
}

func defaults(s *documentService) {
	s.log = logging.Discard().WithField("component", "document_service")
	s.batchConcurrency = defaultBatchConcurrency
	s.presignExpiry = defaultPresignExpiry
}
