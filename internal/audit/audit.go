// Package audit records document mutations and downloads.
package audit

import (
	"context"
	"time"

	"certdocs/internal/model"
)

// EventType names an audited action.
type EventType string

const (
	DocumentUpload   EventType = "DOCUMENT_UPLOAD"
	DocumentDownload EventType = "DOCUMENT_DOWNLOAD"
	DocumentDelete   EventType = "DOCUMENT_DELETE"
)

// Event is emitted from the workflow after an action succeeded.
type Event struct {
	Type       EventType
	SubjectID  string
	Actor      model.Actor
	Metadata   map[string]string
	OccurredAt time.Time
}

// Sink persists audit events. Implementations may fail; callers decide what a failure means.
type Sink interface {
	Record(ctx context.Context, e Event) error
}
