package model

import (
	"io"
	"time"
)

// Document is a file attached to exactly one application.
// Records are never updated in place; a correction is a delete followed by a new upload.
type Document struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	Category      Category  `json:"category"`
	StorageKey    string    `json:"storage_key"`
	OriginalName  string    `json:"original_name"`
	MimeType      string    `json:"mime_type"`
	SizeBytes     int64     `json:"size_bytes"`
	UploadedBy    string    `json:"uploaded_by"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// File is an incoming upload as handed over by the transport.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}
