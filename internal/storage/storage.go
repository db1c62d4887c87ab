// Package storage provides file storage capabilities for uploads and report
// documents. It defines the Storage interface (port) for hexagonal
// architecture and implementations for local disk and S3 archival.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for upload staging and report persistence.
// Uploads are short-lived files that exist only while an analysis decodes
// them; report documents live until their analysis record is deleted.
type Storage interface {
	// SaveUpload stages an uploaded file and returns its path.
	// The name parameter is used as a hint for the filename.
	SaveUpload(ctx context.Context, name string, data io.Reader) (path string, err error)

	// RemoveUpload deletes a staged upload. Missing files are not an error.
	RemoveUpload(ctx context.Context, path string) error

	// SaveReport stores a report document under its analysis ID and returns
	// the document path.
	SaveReport(ctx context.Context, id string, data []byte) (path string, err error)

	// OpenReport opens the report document for an analysis ID.
	// Returns ErrReportNotFound if the document does not exist.
	// The caller is responsible for closing the returned ReadCloser.
	OpenReport(ctx context.Context, id string) (io.ReadCloser, error)

	// DeleteReport removes the report document for an analysis ID.
	// Returns ErrReportNotFound if the document does not exist.
	DeleteReport(ctx context.Context, id string) error

	// UploadReport archives a report document to object storage and returns
	// the object URL. Returns ErrS3NotConfigured if S3 is not configured.
	UploadReport(ctx context.Context, id string, data io.Reader) (url string, err error)

	// ReportPath returns the local path a report document is stored under.
	ReportPath(id string) string
}
