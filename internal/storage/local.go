package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// ErrReportNotFound is returned when a report document does not exist.
var ErrReportNotFound = errors.New("report document not found")

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements the Storage interface using local disk.
// Uploads are staged under uploads/ and report documents under reports/
// inside the data directory. S3 operations are not supported unless
// wrapped with S3Storage.
type LocalStorage struct {
	dataDir    string
	uploadsDir string
	reportsDir string
}

// NewLocalStorage creates a new LocalStorage instance rooted at dataDir.
// If dataDir is empty, a directory under os.TempDir() is used.
// Both subdirectories are created if they don't exist.
func NewLocalStorage(dataDir string) (*LocalStorage, error) {
	if dataDir == "" {
		dataDir = filepath.Join(os.TempDir(), "voicepulse")
	}

	s := &LocalStorage{
		dataDir:    dataDir,
		uploadsDir: filepath.Join(dataDir, "uploads"),
		reportsDir: filepath.Join(dataDir, "reports"),
	}
	for _, dir := range []string{s.uploadsDir, s.reportsDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return s, nil
}

// DataDir returns the data directory path.
func (s *LocalStorage) DataDir() string {
	return s.dataDir
}

// SaveUpload stages an uploaded file and returns its path.
// The name is used as a base for the filename with a unique suffix.
func (s *LocalStorage) SaveUpload(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	// Uploaded names may carry path separators.
	name = filepath.Base(name)

	f, err := os.CreateTemp(s.uploadsDir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return fileName, nil
}

// RemoveUpload deletes a staged upload. Missing files are not an error.
func (s *LocalStorage) RemoveUpload(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file %s: %w", path, err)
	}
	return nil
}

// SaveReport stores a report document under its analysis ID.
func (s *LocalStorage) SaveReport(ctx context.Context, id string, data []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path := s.ReportPath(id)
	if err := os.WriteFile(path, data, 0644); err != nil { // #nosec G306 - reports are served to clients
		return "", fmt.Errorf("write report document: %w", err)
	}
	return path, nil
}

// OpenReport opens the report document for an analysis ID.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) OpenReport(ctx context.Context, id string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(s.ReportPath(id)) // #nosec G304 - path is derived from a validated id
	if os.IsNotExist(err) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open report document: %w", err)
	}
	return f, nil
}

// DeleteReport removes the report document for an analysis ID.
func (s *LocalStorage) DeleteReport(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	err := os.Remove(s.ReportPath(id))
	if os.IsNotExist(err) {
		return ErrReportNotFound
	}
	if err != nil {
		return fmt.Errorf("remove report document: %w", err)
	}
	return nil
}

// UploadReport is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadReport(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

// ReportPath returns the local path a report document is stored under.
func (s *LocalStorage) ReportPath(id string) string {
	return filepath.Join(s.reportsDir, id+".json")
}
