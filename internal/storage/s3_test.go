package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewS3Storage(t *testing.T) {
	dataDir := filepath.Join(os.TempDir(), "voicepulse_s3_test_"+randomSuffix())
	defer os.RemoveAll(dataDir)

	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566", // LocalStack-like endpoint
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	storage, err := NewS3Storage(dataDir, cfg)
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	if storage.bucket != cfg.Bucket {
		t.Errorf("bucket = %v, want %v", storage.bucket, cfg.Bucket)
	}
	if storage.region != cfg.Region {
		t.Errorf("region = %v, want %v", storage.region, cfg.Region)
	}
}

func TestS3Storage_InheritsLocalStorage(t *testing.T) {
	dataDir := filepath.Join(os.TempDir(), "voicepulse_s3_test_"+randomSuffix())
	defer os.RemoveAll(dataDir)

	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	storage, err := NewS3Storage(dataDir, cfg)
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	ctx := context.Background()

	// Inherited report round-trip
	if _, err := storage.SaveReport(ctx, "a1", []byte(`{"analysis_id":"a1"}`)); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	reader, err := storage.OpenReport(ctx, "a1")
	if err != nil {
		t.Fatalf("OpenReport() error = %v", err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(content) != `{"analysis_id":"a1"}` {
		t.Errorf("got %q", string(content))
	}

	// Inherited upload staging
	path, err := storage.SaveUpload(ctx, "clip.wav", bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}
	if err := storage.RemoveUpload(ctx, path); err != nil {
		t.Fatalf("RemoveUpload() error = %v", err)
	}
}

func TestS3Storage_UploadReport_MockServer(t *testing.T) {
	// Create a mock S3 server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}

		if !strings.Contains(r.URL.Path, "/reports/a1.json") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if string(body) != `{"analysis_id":"a1"}` {
			t.Errorf("unexpected body: %s", string(body))
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dataDir := filepath.Join(os.TempDir(), "voicepulse_s3_mock_test_"+randomSuffix())
	defer os.RemoveAll(dataDir)

	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	storage, err := NewS3Storage(dataDir, cfg)
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	ctx := context.Background()
	url, err := storage.UploadReport(ctx, "a1", bytes.NewReader([]byte(`{"analysis_id":"a1"}`)))
	if err != nil {
		t.Fatalf("UploadReport() error = %v", err)
	}

	expectedURL := "https://test-bucket.s3.us-east-1.amazonaws.com/reports/a1.json"
	if url != expectedURL {
		t.Errorf("url = %v, want %v", url, expectedURL)
	}
}
