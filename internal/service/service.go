// Package service provides the AnalysisService use case: staging an upload,
// decoding it, running the analysis pipeline, persisting the report document,
// and keeping the analysis record book.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voicepulse/voicepulse-api/internal/analysis"
	"github.com/voicepulse/voicepulse-api/internal/audio"
	"github.com/voicepulse/voicepulse-api/internal/classifier"
	"github.com/voicepulse/voicepulse-api/internal/record"
	"github.com/voicepulse/voicepulse-api/internal/storage"
)

// ErrUnsupportedExtension is returned when the uploaded filename has an
// extension outside the allowed set.
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// ErrAudioTooShort is returned when the decoded audio is below the minimum
// duration worth analyzing.
var ErrAudioTooShort = errors.New("audio too short to analyze")

// allowedExtensions lists the upload formats the decoder is expected to
// handle.
var allowedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".webm": true,
}

// Options configures an AnalysisService.
type Options struct {
	// Decode holds the target sample rate and duration cap for uploads.
	Decode audio.DecodeOpts
	// MinSeconds is the minimum decoded duration accepted for analysis.
	MinSeconds float64
}

// DefaultOptions returns the default service options.
func DefaultOptions() Options {
	return Options{
		Decode:     audio.DefaultDecodeOpts(),
		MinSeconds: 0.5,
	}
}

// StoredReport is the report document as persisted and served: the analysis
// report plus its identity envelope.
type StoredReport struct {
	analysis.Report
	AnalysisID string `json:"analysis_id"`
	Filename   string `json:"filename"`
	Timestamp  string `json:"timestamp"`
}

// AnalyzeInput carries one analysis request. The override fields replace the
// configured pipeline parameters for this request only when non-nil.
type AnalyzeInput struct {
	Filename string
	Data     io.Reader

	WindowSeconds         *float64
	OverlapSeconds        *float64
	SignificanceThreshold *float64
}

// AnalysisService orchestrates the analysis workflow across the decoder,
// pipeline, storage, and record repository ports.
type AnalysisService struct {
	decoder    audio.Decoder
	classifier classifier.Classifier
	params     analysis.Params
	pipeline   *analysis.Pipeline
	store      storage.Storage
	repo       record.Repository
	logger     *slog.Logger
	opts       Options
}

// NewAnalysisService creates a new AnalysisService. The default pipeline is
// built once from params; per-request overrides derive a fresh one.
func NewAnalysisService(
	decoder audio.Decoder,
	c classifier.Classifier,
	params analysis.Params,
	store storage.Storage,
	repo record.Repository,
	logger *slog.Logger,
	opts Options,
) (*AnalysisService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pipeline, err := analysis.NewPipeline(c, params)
	if err != nil {
		return nil, err
	}
	return &AnalysisService{
		decoder:    decoder,
		classifier: c,
		params:     params,
		pipeline:   pipeline,
		store:      store,
		repo:       repo,
		logger:     logger,
		opts:       opts,
	}, nil
}

// Analyze runs the complete workflow for one upload and returns the stored
// report document. Analyses that fail after decoding starts leave a failed
// record behind; rejected uploads (bad extension) do not.
func (s *AnalysisService) Analyze(ctx context.Context, in AnalyzeInput) (*StoredReport, error) {
	filename := filepath.Base(in.Filename)
	if err := checkExtension(filename); err != nil {
		return nil, err
	}

	pipeline, err := s.pipelineFor(in)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s.logger.Info("starting analysis",
		slog.String("analysis_id", id),
		slog.String("filename", filename),
	)

	buf, err := s.decode(ctx, filename, in.Data)
	if err != nil {
		s.recordFailure(ctx, id, filename, err)
		return nil, err
	}

	report, err := pipeline.Analyze(ctx, buf)
	if err != nil {
		s.recordFailure(ctx, id, filename, err)
		return nil, fmt.Errorf("analyze audio: %w", err)
	}

	stored := &StoredReport{
		Report:     *report,
		AnalysisID: id,
		Filename:   filename,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	doc, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	path, err := s.store.SaveReport(ctx, id, doc)
	if err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}

	url := s.archiveReport(ctx, id, doc)

	rec, err := record.NewCompleted(id, filename, report.Metadata.Duration,
		report.JourneyAnalysis.PrimaryEmotion, path, url)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	s.logger.Info("analysis completed",
		slog.String("analysis_id", id),
		slog.Float64("duration", report.Metadata.Duration),
		slog.Int("segments", report.Metadata.TotalSegments),
		slog.String("primary_emotion", string(report.JourneyAnalysis.PrimaryEmotion)),
	)
	return stored, nil
}

// QuickAnalyze classifies the whole upload in one shot. Nothing is persisted.
func (s *AnalysisService) QuickAnalyze(ctx context.Context, filename string, data io.Reader) (*analysis.QuickResult, error) {
	filename = filepath.Base(filename)
	if err := checkExtension(filename); err != nil {
		return nil, err
	}

	buf, err := s.decode(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	return s.pipeline.QuickAnalyze(ctx, buf)
}

// AnalyzeFile analyzes an audio file already on disk and returns the report
// document without persisting anything. It backs the one-shot CLI mode.
func (s *AnalysisService) AnalyzeFile(ctx context.Context, path string) (*StoredReport, error) {
	filename := filepath.Base(path)
	if err := checkExtension(filename); err != nil {
		return nil, err
	}

	buf, err := s.decoder.Decode(ctx, path, s.opts.Decode)
	if err != nil {
		return nil, err
	}
	if buf.Duration() < s.opts.MinSeconds {
		return nil, fmt.Errorf("%w: %.2fs, need at least %.2fs",
			ErrAudioTooShort, buf.Duration(), s.opts.MinSeconds)
	}

	report, err := s.pipeline.Analyze(ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("analyze audio: %w", err)
	}

	return &StoredReport{
		Report:     *report,
		AnalysisID: uuid.NewString(),
		Filename:   filename,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// GetReport loads the stored report document for an analysis ID.
func (s *AnalysisService) GetReport(ctx context.Context, id string) (*StoredReport, error) {
	reader, err := s.OpenReport(ctx, id)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var stored StoredReport
	if err := json.NewDecoder(reader).Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode report document: %w", err)
	}
	return &stored, nil
}

// OpenReport streams the stored report document bytes for an analysis ID.
// The caller is responsible for closing the returned ReadCloser.
func (s *AnalysisService) OpenReport(ctx context.Context, id string) (io.ReadCloser, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.OpenReport(ctx, id)
}

// List returns all analysis records, newest first.
func (s *AnalysisService) List(ctx context.Context) ([]*record.Record, error) {
	return s.repo.List(ctx)
}

// Delete removes an analysis record and its report document.
func (s *AnalysisService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	// Failed analyses never stored a document.
	if err := s.store.DeleteReport(ctx, id); err != nil && !errors.Is(err, storage.ErrReportNotFound) {
		return err
	}
	s.logger.Info("analysis deleted", slog.String("analysis_id", id))
	return nil
}

// decode stages the upload, decodes it, and removes the staged file. The
// staged copy exists only for the decoder to read.
func (s *AnalysisService) decode(ctx context.Context, filename string, data io.Reader) (*audio.Buffer, error) {
	uploadPath, err := s.store.SaveUpload(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	buf, decodeErr := s.decoder.Decode(ctx, uploadPath, s.opts.Decode)

	if err := s.store.RemoveUpload(context.WithoutCancel(ctx), uploadPath); err != nil {
		s.logger.Warn("upload cleanup failed",
			slog.String("path", uploadPath),
			slog.String("error", err.Error()),
		)
	}

	if decodeErr != nil {
		return nil, decodeErr
	}
	if buf.Duration() < s.opts.MinSeconds {
		return nil, fmt.Errorf("%w: %.2fs, need at least %.2fs",
			ErrAudioTooShort, buf.Duration(), s.opts.MinSeconds)
	}
	return buf, nil
}

// pipelineFor returns the default pipeline, or builds one for the request's
// parameter overrides.
func (s *AnalysisService) pipelineFor(in AnalyzeInput) (*analysis.Pipeline, error) {
	if in.WindowSeconds == nil && in.OverlapSeconds == nil && in.SignificanceThreshold == nil {
		return s.pipeline, nil
	}

	params := s.params
	if in.WindowSeconds != nil {
		params.WindowSeconds = *in.WindowSeconds
	}
	if in.OverlapSeconds != nil {
		params.OverlapSeconds = *in.OverlapSeconds
	}
	if in.SignificanceThreshold != nil {
		params.SignificanceThreshold = *in.SignificanceThreshold
	}
	return analysis.NewPipeline(s.classifier, params)
}

// archiveReport pushes the document to object storage when configured.
// Archive failures are not fatal; the local copy is authoritative.
func (s *AnalysisService) archiveReport(ctx context.Context, id string, doc []byte) string {
	url, err := s.store.UploadReport(ctx, id, bytes.NewReader(doc))
	if errors.Is(err, storage.ErrS3NotConfigured) {
		return ""
	}
	if err != nil {
		s.logger.Warn("report archive failed",
			slog.String("analysis_id", id),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return url
}

// recordFailure books a failed analysis. Bookkeeping errors are logged, not
// returned; the analysis error is the one the caller needs.
func (s *AnalysisService) recordFailure(ctx context.Context, id, filename string, cause error) {
	rec, err := record.NewFailed(id, filename, cause.Error())
	if err != nil {
		s.logger.Error("failed record rejected",
			slog.String("analysis_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.repo.Save(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error("failed record not saved",
			slog.String("analysis_id", id),
			slog.String("error", err.Error()),
		)
	}
	s.logger.Error("analysis failed",
		slog.String("analysis_id", id),
		slog.String("filename", filename),
		slog.String("error", cause.Error()),
	)
}

// checkExtension guards the upload extension against the allowed set.
func checkExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
	return nil
}
