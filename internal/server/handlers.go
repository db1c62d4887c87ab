package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/voicepulse/voicepulse-api/internal/analysis"
	"github.com/voicepulse/voicepulse-api/internal/audio"
	"github.com/voicepulse/voicepulse-api/internal/record"
	"github.com/voicepulse/voicepulse-api/internal/service"
	"github.com/voicepulse/voicepulse-api/internal/storage"
)

// serviceName identifies the API in the health payload.
const serviceName = "voicepulse-api"

// defaultMaxUploadBytes caps uploads when no limit is configured.
const defaultMaxUploadBytes = 50 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *service.AnalysisService
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes sets the upload size cap in bytes.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		h.maxUploadBytes = n
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *service.AnalysisService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        svc,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Analyze handles POST /analyze requests: a multipart upload under the
// "audio" field, with optional pipeline parameter overrides as form values.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	overrides, err := h.parseOverrides(r)
	if err != nil {
		h.logger.Warn("override validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	stored, err := h.service.Analyze(r.Context(), service.AnalyzeInput{
		Filename:              header.Filename,
		Data:                  file,
		WindowSeconds:         overrides.WindowSeconds,
		OverlapSeconds:        overrides.OverlapSeconds,
		SignificanceThreshold: overrides.SignificanceThreshold,
	})
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

// QuickAnalyze handles POST /quick-analyze requests: one whole-recording
// classification without persisting anything.
func (h *Handlers) QuickAnalyze(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.service.QuickAnalyze(r.Context(), header.Filename, file)
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetReport handles GET /report/{id} requests.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "analysis ID is required", "MISSING_ANALYSIS_ID")
		return
	}

	stored, err := h.service.GetReport(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

// DownloadReport handles GET /download/{id} requests, serving the stored
// report document as a file attachment.
func (h *Handlers) DownloadReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "analysis ID is required", "MISSING_ANALYSIS_ID")
		return
	}

	reader, err := h.service.OpenReport(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=voicepulse_report_%s.json", id))
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error("report download interrupted",
			slog.String("analysis_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// ListAnalyses handles GET /analyses requests.
func (h *Handlers) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("listing analyses failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "listing analyses failed", "LIST_FAILED")
		return
	}

	resp := ListAnalysesResponse{
		Analyses: make([]RecordSummary, 0, len(records)),
		Total:    len(records),
	}
	for _, rec := range records {
		resp.Analyses = append(resp.Analyses, summarize(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeleteAnalysis handles DELETE /analyses/{id} requests.
func (h *Handlers) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "analysis ID is required", "MISSING_ANALYSIS_ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, record.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found", "ANALYSIS_NOT_FOUND")
			return
		}
		h.logger.Error("deleting analysis failed",
			slog.String("analysis_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "deleting analysis failed", "DELETE_FAILED")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// openUpload extracts the "audio" multipart file, enforcing the size cap.
// On failure it writes the error response and returns ok=false.
func (h *Handlers) openUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if h.maxUploadBytes > 0 {
		if r.ContentLength > h.maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large", "FILE_TOO_LARGE")
			return nil, nil, false
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large", "FILE_TOO_LARGE")
			return nil, nil, false
		}
		h.logger.Warn("missing audio upload",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "audio file is required", "MISSING_AUDIO")
		return nil, nil, false
	}
	if header.Filename == "" {
		file.Close()
		writeError(w, http.StatusBadRequest, "no file selected", "MISSING_AUDIO")
		return nil, nil, false
	}
	return file, header, true
}

// parseOverrides reads and validates the optional pipeline parameter form
// fields.
func (h *Handlers) parseOverrides(r *http.Request) (*AnalyzeOverrides, error) {
	overrides := &AnalyzeOverrides{}

	var err error
	if overrides.WindowSeconds, err = formFloat(r, "window_seconds"); err != nil {
		return nil, err
	}
	if overrides.OverlapSeconds, err = formFloat(r, "overlap_seconds"); err != nil {
		return nil, err
	}
	if overrides.SignificanceThreshold, err = formFloat(r, "significance_threshold"); err != nil {
		return nil, err
	}

	if err := h.validator.Struct(overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// formFloat parses an optional float form value; absent fields return nil.
func formFloat(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return &v, nil
}

// writeAnalysisError maps analysis workflow errors to HTTP responses.
func (h *Handlers) writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnsupportedExtension):
		writeError(w, http.StatusUnsupportedMediaType, err.Error(), "UNSUPPORTED_FORMAT")
	case errors.Is(err, analysis.ErrInvalidParams):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_PARAMS")
	case errors.Is(err, audio.ErrUnsupportedFormat):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "UNDECODABLE_AUDIO")
	case errors.Is(err, audio.ErrEmptyAudio):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "EMPTY_AUDIO")
	case errors.Is(err, audio.ErrAudioTooLong):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "AUDIO_TOO_LONG")
	case errors.Is(err, service.ErrAudioTooShort), errors.Is(err, audio.ErrInvalidWindowConfig):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "AUDIO_TOO_SHORT")
	default:
		h.logger.Error("analysis request failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "analysis failed", "ANALYSIS_FAILED")
	}
}

// writeLookupError maps report retrieval errors to HTTP responses.
func (h *Handlers) writeLookupError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, record.ErrNotFound):
		writeError(w, http.StatusNotFound, "analysis not found", "ANALYSIS_NOT_FOUND")
	case errors.Is(err, storage.ErrReportNotFound):
		writeError(w, http.StatusNotFound, "report not found", "REPORT_NOT_FOUND")
	default:
		h.logger.Error("report lookup failed",
			slog.String("analysis_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "report lookup failed", "REPORT_FETCH_FAILED")
	}
}

// summarize converts a record into its listing DTO.
func summarize(rec *record.Record) RecordSummary {
	return RecordSummary{
		ID:             rec.ID,
		Filename:       rec.Filename,
		Status:         string(rec.Status),
		Duration:       rec.Duration,
		PrimaryEmotion: string(rec.PrimaryEmotion),
		ReportURL:      rec.ReportURL,
		Error:          rec.Error,
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response failed", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
