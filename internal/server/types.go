// Package server provides the HTTP server for the VoicePulse API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// AnalyzeOverrides are the optional form fields accepted by POST /analyze.
// Nil fields keep the configured pipeline parameters.
type AnalyzeOverrides struct {
	// WindowSeconds overrides the analysis window length.
	WindowSeconds *float64 `validate:"omitempty,gt=0"`
	// OverlapSeconds overrides the overlap between consecutive windows.
	OverlapSeconds *float64 `validate:"omitempty,gt=0"`
	// SignificanceThreshold overrides the transition significance threshold.
	SignificanceThreshold *float64 `validate:"omitempty,gte=0,lte=1"`
}

// RecordSummary is one analysis record in the GET /analyses listing.
type RecordSummary struct {
	// ID is the analysis identifier.
	ID string `json:"id"`
	// Filename is the original upload name.
	Filename string `json:"filename"`
	// Status is "completed" or "failed".
	Status string `json:"status"`
	// Duration is the analyzed audio length in seconds.
	Duration float64 `json:"duration,omitempty"`
	// PrimaryEmotion is the dominant emotion over the whole recording.
	PrimaryEmotion string `json:"primary_emotion,omitempty"`
	// ReportURL is the archive URL when object storage is configured.
	ReportURL string `json:"report_url,omitempty"`
	// Error holds the failure message for failed analyses.
	Error string `json:"error,omitempty"`
	// CreatedAt is the analysis start time in RFC3339.
	CreatedAt string `json:"created_at"`
}

// ListAnalysesResponse is the HTTP response for the record listing.
type ListAnalysesResponse struct {
	// Analyses holds the records, newest first.
	Analyses []RecordSummary `json:"analyses"`
	// Total is the number of records returned.
	Total int `json:"total"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// Service is the service name.
	Service string `json:"service"`
	// Timestamp is the server time in RFC3339.
	Timestamp string `json:"timestamp"`
}
